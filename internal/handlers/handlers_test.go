package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/aggregation"
	"github.com/reviewinn/backend/internal/auth"
	"github.com/reviewinn/backend/internal/category"
	"github.com/reviewinn/backend/internal/circles"
	"github.com/reviewinn/backend/internal/database"
	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/middleware"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/notifications"
	"github.com/reviewinn/backend/internal/reactions"
	"github.com/reviewinn/backend/internal/repository"
	"github.com/reviewinn/backend/internal/util"
	"github.com/reviewinn/backend/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Service, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.InitializeForTests()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UnifiedCategory{},
		&models.CategoryQuestion{},
		&models.Entity{},
		&models.EntityView{},
		&models.Review{},
		&models.ReviewView{},
		&models.ReviewReaction{},
		&models.Comment{},
		&models.CommentReaction{},
		&models.Notification{},
		&models.ReviewCircle{},
		&models.CircleConnection{},
		&models.CircleRequest{},
		&models.CircleInvite{},
		&models.CircleBlock{},
	))
	database.DB = db

	authService := auth.NewService([]byte("test-secret"), time.Hour)
	categoryEngine := category.NewEngine(db)
	agg := aggregation.NewEngine(db, categoryEngine)
	notifier := notifications.NewService(db)
	h := NewHandlers(
		authService,
		categoryEngine,
		agg,
		reactions.NewService(db, agg, notifier),
		views.NewTracker(db),
		circles.NewService(db, notifier),
		notifier,
		repository.NewUserRepository(db),
		nil,
		true,
	)

	r := gin.New()
	r.Use(middleware.ErrorTrap(true))
	api := r.Group("/api/v1")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/auth/me", authService.Middleware(), h.Me)
	api.POST("/entities", authService.Middleware(), h.CreateEntity)
	api.GET("/entities/:id", h.GetEntity)
	api.POST("/reviews", authService.Middleware(), h.CreateReview)
	api.GET("/reviews/:id", h.GetReview)
	api.POST("/reviews/:id/react", authService.Middleware(), h.ReactToReview)
	api.DELETE("/reviews/:id/react", authService.Middleware(), h.UnreactToReview)
	api.GET("/reviews/:id/reactions", authService.OptionalMiddleware(), h.ReviewReactions)
	return r, authService, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, util.Envelope) {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(b)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope util.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "every response is enveloped: %s", w.Body.String())
	return w, envelope
}

func registerUser(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":        username + "@example.com",
		"username":     username,
		"password":     "password123",
		"display_name": username,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := envelope.Data.(map[string]any)
	return data["token"].(string)
}

func seedEntityForTests(t *testing.T, db *gorm.DB) *models.Entity {
	t.Helper()
	engine := category.NewEngine(db)
	root, err := engine.Create(context.Background(), "Places", 0, 1)
	require.NoError(t, err)
	leaf, err := engine.Create(context.Background(), "Cafes", root.ID, 1)
	require.NoError(t, err)
	entity := models.Entity{
		Name:            "Blue Bottle",
		Description:     "Coffee",
		RootCategoryID:  root.ID,
		FinalCategoryID: leaf.ID,
	}
	require.NoError(t, db.Create(&entity).Error)
	return &entity
}

func TestRegisterLoginMe(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token := registerUser(t, r, "alice")

	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, envelope.Success)
	user := envelope.Data.(map[string]any)
	assert.Equal(t, "alice", user["username"])

	// Duplicate email conflicts.
	w, envelope = doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":        "alice@example.com",
		"username":     "alice2",
		"password":     "password123",
		"display_name": "alice2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)

	// Wrong password is unauthenticated.
	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct login returns a working token.
	w, envelope = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, envelope.Data.(map[string]any)["token"])
}

func TestMeRequiresToken(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "AUTHENTICATION_ERROR", envelope.Error.Code)
}

func TestCreateReviewValidation(t *testing.T) {
	r, _, db := newTestRouter(t)
	token := registerUser(t, r, "alice")
	entity := seedEntityForTests(t, db)

	// Rating out of range.
	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/reviews", token, gin.H{
		"entity_id":      entity.ID,
		"title":          "Great",
		"content":        "long enough content",
		"overall_rating": 6,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	assert.Equal(t, "overall_rating", envelope.Error.Field)

	// Content too short.
	w, envelope = doJSON(t, r, http.MethodPost, "/api/v1/reviews", token, gin.H{
		"entity_id":      entity.ID,
		"title":          "Great",
		"content":        "short",
		"overall_rating": 4,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "content", envelope.Error.Field)
}

func TestReviewLifecycleAndDuplicate(t *testing.T) {
	r, _, db := newTestRouter(t)
	token := registerUser(t, r, "alice")
	entity := seedEntityForTests(t, db)

	body := gin.H{
		"entity_id":      entity.ID,
		"title":          "Great coffee",
		"content":        "The pour-over here is excellent.",
		"overall_rating": 4.5,
	}
	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/reviews", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, envelope.Success)

	// The entity's aggregates moved in the same transaction.
	var got models.Entity
	require.NoError(t, db.First(&got, "id = ?", entity.ID).Error)
	assert.Equal(t, int64(1), got.ReviewCount)
	assert.InDelta(t, 4.5, got.AverageRating, 0.001)

	// Second review for the same entity by the same author conflicts.
	w, envelope = doJSON(t, r, http.MethodPost, "/api/v1/reviews", token, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
}

func TestReactionToggleFlow(t *testing.T) {
	r, _, db := newTestRouter(t)
	token := registerUser(t, r, "alice")
	entity := seedEntityForTests(t, db)

	review := models.Review{
		UserID:        999,
		EntityID:      entity.ID,
		Title:         "t",
		Content:       "long enough content",
		OverallRating: 4,
	}
	require.NoError(t, db.Create(&review).Error)
	path := fmt.Sprintf("/api/v1/reviews/%d/react", review.ID)

	w, envelope := doJSON(t, r, http.MethodPost, path, token, gin.H{"kind": "love"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := envelope.Data.(map[string]any)
	assert.Equal(t, "love", summary["user_reaction"])
	assert.Equal(t, float64(1), summary["total_reactions"])

	// Switching kind replaces the reaction.
	w, envelope = doJSON(t, r, http.MethodPost, path, token, gin.H{"kind": "haha"})
	require.Equal(t, http.StatusOK, w.Code)
	summary = envelope.Data.(map[string]any)
	assert.Equal(t, "haha", summary["user_reaction"])
	assert.Equal(t, float64(1), summary["total_reactions"])

	// Unreact restores the empty summary.
	w, envelope = doJSON(t, r, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary = envelope.Data.(map[string]any)
	assert.Nil(t, summary["user_reaction"])
	assert.Equal(t, float64(0), summary["total_reactions"])

	// Anonymous summary read carries no user_reaction either.
	w, envelope = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/reviews/%d/reactions", review.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary = envelope.Data.(map[string]any)
	assert.Nil(t, summary["user_reaction"])
}

func TestGetEntityReconcilesCounters(t *testing.T) {
	r, _, db := newTestRouter(t)
	entity := seedEntityForTests(t, db)

	review := models.Review{
		UserID:        1,
		EntityID:      entity.ID,
		Title:         "t",
		Content:       "long enough content",
		OverallRating: 5,
	}
	require.NoError(t, db.Create(&review).Error)

	// Drift the stored counter; the read path heals it.
	require.NoError(t, db.Model(&models.Entity{}).Where("id = ?", entity.ID).
		Update("review_count", 40).Error)

	w, envelope := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/entities/%d", entity.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := envelope.Data.(map[string]any)
	assert.Equal(t, float64(1), data["review_count"])

	var persisted models.Entity
	require.NoError(t, db.First(&persisted, "id = ?", entity.ID).Error)
	assert.Equal(t, int64(1), persisted.ReviewCount)
}

func TestNotFoundEnvelope(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/reviews/424242", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
	assert.False(t, envelope.Timestamp.IsZero())
}
