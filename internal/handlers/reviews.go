package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/database"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/util"
	"github.com/reviewinn/backend/internal/views"
	"gorm.io/gorm"
)

const (
	minReviewContent = 10
	maxReviewContent = 10000
	maxProsConsItems = 5
	maxProsConsChars = 100
)

type reviewRequest struct {
	EntityID      uint64            `json:"entity_id" binding:"required"`
	Title         string            `json:"title" binding:"required,max=200"`
	Content       string            `json:"content" binding:"required"`
	OverallRating float64           `json:"overall_rating" binding:"required"`
	Ratings       models.RatingMap  `json:"ratings"`
	Criteria      models.JSONMap    `json:"criteria"`
	Pros          models.StringList `json:"pros"`
	Cons          models.StringList `json:"cons"`
	Images        models.StringList `json:"images"`
	IsAnonymous   bool              `json:"is_anonymous"`
}

func validateReviewBody(req *reviewRequest) *apperrors.APIError {
	if len(req.Content) < minReviewContent || len(req.Content) > maxReviewContent {
		return apperrors.Validation("content",
			fmt.Sprintf("content must be between %d and %d characters", minReviewContent, maxReviewContent))
	}
	if req.OverallRating < 1 || req.OverallRating > 5 {
		return apperrors.Validation("overall_rating", "rating must be between 1 and 5")
	}
	for key, value := range req.Ratings {
		if value < 1 || value > 5 {
			return apperrors.Validation("ratings", fmt.Sprintf("rating %q must be between 1 and 5", key))
		}
	}
	for field, items := range map[string]models.StringList{"pros": req.Pros, "cons": req.Cons} {
		if len(items) > maxProsConsItems {
			return apperrors.Validation(field, fmt.Sprintf("at most %d items allowed", maxProsConsItems))
		}
		for _, item := range items {
			if len(item) > maxProsConsChars {
				return apperrors.Validation(field, fmt.Sprintf("items must be at most %d characters", maxProsConsChars))
			}
		}
	}
	return nil
}

// CreateReview handles POST /api/v1/reviews. One review per author per
// entity; the entity's aggregates update in the same transaction.
func (h *Handlers) CreateReview(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}
	if apiErr := validateReviewBody(&req); apiErr != nil {
		util.Fail(c, apiErr)
		return
	}

	var entity models.Entity
	err := database.DB.WithContext(c.Request.Context()).First(&entity, "id = ?", req.EntityID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("entity"))
			return
		}
		util.Fail(c, err)
		return
	}

	var existing int64
	err = database.DB.WithContext(c.Request.Context()).Model(&models.Review{}).
		Where("user_id = ? AND entity_id = ?", userID, req.EntityID).
		Count(&existing).Error
	if err != nil {
		util.Fail(c, err)
		return
	}
	if existing > 0 {
		util.Fail(c, apperrors.Conflict("you have already reviewed this entity"))
		return
	}

	review := models.Review{
		UserID:        userID,
		EntityID:      req.EntityID,
		Title:         req.Title,
		Content:       req.Content,
		OverallRating: req.OverallRating,
		Ratings:       req.Ratings,
		Criteria:      req.Criteria,
		Pros:          req.Pros,
		Cons:          req.Cons,
		Images:        req.Images,
		IsAnonymous:   req.IsAnonymous,
	}

	err = database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		if err := h.agg.RecalculateEntityRating(tx, req.EntityID); err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("review_count", gorm.Expr("review_count + 1")).Error
	})
	if err != nil {
		util.Fail(c, err)
		return
	}

	util.Respond(c, http.StatusCreated, "review created", review)
}

// ListReviews handles GET /api/v1/reviews, the recent-first review feed,
// optionally scoped to an entity or an author.
func (h *Handlers) ListReviews(c *gin.Context) {
	page, limit := util.PageParams(c)

	query := database.DB.WithContext(c.Request.Context()).Model(&models.Review{})
	if entityID, ok := util.QueryUint(c, "entity_id"); ok {
		query = query.Where("entity_id = ?", entityID)
	}
	if authorID, ok := util.QueryUint(c, "user_id"); ok {
		query = query.Where("user_id = ?", authorID)
	}
	if minRating, ok := util.QueryFloat(c, "min_rating"); ok {
		query = query.Where("overall_rating >= ?", minRating)
	}

	switch c.DefaultQuery("sort", "recent") {
	case "rating":
		query = query.Order("overall_rating DESC, created_at DESC")
	case "reactions":
		query = query.Order("reaction_count DESC, created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.Fail(c, err)
		return
	}

	var reviews []models.Review
	err := query.
		Preload("User").
		Preload("Entity").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		util.Fail(c, err)
		return
	}
	scrubAnonymousAuthors(reviews)

	util.RespondPage(c, "reviews", reviews, util.NewPagination(total, page, limit))
}

// GetReview handles GET /api/v1/reviews/:id
func (h *Handlers) GetReview(c *gin.Context) {
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var review models.Review
	err := database.DB.WithContext(c.Request.Context()).
		Preload("User").
		Preload("Entity").
		First(&review, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("review"))
			return
		}
		util.Fail(c, err)
		return
	}
	if review.IsAnonymous {
		review.User = nil
		review.UserID = 0
	}

	util.Respond(c, http.StatusOK, "", review)
}

// UpdateReview handles PUT /api/v1/reviews/:id. Author-only.
func (h *Handlers) UpdateReview(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var review models.Review
	err := database.DB.WithContext(c.Request.Context()).First(&review, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("review"))
			return
		}
		util.Fail(c, err)
		return
	}
	if review.UserID != userID {
		util.Fail(c, apperrors.Forbidden("only the author can edit a review"))
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, apperrors.Validation("", err.Error()))
		return
	}
	if apiErr := validateReviewBody(&req); apiErr != nil {
		util.Fail(c, apiErr)
		return
	}

	err = database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		// Struct-based update so the json serializer encodes the jsonb
		// columns; Select forces cleared fields to write too.
		err := tx.Model(&review).
			Select("title", "content", "overall_rating", "ratings",
				"criteria", "pros", "cons", "images", "is_anonymous").
			Updates(&models.Review{
				Title:         req.Title,
				Content:       req.Content,
				OverallRating: req.OverallRating,
				Ratings:       req.Ratings,
				Criteria:      req.Criteria,
				Pros:          req.Pros,
				Cons:          req.Cons,
				Images:        req.Images,
				IsAnonymous:   req.IsAnonymous,
			}).Error
		if err != nil {
			return err
		}
		return h.agg.RecalculateEntityRating(tx, review.EntityID)
	})
	if err != nil {
		util.Fail(c, err)
		return
	}

	util.Respond(c, http.StatusOK, "review updated", review)
}

// DeleteReview handles DELETE /api/v1/reviews/:id. Author or admin.
func (h *Handlers) DeleteReview(c *gin.Context) {
	userID, ok := util.RequireUserID(c)
	if !ok {
		return
	}
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	var review models.Review
	err := database.DB.WithContext(c.Request.Context()).First(&review, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, apperrors.NotFound("review"))
			return
		}
		util.Fail(c, err)
		return
	}
	if review.UserID != userID && c.GetString("user_role") != "admin" {
		util.Fail(c, apperrors.Forbidden("only the author can delete a review"))
		return
	}

	err = database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		if err := h.agg.RecalculateEntityRating(tx, review.EntityID); err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ? AND review_count > 0", review.UserID).
			UpdateColumn("review_count", gorm.Expr("review_count - 1")).Error
	})
	if err != nil {
		util.Fail(c, err)
		return
	}

	util.Respond(c, http.StatusOK, "review deleted", gin.H{"id": id})
}

// RecordReviewView handles POST /api/v1/reviews/:id/view
func (h *Handlers) RecordReviewView(c *gin.Context) {
	id, ok := util.IDParam(c, "id")
	if !ok {
		return
	}

	visit := views.Visit{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		SessionID: c.GetHeader("X-Session-ID"),
	}
	if userID, ok := util.CurrentUserID(c); ok {
		visit.UserID = &userID
	}

	counted, err := h.views.RecordReviewView(c.Request.Context(), id, visit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Respond(c, http.StatusOK, "view recorded", gin.H{"counted": counted})
}

// scrubAnonymousAuthors hides author identity on anonymous reviews before
// rendering.
func scrubAnonymousAuthors(reviews []models.Review) {
	for i := range reviews {
		if reviews[i].IsAnonymous {
			reviews[i].User = nil
			reviews[i].UserID = 0
		}
	}
}
