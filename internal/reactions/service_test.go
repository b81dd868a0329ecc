package reactions

import (
	"context"
	"testing"

	"github.com/reviewinn/backend/internal/aggregation"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/category"
	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	logger.InitializeForTests()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Entity{},
		&models.Review{},
		&models.ReviewReaction{},
		&models.Comment{},
		&models.CommentReaction{},
		&models.Notification{},
	))

	agg := aggregation.NewEngine(db, category.NewEngine(db))
	return NewService(db, agg, notifications.NewService(db)), db
}

func seedReview(t *testing.T, db *gorm.DB) *models.Review {
	t.Helper()
	entity := models.Entity{Name: "e", Description: "d", RootCategoryID: 1, FinalCategoryID: 1}
	require.NoError(t, db.Create(&entity).Error)
	review := models.Review{UserID: 1, EntityID: entity.ID, Title: "t", Content: "long enough", OverallRating: 4}
	require.NoError(t, db.Create(&review).Error)
	return &review
}

func TestReactInsertsOnce(t *testing.T) {
	s, db := newTestService(t)
	review := seedReview(t, db)
	ctx := context.Background()

	summary, err := s.ReactToReview(ctx, review.ID, 42, models.ReactionLove)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalReactions)
	require.NotNil(t, summary.UserReaction)
	assert.Equal(t, "love", *summary.UserReaction)

	var entity models.Entity
	require.NoError(t, db.First(&entity, "id = ?", review.EntityID).Error)
	assert.Equal(t, int64(1), entity.ReactionCount)
}

func TestReactSameKindIsNoOp(t *testing.T) {
	s, db := newTestService(t)
	review := seedReview(t, db)
	ctx := context.Background()

	_, err := s.ReactToReview(ctx, review.ID, 42, models.ReactionLove)
	require.NoError(t, err)
	summary, err := s.ReactToReview(ctx, review.ID, 42, models.ReactionLove)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.TotalReactions, "repeat of same kind changes nothing")

	var count int64
	require.NoError(t, db.Model(&models.ReviewReaction{}).
		Where("review_id = ?", review.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var entity models.Entity
	require.NoError(t, db.First(&entity, "id = ?", review.EntityID).Error)
	assert.Equal(t, int64(1), entity.ReactionCount, "entity counter not double-incremented")
}

func TestReactDifferentKindReplaces(t *testing.T) {
	s, db := newTestService(t)
	review := seedReview(t, db)
	ctx := context.Background()

	_, err := s.ReactToReview(ctx, review.ID, 42, models.ReactionLove)
	require.NoError(t, err)
	summary, err := s.ReactToReview(ctx, review.ID, 42, models.ReactionThumbsUp)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.TotalReactions)
	require.NotNil(t, summary.UserReaction)
	assert.Equal(t, "thumbs_up", *summary.UserReaction)
	assert.Equal(t, int64(1), summary.Reactions["thumbs_up"])
	assert.Zero(t, summary.Reactions["love"])
}

func TestReactInvalidKind(t *testing.T) {
	s, db := newTestService(t)
	review := seedReview(t, db)

	_, err := s.ReactToReview(context.Background(), review.ID, 42, "sparkles")
	require.Error(t, err)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrValidation, apiErr.Code)
}

func TestReactMissingReview(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.ReactToReview(context.Background(), 999, 42, models.ReactionLove)
	require.Error(t, err)
	apiErr := apperrors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrNotFound, apiErr.Code)
}

func TestUnreactRemovesAndDecrements(t *testing.T) {
	s, db := newTestService(t)
	review := seedReview(t, db)
	ctx := context.Background()

	_, err := s.ReactToReview(ctx, review.ID, 42, models.ReactionLove)
	require.NoError(t, err)
	summary, err := s.UnreactToReview(ctx, review.ID, 42)
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.TotalReactions)
	assert.Nil(t, summary.UserReaction)

	var entity models.Entity
	require.NoError(t, db.First(&entity, "id = ?", review.EntityID).Error)
	assert.Equal(t, int64(0), entity.ReactionCount)
}

func TestUnreactWithoutReactionIsHarmless(t *testing.T) {
	s, db := newTestService(t)
	review := seedReview(t, db)

	summary, err := s.UnreactToReview(context.Background(), review.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalReactions)

	var entity models.Entity
	require.NoError(t, db.First(&entity, "id = ?", review.EntityID).Error)
	assert.Equal(t, int64(0), entity.ReactionCount)
}

func TestSummaryTopReactionsCapped(t *testing.T) {
	s, db := newTestService(t)
	review := seedReview(t, db)
	ctx := context.Background()

	kinds := []models.ReactionKind{
		models.ReactionLove, models.ReactionLove,
		models.ReactionThumbsUp, models.ReactionThumbsUp,
		models.ReactionHaha,
		models.ReactionSad,
		models.ReactionEyes,
	}
	for i, kind := range kinds {
		_, err := s.ReactToReview(ctx, review.ID, uint64(100+i), kind)
		require.NoError(t, err)
	}

	summary, err := s.ReviewSummary(ctx, review.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.TotalReactions)
	assert.Len(t, summary.TopReactions, 3, "summary exposes at most three kinds")
	assert.Nil(t, summary.UserReaction, "anonymous callers get no user_reaction")
}

func TestCommentReactions(t *testing.T) {
	s, db := newTestService(t)
	review := seedReview(t, db)
	comment := models.Comment{ReviewID: review.ID, UserID: 1, Content: "nice"}
	require.NoError(t, db.Create(&comment).Error)
	ctx := context.Background()

	_, err := s.ReactToComment(ctx, comment.ID, 42, models.ReactionHaha)
	require.NoError(t, err)
	summary, err := s.CommentSummary(ctx, comment.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalReactions)

	var got models.Comment
	require.NoError(t, db.First(&got, "id = ?", comment.ID).Error)
	assert.Equal(t, int64(1), got.ReactionCount)

	_, err = s.UnreactToComment(ctx, comment.ID, 42)
	require.NoError(t, err)
	require.NoError(t, db.First(&got, "id = ?", comment.ID).Error)
	assert.Equal(t, int64(0), got.ReactionCount)
}
