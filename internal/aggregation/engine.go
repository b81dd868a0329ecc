// Package aggregation maintains the denormalized per-entity and per-review
// counters: rating averages, review/reaction/comment/view counts, and the
// per-review top-reactions cache. Write paths update counters inside the
// same transaction as the authoritative write; read paths reconcile
// against count(*) so drift introduced by external writers heals itself.
package aggregation

import (
	"context"
	"math"
	"time"

	"github.com/reviewinn/backend/internal/category"
	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/metrics"
	"github.com/reviewinn/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// topReactionsCap bounds the per-review reaction cache.
const topReactionsCap = 5

// Engine maintains entity and review aggregates.
type Engine struct {
	db         *gorm.DB
	categories *category.Engine
}

// NewEngine creates an aggregation engine.
func NewEngine(db *gorm.DB, categories *category.Engine) *Engine {
	return &Engine{db: db, categories: categories}
}

// RecalculateEntityRating recomputes average_rating and review_count from
// the authoritative review set. Runs on review create/update/delete inside
// the caller's transaction.
func (e *Engine) RecalculateEntityRating(tx *gorm.DB, entityID uint64) error {
	var stats struct {
		Count int64
		Avg   float64
	}
	err := tx.Model(&models.Review{}).
		Select("COUNT(*) as count, COALESCE(AVG(overall_rating), 0) as avg").
		Where("entity_id = ?", entityID).
		Scan(&stats).Error
	if err != nil {
		return err
	}

	return tx.Model(&models.Entity{}).
		Where("id = ?", entityID).
		Updates(map[string]any{
			"average_rating": round2(stats.Avg),
			"review_count":   stats.Count,
		}).Error
}

// ApplyEntityReactionDelta shifts an entity's reaction_count by delta.
func (e *Engine) ApplyEntityReactionDelta(tx *gorm.DB, entityID uint64, delta int) error {
	if delta == 0 {
		return nil
	}
	return tx.Model(&models.Entity{}).
		Where("id = ?", entityID).
		UpdateColumn("reaction_count", gorm.Expr("reaction_count + ?", delta)).Error
}

// ApplyEntityCommentDelta shifts an entity's comment_count by delta.
func (e *Engine) ApplyEntityCommentDelta(tx *gorm.DB, entityID uint64, delta int) error {
	if delta == 0 {
		return nil
	}
	return tx.Model(&models.Entity{}).
		Where("id = ?", entityID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta)).Error
}

// RefreshReviewReactions recomputes a review's reaction_count and its
// top-reactions cache from the reaction rows. Runs on every reaction
// change so feed rendering never needs a GROUP BY.
func (e *Engine) RefreshReviewReactions(tx *gorm.DB, reviewID uint64) error {
	type kindCount struct {
		Kind  string
		Count int
	}
	var rows []kindCount
	err := tx.Model(&models.ReviewReaction{}).
		Select("kind, COUNT(*) as count").
		Where("review_id = ?", reviewID).
		Group("kind").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	total := int64(0)
	top := make(map[string]int, topReactionsCap)
	for i, row := range rows {
		total += int64(row.Count)
		if i < topReactionsCap {
			top[row.Kind] = row.Count
		}
	}

	// Write through the model so the json serializer handles the cache
	// column; a raw map would reach the driver unencoded.
	return tx.Model(&models.Review{}).
		Where("id = ?", reviewID).
		Select("reaction_count", "top_reactions_json").
		Updates(&models.Review{ReactionCount: total, TopReactions: top}).Error
}

// ReconcileEntity compares each cached counter against a live count of the
// authoritative set and persists corrections. Called from entity read
// paths; the entity struct is updated in place.
func (e *Engine) ReconcileEntity(ctx context.Context, entity *models.Entity) error {
	db := e.db.WithContext(ctx)
	corrections := map[string]any{}

	var reviewStats struct {
		Count int64
		Avg   float64
	}
	err := db.Model(&models.Review{}).
		Select("COUNT(*) as count, COALESCE(AVG(overall_rating), 0) as avg").
		Where("entity_id = ?", entity.ID).
		Scan(&reviewStats).Error
	if err != nil {
		return err
	}
	if reviewStats.Count != entity.ReviewCount {
		corrections["review_count"] = reviewStats.Count
		entity.ReviewCount = reviewStats.Count
		metrics.RecordReconciliation("entity_review_count")
	}
	avg := round2(reviewStats.Avg)
	if avg != entity.AverageRating {
		corrections["average_rating"] = avg
		entity.AverageRating = avg
		metrics.RecordReconciliation("entity_average_rating")
	}

	var reactionCount int64
	err = db.Model(&models.ReviewReaction{}).
		Joins("JOIN reviews ON reviews.id = review_reactions.review_id").
		Where("reviews.entity_id = ? AND reviews.deleted_at IS NULL", entity.ID).
		Count(&reactionCount).Error
	if err != nil {
		return err
	}
	if reactionCount != entity.ReactionCount {
		corrections["reaction_count"] = reactionCount
		entity.ReactionCount = reactionCount
		metrics.RecordReconciliation("entity_reaction_count")
	}

	var commentCount int64
	err = db.Model(&models.Comment{}).
		Joins("JOIN reviews ON reviews.id = comments.review_id").
		Where("reviews.entity_id = ? AND reviews.deleted_at IS NULL", entity.ID).
		Count(&commentCount).Error
	if err != nil {
		return err
	}
	if commentCount != entity.CommentCount {
		corrections["comment_count"] = commentCount
		entity.CommentCount = commentCount
		metrics.RecordReconciliation("entity_comment_count")
	}

	var viewCount int64
	err = db.Model(&models.EntityView{}).
		Where("entity_id = ? AND is_valid = ? AND expires_at > ?", entity.ID, true, time.Now().UTC()).
		Count(&viewCount).Error
	if err != nil {
		return err
	}
	if viewCount != entity.ViewCount {
		corrections["view_count"] = viewCount
		entity.ViewCount = viewCount
		metrics.RecordReconciliation("entity_view_count")
	}

	if len(corrections) == 0 {
		return nil
	}

	logger.Warn("entity counters drifted, correcting",
		logger.WithEntityID(entity.ID),
		zap.Int("corrections", len(corrections)),
	)
	return db.Model(&models.Entity{}).
		Where("id = ?", entity.ID).
		Updates(corrections).Error
}

// ReconcileAll recomputes every entity's aggregates; used by the admin CLI.
func (e *Engine) ReconcileAll(ctx context.Context) (int, error) {
	var ids []uint64
	if err := e.db.WithContext(ctx).Model(&models.Entity{}).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	for _, id := range ids {
		var entity models.Entity
		if err := e.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
			continue
		}
		if err := e.ReconcileEntity(ctx, &entity); err != nil {
			logger.WarnWithError("entity reconciliation failed", err)
		}
	}
	return len(ids), nil
}

// BreadcrumbNode is one ancestor in an entity's category chain.
type BreadcrumbNode struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Level int    `json:"level"`
}

// CategoryBreadcrumb returns the entity's ancestor chain plus the
// "A > B > C" display string for rendering.
func (e *Engine) CategoryBreadcrumb(ctx context.Context, entity *models.Entity) ([]BreadcrumbNode, string, error) {
	chain, err := e.categories.Breadcrumb(ctx, entity.FinalCategoryID)
	if err != nil {
		return nil, "", err
	}
	nodes := make([]BreadcrumbNode, len(chain))
	for i, cat := range chain {
		nodes[i] = BreadcrumbNode{ID: cat.ID, Name: cat.Name, Slug: cat.Slug, Level: cat.Level}
	}
	return nodes, category.BreadcrumbDisplay(chain), nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
