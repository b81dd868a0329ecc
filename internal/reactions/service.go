// Package reactions implements the one-reaction-per-user rule for reviews
// and comments, plus the view tracking that feeds the denormalized
// counters.
package reactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/reviewinn/backend/internal/aggregation"
	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/models"
	"github.com/reviewinn/backend/internal/notifications"
	"gorm.io/gorm"
)

// topSummaryCap bounds top_reactions in API summaries.
const topSummaryCap = 3

// Service manages reactions on reviews and comments.
type Service struct {
	db       *gorm.DB
	agg      *aggregation.Engine
	notifier *notifications.Service
}

// NewService creates a reaction service.
func NewService(db *gorm.DB, agg *aggregation.Engine, notifier *notifications.Service) *Service {
	return &Service{db: db, agg: agg, notifier: notifier}
}

// Summary is the per-target reaction rollup returned from every mutation
// and from the summary endpoints.
type Summary struct {
	Reactions      map[string]int64 `json:"reactions"`
	TopReactions   []string         `json:"top_reactions"`
	TotalReactions int64            `json:"total_reactions"`
	UserReaction   *string          `json:"user_reaction"`
}

// ReactToReview sets the caller's reaction on a review. A repeat of the
// same kind is a no-op; a different kind replaces the previous one. At
// most one row per (review, user) ever exists.
func (s *Service) ReactToReview(ctx context.Context, reviewID, userID uint64, kind models.ReactionKind) (*Summary, error) {
	if !models.ValidReactionKinds[kind] {
		return nil, apperrors.Validation("kind", fmt.Sprintf("invalid reaction kind %q", kind))
	}

	var review models.Review
	if err := s.db.WithContext(ctx).First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("review")
		}
		return nil, err
	}

	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ReviewReaction
		err := tx.First(&existing, "review_id = ? AND user_id = ?", reviewID, userID).Error
		switch {
		case err == nil:
			if existing.Kind == kind {
				return nil
			}
			if err := tx.Model(&existing).Update("kind", kind).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := models.ReviewReaction{ReviewID: reviewID, UserID: userID, Kind: kind}
			if err := tx.Create(&row).Error; err != nil {
				// Lost a race to another request from the same user; the
				// unique index caught it, so retry as an update.
				if updErr := tx.Model(&models.ReviewReaction{}).
					Where("review_id = ? AND user_id = ?", reviewID, userID).
					Update("kind", kind).Error; updErr != nil {
					return err
				}
			} else {
				created = true
			}
		default:
			return err
		}

		if err := s.agg.RefreshReviewReactions(tx, reviewID); err != nil {
			return err
		}
		if created {
			return s.agg.ApplyEntityReactionDelta(tx, review.EntityID, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.notifier.Emit(models.Notification{
			UserID:     review.UserID,
			ActorID:    &userID,
			Type:       models.NotifyReviewReaction,
			EntityType: "review",
			EntityID:   reviewID,
			Title:      "New reaction on your review",
			Message:    fmt.Sprintf("Someone reacted with %s to your review", kind),
			Data:       models.JSONMap{"kind": string(kind)},
		})
	}

	return s.ReviewSummary(ctx, reviewID, &userID)
}

// UnreactToReview removes the caller's reaction, if any. Removing a
// reaction that does not exist is not an error.
func (s *Service) UnreactToReview(ctx context.Context, reviewID, userID uint64) (*Summary, error) {
	var review models.Review
	if err := s.db.WithContext(ctx).First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("review")
		}
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("review_id = ? AND user_id = ?", reviewID, userID).
			Delete(&models.ReviewReaction{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := s.agg.RefreshReviewReactions(tx, reviewID); err != nil {
			return err
		}
		return s.agg.ApplyEntityReactionDelta(tx, review.EntityID, -1)
	})
	if err != nil {
		return nil, err
	}
	return s.ReviewSummary(ctx, reviewID, &userID)
}

// ReviewSummary builds the reaction rollup for a review. Two indexed
// queries: one GROUP BY for the counts, one point read for the caller's
// own reaction.
func (s *Service) ReviewSummary(ctx context.Context, reviewID uint64, userID *uint64) (*Summary, error) {
	return s.summarize(ctx, &models.ReviewReaction{}, "review_id", reviewID, userID)
}

// ReactToComment mirrors ReactToReview for comments. Comment reactions
// update the comment's own counter but not the entity rollup.
func (s *Service) ReactToComment(ctx context.Context, commentID, userID uint64, kind models.ReactionKind) (*Summary, error) {
	if !models.ValidReactionKinds[kind] {
		return nil, apperrors.Validation("kind", fmt.Sprintf("invalid reaction kind %q", kind))
	}

	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("comment")
		}
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CommentReaction
		err := tx.First(&existing, "comment_id = ? AND user_id = ?", commentID, userID).Error
		switch {
		case err == nil:
			if existing.Kind == kind {
				return nil
			}
			if err := tx.Model(&existing).Update("kind", kind).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := models.CommentReaction{CommentID: commentID, UserID: userID, Kind: kind}
			if err := tx.Create(&row).Error; err != nil {
				if updErr := tx.Model(&models.CommentReaction{}).
					Where("comment_id = ? AND user_id = ?", commentID, userID).
					Update("kind", kind).Error; updErr != nil {
					return err
				}
			}
		default:
			return err
		}
		return s.refreshCommentCount(tx, commentID)
	})
	if err != nil {
		return nil, err
	}
	return s.CommentSummary(ctx, commentID, &userID)
}

// UnreactToComment removes the caller's reaction from a comment.
func (s *Service) UnreactToComment(ctx context.Context, commentID, userID uint64) (*Summary, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("comment")
		}
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).
			Delete(&models.CommentReaction{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return s.refreshCommentCount(tx, commentID)
	})
	if err != nil {
		return nil, err
	}
	return s.CommentSummary(ctx, commentID, &userID)
}

// CommentSummary builds the reaction rollup for a comment.
func (s *Service) CommentSummary(ctx context.Context, commentID uint64, userID *uint64) (*Summary, error) {
	return s.summarize(ctx, &models.CommentReaction{}, "comment_id", commentID, userID)
}

func (s *Service) refreshCommentCount(tx *gorm.DB, commentID uint64) error {
	var count int64
	err := tx.Model(&models.CommentReaction{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.Comment{}).
		Where("id = ?", commentID).
		UpdateColumn("reaction_count", count).Error
}

func (s *Service) summarize(ctx context.Context, model any, column string, targetID uint64, userID *uint64) (*Summary, error) {
	type kindCount struct {
		Kind  string
		Count int64
	}
	var rows []kindCount
	err := s.db.WithContext(ctx).Model(model).
		Select("kind, COUNT(*) as count").
		Where(column+" = ?", targetID).
		Group("kind").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Reactions:    make(map[string]int64, len(rows)),
		TopReactions: []string{},
	}
	for i, row := range rows {
		summary.Reactions[row.Kind] = row.Count
		summary.TotalReactions += row.Count
		if i < topSummaryCap {
			summary.TopReactions = append(summary.TopReactions, row.Kind)
		}
	}

	if userID != nil {
		var kind string
		err := s.db.WithContext(ctx).Model(model).
			Select("kind").
			Where(column+" = ? AND user_id = ?", targetID, *userID).
			Scan(&kind).Error
		if err != nil {
			return nil, err
		}
		if kind != "" {
			summary.UserReaction = &kind
		}
	}
	return summary, nil
}
