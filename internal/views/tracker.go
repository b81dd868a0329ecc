// Package views records distinct visits to entities and reviews. A visit
// counts once per (target, ip) within the dedupe window; rows carry an
// expiry so the view tables stay bounded.
package views

import (
	"context"
	"errors"
	"time"

	"github.com/reviewinn/backend/internal/apperrors"
	"github.com/reviewinn/backend/internal/models"
	"gorm.io/gorm"
)

const (
	// dedupeWindow is how long repeat visits from the same IP are ignored.
	dedupeWindow = 30 * time.Minute
	// viewTTL is how long a view row stays countable before the sweeper
	// removes it.
	viewTTL = 30 * 24 * time.Hour
)

// Visit describes one incoming page view.
type Visit struct {
	UserID    *uint64
	IP        string
	UserAgent string
	SessionID string
}

// Tracker records and sweeps view rows.
type Tracker struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTracker creates a view tracker.
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock overrides the time source for tests.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// RecordEntityView counts a visit to an entity page. Returns whether the
// visit was counted (false inside the dedupe window).
func (t *Tracker) RecordEntityView(ctx context.Context, entityID uint64, visit Visit) (bool, error) {
	var entity models.Entity
	if err := t.db.WithContext(ctx).First(&entity, "id = ?", entityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.NotFound("entity")
		}
		return false, err
	}

	now := t.now()
	counted := false
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recent int64
		err := tx.Model(&models.EntityView{}).
			Where("entity_id = ? AND ip = ? AND viewed_at > ?", entityID, visit.IP, now.Add(-dedupeWindow)).
			Count(&recent).Error
		if err != nil {
			return err
		}
		if recent > 0 {
			return nil
		}

		row := models.EntityView{
			EntityID:     entityID,
			UserID:       visit.UserID,
			IP:           visit.IP,
			UserAgent:    visit.UserAgent,
			SessionID:    visit.SessionID,
			IsValid:      true,
			IsUniqueUser: visit.UserID != nil,
			ViewedAt:     now,
			ExpiresAt:    now.Add(viewTTL),
		}
		if visit.SessionID != "" {
			var sessions int64
			if err := tx.Model(&models.EntityView{}).
				Where("entity_id = ? AND session_id = ?", entityID, visit.SessionID).
				Count(&sessions).Error; err != nil {
				return err
			}
			row.IsUniqueSession = sessions == 0
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		counted = true
		return tx.Model(&models.Entity{}).
			Where("id = ?", entityID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	})
	return counted, err
}

// RecordReviewView counts a visit to a review. A counted review view also
// counts as a visit to the review's entity, under the entity's own dedupe.
func (t *Tracker) RecordReviewView(ctx context.Context, reviewID uint64, visit Visit) (bool, error) {
	var review models.Review
	if err := t.db.WithContext(ctx).First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.NotFound("review")
		}
		return false, err
	}

	now := t.now()
	counted := false
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recent int64
		err := tx.Model(&models.ReviewView{}).
			Where("review_id = ? AND ip = ? AND viewed_at > ?", reviewID, visit.IP, now.Add(-dedupeWindow)).
			Count(&recent).Error
		if err != nil {
			return err
		}
		if recent > 0 {
			return nil
		}

		row := models.ReviewView{
			ReviewID:     reviewID,
			UserID:       visit.UserID,
			IP:           visit.IP,
			UserAgent:    visit.UserAgent,
			SessionID:    visit.SessionID,
			IsValid:      true,
			IsUniqueUser: visit.UserID != nil,
			ViewedAt:     now,
			ExpiresAt:    now.Add(viewTTL),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		counted = true
		return tx.Model(&models.Review{}).
			Where("id = ?", reviewID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	})
	if err != nil {
		return false, err
	}

	if counted {
		if _, err := t.RecordEntityView(ctx, review.EntityID, visit); err != nil {
			return counted, err
		}
	}
	return counted, nil
}

// RecentlyViewedEntities lists the entities a user visited, newest visit
// first, one row per entity.
func (t *Tracker) RecentlyViewedEntities(ctx context.Context, userID uint64, limit int) ([]models.Entity, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var ids []uint64
	err := t.db.WithContext(ctx).Model(&models.EntityView{}).
		Select("entity_id").
		Where("user_id = ? AND is_valid = ?", userID, true).
		Group("entity_id").
		Order("MAX(viewed_at) DESC").
		Limit(limit).
		Pluck("entity_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Entity{}, nil
	}

	var entities []models.Entity
	err = t.db.WithContext(ctx).
		Preload("FinalCategory").
		Where("id IN ?", ids).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}

	// Restore visit order; IN () does not preserve it.
	byID := make(map[uint64]models.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}
	ordered := make([]models.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}

// SweepExpired removes view rows past their expiry from both tables.
func (t *Tracker) SweepExpired(ctx context.Context) (int64, error) {
	now := t.now()
	var total int64

	result := t.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.EntityView{})
	if result.Error != nil {
		return total, result.Error
	}
	total += result.RowsAffected

	result = t.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.ReviewView{})
	if result.Error != nil {
		return total, result.Error
	}
	total += result.RowsAffected
	return total, nil
}
