// Package notifications delivers in-app notifications. Emission is
// fire-and-forget from the caller's perspective: a failed insert is logged
// and never fails the action that triggered it.
package notifications

import (
	"context"
	"time"

	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// notificationTTL keeps the inbox bounded; expired rows are swept with views.
const notificationTTL = 90 * 24 * time.Hour

// Service writes and reads user notifications.
type Service struct {
	db *gorm.DB
}

// NewService creates a notification service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Emit persists a notification asynchronously. Self-notifications are
// dropped so users never hear about their own actions.
func (s *Service) Emit(n models.Notification) {
	if n.ActorID != nil && *n.ActorID == n.UserID {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if n.Priority == "" {
			n.Priority = "normal"
		}
		if n.ExpiresAt == nil {
			expires := time.Now().UTC().Add(notificationTTL)
			n.ExpiresAt = &expires
		}
		n.DeliveryStatus = "delivered"

		if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
			logger.Warn("failed to deliver notification",
				logger.WithUserID(n.UserID),
				zap.String("type", string(n.Type)),
				zap.Error(err),
			)
		}
	}()
}

// List pages a user's notifications, newest first. unreadOnly narrows to
// is_read = false.
func (s *Service) List(ctx context.Context, userID uint64, unreadOnly bool, page, perPage int) ([]models.Notification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Notification
	err := query.
		Preload("Actor").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	return rows, total, err
}

// Counts reports the unread and unseen totals for badge rendering.
func (s *Service) Counts(ctx context.Context, userID uint64) (unread, unseen int64, err error) {
	err = s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error
	if err != nil {
		return 0, 0, err
	}
	err = s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_seen = ?", userID, false).
		Count(&unseen).Error
	return unread, unseen, err
}

// MarkRead marks specific notifications read, or all of them when ids is
// empty. Returns the number of rows updated.
func (s *Service) MarkRead(ctx context.Context, userID uint64, ids []uint64) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	result := query.Updates(map[string]any{"is_read": true, "is_seen": true})
	return result.RowsAffected, result.Error
}

// MarkSeen marks every notification seen; badges clear, unread stays.
func (s *Service) MarkSeen(ctx context.Context, userID uint64) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_seen = ?", userID, false).
		Update("is_seen", true)
	return result.RowsAffected, result.Error
}

// SweepExpired deletes notifications past their expiry.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now().UTC()).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
