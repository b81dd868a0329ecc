package models

import (
	"time"
)

// NotificationType names the event being delivered
type NotificationType string

const (
	NotifyReviewReaction NotificationType = "review_reaction"
	NotifyReviewComment  NotificationType = "review_comment"
	NotifyCircleRequest  NotificationType = "circle_request"
	NotifyCircleAccepted NotificationType = "circle_accepted"
	NotifyCircleInvite   NotificationType = "circle_invite"
	NotifyReviewVote     NotificationType = "review_vote"
)

// Notification is a typed event addressed to a user. Emission is
// fire-and-forget: failures are logged and never surface to the caller.
type Notification struct {
	ID      uint64           `gorm:"primaryKey" json:"id"`
	UserID  uint64           `gorm:"not null;index:idx_notifications_user_created" json:"user_id"`
	ActorID *uint64          `gorm:"index" json:"actor_id,omitempty"`
	Type    NotificationType `gorm:"not null" json:"type"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`

	EntityType string `json:"entity_type"` // review, comment, circle_request, ...
	EntityID   uint64 `json:"entity_id"`

	Title   string `gorm:"not null" json:"title"`
	Message string `gorm:"type:text" json:"message"`

	Priority       string  `gorm:"default:normal" json:"priority"` // low, normal, high
	DeliveryStatus string  `gorm:"default:pending" json:"delivery_status"`
	Data           JSONMap `gorm:"column:notification_data;type:jsonb;serializer:json" json:"notification_data,omitempty"`

	IsRead    bool       `gorm:"default:false" json:"is_read"`
	IsSeen    bool       `gorm:"default:false" json:"is_seen"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_notifications_user_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
