package models

import (
	"time"

	"gorm.io/gorm"
)

// TrustLevel is a member's standing within a circle. REVIEW_MENTOR is the
// highest and holds administrative rights.
type TrustLevel string

const (
	TrustReviewer        TrustLevel = "REVIEWER"
	TrustTrustedReviewer TrustLevel = "TRUSTED_REVIEWER"
	TrustReviewAlly      TrustLevel = "REVIEW_ALLY"
	TrustReviewMentor    TrustLevel = "REVIEW_MENTOR"
)

// ValidTrustLevels is the allow-list used at the validation edge
var ValidTrustLevels = map[TrustLevel]bool{
	TrustReviewer:        true,
	TrustTrustedReviewer: true,
	TrustReviewAlly:      true,
	TrustReviewMentor:    true,
}

// RequestStatus tracks the circle-request lifecycle
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
	RequestBlocked  RequestStatus = "blocked"
)

// ReviewCircle is a user's trust circle. Every user gets a default personal
// circle on first accepted connection.
type ReviewCircle struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	CreatorID   uint64 `gorm:"not null;index" json:"creator_id"`
	IsPublic    bool   `gorm:"default:false" json:"is_public"`
	MaxMembers  int    `gorm:"default:50" json:"max_members"`

	Creator *User `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CircleConnection is a (user, circle) membership pair.
type CircleConnection struct {
	ID       uint64 `gorm:"primaryKey" json:"id"`
	UserID   uint64 `gorm:"not null;uniqueIndex:idx_circle_connections_user_circle" json:"user_id"`
	CircleID uint64 `gorm:"not null;uniqueIndex:idx_circle_connections_user_circle;index" json:"circle_id"`

	User   *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Circle *ReviewCircle `gorm:"foreignKey:CircleID" json:"circle,omitempty"`

	TrustLevel      TrustLevel `gorm:"not null;default:REVIEWER" json:"trust_level"`
	TasteMatchScore float64    `gorm:"default:0" json:"taste_match_score"`

	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CircleRequest is a directed connection request between two users.
// The composite unique index keeps one pending row per direction.
type CircleRequest struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	RequesterID uint64 `gorm:"not null;uniqueIndex:idx_circle_requests_pair_status;index" json:"requester_id"`
	ReceiverID  uint64 `gorm:"not null;uniqueIndex:idx_circle_requests_pair_status;index" json:"receiver_id"`

	Requester *User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Receiver  *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`

	Message string        `gorm:"type:text" json:"message"`
	Status  RequestStatus `gorm:"not null;default:pending;uniqueIndex:idx_circle_requests_pair_status" json:"status"`

	RespondedAt *time.Time `json:"responded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CircleInvite invites a user into a specific circle (distinct from the
// friend-like CircleRequest between two users).
type CircleInvite struct {
	ID        uint64 `gorm:"primaryKey" json:"id"`
	CircleID  uint64 `gorm:"not null;index" json:"circle_id"`
	InviterID uint64 `gorm:"not null;index" json:"inviter_id"`
	InviteeID uint64 `gorm:"not null;index" json:"invitee_id"`

	Circle  *ReviewCircle `gorm:"foreignKey:CircleID" json:"circle,omitempty"`
	Invitee *User         `gorm:"foreignKey:InviteeID" json:"invitee,omitempty"`

	Status RequestStatus `gorm:"not null;default:pending" json:"status"`

	RespondedAt *time.Time `json:"responded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CircleBlock prevents any connection traffic between two users.
type CircleBlock struct {
	ID        uint64 `gorm:"primaryKey" json:"id"`
	BlockerID uint64 `gorm:"not null;uniqueIndex:idx_circle_blocks_pair" json:"blocker_id"`
	BlockedID uint64 `gorm:"not null;uniqueIndex:idx_circle_blocks_pair;index" json:"blocked_id"`

	CreatedAt time.Time `json:"created_at"`
}
