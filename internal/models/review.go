package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is one author's rating of one entity. Ratings maps criterion keys
// from the category's question set to values in [1,5]. The count columns
// and TopReactions are denormalized for feed rendering.
type Review struct {
	ID       uint64 `gorm:"primaryKey" json:"id"`
	UserID   uint64 `gorm:"not null;index;uniqueIndex:idx_reviews_author_entity" json:"user_id"`
	EntityID uint64 `gorm:"not null;index;uniqueIndex:idx_reviews_author_entity" json:"entity_id"`

	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Entity *Entity `gorm:"foreignKey:EntityID" json:"entity,omitempty"`

	Title   string `gorm:"size:200;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`

	OverallRating float64   `gorm:"not null" json:"overall_rating"`
	Ratings       RatingMap `gorm:"type:jsonb;serializer:json" json:"ratings"`
	Criteria      JSONMap   `gorm:"type:jsonb;serializer:json" json:"criteria,omitempty"`

	Pros   StringList `gorm:"type:jsonb;serializer:json" json:"pros,omitempty"`
	Cons   StringList `gorm:"type:jsonb;serializer:json" json:"cons,omitempty"`
	Images StringList `gorm:"type:jsonb;serializer:json" json:"images,omitempty"`

	IsAnonymous bool `gorm:"default:false" json:"is_anonymous"`
	IsVerified  bool `gorm:"default:false" json:"is_verified"`

	// Derived, service-maintained
	ViewCount     int64          `gorm:"default:0" json:"view_count"`
	ReactionCount int64          `gorm:"default:0" json:"reaction_count"`
	CommentCount  int64          `gorm:"default:0" json:"comment_count"`
	TopReactions  map[string]int `gorm:"column:top_reactions_json;type:jsonb;serializer:json" json:"top_reactions,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ReactionKind is the closed set of reactions
type ReactionKind string

const (
	ReactionThumbsUp    ReactionKind = "thumbs_up"
	ReactionThumbsDown  ReactionKind = "thumbs_down"
	ReactionBomb        ReactionKind = "bomb"
	ReactionLove        ReactionKind = "love"
	ReactionHaha        ReactionKind = "haha"
	ReactionCelebration ReactionKind = "celebration"
	ReactionSad         ReactionKind = "sad"
	ReactionEyes        ReactionKind = "eyes"
)

// ValidReactionKinds is the allow-list used at the validation edge
var ValidReactionKinds = map[ReactionKind]bool{
	ReactionThumbsUp:    true,
	ReactionThumbsDown:  true,
	ReactionBomb:        true,
	ReactionLove:        true,
	ReactionHaha:        true,
	ReactionCelebration: true,
	ReactionSad:         true,
	ReactionEyes:        true,
}

// ReviewReaction holds at most one row per (review, user); the composite
// unique index is what turns concurrent double-inserts into conflicts the
// service resolves as updates.
type ReviewReaction struct {
	ID       uint64       `gorm:"primaryKey" json:"id"`
	ReviewID uint64       `gorm:"not null;uniqueIndex:idx_review_reactions_review_user" json:"review_id"`
	UserID   uint64       `gorm:"not null;uniqueIndex:idx_review_reactions_review_user;index" json:"user_id"`
	Kind     ReactionKind `gorm:"not null" json:"kind"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is a user's comment on a review, optionally threaded one level.
type Comment struct {
	ID       uint64  `gorm:"primaryKey" json:"id"`
	ReviewID uint64  `gorm:"not null;index:idx_comments_review_created" json:"review_id"`
	UserID   uint64  `gorm:"not null;index" json:"user_id"`
	ParentID *uint64 `gorm:"index" json:"parent_id,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Content      string `gorm:"type:text;not null" json:"content"`
	IsAnonymous  bool   `gorm:"default:false" json:"is_anonymous"`
	HelpfulVotes int    `gorm:"default:0" json:"helpful_votes"`

	ReactionCount int64 `gorm:"default:0" json:"reaction_count"`

	CreatedAt time.Time      `gorm:"index:idx_comments_review_created" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CommentReaction mirrors ReviewReaction for comments.
type CommentReaction struct {
	ID        uint64       `gorm:"primaryKey" json:"id"`
	CommentID uint64       `gorm:"not null;uniqueIndex:idx_comment_reactions_comment_user" json:"comment_id"`
	UserID    uint64       `gorm:"not null;uniqueIndex:idx_comment_reactions_comment_user;index" json:"user_id"`
	Kind      ReactionKind `gorm:"not null" json:"kind"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewView records one distinct visit to a review, deduplicated per
// (review, ip) inside a 30-minute window.
type ReviewView struct {
	ID       uint64  `gorm:"primaryKey" json:"id"`
	ReviewID uint64  `gorm:"not null;index:idx_review_views_target_ip" json:"review_id"`
	UserID   *uint64 `gorm:"index" json:"user_id,omitempty"`

	IP        string `gorm:"index:idx_review_views_target_ip" json:"-"`
	UserAgent string `gorm:"type:text" json:"-"`
	SessionID string `json:"-"`

	IsValid         bool `gorm:"default:true" json:"is_valid"`
	IsUniqueUser    bool `gorm:"default:false" json:"is_unique_user"`
	IsUniqueSession bool `gorm:"default:false" json:"is_unique_session"`

	ViewedAt  time.Time `gorm:"index:idx_review_views_target_ip" json:"viewed_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
