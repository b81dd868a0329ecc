package models

import (
	"time"

	"gorm.io/gorm"
)

// Entity is a reviewable subject: a professional, company, place or product.
// root_category_id is always the level-1 ancestor of final_category_id.
// The average/count columns are denormalized and self-heal on read.
type Entity struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null;index" json:"name"`
	Description string `gorm:"type:text;not null" json:"description"`
	Avatar      string `json:"avatar"`

	RootCategoryID  uint64           `gorm:"not null;index" json:"root_category_id"`
	FinalCategoryID uint64           `gorm:"not null;index" json:"final_category_id"`
	RootCategory    *UnifiedCategory `gorm:"foreignKey:RootCategoryID" json:"root_category,omitempty"`
	FinalCategory   *UnifiedCategory `gorm:"foreignKey:FinalCategoryID" json:"final_category,omitempty"`

	Context JSONMap `gorm:"type:jsonb;serializer:json" json:"context,omitempty"`

	// Derived, service-maintained
	AverageRating float64 `gorm:"default:0" json:"average_rating"`
	ReviewCount   int64   `gorm:"default:0" json:"review_count"`
	ReactionCount int64   `gorm:"default:0" json:"reaction_count"`
	CommentCount  int64   `gorm:"default:0" json:"comment_count"`
	ViewCount     int64   `gorm:"default:0" json:"view_count"`

	IsVerified bool    `gorm:"default:false" json:"is_verified"`
	IsClaimed  bool    `gorm:"default:false" json:"is_claimed"`
	ClaimedBy  *uint64 `json:"claimed_by,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// EntityView records one distinct visit to an entity page. Rows expire at
// ExpiresAt and are swept in the background; user-scoped rows back the
// "recently viewed" feed.
type EntityView struct {
	ID       uint64  `gorm:"primaryKey" json:"id"`
	EntityID uint64  `gorm:"not null;index:idx_entity_views_target_ip" json:"entity_id"`
	UserID   *uint64 `gorm:"index" json:"user_id,omitempty"`

	IP        string `gorm:"index:idx_entity_views_target_ip" json:"-"`
	UserAgent string `gorm:"type:text" json:"-"`
	SessionID string `json:"-"`

	IsValid         bool `gorm:"default:true" json:"is_valid"`
	IsUniqueUser    bool `gorm:"default:false" json:"is_unique_user"`
	IsUniqueSession bool `gorm:"default:false" json:"is_unique_session"`

	ViewedAt  time.Time `gorm:"index:idx_entity_views_target_ip" json:"viewed_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
