package models

import (
	"time"
)

// UnifiedCategory is a node in the single category tree.
//
// Invariants enforced by the category engine:
//   - ParentID == nil exactly when Level == 1
//   - Level == parent.Level + 1
//   - Slug unique among siblings
//   - Path equals the slash-joined chain of ancestor slugs
type UnifiedCategory struct {
	ID        uint64  `gorm:"primaryKey" json:"id"`
	Name      string  `gorm:"not null" json:"name"`
	Slug      string  `gorm:"not null;index" json:"slug"`
	ParentID  *uint64 `gorm:"index" json:"parent_id"`
	Level     int     `gorm:"not null;default:1" json:"level"`
	Path      string  `gorm:"not null;uniqueIndex" json:"path"`
	SortOrder int     `gorm:"default:0" json:"sort_order"`
	IsActive  bool    `gorm:"default:true" json:"is_active"`

	Parent   *UnifiedCategory  `gorm:"foreignKey:ParentID" json:"-"`
	Children []UnifiedCategory `gorm:"foreignKey:ParentID" json:"children,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot reports whether this is a level-1 category
func (c *UnifiedCategory) IsRoot() bool {
	return c.ParentID == nil
}

// RatingQuestion is one entry in a category's question set. Key is the
// stable criterion identifier review payloads use in their ratings map.
type RatingQuestion struct {
	Key         string `json:"key"`
	Question    string `json:"question"`
	Description string `json:"description"`
}

// CategoryQuestion binds an ordered question set to a category path.
// At most one active row exists per normalized path.
type CategoryQuestion struct {
	ID             uint64           `gorm:"primaryKey" json:"id"`
	CategoryPath   string           `gorm:"not null;uniqueIndex" json:"category_path"`
	CategoryName   string           `gorm:"not null" json:"category_name"`
	CategoryLevel  int              `gorm:"default:1" json:"category_level"`
	IsRootCategory bool             `gorm:"default:false" json:"is_root_category"`
	Questions      []RatingQuestion `gorm:"type:jsonb;serializer:json" json:"questions"`
	IsActive       bool             `gorm:"default:true" json:"is_active"`

	UsageCount int64      `gorm:"default:0" json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
