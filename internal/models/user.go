package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a ReviewInn account. Counter fields are maintained by
// services, never written by clients. Soft-delete marks the account
// inactive instead of removing the row.
type User struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`
	Avatar      string `json:"avatar"`

	PasswordHash *string `gorm:"type:text" json:"-"`

	IsVerified bool   `gorm:"default:false" json:"is_verified"`
	IsActive   bool   `gorm:"default:true" json:"is_active"`
	Role       string `gorm:"default:user" json:"role"` // user, moderator, admin

	// Derived counters, service-maintained
	ReviewCount    int `gorm:"default:0" json:"review_count"`
	FollowerCount  int `gorm:"default:0" json:"follower_count"`
	FollowingCount int `gorm:"default:0" json:"following_count"`
	Level          int `gorm:"default:1" json:"level"`
	Points         int `gorm:"default:0" json:"points"`

	LastActiveAt *time.Time `json:"last_active_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FullName returns the display name, falling back to first+last
func (u *User) FullName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.FirstName != "" || u.LastName != "" {
		name := u.FirstName
		if u.LastName != "" {
			if name != "" {
				name += " "
			}
			name += u.LastName
		}
		return name
	}
	return u.Username
}
