package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. Email is stored lower-cased
// so the unique index enforces case-insensitive uniqueness.
type User struct {
	ID                  uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email               string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash        string     `gorm:"column:password_hash;not null"`
	DisplayName         string     `gorm:"column:display_name;not null"`
	RoleID              uuid.UUID  `gorm:"type:uuid;column:role_id;not null;index"`
	Role                *Role      `gorm:"foreignKey:RoleID"`
	IsActive            bool       `gorm:"column:is_active;not null;default:true"`
	EmailVerified       bool       `gorm:"column:email_verified;not null;default:false"`
	FailedLoginAttempts int        `gorm:"column:failed_login_attempts;not null;default:0"`
	LockedUntil         *time.Time `gorm:"column:locked_until"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
