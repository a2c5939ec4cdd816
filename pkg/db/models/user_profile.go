package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile extends a user with optional personal and professional fields.
// Address, Preferences and SocialLinks are JSON-encoded text columns parsed
// on read; see internal/profiles for the typed views.
type UserProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex"`
	Bio       *string   `gorm:"type:text"`
	Phone     *string   `gorm:"type:text"`
	Location  *string   `gorm:"type:text"`
	Company   *string   `gorm:"type:text"`
	JobTitle  *string   `gorm:"column:job_title;type:text"`
	Website   *string   `gorm:"type:text"`
	AvatarURL *string   `gorm:"column:avatar_url;type:text"`
	BirthYear *int      `gorm:"column:birth_year"`

	IsPublic  bool `gorm:"column:is_public;not null;default:true"`
	ShowEmail bool `gorm:"column:show_email;not null;default:false"`
	ShowPhone bool `gorm:"column:show_phone;not null;default:false"`

	Address     *string `gorm:"type:text"`
	Preferences *string `gorm:"type:text"`
	SocialLinks *string `gorm:"column:social_links;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
