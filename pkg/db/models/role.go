package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named bundle of permissions. Every user holds exactly one role.
type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"type:text;not null;uniqueIndex"`
	Description string    `gorm:"type:text"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Permission is an atomic (resource, action) capability. The catalog is
// seeded at bootstrap and treated as immutable afterwards.
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"type:text;not null;uniqueIndex"`
	Resource    string    `gorm:"type:text;not null;index:idx_permissions_resource_action"`
	Action      string    `gorm:"type:text;not null;index:idx_permissions_resource_action"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// RolePermission joins roles to granted permissions. A (role, permission)
// pair appears at most once.
type RolePermission struct {
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the join table name explicit.
func (RolePermission) TableName() string {
	return "role_permissions"
}
