package models

import (
	"time"

	"gorm.io/datatypes"
)

// Admin represents a school staff account allowed to adjust points and manage the catalog.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username    string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password    string `gorm:"type:text;not null"`             // Bcrypt hash.
	DisplayName string `gorm:"type:text"`                      // Shown in the admin console.
	SchoolCode  string `gorm:"type:varchar(64);index"`         // School the staff member works at; empty for district staff.

	Active       bool           `gorm:"not null;default:true"`             // Whether the admin can sign in.
	IsSuperAdmin bool           `gorm:"not null;default:false"`            // Bypasses permission checks.
	Permissions  datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Granted route keys, see http/api/admin/permissions.

	LastLoginAt *time.Time // Set on every successful password login.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}
