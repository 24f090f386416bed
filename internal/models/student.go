package models

import (
	"time"

	"gorm.io/gorm"
)

// Student is a portal user who owns exactly one points account.
type Student struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Hashed password.
	Name     string `gorm:"type:text"`                      // Display name.

	SchoolCode string `gorm:"type:varchar(64);index"` // School identifier from the education-records directory.
	Grade      int    `gorm:"not null;default:0"`     // School year.

	Disabled bool `gorm:"not null;default:false"` // Blocks sign-in when true.

	CreatedAt time.Time      `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime"` // Last update timestamp.
	DeletedAt gorm.DeletedAt `gorm:"index"`                   // Soft deletion; the account and ledger survive it.
}
