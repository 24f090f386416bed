package models

import "time"

// Product is a catalog item that can be exchanged for points.
type Product struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null"` // Display name.
	Description string `gorm:"type:text"`          // Optional description.
	ImageURL    string `gorm:"type:text"`          // Optional image location.

	PointsCost    int64 `gorm:"not null"`           // Price in points, always positive.
	Stock         int64 `gorm:"not null;default:0"` // Units left; 0 <= Stock <= TotalQuantity.
	TotalQuantity int64 `gorm:"not null;default:0"` // Units ever stocked.

	ExpirationDate *time.Time // Catalog expiry shown to students.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
