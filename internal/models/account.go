package models

import "time"

// Account holds a student's current point balance.
//
// Balance is a denormalized cache of the sum of the student's ledger entries and is
// only written together with a ledger append.
type Account struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	StudentID uint64 `gorm:"not null;uniqueIndex"` // Owning student.

	Balance int64 `gorm:"not null;default:0"` // Current balance, never negative once committed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last balance change.
}
