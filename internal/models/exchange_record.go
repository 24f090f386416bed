package models

import "time"

// ExchangeStatus tracks whether a redeemed product has been used.
type ExchangeStatus string

// ExchangeStatus constants.
const (
	ExchangeUnused ExchangeStatus = "UNUSED"
	ExchangeUsed   ExchangeStatus = "USED"
)

// ExchangeRecord is created once per successful redemption.
type ExchangeRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	StudentID uint64   `gorm:"not null;index"`        // Redeeming student.
	ProductID uint64   `gorm:"not null;index"`        // Redeemed product.
	Product   *Product `gorm:"foreignKey:ProductID"` // Product row, preloaded for listings.

	Code string `gorm:"type:varchar(64);not null;uniqueIndex"` // Coupon code shown to the student.

	PointsSpent   int64  `gorm:"not null"` // Points debited at exchange time.
	LedgerEntryID uint64 `gorm:"not null"` // Debit entry created in the same unit of work.

	Status ExchangeStatus `gorm:"type:varchar(16);not null;index"` // UNUSED or USED.

	ExchangeDate   time.Time  `gorm:"not null"` // Set at creation, immutable.
	ExpirationDate time.Time  `gorm:"not null"` // ExchangeDate plus the validity window.
	UsageDate      *time.Time // Set once by the use operation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Expired reports whether the record's validity window has passed at now.
func (r *ExchangeRecord) Expired(now time.Time) bool {
	return !r.ExpirationDate.IsZero() && now.After(r.ExpirationDate)
}
