package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionType classifies the business reason for a ledger entry.
type TransactionType string

// TransactionType constants.
const (
	TransactionEarn         TransactionType = "EARN"
	TransactionSpend        TransactionType = "SPEND"
	TransactionExchange     TransactionType = "EXCHANGE"
	TransactionAdminGive    TransactionType = "ADMIN_GIVE"
	TransactionAdminTake    TransactionType = "ADMIN_TAKE"
	TransactionAttendReward TransactionType = "ATTEND_REWARD"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionEarn, TransactionSpend, TransactionExchange,
		TransactionAdminGive, TransactionAdminTake, TransactionAttendReward:
		return true
	default:
		return false
	}
}

// Reference types recorded on ledger entries.
const (
	ReferenceAttend      = "ATTEND"
	ReferenceMealPhoto   = "MEAL_PHOTO"
	ReferenceProduct     = "PRODUCT"
	ReferenceAdminAdjust = "ADMIN_ADJUST"
)

// LedgerEntry is an immutable record of one balance change.
type LedgerEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Monotonic entry ID.

	StudentID uint64 `gorm:"not null;index:idx_ledger_entries_student_created,priority:1"` // Owning account's student.

	TransactionType TransactionType `gorm:"type:varchar(32);not null;index"` // Business reason.
	Amount          int64           `gorm:"not null"`                        // Signed delta; positive credits.
	BalanceAfter    int64           `gorm:"not null"`                        // Account balance right after this entry.

	ReferenceType string  `gorm:"type:varchar(32);index"` // Informational pointer kind.
	ReferenceID   *string `gorm:"type:varchar(64)"`       // Informational pointer value.

	// DedupeKey makes once-only rewards unique at the storage layer, e.g. one ATTEND per day.
	DedupeKey *string `gorm:"type:varchar(128);uniqueIndex"`

	Memo datatypes.JSON `gorm:"type:jsonb"` // Free-form context such as the adjusting admin.

	CreatedAt time.Time  `gorm:"not null;index:idx_ledger_entries_student_created,priority:2"` // Creation timestamp.
	ExpiresAt *time.Time // Carried through; nothing sweeps it.
}
