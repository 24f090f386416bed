package points

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	dbutil "github.com/school-portal/portal-backend/internal/db"
	"github.com/school-portal/portal-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transaction describes one requested balance change.
type Transaction struct {
	StudentID     uint64
	Amount        int64
	Type          models.TransactionType
	ReferenceType string
	ReferenceID   string // Empty means no reference.

	// DedupeKey, when set, makes the entry unique across the whole ledger.
	DedupeKey string

	Memo      map[string]any
	ExpiresAt *time.Time
}

// RecordTransaction appends a ledger entry for req and moves the account balance with it.
//
// It fails with ErrInvalidAmount for a zero amount, ErrAccountNotFound for an unknown student
// and ErrInsufficientBalance when the balance would go negative. Failures leave no trace.
func (s *Service) RecordTransaction(ctx context.Context, req Transaction) (*models.LedgerEntry, error) {
	if errValidate := validateTransaction(req); errValidate != nil {
		return nil, errValidate
	}

	unlock, errLock := s.lock(ctx, accountKey(req.StudentID))
	if errLock != nil {
		return nil, errLock
	}
	defer unlock()

	var entry *models.LedgerEntry
	errTx := s.inTx(ctx, func(tx *gorm.DB) error {
		account, errAccount := lockAccount(tx, req.StudentID)
		if errAccount != nil {
			return errAccount
		}
		created, errApply := s.apply(tx, account, req)
		if errApply != nil {
			return errApply
		}
		entry = created
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	s.metrics.ObserveTransaction(string(entry.TransactionType), entry.Amount)
	return entry, nil
}

func validateTransaction(req Transaction) error {
	if req.StudentID == 0 {
		return fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, req.Type)
	}
	if req.Amount == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// lockAccount loads the student's account row with a row lock held until the transaction ends.
func lockAccount(tx *gorm.DB, studentID uint64) (*models.Account, error) {
	return loadAccount(tx, studentID, clause.LockingStrengthUpdate)
}

// loadAccount reads the account row under a row lock of the given strength.
// SQLite ignores the locking clause; callers hold the in-process account lock there.
func loadAccount(tx *gorm.DB, studentID uint64, strength string) (*models.Account, error) {
	var account models.Account
	if errFind := tx.Clauses(clause.Locking{Strength: strength}).
		Where("student_id = ?", studentID).
		First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("points: load account: %w", errFind)
	}
	return &account, nil
}

// apply performs the balance check, the guarded balance write and the ledger append inside tx.
// The caller must hold the account lock. account.Balance is updated on success.
func (s *Service) apply(tx *gorm.DB, account *models.Account, req Transaction) (*models.LedgerEntry, error) {
	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	if req.Amount > 0 && account.Balance > math.MaxInt64-req.Amount {
		return nil, fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	newBalance := account.Balance + req.Amount
	if newBalance < 0 {
		return nil, ErrInsufficientBalance
	}

	var dedupeKey *string
	if key := strings.TrimSpace(req.DedupeKey); key != "" {
		var existing int64
		if errCount := tx.Model(&models.LedgerEntry{}).
			Where("dedupe_key = ?", key).
			Count(&existing).Error; errCount != nil {
			return nil, fmt.Errorf("points: check dedupe key: %w", errCount)
		}
		if existing > 0 {
			return nil, ErrDuplicateReward
		}
		dedupeKey = &key
	}

	memo, errMemo := encodeMemo(req.Memo)
	if errMemo != nil {
		return nil, fmt.Errorf("%w: memo: %v", ErrInvalidInput, errMemo)
	}

	now := s.clock()
	res := tx.Model(&models.Account{}).
		Where("id = ? AND balance = ?", account.ID, account.Balance).
		Updates(map[string]any{
			"balance":    newBalance,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("points: update balance: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return nil, errStaleBalance
	}

	entry := &models.LedgerEntry{
		StudentID:       account.StudentID,
		TransactionType: req.Type,
		Amount:          req.Amount,
		BalanceAfter:    newBalance,
		ReferenceType:   strings.TrimSpace(req.ReferenceType),
		DedupeKey:       dedupeKey,
		Memo:            memo,
		CreatedAt:       now,
		ExpiresAt:       req.ExpiresAt,
	}
	if refID := strings.TrimSpace(req.ReferenceID); refID != "" {
		entry.ReferenceID = &refID
	}
	if errCreate := tx.Create(entry).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return nil, ErrDuplicateReward
		}
		return nil, fmt.Errorf("points: append ledger entry: %w", errCreate)
	}

	account.Balance = newBalance
	return entry, nil
}

func encodeMemo(memo map[string]any) (datatypes.JSON, error) {
	if len(memo) == 0 {
		return nil, nil
	}
	raw, errMarshal := json.Marshal(memo)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(raw), nil
}
