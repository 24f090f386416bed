package points

import (
	"context"
	"errors"
)

// Business errors returned by the ledger and redemption engine. None of them leave partial writes.
var (
	// ErrInvalidInput indicates a malformed identifier or transaction type.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidAmount indicates a zero, overflowing, or otherwise unusable amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAccountNotFound indicates the student has no points account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrProductNotFound indicates the product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrExchangeNotFound indicates the exchange record does not exist or belongs to someone else.
	ErrExchangeNotFound = errors.New("exchange record not found")
	// ErrInsufficientBalance indicates the change would take the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrOutOfStock indicates the product has no units left.
	ErrOutOfStock = errors.New("out of stock")
	// ErrAlreadyUsed indicates the exchange record was already used.
	ErrAlreadyUsed = errors.New("exchange already used")
	// ErrDuplicateReward indicates a once-only reward was already granted.
	ErrDuplicateReward = errors.New("reward already granted")
	// ErrProductInUse indicates a product cannot be deleted because exchanges reference it.
	ErrProductInUse = errors.New("product has exchange records")
	// ErrUsernameTaken indicates a registration with an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrConcurrentUpdate reports that a guarded write lost a race even after retries.
	// It is an infrastructure condition, not a business one.
	ErrConcurrentUpdate = errors.New("points: concurrent update conflict")
)

// Kind groups errors by how callers should react to them.
type Kind int

// Kind values.
const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindInsufficientBalance
	KindOutOfStock
	KindAlreadyUsed
	KindConflict
)

// String returns a stable label usable in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindOutOfStock:
		return "out_of_stock"
	case KindAlreadyUsed:
		return "already_used"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors, including storage failures, are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrExchangeNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidAmount):
		return KindInvalidInput
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrOutOfStock):
		return KindOutOfStock
	case errors.Is(err, ErrAlreadyUsed):
		return KindAlreadyUsed
	case errors.Is(err, ErrDuplicateReward),
		errors.Is(err, ErrProductInUse),
		errors.Is(err, ErrUsernameTaken):
		return KindConflict
	default:
		return KindInternal
	}
}

// IsBusiness reports whether err is an expected business condition rather than a fault.
func IsBusiness(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return KindOf(err) != KindInternal
}
