package points

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/school-portal/portal-backend/internal/models"
)

func TestRecordTransactionAppendsEntryAndMovesBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	studentID := seedStudent(t, svc, "alice", 0)

	entry, errRecord := svc.RecordTransaction(ctx, Transaction{
		StudentID:     studentID,
		Amount:        120,
		Type:          models.TransactionEarn,
		ReferenceType: models.ReferenceMealPhoto,
		ReferenceID:   "photo-1",
	})
	if errRecord != nil {
		t.Fatalf("record: %v", errRecord)
	}
	if entry.ID == 0 || entry.BalanceAfter != 120 || entry.Amount != 120 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.ReferenceID == nil || *entry.ReferenceID != "photo-1" {
		t.Fatalf("expected reference id photo-1, got %v", entry.ReferenceID)
	}
	if got := mustBalance(t, svc, studentID); got != 120 {
		t.Fatalf("expected balance 120, got %d", got)
	}
	assertLedgerConsistent(t, svc, studentID)
}

func TestRecordTransactionRejectsZeroAmount(t *testing.T) {
	svc := newTestService(t)
	studentID := seedStudent(t, svc, "bob", 50)
	before := countRows(t, svc, &models.LedgerEntry{})

	_, errRecord := svc.RecordTransaction(context.Background(), Transaction{
		StudentID: studentID,
		Amount:    0,
		Type:      models.TransactionEarn,
	})
	if !errors.Is(errRecord, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", errRecord)
	}
	if KindOf(errRecord) != KindInvalidInput {
		t.Fatalf("expected invalid input kind, got %s", KindOf(errRecord))
	}
	if after := countRows(t, svc, &models.LedgerEntry{}); after != before {
		t.Fatalf("expected no new entries, had %d now %d", before, after)
	}
}

func TestRecordTransactionRejectsOverdraft(t *testing.T) {
	svc := newTestService(t)
	studentID := seedStudent(t, svc, "carol", 100)
	before := countRows(t, svc, &models.LedgerEntry{})

	_, errRecord := svc.RecordTransaction(context.Background(), Transaction{
		StudentID: studentID,
		Amount:    -1000000,
		Type:      models.TransactionSpend,
	})
	if !errors.Is(errRecord, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", errRecord)
	}
	if got := mustBalance(t, svc, studentID); got != 100 {
		t.Fatalf("expected balance 100, got %d", got)
	}
	if after := countRows(t, svc, &models.LedgerEntry{}); after != before {
		t.Fatalf("expected no new entries, had %d now %d", before, after)
	}
}

func TestRecordTransactionAllowsDebitToZero(t *testing.T) {
	svc := newTestService(t)
	studentID := seedStudent(t, svc, "dave", 100)

	entry, errRecord := svc.RecordTransaction(context.Background(), Transaction{
		StudentID: studentID,
		Amount:    -100,
		Type:      models.TransactionSpend,
	})
	if errRecord != nil {
		t.Fatalf("record: %v", errRecord)
	}
	if entry.BalanceAfter != 0 {
		t.Fatalf("expected balance_after 0, got %d", entry.BalanceAfter)
	}
}

func TestRecordTransactionUnknownAccount(t *testing.T) {
	svc := newTestService(t)

	_, errRecord := svc.RecordTransaction(context.Background(), Transaction{
		StudentID: 999,
		Amount:    10,
		Type:      models.TransactionEarn,
	})
	if !errors.Is(errRecord, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", errRecord)
	}
	if KindOf(errRecord) != KindNotFound {
		t.Fatalf("expected not found kind, got %s", KindOf(errRecord))
	}
}

func TestRecordTransactionRejectsUnknownType(t *testing.T) {
	svc := newTestService(t)
	studentID := seedStudent(t, svc, "erin", 0)

	_, errRecord := svc.RecordTransaction(context.Background(), Transaction{
		StudentID: studentID,
		Amount:    10,
		Type:      models.TransactionType("BONUS"),
	})
	if !errors.Is(errRecord, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", errRecord)
	}
}

func TestRecordTransactionDedupeKey(t *testing.T) {
	svc := newTestService(t)
	studentID := seedStudent(t, svc, "frank", 0)
	req := Transaction{
		StudentID: studentID,
		Amount:    5,
		Type:      models.TransactionEarn,
		DedupeKey: "once",
	}

	if _, errFirst := svc.RecordTransaction(context.Background(), req); errFirst != nil {
		t.Fatalf("first record: %v", errFirst)
	}
	_, errSecond := svc.RecordTransaction(context.Background(), req)
	if !errors.Is(errSecond, ErrDuplicateReward) {
		t.Fatalf("expected ErrDuplicateReward, got %v", errSecond)
	}
	if got := mustBalance(t, svc, studentID); got != 5 {
		t.Fatalf("expected balance 5, got %d", got)
	}
}

func TestBalanceAfterFollowsEntryOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	studentID := seedStudent(t, svc, "grace", 0)

	amounts := []int64{50, -20, 35, -65, 10}
	var running int64
	for _, amount := range amounts {
		txType := models.TransactionEarn
		if amount < 0 {
			txType = models.TransactionSpend
		}
		entry, errRecord := svc.RecordTransaction(ctx, Transaction{StudentID: studentID, Amount: amount, Type: txType})
		if errRecord != nil {
			t.Fatalf("record %d: %v", amount, errRecord)
		}
		running += amount
		if entry.BalanceAfter != running {
			t.Fatalf("expected balance_after %d, got %d", running, entry.BalanceAfter)
		}
	}
	if got := mustBalance(t, svc, studentID); got != running {
		t.Fatalf("expected balance %d, got %d", running, got)
	}
	assertLedgerConsistent(t, svc, studentID)
}

func TestRecordTransactionSerializesSameAccount(t *testing.T) {
	svc := newTestService(t)
	studentID := seedStudent(t, svc, "heidi", 0)

	const workers = 40
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errRecord := svc.RecordTransaction(context.Background(), Transaction{
				StudentID: studentID,
				Amount:    3,
				Type:      models.TransactionEarn,
			})
			if errRecord != nil {
				errs <- errRecord
			}
		}()
	}
	wg.Wait()
	close(errs)
	for errRecord := range errs {
		t.Fatalf("concurrent record: %v", errRecord)
	}

	if got := mustBalance(t, svc, studentID); got != workers*3 {
		t.Fatalf("expected balance %d, got %d", workers*3, got)
	}
	assertLedgerConsistent(t, svc, studentID)
}

func TestRecordTransactionConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc := newTestService(t)
	studentID := seedStudent(t, svc, "ivan", 100)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errRecord := svc.RecordTransaction(context.Background(), Transaction{
				StudentID: studentID,
				Amount:    -30,
				Type:      models.TransactionSpend,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errRecord == nil:
				succeeded++
			case errors.Is(errRecord, ErrInsufficientBalance):
				rejected++
			default:
				t.Errorf("unexpected error: %v", errRecord)
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 || rejected != workers-3 {
		t.Fatalf("expected 3 successes and %d rejections, got %d and %d", workers-3, succeeded, rejected)
	}
	if got := mustBalance(t, svc, studentID); got != 10 {
		t.Fatalf("expected balance 10, got %d", got)
	}
	assertLedgerConsistent(t, svc, studentID)
}

func TestWritersAcceptNilContext(t *testing.T) {
	svc := newTestService(t)
	studentID := seedStudent(t, svc, "nilctx", 30)
	product := seedProduct(t, svc, "Sticker", 10, 2)

	var ctx context.Context
	if _, errRecord := svc.RecordTransaction(ctx, Transaction{StudentID: studentID, Amount: 5, Type: models.TransactionEarn}); errRecord != nil {
		t.Fatalf("record: %v", errRecord)
	}
	record, errExchange := svc.ExchangeProduct(ctx, studentID, product.ID)
	if errExchange != nil {
		t.Fatalf("exchange: %v", errExchange)
	}
	if _, errUse := svc.UseProduct(ctx, record.ID); errUse != nil {
		t.Fatalf("use: %v", errUse)
	}
	if _, errAdjust := svc.AdminAdjust(ctx, studentID, 100, 1, "correction"); errAdjust != nil {
		t.Fatalf("adjust: %v", errAdjust)
	}
	if _, errRestock := svc.Restock(ctx, product.ID, 5); errRestock != nil {
		t.Fatalf("restock: %v", errRestock)
	}
	if got := mustBalance(t, svc, studentID); got != 100 {
		t.Fatalf("expected balance 100, got %d", got)
	}
	assertLedgerConsistent(t, svc, studentID)
}
