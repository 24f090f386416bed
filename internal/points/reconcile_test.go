package points

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/school-portal/portal-backend/internal/metrics"
	"github.com/school-portal/portal-backend/internal/models"
)

func TestReconcileAllFindsTamperedBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	healthy := seedStudent(t, svc, "healthy", 80)
	tampered := seedStudent(t, svc, "tampered", 50)
	seedStudent(t, svc, "empty", 0)

	if errUpdate := svc.DB().Model(&models.Account{}).
		Where("student_id = ?", tampered).
		Update("balance", 75).Error; errUpdate != nil {
		t.Fatalf("tamper: %v", errUpdate)
	}

	mismatches, errAudit := svc.ReconcileAll(ctx)
	if errAudit != nil {
		t.Fatalf("reconcile all: %v", errAudit)
	}
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %+v", mismatches)
	}
	got := mismatches[0]
	if got.StudentID != tampered || got.Balance != 75 || got.LedgerSum != 50 {
		t.Fatalf("unexpected mismatch: %+v", got)
	}
	assertLedgerConsistent(t, svc, healthy)
}

func TestReconcileDetectsBrokenBalanceAfterChain(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	studentID := seedStudent(t, svc, "chain", 10)
	second, errRecord := svc.RecordTransaction(ctx, Transaction{StudentID: studentID, Amount: 5, Type: models.TransactionEarn})
	if errRecord != nil {
		t.Fatalf("record: %v", errRecord)
	}
	if _, errRecord = svc.RecordTransaction(ctx, Transaction{StudentID: studentID, Amount: 1, Type: models.TransactionEarn}); errRecord != nil {
		t.Fatalf("record: %v", errRecord)
	}

	if errUpdate := svc.DB().Model(&models.LedgerEntry{}).
		Where("id = ?", second.ID).
		Update("balance_after", 99).Error; errUpdate != nil {
		t.Fatalf("tamper: %v", errUpdate)
	}

	mismatch, errReconcile := svc.Reconcile(ctx, studentID)
	if errReconcile != nil {
		t.Fatalf("reconcile: %v", errReconcile)
	}
	if mismatch == nil || mismatch.BrokenEntryID != second.ID {
		t.Fatalf("expected broken entry %d, got %+v", second.ID, mismatch)
	}
	if mismatch.LedgerSum != 16 || mismatch.Balance != 16 {
		t.Fatalf("expected sum and balance 16, got %+v", mismatch)
	}
}

func TestAuditorPublishesMismatchGauge(t *testing.T) {
	m := metrics.New()
	svc := newTestService(t, WithMetrics(m))
	studentID := seedStudent(t, svc, "audited", 20)
	if errUpdate := svc.DB().Model(&models.Account{}).
		Where("student_id = ?", studentID).
		Update("balance", 0).Error; errUpdate != nil {
		t.Fatalf("tamper: %v", errUpdate)
	}

	auditor := NewAuditor(svc, time.Hour)
	mismatches := auditor.AuditOnce(context.Background())
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %d", len(mismatches))
	}
	if got := testutil.ToFloat64(m.MismatchedAccounts); got != 1 {
		t.Fatalf("expected gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.TransactionsTotal.WithLabelValues(string(models.TransactionEarn))); got != 1 {
		t.Fatalf("expected 1 EARN transaction counted, got %v", got)
	}
}

func TestAuditorStopsWithContext(t *testing.T) {
	svc := newTestService(t)
	auditor := NewAuditor(svc, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		auditor.run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected auditor loop to stop after cancel")
	}
}

func TestReconcileAllStaysCleanDuringWrites(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	busy := seedStudent(t, svc, "busy", 10)
	quiet := seedStudent(t, svc, "quiet", 5)

	stop := make(chan struct{})
	var (
		wg       sync.WaitGroup
		errWrite error
		written  int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, errRecord := svc.RecordTransaction(ctx, Transaction{StudentID: busy, Amount: 1, Type: models.TransactionEarn}); errRecord != nil {
				errWrite = errRecord
				return
			}
			written++
		}
	}()

	var dirty int
	for i := 0; i < 200; i++ {
		mismatches, errAudit := svc.ReconcileAll(ctx)
		if errAudit != nil {
			close(stop)
			wg.Wait()
			t.Fatalf("reconcile all pass %d: %v", i, errAudit)
		}
		if len(mismatches) > 0 {
			dirty++
		}
	}
	close(stop)
	wg.Wait()

	if errWrite != nil {
		t.Fatalf("record during audit: %v", errWrite)
	}
	if dirty != 0 {
		t.Fatalf("expected no mismatches while writing, got %d dirty passes", dirty)
	}
	if got := mustBalance(t, svc, busy); got != int64(10+written) {
		t.Fatalf("expected balance %d, got %d", 10+written, got)
	}
	assertLedgerConsistent(t, svc, busy)
	assertLedgerConsistent(t, svc, quiet)
}

func TestReconcileUnknownStudent(t *testing.T) {
	svc := newTestService(t)
	if _, errReconcile := svc.Reconcile(context.Background(), 4242); !errors.Is(errReconcile, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", errReconcile)
	}
}
