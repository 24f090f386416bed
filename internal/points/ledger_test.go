package points

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/school-portal/portal-backend/internal/models"
)

func TestHistoryNewestFirst(t *testing.T) {
	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	clock, setClock := fixedClock(start)
	svc := newTestService(t, WithClock(clock))
	ctx := context.Background()
	studentID := seedStudent(t, svc, "historian", 0)

	for i, amount := range []int64{10, 20, -5, 30} {
		setClock(start.Add(time.Duration(i) * time.Minute))
		txType := models.TransactionEarn
		if amount < 0 {
			txType = models.TransactionSpend
		}
		if _, errRecord := svc.RecordTransaction(ctx, Transaction{StudentID: studentID, Amount: amount, Type: txType}); errRecord != nil {
			t.Fatalf("record: %v", errRecord)
		}
	}

	entries, total, errHistory := svc.History(ctx, studentID, HistoryFilter{Limit: 2})
	if errHistory != nil {
		t.Fatalf("history: %v", errHistory)
	}
	if total != 4 {
		t.Fatalf("expected total 4, got %d", total)
	}
	if len(entries) != 2 || entries[0].Amount != 30 || entries[1].Amount != -5 {
		t.Fatalf("expected newest two entries [30 -5], got %+v", entries)
	}

	page2, _, errPage := svc.History(ctx, studentID, HistoryFilter{Limit: 2, Offset: 2})
	if errPage != nil {
		t.Fatalf("history page 2: %v", errPage)
	}
	if len(page2) != 2 || page2[0].Amount != 20 || page2[1].Amount != 10 {
		t.Fatalf("expected older entries [20 10], got %+v", page2)
	}

	spends, spendTotal, errSpends := svc.History(ctx, studentID, HistoryFilter{Type: models.TransactionSpend})
	if errSpends != nil {
		t.Fatalf("history by type: %v", errSpends)
	}
	if spendTotal != 1 || len(spends) != 1 || spends[0].Amount != -5 {
		t.Fatalf("expected single spend entry, got %+v", spends)
	}
}

func TestTotalsAndSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	studentID := seedStudent(t, svc, "summary", 300)
	product := seedProduct(t, svc, "mug", 120, 3)

	if _, errExchange := svc.ExchangeProduct(ctx, studentID, product.ID); errExchange != nil {
		t.Fatalf("exchange: %v", errExchange)
	}
	if _, errSpend := svc.RecordTransaction(ctx, Transaction{StudentID: studentID, Amount: -30, Type: models.TransactionSpend}); errSpend != nil {
		t.Fatalf("spend: %v", errSpend)
	}

	spent, errSpent := svc.TotalSpent(ctx, studentID)
	if errSpent != nil {
		t.Fatalf("total spent: %v", errSpent)
	}
	if spent != 150 {
		t.Fatalf("expected total spent 150, got %d", spent)
	}

	summary, errSummary := svc.Summary(ctx, studentID)
	if errSummary != nil {
		t.Fatalf("summary: %v", errSummary)
	}
	if summary.Balance != 150 || summary.TotalEarned != 300 || summary.TotalSpent != 150 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Entries != 3 || summary.Exchanges != 1 {
		t.Fatalf("expected 3 entries and 1 exchange, got %+v", summary)
	}

	if _, errMissing := svc.Summary(ctx, 777); !errors.Is(errMissing, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", errMissing)
	}
}

func TestEntriesBetweenIsHalfOpen(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock, setClock := fixedClock(start)
	svc := newTestService(t, WithClock(clock))
	ctx := context.Background()
	studentID := seedStudent(t, svc, "window", 0)

	for _, at := range []time.Time{start, start.Add(12 * time.Hour), start.Add(24 * time.Hour)} {
		setClock(at)
		if _, errRecord := svc.RecordTransaction(ctx, Transaction{
			StudentID:     studentID,
			Amount:        1,
			Type:          models.TransactionEarn,
			ReferenceType: models.ReferenceMealPhoto,
		}); errRecord != nil {
			t.Fatalf("record: %v", errRecord)
		}
	}

	entries, errEntries := svc.EntriesBetween(ctx, studentID, models.ReferenceMealPhoto, start, start.Add(24*time.Hour))
	if errEntries != nil {
		t.Fatalf("entries between: %v", errEntries)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries in [start, end), got %d", len(entries))
	}
	if _, errRange := svc.EntriesBetween(ctx, studentID, "", start, start); !errors.Is(errRange, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty range, got %v", errRange)
	}
}
