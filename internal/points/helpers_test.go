package points

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	dbutil "github.com/school-portal/portal-backend/internal/db"
	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/settings"
)

var testDBSeq atomic.Int64

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:points_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), testDBSeq.Add(1))
	conn, errOpen := dbutil.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	t.Cleanup(func() {
		if sqlDB, errDB := conn.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
		settings.StoreDBConfig(time.Time{}, nil)
	})
	return NewService(conn, opts...)
}

// fixedClock returns a clock reading *now and a setter for tests that move time.
func fixedClock(start time.Time) (func() time.Time, func(time.Time)) {
	var current atomic.Value
	current.Store(start)
	return func() time.Time { return current.Load().(time.Time) },
		func(t time.Time) { current.Store(t) }
}

func seedStudent(t *testing.T, svc *Service, username string, balance int64) uint64 {
	t.Helper()
	ctx := context.Background()
	student := &models.Student{Username: username, Password: "hashed"}
	if errRegister := svc.RegisterStudent(ctx, student); errRegister != nil {
		t.Fatalf("register %s: %v", username, errRegister)
	}
	if balance > 0 {
		if _, errCredit := svc.RecordTransaction(ctx, Transaction{
			StudentID: student.ID,
			Amount:    balance,
			Type:      models.TransactionEarn,
		}); errCredit != nil {
			t.Fatalf("seed balance for %s: %v", username, errCredit)
		}
	}
	return student.ID
}

func seedProduct(t *testing.T, svc *Service, name string, cost, stock int64) *models.Product {
	t.Helper()
	product, errCreate := svc.CreateProduct(context.Background(), ProductInput{
		Name:       name,
		PointsCost: cost,
		Stock:      stock,
	})
	if errCreate != nil {
		t.Fatalf("create product %s: %v", name, errCreate)
	}
	return product
}

func mustBalance(t *testing.T, svc *Service, studentID uint64) int64 {
	t.Helper()
	balance, errBalance := svc.Balance(context.Background(), studentID)
	if errBalance != nil {
		t.Fatalf("balance: %v", errBalance)
	}
	return balance
}

func mustStock(t *testing.T, svc *Service, productID uint64) int64 {
	t.Helper()
	product, errProduct := svc.GetProduct(context.Background(), productID)
	if errProduct != nil {
		t.Fatalf("get product: %v", errProduct)
	}
	return product.Stock
}

func countRows(t *testing.T, svc *Service, model any) int64 {
	t.Helper()
	var count int64
	if errCount := svc.DB().Model(model).Count(&count).Error; errCount != nil {
		t.Fatalf("count rows: %v", errCount)
	}
	return count
}

// assertLedgerConsistent checks the sum and balance_after invariants for a student.
func assertLedgerConsistent(t *testing.T, svc *Service, studentID uint64) {
	t.Helper()
	mismatch, errReconcile := svc.Reconcile(context.Background(), studentID)
	if errReconcile != nil {
		t.Fatalf("reconcile: %v", errReconcile)
	}
	if mismatch != nil {
		t.Fatalf("expected consistent ledger, got %+v", *mismatch)
	}
}
