package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/school-portal/portal-backend/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := Open(fmt.Sprintf("file:migrate_%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestMigrateCreatesLedgerTables(t *testing.T) {
	conn := openTestDB(t)

	for _, table := range []string{"students", "accounts", "ledger_entries", "products", "exchange_records", "settings", "admins"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
	for _, column := range []string{"balance_after", "dedupe_key", "reference_type", "expires_at"} {
		if !conn.Migrator().HasColumn(&models.LedgerEntry{}, column) {
			t.Fatalf("ledger_entries missing column %s", column)
		}
	}
}

func TestLedgerDedupeKeyIsUnique(t *testing.T) {
	conn := openTestDB(t)

	key := "ATTEND:1:2026-03-02"
	first := models.LedgerEntry{StudentID: 1, TransactionType: models.TransactionAttendReward, Amount: 10, BalanceAfter: 10, DedupeKey: &key}
	if errCreate := conn.Create(&first).Error; errCreate != nil {
		t.Fatalf("create first entry: %v", errCreate)
	}
	second := models.LedgerEntry{StudentID: 1, TransactionType: models.TransactionAttendReward, Amount: 10, BalanceAfter: 20, DedupeKey: &key}
	errCreate := conn.Create(&second).Error
	if errCreate == nil {
		t.Fatal("expected duplicate dedupe key to fail")
	}
	if !IsUniqueViolation(errCreate) {
		t.Fatalf("expected unique violation, got %v", errCreate)
	}
}

func TestIsUniqueViolationRecognisesPostgresCode(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Fatal("expected pg 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "40001"}) {
		t.Fatal("expected serialization failure not to be a unique violation")
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Fatal("expected generic error not to be a unique violation")
	}
}

func TestDetectDialectFromDSN(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{dsn: "postgres://u:p@localhost/portal", want: DialectPostgres},
		{dsn: "host=localhost dbname=portal user=u", want: DialectPostgres},
		{dsn: "file:data/portal.db", want: DialectSQLite},
		{dsn: "sqlite://data/portal.db", want: DialectSQLite},
		{dsn: "portal.db", want: DialectSQLite},
	}
	for _, tc := range cases {
		got, err := detectDialectFromDSN(tc.dsn)
		if err != nil {
			t.Fatalf("detect %q: %v", tc.dsn, err)
		}
		if got != tc.want {
			t.Fatalf("expected %s for %q, got %s", tc.want, tc.dsn, got)
		}
	}
	if _, err := detectDialectFromDSN("mysql://u@localhost/portal"); err == nil {
		t.Fatal("expected mysql dsn to be rejected")
	}
}
