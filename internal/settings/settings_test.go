package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/school-portal/portal-backend/internal/models"
	"gorm.io/gorm"
)

func TestInt64ParsesSupportedShapes(t *testing.T) {
	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		"A": json.RawMessage(`15`),
		"B": json.RawMessage(`"25"`),
		"C": json.RawMessage(`{"value": 35}`),
		"D": json.RawMessage(`1.5`),
	})
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })

	cases := map[string]int64{"A": 15, "B": 25, "C": 35, "D": 7, "missing": 7}
	for key, want := range cases {
		if got := Int64(key, 7); got != want {
			t.Fatalf("expected %s=%d, got %d", key, want, got)
		}
	}
}

func TestPutRefreshesSnapshot(t *testing.T) {
	dsn := fmt.Sprintf("file:settings_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })

	if errPut := Put(context.Background(), db, AttendRewardPointsKey, 30); errPut != nil {
		t.Fatalf("put: %v", errPut)
	}
	if got := Int64(AttendRewardPointsKey, DefaultAttendRewardPoints); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}

	if errPut := Put(context.Background(), db, AttendRewardPointsKey, 40); errPut != nil {
		t.Fatalf("put again: %v", errPut)
	}
	if got := Int64(AttendRewardPointsKey, DefaultAttendRewardPoints); got != 40 {
		t.Fatalf("expected 40 after overwrite, got %d", got)
	}
}
