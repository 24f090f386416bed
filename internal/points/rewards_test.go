package points

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/settings"
)

func TestAttendOncePerCalendarDay(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	// 23:30 UTC on the 9th is already the 10th in KST.
	clock, setClock := fixedClock(time.Date(2026, 4, 9, 23, 30, 0, 0, time.UTC))
	svc := newTestService(t, WithClock(clock), WithLocation(seoul))
	ctx := context.Background()
	studentID := seedStudent(t, svc, "attender", 0)

	entry, errAttend := svc.Attend(ctx, studentID)
	if errAttend != nil {
		t.Fatalf("attend: %v", errAttend)
	}
	if entry.TransactionType != models.TransactionAttendReward || entry.ReferenceType != models.ReferenceAttend {
		t.Fatalf("unexpected attendance entry: %+v", entry)
	}
	if entry.Amount != settings.DefaultAttendRewardPoints {
		t.Fatalf("expected reward %d, got %d", settings.DefaultAttendRewardPoints, entry.Amount)
	}

	setClock(time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC))
	if _, errAgain := svc.Attend(ctx, studentID); !errors.Is(errAgain, ErrDuplicateReward) {
		t.Fatalf("expected ErrDuplicateReward on same KST day, got %v", errAgain)
	}
	attended, errCheck := svc.AttendedToday(ctx, studentID)
	if errCheck != nil {
		t.Fatalf("attended today: %v", errCheck)
	}
	if !attended {
		t.Fatalf("expected attendance to be recorded for today")
	}

	setClock(time.Date(2026, 4, 10, 16, 0, 0, 0, time.UTC))
	if _, errNext := svc.Attend(ctx, studentID); errNext != nil {
		t.Fatalf("attend next day: %v", errNext)
	}

	days, errDays := svc.AttendanceDays(ctx, studentID, 2026, time.April)
	if errDays != nil {
		t.Fatalf("attendance days: %v", errDays)
	}
	if len(days) != 2 || days[0] != 10 || days[1] != 11 {
		t.Fatalf("expected days [10 11], got %v", days)
	}
	if got := mustBalance(t, svc, studentID); got != 2*settings.DefaultAttendRewardPoints {
		t.Fatalf("expected balance %d, got %d", 2*settings.DefaultAttendRewardPoints, got)
	}
	assertLedgerConsistent(t, svc, studentID)
}

func TestAttendIsPerStudent(t *testing.T) {
	clock, _ := fixedClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	svc := newTestService(t, WithClock(clock))
	ctx := context.Background()
	first := seedStudent(t, svc, "first", 0)
	second := seedStudent(t, svc, "second", 0)

	if _, errAttend := svc.Attend(ctx, first); errAttend != nil {
		t.Fatalf("first attend: %v", errAttend)
	}
	if _, errAttend := svc.Attend(ctx, second); errAttend != nil {
		t.Fatalf("second attend: %v", errAttend)
	}
}

func TestRewardAmountsFollowSettings(t *testing.T) {
	svc := newTestService(t, WithDefaults(Defaults{AttendReward: 7, MealPhotoReward: 11}))
	ctx := context.Background()
	studentID := seedStudent(t, svc, "configured", 0)

	photo, errPhoto := svc.RewardMealPhoto(ctx, studentID, "p-1")
	if errPhoto != nil {
		t.Fatalf("meal photo: %v", errPhoto)
	}
	if photo.Amount != 11 {
		t.Fatalf("expected default meal reward 11, got %d", photo.Amount)
	}

	settings.StoreDBConfig(time.Now(), map[string]json.RawMessage{
		settings.AttendRewardPointsKey: json.RawMessage(`"25"`),
	})
	attend, errAttend := svc.Attend(ctx, studentID)
	if errAttend != nil {
		t.Fatalf("attend: %v", errAttend)
	}
	if attend.Amount != 25 {
		t.Fatalf("expected DB override 25, got %d", attend.Amount)
	}
}

func TestRewardMealPhotoOncePerPhoto(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	studentID := seedStudent(t, svc, "eater", 0)

	entry, errReward := svc.RewardMealPhoto(ctx, studentID, "photo-42")
	if errReward != nil {
		t.Fatalf("reward: %v", errReward)
	}
	if entry.TransactionType != models.TransactionEarn || entry.ReferenceType != models.ReferenceMealPhoto {
		t.Fatalf("unexpected meal photo entry: %+v", entry)
	}
	if entry.ReferenceID == nil || *entry.ReferenceID != "photo-42" {
		t.Fatalf("expected reference id photo-42, got %v", entry.ReferenceID)
	}
	if _, errAgain := svc.RewardMealPhoto(ctx, studentID, "photo-42"); !errors.Is(errAgain, ErrDuplicateReward) {
		t.Fatalf("expected ErrDuplicateReward, got %v", errAgain)
	}
	if _, errOther := svc.RewardMealPhoto(ctx, studentID, "photo-43"); errOther != nil {
		t.Fatalf("reward second photo: %v", errOther)
	}
	if _, errEmpty := svc.RewardMealPhoto(ctx, studentID, "  "); !errors.Is(errEmpty, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty photo id, got %v", errEmpty)
	}

	count, errCount := svc.CountEntries(ctx, studentID, models.TransactionEarn, models.ReferenceMealPhoto)
	if errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 2 {
		t.Fatalf("expected 2 meal photo rewards, got %d", count)
	}
}

func TestAdminAdjustRecordsDelta(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	studentID := seedStudent(t, svc, "adjusted", 100)

	give, errGive := svc.AdminAdjust(ctx, studentID, 250, 1, "science fair")
	if errGive != nil {
		t.Fatalf("give: %v", errGive)
	}
	if give.TransactionType != models.TransactionAdminGive || give.Amount != 150 || give.BalanceAfter != 250 {
		t.Fatalf("unexpected give entry: %+v", give)
	}
	if give.ReferenceType != models.ReferenceAdminAdjust {
		t.Fatalf("expected ADMIN_ADJUST reference, got %s", give.ReferenceType)
	}
	var memo map[string]any
	if errMemo := json.Unmarshal(give.Memo, &memo); errMemo != nil {
		t.Fatalf("decode memo: %v", errMemo)
	}
	if memo["reason"] != "science fair" {
		t.Fatalf("expected reason in memo, got %v", memo)
	}

	take, errTake := svc.AdminAdjust(ctx, studentID, 40, 1, "")
	if errTake != nil {
		t.Fatalf("take: %v", errTake)
	}
	if take.TransactionType != models.TransactionAdminTake || take.Amount != -210 || take.BalanceAfter != 40 {
		t.Fatalf("unexpected take entry: %+v", take)
	}

	if _, errSame := svc.AdminAdjust(ctx, studentID, 40, 1, ""); !errors.Is(errSame, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for unchanged balance, got %v", errSame)
	}
	if _, errNegative := svc.AdminAdjust(ctx, studentID, -1, 1, ""); !errors.Is(errNegative, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative target, got %v", errNegative)
	}
	if _, errMissing := svc.AdminAdjust(ctx, 5555, 10, 1, ""); !errors.Is(errMissing, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", errMissing)
	}
	if got := mustBalance(t, svc, studentID); got != 40 {
		t.Fatalf("expected balance 40, got %d", got)
	}
	assertLedgerConsistent(t, svc, studentID)
}
