package points

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/school-portal/portal-backend/internal/models"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

// attendDedupeKey is unique per student and calendar day.
func attendDedupeKey(studentID uint64, day string) string {
	return models.ReferenceAttend + ":" + strconv.FormatUint(studentID, 10) + ":" + day
}

func mealPhotoDedupeKey(photoID string) string {
	return models.ReferenceMealPhoto + ":" + photoID
}

// Attend credits today's attendance reward. A second call on the same calendar day returns
// ErrDuplicateReward.
func (s *Service) Attend(ctx context.Context, studentID uint64) (*models.LedgerEntry, error) {
	day := s.clock().In(s.loc).Format(dayLayout)
	return s.RecordTransaction(ctx, Transaction{
		StudentID:     studentID,
		Amount:        s.attendReward(),
		Type:          models.TransactionAttendReward,
		ReferenceType: models.ReferenceAttend,
		DedupeKey:     attendDedupeKey(studentID, day),
		Memo:          map[string]any{"day": day},
	})
}

// AttendedToday reports whether the student already collected today's attendance reward.
func (s *Service) AttendedToday(ctx context.Context, studentID uint64) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	key := attendDedupeKey(studentID, s.clock().In(s.loc).Format(dayLayout))
	var count int64
	if errCount := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("dedupe_key = ?", key).
		Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("points: check attendance: %w", errCount)
	}
	return count > 0, nil
}

// RewardMealPhoto credits the meal-photo reward for a photo classified as a qualifying meal.
// Each photo is rewarded at most once.
func (s *Service) RewardMealPhoto(ctx context.Context, studentID uint64, photoID string) (*models.LedgerEntry, error) {
	photoID = strings.TrimSpace(photoID)
	if photoID == "" {
		return nil, fmt.Errorf("%w: photo id is required", ErrInvalidInput)
	}
	return s.RecordTransaction(ctx, Transaction{
		StudentID:     studentID,
		Amount:        s.mealPhotoReward(),
		Type:          models.TransactionEarn,
		ReferenceType: models.ReferenceMealPhoto,
		ReferenceID:   photoID,
		DedupeKey:     mealPhotoDedupeKey(photoID),
	})
}

// AdminAdjust sets the student's balance to target by recording the difference as
// ADMIN_GIVE or ADMIN_TAKE. The difference is computed under the account lock.
func (s *Service) AdminAdjust(ctx context.Context, studentID uint64, target int64, adminID uint64, reason string) (*models.LedgerEntry, error) {
	if studentID == 0 {
		return nil, fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}
	if target < 0 {
		return nil, fmt.Errorf("%w: target balance must not be negative", ErrInvalidAmount)
	}

	unlock, errLock := s.lock(ctx, accountKey(studentID))
	if errLock != nil {
		return nil, errLock
	}
	defer unlock()

	var entry *models.LedgerEntry
	errTx := s.inTx(ctx, func(tx *gorm.DB) error {
		account, errAccount := lockAccount(tx, studentID)
		if errAccount != nil {
			return errAccount
		}
		delta := target - account.Balance
		if delta == 0 {
			return ErrInvalidAmount
		}
		txType := models.TransactionAdminGive
		if delta < 0 {
			txType = models.TransactionAdminTake
		}
		memo := map[string]any{"admin_id": adminID, "target_balance": target}
		if reason = strings.TrimSpace(reason); reason != "" {
			memo["reason"] = reason
		}
		created, errApply := s.apply(tx, account, Transaction{
			StudentID:     studentID,
			Amount:        delta,
			Type:          txType,
			ReferenceType: models.ReferenceAdminAdjust,
			Memo:          memo,
		})
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
