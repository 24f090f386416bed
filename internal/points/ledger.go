package points

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/school-portal/portal-backend/internal/models"
)

// HistoryFilter narrows History. Zero values mean no filter.
type HistoryFilter struct {
	Type          models.TransactionType
	ReferenceType string
	Limit         int
	Offset        int
}

// History returns the student's ledger entries newest first, plus the total match count.
func (s *Service) History(ctx context.Context, studentID uint64, filter HistoryFilter) ([]models.LedgerEntry, int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	q := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("student_id = ?", studentID)
	if filter.Type != "" {
		q = q.Where("transaction_type = ?", filter.Type)
	}
	if refType := strings.TrimSpace(filter.ReferenceType); refType != "" {
		q = q.Where("reference_type = ?", refType)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("points: count history: %w", errCount)
	}

	q = q.Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var entries []models.LedgerEntry
	if errFind := q.Find(&entries).Error; errFind != nil {
		return nil, 0, fmt.Errorf("points: load history: %w", errFind)
	}
	return entries, total, nil
}

// TotalSpent returns the magnitude of all debits ever recorded for the student.
func (s *Service) TotalSpent(ctx context.Context, studentID uint64) (int64, error) {
	sum, errSum := s.sumAmounts(ctx, studentID, "amount < 0")
	if errSum != nil {
		return 0, errSum
	}
	return -sum, nil
}

// TotalEarned returns the sum of all credits ever recorded for the student.
func (s *Service) TotalEarned(ctx context.Context, studentID uint64) (int64, error) {
	return s.sumAmounts(ctx, studentID, "amount > 0")
}

// LedgerSum returns the sum of every entry amount for the student.
func (s *Service) LedgerSum(ctx context.Context, studentID uint64) (int64, error) {
	return s.sumAmounts(ctx, studentID, "")
}

func (s *Service) sumAmounts(ctx context.Context, studentID uint64, cond string) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	q := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("student_id = ?", studentID)
	if cond != "" {
		q = q.Where(cond)
	}
	var sum int64
	if errSum := q.Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error; errSum != nil {
		return 0, fmt.Errorf("points: sum ledger: %w", errSum)
	}
	return sum, nil
}

// CountEntries counts the student's entries with the given transaction type and reference type.
// Empty arguments match anything.
func (s *Service) CountEntries(ctx context.Context, studentID uint64, txType models.TransactionType, referenceType string) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	q := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("student_id = ?", studentID)
	if txType != "" {
		q = q.Where("transaction_type = ?", txType)
	}
	if referenceType != "" {
		q = q.Where("reference_type = ?", referenceType)
	}
	var count int64
	if errCount := q.Count(&count).Error; errCount != nil {
		return 0, fmt.Errorf("points: count entries: %w", errCount)
	}
	return count, nil
}

// EntriesBetween returns the student's entries with referenceType created in [start, end), oldest first.
func (s *Service) EntriesBetween(ctx context.Context, studentID uint64, referenceType string, start, end time.Time) ([]models.LedgerEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	q := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC())
	if referenceType != "" {
		q = q.Where("reference_type = ?", referenceType)
	}
	var entries []models.LedgerEntry
	if errFind := q.Order("created_at ASC, id ASC").Find(&entries).Error; errFind != nil {
		return nil, fmt.Errorf("points: load entries: %w", errFind)
	}
	return entries, nil
}

// AttendanceDays returns the sorted days of month on which the student was credited for attendance.
func (s *Service) AttendanceDays(ctx context.Context, studentID uint64, year int, month time.Month) ([]int, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month out of range", ErrInvalidInput)
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 1, 0)
	entries, errEntries := s.EntriesBetween(ctx, studentID, models.ReferenceAttend, start, end)
	if errEntries != nil {
		return nil, errEntries
	}

	seen := make(map[int]struct{}, len(entries))
	days := make([]int, 0, len(entries))
	for _, entry := range entries {
		day := attendanceDay(entry, s.loc)
		if day.Year() != year || day.Month() != month {
			continue
		}
		if _, ok := seen[day.Day()]; ok {
			continue
		}
		seen[day.Day()] = struct{}{}
		days = append(days, day.Day())
	}
	sort.Ints(days)
	return days, nil
}

// attendanceDay prefers the day encoded in the dedupe key over the creation timestamp.
func attendanceDay(entry models.LedgerEntry, loc *time.Location) time.Time {
	if entry.DedupeKey != nil {
		key := *entry.DedupeKey
		if idx := strings.LastIndex(key, ":"); idx >= 0 {
			if day, errParse := time.ParseInLocation(dayLayout, key[idx+1:], loc); errParse == nil {
				return day
			}
		}
	}
	return entry.CreatedAt.In(loc)
}

// Summary aggregates a student's ledger.
type Summary struct {
	Balance     int64 `json:"balance"`
	TotalEarned int64 `json:"total_earned"`
	TotalSpent  int64 `json:"total_spent"`
	Entries     int64 `json:"entries"`
	Exchanges   int64 `json:"exchanges"`
}

// Summary returns the student's balance with lifetime totals.
func (s *Service) Summary(ctx context.Context, studentID uint64) (*Summary, error) {
	balance, errBalance := s.Balance(ctx, studentID)
	if errBalance != nil {
		return nil, errBalance
	}
	earned, errEarned := s.TotalEarned(ctx, studentID)
	if errEarned != nil {
		return nil, errEarned
	}
	spent, errSpent := s.TotalSpent(ctx, studentID)
	if errSpent != nil {
		return nil, errSpent
	}
	entries, errEntries := s.CountEntries(ctx, studentID, "", "")
	if errEntries != nil {
		return nil, errEntries
	}
	exchanges, errExchanges := s.CountEntries(ctx, studentID, models.TransactionExchange, "")
	if errExchanges != nil {
		return nil, errExchanges
	}
	return &Summary{
		Balance:     balance,
		TotalEarned: earned,
		TotalSpent:  spent,
		Entries:     entries,
		Exchanges:   exchanges,
	}, nil
}
