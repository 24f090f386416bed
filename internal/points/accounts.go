package points

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dbutil "github.com/school-portal/portal-backend/internal/db"
	"github.com/school-portal/portal-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegisterStudent creates the student row and its zero-balance account together.
// student.Password must already be hashed.
func (s *Service) RegisterStudent(ctx context.Context, student *models.Student) error {
	if student == nil || strings.TrimSpace(student.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	student.Username = strings.TrimSpace(student.Username)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(student).Error; errCreate != nil {
			if dbutil.IsUniqueViolation(errCreate) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("points: create student: %w", errCreate)
		}
		return openAccount(tx, student.ID)
	})
}

// OpenAccount creates the account for studentID with balance 0. Calling it again is a no-op.
func (s *Service) OpenAccount(ctx context.Context, studentID uint64) error {
	if studentID == 0 {
		return fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return openAccount(s.db.WithContext(ctx), studentID)
}

func openAccount(tx *gorm.DB, studentID uint64) error {
	account := models.Account{StudentID: studentID}
	if errCreate := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}},
		DoNothing: true,
	}).Create(&account).Error; errCreate != nil {
		return fmt.Errorf("points: open account: %w", errCreate)
	}
	return nil
}

// Account returns the student's account row.
func (s *Service) Account(ctx context.Context, studentID uint64) (*models.Account, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var account models.Account
	if errFind := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("points: load account: %w", errFind)
	}
	return &account, nil
}

// Balance returns the student's current balance.
func (s *Service) Balance(ctx context.Context, studentID uint64) (int64, error) {
	account, errAccount := s.Account(ctx, studentID)
	if errAccount != nil {
		return 0, errAccount
	}
	return account.Balance, nil
}
