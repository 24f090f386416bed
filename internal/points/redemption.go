package points

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/school-portal/portal-backend/internal/metrics"
	"github.com/school-portal/portal-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExchangeProduct spends points on one unit of a product and issues an UNUSED exchange record.
//
// Preconditions are checked in order: the account exists, the product exists, the product has
// stock, the balance covers the cost. The debit, the stock decrement and the record commit
// together or not at all.
func (s *Service) ExchangeProduct(ctx context.Context, studentID, productID uint64) (*models.ExchangeRecord, error) {
	record, entry, errExchange := s.exchangeProduct(ctx, studentID, productID)
	if errExchange != nil {
		reason := KindOf(errExchange).String()
		if errors.Is(errExchange, context.Canceled) || errors.Is(errExchange, context.DeadlineExceeded) {
			reason = "canceled"
		}
		s.metrics.ObserveExchange(metrics.OutcomeFailure, reason)
		return nil, errExchange
	}
	s.metrics.ObserveTransaction(string(entry.TransactionType), entry.Amount)
	s.metrics.ObserveExchange(metrics.OutcomeSuccess, "")
	return record, nil
}

func (s *Service) exchangeProduct(ctx context.Context, studentID, productID uint64) (*models.ExchangeRecord, *models.LedgerEntry, error) {
	if studentID == 0 || productID == 0 {
		return nil, nil, fmt.Errorf("%w: student id and product id are required", ErrInvalidInput)
	}

	// Account before product, always.
	unlock, errLock := s.lock(ctx, accountKey(studentID), productKey(productID))
	if errLock != nil {
		return nil, nil, errLock
	}
	defer unlock()

	var (
		record *models.ExchangeRecord
		entry  *models.LedgerEntry
	)
	errTx := s.inTx(ctx, func(tx *gorm.DB) error {
		account, errAccount := lockAccount(tx, studentID)
		if errAccount != nil {
			return errAccount
		}
		product, errProduct := lockProduct(tx, productID)
		if errProduct != nil {
			return errProduct
		}
		if product.Stock <= 0 {
			return ErrOutOfStock
		}
		if product.PointsCost <= 0 {
			return fmt.Errorf("points: product %d has non-positive cost %d", product.ID, product.PointsCost)
		}
		if account.Balance < product.PointsCost {
			return ErrInsufficientBalance
		}

		debit, errApply := s.apply(tx, account, Transaction{
			StudentID:     studentID,
			Amount:        -product.PointsCost,
			Type:          models.TransactionExchange,
			ReferenceType: models.ReferenceProduct,
			ReferenceID:   strconv.FormatUint(product.ID, 10),
			Memo:          map[string]any{"product_name": product.Name},
		})
		if errApply != nil {
			return errApply
		}

		now := debit.CreatedAt
		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock > 0", product.ID).
			Updates(map[string]any{
				"stock":      gorm.Expr("stock - 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("points: decrement stock: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrOutOfStock
		}
		product.Stock--

		rec := &models.ExchangeRecord{
			StudentID:      studentID,
			ProductID:      product.ID,
			Code:           uuid.NewString(),
			PointsSpent:    product.PointsCost,
			LedgerEntryID:  debit.ID,
			Status:         models.ExchangeUnused,
			ExchangeDate:   now,
			ExpirationDate: s.exchangeExpiry(now),
		}
		if errCreate := tx.Create(rec).Error; errCreate != nil {
			return fmt.Errorf("points: create exchange record: %w", errCreate)
		}
		rec.Product = product
		record = rec
		entry = debit
		return nil
	})
	if errTx != nil {
		return nil, nil, errTx
	}
	return record, entry, nil
}

func lockProduct(tx *gorm.DB, productID uint64) (*models.Product, error) {
	var product models.Product
	if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&product).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("points: load product: %w", errFind)
	}
	return &product, nil
}

// UseProduct marks an exchange record USED and stamps its usage date.
// A record that is already USED fails with ErrAlreadyUsed and keeps its original usage date.
func (s *Service) UseProduct(ctx context.Context, exchangeID uint64) (*models.ExchangeRecord, error) {
	return s.useExchange(ctx, 0, exchangeID)
}

// UseProductFor is UseProduct restricted to records owned by studentID.
// Records owned by other students are reported as ErrExchangeNotFound.
func (s *Service) UseProductFor(ctx context.Context, studentID, exchangeID uint64) (*models.ExchangeRecord, error) {
	if studentID == 0 {
		return nil, fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}
	return s.useExchange(ctx, studentID, exchangeID)
}

func (s *Service) useExchange(ctx context.Context, ownerID, exchangeID uint64) (*models.ExchangeRecord, error) {
	if exchangeID == 0 {
		return nil, fmt.Errorf("%w: exchange id is required", ErrInvalidInput)
	}
	unlock, errLock := s.lock(ctx, exchangeKey(exchangeID))
	if errLock != nil {
		return nil, errLock
	}
	defer unlock()

	var record models.ExchangeRecord
	errTx := s.inTx(ctx, func(tx *gorm.DB) error {
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", exchangeID).
			First(&record).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrExchangeNotFound
			}
			return fmt.Errorf("points: load exchange record: %w", errFind)
		}
		if ownerID != 0 && record.StudentID != ownerID {
			return ErrExchangeNotFound
		}
		if record.Status == models.ExchangeUsed {
			return ErrAlreadyUsed
		}

		now := s.clock()
		res := tx.Model(&models.ExchangeRecord{}).
			Where("id = ? AND status = ?", record.ID, models.ExchangeUnused).
			Updates(map[string]any{
				"status":     models.ExchangeUsed,
				"usage_date": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("points: mark exchange used: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrAlreadyUsed
		}
		record.Status = models.ExchangeUsed
		record.UsageDate = &now
		record.UpdatedAt = now

		var product models.Product
		if errProduct := tx.Where("id = ?", record.ProductID).First(&product).Error; errProduct == nil {
			record.Product = &product
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &record, nil
}

// ExchangeFilter narrows ListExchanges. Zero values mean no filter.
type ExchangeFilter struct {
	StudentID uint64
	Status    models.ExchangeStatus
	Limit     int
	Offset    int
}

// ListExchanges returns matching exchange records newest first, with their products, and the total count.
func (s *Service) ListExchanges(ctx context.Context, filter ExchangeFilter) ([]models.ExchangeRecord, int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	q := s.db.WithContext(ctx).Model(&models.ExchangeRecord{})
	if filter.StudentID != 0 {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("points: count exchange records: %w", errCount)
	}

	var records []models.ExchangeRecord
	q = q.Preload("Product").Order("exchange_date DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if errFind := q.Find(&records).Error; errFind != nil {
		return nil, 0, fmt.Errorf("points: list exchange records: %w", errFind)
	}
	return records, total, nil
}

// GetExchange returns one exchange record with its product.
func (s *Service) GetExchange(ctx context.Context, exchangeID uint64) (*models.ExchangeRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var record models.ExchangeRecord
	if errFind := s.db.WithContext(ctx).
		Preload("Product").
		Where("id = ?", exchangeID).
		First(&record).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrExchangeNotFound
		}
		return nil, fmt.Errorf("points: load exchange record: %w", errFind)
	}
	return &record, nil
}
