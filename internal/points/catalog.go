package points

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/school-portal/portal-backend/internal/models"
	"gorm.io/gorm"
)

// ProductInput carries the editable catalog fields of a product.
type ProductInput struct {
	Name           string
	Description    string
	ImageURL       string
	PointsCost     int64
	Stock          int64
	TotalQuantity  int64
	ExpirationDate *time.Time
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if in.PointsCost <= 0 {
		return fmt.Errorf("%w: points cost must be positive", ErrInvalidInput)
	}
	if in.Stock < 0 || in.TotalQuantity < 0 {
		return fmt.Errorf("%w: stock and total quantity must not be negative", ErrInvalidInput)
	}
	if in.Stock > in.TotalQuantity {
		return fmt.Errorf("%w: stock exceeds total quantity", ErrInvalidInput)
	}
	return nil
}

// CreateProduct adds a catalog item. TotalQuantity defaults to Stock when zero.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.TotalQuantity == 0 {
		in.TotalQuantity = in.Stock
	}
	if errValidate := in.validate(); errValidate != nil {
		return nil, errValidate
	}
	if ctx == nil {
		ctx = context.Background()
	}
	product := &models.Product{
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		ImageURL:       strings.TrimSpace(in.ImageURL),
		PointsCost:     in.PointsCost,
		Stock:          in.Stock,
		TotalQuantity:  in.TotalQuantity,
		ExpirationDate: in.ExpirationDate,
	}
	if errCreate := s.db.WithContext(ctx).Create(product).Error; errCreate != nil {
		return nil, fmt.Errorf("points: create product: %w", errCreate)
	}
	return product, nil
}

// UpdateProduct replaces the catalog fields of a product under its lock.
func (s *Service) UpdateProduct(ctx context.Context, productID uint64, in ProductInput) (*models.Product, error) {
	if errValidate := in.validate(); errValidate != nil {
		return nil, errValidate
	}
	unlock, errLock := s.lock(ctx, productKey(productID))
	if errLock != nil {
		return nil, errLock
	}
	defer unlock()

	var product *models.Product
	errTx := s.inTx(ctx, func(tx *gorm.DB) error {
		current, errProduct := lockProduct(tx, productID)
		if errProduct != nil {
			return errProduct
		}
		updates := map[string]any{
			"name":            strings.TrimSpace(in.Name),
			"description":     strings.TrimSpace(in.Description),
			"image_url":       strings.TrimSpace(in.ImageURL),
			"points_cost":     in.PointsCost,
			"stock":           in.Stock,
			"total_quantity":  in.TotalQuantity,
			"expiration_date": in.ExpirationDate,
			"updated_at":      s.clock(),
		}
		if errUpdate := tx.Model(current).Updates(updates).Error; errUpdate != nil {
			return fmt.Errorf("points: update product: %w", errUpdate)
		}
		product = current
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return s.GetProduct(ctx, product.ID)
}

// Restock adds quantity units to both stock and total quantity.
func (s *Service) Restock(ctx context.Context, productID uint64, quantity int64) (*models.Product, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: restock quantity must be positive", ErrInvalidInput)
	}
	unlock, errLock := s.lock(ctx, productKey(productID))
	if errLock != nil {
		return nil, errLock
	}
	defer unlock()

	errTx := s.inTx(ctx, func(tx *gorm.DB) error {
		if _, errProduct := lockProduct(tx, productID); errProduct != nil {
			return errProduct
		}
		return tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Updates(map[string]any{
				"stock":          gorm.Expr("stock + ?", quantity),
				"total_quantity": gorm.Expr("total_quantity + ?", quantity),
				"updated_at":     s.clock(),
			}).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return s.GetProduct(ctx, productID)
}

// DeleteProduct removes a product that was never exchanged.
func (s *Service) DeleteProduct(ctx context.Context, productID uint64) error {
	unlock, errLock := s.lock(ctx, productKey(productID))
	if errLock != nil {
		return errLock
	}
	defer unlock()

	return s.inTx(ctx, func(tx *gorm.DB) error {
		if _, errProduct := lockProduct(tx, productID); errProduct != nil {
			return errProduct
		}
		var used int64
		if errCount := tx.Model(&models.ExchangeRecord{}).
			Where("product_id = ?", productID).
			Count(&used).Error; errCount != nil {
			return fmt.Errorf("points: count product exchanges: %w", errCount)
		}
		if used > 0 {
			return ErrProductInUse
		}
		if errDelete := tx.Delete(&models.Product{}, productID).Error; errDelete != nil {
			return fmt.Errorf("points: delete product: %w", errDelete)
		}
		return nil
	})
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, productID uint64) (*models.Product, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var product models.Product
	if errFind := s.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("points: load product: %w", errFind)
	}
	return &product, nil
}

// ListProducts returns the catalog ordered by id. When inStockOnly is set, sold-out items are skipped.
func (s *Service) ListProducts(ctx context.Context, inStockOnly bool) ([]models.Product, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if inStockOnly {
		q = q.Where("stock > 0")
	}
	var products []models.Product
	if errFind := q.Order("id ASC").Find(&products).Error; errFind != nil {
		return nil, fmt.Errorf("points: list products: %w", errFind)
	}
	return products, nil
}
