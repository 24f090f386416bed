package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/models"
)

// getStudentID extracts the student ID from gin context.
func getStudentID(c *gin.Context) uint64 {
	val, exists := c.Get("studentID")
	if !exists {
		return 0
	}
	switch v := val.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case uint:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// pageQuery defines common pagination parameters.
type pageQuery struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

func (q *pageQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}
}

func (q pageQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

func serializeEntry(entry *models.LedgerEntry) gin.H {
	out := gin.H{
		"id":               entry.ID,
		"transaction_type": entry.TransactionType,
		"amount":           entry.Amount,
		"balance_after":    entry.BalanceAfter,
		"reference_type":   entry.ReferenceType,
		"reference_id":     entry.ReferenceID,
		"created_at":       entry.CreatedAt,
	}
	if entry.ExpiresAt != nil {
		out["expires_at"] = entry.ExpiresAt
	}
	return out
}

func serializeProduct(product *models.Product) gin.H {
	return gin.H{
		"id":              product.ID,
		"name":            product.Name,
		"description":     product.Description,
		"image_url":       product.ImageURL,
		"points_cost":     product.PointsCost,
		"stock":           product.Stock,
		"total_quantity":  product.TotalQuantity,
		"expiration_date": product.ExpirationDate,
	}
}

func serializeExchange(record *models.ExchangeRecord, now time.Time) gin.H {
	out := gin.H{
		"id":              record.ID,
		"product_id":      record.ProductID,
		"code":            record.Code,
		"points_spent":    record.PointsSpent,
		"status":          record.Status,
		"exchange_date":   record.ExchangeDate,
		"expiration_date": record.ExpirationDate,
		"usage_date":      record.UsageDate,
		"expired":         record.Expired(now),
	}
	if record.Product != nil {
		out["product"] = serializeProduct(record.Product)
	}
	return out
}
