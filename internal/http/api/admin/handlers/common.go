package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/models"
)

// getAdminID extracts the admin ID from gin context.
func getAdminID(c *gin.Context) uint64 {
	val, exists := c.Get("adminID")
	if !exists {
		return 0
	}
	id, ok := val.(uint64)
	if !ok {
		return 0
	}
	return id
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// pageQuery defines common pagination parameters.
type pageQuery struct {
	Page  int `form:"page,default=1"`   // 1-based page number.
	Limit int `form:"limit,default=50"` // Page size, capped at 200.
}

func (q *pageQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 200 {
		q.Limit = 50
	}
}

func (q pageQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

func serializeEntry(entry *models.LedgerEntry) gin.H {
	return gin.H{
		"id":               entry.ID,
		"student_id":       entry.StudentID,
		"transaction_type": entry.TransactionType,
		"amount":           entry.Amount,
		"balance_after":    entry.BalanceAfter,
		"reference_type":   entry.ReferenceType,
		"reference_id":     entry.ReferenceID,
		"dedupe_key":       entry.DedupeKey,
		"memo":             entry.Memo,
		"expires_at":       entry.ExpiresAt,
		"created_at":       entry.CreatedAt,
	}
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
		"created_at":      product.CreatedAt,
		"updated_at":      product.UpdatedAt,
	}
}

func serializeExchange(record *models.ExchangeRecord, now time.Time) gin.H {
	out := gin.H{
		"id":              record.ID,
		"student_id":      record.StudentID,
		"product_id":      record.ProductID,
		"ledger_entry_id": record.LedgerEntryID,
		"code":            record.Code,
		"points_spent":    record.PointsSpent,
		"status":          record.Status,
		"exchange_date":   record.ExchangeDate,
		"expiration_date": record.ExpirationDate,
		"usage_date":      record.UsageDate,
		"expired":         record.Expired(now),
	}
	if record.Product != nil {
		out["product_name"] = record.Product.Name
	}
	return out
}
