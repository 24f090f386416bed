package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/http/api/respond"
	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/points"
	log "github.com/sirupsen/logrus"
)

// ExchangeHandler lets staff browse exchanges and redeem coupons at the counter.
type ExchangeHandler struct {
	svc *points.Service
	now func() time.Time
}

// NewExchangeHandler constructs an ExchangeHandler.
func NewExchangeHandler(svc *points.Service) *ExchangeHandler {
	return &ExchangeHandler{svc: svc, now: time.Now}
}

// exchangeListQuery filters the admin exchange listing.
type exchangeListQuery struct {
	pageQuery
	StudentID uint64 `form:"student_id"`
	Status    string `form:"status"`
}

// List returns exchange records across students, newest first.
func (h *ExchangeHandler) List(c *gin.Context) {
	var q exchangeListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	q.normalize()
	status := models.ExchangeStatus(strings.ToUpper(strings.TrimSpace(q.Status)))
	if status != "" && status != models.ExchangeUnused && status != models.ExchangeUsed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	records, total, errList := h.svc.ListExchanges(c.Request.Context(), points.ExchangeFilter{
		StudentID: q.StudentID,
		Status:    status,
		Limit:     q.Limit,
		Offset:    q.offset(),
	})
	if errList != nil {
		respond.PointsError(c, "list exchanges", errList)
		return
	}
	now := h.now()
	out := make([]gin.H, 0, len(records))
	for i := range records {
		out = append(out, serializeExchange(&records[i], now))
	}
	c.JSON(http.StatusOK, gin.H{
		"exchanges": out,
		"total":     total,
		"page":      q.Page,
		"limit":     q.Limit,
	})
}

// Use marks any student's exchange as used.
func (h *ExchangeHandler) Use(c *gin.Context) {
	exchangeID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exchange id"})
		return
	}
	record, errUse := h.svc.UseProduct(c.Request.Context(), exchangeID)
	if errUse != nil {
		respond.PointsError(c, "use exchange", errUse)
		return
	}
	log.WithFields(log.Fields{
		"admin_id":    getAdminID(c),
		"exchange_id": record.ID,
		"student_id":  record.StudentID,
	}).Info("exchange redeemed at counter")
	c.JSON(http.StatusOK, gin.H{"exchange": serializeExchange(record, h.now())})
}
