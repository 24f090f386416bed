package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/http/api/respond"
	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/points"
)

// ExchangeHandler serves a student's exchange records.
type ExchangeHandler struct {
	svc *points.Service
	now func() time.Time
}

// NewExchangeHandler constructs an ExchangeHandler.
func NewExchangeHandler(svc *points.Service) *ExchangeHandler {
	return &ExchangeHandler{svc: svc, now: time.Now}
}

// exchangeListQuery defines query parameters for listing exchange records.
type exchangeListQuery struct {
	pageQuery
	Status string `form:"status"`
}

// List returns the student's exchange records, newest first.
func (h *ExchangeHandler) List(c *gin.Context) {
	studentID := getStudentID(c)
	if studentID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
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
		StudentID: studentID,
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

// Use marks one of the student's exchange records as used.
func (h *ExchangeHandler) Use(c *gin.Context) {
	studentID := getStudentID(c)
	if studentID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	exchangeID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exchange id"})
		return
	}
	record, errUse := h.svc.UseProductFor(c.Request.Context(), studentID, exchangeID)
	if errUse != nil {
		respond.PointsError(c, "use exchange", errUse)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": serializeExchange(record, h.now())})
}
