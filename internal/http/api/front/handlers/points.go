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

// PointsHandler serves a student's balance, history and attendance.
type PointsHandler struct {
	svc *points.Service
	now func() time.Time
}

// NewPointsHandler constructs a PointsHandler.
func NewPointsHandler(svc *points.Service) *PointsHandler {
	return &PointsHandler{svc: svc, now: time.Now}
}

// Get returns the balance with lifetime totals and today's attendance flag.
func (h *PointsHandler) Get(c *gin.Context) {
	studentID := getStudentID(c)
	if studentID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()
	summary, errSummary := h.svc.Summary(ctx, studentID)
	if errSummary != nil {
		respond.PointsError(c, "load points", errSummary)
		return
	}
	attended, errAttended := h.svc.AttendedToday(ctx, studentID)
	if errAttended != nil {
		respond.PointsError(c, "load points", errAttended)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance":        summary.Balance,
		"total_earned":   summary.TotalEarned,
		"total_spent":    summary.TotalSpent,
		"entries":        summary.Entries,
		"exchanges":      summary.Exchanges,
		"attended_today": attended,
	})
}

// historyQuery defines query parameters for the ledger history.
type historyQuery struct {
	pageQuery
	Type          string `form:"type"`
	ReferenceType string `form:"reference_type"`
}

// History returns the student's ledger entries, newest first.
func (h *PointsHandler) History(c *gin.Context) {
	studentID := getStudentID(c)
	if studentID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var q historyQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	q.normalize()
	txType := models.TransactionType(strings.ToUpper(strings.TrimSpace(q.Type)))
	if txType != "" && !txType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown transaction type"})
		return
	}

	entries, total, errHistory := h.svc.History(c.Request.Context(), studentID, points.HistoryFilter{
		Type:          txType,
		ReferenceType: strings.ToUpper(strings.TrimSpace(q.ReferenceType)),
		Limit:         q.Limit,
		Offset:        q.offset(),
	})
	if errHistory != nil {
		respond.PointsError(c, "load history", errHistory)
		return
	}
	out := make([]gin.H, 0, len(entries))
	for i := range entries {
		out = append(out, serializeEntry(&entries[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": out,
		"total":   total,
		"page":    q.Page,
		"limit":   q.Limit,
	})
}

// attendanceQuery selects a calendar month; zero values mean the current month.
type attendanceQuery struct {
	Year  int `form:"year"`
	Month int `form:"month"`
}

// Attendance returns the days of a month on which the student was credited for attendance.
func (h *PointsHandler) Attendance(c *gin.Context) {
	studentID := getStudentID(c)
	if studentID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var q attendanceQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	now := h.now()
	if q.Year == 0 {
		q.Year = now.Year()
	}
	if q.Month == 0 {
		q.Month = int(now.Month())
	}

	days, errDays := h.svc.AttendanceDays(c.Request.Context(), studentID, q.Year, time.Month(q.Month))
	if errDays != nil {
		respond.PointsError(c, "load attendance", errDays)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"year":  q.Year,
		"month": q.Month,
		"days":  days,
	})
}

// Attend credits today's attendance reward.
func (h *PointsHandler) Attend(c *gin.Context) {
	studentID := getStudentID(c)
	if studentID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	entry, errAttend := h.svc.Attend(c.Request.Context(), studentID)
	if errAttend != nil {
		respond.PointsError(c, "attend", errAttend)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": serializeEntry(entry)})
}
