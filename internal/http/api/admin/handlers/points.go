package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/http/api/respond"
	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/points"
	log "github.com/sirupsen/logrus"
)

// PointsHandler lets staff inspect and adjust student balances.
type PointsHandler struct {
	svc *points.Service // Points service for balance reads and writes.
}

// NewPointsHandler constructs a PointsHandler.
func NewPointsHandler(svc *points.Service) *PointsHandler {
	return &PointsHandler{svc: svc}
}

// Get returns a student's balance summary.
func (h *PointsHandler) Get(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}
	summary, errSummary := h.svc.Summary(c.Request.Context(), studentID)
	if errSummary != nil {
		respond.PointsError(c, "load points", errSummary)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": studentID, "summary": summary})
}

// historyQuery defines query parameters for a student's ledger.
type historyQuery struct {
	pageQuery
	Type          string `form:"type"`           // Optional transaction type filter.
	ReferenceType string `form:"reference_type"` // Optional reference type filter.
}

// History returns a student's ledger entries, newest first.
func (h *PointsHandler) History(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
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

// adjustRequest sets a student's balance to an absolute target.
type adjustRequest struct {
	TargetBalance *int64 `json:"target_balance"` // Desired balance after the adjustment.
	Reason        string `json:"reason"`         // Free-text note stored in the memo.
}

// Adjust moves a student's balance to target_balance with an ADMIN_GIVE or ADMIN_TAKE entry.
func (h *PointsHandler) Adjust(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}
	var body adjustRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.TargetBalance == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing target_balance"})
		return
	}

	adminID := getAdminID(c)
	entry, errAdjust := h.svc.AdminAdjust(c.Request.Context(), studentID, *body.TargetBalance, adminID, strings.TrimSpace(body.Reason))
	if errAdjust != nil {
		respond.PointsError(c, "adjust points", errAdjust)
		return
	}
	log.WithFields(log.Fields{
		"admin_id":   adminID,
		"student_id": studentID,
		"amount":     entry.Amount,
		"balance":    entry.BalanceAfter,
	}).Info("admin adjusted points")
	c.JSON(http.StatusCreated, gin.H{"entry": serializeEntry(entry)})
}

// mealPhotoRequest identifies an approved meal photo.
type mealPhotoRequest struct {
	PhotoID string `json:"photo_id"` // Upstream photo identifier; rewarded at most once.
}

// RewardMealPhoto credits the meal photo reward for an approved photo.
func (h *PointsHandler) RewardMealPhoto(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}
	var body mealPhotoRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	entry, errReward := h.svc.RewardMealPhoto(c.Request.Context(), studentID, strings.TrimSpace(body.PhotoID))
	if errReward != nil {
		respond.PointsError(c, "reward meal photo", errReward)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": serializeEntry(entry)})
}
