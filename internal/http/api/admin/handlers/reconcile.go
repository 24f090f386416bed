package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/http/api/respond"
	"github.com/school-portal/portal-backend/internal/points"
)

// ReconcileHandler exposes an on-demand ledger audit.
type ReconcileHandler struct {
	svc *points.Service
}

// NewReconcileHandler constructs a ReconcileHandler.
func NewReconcileHandler(svc *points.Service) *ReconcileHandler {
	return &ReconcileHandler{svc: svc}
}

// reconcileQuery optionally limits the audit to one student.
type reconcileQuery struct {
	StudentID uint64 `form:"student_id"`
}

// Run audits one account or all accounts and returns the mismatches found.
func (h *ReconcileHandler) Run(c *gin.Context) {
	var q reconcileQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}

	ctx := c.Request.Context()
	mismatches := make([]points.Mismatch, 0)
	if q.StudentID != 0 {
		mismatch, errReconcile := h.svc.Reconcile(ctx, q.StudentID)
		if errReconcile != nil {
			respond.PointsError(c, "reconcile", errReconcile)
			return
		}
		if mismatch != nil {
			mismatches = append(mismatches, *mismatch)
		}
	} else {
		all, errReconcile := h.svc.ReconcileAll(ctx)
		if errReconcile != nil {
			respond.PointsError(c, "reconcile", errReconcile)
			return
		}
		mismatches = append(mismatches, all...)
	}

	c.JSON(http.StatusOK, gin.H{
		"consistent": len(mismatches) == 0,
		"mismatches": mismatches,
	})
}
