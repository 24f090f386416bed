// Package respond maps points errors onto HTTP responses.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/points"
	log "github.com/sirupsen/logrus"
)

// StatusFor returns the HTTP status for a points error.
func StatusFor(err error) int {
	switch points.KindOf(err) {
	case points.KindNotFound:
		return http.StatusNotFound
	case points.KindInvalidInput:
		return http.StatusBadRequest
	case points.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case points.KindOutOfStock, points.KindAlreadyUsed, points.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// codeFor returns a stable machine-readable code for the error body.
func codeFor(err error) string {
	switch {
	case errors.Is(err, points.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, points.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, points.ErrExchangeNotFound):
		return "exchange_not_found"
	case errors.Is(err, points.ErrDuplicateReward):
		return "duplicate_reward"
	case errors.Is(err, points.ErrProductInUse):
		return "product_in_use"
	case errors.Is(err, points.ErrUsernameTaken):
		return "username_taken"
	default:
		return points.KindOf(err).String()
	}
}

// PointsError writes err as JSON. Internal errors are logged and reported as action failures.
func PointsError(c *gin.Context, action string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("request_id", c.GetString("requestID")).Errorf("%s failed", action)
		c.JSON(status, gin.H{"error": action + " failed", "code": "internal"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": codeFor(err)})
}
