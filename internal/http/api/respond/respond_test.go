package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/points"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: points.ErrAccountNotFound, want: http.StatusNotFound},
		{err: points.ErrInvalidAmount, want: http.StatusBadRequest},
		{err: points.ErrInsufficientBalance, want: http.StatusPaymentRequired},
		{err: points.ErrOutOfStock, want: http.StatusConflict},
		{err: points.ErrAlreadyUsed, want: http.StatusConflict},
		{err: fmt.Errorf("x: %w", points.ErrDuplicateReward), want: http.StatusConflict},
		{err: points.ErrConcurrentUpdate, want: http.StatusInternalServerError},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v): expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestPointsErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)

	PointsError(c, "exchange", errors.New("pq: connection reset"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]string
	if errDecode := json.Unmarshal(rr.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if body["error"] != "exchange failed" || body["code"] != "internal" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestPointsErrorBusinessCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)

	PointsError(c, "exchange", points.ErrOutOfStock)

	var body map[string]string
	if errDecode := json.Unmarshal(rr.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if rr.Code != http.StatusConflict || body["code"] != "out_of_stock" {
		t.Fatalf("expected 409 out_of_stock, got %d %v", rr.Code, body)
	}
}
