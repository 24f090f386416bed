package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTransactionSplitsDirections(t *testing.T) {
	m := New()
	m.ObserveTransaction("EARN", 20)
	m.ObserveTransaction("EXCHANGE", -300)

	if got := testutil.ToFloat64(m.TransactionsTotal.WithLabelValues("EARN")); got != 1 {
		t.Fatalf("expected 1 EARN transaction, got %v", got)
	}
	if got := testutil.ToFloat64(m.PointsMovedTotal.WithLabelValues("debit")); got != 300 {
		t.Fatalf("expected 300 debited, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTransaction("EARN", 1)
	m.ObserveExchange(OutcomeSuccess, "")
	m.SetMismatchedAccounts(3)
	m.ObserveDuration(time.Second)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveExchange(OutcomeFailure, "out_of_stock")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `portal_exchanges_total{outcome="failure",reason="out_of_stock"} 1`) {
		t.Fatalf("expected exchange counter in output, got %s", w.Body.String())
	}
}
