package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gadzooks/weather-api/internal/observability"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	var gotCtxID string
	handler := CorrelationIDMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCtxID = observability.CorrelationID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	headerID := rec.Header().Get("X-Correlation-ID")
	if headerID == "" {
		t.Fatal("no X-Correlation-ID header set")
	}
	if gotCtxID != headerID {
		t.Errorf("context id %q != header id %q", gotCtxID, headerID)
	}
}

func TestCorrelationIDMiddleware_HonorsIncomingID(t *testing.T) {
	handler := CorrelationIDMiddleware(zap.NewNop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "incoming-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != "incoming-42" {
		t.Errorf("X-Correlation-ID = %q, want incoming-42", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(1), 2)
	handler := RateLimitMiddleware(limiter)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests got %v, want 200s", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", codes[2])
	}
}

func TestRateLimitMiddleware_NilLimiterDisabled(t *testing.T) {
	handler := RateLimitMiddleware(nil)(okHandler())

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i, rec.Code)
		}
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadlineSet bool
	handler := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadlineSet = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !deadlineSet {
		t.Error("no deadline on request context")
	}
}

func TestStatusCodeString(t *testing.T) {
	if got := statusCodeString(204); got != "2xx" {
		t.Errorf("statusCodeString(204) = %s", got)
	}
	if got := statusCodeString(503); got != "5xx" {
		t.Errorf("statusCodeString(503) = %s", got)
	}
}
