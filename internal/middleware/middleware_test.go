package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/logger"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/metrics"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
)

type stubAuth map[string]*models.Identity

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.Identity, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return nil, apperr.Unauthorized("invalid or expired token")
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	auth := stubAuth{
		"admin-token": {UserID: "a1", Username: "admin", Role: models.RoleAdmin},
		"user-token":  {UserID: "u1", Username: "lumine", Role: models.RoleUser},
	}
	log := zap.NewNop()

	var seen *models.Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Authenticate(auth, log)(Authorize(log, models.RoleAdmin)(inner))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic admin-token", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"user role", "Bearer user-token", http.StatusForbidden},
		{"admin", "Bearer admin-token", http.StatusOK},
		{"lowercase scheme", "bearer admin-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "a1", seen.UserID)
			} else {
				assert.NotEmpty(t, errorBody(t, rec))
			}
		})
	}
}

func TestAuthorizeWithoutIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	Authorize(zap.NewNop(), models.RoleAdmin)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()
	Recovery(zap.NewNop())(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", errorBody(t, rec))
}

func TestRecoveryLogsTraceID(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := TraceID(Recovery(zap.New(core))(panicky))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "trace-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "trace-42", rec.Header().Get(TraceHeader))
	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "trace-42", entries[0].ContextMap()["trace_id"])
}

func TestLoggingKeepsOuterTraceID(t *testing.T) {
	var traceID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = logger.TraceID(r.Context())
	})
	handler := TraceID(Logging(zap.NewNop())(inner))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, traceID)
	assert.Equal(t, traceID, rec.Header().Get(TraceHeader))
}

func TestLoggingTraceID(t *testing.T) {
	var traceID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = logger.TraceID(r.Context())
	})
	handler := Logging(zap.NewNop())(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, traceID)
	assert.Equal(t, traceID, rec.Header().Get(TraceHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", traceID)
	assert.Equal(t, "abc-123", rec.Header().Get(TraceHeader))
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, zap.NewNop())
	handler := rl.Handler(okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"), "separate bucket per client")

	rl.idleTTL = 0
	rl.Cleanup()
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1003"))
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"http://shop.test"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/accounts", nil)
	req.Header.Set("Origin", "http://shop.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://shop.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := mux.NewRouter()
	r.Use(Metrics(m))
	r.HandleFunc("/api/accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/accounts/"+id, nil))
	}

	count, err := testutil.GatherAndCount(m.Registry(), "genshinshop_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one series for the templated route")
}
