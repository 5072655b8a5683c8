package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/httputil"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	log     *zap.Logger
	started time.Time
}

// NewHealthHandler creates the handler. A nil db means the service runs on the
// in-memory store.
func NewHealthHandler(db Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log, started: time.Now()}
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	httputil.Message(w, http.StatusOK, "genshinshop API is running")
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:   "ok",
		Database: "memory",
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	}
	code := http.StatusOK
	if h.db != nil {
		status.Database = "up"
		if err := h.db.Ping(r.Context()); err != nil {
			h.log.Warn("database ping failed", zap.Error(err))
			status.Status = "degraded"
			status.Database = "down"
			code = http.StatusServiceUnavailable
		}
	}
	httputil.WriteJSON(w, code, httputil.Envelope{Success: code == http.StatusOK, Data: status})
}
