// Package adminapi serves health, metrics and configuration management over HTTP.
package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/observability"
	"ton-buy-tracker/internal/storage"
)

// MetricsSource resolves market snapshots for autofill.
type MetricsSource interface {
	GetOrFetch(ctx context.Context, jetton string, ttl time.Duration) *domain.TokenMetrics
}

// Leaderboard exposes the current ranks, the posted message and an on-demand refresh.
type Leaderboard interface {
	Ranks() *domain.RankTable
	MessageID() int
	Tick(ctx context.Context) error
}

// Controller holds the handlers' dependencies.
type Controller struct {
	Configs     storage.ConfigStore
	Metrics     MetricsSource
	Leaderboard Leaderboard
	Logger      *zap.Logger
	// Ready reports dependency health for /healthz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter returns the admin router.
func (c *Controller) NewRouter() *mux.Router {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", c.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/configs", c.HandleConfigList).Methods(http.MethodGet)
	r.HandleFunc("/configs/{id}", c.HandleConfigGet).Methods(http.MethodGet)
	r.HandleFunc("/configs/{id}", c.HandleConfigPut).Methods(http.MethodPut)
	r.HandleFunc("/configs/{id}/autofill", c.HandleAutofill).Methods(http.MethodPost)

	r.HandleFunc("/leaderboard", c.HandleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard/refresh", c.HandleLeaderboardRefresh).Methods(http.MethodPost)
	return r
}

// NewServer wraps handler in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

// HandleHealth reports liveness and, when configured, dependency readiness.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if c.Ready != nil {
		if err := c.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func groupIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func (c *Controller) storageError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidConfiguration), errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		c.Logger.Error("admin storage error", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
