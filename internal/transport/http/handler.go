package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quiz-stats-service/internal/app"
	"quiz-stats-service/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statsResponse struct {
	Critical domain.CriticalStats `json:"critical"`
	Deferred domain.DeferredStats `json:"deferred"`
}

// StatsHandler serves the REST stats endpoints.
type StatsHandler struct {
	service *app.StatsService
	logger  *slog.Logger
}

func NewStatsHandler(service *app.StatsService, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{service: service, logger: logger}
}

// NewRouter mounts the REST endpoints and the websocket stream on one mux.
func NewRouter(service *app.StatsService, logger *slog.Logger) http.Handler {
	stats := NewStatsHandler(service, logger)
	stream := NewStreamHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /users/{userID}/stats", stats.HandleAll)
	mux.HandleFunc("GET /users/{userID}/stats/critical", stats.HandleCritical)
	mux.HandleFunc("GET /users/{userID}/stats/deferred", stats.HandleDeferred)
	mux.HandleFunc("GET /users/{userID}/stats/leagues", stats.HandleLeagues)
	mux.HandleFunc("POST /users/{userID}/stats/invalidate", stats.HandleInvalidate)
	mux.HandleFunc("GET /ws/stats", stream.ServeWS)
	return mux
}

// HandleAll returns critical and deferred stats together. The deferred half
// is started before the critical half is awaited.
func (h *StatsHandler) HandleAll(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pending := h.service.StartDeferred(ctx, userID)
	critical, err := h.service.Critical(ctx, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	deferred := <-pending
	if deferred.Err != nil {
		h.writeServiceError(w, deferred.Err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Critical: critical, Deferred: deferred.Stats})
}

func (h *StatsHandler) HandleCritical(w http.ResponseWriter, r *http.Request) {
	critical, err := h.service.Critical(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, critical)
}

func (h *StatsHandler) HandleDeferred(w http.ResponseWriter, r *http.Request) {
	deferred, err := h.service.Deferred(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deferred)
}

func (h *StatsHandler) HandleLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.service.LeagueComparisons(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leagues)
}

func (h *StatsHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.InvalidateUser(r.Context(), r.PathValue("userID")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StatsHandler) writeServiceError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("stats request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidUserID):
		return http.StatusBadRequest, "user id is required"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "stats took too long"
	default:
		return http.StatusInternalServerError, "request failed"
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
