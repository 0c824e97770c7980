package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"quiz-stats-service/internal/app"
)

const writeWait = 10 * time.Second

// StreamHandler pushes a user's stats over a websocket: critical stats as
// soon as they are ready, then the deferred stats once they resolve.
type StreamHandler struct {
	service  *app.StatsService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewStreamHandler(service *app.StatsService, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS sends exactly two messages ("critical" then "deferred", or an
// "error" in place of either) and closes the connection.
func (h *StreamHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing userId"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client only ever closes; a read error means it went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pending := h.service.StartDeferred(ctx, userID)

	critical, err := h.service.Critical(ctx, userID)
	if err != nil {
		h.sendError(conn, err)
		return
	}
	if !h.send(conn, outboundMessage[any]{Type: "critical", Payload: critical}) {
		return
	}

	select {
	case result := <-pending:
		if result.Err != nil {
			h.sendError(conn, result.Err)
			return
		}
		if !h.send(conn, outboundMessage[any]{Type: "deferred", Payload: result.Stats}) {
			return
		}
	case <-ctx.Done():
		return
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeWait))
}

func (h *StreamHandler) send(conn *websocket.Conn, msg outboundMessage[any]) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn("ws write failed", "type", msg.Type, "error", err)
		return false
	}
	return true
}

func (h *StreamHandler) sendError(conn *websocket.Conn, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("stats stream failed", "error", err)
	}
	h.send(conn, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
}
