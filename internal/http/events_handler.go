package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/skillswap/internal/notify"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// EventStreamHandler streams the caller's committed events over a WebSocket.
type EventStreamHandler struct {
	subscriber   notify.Subscriber
	upgrader     websocket.Upgrader
	responder    responder
	logger       *slog.Logger
	pingInterval time.Duration
}

// NewEventStreamHandler returns a handler reading from subscriber. Any origin
// may upgrade; access is gated by the identity token.
func NewEventStreamHandler(subscriber notify.Subscriber, logger *slog.Logger) *EventStreamHandler {
	base := defaultLogger(logger)
	return &EventStreamHandler{
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		responder:    newResponder(base),
		logger:       base,
		pingInterval: pingInterval,
	}
}

// Stream subscribes before upgrading, so a refused subscription is answered
// with a plain HTTP error, then forwards frames until either side goes away.
func (h *EventStreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.subscriber == nil {
		unavailable(w)
		return
	}

	principal := principalFrom(r)
	logger := handlerLogger(r.Context(), h.logger, "EventStreamHandler", "Stream")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe, err := h.subscriber.Subscribe(ctx, principal.UserID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	logger.InfoContext(ctx, "event stream opened")
	defer logger.InfoContext(ctx, "event stream closed")

	// Incoming frames are only read to observe close and pong messages.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case payload, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription ended"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.DebugContext(ctx, "event stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
