package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// StreamHandler serves a user's progress events over a websocket.
type StreamHandler struct {
	hub            *Hub
	originPatterns []string
}

// NewStreamHandler creates a websocket handler reading from hub. Cross-origin
// browsers are accepted only for hosts matching originPatterns.
func NewStreamHandler(hub *Hub, originPatterns ...string) *StreamHandler {
	return &StreamHandler{hub: hub, originPatterns: originPatterns}
}

// ServeUser upgrades the request and writes each progress event for userID
// as a JSON text message until the client disconnects or the hub closes.
func (h *StreamHandler) ServeUser(w http.ResponseWriter, r *http.Request, userID string) {
	// The server's WriteTimeout would otherwise outlive the upgrade.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "user_id", userID, "error", err)
		return
	}
	defer conn.CloseNow()

	sub := h.hub.Subscribe(userID)
	defer sub.Close()

	slog.Info("progress stream opened", "user_id", userID)
	defer slog.Info("progress stream closed", "user_id", userID)

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, ok := <-sub.C():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, event)
			cancel()
			if err != nil {
				slog.Debug("progress stream write failed", "user_id", userID, "error", err)
				return
			}
		}
	}
}
