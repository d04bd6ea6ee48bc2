package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/storyreel/storyreel/internal/events"
	"github.com/storyreel/storyreel/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API binds to localhost by default and carries no credentials
	CheckOrigin: func(r *http.Request) bool { return true },
}

// events streams the session's generation events as JSON text frames,
// replaying retained events first.
func (s *Server) events(c *gin.Context) {
	if s.deps.Bus == nil {
		abortWith(c, http.StatusServiceUnavailable, KindInternal, "event stream is disabled")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	id := current(c).sess.ID()
	send := make(chan events.Event, 32)
	stop, err := s.deps.Bus.Subscribe(c.Request.Context(), id, func(ev events.Event) {
		select {
		case send <- ev:
		default:
			logger.Warn("Dropping event for slow WebSocket client on %s", id)
		}
	})
	if err != nil {
		logger.Error("Subscribing WebSocket to %s: %v", id, err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		return
	}
	defer stop()

	// Reader: only control frames are expected; a read error means the
	// client went away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("WebSocket write failed on %s: %v", id, err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
