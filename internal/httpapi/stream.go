// ABOUTME: Websocket endpoint streaming live fatigue alerts from the hub.
// ABOUTME: Clients may filter by driver_id; pings keep idle connections alive.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/drivewatch/internal/models"
	"go.uber.org/zap"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is the envelope written to websocket clients.
type StreamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (s *Server) streamAlerts(c *gin.Context) {
	if s.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert stream disabled"})
		return
	}

	var filter uuid.UUID
	if raw := c.Query("driver_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid driver_id")
			return
		}
		filter = id
	}

	// Subscribe before the handshake completes so no event is missed.
	events, cancel := s.hub.Subscribe(0)
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade websocket connection", zap.Error(err))
		return
	}
	defer conn.Close()

	clientIP := c.ClientIP()
	s.logger.Info("alert stream client connected", zap.String("client_ip", clientIP))
	defer s.logger.Info("alert stream client disconnected", zap.String("client_ip", clientIP))

	done := make(chan struct{})
	go readPump(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filter != uuid.Nil && ev.DriverID != filter {
				continue
			}
			if err := writeAlert(conn, ev); err != nil {
				s.logger.Warn("failed to write alert", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeAlert(conn *websocket.Conn, ev models.AlertEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(StreamMessage{Type: "alert", Data: ev})
}

// readPump drains client frames so pongs and close messages are processed.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
