// Package ws provides the operator notification endpoint.
package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/switchboard/internal/config"
	"github.com/xiaot623/switchboard/internal/directory"
	"github.com/xiaot623/switchboard/internal/domain"
)

// Server upgrades operator dashboard connections and keeps them in the
// operator directory for the lifetime of the socket.
type Server struct {
	cfg      *config.Config
	dir      *directory.Directory
	upgrader websocket.Upgrader
}

// NewServer creates a new operator WebSocket server.
func NewServer(cfg *config.Config, dir *directory.Directory) *Server {
	return &Server{
		cfg: cfg,
		dir: dir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Dashboard is served from arbitrary origins.
				return true
			},
		},
	}
}

// HandleOperator handles WebSocket upgrade and connection lifecycle for
// one operator.
func (s *Server) HandleOperator(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := newOperatorConn(ws)
	s.dir.Add(conn)
	log.Printf("operator connected (%s), total: %d", conn.id, s.dir.Count())

	if err := conn.Send(domain.ConnectedEvent{
		Type:    domain.EventTypeConnected,
		Message: "Connected to call center",
	}); err != nil {
		log.Printf("WARN: failed to greet operator %s: %v", conn.id, err)
	}

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump consumes inbound frames. Operators don't send application
// messages; the read loop exists to detect disconnects and answer pings.
func (s *Server) readPump(conn *operatorConn) {
	defer func() {
		s.dir.Remove(conn)
		conn.Close()
		log.Printf("operator disconnected (%s), total: %d", conn.id, s.dir.Count())
	}()

	conn.ws.SetReadLimit(s.cfg.MaxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings.
func (s *Server) writePump(conn *operatorConn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-conn.done:
			// Close already sent the close frame.
			return

		case message := <-conn.send:
			if err := conn.writeMessage(websocket.TextMessage, message, s.cfg.WriteTimeout); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			if err := conn.writeMessage(websocket.PingMessage, nil, s.cfg.WriteTimeout); err != nil {
				return
			}
		}
	}
}
