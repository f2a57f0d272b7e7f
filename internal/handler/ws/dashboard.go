package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	xlogger "KiranaCash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// DashboardHub pushes every computed forecast to connected dashboards.
// Slow clients are dropped rather than blocking the broadcaster.
type DashboardHub struct {
	logger       *xlogger.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewDashboardHub(logger *xlogger.Logger, pingInterval, writeTimeout time.Duration) *DashboardHub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &DashboardHub{
		logger:       logger,
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *DashboardHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/dashboard", h.Serve)
}

// Clients returns the number of connected dashboards.
func (h *DashboardHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends v as JSON to every dashboard. The last message is
// replayed to dashboards that connect later.
func (h *DashboardHub) Broadcast(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("dashboard encode failed", xlogger.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = b
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *DashboardHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := &client{conn: conn, send: make(chan []byte, 8)}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	if h.last != nil {
		cl.send <- h.last
	}
	h.mu.Unlock()
	h.logger.Debug("dashboard connected", xlogger.String("remote", c.RealIP()))

	go h.readLoop(cl)
	h.writeLoop(cl)
	return nil
}

// readLoop discards client frames and unregisters on close.
func (h *DashboardHub) readLoop(cl *client) {
	defer h.remove(cl)
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *DashboardHub) writeLoop(cl *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(cl)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(cl)
				return
			}
		}
	}
}

func (h *DashboardHub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}
