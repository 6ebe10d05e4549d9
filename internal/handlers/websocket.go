// -----------------------------------------------------------------------
// WebSocket Handler - progress and log fan-out to dashboard clients
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/common"
	"github.com/ternarybob/libero/internal/models"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every frame sent to WebSocket clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LogEntry is one service log line broadcast to dashboard clients
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// WebSocketHandler fans progress events and service logs out to every
// connected dashboard client. It observes batches; it never drives them,
// so a dead socket can only lose frames, never work.
type WebSocketHandler struct {
	logger              arbor.ILogger
	clients             map[*websocket.Conn]bool
	clientMutex         map[*websocket.Conn]*sync.Mutex
	mu                  sync.RWMutex
	screenshotThrottler *rate.Limiter // Rate limiter for screenshot frames, nil = unthrottled
}

// NewWebSocketHandler creates a WebSocket fan-out handler
func NewWebSocketHandler(config *common.WebSocketConfig, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:      logger,
		clients:     make(map[*websocket.Conn]bool),
		clientMutex: make(map[*websocket.Conn]*sync.Mutex),
	}

	// Screenshot frames are large; throttle them so a fast batch cannot
	// saturate a dashboard connection. Progress and terminal frames are
	// small and always pass.
	if config != nil && config.ScreenshotInterval > 0 {
		h.screenshotThrottler = rate.NewLimiter(rate.Every(config.ScreenshotInterval.Std()), 1)
		logger.Debug().
			Dur("interval", config.ScreenshotInterval.Std()).
			Msg("Throttler initialized for screenshot frames")
	}

	return h
}

// HandleWebSocket handles GET /ws - upgrades the connection and holds it
// open until the client disconnects.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Int("clients", count).Msg("WebSocket client connected")

	// Read loop: clients send nothing meaningful, but reading is how we
	// notice the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.removeClient(conn)
}

// Publish broadcasts a batch progress event to all connected clients.
// Screenshot frames beyond the throttle rate are dropped; terminal events
// are never dropped.
func (h *WebSocketHandler) Publish(ctx context.Context, event models.ProgressEvent) {
	if event.Type == models.EventScreenshot && h.screenshotThrottler != nil {
		if !h.screenshotThrottler.Allow() {
			return
		}
	}

	h.broadcast(WSMessage{
		Type:    "release_progress",
		Payload: event,
	})
}

// BroadcastLog sends a service log line to all connected clients
func (h *WebSocketHandler) BroadcastLog(entry LogEntry) {
	h.broadcast(WSMessage{
		Type:    "log",
		Payload: entry,
	})
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast writes one frame to every client, dropping clients whose
// writes fail.
func (h *WebSocketHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.removeClient(conn)
		}
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	count := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.logger.Info().Int("clients", count).Msg("WebSocket client disconnected")
}
