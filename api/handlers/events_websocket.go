package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/streamsaviour-go/internal/app"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

const (
	eventBufferSize = 256
	pingInterval    = 30 * time.Second
	writeTimeout    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Same policy as the CORS middleware
	},
}

// SnapshotMessage is the first message of every event feed
type SnapshotMessage struct {
	Kind      string                       `json:"kind"`
	Sessions  []domain.DownloadSession     `json:"sessions"`
	Downloads []domain.DownloadHistoryItem `json:"downloads"`
	Searches  []domain.SearchHistoryEntry  `json:"searches"`
}

// EventsHandler streams history store changes over WebSocket
type EventsHandler struct {
	store  *app.HistoryStore
	logger *zap.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(store *app.HistoryStore, log *zap.Logger) *EventsHandler {
	return &EventsHandler{
		store:  store,
		logger: log,
	}
}

// HandleWebSocket handles GET /api/v1/sessions/events. A client that falls
// behind by more than eventBufferSize events is disconnected and should
// reconnect for a fresh snapshot.
func (h *EventsHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events := make(chan app.StoreEvent, eventBufferSize)
	overflow := make(chan struct{})
	var overflowOnce sync.Once

	// Subscribe before taking the snapshot so no change is lost in between.
	unsubscribe := h.store.Subscribe(func(event app.StoreEvent) {
		select {
		case events <- event:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	})
	defer unsubscribe()

	h.logger.Info("WebSocket client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	snapshot := SnapshotMessage{
		Kind:      "snapshot",
		Sessions:  h.store.Sessions(),
		Downloads: h.store.Downloads(),
		Searches:  h.store.Searches(""),
	}
	if err := h.write(conn, snapshot); err != nil {
		h.logger.Error("Failed to send snapshot", zap.Error(err))
		return
	}

	// Read messages from client to notice disconnects
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-events:
			if err := h.write(conn, event); err != nil {
				h.logger.Warn("Failed to send store event", zap.Error(err))
				return
			}

		case <-overflow:
			h.logger.Warn("WebSocket client too slow, closing", zap.String("remote_addr", c.Request.RemoteAddr))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "event buffer overflow"),
				time.Now().Add(writeTimeout))
			return

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}

		case <-done:
			h.logger.Info("WebSocket client disconnected", zap.String("remote_addr", c.Request.RemoteAddr))
			return
		}
	}
}

func (h *EventsHandler) write(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}
