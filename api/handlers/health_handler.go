package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/streamsaviour-go/internal/app"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

// Version is the server version reported by /health
var Version = "1.0.0"

const readyTimeout = 5 * time.Second

// Pinger checks a backing store is reachable
type Pinger interface {
	Ping() error
}

// VersionReporter reports the version of an external tool
type VersionReporter interface {
	Version(ctx context.Context) (string, error)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	store     *app.HistoryStore
	db        Pinger
	extractor VersionReporter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *app.HistoryStore, db Pinger, extractor VersionReporter) *HealthHandler {
	return &HealthHandler{
		store:     store,
		db:        db,
		extractor: extractor,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions struct {
		Total  int `json:"total"`
		Active int `json:"active"`
	} `json:"sessions"`
	Library int `json:"library"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}

	sessions := h.store.Sessions()
	response.Sessions.Total = len(sessions)
	for _, s := range sessions {
		if s.Status.IsActive() || s.Status == domain.SessionQueued {
			response.Sessions.Active++
		}
	}
	response.Library = len(h.store.Downloads())

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "history database unavailable: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	version, err := h.extractor.Version(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "yt_dlp": version})
}
