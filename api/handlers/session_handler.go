package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/streamsaviour-go/internal/app"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

// SessionHandler handles download session requests
type SessionHandler struct {
	controller *app.SessionController
	store      *app.HistoryStore
	extractor  domain.MetadataExtractor
	timeout    time.Duration
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	controller *app.SessionController,
	store *app.HistoryStore,
	extractor domain.MetadataExtractor,
	timeout time.Duration,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		store:      store,
		extractor:  extractor,
		timeout:    timeout,
		logger:     logger,
	}
}

// StartSessionRequest represents a request to start a download. Metadata is
// the result of an earlier analyze call; the URL is analyzed again when it
// is missing.
type StartSessionRequest struct {
	URL      string                `json:"url" binding:"required"`
	FormatID string                `json:"format_id" binding:"required"`
	Metadata *domain.MediaMetadata `json:"metadata,omitempty"`
}

// StartSession handles POST /api/v1/sessions
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := domain.ValidateURL(req.URL); err != nil {
		respondError(c, err)
		return
	}

	meta := req.Metadata
	if meta == nil {
		analyzed, err := analyzeWithTimeout(c.Request.Context(), h.extractor, h.timeout, req.URL)
		if err != nil {
			h.logger.Warn("Analyze before start failed", zap.String("url", req.URL), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": analyzeMessage(err)})
			return
		}
		meta = analyzed
	}

	format, ok := meta.FindFormat(req.FormatID)
	if !ok {
		respondError(c, fmt.Errorf("%w: %s", domain.ErrFormatNotFound, req.FormatID))
		return
	}

	id, err := h.controller.StartSession(app.StartRequest{
		URL:      req.URL,
		Metadata: meta,
		Format:   format,
	})
	if err != nil {
		h.logger.Error("Failed to start session", zap.String("url", req.URL), zap.Error(err))
		respondError(c, err)
		return
	}

	session, ok := h.store.Session(id)
	if !ok {
		// Removed before we could read it back.
		c.JSON(http.StatusAccepted, gin.H{"id": id})
		return
	}
	c.JSON(http.StatusAccepted, session)
}

// ListSessions handles GET /api/v1/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Sessions())
}

// GetSession handles GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, ok := h.store.Session(c.Param("id"))
	if !ok {
		respondError(c, domain.ErrSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, session)
}

// PauseSession handles POST /api/v1/sessions/:id/pause
func (h *SessionHandler) PauseSession(c *gin.Context) {
	h.control(c, "paused", h.controller.PauseSession)
}

// ResumeSession handles POST /api/v1/sessions/:id/resume
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	h.control(c, "resumed", h.controller.ResumeSession)
}

// CancelSession handles POST /api/v1/sessions/:id/cancel
func (h *SessionHandler) CancelSession(c *gin.Context) {
	h.control(c, "cancelled", h.controller.CancelSession)
}

// DeleteSession handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.controller.RemoveSession(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session removed"})
}

// control runs a controller action and answers with the resulting session
func (h *SessionHandler) control(c *gin.Context, verb string, action func(id string) error) {
	id := c.Param("id")
	if err := action(id); err != nil {
		h.logger.Warn("Session control rejected",
			zap.String("id", id),
			zap.String("action", verb),
			zap.Error(err))
		respondError(c, err)
		return
	}

	session, ok := h.store.Session(id)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"message": "session " + verb})
		return
	}
	c.JSON(http.StatusOK, session)
}
