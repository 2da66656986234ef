package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/streamsaviour-go/internal/app"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

// HistoryHandler handles search history requests
type HistoryHandler struct {
	store *app.HistoryStore
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store *app.HistoryStore) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// ListSearches handles GET /api/v1/history/searches
func (h *HistoryHandler) ListSearches(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Searches(c.Query("q")))
}

// DeleteSearch handles DELETE /api/v1/history/searches/:id
func (h *HistoryHandler) DeleteSearch(c *gin.Context) {
	if !h.store.RemoveSearch(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "search not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "search removed"})
}

// ClearSearches handles DELETE /api/v1/history/searches
func (h *HistoryHandler) ClearSearches(c *gin.Context) {
	h.store.ClearSearches()
	c.JSON(http.StatusOK, gin.H{"message": "search history cleared"})
}

// LibraryHandler handles completed download requests
type LibraryHandler struct {
	store    *app.HistoryStore
	exporter *app.LibraryExporter
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(store *app.HistoryStore, exporter *app.LibraryExporter) *LibraryHandler {
	return &LibraryHandler{
		store:    store,
		exporter: exporter,
	}
}

// ListDownloads handles GET /api/v1/library
func (h *LibraryHandler) ListDownloads(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Downloads())
}

// GetContent handles GET /api/v1/library/:id/content
func (h *LibraryHandler) GetContent(c *gin.Context) {
	item, payload, err := h.exporter.Payload(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := payload.ContentType
	if contentType == "" {
		contentType = domain.DefaultContentType
	}
	c.Header("Content-Disposition", attachment(item.FileName))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, payload.Data)
}

// ExportDownload handles POST /api/v1/library/:id/export
func (h *LibraryHandler) ExportDownload(c *gin.Context) {
	result, err := h.exporter.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteDownload handles DELETE /api/v1/library/:id
func (h *LibraryHandler) DeleteDownload(c *gin.Context) {
	if !h.store.RemoveDownload(c.Param("id")) {
		respondError(c, domain.ErrDownloadNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download removed"})
}

// ClearDownloads handles DELETE /api/v1/library
func (h *LibraryHandler) ClearDownloads(c *gin.Context) {
	h.store.ClearDownloads()
	c.JSON(http.StatusOK, gin.H{"message": "library cleared"})
}
