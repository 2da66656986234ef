package handlers

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/streamsaviour-go/internal/domain"
)

const streamBufferSize = 32 * 1024

// StreamHandler proxies yt-dlp byte streams to the client
type StreamHandler struct {
	opener domain.StreamOpener
	logger *zap.Logger
	now    func() time.Time
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(opener domain.StreamOpener, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		opener: opener,
		logger: logger,
		now:    time.Now,
	}
}

// StreamQuery holds the query parameters of a stream request
type StreamQuery struct {
	URL      string `form:"url" binding:"required"`
	FormatID string `form:"formatId" binding:"required"`
	Title    string `form:"title"`
	Ext      string `form:"ext"`
}

// Stream handles GET /api/v1/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	var q StreamQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Ext == "" {
		q.Ext = "mp4"
	}

	stream, err := h.opener.OpenStream(c.Request.Context(), domain.StreamRequest{
		URL:      q.URL,
		FormatID: q.FormatID,
		Title:    q.Title,
		Ext:      q.Ext,
	})
	if err != nil {
		h.logger.Error("Failed to open stream", zap.String("url", q.URL), zap.Error(err))
		respondError(c, err)
		return
	}
	defer stream.Body.Close()

	fileName := domain.BuildFileName(q.Title, q.Ext, h.now())
	c.Header("Content-Type", stream.ContentType)
	c.Header("Content-Disposition", attachment(fileName))
	c.Header("Cache-Control", "no-store")
	if stream.ContentLength >= 0 {
		c.Header("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	c.Status(http.StatusOK)

	written, err := io.CopyBuffer(c.Writer, stream.Body, make([]byte, streamBufferSize))
	if err != nil {
		// Headers are gone; all that is left is to cut the response short.
		h.logger.Warn("Stream interrupted",
			zap.String("url", q.URL),
			zap.Int64("written", written),
			zap.Error(err))
		_ = c.Error(err)
		return
	}

	h.logger.Info("Stream finished", zap.String("file_name", fileName), zap.Int64("bytes", written))
}

// attachment formats a Content-Disposition value for fileName
func attachment(fileName string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
}
