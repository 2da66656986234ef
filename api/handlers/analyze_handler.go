package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/streamsaviour-go/internal/domain"
)

// AnalyzeHandler handles URL analysis requests
type AnalyzeHandler struct {
	extractor domain.MetadataExtractor
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(extractor domain.MetadataExtractor, timeout time.Duration, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		extractor: extractor,
		timeout:   timeout,
		logger:    logger,
	}
}

// AnalyzeRequest represents a request to analyze a URL
type AnalyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

// AnalyzeResponse carries the filtered metadata and its quality buckets
type AnalyzeResponse struct {
	Metadata *domain.MediaMetadata `json:"metadata"`
	Buckets  domain.FormatBuckets  `json:"buckets"`
}

// Analyze handles POST /api/v1/analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := domain.FormatFilter(c.DefaultQuery("filter", string(domain.FilterAll)))
	if !domain.ValidateFormatFilter(filter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filter must be one of all, video, audio"})
		return
	}

	meta, err := analyzeWithTimeout(c.Request.Context(), h.extractor, h.timeout, req.URL)
	if err != nil {
		h.logger.Warn("Analyze failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": analyzeMessage(err)})
		return
	}

	filtered := *meta
	filtered.Formats = domain.FilterFormats(meta.Formats, filter)

	c.JSON(http.StatusOK, AnalyzeResponse{
		Metadata: &filtered,
		Buckets:  domain.BucketFormats(filtered.Formats),
	})
}

// analyzeWithTimeout bounds one extractor call
func analyzeWithTimeout(ctx context.Context, extractor domain.MetadataExtractor, timeout time.Duration, url string) (*domain.MediaMetadata, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return extractor.Analyze(ctx, url)
}

func analyzeMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return "Please enter a valid http(s) URL."
	case errors.Is(err, context.DeadlineExceeded):
		return "Analysis timed out."
	default:
		return messageFor(err)
	}
}
