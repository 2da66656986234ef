package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/streamsaviour-go/internal/domain"
)

// ExportResult describes where a library item was written
type ExportResult struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Target   string `json:"target"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

// LibraryExporter copies completed payloads out of the in-memory blob store
type LibraryExporter struct {
	store    *HistoryStore
	blobs    domain.BlobStore
	exporter domain.PayloadExporter
	logger   *zap.Logger
}

// NewLibraryExporter creates a new library exporter
func NewLibraryExporter(store *HistoryStore, blobs domain.BlobStore, exporter domain.PayloadExporter, logger *zap.Logger) *LibraryExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibraryExporter{
		store:    store,
		blobs:    blobs,
		exporter: exporter,
		logger:   logger,
	}
}

// Payload returns a library item together with its bytes. Items loaded from
// a previous run have no payload and yield ErrPayloadUnavailable.
func (e *LibraryExporter) Payload(id string) (domain.DownloadHistoryItem, domain.Payload, error) {
	item, ok := e.store.Download(id)
	if !ok {
		return domain.DownloadHistoryItem{}, domain.Payload{}, domain.ErrDownloadNotFound
	}
	payload, ok := e.blobs.Get(item.BlobRef)
	if !ok {
		return item, domain.Payload{}, fmt.Errorf("%w: %s", domain.ErrPayloadUnavailable, item.FileName)
	}
	return item, payload, nil
}

// Export writes the payload of library item id to the configured target
func (e *LibraryExporter) Export(ctx context.Context, id string) (*ExportResult, error) {
	item, payload, err := e.Payload(id)
	if err != nil {
		return nil, err
	}

	location, err := e.exporter.Export(ctx, item.FileName, payload)
	if err != nil {
		e.logger.Error("Failed to export payload",
			zap.String("id", id),
			zap.String("target", e.exporter.Target()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to export %s: %w", item.FileName, err)
	}

	return &ExportResult{
		ID:       item.ID,
		FileName: item.FileName,
		Target:   e.exporter.Target(),
		Location: location,
		Size:     int64(len(payload.Data)),
	}, nil
}
