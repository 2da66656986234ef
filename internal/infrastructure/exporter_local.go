package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/streamsaviour-go/internal/domain"
	"go.uber.org/zap"
)

// LocalExporter writes library payloads into a directory
type LocalExporter struct {
	dir    string
	logger *zap.Logger
}

// NewLocalExporter creates an exporter rooted at dir
func NewLocalExporter(dir string, log *zap.Logger) *LocalExporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalExporter{dir: dir, logger: log}
}

// Target names the export destination kind
func (e *LocalExporter) Target() string {
	return "local"
}

// Export writes payload to dir/fileName and returns the absolute path. The
// file is written under a temporary name first so readers never see a
// partial file.
func (e *LocalExporter) Export(ctx context.Context, fileName string, payload domain.Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fileName == "" || filepath.Base(fileName) != fileName {
		return "", fmt.Errorf("invalid export file name %q", fileName)
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	destPath, err := filepath.Abs(filepath.Join(e.dir, fileName))
	if err != nil {
		return "", err
	}
	tmpPath := destPath + ".part"
	if err := os.WriteFile(tmpPath, payload.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move export file: %w", err)
	}

	e.logger.Info("Exported payload",
		zap.String("path", destPath),
		zap.Int("size", len(payload.Data)))
	return destPath, nil
}
