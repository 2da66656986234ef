package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8090, config.Server.Port)
	assert.Equal(t, "yt-dlp", config.Extractor.Binary)
	assert.Equal(t, 60*time.Second, config.Extractor.AnalyzeTimeout)
	assert.Equal(t, "streamsaviour-history", config.History.Namespace)
	assert.Equal(t, 32*1024, config.Session.ChunkSize)
	assert.Equal(t, 50, config.Session.MaxFailedRetained)
	assert.Equal(t, "local", config.Export.Target)
	assert.False(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}
