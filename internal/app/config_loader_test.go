package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
extractor:
  binary: /usr/local/bin/yt-dlp
  analyze_timeout: 90s
  extra_args: ["--force-ipv4"]
session:
  max_failed_retained: 0
export:
  target: s3
  s3:
    bucket: media
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, "/usr/local/bin/yt-dlp", config.Extractor.Binary)
	assert.Equal(t, 90*time.Second, config.Extractor.AnalyzeTimeout)
	assert.Equal(t, []string{"--force-ipv4"}, config.Extractor.ExtraArgs)
	assert.Equal(t, 0, config.Session.MaxFailedRetained)
	assert.Equal(t, 32*1024, config.Session.ChunkSize)
	assert.Equal(t, "s3", config.Export.Target)
	assert.Equal(t, "media", config.Export.S3.Bucket)
	assert.Equal(t, "us-east-1", config.Export.S3.Region)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("STREAMSAVIOUR_SERVER_PORT", "9100")
	t.Setenv("STREAMSAVIOUR_HISTORY_NAMESPACE", "test-history")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, "test-history", config.History.Namespace)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, "history:\n  database_path: ~/data/history.db\n")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data", "history.db"), config.History.DatabasePath)
	assert.Equal(t, filepath.Join(home, ".streamsaviour", "logs"), config.Logging.LogsDir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port", "server:\n  port: 70000\n"},
		{"chunk size", "session:\n  chunk_size: 0\n"},
		{"negative retention", "session:\n  max_failed_retained: -1\n"},
		{"export target", "export:\n  target: ftp\n"},
		{"s3 without bucket", "export:\n  target: s3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	config := domain.DefaultConfig()
	config.Server.Port = 9300
	config.Session.MaxFailedRetained = 5
	config.Extractor.AnalyzeTimeout = 2 * time.Minute
	config.Notification.Enabled = true

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9300, loaded.Server.Port)
	assert.Equal(t, 5, loaded.Session.MaxFailedRetained)
	assert.Equal(t, 2*time.Minute, loaded.Extractor.AnalyzeTimeout)
	assert.True(t, loaded.Notification.Enabled)
}
