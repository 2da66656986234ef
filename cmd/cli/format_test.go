package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/streamsaviour-go/internal/app"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(1536*1024))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[##########]", progressBar(100, 10))
	assert.Equal(t, "[#####.....]", progressBar(50, 10))
	assert.Equal(t, "[..........]", progressBar(-5, 10))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a long ...", truncate("a long title here", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("abcdef", 0))
	assert.Equal(t, "", truncate("abcdef", -1))
}

func TestLibraryRow(t *testing.T) {
	height, width := 720, 1280
	item := domain.DownloadHistoryItem{
		ID:           "0123456789abcdef",
		DownloadedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local),
		Format:       domain.HistoryFormat{FormatID: "22", Ext: "mp4", Height: &height, Width: &width},
		FileName:     "clip-1709296200000.mp4",
		Size:         2048,
	}

	cols := strings.Split(libraryRow(item), "\t")
	assert.Equal(t, []string{"01234567", "2024-03-01 12:30", "2.0 KiB", "720p", "clip-1709296200000.mp4"}, cols)

	item.Format = domain.HistoryFormat{FormatID: "140", Ext: "m4a", FormatNote: "medium"}
	assert.Equal(t, "medium", strings.Split(libraryRow(item), "\t")[3])

	item.Format = domain.HistoryFormat{FormatID: "140", Ext: "m4a"}
	assert.Equal(t, "140", strings.Split(libraryRow(item), "\t")[3])
}

func TestApiDo_DecodesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions/missing/pause", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	}))
	defer server.Close()

	old := serverURL
	serverURL = server.URL
	defer func() { serverURL = old }()

	body, status, err := apiDo(http.MethodPost, "/api/v1/sessions/missing/pause", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "session not found", errorText(body, status))
	assert.Equal(t, "Bad Gateway", errorText(nil, http.StatusBadGateway))
}

func TestEventsURL(t *testing.T) {
	u, err := eventsURL("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/v1/sessions/events", u)

	u, err = eventsURL("https://media.example.com")
	require.NoError(t, err)
	assert.Equal(t, "wss://media.example.com/api/v1/sessions/events", u)
}

func TestDescribeEvent(t *testing.T) {
	total := int64(1000)
	line := describeEvent(app.StoreEvent{
		Kind: app.EventSessionUpdated,
		Session: &domain.DownloadSession{
			ID:              "0123456789",
			Status:          domain.SessionDownloading,
			Progress:        50,
			DownloadedBytes: 500,
			TotalBytes:      &total,
		},
	})
	assert.Contains(t, line, "01234567")
	assert.Contains(t, line, "downloading")
	assert.Contains(t, line, " 50%")

	assert.Empty(t, describeEvent(app.StoreEvent{Kind: app.EventSearchesChanged}))
	assert.Equal(t, "abc  removed", describeEvent(app.StoreEvent{Kind: app.EventSessionRemoved, ID: "abc"}))
}

func TestFileNameFromDisposition(t *testing.T) {
	assert.Equal(t, "clip-1.mp4", fileNameFromDisposition(`attachment; filename="clip-1.mp4"`, "id"))
	assert.Equal(t, "passwd", fileNameFromDisposition(`attachment; filename="../../etc/passwd"`, "id"))
	assert.Equal(t, "id", fileNameFromDisposition("", "id"))
}

func TestServerBinaryCandidates_EnvFirst(t *testing.T) {
	t.Setenv(serverBinaryEnv, "/opt/streamsaviour/bin/server")
	candidates := serverBinaryCandidates()
	require.NotEmpty(t, candidates)
	assert.Equal(t, "/opt/streamsaviour/bin/server", candidates[0])
}

func TestServerHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	}))
	defer server.Close()

	old := serverURL
	defer func() { serverURL = old }()

	serverURL = server.URL
	assert.True(t, serverHealthy())

	serverURL = "http://127.0.0.1:1"
	assert.False(t, serverHealthy())
}
