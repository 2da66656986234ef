package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

func setupTestRepo(t *testing.T, namespace string) (*SQLiteHistoryRepository, string, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "repo-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "history.db")
	repo, err := NewSQLiteHistoryRepository(dbPath, namespace)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, dbPath, cleanup
}

func TestLoad_EmptyDatabase(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t, "streamsaviour-history")
	defer cleanup()

	snapshot, err := repo.Load()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Empty(t, snapshot.Searches)
	assert.Empty(t, snapshot.Downloads)

	last, err := repo.LastSaved()
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}

func TestSave_RoundTrip(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t, "streamsaviour-history")
	defer cleanup()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshot := &domain.HistorySnapshot{
		Searches: []domain.SearchHistoryEntry{
			domain.NewSearchHistoryEntry("https://example.com/v/1", &domain.MetadataSummary{Title: "Clip"}, now),
		},
		Downloads: []domain.DownloadHistoryItem{{
			ID:           "s-1",
			Title:        "Clip",
			URL:          "https://example.com/v/1",
			DownloadedAt: now,
			Format:       domain.HistoryFormat{FormatID: "18", Ext: "mp4"},
			FileName:     "clip-1709294400000.mp4",
			Size:         1000,
			BlobRef:      "blob:abc",
		}},
	}
	require.NoError(t, repo.Save(snapshot))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Searches, 1)
	assert.Equal(t, "Clip", loaded.Searches[0].Metadata.Title)
	require.Len(t, loaded.Downloads, 1)
	assert.Equal(t, int64(1000), loaded.Downloads[0].Size)
	assert.Equal(t, "18", loaded.Downloads[0].Format.FormatID)
	assert.True(t, now.Equal(loaded.Downloads[0].DownloadedAt))
}

func TestSave_ReplacesPreviousSnapshot(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t, "streamsaviour-history")
	defer cleanup()

	require.NoError(t, repo.Save(&domain.HistorySnapshot{
		Searches: []domain.SearchHistoryEntry{{ID: "a", URL: "https://example.com/a"}},
	}))
	require.NoError(t, repo.Save(&domain.HistorySnapshot{
		Searches: []domain.SearchHistoryEntry{{ID: "b", URL: "https://example.com/b"}},
	}))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Searches, 1)
	assert.Equal(t, "b", loaded.Searches[0].ID)

	var count int64
	require.NoError(t, repo.db.Model(&HistoryRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLoad_SurvivesReopen(t *testing.T) {
	repo, dbPath, cleanup := setupTestRepo(t, "streamsaviour-history")
	defer cleanup()

	require.NoError(t, repo.Save(&domain.HistorySnapshot{
		Downloads: []domain.DownloadHistoryItem{{ID: "s-1", Title: "Clip"}},
	}))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteHistoryRepository(dbPath, "streamsaviour-history")
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Downloads, 1)
	assert.Equal(t, "Clip", loaded.Downloads[0].Title)
}

func TestLoad_NamespacesAreIsolated(t *testing.T) {
	repo, dbPath, cleanup := setupTestRepo(t, "streamsaviour-history")
	defer cleanup()

	require.NoError(t, repo.Save(&domain.HistorySnapshot{
		Searches: []domain.SearchHistoryEntry{{ID: "a", URL: "https://example.com/a"}},
	}))

	other, err := NewSQLiteHistoryRepository(dbPath, "other")
	require.NoError(t, err)
	defer other.Close()

	loaded, err := other.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Searches)
}

func TestLoad_CorruptPayload(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t, "streamsaviour-history")
	defer cleanup()

	require.NoError(t, repo.db.Create(&HistoryRecord{
		Namespace: "streamsaviour-history",
		Payload:   "{not json",
		UpdatedAt: time.Now(),
	}).Error)

	_, err := repo.Load()
	assert.Error(t, err)
}

func TestNewSQLiteHistoryRepository_RequiresNamespace(t *testing.T) {
	_, err := NewSQLiteHistoryRepository(filepath.Join(t.TempDir(), "history.db"), "")
	assert.Error(t, err)
}
