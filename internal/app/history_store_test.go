package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

// mockHistoryRepo implements domain.HistoryRepository for testing
type mockHistoryRepo struct {
	mu       sync.Mutex
	snapshot *domain.HistorySnapshot
	loadErr  error
	saves    int
}

func (m *mockHistoryRepo) Load() (*domain.HistorySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snapshot == nil {
		return &domain.HistorySnapshot{}, nil
	}
	return m.snapshot, nil
}

func (m *mockHistoryRepo) Save(snapshot *domain.HistorySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
	m.saves++
	return nil
}

// mockBlobStore implements domain.BlobStore for testing
type mockBlobStore struct {
	mu    sync.Mutex
	blobs map[string]domain.Payload
	next  int
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string]domain.Payload)}
}

func (m *mockBlobStore) Put(payload domain.Payload) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	ref := fmt.Sprintf("blob:%d", m.next)
	m.blobs[ref] = payload
	return ref
}

func (m *mockBlobStore) Get(ref string) (domain.Payload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.blobs[ref]
	return p, ok
}

func (m *mockBlobStore) Delete(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, ref)
}

func (m *mockBlobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// testClock hands out strictly increasing timestamps
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(repo domain.HistoryRepository, blobs domain.BlobStore) *HistoryStore {
	return NewHistoryStore(repo, blobs, HistoryStoreOptions{Now: newTestClock().Now}, nil)
}

func downloadingSession(t *testing.T, store *HistoryStore, id string) {
	t.Helper()
	_, err := store.UpsertSession(id, domain.SeedPatch{
		URL:      "https://example.com/v/" + id,
		Title:    "Clip " + id,
		FileName: "clip-" + id + ".mp4",
		Format:   domain.MediaFormat{FormatID: "18", Ext: "mp4"},
	})
	require.NoError(t, err)
	_, err = store.UpsertSession(id, domain.StreamStartPatch{})
	require.NoError(t, err)
}

func TestHistoryStore_RecordSearchNewestFirst(t *testing.T) {
	store := newTestStore(&mockHistoryRepo{}, newMockBlobStore())

	store.RecordSearch("https://example.com/a", nil)
	store.RecordSearch("https://example.com/b", &domain.MetadataSummary{Title: "B"})

	searches := store.Searches("")
	require.Len(t, searches, 2)
	assert.Equal(t, "https://example.com/b", searches[0].URL)
	assert.Equal(t, "https://example.com/a", searches[1].URL)
}

func TestHistoryStore_SearchHistoryIsBounded(t *testing.T) {
	store := newTestStore(&mockHistoryRepo{}, newMockBlobStore())

	for i := 0; i <= domain.MaxHistoryEntries; i++ {
		store.RecordSearch(fmt.Sprintf("https://example.com/%d", i), nil)
	}

	searches := store.Searches("")
	require.Len(t, searches, domain.MaxHistoryEntries)
	assert.Equal(t, fmt.Sprintf("https://example.com/%d", domain.MaxHistoryEntries), searches[0].URL)
	assert.Equal(t, "https://example.com/1", searches[len(searches)-1].URL)
}

func TestHistoryStore_SearchesFilterAndRemove(t *testing.T) {
	store := newTestStore(&mockHistoryRepo{}, newMockBlobStore())

	cat := store.RecordSearch("https://example.com/a", &domain.MetadataSummary{Title: "Cat video"})
	store.RecordSearch("https://example.com/b", &domain.MetadataSummary{Title: "Dog video"})

	result := store.Searches("CAT")
	require.Len(t, result, 1)
	assert.Equal(t, cat.ID, result[0].ID)

	assert.True(t, store.RemoveSearch(cat.ID))
	assert.False(t, store.RemoveSearch(cat.ID))
	assert.Len(t, store.Searches(""), 1)

	store.ClearSearches()
	assert.Empty(t, store.Searches(""))
}

func TestHistoryStore_UpsertCreatesDefaultSession(t *testing.T) {
	store := newTestStore(nil, nil)

	session, err := store.UpsertSession("s-1", domain.PatchFunc(func(prev domain.DownloadSession) domain.SessionPatch {
		return nil
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.SessionQueued, session.Status)
	assert.Equal(t, domain.PlaceholderFormat, session.Format)

	stored, ok := store.Session("s-1")
	require.True(t, ok)
	assert.Equal(t, "s-1", stored.ID)
}

func TestHistoryStore_RejectedPatchLeavesSessionUntouched(t *testing.T) {
	store := newTestStore(nil, nil)
	downloadingSession(t, store, "s-1")
	_, err := store.UpsertSession("s-1", domain.ProgressPatch{DownloadedBytes: 100})
	require.NoError(t, err)

	_, err = store.UpsertSession("s-1", domain.ProgressPatch{DownloadedBytes: 50})
	assert.True(t, errors.Is(err, domain.ErrInvalidPatch))

	session, _ := store.Session("s-1")
	assert.Equal(t, int64(100), session.DownloadedBytes)
}

func TestHistoryStore_SessionsMostRecentFirst(t *testing.T) {
	store := newTestStore(nil, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seeds := []struct {
		id     string
		offset time.Duration
	}{
		{"old", 0},
		{"new", 2 * time.Hour},
		{"mid", time.Hour},
	}
	for _, seed := range seeds {
		_, err := store.UpsertSession(seed.id, domain.SeedPatch{URL: "https://example.com", RequestedAt: base.Add(seed.offset)})
		require.NoError(t, err)
	}

	sessions := store.Sessions()
	require.Len(t, sessions, 3)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, "mid", sessions[1].ID)
	assert.Equal(t, "old", sessions[2].ID)
}

func TestHistoryStore_CompleteSessionIsAtomic(t *testing.T) {
	repo := &mockHistoryRepo{}
	blobs := newMockBlobStore()
	store := newTestStore(repo, blobs)
	downloadingSession(t, store, "s-1")

	var events []StoreEvent
	store.Subscribe(func(e StoreEvent) { events = append(events, e) })

	ref := blobs.Put(domain.Payload{Data: []byte("abc")})
	item, ok := store.CompleteSession("s-1", domain.CompletionPayload{
		BlobRef: ref,
		Format:  domain.MediaFormat{FormatID: "18", Ext: "mp4", QualityLabel: "360p"},
		Size:    3,
	})
	require.True(t, ok)

	_, stillActive := store.Session("s-1")
	assert.False(t, stillActive)

	assert.Equal(t, "s-1", item.ID)
	assert.Equal(t, "clip-s-1.mp4", item.FileName)
	assert.Equal(t, int64(3), item.Size)
	assert.Equal(t, ref, item.BlobRef)

	downloads := store.Downloads()
	require.Len(t, downloads, 1)
	assert.Equal(t, "s-1", downloads[0].ID)

	require.Len(t, events, 1)
	assert.Equal(t, EventSessionCompleted, events[0].Kind)

	require.NotNil(t, repo.snapshot)
	assert.Len(t, repo.snapshot.Downloads, 1)
}

func TestHistoryStore_CompleteUnknownSessionIsNoop(t *testing.T) {
	repo := &mockHistoryRepo{}
	store := newTestStore(repo, newMockBlobStore())

	_, ok := store.CompleteSession("missing", domain.CompletionPayload{Size: 1})

	assert.False(t, ok)
	assert.Empty(t, store.Downloads())
	assert.Zero(t, repo.saves)
}

func TestHistoryStore_CompleteCancelledSessionIsNoop(t *testing.T) {
	store := newTestStore(nil, newMockBlobStore())
	downloadingSession(t, store, "s-1")
	_, err := store.UpsertSession("s-1", domain.CancelPatch{})
	require.NoError(t, err)

	_, ok := store.CompleteSession("s-1", domain.CompletionPayload{Size: 1})

	assert.False(t, ok)
	session, exists := store.Session("s-1")
	require.True(t, exists)
	assert.Equal(t, domain.SessionCancelled, session.Status)
	assert.Empty(t, store.Downloads())
}

func TestHistoryStore_LibraryEvictionReleasesBlobs(t *testing.T) {
	blobs := newMockBlobStore()
	store := newTestStore(nil, blobs)

	for i := 0; i <= domain.MaxHistoryEntries; i++ {
		id := fmt.Sprintf("s-%d", i)
		downloadingSession(t, store, id)
		ref := blobs.Put(domain.Payload{Data: []byte{byte(i)}})
		_, ok := store.CompleteSession(id, domain.CompletionPayload{BlobRef: ref, Size: 1})
		require.True(t, ok)
	}

	downloads := store.Downloads()
	require.Len(t, downloads, domain.MaxHistoryEntries)
	assert.Equal(t, fmt.Sprintf("s-%d", domain.MaxHistoryEntries), downloads[0].ID)
	assert.Equal(t, domain.MaxHistoryEntries, blobs.Len())

	_, ok := store.Download("s-0")
	assert.False(t, ok)
}

func TestHistoryStore_RemoveAndClearDownloadsReleaseBlobs(t *testing.T) {
	blobs := newMockBlobStore()
	store := newTestStore(nil, blobs)

	for _, id := range []string{"a", "b", "c"} {
		downloadingSession(t, store, id)
		ref := blobs.Put(domain.Payload{Data: []byte(id)})
		_, ok := store.CompleteSession(id, domain.CompletionPayload{BlobRef: ref, Size: 1})
		require.True(t, ok)
	}

	assert.True(t, store.RemoveDownload("b"))
	assert.False(t, store.RemoveDownload("b"))
	assert.Equal(t, 2, blobs.Len())

	store.ClearDownloads()
	assert.Empty(t, store.Downloads())
	assert.Zero(t, blobs.Len())
}

func TestHistoryStore_FailSessionEvictsOldestFailures(t *testing.T) {
	store := NewHistoryStore(nil, nil, HistoryStoreOptions{MaxFailedRetained: 2, Now: newTestClock().Now}, nil)

	for _, id := range []string{"a", "b", "c"} {
		downloadingSession(t, store, id)
		require.NoError(t, store.FailSession(id, "boom"))
	}

	_, ok := store.Session("a")
	assert.False(t, ok)
	for _, id := range []string{"b", "c"} {
		session, exists := store.Session(id)
		require.True(t, exists)
		assert.Equal(t, domain.SessionError, session.Status)
		assert.Equal(t, "boom", session.ErrorMessage)
	}

	assert.True(t, errors.Is(store.FailSession("missing", "x"), domain.ErrSessionNotFound))
}

func TestHistoryStore_SessionsAreNotPersisted(t *testing.T) {
	repo := &mockHistoryRepo{}
	store := newTestStore(repo, nil)

	downloadingSession(t, store, "s-1")
	assert.Zero(t, repo.saves)

	store.RecordSearch("https://example.com", nil)
	assert.Equal(t, 1, repo.saves)
}

func TestHistoryStore_LoadsPersistedSnapshot(t *testing.T) {
	repo := &mockHistoryRepo{}
	first := newTestStore(repo, nil)
	first.RecordSearch("https://example.com/a", &domain.MetadataSummary{Title: "A"})
	downloadingSession(t, first, "s-1")
	_, ok := first.CompleteSession("s-1", domain.CompletionPayload{Size: 10})
	require.True(t, ok)

	second := newTestStore(repo, nil)

	searches := second.Searches("")
	require.Len(t, searches, 1)
	assert.Equal(t, "A", searches[0].Metadata.Title)
	downloads := second.Downloads()
	require.Len(t, downloads, 1)
	assert.Equal(t, int64(10), downloads[0].Size)
	assert.Empty(t, second.Sessions())
}

func TestHistoryStore_CorruptSnapshotStartsEmpty(t *testing.T) {
	repo := &mockHistoryRepo{loadErr: errors.New("invalid character")}

	store := newTestStore(repo, nil)

	assert.Empty(t, store.Searches(""))
	assert.Empty(t, store.Downloads())
}

func TestHistoryStore_Unsubscribe(t *testing.T) {
	store := newTestStore(nil, nil)

	count := 0
	unsubscribe := store.Subscribe(func(StoreEvent) { count++ })
	store.RecordSearch("https://example.com/a", nil)
	unsubscribe()
	store.RecordSearch("https://example.com/b", nil)

	assert.Equal(t, 1, count)
}
