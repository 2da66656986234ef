package app

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/streamsaviour-go/internal/domain"
)

// StoreEventKind names what changed in the store
type StoreEventKind string

const (
	EventSessionUpdated   StoreEventKind = "session_updated"
	EventSessionRemoved   StoreEventKind = "session_removed"
	EventSessionCompleted StoreEventKind = "session_completed"
	EventSearchesChanged  StoreEventKind = "searches_changed"
	EventDownloadsChanged StoreEventKind = "downloads_changed"
)

// StoreEvent is delivered to subscribers after a mutation is applied
type StoreEvent struct {
	Kind     StoreEventKind              `json:"kind"`
	Session  *domain.DownloadSession     `json:"session,omitempty"`
	Download *domain.DownloadHistoryItem `json:"download,omitempty"`
	ID       string                      `json:"id,omitempty"`
}

// HistoryStoreOptions tunes a HistoryStore
type HistoryStoreOptions struct {
	// MaxFailedRetained caps sessions kept in error state; 0 disables the cap
	MaxFailedRetained int
	Now               func() time.Time
}

// HistoryStore owns search history, the download library and the active
// session map. Every mutation runs under one mutex; the two history
// collections are written through the repository after each change.
type HistoryStore struct {
	mu        sync.RWMutex
	searches  []domain.SearchHistoryEntry
	downloads []domain.DownloadHistoryItem
	sessions  map[string]*domain.DownloadSession

	repo      domain.HistoryRepository
	blobs     domain.BlobStore
	maxFailed int
	now       func() time.Time
	logger    *zap.Logger

	listenersMu sync.RWMutex
	listeners   map[int]func(StoreEvent)
	nextID      int
}

// NewHistoryStore creates a store and loads persisted history. A missing or
// unreadable snapshot leaves both collections empty.
func NewHistoryStore(repo domain.HistoryRepository, blobs domain.BlobStore, opts HistoryStoreOptions, logger *zap.Logger) *HistoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &HistoryStore{
		searches:  []domain.SearchHistoryEntry{},
		downloads: []domain.DownloadHistoryItem{},
		sessions:  make(map[string]*domain.DownloadSession),
		repo:      repo,
		blobs:     blobs,
		maxFailed: opts.MaxFailedRetained,
		now:       now,
		logger:    logger,
		listeners: make(map[int]func(StoreEvent)),
	}

	if repo != nil {
		snapshot, err := repo.Load()
		if err != nil {
			logger.Warn("Failed to load history, starting empty", zap.Error(err))
		} else if snapshot != nil {
			if snapshot.Searches != nil {
				s.searches = truncateSearches(snapshot.Searches)
			}
			if snapshot.Downloads != nil {
				s.downloads = snapshot.Downloads
				if len(s.downloads) > domain.MaxHistoryEntries {
					s.downloads = s.downloads[:domain.MaxHistoryEntries]
				}
			}
		}
	}

	return s
}

// Subscribe registers fn for store events and returns its unsubscribe func.
// Events for one session arrive in the order its mutations were applied.
func (s *HistoryStore) Subscribe(fn func(StoreEvent)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *HistoryStore) publish(event StoreEvent) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.listeners {
		fn(event)
	}
}

// RecordSearch prepends a search history entry, keeping the newest 150
func (s *HistoryStore) RecordSearch(url string, summary *domain.MetadataSummary) domain.SearchHistoryEntry {
	entry := domain.NewSearchHistoryEntry(url, summary, s.now())

	s.mu.Lock()
	s.searches = truncateSearches(append([]domain.SearchHistoryEntry{entry}, s.searches...))
	s.persistLocked()
	s.mu.Unlock()

	s.publish(StoreEvent{Kind: EventSearchesChanged, ID: entry.ID})
	return entry
}

// RemoveSearch deletes one search history entry
func (s *HistoryStore) RemoveSearch(id string) bool {
	s.mu.Lock()
	removed := false
	kept := s.searches[:0:0]
	for _, entry := range s.searches {
		if entry.ID == id {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if removed {
		s.searches = kept
		s.persistLocked()
	}
	s.mu.Unlock()

	if removed {
		s.publish(StoreEvent{Kind: EventSearchesChanged, ID: id})
	}
	return removed
}

// ClearSearches empties the search history
func (s *HistoryStore) ClearSearches() {
	s.mu.Lock()
	s.searches = []domain.SearchHistoryEntry{}
	s.persistLocked()
	s.mu.Unlock()

	s.publish(StoreEvent{Kind: EventSearchesChanged})
}

// Searches returns the search history newest first, filtered by query
func (s *HistoryStore) Searches(query string) []domain.SearchHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SearchHistoryEntry, 0, len(s.searches))
	for _, entry := range s.searches {
		if entry.Matches(query) {
			result = append(result, entry)
		}
	}
	return result
}

// UpsertSession applies patch to the session stored under id, creating a
// queued session with default fields first if none exists. A rejected patch
// leaves the store unchanged.
func (s *HistoryStore) UpsertSession(id string, patch domain.SessionPatch) (domain.DownloadSession, error) {
	s.mu.Lock()
	current, ok := s.sessions[id]
	if !ok {
		current = domain.NewDownloadSession(id, s.now())
	}

	next := current.Clone()
	if err := patch.Apply(&next); err != nil {
		s.mu.Unlock()
		return current.Clone(), err
	}
	s.sessions[id] = &next
	result := next.Clone()
	s.mu.Unlock()

	s.publish(StoreEvent{Kind: EventSessionUpdated, Session: &result, ID: id})
	return result, nil
}

// Session returns a copy of the session stored under id
func (s *HistoryStore) Session(id string) (domain.DownloadSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return domain.DownloadSession{}, false
	}
	return session.Clone(), true
}

// Sessions returns copies of all sessions, most recently requested first
func (s *HistoryStore) Sessions() []domain.DownloadSession {
	s.mu.RLock()
	result := make([]domain.DownloadSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, session.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].RequestedAt.After(result[j].RequestedAt)
	})
	return result
}

// CompleteSession turns a downloading session into a library item and drops
// it from the session map in the same step. It reports false, and changes
// nothing, when the session is gone or no longer downloading.
func (s *HistoryStore) CompleteSession(id string, payload domain.CompletionPayload) (domain.DownloadHistoryItem, bool) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok || !domain.CanTransition(session.Status, domain.SessionCompleted) {
		s.mu.Unlock()
		return domain.DownloadHistoryItem{}, false
	}

	fileName := session.FileName
	if fileName == "" {
		fileName = domain.BuildFileName(session.Title, payload.Format.Ext, s.now())
	}

	item := domain.DownloadHistoryItem{
		ID:           id,
		Title:        session.Title,
		URL:          session.URL,
		DownloadedAt: s.now(),
		Format:       domain.NewHistoryFormat(payload.Format),
		FileName:     fileName,
		Size:         payload.Size,
		Thumbnail:    session.Thumbnail,
		BlobRef:      payload.BlobRef,
	}

	s.downloads = s.prependDownloadLocked(item)
	delete(s.sessions, id)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(StoreEvent{Kind: EventSessionCompleted, Download: &item, ID: id})
	return item, true
}

// FailSession moves the session to error with message. The session stays in
// the map until removed explicitly.
func (s *HistoryStore) FailSession(id, message string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrSessionNotFound
	}

	next := session.Clone()
	if err := (domain.FailurePatch{Message: message}).Apply(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.sessions[id] = &next
	result := next.Clone()
	evicted := s.evictFailedLocked()
	s.mu.Unlock()

	s.publish(StoreEvent{Kind: EventSessionUpdated, Session: &result, ID: id})
	for _, evictedID := range evicted {
		s.publish(StoreEvent{Kind: EventSessionRemoved, ID: evictedID})
	}
	return nil
}

// RemoveSession drops a session record regardless of its status
func (s *HistoryStore) RemoveSession(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		s.publish(StoreEvent{Kind: EventSessionRemoved, ID: id})
	}
	return ok
}

// Downloads returns the library newest first
func (s *HistoryStore) Downloads() []domain.DownloadHistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DownloadHistoryItem, len(s.downloads))
	copy(result, s.downloads)
	return result
}

// Download finds a library item by id
func (s *HistoryStore) Download(id string) (domain.DownloadHistoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.downloads {
		if item.ID == id {
			return item, true
		}
	}
	return domain.DownloadHistoryItem{}, false
}

// RemoveDownload deletes a library item and releases its payload
func (s *HistoryStore) RemoveDownload(id string) bool {
	s.mu.Lock()
	removed := false
	kept := s.downloads[:0:0]
	for _, item := range s.downloads {
		if item.ID == id {
			removed = true
			s.releaseBlob(item.BlobRef)
			continue
		}
		kept = append(kept, item)
	}
	if removed {
		s.downloads = kept
		s.persistLocked()
	}
	s.mu.Unlock()

	if removed {
		s.publish(StoreEvent{Kind: EventDownloadsChanged, ID: id})
	}
	return removed
}

// ClearDownloads empties the library and releases every payload
func (s *HistoryStore) ClearDownloads() {
	s.mu.Lock()
	for _, item := range s.downloads {
		s.releaseBlob(item.BlobRef)
	}
	s.downloads = []domain.DownloadHistoryItem{}
	s.persistLocked()
	s.mu.Unlock()

	s.publish(StoreEvent{Kind: EventDownloadsChanged})
}

func (s *HistoryStore) prependDownloadLocked(item domain.DownloadHistoryItem) []domain.DownloadHistoryItem {
	downloads := append([]domain.DownloadHistoryItem{item}, s.downloads...)
	if len(downloads) > domain.MaxHistoryEntries {
		for _, evicted := range downloads[domain.MaxHistoryEntries:] {
			s.releaseBlob(evicted.BlobRef)
		}
		downloads = downloads[:domain.MaxHistoryEntries]
	}
	return downloads
}

// evictFailedLocked drops the oldest error sessions beyond maxFailed
func (s *HistoryStore) evictFailedLocked() []string {
	if s.maxFailed <= 0 {
		return nil
	}

	var failed []*domain.DownloadSession
	for _, session := range s.sessions {
		if session.Status == domain.SessionError {
			failed = append(failed, session)
		}
	}
	if len(failed) <= s.maxFailed {
		return nil
	}

	sort.Slice(failed, func(i, j int) bool {
		return failed[i].RequestedAt.Before(failed[j].RequestedAt)
	})

	evicted := make([]string, 0, len(failed)-s.maxFailed)
	for _, session := range failed[:len(failed)-s.maxFailed] {
		delete(s.sessions, session.ID)
		evicted = append(evicted, session.ID)
	}
	return evicted
}

func (s *HistoryStore) releaseBlob(ref string) {
	if s.blobs != nil && ref != "" {
		s.blobs.Delete(ref)
	}
}

// persistLocked writes the history collections; failures are logged only
func (s *HistoryStore) persistLocked() {
	if s.repo == nil {
		return
	}

	snapshot := &domain.HistorySnapshot{
		Searches:  append([]domain.SearchHistoryEntry(nil), s.searches...),
		Downloads: append([]domain.DownloadHistoryItem(nil), s.downloads...),
	}
	if err := s.repo.Save(snapshot); err != nil {
		s.logger.Error("Failed to persist history", zap.Error(err))
	}
}

func truncateSearches(searches []domain.SearchHistoryEntry) []domain.SearchHistoryEntry {
	if len(searches) > domain.MaxHistoryEntries {
		return searches[:domain.MaxHistoryEntries]
	}
	return searches
}
