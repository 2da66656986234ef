package infrastructure

import (
	"sync"

	"github.com/google/uuid"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

const blobRefPrefix = "blob:"

// MemoryBlobStore keeps completed payloads in process memory. References
// do not survive a restart.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]domain.Payload
}

// NewMemoryBlobStore creates an empty blob store
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]domain.Payload)}
}

// Put stores payload and returns its reference
func (s *MemoryBlobStore) Put(payload domain.Payload) string {
	ref := blobRefPrefix + uuid.New().String()

	s.mu.Lock()
	s.blobs[ref] = payload
	s.mu.Unlock()
	return ref
}

// Get returns the payload behind ref
func (s *MemoryBlobStore) Get(ref string) (domain.Payload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.blobs[ref]
	return payload, ok
}

// Delete releases a payload; unknown refs are ignored
func (s *MemoryBlobStore) Delete(ref string) {
	s.mu.Lock()
	delete(s.blobs, ref)
	s.mu.Unlock()
}

// Stats returns the number of held payloads and their total size
func (s *MemoryBlobStore) Stats() (count int, bytes int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, payload := range s.blobs {
		bytes += int64(len(payload.Data))
	}
	return len(s.blobs), bytes
}
