package domain

// HistoryRepository persists the durable part of the history store
type HistoryRepository interface {
	// Load returns the last saved snapshot, or an empty one if nothing
	// was saved yet
	Load() (*HistorySnapshot, error)

	// Save replaces the stored snapshot
	Save(snapshot *HistorySnapshot) error
}

// BlobStore holds completed payloads for the lifetime of the process
type BlobStore interface {
	// Put stores a payload and returns its reference
	Put(payload Payload) string

	// Get returns the payload behind ref
	Get(ref string) (Payload, bool)

	// Delete releases a payload
	Delete(ref string)
}

// Notifier reports session outcomes to the user
type Notifier interface {
	NotifySessionCompleted(title, fileName string)
	NotifySessionFailed(title, message string)
}
