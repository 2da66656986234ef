package domain

import (
	"time"
)

// SessionStatus represents the current status of a download session
type SessionStatus string

const (
	SessionQueued      SessionStatus = "queued"
	SessionFetching    SessionStatus = "fetching"
	SessionDownloading SessionStatus = "downloading"
	SessionPaused      SessionStatus = "paused"
	SessionCancelled   SessionStatus = "cancelled"
	SessionError       SessionStatus = "error"
	SessionCompleted   SessionStatus = "completed"
)

// String returns the string representation of SessionStatus
func (s SessionStatus) String() string {
	return string(s)
}

// IsActive returns true while a stream pass may be running
func (s SessionStatus) IsActive() bool {
	return s == SessionFetching || s == SessionDownloading
}

// IsTerminal returns true for states a session never leaves
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCancelled || s == SessionError || s == SessionCompleted
}

// transitions lists the allowed target states per source state.
// downloading -> downloading covers progress updates.
var transitions = map[SessionStatus][]SessionStatus{
	SessionQueued:      {SessionFetching, SessionCancelled, SessionError},
	SessionFetching:    {SessionDownloading, SessionPaused, SessionCancelled, SessionError},
	SessionDownloading: {SessionDownloading, SessionPaused, SessionCancelled, SessionError, SessionCompleted},
	SessionPaused:      {SessionDownloading, SessionCancelled},
}

// CanTransition checks if a session may move from one status to another
func CanTransition(from, to SessionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PlaceholderFormat is the format assigned to sessions created without one
var PlaceholderFormat = MediaFormat{FormatID: "unknown", Ext: "mp4"}

// DownloadSession is one user-initiated download attempt. It only lives in
// memory; completed sessions become DownloadHistoryItems.
type DownloadSession struct {
	ID              string        `json:"id"`
	URL             string        `json:"url"`
	Title           string        `json:"title"`
	Status          SessionStatus `json:"status"`
	Progress        float64       `json:"progress"`
	DownloadedBytes int64         `json:"downloaded_bytes"`
	TotalBytes      *int64        `json:"total_bytes,omitempty"`
	Format          MediaFormat   `json:"format"`
	RequestedAt     time.Time     `json:"requested_at"`
	FileName        string        `json:"file_name,omitempty"`
	Thumbnail       string        `json:"thumbnail,omitempty"`
	ErrorMessage    string        `json:"error,omitempty"`
}

// NewDownloadSession creates a session record with defaulted fields
func NewDownloadSession(id string, now time.Time) *DownloadSession {
	return &DownloadSession{
		ID:          id,
		Status:      SessionQueued,
		Format:      PlaceholderFormat,
		RequestedAt: now,
	}
}

// HasKnownTotal reports whether progress can be computed
func (s *DownloadSession) HasKnownTotal() bool {
	return s.TotalBytes != nil && *s.TotalBytes > 0
}

// Clone returns a deep copy safe to hand out of the store
func (s *DownloadSession) Clone() DownloadSession {
	c := *s
	if s.TotalBytes != nil {
		total := *s.TotalBytes
		c.TotalBytes = &total
	}
	return c
}

// ProgressPercent computes percent complete, 0 when the total is unknown
func ProgressPercent(received int64, total *int64) float64 {
	if total == nil || *total <= 0 {
		return 0
	}
	percent := float64(received) / float64(*total) * 100
	if percent > 100 {
		return 100
	}
	return percent
}
