package domain

import (
	"fmt"
	"time"
)

// SessionPatch is a typed update to a DownloadSession. Apply validates the
// transition and mutates s only when it returns nil.
type SessionPatch interface {
	Apply(s *DownloadSession) error
}

// SeedPatch fills a freshly created session and moves it to fetching
type SeedPatch struct {
	URL         string
	Title       string
	FileName    string
	Thumbnail   string
	TotalBytes  *int64
	Format      MediaFormat
	RequestedAt time.Time
}

func (p SeedPatch) Apply(s *DownloadSession) error {
	if s.Status != SessionQueued {
		return transitionError(s, SessionFetching)
	}
	s.URL = p.URL
	s.Title = p.Title
	s.FileName = p.FileName
	s.Thumbnail = p.Thumbnail
	s.TotalBytes = p.TotalBytes
	s.Format = p.Format
	if !p.RequestedAt.IsZero() {
		s.RequestedAt = p.RequestedAt
	}
	s.Status = SessionFetching
	s.Progress = 0
	s.DownloadedBytes = 0
	s.ErrorMessage = ""
	return nil
}

// StreamStartPatch marks the beginning of a stream pass. Counters restart
// at zero and any stale error message is dropped.
type StreamStartPatch struct{}

func (StreamStartPatch) Apply(s *DownloadSession) error {
	if s.Status != SessionFetching && s.Status != SessionPaused && s.Status != SessionDownloading {
		return transitionError(s, SessionDownloading)
	}
	s.Status = SessionDownloading
	s.DownloadedBytes = 0
	s.Progress = 0
	s.ErrorMessage = ""
	return nil
}

// ProgressPatch records the cumulative byte count of the running pass
type ProgressPatch struct {
	DownloadedBytes int64
}

func (p ProgressPatch) Apply(s *DownloadSession) error {
	if s.Status != SessionDownloading {
		return transitionError(s, SessionDownloading)
	}
	if p.DownloadedBytes < s.DownloadedBytes {
		return fmt.Errorf("%w: downloaded bytes went from %d to %d",
			ErrInvalidPatch, s.DownloadedBytes, p.DownloadedBytes)
	}
	s.DownloadedBytes = p.DownloadedBytes
	s.Progress = ProgressPercent(p.DownloadedBytes, s.TotalBytes)
	return nil
}

// PausePatch stops the running pass and discards its counters
type PausePatch struct{}

func (PausePatch) Apply(s *DownloadSession) error {
	if !CanTransition(s.Status, SessionPaused) {
		return transitionError(s, SessionPaused)
	}
	s.Status = SessionPaused
	s.DownloadedBytes = 0
	s.Progress = 0
	return nil
}

// CancelPatch moves the session to the terminal cancelled state
type CancelPatch struct{}

func (CancelPatch) Apply(s *DownloadSession) error {
	if !CanTransition(s.Status, SessionCancelled) {
		return transitionError(s, SessionCancelled)
	}
	s.Status = SessionCancelled
	return nil
}

// FailurePatch records a stream failure. Byte counters are kept so the
// failed record shows how far the pass got.
type FailurePatch struct {
	Message string
}

func (p FailurePatch) Apply(s *DownloadSession) error {
	if !CanTransition(s.Status, SessionError) {
		return transitionError(s, SessionError)
	}
	s.Status = SessionError
	s.ErrorMessage = p.Message
	return nil
}

// PatchFunc derives a patch from the current value of the session
type PatchFunc func(prev DownloadSession) SessionPatch

func (f PatchFunc) Apply(s *DownloadSession) error {
	patch := f(s.Clone())
	if patch == nil {
		return nil
	}
	return patch.Apply(s)
}

func transitionError(s *DownloadSession, to SessionStatus) error {
	return fmt.Errorf("%w: session %s from %s to %s", ErrInvalidTransition, s.ID, s.Status, to)
}
