package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxHistoryEntries bounds both the search history and the download library
const MaxHistoryEntries = 150

// DefaultContentType is used when the stream reports no content type
const DefaultContentType = "application/octet-stream"

var (
	ErrInvalidURL         = errors.New("invalid url")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNotActive   = errors.New("session not active")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrInvalidPatch       = errors.New("invalid session patch")
	ErrDownloadNotFound   = errors.New("download not found")
	ErrPayloadUnavailable = errors.New("payload no longer available")
	ErrFormatNotFound     = errors.New("format not found")
)

// SearchHistoryEntry records one URL the user downloaded from
type SearchHistoryEntry struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"`
	CreatedAt time.Time        `json:"created_at"`
	Metadata  *MetadataSummary `json:"metadata,omitempty"`
}

// NewSearchHistoryEntry creates a search history entry with a fresh id
func NewSearchHistoryEntry(url string, summary *MetadataSummary, now time.Time) SearchHistoryEntry {
	return SearchHistoryEntry{
		ID:        uuid.New().String(),
		URL:       url,
		CreatedAt: now,
		Metadata:  summary,
	}
}

// Matches reports whether query (case-insensitive) occurs in the url or title
func (e SearchHistoryEntry) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(e.URL), q) {
		return true
	}
	return e.Metadata != nil && strings.Contains(strings.ToLower(e.Metadata.Title), q)
}

// HistoryFormat is the subset of MediaFormat kept in the library
type HistoryFormat struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	FormatNote string   `json:"format_note,omitempty"`
	Height     *int     `json:"height,omitempty"`
	Width      *int     `json:"width,omitempty"`
	TBR        *float64 `json:"tbr,omitempty"`
}

// QualityLabel applies the MediaFormat labelling rule to a library format
func (f HistoryFormat) QualityLabel() string {
	return QualityLabel(MediaFormat{Height: f.Height, Width: f.Width, FormatNote: f.FormatNote})
}

// NewHistoryFormat trims a MediaFormat down to what the library keeps
func NewHistoryFormat(f MediaFormat) HistoryFormat {
	return HistoryFormat{
		FormatID:   f.FormatID,
		Ext:        f.Ext,
		FormatNote: f.FormatNote,
		Height:     f.Height,
		Width:      f.Width,
		TBR:        f.TBR,
	}
}

// DownloadHistoryItem is a completed download in the library. BlobRef only
// resolves within the process that produced it.
type DownloadHistoryItem struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	URL          string        `json:"url"`
	DownloadedAt time.Time     `json:"downloaded_at"`
	Format       HistoryFormat `json:"format"`
	FileName     string        `json:"file_name"`
	Size         int64         `json:"size"`
	Thumbnail    string        `json:"thumbnail,omitempty"`
	BlobRef      string        `json:"blob_ref"`
}

// CompletionPayload is what a finished stream pass hands to the store
type CompletionPayload struct {
	BlobRef string
	Format  MediaFormat
	Size    int64
}

// HistorySnapshot is the durable part of the store
type HistorySnapshot struct {
	Searches  []SearchHistoryEntry  `json:"searches"`
	Downloads []DownloadHistoryItem `json:"downloads"`
}

// Payload is the assembled byte content of a completed download
type Payload struct {
	Data        []byte
	ContentType string
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

const maxFileNameStem = 80

// BuildFileName derives a unique download file name from a title and
// container extension
func BuildFileName(title, ext string, now time.Time) string {
	stem := nonAlphanumeric.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	stem = strings.Trim(stem, "-")
	if len(stem) > maxFileNameStem {
		stem = strings.Trim(stem[:maxFileNameStem], "-")
	}
	if stem == "" {
		stem = "video"
	}
	return fmt.Sprintf("%s-%d.%s", stem, now.UnixMilli(), ext)
}
