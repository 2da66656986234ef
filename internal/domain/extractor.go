package domain

import (
	"context"
	"io"
)

// MetadataExtractor inspects a URL and reports its formats
type MetadataExtractor interface {
	// Analyze returns normalized metadata for url
	Analyze(ctx context.Context, url string) (*MediaMetadata, error)
}

// StreamRequest identifies the payload to stream
type StreamRequest struct {
	URL      string
	FormatID string
	Title    string
	Ext      string
}

// ByteStream is an open media byte stream. ContentLength is -1 when unknown.
type ByteStream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// StreamOpener opens byte streams for a chosen format
type StreamOpener interface {
	// OpenStream starts streaming; cancelling ctx aborts the stream
	OpenStream(ctx context.Context, req StreamRequest) (*ByteStream, error)
}

// PayloadExporter copies a completed payload to durable storage
type PayloadExporter interface {
	// Export writes payload under fileName and returns its location
	Export(ctx context.Context, fileName string, payload Payload) (string, error)

	// Target names the export destination kind
	Target() string
}

// StreamError is a stream or extraction failure with a message fit to show
// the user. Err keeps the underlying cause for logging.
type StreamError struct {
	Message string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
