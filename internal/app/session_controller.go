package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/streamsaviour-go/internal/domain"
	"github.com/yourusername/streamsaviour-go/pkg/logger"
)

const defaultChunkSize = 32 * 1024

var errSessionNotCompleted = errors.New("session no longer completable")

// StartRequest describes a download the user asked for
type StartRequest struct {
	URL      string
	Metadata *domain.MediaMetadata
	Format   domain.MediaFormat
}

// sessionRun is the controller-side state of one session. attempt numbers
// stream passes; a pass may only write to the store while its attempt is
// current and its context is alive, both checked under mu.
type sessionRun struct {
	mu      sync.Mutex
	id      string
	title   string
	format  domain.MediaFormat
	request domain.StreamRequest
	attempt int
	cancel  context.CancelFunc
}

// SessionController drives the byte stream of every download session
type SessionController struct {
	store       *HistoryStore
	opener      domain.StreamOpener
	blobs       domain.BlobStore
	notifier    domain.Notifier
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
	chunkSize   int
	now         func() time.Time

	mu   sync.Mutex
	runs map[string]*sessionRun

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewSessionController creates a new session controller
func NewSessionController(
	store *HistoryStore,
	opener domain.StreamOpener,
	blobs domain.BlobStore,
	notifier domain.Notifier,
	config *domain.SessionConfig,
	multiLogger *logger.MultiLogger,
	log *zap.Logger,
) *SessionController {
	if log == nil {
		log = zap.NewNop()
	}
	chunkSize := defaultChunkSize
	if config != nil && config.ChunkSize > 0 {
		chunkSize = config.ChunkSize
	}

	ctx, stop := context.WithCancel(context.Background())
	return &SessionController{
		store:       store,
		opener:      opener,
		blobs:       blobs,
		notifier:    notifier,
		multiLogger: multiLogger,
		logger:      log,
		chunkSize:   chunkSize,
		now:         time.Now,
		runs:        make(map[string]*sessionRun),
		baseCtx:     ctx,
		stop:        stop,
	}
}

// StartSession creates a session, records the search and starts streaming
// in the background. It returns the new session id.
func (c *SessionController) StartSession(req StartRequest) (string, error) {
	if err := domain.ValidateURL(req.URL); err != nil {
		return "", err
	}
	if req.Format.FormatID == "" || req.Format.Ext == "" {
		return "", fmt.Errorf("%w: format id and extension are required", domain.ErrFormatNotFound)
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = &domain.MediaMetadata{WebpageURL: req.URL}
	}
	sourceURL := metadata.WebpageURL
	if sourceURL == "" {
		sourceURL = req.URL
	}
	title := metadata.Title
	if title == "" {
		title = req.URL
	}

	id := uuid.New().String()
	now := c.now()
	_, err := c.store.UpsertSession(id, domain.SeedPatch{
		URL:         req.URL,
		Title:       title,
		FileName:    domain.BuildFileName(title, req.Format.Ext, now),
		Thumbnail:   metadata.Thumbnail,
		TotalBytes:  req.Format.Size(),
		Format:      req.Format,
		RequestedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	streamTitle := metadata.Title
	if streamTitle == "" {
		streamTitle = "video"
	}
	run := &sessionRun{
		id:     id,
		title:  title,
		format: req.Format,
		request: domain.StreamRequest{
			URL:      sourceURL,
			FormatID: req.Format.FormatID,
			Title:    streamTitle,
			Ext:      req.Format.Ext,
		},
	}

	c.mu.Lock()
	c.runs[id] = run
	c.mu.Unlock()

	c.store.RecordSearch(req.URL, req.Metadata.Summary())

	c.event("session_started",
		zap.String("id", id),
		zap.String("url", req.URL),
		zap.String("format_id", req.Format.FormatID))

	run.mu.Lock()
	c.launchLocked(run)
	run.mu.Unlock()

	return id, nil
}

// PauseSession aborts the running pass and resets the session counters.
// The bytes received so far are discarded.
func (c *SessionController) PauseSession(id string) error {
	run, err := c.lookup(id)
	if err != nil {
		return err
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	if _, err := c.store.UpsertSession(id, domain.PausePatch{}); err != nil {
		return err
	}
	c.abortLocked(run)

	c.event("session_paused", zap.String("id", id))
	return nil
}

// ResumeSession restarts a paused session from the first byte
func (c *SessionController) ResumeSession(id string) error {
	run, err := c.lookup(id)
	if err != nil {
		return err
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	session, ok := c.store.Session(id)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Status != domain.SessionPaused {
		return fmt.Errorf("%w: session %s is %s", domain.ErrSessionNotActive, id, session.Status)
	}
	if _, err := c.store.UpsertSession(id, domain.StreamStartPatch{}); err != nil {
		return err
	}
	c.launchLocked(run)

	c.event("session_resumed", zap.String("id", id))
	return nil
}

// CancelSession aborts the session for good. The cancelled record stays in
// the store until removed.
func (c *SessionController) CancelSession(id string) error {
	run, err := c.lookup(id)
	if err != nil {
		return err
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	if _, err := c.store.UpsertSession(id, domain.CancelPatch{}); err != nil {
		return err
	}
	c.abortLocked(run)
	c.forget(id)

	c.event("session_cancelled", zap.String("id", id))
	return nil
}

// RemoveSession aborts any running pass and drops the session record
func (c *SessionController) RemoveSession(id string) error {
	c.mu.Lock()
	run, running := c.runs[id]
	c.mu.Unlock()

	if running {
		run.mu.Lock()
		c.abortLocked(run)
		c.forget(id)
		removed := c.store.RemoveSession(id)
		run.mu.Unlock()
		if removed {
			c.event("session_removed", zap.String("id", id))
		}
		return nil
	}

	if !c.store.RemoveSession(id) {
		return domain.ErrSessionNotFound
	}
	c.event("session_removed", zap.String("id", id))
	return nil
}

// Shutdown aborts all running passes and waits for them to exit
func (c *SessionController) Shutdown() {
	c.stop()
	c.wg.Wait()
}

// lookup returns the run of a live session
func (c *SessionController) lookup(id string) (*sessionRun, error) {
	c.mu.Lock()
	run, ok := c.runs[id]
	c.mu.Unlock()
	if ok {
		return run, nil
	}

	session, exists := c.store.Session(id)
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return nil, fmt.Errorf("%w: session %s is %s", domain.ErrSessionNotActive, id, session.Status)
}

func (c *SessionController) forget(id string) {
	c.mu.Lock()
	delete(c.runs, id)
	c.mu.Unlock()
}

// launchLocked starts a new stream pass. Caller holds run.mu.
func (c *SessionController) launchLocked(run *sessionRun) {
	run.attempt++
	ctx, cancel := context.WithCancel(c.baseCtx)
	run.cancel = cancel
	attempt := run.attempt

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.performDownload(ctx, run, attempt)
	}()
}

// abortLocked invalidates the running pass. Caller holds run.mu.
func (c *SessionController) abortLocked(run *sessionRun) {
	if run.cancel != nil {
		run.cancel()
	}
	run.attempt++
}

// commit runs fn under the run lock if the pass is still current
func (c *SessionController) commit(ctx context.Context, run *sessionRun, attempt int, fn func() error) bool {
	run.mu.Lock()
	defer run.mu.Unlock()

	if ctx.Err() != nil || run.attempt != attempt {
		return false
	}
	if err := fn(); err != nil {
		if !errors.Is(err, errSessionNotCompleted) {
			c.logger.Warn("Session update rejected",
				zap.String("id", run.id),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return false
	}
	return true
}

// performDownload runs one stream pass from the first byte to completion
func (c *SessionController) performDownload(ctx context.Context, run *sessionRun, attempt int) {
	stream, err := c.opener.OpenStream(ctx, run.request)
	if err != nil {
		c.fail(ctx, run, attempt, err, "Unable to start download stream.")
		return
	}

	body := &onceCloser{rc: stream.Body}
	defer body.Close()
	stopWatch := context.AfterFunc(ctx, func() { body.Close() })
	defer stopWatch()

	started := c.commit(ctx, run, attempt, func() error {
		_, err := c.store.UpsertSession(run.id, domain.StreamStartPatch{})
		return err
	})
	if !started {
		return
	}

	var buf bytes.Buffer
	chunk := make([]byte, c.chunkSize)
	var received int64

	for {
		n, readErr := body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			received += int64(n)
			total := received
			ok := c.commit(ctx, run, attempt, func() error {
				_, err := c.store.UpsertSession(run.id, domain.ProgressPatch{DownloadedBytes: total})
				return err
			})
			if !ok {
				return
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			c.fail(ctx, run, attempt, readErr, "Download stream interrupted.")
			return
		}
	}

	contentType := stream.ContentType
	if contentType == "" {
		contentType = domain.DefaultContentType
	}

	var item domain.DownloadHistoryItem
	completed := c.commit(ctx, run, attempt, func() error {
		ref := c.blobs.Put(domain.Payload{Data: buf.Bytes(), ContentType: contentType})
		var ok bool
		item, ok = c.store.CompleteSession(run.id, domain.CompletionPayload{
			BlobRef: ref,
			Format:  run.format,
			Size:    received,
		})
		if !ok {
			c.blobs.Delete(ref)
			return errSessionNotCompleted
		}
		c.forget(run.id)
		return nil
	})
	if !completed {
		return
	}

	c.event("session_completed",
		zap.String("id", run.id),
		zap.String("file_name", item.FileName),
		zap.Int64("size", item.Size))
	if c.notifier != nil {
		c.notifier.NotifySessionCompleted(run.title, item.FileName)
	}
}

// fail records a stream failure unless the pass was aborted on purpose
func (c *SessionController) fail(ctx context.Context, run *sessionRun, attempt int, err error, fallback string) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}

	message := fallback
	var streamErr *domain.StreamError
	if errors.As(err, &streamErr) && streamErr.Message != "" {
		message = streamErr.Message
	}

	failed := c.commit(ctx, run, attempt, func() error {
		if err := c.store.FailSession(run.id, message); err != nil {
			return err
		}
		c.forget(run.id)
		return nil
	})
	if !failed {
		return
	}

	c.logger.Error("Download session failed",
		zap.String("id", run.id),
		zap.String("message", message),
		zap.Error(err))
	if c.multiLogger != nil {
		c.multiLogger.LogAppError("Download session failed",
			zap.String("id", run.id),
			zap.Error(err))
	}
	c.event("session_failed", zap.String("id", run.id), zap.String("message", message))
	if c.notifier != nil {
		c.notifier.NotifySessionFailed(run.title, message)
	}
}

func (c *SessionController) event(name string, fields ...zap.Field) {
	c.logger.Info(name, fields...)
	if c.multiLogger != nil {
		c.multiLogger.LogSessionEvent(name, fields...)
	}
}

// onceCloser lets the read loop and the context watcher both close the body
type onceCloser struct {
	rc   io.ReadCloser
	once sync.Once
	err  error
}

func (o *onceCloser) Read(p []byte) (int, error) {
	return o.rc.Read(p)
}

func (o *onceCloser) Close() error {
	o.once.Do(func() { o.err = o.rc.Close() })
	return o.err
}
