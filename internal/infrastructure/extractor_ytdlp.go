package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/streamsaviour-go/internal/domain"
	"github.com/yourusername/streamsaviour-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	stderrTailLines  = 8
	processWaitDelay = 5 * time.Second
)

// YTDLPExtractor implements MetadataExtractor and StreamOpener on top of
// the yt-dlp binary
type YTDLPExtractor struct {
	config      *domain.ExtractorConfig
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
}

// NewYTDLPExtractor creates a new yt-dlp extractor
func NewYTDLPExtractor(config *domain.ExtractorConfig, multiLogger *logger.MultiLogger, log *zap.Logger) *YTDLPExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &YTDLPExtractor{
		config:      config,
		multiLogger: multiLogger,
		logger:      log,
	}
}

// Analyze runs yt-dlp in metadata mode and normalizes its report
func (e *YTDLPExtractor) Analyze(ctx context.Context, url string) (*domain.MediaMetadata, error) {
	if err := domain.ValidateURL(url); err != nil {
		return nil, err
	}

	args := e.analyzeArgs(url)
	e.logger.Debug("Analyzing URL", zap.String("command", CommandLine(e.config.Binary, args...)))

	var stdout bytes.Buffer
	stderr := newStderrTail(e.logger.Named("yt-dlp"), stderrTailLines)
	cmd := exec.CommandContext(ctx, e.config.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logAppError("yt-dlp analyze failed", url, err)
		return nil, &domain.StreamError{
			Message: failureMessage("Failed to analyze URL", stderr.Last(), err),
			Err:     err,
		}
	}

	raw, err := parseMetadata(stdout.Bytes())
	if err != nil {
		e.logAppError("yt-dlp returned no metadata", url, err)
		return nil, &domain.StreamError{Message: "Failed to analyze URL: no metadata returned", Err: err}
	}

	return domain.NormalizeMetadata(*raw, url), nil
}

// OpenStream starts yt-dlp writing the chosen format to stdout. The stream
// ends with a StreamError when the process exits non-zero.
func (e *YTDLPExtractor) OpenStream(ctx context.Context, req domain.StreamRequest) (*domain.ByteStream, error) {
	if err := domain.ValidateURL(req.URL); err != nil {
		return nil, err
	}
	if req.FormatID == "" {
		return nil, fmt.Errorf("%w: empty format id", domain.ErrFormatNotFound)
	}

	args := e.streamArgs(req)
	e.logger.Info("Starting stream",
		zap.String("format_id", req.FormatID),
		zap.String("command", CommandLine(e.config.Binary, args...)))

	stderr := newStderrTail(e.logger.Named("yt-dlp"), stderrTailLines)
	cmd := exec.CommandContext(ctx, e.config.Binary, args...)
	cmd.Stderr = stderr
	cmd.WaitDelay = processWaitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		e.logAppError("failed to start yt-dlp", req.URL, err)
		return nil, &domain.StreamError{Message: "Unable to start download stream.", Err: err}
	}

	return &domain.ByteStream{
		Body:          &processReader{cmd: cmd, stdout: stdout, stderr: stderr},
		ContentType:   domain.ContentTypeForExt(req.Ext),
		ContentLength: -1,
	}, nil
}

// Version reports the installed yt-dlp version
func (e *YTDLPExtractor) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.config.Binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp not available: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *YTDLPExtractor) analyzeArgs(url string) []string {
	args := []string{url, "--skip-download", "--no-warnings", "--dump-json"}
	return append(args, e.commonArgs()...)
}

func (e *YTDLPExtractor) streamArgs(req domain.StreamRequest) []string {
	args := []string{req.URL, "-f", req.FormatID, "-o", "-", "--quiet", "--no-warnings"}
	return append(args, e.commonArgs()...)
}

func (e *YTDLPExtractor) commonArgs() []string {
	var args []string
	if e.config.CookieFile != "" && fileExists(e.config.CookieFile) {
		args = append(args, "--cookies", e.config.CookieFile)
	}
	return append(args, e.config.ExtraArgs...)
}

func (e *YTDLPExtractor) logAppError(msg, url string, err error) {
	e.logger.Error(msg, zap.String("url", url), zap.Error(err))
	if e.multiLogger != nil {
		e.multiLogger.LogAppError(msg, zap.String("url", url), zap.Error(err))
	}
}

// parseMetadata decodes the first JSON object line of yt-dlp output
func parseMetadata(out []byte) (*domain.RawMetadata, error) {
	for _, line := range bytes.Split(out, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte("{")) {
			continue
		}
		var raw domain.RawMetadata
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		return &raw, nil
	}
	return nil, errors.New("no JSON object in yt-dlp output")
}

// failureMessage prefers the last line yt-dlp wrote to stderr
func failureMessage(prefix, lastLine string, err error) string {
	if lastLine != "" {
		return prefix + ": " + strings.TrimPrefix(lastLine, "ERROR: ")
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("%s: yt-dlp exited with status %d", prefix, exitErr.ExitCode())
	}
	return prefix
}

// processReader exposes yt-dlp stdout as the stream body. Reaching EOF
// reaps the process; a non-zero exit replaces EOF with a StreamError.
type processReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *stderrTail

	waitOnce  sync.Once
	waitErr   error
	closeOnce sync.Once
}

func (r *processReader) Read(p []byte) (int, error) {
	n, err := r.stdout.Read(p)
	if err != io.EOF {
		return n, err
	}
	if waitErr := r.wait(); waitErr != nil {
		return n, &domain.StreamError{
			Message: failureMessage("Download stream failed", r.stderr.Last(), waitErr),
			Err:     waitErr,
		}
	}
	return n, io.EOF
}

func (r *processReader) Close() error {
	r.closeOnce.Do(func() {
		if r.cmd.ProcessState == nil && r.cmd.Process != nil {
			_ = r.cmd.Process.Kill()
		}
		r.wait()
	})
	return nil
}

func (r *processReader) wait() error {
	r.waitOnce.Do(func() {
		r.waitErr = r.cmd.Wait()
	})
	return r.waitErr
}

// stderrTail logs each stderr line at warn and keeps the last few
type stderrTail struct {
	mu      sync.Mutex
	logger  *zap.Logger
	partial []byte
	lines   []string
	limit   int
}

func newStderrTail(log *zap.Logger, limit int) *stderrTail {
	return &stderrTail{logger: log, limit: limit}
}

func (s *stderrTail) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.partial = append(s.partial, p...)
	for {
		idx := bytes.IndexByte(s.partial, '\n')
		if idx < 0 {
			break
		}
		s.push(string(bytes.TrimSpace(s.partial[:idx])))
		s.partial = s.partial[idx+1:]
	}
	return len(p), nil
}

func (s *stderrTail) push(line string) {
	if line == "" {
		return
	}
	s.logger.Warn(line)
	s.lines = append(s.lines, line)
	if len(s.lines) > s.limit {
		s.lines = s.lines[len(s.lines)-s.limit:]
	}
}

// Last returns the most recent non-empty stderr line
func (s *stderrTail) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rest := strings.TrimSpace(string(s.partial)); rest != "" {
		return rest
	}
	if len(s.lines) == 0 {
		return ""
	}
	return s.lines[len(s.lines)-1]
}

// Lines returns the retained stderr lines
func (s *stderrTail) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
