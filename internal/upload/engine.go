package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"clipshift/internal/config"
	"clipshift/internal/logging"
	"clipshift/internal/services"
	"clipshift/internal/services/tube"
)

// chunkUnit is the alignment the resumable protocol requires for every chunk
// except the last.
const chunkUnit = 256 * 1024

// defaultChunkBytes applies when no chunk size is configured.
const defaultChunkBytes = 8 * 1024 * 1024

// maxBackoff caps the exponential retry delay.
const maxBackoff = 60 * time.Second

// ProgressFunc receives upload progress as a percentage of bytes confirmed.
type ProgressFunc func(percent float64, message string)

// Engine drives resumable uploads with the retry, backoff, and re-auth
// policy.
type Engine struct {
	client tube.Uploader
	creds  tube.CredentialSource
	logger *slog.Logger

	chunkBytes int64
	maxRetries int

	sleep  func(time.Duration)
	jitter func() float64
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithSleep overrides the backoff sleeper (tests).
func WithSleep(sleep func(time.Duration)) EngineOption {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithJitter overrides the backoff jitter source (tests). The function must
// return values in [0,1).
func WithJitter(jitter func() float64) EngineOption {
	return func(e *Engine) {
		if jitter != nil {
			e.jitter = jitter
		}
	}
}

// NewEngine constructs an upload engine from configuration defaults.
func NewEngine(cfg config.Upload, client tube.Uploader, creds tube.CredentialSource, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	engine := &Engine{
		client:     client,
		creds:      creds,
		logger:     logging.NewComponentLogger(logger, "upload"),
		chunkBytes: ChunkBytes(int64(cfg.ChunkSizeMB) * 1024 * 1024),
		maxRetries: cfg.MaxRetries,
		sleep:      time.Sleep,
		jitter:     rand.Float64,
	}
	if engine.maxRetries <= 0 {
		engine.maxRetries = 8
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// ChunkBytes floors a requested chunk size to the protocol alignment with a
// minimum of one unit. Non-positive requests get the default.
func ChunkBytes(requested int64) int64 {
	if requested <= 0 {
		requested = defaultChunkBytes
	}
	aligned := (requested / chunkUnit) * chunkUnit
	if aligned < chunkUnit {
		aligned = chunkUnit
	}
	return aligned
}

// Backoff returns the delay before retry number attempt (0-based):
// min(60s, 2^attempt seconds) scaled by a random factor in [0.5, 1.5).
func (e *Engine) Backoff(attempt int) time.Duration {
	base := math.Min(maxBackoff.Seconds(), math.Pow(2, float64(attempt)))
	scale := 0.5 + e.jitter()
	return time.Duration(base * scale * float64(time.Second))
}

// Request is one upload parameters bundle.
type Request struct {
	FilePath   string
	Resource   tube.VideoResource
	Profile    string
	ChunkBytes int64 // optional per-item override
	MaxRetries *int  // optional per-item override
}

// Upload publishes one file and returns the destination video ID.
func (e *Engine) Upload(ctx context.Context, req Request, progress ProgressFunc) (string, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "upload", "open file", "Upload file missing or unreadable", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "upload", "stat file", "Upload file missing or unreadable", err)
	}
	totalSize := info.Size()
	if totalSize == 0 {
		return "", services.Wrap(services.ErrValidation, "upload", "stat file", "Upload file is empty", nil)
	}

	chunkBytes := e.chunkBytes
	if req.ChunkBytes > 0 {
		chunkBytes = ChunkBytes(req.ChunkBytes)
	}
	maxRetries := e.maxRetries
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = *req.MaxRetries
	}

	session := &uploadSession{
		engine:     e,
		profile:    req.Profile,
		maxRetries: maxRetries,
	}

	var sessionURL string
	err = session.attempt(ctx, "start session", func(token string) error {
		var startErr error
		sessionURL, startErr = e.client.StartSession(ctx, token, req.Resource, totalSize)
		return startErr
	})
	if err != nil {
		return "", err
	}

	buf := make([]byte, chunkBytes)
	var offset int64
	var videoID string

	for offset < totalSize {
		n, readErr := io.ReadFull(file, buf)
		if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) && !errors.Is(readErr, io.EOF) {
			return "", services.Wrap(services.ErrTransient, "upload", "read chunk", "Failed reading upload file", readErr)
		}
		if n == 0 {
			break
		}
		chunk := buf[:n]
		chunkOffset := offset

		var result tube.ChunkResult
		err := session.attempt(ctx, "send chunk", func(token string) error {
			var chunkErr error
			result, chunkErr = e.client.UploadChunk(ctx, token, sessionURL, chunk, chunkOffset, totalSize)
			return chunkErr
		})
		if err != nil {
			return "", err
		}

		if result.Done {
			videoID = result.VideoID
			offset = totalSize
			break
		}

		if result.NextOffset != chunkOffset+int64(n) {
			// Server confirmed a different boundary; resume from there.
			if _, err := file.Seek(result.NextOffset, io.SeekStart); err != nil {
				return "", services.Wrap(services.ErrTransient, "upload", "seek", "Failed to reposition upload file", err)
			}
		}
		offset = result.NextOffset

		if progress != nil {
			percent := float64(offset) / float64(totalSize) * 100
			if percent > 99 {
				percent = 99
			}
			progress(percent, "Uploading video")
		}
	}

	if videoID == "" {
		return "", services.Wrap(services.ErrTransient, "upload", "finalize", "Upload ended without a video ID", nil)
	}
	if progress != nil {
		progress(100, "Upload complete")
	}
	return videoID, nil
}

// PostPublish runs the best-effort extras after a successful upload:
// recording details and playlist inserts. Failures are returned for logging
// and never fail the item.
func (e *Engine) PostPublish(ctx context.Context, profile, videoID string, playlists []string) []error {
	token, err := e.creds.Token(ctx, profile, false)
	if err != nil {
		return []error{fmt.Errorf("post-publish credentials: %w", err)}
	}

	var failures []error
	if err := e.client.SetRecordingDate(ctx, token, videoID, time.Now()); err != nil {
		failures = append(failures, fmt.Errorf("set recording date: %w", err))
	}
	for _, playlistID := range playlists {
		if err := e.client.AddToPlaylist(ctx, token, playlistID, videoID); err != nil {
			failures = append(failures, fmt.Errorf("playlist %s insert: %w", playlistID, err))
		}
	}
	return failures
}

// uploadSession tracks per-upload retry and re-auth state. The forced
// re-authentication happens at most once per upload; a second auth failure is
// fatal.
type uploadSession struct {
	engine     *Engine
	profile    string
	maxRetries int
	reauthed   bool
	cached     string
}

func (s *uploadSession) token(ctx context.Context) (string, error) {
	if s.cached != "" {
		return s.cached, nil
	}
	token, err := s.engine.creds.Token(ctx, s.profile, false)
	if err != nil {
		return "", services.Wrap(services.ErrAuth, "upload", "credentials",
			"Failed to obtain destination credentials; check provisioned refresh material", err)
	}
	s.cached = token
	return token, nil
}

// attempt runs op under the engine policy: transient statuses retry with
// backoff up to maxRetries, a 401 triggers exactly one forced re-auth, and
// anything else propagates immediately.
func (s *uploadSession) attempt(ctx context.Context, operation string, op func(token string) error) error {
	transientFailures := 0
	for {
		token, err := s.token(ctx)
		if err != nil {
			return err
		}

		opErr := op(token)
		if opErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTransient, "upload", operation, "Upload interrupted", ctx.Err())
		}

		var statusErr *tube.StatusError
		switch {
		case errors.As(opErr, &statusErr) && tube.IsAuthStatus(statusErr.StatusCode):
			if s.reauthed {
				return services.Wrap(services.ErrAuth, "upload", operation,
					"Destination rejected refreshed credentials; re-provision the refresh token", opErr)
			}
			s.reauthed = true
			s.cached = ""
			s.engine.creds.Invalidate(s.profile)
			s.engine.logger.Warn("credentials rejected, forcing re-authentication",
				logging.String("operation", operation))
			refreshed, err := s.engine.creds.Token(ctx, s.profile, true)
			if err != nil {
				return services.Wrap(services.ErrAuth, "upload", operation,
					"Re-authentication failed; re-provision the refresh token", err)
			}
			s.cached = refreshed
			continue
		case errors.As(opErr, &statusErr) && !tube.IsTransientStatus(statusErr.StatusCode):
			return services.Wrap(services.ErrValidation, "upload", operation,
				"Destination rejected the request", opErr)
		default:
			// Transient status or transport-level failure; retry with backoff.
			if transientFailures >= s.maxRetries {
				return services.Wrap(services.ErrTransient, "upload", operation,
					fmt.Sprintf("Upload failed after %d attempts", transientFailures+1), opErr)
			}
			delay := s.engine.Backoff(transientFailures)
			s.engine.logger.Warn("transient upload failure, backing off",
				logging.String("operation", operation),
				logging.Int("attempt", transientFailures+1),
				logging.Duration("delay", delay),
				logging.Error(opErr))
			transientFailures++
			s.engine.sleep(delay)
			continue
		}
	}
}
