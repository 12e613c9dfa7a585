package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// progressPrefix marks progress lines emitted via --progress-template so
// parsing does not depend on yt-dlp's default console formatting.
const progressPrefix = "fetch-progress"

// ProgressUpdate captures yt-dlp download progress events.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// VideoInfo holds the metadata yt-dlp reports for a single video.
type VideoInfo struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	DurationSeconds float64  `json:"duration"`
	Tags            []string `json:"tags"`
	WebpageURL      string   `json:"webpage_url"`
	Uploader        string   `json:"uploader"`
	UploadDate      string   `json:"upload_date"`
}

// RemoteVideo is one entry from a flat channel listing.
type RemoteVideo struct {
	ID              string
	Title           string
	Description     string
	URL             string
	DurationSeconds float64
}

// Fetcher defines the downloader behaviour the pipeline depends on.
type Fetcher interface {
	Download(ctx context.Context, sourceURL, destDir string, progress func(ProgressUpdate)) (string, error)
	Metadata(ctx context.Context, sourceURL string) (VideoInfo, error)
	ListChannel(ctx context.Context, handle string) ([]RemoteVideo, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithProxy routes all network traffic through the given proxy URL.
func WithProxy(proxy string) Option {
	return func(c *Client) {
		c.proxy = strings.TrimSpace(proxy)
	}
}

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	proxy   string
	exec    Executor
}

// New constructs a yt-dlp client.
func New(binary string, timeoutSeconds int, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Download fetches the source video into destDir and returns the downloaded
// file path.
func (c *Client) Download(ctx context.Context, sourceURL, destDir string, progress func(ProgressUpdate)) (string, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return "", errors.New("source URL required")
	}
	if strings.TrimSpace(destDir) == "" {
		return "", errors.New("destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	fetchCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		"--newline",
		"--no-playlist",
		"--progress-template", "download:" + progressPrefix + " %(progress._percent_str)s",
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
	}
	args = c.withCommonArgs(args)
	args = append(args, "--", sourceURL)

	var destPath string
	err := c.exec.Run(fetchCtx, c.binary, args, func(line string) {
		if path, ok := parseDestination(line); ok {
			destPath = path
		}
		if progress == nil {
			return
		}
		if update, ok := parseProgress(line); ok {
			progress(update)
		}
	})
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}

	if destPath == "" {
		destPath = newestFile(destDir)
	}
	if destPath == "" {
		return "", errors.New("yt-dlp produced no output file")
	}
	if _, err := os.Stat(destPath); err != nil {
		return "", fmt.Errorf("locate downloaded file: %w", err)
	}
	return destPath, nil
}

// Metadata probes a single video without downloading it.
func (c *Client) Metadata(ctx context.Context, sourceURL string) (VideoInfo, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return VideoInfo{}, errors.New("source URL required")
	}

	args := c.withCommonArgs([]string{"-J", "--no-playlist"})
	args = append(args, "--", sourceURL)

	payload, err := c.captureJSON(ctx, args)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("yt-dlp metadata: %w", err)
	}

	var info VideoInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return VideoInfo{}, fmt.Errorf("parse metadata: %w", err)
	}
	if info.WebpageURL == "" {
		info.WebpageURL = sourceURL
	}
	return info, nil
}

// ListChannel returns a flat listing of a channel's uploads, newest first as
// reported by the site.
func (c *Client) ListChannel(ctx context.Context, handle string) ([]RemoteVideo, error) {
	channelURL := HandleURL(handle)
	if channelURL == "" {
		return nil, errors.New("channel handle required")
	}

	args := c.withCommonArgs([]string{"-J", "--flat-playlist"})
	args = append(args, "--", channelURL)

	payload, err := c.captureJSON(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp channel listing: %w", err)
	}

	var listing struct {
		Entries []struct {
			ID              string  `json:"id"`
			Title           string  `json:"title"`
			Description     string  `json:"description"`
			URL             string  `json:"url"`
			DurationSeconds float64 `json:"duration"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(payload, &listing); err != nil {
		return nil, fmt.Errorf("parse channel listing: %w", err)
	}

	videos := make([]RemoteVideo, 0, len(listing.Entries))
	for _, entry := range listing.Entries {
		if entry.ID == "" {
			continue
		}
		url := entry.URL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + entry.ID
		}
		videos = append(videos, RemoteVideo{
			ID:              entry.ID,
			Title:           entry.Title,
			Description:     entry.Description,
			URL:             url,
			DurationSeconds: entry.DurationSeconds,
		})
	}
	return videos, nil
}

// HandleURL normalizes a channel reference into a listing URL. Full URLs pass
// through untouched; bare handles with or without the @ prefix become the
// channel's uploads page.
func HandleURL(handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ""
	}
	if strings.Contains(handle, "://") {
		return handle
	}
	return "https://www.youtube.com/@" + strings.TrimPrefix(handle, "@") + "/videos"
}

func (c *Client) withCommonArgs(args []string) []string {
	if c.proxy != "" {
		args = append(args, "--proxy", c.proxy)
	}
	return args
}

func (c *Client) captureJSON(ctx context.Context, args []string) ([]byte, error) {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var builder strings.Builder
	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		builder.WriteString(line)
		builder.WriteByte('\n')
	})
	if err != nil {
		return nil, err
	}

	payload := strings.TrimSpace(builder.String())
	// yt-dlp may emit warnings before the JSON document.
	if idx := strings.IndexByte(payload, '{'); idx > 0 {
		payload = payload[idx:]
	}
	if payload == "" || payload[0] != '{' {
		return nil, errors.New("no JSON payload in output")
	}
	return []byte(payload), nil
}

func parseProgress(line string) (ProgressUpdate, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, progressPrefix) {
		return ProgressUpdate{}, false
	}
	value := strings.TrimSpace(strings.TrimPrefix(trimmed, progressPrefix))
	value = strings.TrimSuffix(value, "%")
	percent, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return ProgressUpdate{}, false
	}
	return ProgressUpdate{Percent: percent, Message: "Downloading source video"}, true
}

func parseDestination(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(trimmed, "[download] Destination: "); ok {
		return strings.TrimSpace(rest), true
	}
	if rest, ok := strings.CutPrefix(trimmed, "[Merger] Merging formats into "); ok {
		return strings.Trim(strings.TrimSpace(rest), `"`), true
	}
	if rest, ok := strings.CutPrefix(trimmed, "[download] "); ok {
		if path, found := strings.CutSuffix(rest, " has already been downloaded"); found {
			return strings.TrimSpace(path), true
		}
	}
	return "", false
}

func newestFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".part") || strings.HasSuffix(entry.Name(), ".ytdl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, entry.Name())
			newestMod = info.ModTime()
		}
	}
	return newest
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			if onStdout != nil {
				onStdout(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

var _ Fetcher = (*Client)(nil)
