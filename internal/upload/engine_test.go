package upload

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"clipshift/internal/config"
	"clipshift/internal/services"
	"clipshift/internal/services/tube"
	"clipshift/internal/testsupport"
)

// fakeUploader scripts chunk responses. Each call pops the next response.
type fakeUploader struct {
	sessionErrs []error
	chunkErrs   []error
	startCalls  int
	chunkCalls  int
	videoID     string
}

func (f *fakeUploader) StartSession(ctx context.Context, token string, resource tube.VideoResource, totalSize int64) (string, error) {
	f.startCalls++
	if len(f.sessionErrs) > 0 {
		err := f.sessionErrs[0]
		f.sessionErrs = f.sessionErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return "https://upload.example.com/session/1", nil
}

func (f *fakeUploader) UploadChunk(ctx context.Context, token, sessionURL string, chunk []byte, offset, totalSize int64) (tube.ChunkResult, error) {
	f.chunkCalls++
	if len(f.chunkErrs) > 0 {
		err := f.chunkErrs[0]
		f.chunkErrs = f.chunkErrs[1:]
		if err != nil {
			return tube.ChunkResult{}, err
		}
	}
	next := offset + int64(len(chunk))
	if next >= totalSize {
		id := f.videoID
		if id == "" {
			id = "vid-1"
		}
		return tube.ChunkResult{Done: true, VideoID: id, NextOffset: totalSize}, nil
	}
	return tube.ChunkResult{NextOffset: next}, nil
}

func (f *fakeUploader) SetRecordingDate(ctx context.Context, token, videoID string, recorded time.Time) error {
	return nil
}

func (f *fakeUploader) AddToPlaylist(ctx context.Context, token, playlistID, videoID string) error {
	return nil
}

func newTestEngine(t *testing.T, client tube.Uploader, maxRetries int) (*Engine, *tube.StaticCredentialSource, *int) {
	t.Helper()
	creds := &tube.StaticCredentialSource{Tokens: []string{"token-1", "token-2"}}
	cfg := config.Default().Upload
	cfg.MaxRetries = maxRetries
	sleeps := 0
	engine := NewEngine(cfg, client, creds, nil,
		WithSleep(func(time.Duration) { sleeps++ }),
		WithJitter(func() float64 { return 0.5 }),
	)
	return engine, creds, &sleeps
}

func uploadFixture(t *testing.T, size int64) string {
	t.Helper()
	path := t.TempDir() + "/upload.mp4"
	testsupport.WriteFile(t, path, size)
	return path
}

func TestChunkBytesAlignment(t *testing.T) {
	cases := map[int64]int64{
		8 * 1024 * 1024: 8 * 1024 * 1024,
		300 * 1024:      256 * 1024,
		100:             256 * 1024,
		0:               8 * 1024 * 1024,
		-5:              8 * 1024 * 1024,
		1<<20 + 1:       1 << 20,
	}
	for requested, expected := range cases {
		if got := ChunkBytes(requested); got != expected {
			t.Errorf("ChunkBytes(%d) = %d, want %d", requested, got, expected)
		}
	}
}

func TestBackoffBoundsAndCap(t *testing.T) {
	engine, _, _ := newTestEngine(t, &fakeUploader{}, 8)

	// jitter fixed at 0.5 gives scale 1.0.
	if got := engine.Backoff(0); got != time.Second {
		t.Fatalf("attempt 0: got %v", got)
	}
	if got := engine.Backoff(3); got != 8*time.Second {
		t.Fatalf("attempt 3: got %v", got)
	}
	if got := engine.Backoff(10); got != 60*time.Second {
		t.Fatalf("attempt 10 should cap at 60s: got %v", got)
	}
}

func TestUploadSucceedsAfterTransientFailures(t *testing.T) {
	client := &fakeUploader{chunkErrs: []error{
		&tube.StatusError{StatusCode: 503},
		&tube.StatusError{StatusCode: 429},
	}}
	engine, _, sleeps := newTestEngine(t, client, 8)

	videoID, err := engine.Upload(context.Background(), Request{
		FilePath: uploadFixture(t, 512),
		Profile:  "default",
	}, nil)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if videoID != "vid-1" {
		t.Fatalf("unexpected video ID %q", videoID)
	}
	// Two transient failures mean two backoff sleeps and three chunk calls.
	if *sleeps != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", *sleeps)
	}
	if client.chunkCalls != 3 {
		t.Fatalf("expected 3 chunk attempts, got %d", client.chunkCalls)
	}
}

func TestUploadFailsAfterMaxRetries(t *testing.T) {
	maxRetries := 2
	client := &fakeUploader{chunkErrs: []error{
		&tube.StatusError{StatusCode: 503},
		&tube.StatusError{StatusCode: 503},
		&tube.StatusError{StatusCode: 503},
		&tube.StatusError{StatusCode: 503},
	}}
	engine, _, sleeps := newTestEngine(t, client, maxRetries)

	_, err := engine.Upload(context.Background(), Request{
		FilePath: uploadFixture(t, 512),
		Profile:  "default",
	}, nil)
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
	// max retries + 1 total attempts.
	if client.chunkCalls != maxRetries+1 {
		t.Fatalf("expected %d attempts, got %d", maxRetries+1, client.chunkCalls)
	}
	if *sleeps != maxRetries {
		t.Fatalf("expected %d sleeps, got %d", maxRetries, *sleeps)
	}
}

func TestUploadReauthenticatesOnceOn401(t *testing.T) {
	client := &fakeUploader{chunkErrs: []error{
		&tube.StatusError{StatusCode: 401},
	}}
	engine, creds, sleeps := newTestEngine(t, client, 8)

	videoID, err := engine.Upload(context.Background(), Request{
		FilePath: uploadFixture(t, 512),
		Profile:  "default",
	}, nil)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if videoID == "" {
		t.Fatal("expected video ID after re-auth")
	}
	if len(creds.Invalidated) != 1 {
		t.Fatalf("expected one invalidation, got %v", creds.Invalidated)
	}
	// Re-auth retries immediately without a backoff sleep.
	if *sleeps != 0 {
		t.Fatalf("re-auth should not back off, got %d sleeps", *sleeps)
	}
}

func TestUploadSecondAuthFailureIsFatal(t *testing.T) {
	client := &fakeUploader{chunkErrs: []error{
		&tube.StatusError{StatusCode: 401},
		&tube.StatusError{StatusCode: 401},
	}}
	engine, creds, _ := newTestEngine(t, client, 8)

	_, err := engine.Upload(context.Background(), Request{
		FilePath: uploadFixture(t, 512),
		Profile:  "default",
	}, nil)
	if err == nil {
		t.Fatal("expected fatal auth failure")
	}
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth classification, got %v", err)
	}
	if len(creds.Invalidated) != 1 {
		t.Fatalf("expected exactly one invalidation, got %v", creds.Invalidated)
	}
}

func TestUploadNonTransientStatusPropagatesImmediately(t *testing.T) {
	client := &fakeUploader{sessionErrs: []error{
		&tube.StatusError{StatusCode: 403},
	}}
	engine, _, sleeps := newTestEngine(t, client, 8)

	_, err := engine.Upload(context.Background(), Request{
		FilePath: uploadFixture(t, 512),
		Profile:  "default",
	}, nil)
	if err == nil {
		t.Fatal("expected immediate failure")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation classification, got %v", err)
	}
	if *sleeps != 0 || client.startCalls != 1 {
		t.Fatalf("403 must not retry: sleeps=%d starts=%d", *sleeps, client.startCalls)
	}
}

func TestUploadChunksLargeFileAndReportsProgress(t *testing.T) {
	client := &fakeUploader{}
	engine, _, _ := newTestEngine(t, client, 8)

	// Three aligned chunks at the minimum chunk size.
	size := int64(3 * 256 * 1024)
	var percents []float64
	_, err := engine.Upload(context.Background(), Request{
		FilePath:   uploadFixture(t, size),
		Profile:    "default",
		ChunkBytes: 256 * 1024,
	}, func(percent float64, message string) {
		percents = append(percents, percent)
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if client.chunkCalls != 3 {
		t.Fatalf("expected 3 chunks, got %d", client.chunkCalls)
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Fatalf("expected final 100%%, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress went backwards: %v", percents)
		}
	}
}

func TestUploadEmptyFileRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t, &fakeUploader{}, 8)
	path := t.TempDir() + "/empty.mp4"
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	_, err := engine.Upload(context.Background(), Request{FilePath: path, Profile: "default"}, nil)
	if err == nil {
		t.Fatal("expected rejection of empty file")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation classification, got %v", err)
	}
}
