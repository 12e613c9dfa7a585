package fetch_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"clipshift/internal/fetch"
	"clipshift/internal/media/ffprobe"
	"clipshift/internal/services"
	"clipshift/internal/services/ytdlp"
	"clipshift/internal/testsupport"
)

type fakeFetcher struct {
	downloadPath string
	downloadErr  error
	updates      []ytdlp.ProgressUpdate
	info         ytdlp.VideoInfo
	metadataErr  error
}

func (f *fakeFetcher) Download(ctx context.Context, sourceURL, destDir string, progress func(ytdlp.ProgressUpdate)) (string, error) {
	if progress != nil {
		for _, update := range f.updates {
			progress(update)
		}
	}
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	if progress != nil {
		progress(ytdlp.ProgressUpdate{Percent: 40, Message: "downloading"})
	}
	path := filepath.Join(destDir, f.downloadPath)
	return path, nil
}

func (f *fakeFetcher) Metadata(ctx context.Context, sourceURL string) (ytdlp.VideoInfo, error) {
	if f.metadataErr != nil {
		return ytdlp.VideoInfo{}, f.metadataErr
	}
	return f.info, nil
}

func (f *fakeFetcher) ListChannel(ctx context.Context, handle string) ([]ytdlp.RemoteVideo, error) {
	return nil, nil
}

func fakeProbe(ctx context.Context, binary, path string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video", Width: 1920, Height: 1080}},
		Format:  ffprobe.Format{Duration: "120"},
	}, nil
}

func TestExecuteDownloadsAndBackfillsMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "")

	client := &fakeFetcher{
		downloadPath: "abc.mp4",
		info: ytdlp.VideoInfo{
			Title:       "Fetched title",
			Description: "Fetched description",
			Tags:        []string{"one", "One", "two"},
		},
	}
	handler := fetch.NewFetcherWithDependencies(cfg, store, nil, client, fakeProbe)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if item.SourceFile == "" {
		t.Fatal("expected source file to be recorded")
	}
	if item.Metadata.Title != "Fetched title" {
		t.Fatalf("expected backfilled title, got %q", item.Metadata.Title)
	}
	if len(item.Metadata.Tags) != 2 {
		t.Fatalf("expected normalized tags, got %v", item.Metadata.Tags)
	}
	if item.DownloadPercent != 100 {
		t.Fatalf("expected 100%% download, got %v", item.DownloadPercent)
	}
	if item.Width != 1920 || item.DurationSeconds != 120 {
		t.Fatalf("probe results not applied: %#v", item)
	}
}

func TestExecuteKeepsOperatorMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "Operator title")
	item.Metadata.Description = "Operator description"

	client := &fakeFetcher{
		downloadPath: "abc.mp4",
		info:         ytdlp.VideoInfo{Title: "Fetched title", Description: "Fetched description"},
	}
	handler := fetch.NewFetcherWithDependencies(cfg, store, nil, client, fakeProbe)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if item.Metadata.Title != "Operator title" || item.Metadata.Description != "Operator description" {
		t.Fatalf("operator metadata should win: %#v", item.Metadata)
	}
}

func TestExecuteWrapsDownloadFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "clip")

	client := &fakeFetcher{downloadErr: errors.New("network down")}
	handler := fetch.NewFetcherWithDependencies(cfg, store, nil, client, fakeProbe)

	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected download failure")
	}
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch error classification, got %v", err)
	}
}

func TestExecutePersistsProgressDuringDownload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "clip")

	client := &fakeFetcher{
		updates:     []ytdlp.ProgressUpdate{{Percent: 37, Message: "37% of 12MiB"}},
		downloadErr: errors.New("connection reset"),
	}
	handler := fetch.NewFetcherWithDependencies(cfg, store, nil, client, fakeProbe)

	if err := handler.Execute(context.Background(), item); err == nil {
		t.Fatal("expected download failure")
	}

	persisted, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.DownloadPercent != 37 {
		t.Fatalf("expected persisted download percent 37, got %v", persisted.DownloadPercent)
	}
	if persisted.ProgressMessage != "37% of 12MiB" {
		t.Fatalf("expected persisted progress message, got %q", persisted.ProgressMessage)
	}
}

func TestPrepareRequiresSourceURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "clip")
	item.SourceURL = "   "

	handler := fetch.NewFetcherWithDependencies(cfg, store, nil, &fakeFetcher{}, fakeProbe)
	if err := handler.Prepare(context.Background(), item); err == nil {
		t.Fatal("expected error for blank source URL")
	}
}
