package upload_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"clipshift/internal/ledger"
	"clipshift/internal/queue"
	"clipshift/internal/services"
	"clipshift/internal/testsupport"
	"clipshift/internal/upload"
)

type fakeTransport struct {
	uploads   int
	failFor   map[int]error // keyed by call number (1-based)
	videoIDs  []string
	postCalls int
}

func (f *fakeTransport) Upload(ctx context.Context, req upload.Request, progress upload.ProgressFunc) (string, error) {
	f.uploads++
	if err, ok := f.failFor[f.uploads]; ok {
		return "", err
	}
	if progress != nil {
		progress(100, "Upload complete")
	}
	id := "vid-" + string(rune('0'+f.uploads))
	f.videoIDs = append(f.videoIDs, id)
	return id, nil
}

func (f *fakeTransport) PostPublish(ctx context.Context, profile, videoID string, playlists []string) []error {
	f.postCalls++
	return nil
}

func TestPrepareDuplicateShortCircuits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "Clip")

	uploadFile := filepath.Join(cfg.Paths.WorkDir, "upload.mp4")
	testsupport.WriteFile(t, uploadFile, 256)
	item.SourceFile = uploadFile

	published := ledger.New(cfg.LedgerPath(), nil)
	transport := &fakeTransport{}
	publisher := upload.NewPublisher(cfg, store, nil, transport, published)

	// First publish records the hash.
	if err := publisher.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := publisher.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if transport.uploads != 1 {
		t.Fatalf("expected one upload, got %d", transport.uploads)
	}

	// A second item with the same bytes is refused before any network call.
	second := testsupport.Enqueue(t, store, "https://example.com/v/2", "Clip again")
	second.SourceFile = uploadFile

	err := publisher.Prepare(context.Background(), second)
	if err == nil {
		t.Fatal("expected duplicate rejection")
	}
	if !errors.Is(err, services.ErrDuplicate) {
		t.Fatalf("expected duplicate classification, got %v", err)
	}
	if transport.uploads != 1 {
		t.Fatalf("duplicate must not hit the network, got %d uploads", transport.uploads)
	}
}

func TestExecutePerDestinationIndependence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "Clip")
	item.Destinations = []string{"youtube", "backup"}

	uploadFile := filepath.Join(cfg.Paths.WorkDir, "upload.mp4")
	testsupport.WriteFile(t, uploadFile, 256)
	item.SourceFile = uploadFile

	published := ledger.New(cfg.LedgerPath(), nil)
	primary := &fakeTransport{failFor: map[int]error{1: errors.New("first destination down")}}
	secondary := &fakeTransport{}
	publisher := upload.NewPublisher(cfg, store, nil, primary, published)
	publisher.RegisterDestination("backup", secondary)

	if err := publisher.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := publisher.Execute(context.Background(), item); err != nil {
		t.Fatalf("one destination succeeding should succeed the item: %v", err)
	}

	first, _ := item.ResultFor("youtube")
	if first.Error == "" || first.VideoID != "" {
		t.Fatalf("expected recorded failure for first destination: %#v", first)
	}
	second, _ := item.ResultFor("backup")
	if second.VideoID == "" || second.Error != "" {
		t.Fatalf("expected success for second destination: %#v", second)
	}
	if primary.uploads != 1 || secondary.uploads != 1 {
		t.Fatalf("each destination must use its own transport, got %d and %d", primary.uploads, secondary.uploads)
	}
}

func TestExecuteRejectsUnroutedDestination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "Clip")
	item.Destinations = []string{"youtube", "instagram"}

	uploadFile := filepath.Join(cfg.Paths.WorkDir, "upload.mp4")
	testsupport.WriteFile(t, uploadFile, 256)
	item.SourceFile = uploadFile

	published := ledger.New(cfg.LedgerPath(), nil)
	transport := &fakeTransport{}
	publisher := upload.NewPublisher(cfg, store, nil, transport, published)

	if err := publisher.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := publisher.Execute(context.Background(), item); err != nil {
		t.Fatalf("primary destination succeeding should succeed the item: %v", err)
	}

	if transport.uploads != 1 {
		t.Fatalf("unrouted destination must never reuse another transport, got %d uploads", transport.uploads)
	}
	unrouted, _ := item.ResultFor("instagram")
	if unrouted.Error == "" || unrouted.VideoID != "" {
		t.Fatalf("expected recorded routing failure: %#v", unrouted)
	}
}

func TestSupportedDestinationsListsRegisteredNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	published := ledger.New(cfg.LedgerPath(), nil)
	publisher := upload.NewPublisher(cfg, store, nil, &fakeTransport{}, published)
	publisher.RegisterDestination("Backup", &fakeTransport{})

	got := publisher.SupportedDestinations()
	want := []string{"backup", "youtube"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestExecuteAllDestinationsFailing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "Clip")

	uploadFile := filepath.Join(cfg.Paths.WorkDir, "upload.mp4")
	testsupport.WriteFile(t, uploadFile, 256)
	item.SourceFile = uploadFile

	published := ledger.New(cfg.LedgerPath(), nil)
	transport := &fakeTransport{failFor: map[int]error{
		1: services.Wrap(services.ErrTransient, "upload", "send chunk", "exhausted retries", errors.New("503")),
	}}
	publisher := upload.NewPublisher(cfg, store, nil, transport, published)

	if err := publisher.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := publisher.Execute(context.Background(), item); err == nil {
		t.Fatal("expected failure when every destination fails")
	}
}

func TestExecuteAppliesShortFormBadging(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "Clip")
	item.Width = 1080
	item.Height = 1920
	item.DurationSeconds = 42

	uploadFile := filepath.Join(cfg.Paths.WorkDir, "upload.mp4")
	testsupport.WriteFile(t, uploadFile, 256)
	item.SourceFile = uploadFile

	published := ledger.New(cfg.LedgerPath(), nil)
	transport := &fakeTransport{}
	publisher := upload.NewPublisher(cfg, store, nil, transport, published)

	if err := publisher.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := publisher.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	hasShorts := false
	for _, tag := range item.Metadata.Tags {
		if tag == upload.ShortFormTag {
			hasShorts = true
		}
	}
	if !hasShorts {
		t.Fatalf("expected Shorts tag, got %v", item.Metadata.Tags)
	}
}

func TestExecuteSkipsAlreadyPublishedDestination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "Clip")
	item.SetResult(queue.DestinationResult{Destination: "youtube", VideoID: "vid-existing"})

	uploadFile := filepath.Join(cfg.Paths.WorkDir, "upload.mp4")
	testsupport.WriteFile(t, uploadFile, 256)
	item.SourceFile = uploadFile

	published := ledger.New(cfg.LedgerPath(), nil)
	transport := &fakeTransport{}
	publisher := upload.NewPublisher(cfg, store, nil, transport, published)

	if err := publisher.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if transport.uploads != 0 {
		t.Fatalf("already published destination must not re-upload, got %d", transport.uploads)
	}
}
