package ytdlp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type fakeExecutor struct {
	lines  []string
	args   []string
	binary string
	err    error
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	f.binary = binary
	f.args = args
	for _, line := range f.lines {
		if onStdout != nil {
			onStdout(line)
		}
	}
	return f.err
}

func TestDownloadParsesDestinationAndProgress(t *testing.T) {
	destDir := t.TempDir()
	downloaded := filepath.Join(destDir, "abc123.mp4")
	if err := os.WriteFile(downloaded, []byte("video"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	exec := &fakeExecutor{lines: []string{
		"[download] Destination: " + downloaded,
		"fetch-progress  12.5%",
		"fetch-progress 100.0%",
	}}
	client := New("yt-dlp", 0, WithExecutor(exec))

	var updates []ProgressUpdate
	path, err := client.Download(context.Background(), "https://example.com/v/1", destDir, func(u ProgressUpdate) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if path != downloaded {
		t.Fatalf("expected %q, got %q", downloaded, path)
	}
	if len(updates) != 2 || updates[0].Percent != 12.5 || updates[1].Percent != 100 {
		t.Fatalf("unexpected progress updates: %#v", updates)
	}
}

func TestDownloadPrefersMergerOutput(t *testing.T) {
	destDir := t.TempDir()
	merged := filepath.Join(destDir, "abc123.mkv")
	if err := os.WriteFile(merged, []byte("video"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	exec := &fakeExecutor{lines: []string{
		"[download] Destination: " + filepath.Join(destDir, "abc123.f137.mp4"),
		`[Merger] Merging formats into "` + merged + `"`,
	}}
	client := New("yt-dlp", 0, WithExecutor(exec))

	path, err := client.Download(context.Background(), "https://example.com/v/1", destDir, nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if path != merged {
		t.Fatalf("expected merged output %q, got %q", merged, path)
	}
}

func TestDownloadAppliesProxy(t *testing.T) {
	destDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(destDir, "x.mp4"), []byte("v"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	exec := &fakeExecutor{}
	client := New("yt-dlp", 0, WithExecutor(exec), WithProxy("socks5://localhost:9050"))
	if _, err := client.Download(context.Background(), "https://example.com/v/1", destDir, nil); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	found := false
	for i, arg := range exec.args {
		if arg == "--proxy" && i+1 < len(exec.args) && exec.args[i+1] == "socks5://localhost:9050" {
			found = true
		}
	}
	if !found {
		t.Fatalf("proxy flag missing from args: %v", exec.args)
	}
}

func TestMetadataParsesPayload(t *testing.T) {
	exec := &fakeExecutor{lines: []string{
		"WARNING: some warning",
		`{"id":"abc","title":"Clip","description":"desc","duration":42.5,"tags":["a","b"],"uploader":"someone"}`,
	}}
	client := New("yt-dlp", 0, WithExecutor(exec))

	info, err := client.Metadata(context.Background(), "https://example.com/v/abc")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if info.ID != "abc" || info.Title != "Clip" || info.DurationSeconds != 42.5 {
		t.Fatalf("unexpected info: %#v", info)
	}
	if info.WebpageURL != "https://example.com/v/abc" {
		t.Fatalf("expected webpage URL fallback, got %q", info.WebpageURL)
	}
}

func TestListChannelFlattensEntries(t *testing.T) {
	exec := &fakeExecutor{lines: []string{
		`{"entries":[{"id":"v1","title":"One","duration":30},{"id":"v2","title":"Two","url":"https://example.com/v2","duration":95},{"title":"no id"}]}`,
	}}
	client := New("yt-dlp", 0, WithExecutor(exec))

	videos, err := client.ListChannel(context.Background(), "@creator")
	if err != nil {
		t.Fatalf("ListChannel failed: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
	if videos[0].URL != "https://www.youtube.com/watch?v=v1" {
		t.Fatalf("expected URL fallback, got %q", videos[0].URL)
	}
	if videos[1].URL != "https://example.com/v2" {
		t.Fatalf("expected explicit URL, got %q", videos[1].URL)
	}
}

func TestHandleURL(t *testing.T) {
	cases := map[string]string{
		"@creator":                  "https://www.youtube.com/@creator/videos",
		"creator":                   "https://www.youtube.com/@creator/videos",
		"https://example.com/@chan": "https://example.com/@chan",
		"":                          "",
	}
	for input, expected := range cases {
		if got := HandleURL(input); got != expected {
			t.Errorf("HandleURL(%q) = %q, want %q", input, got, expected)
		}
	}
}
