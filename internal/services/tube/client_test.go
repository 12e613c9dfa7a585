package tube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestStartSessionReturnsLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("missing bearer token")
		}
		if r.Header.Get("X-Upload-Content-Length") != "1024" {
			t.Errorf("missing upload length header")
		}
		var resource VideoResource
		if err := json.NewDecoder(r.Body).Decode(&resource); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if resource.Snippet.Title != "Clip" {
			t.Errorf("unexpected title %q", resource.Snippet.Title)
		}
		w.Header().Set("Location", "https://upload.example.com/session/1")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5)
	sessionURL, err := client.StartSession(context.Background(), "token-1", VideoResource{
		Snippet: Snippet{Title: "Clip", CategoryID: "22"},
		Status:  Status{PrivacyStatus: "private"},
	}, 1024)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if sessionURL != "https://upload.example.com/session/1" {
		t.Fatalf("unexpected session URL %q", sessionURL)
	}
}

func TestStartSessionSurfacesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5)
	_, err := client.StartSession(context.Background(), "token", VideoResource{}, 10)
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != 429 || !IsTransientStatus(statusErr.StatusCode) {
		t.Fatalf("unexpected status error: %#v", statusErr)
	}
}

func TestUploadChunkResumeIncomplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Range") != "bytes 0-3/10" {
			t.Errorf("unexpected content range %q", r.Header.Get("Content-Range"))
		}
		w.Header().Set("Range", "bytes=0-3")
		w.WriteHeader(308)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5)
	result, err := client.UploadChunk(context.Background(), "token", server.URL, []byte("abcd"), 0, 10)
	if err != nil {
		t.Fatalf("UploadChunk failed: %v", err)
	}
	if result.Done {
		t.Fatal("308 should not be done")
	}
	if result.NextOffset != 4 {
		t.Fatalf("expected next offset 4, got %d", result.NextOffset)
	}
}

func TestUploadChunkFinalResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "vid-42"})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5)
	result, err := client.UploadChunk(context.Background(), "token", server.URL, []byte("last"), 6, 10)
	if err != nil {
		t.Fatalf("UploadChunk failed: %v", err)
	}
	if !result.Done || result.VideoID != "vid-42" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestAddToPlaylist(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "playlistItems") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5)
	if err := client.AddToPlaylist(context.Background(), "token", "pl-1", "vid-1"); err != nil {
		t.Fatalf("AddToPlaylist failed: %v", err)
	}
	snippet, _ := captured["snippet"].(map[string]any)
	if snippet["playlistId"] != "pl-1" {
		t.Fatalf("unexpected payload: %#v", captured)
	}
}

func TestVideoResourceOmitsAbsentFields(t *testing.T) {
	data, err := json.Marshal(VideoResource{
		Snippet: Snippet{Title: "Clip", Description: "d", CategoryID: "22"},
		Status:  Status{PrivacyStatus: "private"},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	text := string(data)
	for _, forbidden := range []string{"tags", "defaultLanguage", "publishAt", "license", "embeddable", "selfDeclaredMadeForKids"} {
		if strings.Contains(text, forbidden) {
			t.Errorf("absent field %q should not be serialized: %s", forbidden, text)
		}
	}
}

func TestFileCredentialSourceRefreshesAndCaches(t *testing.T) {
	refreshCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			t.Errorf("unexpected form: %v", r.Form)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "access-1", "expires_in": 3600})
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "credentials.json")
	source := NewFileCredentialSource(path, server.URL, "client", "secret", nil)
	if err := source.Provision("default", "refresh-1"); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	token, err := source.Token(context.Background(), "", false)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "access-1" {
		t.Fatalf("unexpected token %q", token)
	}

	// Cached token avoids a second refresh.
	if _, err := source.Token(context.Background(), "default", false); err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if refreshCalls != 1 {
		t.Fatalf("expected 1 refresh, got %d", refreshCalls)
	}

	// Force bypasses the cache.
	if _, err := source.Token(context.Background(), "default", true); err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if refreshCalls != 2 {
		t.Fatalf("expected 2 refreshes after force, got %d", refreshCalls)
	}

	// Invalidate drops the cache.
	source.Invalidate("default")
	if _, err := source.Token(context.Background(), "default", false); err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if refreshCalls != 3 {
		t.Fatalf("expected 3 refreshes after invalidate, got %d", refreshCalls)
	}
}

func TestFileCredentialSourceUnknownProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	source := NewFileCredentialSource(path, "http://unused", "client", "secret", nil)
	if _, err := source.Token(context.Background(), "missing", false); err == nil {
		t.Fatal("expected error for unprovisioned profile")
	}
}

func TestParseRangeEnd(t *testing.T) {
	if end, ok := parseRangeEnd("bytes=0-1048575"); !ok || end != 1048575 {
		t.Fatalf("unexpected parse: %d %v", end, ok)
	}
	if _, ok := parseRangeEnd(""); ok {
		t.Fatal("empty header should not parse")
	}
}

func TestStaticCredentialSourceSequence(t *testing.T) {
	source := &StaticCredentialSource{Tokens: []string{"a", "b"}}
	first, _ := source.Token(context.Background(), "default", false)
	second, _ := source.Token(context.Background(), "default", true)
	third, _ := source.Token(context.Background(), "default", true)
	if first != "a" || second != "b" || third != "b" {
		t.Fatalf("unexpected sequence: %q %q %q", first, second, third)
	}
	source.Invalidate("Default")
	if len(source.Invalidated) != 1 || source.Invalidated[0] != "default" {
		t.Fatalf("unexpected invalidations: %v", source.Invalidated)
	}
}

func TestRefreshTokenErrorsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_grant", http.StatusBadRequest)
	}))
	defer server.Close()

	_, _, err := RefreshToken(context.Background(), server.Client(), server.URL, "c", "s", "r")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if _, ok := err.(*StatusError); !ok {
		t.Fatalf("expected StatusError, got %T", err)
	}
}
