package tube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// VideoResource is the metadata body sent when a resumable session starts.
// Optional fields are pointers or omitted slices so absent values never
// appear on the wire.
type VideoResource struct {
	Snippet Snippet `json:"snippet"`
	Status  Status  `json:"status"`
}

// Snippet carries the descriptive metadata of a video.
type Snippet struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags,omitempty"`
	CategoryID      string   `json:"categoryId"`
	DefaultLanguage string   `json:"defaultLanguage,omitempty"`
}

// Status carries visibility and compliance settings.
type Status struct {
	PrivacyStatus           string     `json:"privacyStatus"`
	PublishAt               *time.Time `json:"publishAt,omitempty"`
	License                 string     `json:"license,omitempty"`
	Embeddable              *bool      `json:"embeddable,omitempty"`
	SelfDeclaredMadeForKids *bool      `json:"selfDeclaredMadeForKids,omitempty"`
}

// ChunkResult reports the outcome of one chunk send.
type ChunkResult struct {
	Done       bool
	VideoID    string
	NextOffset int64
}

// Uploader is the transport behaviour the upload engine depends on.
type Uploader interface {
	StartSession(ctx context.Context, token string, resource VideoResource, totalSize int64) (string, error)
	UploadChunk(ctx context.Context, token, sessionURL string, chunk []byte, offset, totalSize int64) (ChunkResult, error)
	SetRecordingDate(ctx context.Context, token, videoID string, recorded time.Time) error
	AddToPlaylist(ctx context.Context, token, playlistID, videoID string) error
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client speaks the destination's JSON API over net/http.
type Client struct {
	apiBaseURL    string
	uploadBaseURL string
	httpClient    *http.Client
}

// NewClient constructs an API client for the given base URLs.
func NewClient(apiBaseURL, uploadBaseURL string, timeoutSeconds int, opts ...Option) *Client {
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	client := &Client{
		apiBaseURL:    strings.TrimRight(apiBaseURL, "/"),
		uploadBaseURL: strings.TrimRight(uploadBaseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// StartSession opens a resumable upload session and returns the session URL.
func (c *Client) StartSession(ctx context.Context, token string, resource VideoResource, totalSize int64) (string, error) {
	body, err := json.Marshal(resource)
	if err != nil {
		return "", fmt.Errorf("marshal video resource: %w", err)
	}

	endpoint := c.uploadBaseURL + "/videos?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", "video/*")
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", totalSize))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: readBodySnippet(resp.Body)}
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", errors.New("session response missing Location header")
	}
	return sessionURL, nil
}

// UploadChunk sends one aligned chunk. A 308 means the session wants more
// data; the Range header reports how far the server got. A final 2xx carries
// the created video resource.
func (c *Client) UploadChunk(ctx context.Context, token, sessionURL string, chunk []byte, offset, totalSize int64) (ChunkResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, bytes.NewReader(chunk))
	if err != nil {
		return ChunkResult{}, fmt.Errorf("build chunk request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "video/*")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(len(chunk))-1, totalSize))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ChunkResult{}, fmt.Errorf("send chunk: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 308:
		next := offset + int64(len(chunk))
		if parsed, ok := parseRangeEnd(resp.Header.Get("Range")); ok {
			next = parsed + 1
		}
		return ChunkResult{NextOffset: next}, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return ChunkResult{}, fmt.Errorf("decode upload response: %w", err)
		}
		if payload.ID == "" {
			return ChunkResult{}, errors.New("upload response missing video id")
		}
		return ChunkResult{Done: true, VideoID: payload.ID, NextOffset: totalSize}, nil
	default:
		return ChunkResult{}, &StatusError{StatusCode: resp.StatusCode, Body: readBodySnippet(resp.Body)}
	}
}

// SetRecordingDate updates the recording details of a published video.
func (c *Client) SetRecordingDate(ctx context.Context, token, videoID string, recorded time.Time) error {
	payload := map[string]any{
		"id": videoID,
		"recordingDetails": map[string]any{
			"recordingDate": recorded.UTC().Format(time.RFC3339),
		},
	}
	return c.putJSON(ctx, token, c.apiBaseURL+"/videos?part=recordingDetails", payload)
}

// AddToPlaylist inserts a published video into a playlist.
func (c *Client) AddToPlaylist(ctx context.Context, token, playlistID, videoID string) error {
	payload := map[string]any{
		"snippet": map[string]any{
			"playlistId": playlistID,
			"resourceId": map[string]any{
				"kind":    "youtube#video",
				"videoId": videoID,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal playlist item: %w", err)
	}

	endpoint := c.apiBaseURL + "/playlistItems?part=snippet"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build playlist request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("insert playlist item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: readBodySnippet(resp.Body)}
	}
	return nil
}

func (c *Client) putJSON(ctx context.Context, token, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: readBodySnippet(resp.Body)}
	}
	return nil
}

// parseRangeEnd extracts the last confirmed byte from a "bytes=0-N" header.
func parseRangeEnd(header string) (int64, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	header = strings.TrimPrefix(header, "bytes=")
	_, endStr, found := strings.Cut(header, "-")
	if !found {
		return 0, false
	}
	var end int64
	if _, err := fmt.Sscanf(endStr, "%d", &end); err != nil {
		return 0, false
	}
	return end, true
}

func readBodySnippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 2048))
	return strings.TrimSpace(string(data))
}

// RefreshToken exchanges a refresh token for a fresh access token at the
// given token endpoint.
func RefreshToken(ctx context.Context, httpClient *http.Client, tokenURL, clientID, clientSecret, refreshToken string) (string, time.Time, error) {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", time.Time{}, &StatusError{StatusCode: resp.StatusCode, Body: readBodySnippet(resp.Body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", time.Time{}, errors.New("token response missing access_token")
	}

	expiry := time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return payload.AccessToken, expiry, nil
}

var _ Uploader = (*Client)(nil)
