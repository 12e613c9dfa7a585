package tube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"clipshift/internal/fileutil"
	"clipshift/internal/logging"
)

// DefaultProfile is the account profile used when an item names none.
const DefaultProfile = "default"

// expirySlack refreshes tokens slightly before they actually expire.
const expirySlack = 30 * time.Second

// CredentialSource supplies bearer tokens for named account profiles.
type CredentialSource interface {
	Token(ctx context.Context, profile string, force bool) (string, error)
	Invalidate(profile string)
}

type credentialRecord struct {
	RefreshToken string    `json:"refresh_token"`
	AccessToken  string    `json:"access_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// FileCredentialSource caches access tokens in a JSON file keyed by profile
// and refreshes them through the OAuth token endpoint. Refresh material is
// pre-provisioned; there is no interactive consent flow.
type FileCredentialSource struct {
	path         string
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	mu      sync.Mutex
	records map[string]credentialRecord
	loaded  bool
}

// FileOption configures the file credential source.
type FileOption func(*FileCredentialSource)

// WithTokenHTTPClient overrides the HTTP client used for token refresh.
func WithTokenHTTPClient(httpClient *http.Client) FileOption {
	return func(s *FileCredentialSource) {
		if httpClient != nil {
			s.httpClient = httpClient
		}
	}
}

// NewFileCredentialSource constructs a credential source backed by the given
// file path.
func NewFileCredentialSource(path, tokenURL, clientID, clientSecret string, logger *slog.Logger, opts ...FileOption) *FileCredentialSource {
	if logger == nil {
		logger = logging.NewNop()
	}
	source := &FileCredentialSource{
		path:         path,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logging.NewComponentLogger(logger, "credentials"),
		records:      make(map[string]credentialRecord),
	}
	for _, opt := range opts {
		opt(source)
	}
	return source
}

// Token returns a bearer token for the profile, refreshing when the cached
// token is absent, expired, or force is set.
func (s *FileCredentialSource) Token(ctx context.Context, profile string, force bool) (string, error) {
	profile = normalizeProfile(profile)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return "", err
	}

	record, ok := s.records[profile]
	if !ok {
		return "", fmt.Errorf("no credentials provisioned for profile %q in %s", profile, s.path)
	}
	if record.RefreshToken == "" {
		return "", fmt.Errorf("profile %q has no refresh token", profile)
	}

	if !force && record.AccessToken != "" && time.Until(record.Expiry) > expirySlack {
		return record.AccessToken, nil
	}

	token, expiry, err := RefreshToken(ctx, s.httpClient, s.tokenURL, s.clientID, s.clientSecret, record.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh credentials for profile %q: %w", profile, err)
	}

	record.AccessToken = token
	record.Expiry = expiry
	s.records[profile] = record
	if err := s.persist(); err != nil {
		s.logger.Warn("failed to persist refreshed credentials", logging.Error(err))
	}

	s.logger.Debug("refreshed access token", logging.String("profile", profile))
	return token, nil
}

// Invalidate drops the cached access token for a profile so the next Token
// call refreshes.
func (s *FileCredentialSource) Invalidate(profile string) {
	profile = normalizeProfile(profile)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return
	}
	record, ok := s.records[profile]
	if !ok {
		return
	}
	record.AccessToken = ""
	record.Expiry = time.Time{}
	s.records[profile] = record
	if err := s.persist(); err != nil {
		s.logger.Warn("failed to persist credential invalidation", logging.Error(err))
	}
}

// Provision stores refresh material for a profile. Used by setup tooling and
// tests.
func (s *FileCredentialSource) Provision(profile, refreshToken string) error {
	profile = normalizeProfile(profile)
	if strings.TrimSpace(refreshToken) == "" {
		return errors.New("refresh token required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.records[profile] = credentialRecord{RefreshToken: refreshToken}
	return s.persist()
}

func (s *FileCredentialSource) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read credentials file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var records map[string]credentialRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse credentials file: %w", err)
	}
	s.records = records
	if s.records == nil {
		s.records = make(map[string]credentialRecord)
	}
	return nil
}

func (s *FileCredentialSource) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := fileutil.AtomicWriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

func normalizeProfile(profile string) string {
	profile = strings.ToLower(strings.TrimSpace(profile))
	if profile == "" {
		return DefaultProfile
	}
	return profile
}

// StaticCredentialSource serves a fixed token sequence. Test double.
type StaticCredentialSource struct {
	mu          sync.Mutex
	Tokens      []string
	next        int
	Invalidated []string
}

// Token returns the next token in the sequence, repeating the last one.
func (s *StaticCredentialSource) Token(ctx context.Context, profile string, force bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Tokens) == 0 {
		return "", errors.New("no static tokens configured")
	}
	idx := s.next
	if idx >= len(s.Tokens) {
		idx = len(s.Tokens) - 1
	}
	s.next++
	return s.Tokens[idx], nil
}

// Invalidate records the invalidated profile.
func (s *StaticCredentialSource) Invalidate(profile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Invalidated = append(s.Invalidated, normalizeProfile(profile))
}

var (
	_ CredentialSource = (*FileCredentialSource)(nil)
	_ CredentialSource = (*StaticCredentialSource)(nil)
)
