package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir    string `toml:"work_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	Ytdlp   string `toml:"ytdlp"`
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Fetch contains source download settings.
type Fetch struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Proxy          string `toml:"proxy"`
}

// Upload contains destination platform and transfer policy settings.
type Upload struct {
	ChunkSizeMB     int    `toml:"chunk_size_mb"`
	MaxRetries      int    `toml:"max_retries"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	APIBaseURL      string `toml:"api_base_url"`
	UploadBaseURL   string `toml:"upload_base_url"`
	TokenURL        string `toml:"token_url"`
	ClientID        string `toml:"client_id"`
	ClientSecret    string `toml:"client_secret"`
	DefaultCategory string `toml:"default_category"`
	DefaultPrivacy  string `toml:"default_privacy"`
	DefaultLanguage string `toml:"default_language"`
	DefaultProfile  string `toml:"default_profile"`

	// ShortFormMaxSeconds is the duration ceiling for short-form badging.
	ShortFormMaxSeconds int `toml:"short_form_max_seconds"`
}

// Queue contains worker loop timing and auto-pause settings.
type Queue struct {
	PollInterval      int  `toml:"poll_interval"`
	HeartbeatInterval int  `toml:"heartbeat_interval"`
	AutoPauseEnabled  bool `toml:"auto_pause_enabled"`
	AutoPauseAfter    int  `toml:"auto_pause_after"`
}

// Watch contains discovery poller settings.
type Watch struct {
	Enabled         bool     `toml:"enabled"`
	Handle          string   `toml:"handle"`
	PollInterval    int      `toml:"poll_interval"`
	PerCycleQuota   int      `toml:"per_cycle_quota"`
	IncludeKeywords []string `toml:"include_keywords"`
	ExcludeKeywords []string `toml:"exclude_keywords"`
	MinDuration     int      `toml:"min_duration"`
	MaxDuration     int      `toml:"max_duration"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Uploads        bool   `toml:"uploads"`
	Queue          bool   `toml:"queue"`
	Discovery      bool   `toml:"discovery"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipshift.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Fetch         Fetch         `toml:"fetch"`
	Upload        Upload        `toml:"upload"`
	Queue         Queue         `toml:"queue"`
	Watch         Watch         `toml:"watch"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipshift/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipshift.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDatabasePath returns the sqlite database path for queue persistence.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// LedgerPath returns the dedup ledger file path.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "published.json")
}

// ProfilesPath returns the profile store file path.
func (c *Config) ProfilesPath() string {
	return filepath.Join(c.Paths.DataDir, "profiles.json")
}

// WatchStatePath returns the discovery state file path.
func (c *Config) WatchStatePath() string {
	return filepath.Join(c.Paths.DataDir, "watch_state.json")
}

// CredentialsPath returns the cached destination credential file path.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Paths.DataDir, "credentials.json")
}

// PidFilePath returns the daemon pid file path.
func (c *Config) PidFilePath() string {
	return filepath.Join(c.Paths.DataDir, "clipshiftd.pid")
}

// LockPath returns the daemon single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "clipshiftd.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
