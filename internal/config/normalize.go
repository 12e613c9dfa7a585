package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeFetch()
	if err := c.normalizeUpload(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.SocketPath = strings.TrimSpace(c.Paths.SocketPath)
	if c.Paths.SocketPath == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.DataDir, "clipshiftd.sock")
	} else if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.Ytdlp) == "" {
		c.Tools.Ytdlp = defaultYtdlpBinary
	}
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
}

func (c *Config) normalizeFetch() {
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeoutSeconds
	}
	c.Fetch.Proxy = strings.TrimSpace(c.Fetch.Proxy)
	if c.Fetch.Proxy == "" {
		if value, ok := os.LookupEnv("CLIPSHIFT_PROXY"); ok {
			c.Fetch.Proxy = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeUpload() error {
	if c.Upload.ChunkSizeMB <= 0 {
		c.Upload.ChunkSizeMB = defaultChunkSizeMB
	}
	if c.Upload.MaxRetries < 0 {
		c.Upload.MaxRetries = defaultMaxRetries
	}
	if c.Upload.TimeoutSeconds <= 0 {
		c.Upload.TimeoutSeconds = defaultUploadTimeoutSecs
	}
	c.Upload.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Upload.APIBaseURL), "/")
	if c.Upload.APIBaseURL == "" {
		c.Upload.APIBaseURL = defaultAPIBaseURL
	}
	c.Upload.UploadBaseURL = strings.TrimRight(strings.TrimSpace(c.Upload.UploadBaseURL), "/")
	if c.Upload.UploadBaseURL == "" {
		c.Upload.UploadBaseURL = defaultUploadBaseURL
	}
	c.Upload.TokenURL = strings.TrimSpace(c.Upload.TokenURL)
	if c.Upload.TokenURL == "" {
		c.Upload.TokenURL = defaultTokenURL
	}
	if c.Upload.ClientID == "" {
		if value, ok := os.LookupEnv("CLIPSHIFT_CLIENT_ID"); ok {
			c.Upload.ClientID = strings.TrimSpace(value)
		}
	}
	if c.Upload.ClientSecret == "" {
		if value, ok := os.LookupEnv("CLIPSHIFT_CLIENT_SECRET"); ok {
			c.Upload.ClientSecret = strings.TrimSpace(value)
		}
	}
	c.Upload.DefaultCategory = strings.TrimSpace(c.Upload.DefaultCategory)
	if c.Upload.DefaultCategory == "" {
		c.Upload.DefaultCategory = defaultCategory
	}
	c.Upload.DefaultPrivacy = strings.ToLower(strings.TrimSpace(c.Upload.DefaultPrivacy))
	if c.Upload.DefaultPrivacy == "" {
		c.Upload.DefaultPrivacy = defaultPrivacy
	}
	c.Upload.DefaultProfile = strings.TrimSpace(c.Upload.DefaultProfile)
	if c.Upload.DefaultProfile == "" {
		c.Upload.DefaultProfile = defaultProfile
	}

	c.Upload.DefaultLanguage = strings.TrimSpace(c.Upload.DefaultLanguage)
	if c.Upload.DefaultLanguage != "" {
		tag, err := language.Parse(c.Upload.DefaultLanguage)
		if err != nil {
			return fmt.Errorf("upload.default_language: %q is not a valid language tag: %w", c.Upload.DefaultLanguage, err)
		}
		c.Upload.DefaultLanguage = tag.String()
	}
	return nil
}

func (c *Config) normalizeWatch() {
	c.Watch.Handle = strings.TrimSpace(c.Watch.Handle)
	if c.Watch.PollInterval <= 0 {
		c.Watch.PollInterval = defaultWatchPollInterval
	}
	if c.Watch.PerCycleQuota <= 0 {
		c.Watch.PerCycleQuota = defaultWatchPerCycleQuota
	}
	c.Watch.IncludeKeywords = cleanKeywords(c.Watch.IncludeKeywords)
	c.Watch.ExcludeKeywords = cleanKeywords(c.Watch.ExcludeKeywords)
	if c.Watch.MinDuration < 0 {
		c.Watch.MinDuration = 0
	}
	if c.Watch.MaxDuration < 0 {
		c.Watch.MaxDuration = 0
	}
}

func cleanKeywords(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CLIPSHIFT_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeoutSecs
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
