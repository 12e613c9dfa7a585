package config

const (
	defaultWorkDir   = "~/.local/share/clipshift/work"
	defaultDataDir   = "~/.local/share/clipshift"
	defaultLogDir    = "~/.local/share/clipshift/logs"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultYtdlpBinary   = "yt-dlp"
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"

	defaultFetchTimeoutSeconds = 600

	defaultChunkSizeMB         = 8
	defaultMaxRetries          = 8
	defaultUploadTimeoutSecs   = 120
	defaultAPIBaseURL          = "https://www.googleapis.com/youtube/v3"
	defaultUploadBaseURL       = "https://www.googleapis.com/upload/youtube/v3"
	defaultTokenURL            = "https://oauth2.googleapis.com/token"
	defaultCategory            = "22"
	defaultPrivacy             = "private"
	defaultProfile             = "default"
	defaultQueuePollInterval   = 5
	defaultHeartbeatInterval   = 15
	defaultWatchPollInterval   = 1800
	defaultWatchPerCycleQuota  = 3
	defaultNotifyTimeoutSecs   = 10
	defaultShortFormMaxSeconds = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Tools: Tools{
			Ytdlp:   defaultYtdlpBinary,
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeoutSeconds,
		},
		Upload: Upload{
			ChunkSizeMB:     defaultChunkSizeMB,
			MaxRetries:      defaultMaxRetries,
			TimeoutSeconds:  defaultUploadTimeoutSecs,
			APIBaseURL:      defaultAPIBaseURL,
			UploadBaseURL:   defaultUploadBaseURL,
			TokenURL:        defaultTokenURL,
			DefaultCategory: defaultCategory,
			DefaultPrivacy:  defaultPrivacy,
			DefaultProfile:  defaultProfile,

			ShortFormMaxSeconds: defaultShortFormMaxSeconds,
		},
		Queue: Queue{
			PollInterval:      defaultQueuePollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
		},
		Watch: Watch{
			PollInterval:  defaultWatchPollInterval,
			PerCycleQuota: defaultWatchPerCycleQuota,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeoutSecs,
			Uploads:        true,
			Queue:          true,
			Discovery:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
