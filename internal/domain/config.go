package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Extractor    ExtractorConfig    `mapstructure:"extractor"`
	History      HistoryConfig      `mapstructure:"history"`
	Session      SessionConfig      `mapstructure:"session"`
	Export       ExportConfig       `mapstructure:"export"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ExtractorConfig configures the yt-dlp subprocess
type ExtractorConfig struct {
	Binary         string        `mapstructure:"binary"`
	CookieFile     string        `mapstructure:"cookie_file"`
	ExtraArgs      []string      `mapstructure:"extra_args"`
	AnalyzeTimeout time.Duration `mapstructure:"analyze_timeout"`
}

// HistoryConfig contains persistence configuration
type HistoryConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	Namespace    string `mapstructure:"namespace"`
}

// SessionConfig contains download session configuration
type SessionConfig struct {
	ChunkSize         int `mapstructure:"chunk_size"`
	MaxFailedRetained int `mapstructure:"max_failed_retained"` // 0 keeps every failed session
}

// ExportConfig selects where library payloads are exported
type ExportConfig struct {
	Target string   `mapstructure:"target"` // local, s3
	Dir    string   `mapstructure:"dir"`
	S3     S3Config `mapstructure:"s3"`
}

// S3Config contains S3 export settings
type S3Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // category logs (session, error)
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Extractor: ExtractorConfig{
			Binary:         "yt-dlp",
			AnalyzeTimeout: 60 * time.Second,
		},
		History: HistoryConfig{
			DatabasePath: "$HOME/.streamsaviour/history.db",
			Namespace:    "streamsaviour-history",
		},
		Session: SessionConfig{
			ChunkSize:         32 * 1024,
			MaxFailedRetained: 50,
		},
		Export: ExportConfig{
			Target: "local",
			Dir:    "$HOME/Downloads/streamsaviour",
			S3: S3Config{
				Region: "us-east-1",
				Prefix: "streamsaviour",
			},
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   true,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.streamsaviour/logs",
		},
	}
}
