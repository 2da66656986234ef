package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

const envPrefix = "STREAMSAVIOUR"

// LoadConfig loads configuration from file and environment. A .env file in
// the working directory is loaded first; variables already set win.
func LoadConfig(configPath string) (*domain.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.streamsaviour")
		v.AddConfigPath("/etc/streamsaviour")
	}

	// Environment overrides such as STREAMSAVIOUR_SERVER_PORT only apply
	// to keys viper knows about, so every default is registered.
	setDefaults(v, config)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, config *domain.Config) {
	for key, value := range configValues(config) {
		v.SetDefault(key, value)
	}
}

// configValues flattens config into viper keys
func configValues(config *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host": config.Server.Host,
		"server.port": config.Server.Port,

		"extractor.binary":          config.Extractor.Binary,
		"extractor.cookie_file":     config.Extractor.CookieFile,
		"extractor.extra_args":      config.Extractor.ExtraArgs,
		"extractor.analyze_timeout": config.Extractor.AnalyzeTimeout.String(),

		"history.database_path": config.History.DatabasePath,
		"history.namespace":     config.History.Namespace,

		"session.chunk_size":          config.Session.ChunkSize,
		"session.max_failed_retained": config.Session.MaxFailedRetained,

		"export.target":               config.Export.Target,
		"export.dir":                  config.Export.Dir,
		"export.s3.region":            config.Export.S3.Region,
		"export.s3.bucket":            config.Export.S3.Bucket,
		"export.s3.prefix":            config.Export.S3.Prefix,
		"export.s3.access_key_id":     config.Export.S3.AccessKeyID,
		"export.s3.secret_access_key": config.Export.S3.SecretAccessKey,

		"notification.enabled": config.Notification.Enabled,
		"notification.sound":   config.Notification.Sound,
		"notification.method":  config.Notification.Method,

		"logging.level":       config.Logging.Level,
		"logging.format":      config.Logging.Format,
		"logging.output_path": config.Logging.OutputPath,
		"logging.logs_dir":    config.Logging.LogsDir,
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Extractor.CookieFile = expandPath(config.Extractor.CookieFile)
	config.Export.Dir = expandPath(config.Export.Dir)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// $HOME may be unset in service environments
	if strings.Contains(path, "$HOME") && os.Getenv("HOME") == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Extractor.Binary == "" {
		return fmt.Errorf("extractor binary not configured")
	}

	if config.Extractor.AnalyzeTimeout <= 0 {
		return fmt.Errorf("analyze timeout must be positive")
	}

	if config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.History.Namespace == "" {
		return fmt.Errorf("history namespace not configured")
	}

	if config.Session.ChunkSize < 1 {
		return fmt.Errorf("session chunk size must be at least 1")
	}

	if config.Session.MaxFailedRetained < 0 {
		return fmt.Errorf("max failed retained cannot be negative")
	}

	switch config.Export.Target {
	case "local":
		if config.Export.Dir == "" {
			return fmt.Errorf("export directory not configured")
		}
	case "s3":
		if config.Export.S3.Bucket == "" {
			return fmt.Errorf("export s3 bucket not configured")
		}
	default:
		return fmt.Errorf("unknown export target: %s", config.Export.Target)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
