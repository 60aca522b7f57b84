// Package config loads server configuration from flags, environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Sync     SyncConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	// File enables rotated file output in addition to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// DatabaseConfig holds storage locations.
type DatabaseConfig struct {
	// DataDir holds the SQLite database, the replay cache and the auth key.
	DataDir string
	// Path is the SQLite file (default: {DataDir}/stockroom.db).
	Path string
	// ReplayPath is the badger directory (default: {DataDir}/replay).
	ReplayPath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 30s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string
}

// AuthConfig holds token verification configuration.
type AuthConfig struct {
	// KeyHex is the shared PASETO v4 key. When empty, a key is loaded from or
	// generated into {DataDir}/auth.key.
	KeyHex string
}

// SyncConfig holds delta and batch tuning.
type SyncConfig struct {
	DefaultLimit       int
	MaxLimit           int
	MaxOperations      int
	CommitMode         string
	TombstoneRetention time.Duration
	PruneInterval      time.Duration
	ReplayTTL          time.Duration
	// BatchRate is sustained batch requests per second per workspace.
	BatchRate  float64
	BatchBurst int
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("stockroom", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Write logs to this file with rotation")
	dataDir := fs.String("data-dir", "", "Directory for database, replay cache and auth key")
	dbPath := fs.String("db-path", "", "SQLite database file")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	commitMode := fs.String("commit-mode", "", "Batch commit mode: operation or batch (default: operation)")
	retention := fs.String("tombstone-retention", "", "How long tombstones are kept (default: 2160h)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:      getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			File:       getConfigValue(*logFile, "LOG_FILE", ""),
			MaxSizeMB:  getIntConfigValue("", "LOG_MAX_SIZE_MB", 100),
			MaxBackups: getIntConfigValue("", "LOG_MAX_BACKUPS", 5),
		},
		Database: DatabaseConfig{
			DataDir:    getConfigValue(*dataDir, "DATA_DIR", ""),
			Path:       getConfigValue(*dbPath, "DB_PATH", ""),
			ReplayPath: getConfigValue("", "REPLAY_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue("", "CORS_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			KeyHex: getConfigValue("", "AUTH_KEY", ""),
		},
		Sync: SyncConfig{
			DefaultLimit:  getIntConfigValue("", "SYNC_DEFAULT_LIMIT", 500),
			MaxLimit:      getIntConfigValue("", "SYNC_MAX_LIMIT", 1000),
			MaxOperations: getIntConfigValue("", "SYNC_MAX_OPERATIONS", 500),
			CommitMode:    getConfigValue(*commitMode, "SYNC_COMMIT_MODE", "operation"),
			BatchRate:     getFloatConfigValue("", "SYNC_BATCH_RATE", 5),
			BatchBurst:    getIntConfigValue("", "SYNC_BATCH_BURST", 20),
		},
	}

	durations := []struct {
		dest     *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Sync.TombstoneRetention, *retention, "SYNC_TOMBSTONE_RETENTION", "2160h"},
		{&cfg.Sync.PruneInterval, "", "SYNC_PRUNE_INTERVAL", "1h"},
		{&cfg.Sync.ReplayTTL, "", "SYNC_REPLAY_TTL", "24h"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Database.Path == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	switch c.Sync.CommitMode {
	case "operation", "batch":
	default:
		return fmt.Errorf("invalid commit mode: %s (must be operation or batch)", c.Sync.CommitMode)
	}

	if c.Sync.DefaultLimit < 1 || c.Sync.MaxLimit < c.Sync.DefaultLimit {
		return fmt.Errorf("invalid page limits: default %d, max %d", c.Sync.DefaultLimit, c.Sync.MaxLimit)
	}
	if c.Sync.MaxOperations < 1 {
		return fmt.Errorf("max operations must be positive, got %d", c.Sync.MaxOperations)
	}
	if c.Sync.TombstoneRetention <= 0 {
		return errors.New("tombstone retention must be positive")
	}
	if c.Sync.PruneInterval <= 0 {
		return errors.New("prune interval must be positive")
	}
	if c.Sync.BatchRate <= 0 || c.Sync.BatchBurst < 1 {
		return fmt.Errorf("invalid batch rate limit: %g/s burst %d", c.Sync.BatchRate, c.Sync.BatchBurst)
	}

	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandPaths resolves the data directory and derives the file locations under it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	dataDir, err := expandPath(c.Database.DataDir, filepath.Join(homeDir, "Stockroom"))
	if err != nil {
		return err
	}
	c.Database.DataDir = dataDir

	if c.Database.Path, err = expandPath(c.Database.Path, filepath.Join(dataDir, "stockroom.db")); err != nil {
		return err
	}
	if c.Database.ReplayPath, err = expandPath(c.Database.ReplayPath, filepath.Join(dataDir, "replay")); err != nil {
		return err
	}
	if c.Logger.File != "" {
		if c.Logger.File, err = expandPath(c.Logger.File, ""); err != nil {
			return err
		}
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
