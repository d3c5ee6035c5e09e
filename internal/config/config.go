// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Data    DataConfig
	Server  ServerConfig
	Auth    AuthConfig
	Listing ListingConfig
	Sync    SyncConfig
	Cleanup CleanupConfig
	Notify  NotifyConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	BasePath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	PublicURL    string        // Base URL used in share links (optional)
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes)
	AccessTokenKey []byte
	// Session durations
	AccessTokenDuration  time.Duration // e.g., 15m
	RefreshTokenDuration time.Duration // e.g., 720h (30 days)
}

// ListingConfig holds upstream listing API configuration.
type ListingConfig struct {
	// APIKey authenticates requests against the listing provider.
	APIKey string
	// BaseURL is the provider endpoint (default: https://zillow56.p.rapidapi.com)
	BaseURL string
	// HostHeader is sent as the provider's routing header alongside the key.
	HostHeader string
	// RequestTimeout bounds each upstream call (default: 30s)
	RequestTimeout time.Duration
	// RPS and Burst shape the shared outbound token bucket (default: 5/5)
	RPS   float64
	Burst int
}

// SyncConfig holds collection sync configuration.
type SyncConfig struct {
	// Enabled allows disabling the scheduled sync entirely (default: false)
	Enabled bool
	// Interval between scheduled sync runs (default: 3h)
	Interval time.Duration
	// BatchSize is the max collections per run, 0 = no limit (default: 0)
	BatchSize int
	// MaxActiveCollections caps ACTIVE collections per agent (default: 10)
	MaxActiveCollections int
	// RegionDelay is the pause between per-region queries (default: 1s)
	RegionDelay time.Duration
	// CollectionDelay is the pause between collections in a run (default: 2s)
	CollectionDelay time.Duration
}

// CleanupConfig holds orphaned-property cleanup configuration.
type CleanupConfig struct {
	// Enabled allows disabling scheduled cleanup (default: false)
	Enabled bool
	// BatchSize is the number of orphans deleted per transaction (default: 100)
	BatchSize int
	// DryRun reports orphans without deleting them (default: false)
	DryRun bool
}

// NotifyConfig holds visitor notification configuration.
type NotifyConfig struct {
	// Enabled allows disabling outbound notifications (default: false)
	Enabled bool
	// Endpoint is the delivery webhook URL.
	Endpoint string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for data storage")
	serverName := flag.String("server-name", "", "Name for the server")
	publicURL := flag.String("public-url", "", "Public base URL used in share links")
	serverPort := flag.String("port", "", "Server port (default: 8080)")

	accessTokenDuration := flag.String("access-token-duration", "", "Access token lifetime (e.g., 15m)")
	refreshTokenDuration := flag.String("refresh-token-duration", "", "Refresh token lifetime (e.g., 720h)")

	listingAPIKey := flag.String("listing-api-key", "", "API key for the listing provider")
	listingBaseURL := flag.String("listing-base-url", "", "Listing provider base URL")

	syncEnabled := flag.String("sync-enabled", "", "Enable scheduled property sync (default: false)")
	syncInterval := flag.String("sync-interval", "", "Interval between sync runs (default: 3h)")
	syncBatchSize := flag.String("sync-batch-size", "", "Max collections per sync run, 0 = unlimited")

	cleanupEnabled := flag.String("cleanup-enabled", "", "Enable orphaned property cleanup (default: false)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Name:      getConfigValue(*serverName, "SERVER_NAME", "Nestfolio Server"),
			PublicURL: getConfigValue(*publicURL, "PUBLIC_URL", ""),
			Port:      getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Listing: ListingConfig{
			APIKey:     getConfigValue(*listingAPIKey, "LISTING_API_KEY", ""),
			BaseURL:    getConfigValue(*listingBaseURL, "LISTING_BASE_URL", "https://zillow56.p.rapidapi.com"),
			HostHeader: getConfigValue("", "LISTING_API_HOST", "zillow56.p.rapidapi.com"),
			RPS:        getFloatConfigValue("", "LISTING_RPS", 5.0),
			Burst:      getIntConfigValue("", "LISTING_BURST", 5),
		},
		Sync: SyncConfig{
			Enabled:              getBoolConfigValue(*syncEnabled, "SYNC_ENABLED", false),
			BatchSize:            getIntConfigValue(*syncBatchSize, "SYNC_BATCH_SIZE", 0),
			MaxActiveCollections: getIntConfigValue("", "MAX_ACTIVE_COLLECTIONS_PER_USER", 10),
		},
		Cleanup: CleanupConfig{
			Enabled:   getBoolConfigValue(*cleanupEnabled, "CLEANUP_ENABLED", false),
			BatchSize: getIntConfigValue("", "CLEANUP_BATCH_SIZE", 100),
			DryRun:    getBoolConfigValue("", "CLEANUP_DRY_RUN", false),
		},
		Notify: NotifyConfig{
			Enabled:  getBoolConfigValue("", "NOTIFY_ENABLED", false),
			Endpoint: getConfigValue("", "NOTIFY_ENDPOINT", ""),
		},
	}

	// Parse auth durations.
	accessDurationStr := getConfigValue(*accessTokenDuration, "ACCESS_TOKEN_DURATION", "15m")
	accessDuration, err := time.ParseDuration(accessDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid access token duration %q: %w", accessDurationStr, err)
	}
	cfg.Auth.AccessTokenDuration = accessDuration

	refreshDurationStr := getConfigValue(*refreshTokenDuration, "REFRESH_TOKEN_DURATION", "720h")
	refreshDuration, err := time.ParseDuration(refreshDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token duration %q: %w", refreshDurationStr, err)
	}
	cfg.Auth.RefreshTokenDuration = refreshDuration

	// Parse server timeouts.
	cfg.Server.ReadTimeout, err = parseDurationValue("", "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.WriteTimeout, err = parseDurationValue("", "SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.IdleTimeout, err = parseDurationValue("", "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	// Listing request timeout.
	cfg.Listing.RequestTimeout, err = parseDurationValue("", "LISTING_REQUEST_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	// Sync pacing.
	cfg.Sync.Interval, err = parseDurationValue(*syncInterval, "SYNC_INTERVAL", "3h")
	if err != nil {
		return nil, err
	}
	cfg.Sync.RegionDelay, err = parseDurationValue("", "SYNC_REGION_DELAY", "1s")
	if err != nil {
		return nil, err
	}
	cfg.Sync.CollectionDelay, err = parseDurationValue("", "SYNC_COLLECTION_DELAY", "2s")
	if err != nil {
		return nil, err
	}

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
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

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Sync.MaxActiveCollections < 1 {
		return fmt.Errorf("MAX_ACTIVE_COLLECTIONS_PER_USER must be >= 1, got %d", c.Sync.MaxActiveCollections)
	}

	if c.Sync.Enabled && c.Listing.APIKey == "" {
		return errors.New("LISTING_API_KEY is required when sync is enabled")
	}

	return nil
}

// DatabasePath returns the sqlite database file location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.BasePath, "nestfolio.db")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Nestfolio", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// parseDurationValue reads a duration from env with a default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	str := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, str, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
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

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
