// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"legalcosts-backend/storage"
)

// Enhancer backends
const (
	EnhancerGemini   = "gemini"
	EnhancerTemplate = "template"
	EnhancerNone     = "none"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Enhancer  EnhancerConfig
	Matching  MatchingConfig
	Storage   storage.StorageConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port   string
	AppEnv string
}

// DatabaseConfig holds database connection settings. An empty URL disables
// the audit log and case-law lookup.
type DatabaseConfig struct {
	URL string
}

// EnhancerConfig selects and tunes the enhancement backend
type EnhancerConfig struct {
	Backend         string
	GeminiAPIKey    string
	GeminiModel     string
	Timeout         time.Duration
	TerminologyFile string
}

// MatchingConfig holds engine and module settings
type MatchingConfig struct {
	Threshold     float64
	ModuleBundles []string
}

// RateLimitConfig bounds API request rate per process
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string
}

// Development reports whether the process runs outside production
func (c *Config) Development() bool {
	return c.Server.AppEnv != "production"
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:   getEnvOrDefault("PORT", "8080"),
			AppEnv: getEnvOrDefault("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Enhancer: EnhancerConfig{
			GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
			GeminiModel:     getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			TerminologyFile: os.Getenv("TERMINOLOGY_FILE"),
		},
		Matching: MatchingConfig{
			ModuleBundles: splitList(os.Getenv("MODULE_BUNDLES")),
		},
		Storage: loadStorageConfig(),
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	var err error
	if cfg.Enhancer.Timeout, err = getEnvDuration("ENHANCER_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}
	if cfg.Matching.Threshold, err = getEnvFloat("MATCH_THRESHOLD", 0.60); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RPS, err = getEnvFloat("RATE_LIMIT_RPS", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = getEnvInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	// Default to gemini only when a key is present
	defaultBackend := EnhancerTemplate
	if cfg.Enhancer.GeminiAPIKey != "" {
		defaultBackend = EnhancerGemini
	}
	cfg.Enhancer.Backend = strings.ToLower(getEnvOrDefault("ENHANCER", defaultBackend))

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadStorageConfig() storage.StorageConfig {
	return storage.StorageConfig{
		Type:         storage.StorageType(getEnvOrDefault("STORAGE_TYPE", string(storage.StorageTypeLocal))),
		LocalPath:    getEnvOrDefault("STORAGE_LOCAL_PATH", "./storage/bundles"),
		S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
		S3Region:     getEnvOrDefault("AWS_REGION", "us-east-1"),
		S3Endpoint:   os.Getenv("AWS_S3_ENDPOINT"),
		AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Enhancer.Backend {
	case EnhancerGemini:
		if cfg.Enhancer.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when ENHANCER=gemini")
		}
	case EnhancerTemplate, EnhancerNone:
	default:
		return fmt.Errorf("unknown ENHANCER %q (want gemini, template or none)", cfg.Enhancer.Backend)
	}
	if cfg.Enhancer.Timeout <= 0 {
		return fmt.Errorf("ENHANCER_TIMEOUT must be positive")
	}
	if cfg.Matching.Threshold < 0 || cfg.Matching.Threshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be within [0, 1], got %v", cfg.Matching.Threshold)
	}
	if cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	switch cfg.Storage.Type {
	case storage.StorageTypeLocal:
	case storage.StorageTypeS3:
		if cfg.Storage.S3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required for S3 storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", cfg.Storage.Type)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
