package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Lllllllleong/pdfmergeflow/internal/gcp"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStagingDir     = "temp_uploads"
	DefaultMaxUploadBytes = 50 << 20
	DefaultMaxAge         = time.Hour
	DefaultRetryAttempts  = 3
	DefaultRetryDelay     = 100 * time.Millisecond
	DefaultMergeWorkers   = 4
	DefaultMaxBatchFiles  = 20
)

// Config holds the complete service configuration. It is loaded once and
// passed to every component constructor.
type Config struct {
	Staging StagingConfig `yaml:"staging" json:"staging"`
	Upload  UploadConfig  `yaml:"upload" json:"upload"`
	Retry   RetryConfig   `yaml:"retry" json:"retry"`
	Merge   MergeConfig   `yaml:"merge" json:"merge"`
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`
}

// StagingConfig selects where staged files live and how long they are kept.
type StagingConfig struct {
	Dir           string        `yaml:"dir" json:"dir"`
	Bucket        string        `yaml:"bucket" json:"bucket"`
	Prefix        string        `yaml:"prefix" json:"prefix"`
	MaxAge        time.Duration `yaml:"maxAge" json:"maxAge"`
	SweepInterval time.Duration `yaml:"sweepInterval" json:"sweepInterval"`
}

// UploadConfig holds ingestion limits.
type UploadConfig struct {
	MaxBytes          int64    `yaml:"maxBytes" json:"maxBytes"`
	MaxBatchFiles     int      `yaml:"maxBatchFiles" json:"maxBatchFiles"`
	AllowedExtensions []string `yaml:"allowedExtensions" json:"allowedExtensions"`
}

// RetryConfig bounds the retries around staging access.
type RetryConfig struct {
	Attempts int           `yaml:"attempts" json:"attempts"`
	Delay    time.Duration `yaml:"delay" json:"delay"`
}

// MergeConfig tunes the merge orchestrator.
type MergeConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// CatalogConfig enables the Firestore catalog when ProjectID is set.
type CatalogConfig struct {
	ProjectID  string `yaml:"projectId" json:"projectId"`
	Collection string `yaml:"collection" json:"collection"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Staging: StagingConfig{
			Dir:    DefaultStagingDir,
			Prefix: "staging/",
			MaxAge: DefaultMaxAge,
		},
		Upload: UploadConfig{
			MaxBytes:          DefaultMaxUploadBytes,
			MaxBatchFiles:     DefaultMaxBatchFiles,
			AllowedExtensions: []string{"pdf"},
		},
		Retry: RetryConfig{
			Attempts: DefaultRetryAttempts,
			Delay:    DefaultRetryDelay,
		},
		Merge: MergeConfig{
			Workers: DefaultMergeWorkers,
		},
		Catalog: CatalogConfig{
			Collection: "staged_files",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. It returns the source the file layer came from.
func Load() (*Config, string, error) {
	cfg := Default()

	source, err := loadFromFile(cfg)
	if err != nil {
		return nil, "", err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, source, nil
}

func loadFromFile(cfg *Config) (string, error) {
	paths := []string{
		os.Getenv("PDFMERGE_CONFIG_PATH"),
		"./config.yaml",
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		return path, nil
	}
	return "built-in defaults", nil
}

func loadFromEnv(cfg *Config) error {
	cfg.Staging.Dir = gcp.GetEnv("STAGING_DIR", cfg.Staging.Dir)
	cfg.Staging.Bucket = gcp.GetEnv("STAGING_BUCKET", cfg.Staging.Bucket)
	cfg.Staging.Prefix = gcp.GetEnv("STAGING_PREFIX", cfg.Staging.Prefix)
	cfg.Catalog.ProjectID = gcp.GetEnv("PROJECT_ID", cfg.Catalog.ProjectID)
	cfg.Catalog.Collection = gcp.GetEnv("FIRESTORE_COLLECTION", cfg.Catalog.Collection)

	if val := gcp.GetEnv("ALLOWED_EXTENSIONS", ""); val != "" {
		cfg.Upload.AllowedExtensions = strings.Split(val, ",")
	}

	durations := map[string]*time.Duration{
		"STAGING_MAX_AGE":        &cfg.Staging.MaxAge,
		"STAGING_SWEEP_INTERVAL": &cfg.Staging.SweepInterval,
		"RETRY_DELAY":            &cfg.Retry.Delay,
	}
	for key, dst := range durations {
		val := gcp.GetEnv(key, "")
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, val, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"RETRY_ATTEMPTS":  &cfg.Retry.Attempts,
		"MERGE_WORKERS":   &cfg.Merge.Workers,
		"MAX_BATCH_FILES": &cfg.Upload.MaxBatchFiles,
	}
	for key, dst := range ints {
		val := gcp.GetEnv(key, "")
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, val, err)
		}
		*dst = n
	}

	if val := gcp.GetEnv("MAX_UPLOAD_BYTES", ""); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_BYTES %q: %w", val, err)
		}
		cfg.Upload.MaxBytes = n
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Staging.Dir == "" && c.Staging.Bucket == "" {
		return fmt.Errorf("either staging.dir or staging.bucket must be set")
	}
	if c.Staging.MaxAge <= 0 {
		return fmt.Errorf("staging.maxAge must be positive, got %s", c.Staging.MaxAge)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.maxBytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("upload.allowedExtensions must not be empty")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.Delay)
	}
	if c.Upload.MaxBatchFiles < 1 {
		return fmt.Errorf("upload.maxBatchFiles must be at least 1, got %d", c.Upload.MaxBatchFiles)
	}
	if c.Merge.Workers < 1 {
		c.Merge.Workers = 1
	}
	return nil
}
