// Package config provides configuration for the document export pipeline.
//
// Deployment identity (project, bucket, secrets) comes from the environment,
// matching what the invoking scheduler injects. Tuning knobs (retry policy,
// output names, storage prefix) can optionally be loaded from a YAML file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingProjectID    = errors.New("PROJECT_ID is required")
	ErrMissingBucketName   = errors.New("BUCKET_NAME is required")
	ErrMissingCredentials  = errors.New("DRIVE_CREDENTIALS_JSON is required")
	ErrMissingStorageURL   = errors.New("SUPABASE_URL is required")
	ErrMissingStorageKey   = errors.New("SUPABASE_SERVICE_KEY is required")
	ErrInvalidMaxAttempts  = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoff      = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout      = errors.New("retry.timeout_sec must be at least 1")
	ErrMissingOutputNames  = errors.New("output.content_file and output.metadata_file are required")
)

// Config is the complete pipeline configuration.
type Config struct {
	// ProjectID scopes authentication against the document source.
	ProjectID string `yaml:"-"`

	// BucketName is the object-storage destination bucket.
	BucketName string `yaml:"-"`

	// CredentialJSON is the raw service-account key injected by the
	// scheduler. It is never written to disk by this package; the
	// credential provisioner owns materialization and cleanup.
	CredentialJSON []byte `yaml:"-"`

	// StorageURL and StorageKey locate and authorize the object store.
	StorageURL string `yaml:"-"`
	StorageKey string `yaml:"-"`

	// PushToken authorizes the metadata push. Empty disables token auth
	// (useful for local remotes and dry runs).
	PushToken string `yaml:"-"`

	// MongoURI enables the run-history store when set.
	MongoURI string `yaml:"-"`

	// WarehouseDSN enables the Postgres metadata load when set.
	WarehouseDSN string `yaml:"-"`

	Drive   DriveConfig   `yaml:"drive"`
	Output  OutputConfig  `yaml:"output"`
	Retry   RetryPolicy   `yaml:"retry"`
	Storage StorageConfig `yaml:"storage"`
}

// DriveConfig selects what to export from the document source.
type DriveConfig struct {
	// Folder is the name of the folder to export.
	Folder string `yaml:"folder"`

	// ParentFolder optionally disambiguates between folders with the
	// same name by requiring a specific parent folder name.
	ParentFolder string `yaml:"parent_folder"`
}

// OutputConfig names the produced dataset files.
type OutputConfig struct {
	ContentFile  string `yaml:"content_file"`
	MetadataFile string `yaml:"metadata_file"`
}

// StorageConfig tunes the object-storage destination.
type StorageConfig struct {
	// Prefix is prepended to the dataset object keys inside the bucket.
	Prefix string `yaml:"prefix"`
}

// RetryPolicy defines the bounded retry applied to per-document fetches and
// storage uploads. Authentication and push failures are never retried.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// Timeout returns the per-request timeout for network calls.
func (p RetryPolicy) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// Do runs op up to MaxAttempts times with exponential backoff between
// attempts. The context cancels the wait between attempts, not op itself;
// op is expected to honor the context on its own.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	delay := time.Duration(p.InitialDelayMs) * time.Millisecond

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * p.BackoffMultiplier)
	}

	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, err)
}

// Default returns a configuration with production defaults applied.
// Deployment identity fields are left empty; see FromEnv.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			ContentFile:  "docs_content.csv",
			MetadataFile: "docs_metadata.csv",
		},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			BackoffMultiplier: 2.0,
			TimeoutSec:        60,
		},
		Storage: StorageConfig{
			Prefix: "exports",
		},
	}
}

// FromEnv builds the configuration from environment variables, optionally
// merging tuning values from the YAML file at path (empty path skips the
// file). The result is validated.
func FromEnv(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ProjectID = os.Getenv("PROJECT_ID")
	cfg.BucketName = os.Getenv("BUCKET_NAME")
	cfg.CredentialJSON = []byte(os.Getenv("DRIVE_CREDENTIALS_JSON"))
	cfg.StorageURL = os.Getenv("SUPABASE_URL")
	cfg.StorageKey = os.Getenv("SUPABASE_SERVICE_KEY")
	cfg.PushToken = os.Getenv("GIT_PUSH_TOKEN")
	cfg.MongoURI = os.Getenv("MONGO_URI")
	cfg.WarehouseDSN = os.Getenv("WAREHOUSE_DSN")

	if folder := os.Getenv("DRIVE_FOLDER"); folder != "" {
		cfg.Drive.Folder = folder
	}
	if parent := os.Getenv("DRIVE_PARENT_FOLDER"); parent != "" {
		cfg.Drive.ParentFolder = parent
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges tuning values from a YAML file into the configuration.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Validate checks the configuration for deployment completeness and sane
// tuning values.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return ErrMissingProjectID
	}
	if c.BucketName == "" {
		return ErrMissingBucketName
	}
	if len(c.CredentialJSON) == 0 {
		return ErrMissingCredentials
	}
	if c.StorageURL == "" {
		return ErrMissingStorageURL
	}
	if c.StorageKey == "" {
		return ErrMissingStorageKey
	}
	return c.ValidateTuning()
}

// ValidateTuning checks only the file-loadable tuning values. Used by
// commands that do not need deployment identity (e.g. the folder lister).
func (c *Config) ValidateTuning() error {
	if c.Output.ContentFile == "" || c.Output.MetadataFile == "" {
		return ErrMissingOutputNames
	}
	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}
	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoff
	}
	if c.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}
	return nil
}
