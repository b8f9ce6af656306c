package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
)

// Create new config instance with catalog and worker defaults applied.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Worker: WorkerConfig{
			Stream:       "hubletix:hero:events",
			DeadStream:   "hubletix:hero:events:dead",
			Group:        "hero-transcoder",
			Consumer:     "hero-transcoder-1",
			Workers:      4,
			MaxAttempts:  5,
			MaxLen:       10000,
			BackoffBase:  2,  // seconds
			BlockTimeout: 5,  // seconds
		},
		Pipeline: PipelineConfig{
			Concurrency:   4,
			ResultTTLSecs: 3600,
			Variants:      DefaultCatalog(),
		},
	}
}

// DefaultCatalog is the fixed variant catalog applied to every source image.
// Bump Version only when the encoding or key scheme changes incompatibly.
func DefaultCatalog() []entities.VariantSpec {
	return []entities.VariantSpec{
		{Width: 320, Format: entities.FormatAVIF, Quality: 50, Version: "v1"},
		{Width: 640, Format: entities.FormatWebP, Quality: 75, Version: "v1"},
		{Width: 1280, Format: entities.FormatJPEG, Quality: 80, Version: "v1"},
	}
}

// Load configuration file in json format. A missing file is not an error;
// deployments may be configured through the environment alone.
func (c *Config) Read(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, c)
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	setIfPresent(&c.R2.AccountID, "ACCOUNT_ID")
	setIfPresent(&c.R2.AccessKeyID, "ACCESS_KEY_ID")
	setIfPresent(&c.R2.SecretKey, "SECRET_ACCESS_KEY")
	setIfPresent(&c.R2.BucketName, "BUCKET_NAME")
	setIfPresent(&c.Database.DSN, "DATABASE_DSN")
	setIfPresent(&c.Sentry.SentryDSN, "SENTRY_DSN")
}

func setIfPresent(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// Validate fails fast when a required storage credential is absent. This is
// a fatal, non-retryable condition surfaced before any processing begins.
func (c *Config) Validate() error {
	var missing []string
	if c.R2.AccountID == "" {
		missing = append(missing, "ACCOUNT_ID")
	}
	if c.R2.AccessKeyID == "" {
		missing = append(missing, "ACCESS_KEY_ID")
	}
	if c.R2.SecretKey == "" {
		missing = append(missing, "SECRET_ACCESS_KEY")
	}
	if c.R2.BucketName == "" {
		missing = append(missing, "BUCKET_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if len(c.Pipeline.Variants) == 0 {
		return fmt.Errorf("variant catalog is empty")
	}
	return nil
}
