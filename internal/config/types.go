package config

import (
	"fmt"
	"time"

	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database Database       `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	R2       R2Config       `json:"r2"`
	Worker   WorkerConfig   `json:"hero_worker"`
	Pipeline PipelineConfig `json:"pipeline"`
	Sentry   SentryConfig   `json:"sentry"`
}

type ServerConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type Database struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	Password            string        `json:"password"`
	DatabaseID          int           `json:"database_id"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DialTimeout         time.Duration `json:"dial_timeout"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	PoolSize            int           `json:"pool_size"`
	Nodes               []RedisNode   `json:"nodes"`
}

type RedisNode struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n RedisNode) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

// R2Config holds the object-store credentials. All four identity fields are
// required; startup fails before any processing if one is missing.
type R2Config struct {
	AccountID   string `json:"account_id"`
	BucketName  string `json:"bucket_name"`
	AccessKeyID string `json:"access_key_id"`
	SecretKey   string `json:"secret_access_key"`
	Endpoint    string `json:"endpoint"` // optional override; defaults to the R2 account endpoint
}

type WorkerConfig struct {
	Stream       string        `json:"stream"`        // redis stream carrying hero-image notifications
	DeadStream   string        `json:"dead_stream"`   // dead-letter stream for exhausted notifications
	Group        string        `json:"group"`         // consumer group name
	Consumer     string        `json:"consumer"`      // consumer name within the group
	Workers      int           `json:"workers"`       // number of concurrent consumer goroutines
	MaxAttempts  int           `json:"max_attempts"`  // delivery attempts before dead-lettering
	MaxLen       int64         `json:"max_len"`       // stream max length before trim
	BackoffBase  time.Duration `json:"backoff_base"`  // base retry delay
	BlockTimeout time.Duration `json:"block_timeout"` // XREADGROUP block timeout
}

type PipelineConfig struct {
	Concurrency   int                    `json:"concurrency"`      // bounded parallelism of the per-variant fan-out
	ResultTTLSecs int                    `json:"result_ttl_secs"`  // cached result lifetime
	Variants      []entities.VariantSpec `json:"variants"`         // static variant catalog
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
}
