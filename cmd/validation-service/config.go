package main

import (
	"fmt"
	"os"
	"time"

	"codecheck/internal/common/cache"
	"codecheck/internal/common/mq"
	"codecheck/internal/common/storage"
	"codecheck/internal/execution"
	"codecheck/internal/execution/judge0"
	"codecheck/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultOutcomeTTL      = time.Hour
	defaultVerdictTopic    = "validation.verdict"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// PollerConfig holds result polling settings.
type PollerConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	Interval    time.Duration `yaml:"interval"`
}

// ValidationConfig holds orchestrator settings.
type ValidationConfig struct {
	Workers            int           `yaml:"workers"`
	BatchTimeout       time.Duration `yaml:"batchTimeout"`
	StrictRequirements bool          `yaml:"strictRequirements"`
}

// CacheConfig holds outcome cache settings. The cache is enabled when a redis
// addr is configured.
type CacheConfig struct {
	OutcomeTTL time.Duration `yaml:"outcomeTTL"`
}

// KafkaConfig holds Kafka settings plus the verdict topic.
type KafkaConfig struct {
	mq.KafkaConfig `yaml:",inline"`
	VerdictTopic   string `yaml:"verdictTopic"`
}

// SourceConfig holds source fetch settings.
type SourceConfig struct {
	Bucket   string        `yaml:"bucket"`
	MaxBytes int64         `yaml:"maxBytes"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ArchiveConfig holds run archive settings. Empty bucket disables archiving.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
}

// AppConfig holds validation-service config. Redis, Kafka, and MinIO sections
// are optional; leaving their endpoints empty disables the component.
type AppConfig struct {
	Server     ServerConfig        `yaml:"server"`
	Logger     logger.Config       `yaml:"logger"`
	Judge      judge0.Config       `yaml:"judge"`
	Poller     PollerConfig        `yaml:"poller"`
	Validation ValidationConfig    `yaml:"validation"`
	Cache      CacheConfig         `yaml:"cache"`
	Redis      cache.RedisConfig   `yaml:"redis"`
	Kafka      KafkaConfig         `yaml:"kafka"`
	MinIO      storage.MinIOConfig `yaml:"minio"`
	Source     SourceConfig        `yaml:"source"`
	Archive    ArchiveConfig       `yaml:"archive"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Judge.BaseURL == "" {
		return nil, fmt.Errorf("judge baseURL is required")
	}
	if cfg.Judge.AuthKey == "" {
		return nil, fmt.Errorf("judge authKey is required")
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Poller.MaxAttempts <= 0 {
		cfg.Poller.MaxAttempts = execution.DefaultMaxAttempts
	}
	if cfg.Poller.Interval <= 0 {
		cfg.Poller.Interval = execution.DefaultInterval
	}
	if cfg.Cache.OutcomeTTL <= 0 {
		cfg.Cache.OutcomeTTL = defaultOutcomeTTL
	}
	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.VerdictTopic == "" {
		cfg.Kafka.VerdictTopic = defaultVerdictTopic
	}
	if cfg.MinIO.Endpoint != "" && cfg.Source.Bucket == "" {
		cfg.Source.Bucket = cfg.MinIO.Bucket
	}
	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
}
