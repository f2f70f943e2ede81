package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	GeoIP      GeoIPConfig      `yaml:"geoip"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Intent     IntentConfig     `yaml:"intent"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ClickHouseConfig struct {
	Addr         string `yaml:"addr"`
	Database     string `yaml:"database"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type KafkaConfig struct {
	Brokers []string          `yaml:"brokers"`
	Topics  map[string]string `yaml:"topics"`
}

type GeoIPConfig struct {
	DatabasePath string `yaml:"database_path"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
}

// IntentConfig configures the intent-inference collaborator.
type IntentConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ClassifierConfig carries the friction rule thresholds and scales.
type ClassifierConfig struct {
	SlowLoadThresholdMS      float64 `yaml:"slow_load_threshold_ms"`
	LoadTimeScaleMS          float64 `yaml:"load_time_scale_ms"`
	LatencyScaleMS           float64 `yaml:"latency_scale_ms"`
	RapidClickScale          float64 `yaml:"rapid_click_scale"`
	QuickReversalMS          float64 `yaml:"quick_reversal_ms"`
	QuickReversalSeverity    float64 `yaml:"quick_reversal_severity"`
	ErrorSeverity            float64 `yaml:"error_severity"`
	RepeatedReversalMin      int     `yaml:"repeated_reversal_min"`
	RepeatedReversalSeverity float64 `yaml:"repeated_reversal_severity"`
}

type ArchiveConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type AlertsConfig struct {
	MinSeverity float64 `yaml:"min_severity"`
}

// Load reads the YAML config at path, expands environment variables and
// applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a config with only defaults applied, for running without a
// config file.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills zero-valued fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 100
	}
	if cfg.ClickHouse.MaxOpenConns == 0 {
		cfg.ClickHouse.MaxOpenConns = 10
	}
	if cfg.ClickHouse.MaxIdleConns == 0 {
		cfg.ClickHouse.MaxIdleConns = 5
	}
	if cfg.Intent.Model == "" {
		cfg.Intent.Model = "gpt-4o-mini"
	}
	if cfg.Intent.Timeout == 0 {
		cfg.Intent.Timeout = 30 * time.Second
	}
	if cfg.Archive.BatchSize == 0 {
		cfg.Archive.BatchSize = 100
	}
	if cfg.Archive.FlushInterval == 0 {
		cfg.Archive.FlushInterval = 5 * time.Second
	}
	if cfg.Alerts.MinSeverity == 0 {
		cfg.Alerts.MinSeverity = 0.7
	}
	cfg.Classifier.ApplyDefaults()
}

func (c *ClassifierConfig) ApplyDefaults() {
	if c.SlowLoadThresholdMS == 0 {
		c.SlowLoadThresholdMS = 3000
	}
	if c.LoadTimeScaleMS == 0 {
		c.LoadTimeScaleMS = 10000
	}
	if c.LatencyScaleMS == 0 {
		c.LatencyScaleMS = 5000
	}
	if c.RapidClickScale == 0 {
		c.RapidClickScale = 10
	}
	if c.QuickReversalMS == 0 {
		c.QuickReversalMS = 2000
	}
	if c.QuickReversalSeverity == 0 {
		c.QuickReversalSeverity = 0.7
	}
	if c.ErrorSeverity == 0 {
		c.ErrorSeverity = 0.8
	}
	if c.RepeatedReversalMin == 0 {
		c.RepeatedReversalMin = 3
	}
	if c.RepeatedReversalSeverity == 0 {
		c.RepeatedReversalSeverity = 0.6
	}
}
