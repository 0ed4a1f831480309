package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Model struct {
		ServiceURL     string        `yaml:"service_url"`
		Version        string        `yaml:"version"`
		SequenceLength int           `yaml:"sequence_length"`
		FeatureCount   int           `yaml:"feature_count"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"model"`
	Thresholds struct {
		AmplitudeMin       float64 `yaml:"amplitude_min"`
		NanoflareAlpha     float64 `yaml:"nanoflare_alpha"`
		NanoflareIntensity float64 `yaml:"nanoflare_intensity"`
	} `yaml:"thresholds"`
	Fallback struct {
		Seed int64 `yaml:"seed"`
	} `yaml:"fallback"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		Topic         string   `yaml:"topic"`
		AnalysisTopic string   `yaml:"analysis_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		FluxTable        string        `yaml:"flux_table"`
		AnalysisTable    string        `yaml:"analysis_table"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Feed struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		Sources        []string      `yaml:"sources"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		ResultTTL time.Duration `yaml:"result_ttl"`
	} `yaml:"cache"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Model.ServiceURL = v
	}
	if v := os.Getenv("FEED_WS_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}
	if v := os.Getenv("FEED_SOURCES"); v != "" {
		c.Feed.Sources = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, nil
}

// applyDefaults fills the model and threshold calibration the upstream model
// was built against. Zero values in YAML mean "use the calibration".
func (c *Config) applyDefaults() {
	if c.Model.SequenceLength <= 0 {
		c.Model.SequenceLength = 512
	}
	if c.Model.FeatureCount <= 0 {
		c.Model.FeatureCount = 2
	}
	if c.Model.Timeout <= 0 {
		c.Model.Timeout = 30 * time.Second
	}
	if c.Model.Version == "" {
		c.Model.Version = "enhanced_v2.0"
	}
	if c.Thresholds.AmplitudeMin == 0 {
		c.Thresholds.AmplitudeMin = 0.1
	}
	if c.Thresholds.NanoflareAlpha == 0 {
		c.Thresholds.NanoflareAlpha = 2.0
	}
	if c.Thresholds.NanoflareIntensity == 0 {
		c.Thresholds.NanoflareIntensity = 100
	}
	if c.ClickHouse.FluxTable == "" {
		c.ClickHouse.FluxTable = "flarescope.flux_raw"
	}
	if c.ClickHouse.AnalysisTable == "" {
		c.ClickHouse.AnalysisTable = "flarescope.analysis_runs"
	}
	if c.Kafka.AnalysisTopic == "" {
		c.Kafka.AnalysisTopic = "flare-analyses"
	}
	if c.Cache.ResultTTL <= 0 {
		c.Cache.ResultTTL = time.Hour
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 2
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Model.ServiceURL == "" {
		return fmt.Errorf("model.service_url is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Feed.WebSocketURL != "" && len(c.Feed.Sources) == 0 {
		return fmt.Errorf("feed.sources cannot be empty when feed.websocket_url is set")
	}
	return nil
}
