package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"SignalForge/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Engine      EngineConfig     `yaml:"engine"`
	Storage     StorageConfig    `yaml:"storage"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// RateLimit is requests per second per client IP; 0 disables it.
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst" default:"20"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type EngineConfig struct {
	// Policy is one of priority, all, voting, weighted.
	Policy               string            `yaml:"policy" default:"priority"`
	RegimeGate           bool              `yaml:"regime_gate"`
	TrendGate            bool              `yaml:"trend_gate"`
	RequireAllTimeframes bool              `yaml:"require_all_timeframes"`
	StrategySeedFile     string            `yaml:"strategy_seed_file"`
	Calibration          CalibrationConfig `yaml:"calibration"`
}

type CalibrationConfig struct {
	MinSamples          int     `yaml:"min_samples" default:"5"`
	UncertaintyDiscount float64 `yaml:"uncertainty_discount" default:"0.9"`
	MaxLossStreak       int     `yaml:"max_loss_streak" default:"5"`
	MinHourWinRate      float64 `yaml:"min_hour_win_rate" default:"55"`
	HourMinSamples      int     `yaml:"hour_min_samples" default:"20"`
	BestHoursMinTrades  int     `yaml:"best_hours_min_trades" default:"10"`
}

type StorageConfig struct {
	// Type is one of memory, redis, layered, sqlite.
	Type   string      `yaml:"type" default:"sqlite"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	Redis  RedisConfig  `yaml:"redis"`
	Memory struct {
		MaxSize int `yaml:"max_size" default:"1000"`
	} `yaml:"memory"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" default:"data/signalforge.db"`
}

type RedisConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
	Prefix   string `yaml:"prefix" default:"signalforge"`
}

type ClickHouseConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"default"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	AsyncInsert  bool          `yaml:"async_insert" default:"true"`
	WaitForAsync bool          `yaml:"wait_for_async_insert" default:"true"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	JournalTable string        `yaml:"journal_table" default:"trade_journal"`
}

type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	DecisionsTopic string   `yaml:"decisions_topic" default:"decisions"`
	OutcomesTopic  string   `yaml:"outcomes_topic" default:"trade-outcomes"`
	Producer       struct {
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"signalforge"`
		Workers    int           `yaml:"workers" default:"1"`
		BufferSize int           `yaml:"buffer_size" default:"10"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
	} `yaml:"consumer"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path skips the file.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SIGNALFORGE_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("SIGNALFORGE_HTTP_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("SIGNALFORGE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("SIGNALFORGE_POLICY"); v != "" {
		c.Engine.Policy = v
	}
	if v := getenv("SIGNALFORGE_STRATEGY_SEED_FILE"); v != "" {
		c.Engine.StrategySeedFile = v
	}
	if v := getenv("SIGNALFORGE_STORAGE"); v != "" {
		c.Storage.Type = v
	}
	if v := getenv("SIGNALFORGE_SQLITE_PATH"); v != "" {
		c.Storage.SQLite.Path = v
	}
	if v := getenv("SIGNALFORGE_REDIS_HOST"); v != "" {
		c.Storage.Redis.Host = v
	}
	if v := getenv("SIGNALFORGE_REDIS_PASSWORD"); v != "" {
		c.Storage.Redis.Password = v
	}
	if v := getenv("SIGNALFORGE_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Enabled = true
		c.ClickHouse.Host = v
	}
	if v := getenv("SIGNALFORGE_CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("SIGNALFORGE_KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if !util.ContainsFold([]string{"priority", "all", "voting", "weighted"}, c.Engine.Policy) {
		return fmt.Errorf("engine.policy must be priority, all, voting or weighted, got '%s'", c.Engine.Policy)
	}
	switch c.Storage.Type {
	case "memory", "redis", "layered":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required")
		}
	default:
		return fmt.Errorf("storage.type must be memory, redis, layered or sqlite, got '%s'", c.Storage.Type)
	}
	cal := c.Engine.Calibration
	if cal.UncertaintyDiscount <= 0 || cal.UncertaintyDiscount > 1 {
		return fmt.Errorf("engine.calibration.uncertainty_discount must be in (0, 1]")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
