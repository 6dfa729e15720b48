package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"midas/internal/domain/models"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Source struct {
		Dir           string `yaml:"dir" validate:"required"`
		Pattern       string `yaml:"pattern" default:"{symbol}_1m.csv"`
		ReorderWindow int    `yaml:"reorder_window" default:"64" validate:"gte=1"`
	} `yaml:"source"`

	Symbols   []string `yaml:"symbols" validate:"required,min=1"`
	Intervals []string `yaml:"intervals"`

	// ExchangeTimezone aligns bucket boundaries; buckets are floored in
	// this location.
	ExchangeTimezone string `yaml:"exchange_timezone" default:"UTC"`

	Ingest struct {
		BatchSize int `yaml:"batch_size" default:"1000" validate:"gte=1"`
		// Workers bounds cross-pipeline parallelism; 0 means the store
		// connection pool size.
		Workers int `yaml:"workers"`
		Retry   struct {
			MaxRetries     int           `yaml:"max_retries" default:"5"`
			InitialBackoff time.Duration `yaml:"initial_backoff" default:"500ms"`
			MaxBackoff     time.Duration `yaml:"max_backoff" default:"30s"`
		} `yaml:"retry"`
	} `yaml:"ingest"`

	Postgres struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"5432"`
		Database    string        `yaml:"database" validate:"required"`
		User        string        `yaml:"user" default:"postgres"`
		Password    string        `yaml:"password"`
		MaxConns    int           `yaml:"max_conns" default:"10"`
		MinConns    int           `yaml:"min_conns" default:"2"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	} `yaml:"postgres"`

	Kafka struct {
		Brokers      []string      `yaml:"brokers"` // empty disables the report sink
		Topic        string        `yaml:"topic" default:"midas.ingest.reports"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		VerifyCacheTTL  time.Duration `yaml:"verify_cache_ttl" default:"5m"`
	} `yaml:"server"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Intervals) == 0 {
		c.Intervals = append(c.Intervals, models.DefaultIntervals...)
	}
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

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("SOURCE_DIR"); v != "" {
		c.Source.Dir = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Postgres.Port = p
		}
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Postgres.Database = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := models.ParseIntervals(c.Intervals); err != nil {
		return fmt.Errorf("intervals: %w", err)
	}
	if _, err := time.LoadLocation(c.ExchangeTimezone); err != nil {
		return fmt.Errorf("exchange_timezone: %w", err)
	}
	return nil
}

// Location returns the exchange timezone; Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ExchangeTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorkerCount resolves the effective worker pool size.
func (c *Config) WorkerCount() int {
	if c.Ingest.Workers > 0 {
		return c.Ingest.Workers
	}
	if c.Postgres.MaxConns > 0 {
		return c.Postgres.MaxConns
	}
	return 4
}
