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
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" default:"10"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"2"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Forecast   ForecastConfig `yaml:"forecast"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"kirana"`
		Table            string        `yaml:"table" default:"transactions"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled           bool     `yaml:"enabled"`
		Brokers           []string `yaml:"brokers"`
		TransactionsTopic string   `yaml:"transactions_topic" default:"kirana.transactions"`
		ForecastsTopic    string   `yaml:"forecasts_topic" default:"kirana.forecasts"`
		RequiredAcks      int      `yaml:"required_acks" default:"-1"`
		Compression       string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer          struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"kirana-ingest"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"10000"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"kirana"`
	} `yaml:"redis"`
	Dashboard struct {
		Enabled      bool          `yaml:"enabled"`
		PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
	} `yaml:"dashboard"`
}

// ForecastConfig holds the deployment parameters of the prediction pipeline.
type ForecastConfig struct {
	// Canonical denomination order shared by training export and inference.
	Denominations []int    `yaml:"denominations" default:"[2000,500,200,100,50,20,10,5,2,1]" validate:"required,min=1,dive,gt=0"`
	StoreTypes    []string `yaml:"store_types" default:"[\"kirana\",\"general\",\"pharmacy\"]"`
	StoreType     string   `yaml:"store_type" default:"kirana"`
	Basket        []struct {
		Total  float64 `yaml:"total" validate:"gt=0"`
		Tender float64 `yaml:"tender" validate:"gtfield=Total"`
	} `yaml:"basket" validate:"dive"`
	OpenHour         int           `yaml:"open_hour" default:"8" validate:"gte=0,lte=23"`
	CloseHour        int           `yaml:"close_hour" default:"21" validate:"gte=0,lte=23"`
	SpikePeriod      float64       `yaml:"spike_period" default:"14" validate:"gt=0"`
	DefaultDayVolume float64       `yaml:"default_day_volume" default:"50" validate:"gte=0"`
	CacheTTL         time.Duration `yaml:"cache_ttl" default:"1h"`
	Models           struct {
		DailyAmount       string        `yaml:"daily_amount" validate:"required"`
		DenominationSplit string        `yaml:"denomination_split" validate:"required"`
		SpikeHour         string        `yaml:"spike_hour" validate:"required"`
		Timeout           time.Duration `yaml:"timeout" default:"3s"`
	} `yaml:"models"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv()
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MODEL_DAILY_AMOUNT"); v != "" {
		c.Forecast.Models.DailyAmount = v
	}
	if v := os.Getenv("MODEL_DENOMINATION_SPLIT"); v != "" {
		c.Forecast.Models.DenominationSplit = v
	}
	if v := os.Getenv("MODEL_SPIKE_HOUR"); v != "" {
		c.Forecast.Models.SpikeHour = v
	}
	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Forecast.StoreType = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func (c *Config) finish() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate checks cross-field rules the struct tags cannot express.
func (c *Config) Validate() error {
	d := c.Forecast.Denominations
	for i := 1; i < len(d); i++ {
		if d[i] >= d[i-1] {
			return fmt.Errorf("forecast.denominations must be strictly descending, got %d after %d", d[i], d[i-1])
		}
	}
	if c.Forecast.OpenHour > c.Forecast.CloseHour {
		return fmt.Errorf("forecast.open_hour (%d) must not be after close_hour (%d)", c.Forecast.OpenHour, c.Forecast.CloseHour)
	}
	seen := make(map[string]bool, len(c.Forecast.StoreTypes))
	for _, st := range c.Forecast.StoreTypes {
		if st == "" || st == "unknown" {
			return fmt.Errorf("forecast.store_types must not contain empty or reserved name %q", st)
		}
		if seen[st] {
			return fmt.Errorf("forecast.store_types contains duplicate %q", st)
		}
		seen[st] = true
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
