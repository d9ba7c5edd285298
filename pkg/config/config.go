package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"dev"`
	DataDir     string `yaml:"data_dir" default:"./data"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Pairs       []string `yaml:"pairs"`
	Granularity string   `yaml:"granularity" default:"1h"`
	Range       struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"` // empty means now
	} `yaml:"range"`

	Fetch struct {
		Timeout        time.Duration `yaml:"timeout" default:"20s"`
		MaxRetries     int           `yaml:"max_retries" default:"3"`
		BackoffInitial time.Duration `yaml:"backoff_initial" default:"1s"`
		BackoffMax     time.Duration `yaml:"backoff_max" default:"8s"`
	} `yaml:"fetch"`

	Finnhub struct {
		APIKey                string  `yaml:"api_key"`
		BaseURL               string  `yaml:"base_url" default:"https://finnhub.io/api/v1"`
		IntradayRetentionDays int     `yaml:"intraday_retention_days" default:"30"`
		RatePerMin            float64 `yaml:"rate_per_min" default:"55"`
	} `yaml:"finnhub"`

	AlphaVantage struct {
		APIKey     string  `yaml:"api_key"`
		BaseURL    string  `yaml:"base_url" default:"https://www.alphavantage.co"`
		RatePerMin float64 `yaml:"rate_per_min" default:"5"`
	} `yaml:"alpha_vantage"`

	Yahoo struct {
		BaseURL               string  `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		IntradayRetentionDays int     `yaml:"intraday_retention_days" default:"60"`
		RatePerMin            float64 `yaml:"rate_per_min" default:"120"`
	} `yaml:"yahoo"`

	News struct {
		APIKey        string `yaml:"api_key"`
		BaseURL       string `yaml:"base_url" default:"https://newsapi.org/v2"`
		RetentionDays int    `yaml:"retention_days" default:"30"`
		WindowDays    int    `yaml:"window_days" default:"7"`
		PageSize      int    `yaml:"page_size" default:"100"`
		RatePerMin    float64 `yaml:"rate_per_min" default:"60"`
	} `yaml:"news"`

	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl" default:"6h"`
		Redis   struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Warehouse struct {
		Enabled    bool `yaml:"enabled"`
		ClickHouse struct {
			Host         string        `yaml:"host" default:"localhost"`
			Port         int           `yaml:"port" default:"9000"`
			Database     string        `yaml:"database" default:"fxpull"`
			User         string        `yaml:"user" default:"default"`
			Password     string        `yaml:"password"`
			DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"clickhouse"`
	} `yaml:"warehouse"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
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

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		c.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("NEWSAPI_KEY"); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv("FX_PAIRS"); v != "" {
		c.Pairs = strings.Split(v, ",")
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("pairs cannot be empty")
	}
	for _, p := range c.Pairs {
		if len(p) != 6 {
			return fmt.Errorf("pair %q must be a six-letter currency pair (e.g. EURUSD)", p)
		}
	}
	switch c.Granularity {
	case "1m", "5m", "15m", "30m", "1h", "1d":
	default:
		return fmt.Errorf("granularity %q not supported", c.Granularity)
	}
	if c.Range.Start == "" {
		return fmt.Errorf("range.start is required")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries cannot be negative")
	}
	return nil
}
