package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Config holds application configuration
type Config struct {
	// Analysis
	AnalysisDate       string        `yaml:"analysis_date"`        // YYYY-MM-DD, combined with metric line clock times
	RecencyWindowHours *float64      `yaml:"recency_window_hours"` // nil = count every unhealthy event
	Workers            int           `yaml:"workers"`
	FitTimeout         time.Duration `yaml:"fit_timeout"`

	// Forecast policy
	BufferMultiplier float64       `yaml:"buffer_multiplier"` // applied to the forecast peak
	IntervalWidth    float64       `yaml:"interval_width"`    // uncertainty band width, 0-1
	ForecastSteps    int           `yaml:"forecast_steps"`
	ForecastStep     time.Duration `yaml:"forecast_step"` // 0 = infer from sampling cadence
	Seasonality      bool          `yaml:"seasonality"`

	// Sources
	PrometheusURL string `yaml:"prometheus_url"`
	Namespace     string `yaml:"namespace"`

	// Collection
	CollectDuration time.Duration `yaml:"collect_duration"`
	CollectInterval time.Duration `yaml:"collect_interval"`
	RateLimitCalls  int           `yaml:"rate_limit_calls"`
	RateLimitPeriod time.Duration `yaml:"rate_limit_period"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`

	// Output
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`    // console, json
	OutputFormat string `yaml:"output_format"` // text, json, yaml, csv
}

// NewConfig creates a new configuration with defaults and environment overrides
func NewConfig() *Config {
	return &Config{
		AnalysisDate:       getEnv("ANALYSIS_DATE", time.Now().Format(dateLayout)),
		RecencyWindowHours: getEnvFloatPtr("RECENCY_WINDOW_HOURS"),
		Workers:            getEnvInt("WORKERS", 4),
		FitTimeout:         getEnvDuration("FIT_TIMEOUT", 30*time.Second),
		BufferMultiplier:   getEnvFloat("BUFFER_MULTIPLIER", 1.2),
		IntervalWidth:      getEnvFloat("INTERVAL_WIDTH", 0.6),
		ForecastSteps:      getEnvInt("FORECAST_STEPS", 30),
		ForecastStep:       getEnvDuration("FORECAST_STEP", 0),
		Seasonality:        getEnvBool("SEASONALITY", true),
		PrometheusURL:      getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		Namespace:          getEnv("NAMESPACE", "test"),
		CollectDuration:    getEnvDuration("COLLECT_DURATION", 120*time.Minute),
		CollectInterval:    getEnvDuration("COLLECT_INTERVAL", 60*time.Second),
		RateLimitCalls:     getEnvInt("RATE_LIMIT_CALLS", 100),
		RateLimitPeriod:    getEnvDuration("RATE_LIMIT_PERIOD", 60*time.Second),
		CacheTTL:           getEnvDuration("CACHE_TTL", 30*time.Second),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		OutputFormat:       getEnv("OUTPUT_FORMAT", "text"),
	}
}

// LoadFile overlays values from a YAML file onto the configuration.
// Keys absent from the file keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Date returns the analysis date at midnight local time
func (c *Config) Date() (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, c.AnalysisDate, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid analysis date %q: %w", c.AnalysisDate, err)
	}
	return d, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvFloatPtr(key string) *float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return &f
		}
	}
	return nil
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if _, err := c.Date(); err != nil {
		return err
	}
	if c.RecencyWindowHours != nil && *c.RecencyWindowHours <= 0 {
		return fmt.Errorf("recency window must be > 0 hours")
	}
	if c.BufferMultiplier < 1.0 {
		return fmt.Errorf("buffer multiplier must be >= 1.0")
	}
	if c.IntervalWidth <= 0 || c.IntervalWidth >= 1 {
		return fmt.Errorf("interval width must be between 0 and 1")
	}
	if c.ForecastSteps < 0 {
		return fmt.Errorf("forecast steps must be >= 0")
	}
	if c.ForecastStep < 0 {
		return fmt.Errorf("forecast step must be >= 0")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.FitTimeout <= 0 {
		return fmt.Errorf("fit timeout must be > 0")
	}
	switch c.OutputFormat {
	case "text", "json", "yaml", "csv":
	default:
		return fmt.Errorf("output format must be text, json, yaml, or csv")
	}
	return nil
}

// ValidateCollection checks the settings used by the collector
func (c *Config) ValidateCollection() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace must be set")
	}
	if c.CollectInterval < time.Second {
		return fmt.Errorf("collect interval must be at least 1s")
	}
	if c.CollectDuration < c.CollectInterval {
		return fmt.Errorf("collect duration must be at least one interval")
	}
	if c.RateLimitCalls < 1 || c.RateLimitPeriod <= 0 {
		return fmt.Errorf("rate limit must allow at least 1 call per period")
	}
	return nil
}
