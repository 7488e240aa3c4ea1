package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/filab/fi-dashboard/internal/domain/chart"
	"github.com/filab/fi-dashboard/internal/platform/dates"
)

// Data sources the patient snapshot can be loaded from.
const (
	SourceFile     = "file"
	SourceS3       = "s3"
	SourcePostgres = "postgres"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DataSource  string `mapstructure:"DATA_SOURCE"`
	DataPath    string `mapstructure:"DATA_PATH"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3Key       string `mapstructure:"S3_KEY"`
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AccessSecret      string        `mapstructure:"ACCESS_SECRET"`
	SessionSigningKey string        `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit      string   `mapstructure:"BODY_LIMIT"`

	ChartAxisFloor      string `mapstructure:"CHART_AXIS_FLOOR"`
	ChartFixedRange     bool   `mapstructure:"CHART_FIXED_RANGE"`
	ChartShowDischarge  bool   `mapstructure:"CHART_SHOW_DISCHARGE"`
	ChartDxTicks        bool   `mapstructure:"CHART_DX_TICKS"`
	ChartOpacityByTests bool   `mapstructure:"CHART_OPACITY_BY_TESTS"`
	ChartHoverWindow    bool   `mapstructure:"CHART_HOVER_WINDOW"`
	ChartScrollZoom     bool   `mapstructure:"CHART_SCROLL_ZOOM"`
	ChartResetButton    bool   `mapstructure:"CHART_RESET_BUTTON"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATA_SOURCE", "DATA_PATH", "S3_BUCKET", "S3_KEY", "S3_ENDPOINT",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"ACCESS_SECRET", "SESSION_SIGNING_KEY", "SESSION_TTL",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT",
	"CHART_AXIS_FLOOR", "CHART_FIXED_RANGE", "CHART_SHOW_DISCHARGE", "CHART_DX_TICKS",
	"CHART_OPACITY_BY_TESTS", "CHART_HOVER_WINDOW", "CHART_SCROLL_ZOOM", "CHART_RESET_BUTTON",
}

// Load reads the environment, overlaid on an optional .env file in the
// working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8050")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATA_SOURCE", SourceFile)
	v.SetDefault("DATA_PATH", "data/fi_lab_all_patients.json")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("CORS_ORIGINS", "")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("CHART_AXIS_FLOOR", chart.DefaultAxisFloor.String())
	v.SetDefault("CHART_FIXED_RANGE", true)
	v.SetDefault("CHART_SHOW_DISCHARGE", true)
	v.SetDefault("CHART_DX_TICKS", true)
	v.SetDefault("CHART_OPACITY_BY_TESTS", true)
	v.SetDefault("CHART_HOVER_WINDOW", true)
	v.SetDefault("CHART_SCROLL_ZOOM", true)
	v.SetDefault("CHART_RESET_BUTTON", true)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = nil
	if origins := strings.TrimSpace(v.GetString("CORS_ORIGINS")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	cfg.DataSource = strings.ToLower(strings.TrimSpace(cfg.DataSource))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks everything Load cannot: required combinations and
// parseable values. serve calls it before binding the port.
func (c *Config) Validate() error {
	if err := c.ValidateSource(); err != nil {
		return err
	}
	if c.AccessSecret == "" {
		return fmt.Errorf("ACCESS_SECRET is required; the dashboard cannot be unlocked without it")
	}
	if c.IsProduction() && len(c.SessionSigningKey) < 32 {
		return fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 characters in production")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if _, err := c.ChartOptions(); err != nil {
		return err
	}
	return nil
}

// ValidateSource checks only the data source settings, for commands that
// load patients without serving them.
func (c *Config) ValidateSource() error {
	switch c.DataSource {
	case SourceFile:
		if c.DataPath == "" {
			return fmt.Errorf("DATA_PATH is required when DATA_SOURCE is %q", SourceFile)
		}
	case SourceS3:
		if c.S3Bucket == "" || c.S3Key == "" {
			return fmt.Errorf("S3_BUCKET and S3_KEY are required when DATA_SOURCE is %q", SourceS3)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATA_SOURCE is %q", SourcePostgres)
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be %q, %q, or %q, got %q", SourceFile, SourceS3, SourcePostgres, c.DataSource)
	}
	return nil
}

// ChartOptions maps the CHART_* keys onto the deriver's options.
func (c *Config) ChartOptions() (chart.Options, error) {
	opts := chart.DefaultOptions()
	if c.ChartAxisFloor != "" {
		floor, err := dates.Parse(c.ChartAxisFloor)
		if err != nil || !floor.Valid() {
			return chart.Options{}, fmt.Errorf("CHART_AXIS_FLOOR %q is not a date", c.ChartAxisFloor)
		}
		opts.AxisFloor = floor
	}
	opts.FixedAxisRange = c.ChartFixedRange
	opts.ShowDischarge = c.ChartShowDischarge
	opts.DxTicks = c.ChartDxTicks
	opts.OpacityByTests = c.ChartOpacityByTests
	opts.HoverWindow = c.ChartHoverWindow
	opts.ScrollZoom = c.ChartScrollZoom
	opts.ResetButton = c.ChartResetButton
	return opts, nil
}
