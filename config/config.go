package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Scan        ScanConfig        `mapstructure:"scan"`
	Consistency ConsistencyConfig `mapstructure:"consistency"`
	Fundamental FundamentalConfig `mapstructure:"fundamental"`
	Facade      FacadeConfig      `mapstructure:"facade"`
	Log         LogConfig         `mapstructure:"log"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
}

type GatewayConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	WS   WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
}

type WSConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScanConfig tunes the momentum detector.
type ScanConfig struct {
	IntervalSeconds      int                `mapstructure:"interval_seconds"`
	MarketHoursCron      string             `mapstructure:"market_hours_cron"`
	EnterScore           float64            `mapstructure:"enter_score"`
	ExitScore            float64            `mapstructure:"exit_score"`
	ConfirmCount         int                `mapstructure:"confirm_count"`
	FadeCount            int                `mapstructure:"fade_count"`
	CooldownPolls        int                `mapstructure:"cooldown_polls"`
	MaxConsecutiveErrors int                `mapstructure:"max_consecutive_errors"`
	Weights              map[string]float64 `mapstructure:"weights"`
}

// ConsistencyConfig tunes the price reconciliation validator. Tolerances are
// relative deviations in percent; zero per-kind overrides fall back to the
// base tolerance.
type ConsistencyConfig struct {
	TolerancePct      float64 `mapstructure:"tolerance_pct"`
	IndexTolerancePct float64 `mapstructure:"index_tolerance_pct"`
	BoardTolerancePct float64 `mapstructure:"board_tolerance_pct"`
}

// FundamentalConfig tunes the divergence analyzer.
type FundamentalConfig struct {
	NearHighThreshold        float64 `mapstructure:"near_high_threshold"`
	ModerateYoyThreshold     float64 `mapstructure:"moderate_yoy_threshold"`
	MildPriceChangeThreshold float64 `mapstructure:"mild_price_change_threshold"`
	Top20Percentile          float64 `mapstructure:"top20_percentile"`
	MinHistoryBars           int     `mapstructure:"min_history_bars"`
	MaxConcurrent            int     `mapstructure:"max_concurrent"`
}

type FacadeConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig defines the logger options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // "dev" or "prod"
}

// Load reads config.yaml via Viper with environment variable overrides.
// A missing config file is not an error; defaults cover every key.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// Support environment variables with dot notation (e.g., SCAN_ENTER_SCORE)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.rest.base_url", "https://push2.eastmoney.com")
	v.SetDefault("gateway.rest.timeout", "10s")
	v.SetDefault("gateway.rest.requests_per_sec", 5.0)
	v.SetDefault("gateway.rest.max_concurrent", 5)
	v.SetDefault("gateway.ws.url", "")
	v.SetDefault("gateway.ws.timeout", "10s")

	v.SetDefault("scan.interval_seconds", 150)
	v.SetDefault("scan.market_hours_cron", "")
	v.SetDefault("scan.enter_score", 70.0)
	v.SetDefault("scan.exit_score", 55.0)
	v.SetDefault("scan.confirm_count", 3)
	v.SetDefault("scan.fade_count", 2)
	v.SetDefault("scan.cooldown_polls", 4)
	v.SetDefault("scan.max_consecutive_errors", 5)

	v.SetDefault("consistency.tolerance_pct", 0.01)
	v.SetDefault("consistency.index_tolerance_pct", 0.0)
	v.SetDefault("consistency.board_tolerance_pct", 0.0)

	v.SetDefault("fundamental.near_high_threshold", 0.95)
	v.SetDefault("fundamental.moderate_yoy_threshold", 10.0)
	v.SetDefault("fundamental.mild_price_change_threshold", 30.0)
	v.SetDefault("fundamental.top20_percentile", 80.0)
	v.SetDefault("fundamental.min_history_bars", 20)
	v.SetDefault("fundamental.max_concurrent", 8)

	v.SetDefault("facade.addr", ":8085")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.dbname", "signalcore")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "Asia/Shanghai")
}

// Validate rejects threshold combinations the state machine cannot run with.
func (c *Config) Validate() error {
	if c.Scan.ExitScore >= c.Scan.EnterScore {
		return fmt.Errorf("scan.exit_score (%.1f) must be below scan.enter_score (%.1f)",
			c.Scan.ExitScore, c.Scan.EnterScore)
	}
	if c.Scan.ConfirmCount < 1 {
		return fmt.Errorf("scan.confirm_count must be at least 1")
	}
	if c.Scan.FadeCount < 1 {
		return fmt.Errorf("scan.fade_count must be at least 1")
	}
	if c.Scan.CooldownPolls < 0 {
		return fmt.Errorf("scan.cooldown_polls must not be negative")
	}
	if c.Scan.MaxConsecutiveErrors < 1 {
		return fmt.Errorf("scan.max_consecutive_errors must be at least 1")
	}
	if c.Consistency.TolerancePct <= 0 {
		return fmt.Errorf("consistency.tolerance_pct must be positive")
	}
	if c.Fundamental.NearHighThreshold <= 0 || c.Fundamental.NearHighThreshold > 1 {
		return fmt.Errorf("fundamental.near_high_threshold must be in (0, 1]")
	}
	return nil
}

// ToleranceFor returns the consistency tolerance for a symbol kind, falling
// back to the base tolerance when no override is configured.
func (c ConsistencyConfig) ToleranceFor(kind string) float64 {
	switch kind {
	case "INDEX":
		if c.IndexTolerancePct > 0 {
			return c.IndexTolerancePct
		}
	case "CONCEPT", "INDUSTRY":
		if c.BoardTolerancePct > 0 {
			return c.BoardTolerancePct
		}
	}
	return c.TolerancePct
}
