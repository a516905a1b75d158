package config

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lead-scorer/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	LeadDB    string  `yaml:"lead_db" mapstructure:"lead_db"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// StoreConfig configures the local state backend. For sqlite the
// database_url is a file path.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ScoringConfig configures the per-lead budget, the ledger breaker and the
// ledger retry policy.
type ScoringConfig struct {
	TimeoutMs           int         `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	BreakerThreshold    int         `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int         `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
	AutoTrigger         bool        `yaml:"auto_trigger" mapstructure:"auto_trigger"`
	DLQMaxRetries       int         `yaml:"dlq_max_retries" mapstructure:"dlq_max_retries"`
	Retry               RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig configures retries of transient ledger errors.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// Timeout returns the per-lead scoring budget.
func (s ScoringConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// BreakerConfig returns the ledger breaker configuration.
func (s ScoringConfig) BreakerConfig() resilience.CircuitBreakerConfig {
	return resilience.FromBreakerConfig(s.BreakerThreshold, time.Duration(s.BreakerCooldownSecs)*time.Second)
}

// RetryPolicy returns the ledger retry configuration.
func (s ScoringConfig) RetryPolicy() resilience.RetryConfig {
	r := s.Retry
	return resilience.FromRetryConfig(r.MaxAttempts, r.InitialBackoffMs, r.MaxBackoffMs, r.Multiplier, r.JitterFraction)
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MonitoringConfig configures background alert checks.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	DLQDepthThreshold    int     `yaml:"dlq_depth_threshold" mapstructure:"dlq_depth_threshold"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCORER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"notion.token", "notion.lead_db", "monitoring.webhook_url", "server.cors_origins"} {
		_ = v.BindEnv(key)
	}

	// Defaults
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "lead-scorer.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("scoring.timeout_ms", 5000)
	v.SetDefault("scoring.breaker_threshold", 5)
	v.SetDefault("scoring.breaker_cooldown_secs", 60)
	v.SetDefault("scoring.auto_trigger", true)
	v.SetDefault("scoring.dlq_max_retries", 3)
	v.SetDefault("scoring.retry.max_attempts", 3)
	v.SetDefault("scoring.retry.initial_backoff_ms", 1000)
	v.SetDefault("scoring.retry.max_backoff_ms", 10000)
	v.SetDefault("scoring.retry.multiplier", 2.0)
	v.SetDefault("scoring.retry.jitter_fraction", 0.1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.dlq_depth_threshold", 50)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields required by a command mode: "score" needs the
// Notion ledger, "serve" additionally needs a listen port, and "store"
// (runs, breaker and dlq inspection) needs only the state store.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "score":
		errs = append(errs, c.validateNotion()...)
	case "serve":
		errs = append(errs, c.validateNotion()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
			errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
		}
	case "store":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.validateScoring()...)

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateNotion() []string {
	var errs []string
	if c.Notion.Token == "" {
		errs = append(errs, "notion.token is required")
	}
	if c.Notion.LeadDB == "" {
		errs = append(errs, "notion.lead_db is required")
	}
	return errs
}

func (c *Config) validateStore() []string {
	var errs []string
	if !slices.Contains([]string{"sqlite", "postgres"}, c.Store.Driver) {
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

func (c *Config) validateScoring() []string {
	var errs []string
	if c.Scoring.TimeoutMs <= 0 {
		errs = append(errs, "scoring.timeout_ms must be > 0")
	}
	if c.Scoring.BreakerThreshold < 1 {
		errs = append(errs, "scoring.breaker_threshold must be >= 1")
	}
	if c.Scoring.BreakerCooldownSecs < 1 {
		errs = append(errs, "scoring.breaker_cooldown_secs must be >= 1")
	}
	if c.Scoring.Retry.MaxAttempts < 1 || c.Scoring.Retry.MaxAttempts > 10 {
		errs = append(errs, "scoring.retry.max_attempts must be between 1 and 10")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
