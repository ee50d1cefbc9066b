package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Platform modes
const (
	PlatformLive  = "live"
	PlatformPaper = "paper"
)

// Config holds all configuration for the bot
type Config struct {
	// Telegram
	TelegramToken string        `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	AdminID       int64         `env:"ADMIN_ID,required"`
	SendRetries   int           `env:"TELEGRAM_SEND_RETRIES" envDefault:"3"`
	SendRetryWait time.Duration `env:"TELEGRAM_SEND_RETRY_WAIT" envDefault:"2s"`
	NotifyBuffer  int           `env:"NOTIFY_BUFFER" envDefault:"256"`

	// Game platform
	Platform      string          `env:"PLATFORM" envDefault:"live"` // live | paper
	BaseURL       string          `env:"PLATFORM_BASE_URL"`
	PhonePrefix   string          `env:"PHONE_PREFIX" envDefault:"95"`
	HTTPTimeout   time.Duration   `env:"HTTP_TIMEOUT" envDefault:"10s"`
	HTTPRetries   int             `env:"HTTP_RETRIES" envDefault:"3"`
	HTTPRetryWait time.Duration   `env:"HTTP_RETRY_WAIT" envDefault:"2s"`
	PaperBalance  decimal.Decimal `env:"PAPER_BALANCE" envDefault:"10000"`
	PaperRound    time.Duration   `env:"PAPER_ROUND" envDefault:"1m"`

	// Engine
	PollInterval         time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	ReconcileInterval    time.Duration `env:"RECONCILE_INTERVAL" envDefault:"2s"`
	FetchTimeout         time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`
	MaxConsecutiveErrors int           `env:"MAX_CONSECUTIVE_ERRORS" envDefault:"10"`
	SkipTimeout          time.Duration `env:"SKIP_TIMEOUT" envDefault:"60s"`
	PendingTimeout       time.Duration `env:"PENDING_TIMEOUT" envDefault:"0s"`
	BetAttempts          int           `env:"BET_ATTEMPTS" envDefault:"3"`
	BetRetryWait         time.Duration `env:"BET_RETRY_WAIT" envDefault:"5s"`
	BalanceAttempts      int           `env:"BALANCE_ATTEMPTS" envDefault:"10"`
	BalanceRetryWait     time.Duration `env:"BALANCE_RETRY_WAIT" envDefault:"5s"`

	// Pattern tables for LYZO / DREAM, built-in tables when empty
	LyzoPatterns  string `env:"LYZO_PATTERNS"`
	DreamPatterns string `env:"DREAM_PATTERNS"`

	// Database: postgres:// DSN or SQLite path
	DatabasePath string `env:"DATABASE_URL" envDefault:"data/bsbot.db"`

	// Admin HTTP (/metrics, /healthz, /sessions); empty disables
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	Log LogConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	switch c.Platform {
	case PlatformLive:
		if c.BaseURL == "" {
			return fmt.Errorf("PLATFORM_BASE_URL is required for live platform")
		}
	case PlatformPaper:
		if !c.PaperBalance.IsPositive() {
			return fmt.Errorf("PAPER_BALANCE must be positive")
		}
	default:
		return fmt.Errorf("invalid PLATFORM %q (live or paper)", c.Platform)
	}
	if c.PollInterval <= 0 || c.ReconcileInterval <= 0 {
		return fmt.Errorf("poll and reconcile intervals must be positive")
	}
	if c.MaxConsecutiveErrors < 1 {
		return fmt.Errorf("MAX_CONSECUTIVE_ERRORS must be at least 1")
	}
	return nil
}

// Paper reports whether bets go to the in-memory platform
func (c *Config) Paper() bool {
	return c.Platform == PlatformPaper
}
