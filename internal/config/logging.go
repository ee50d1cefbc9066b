package config

import "github.com/caarlos0/env/v11"

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty     bool   `env:"LOG_PRETTY" envDefault:"true"`
	File       string `env:"LOG_FILE"`
	MaxMB      int    `env:"LOG_MAX_MB" envDefault:"10"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`
}

// LoadLog parses logging settings alone so the logger can be set up before
// the rest of the configuration is validated.
func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}
