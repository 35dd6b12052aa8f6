package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// Config carries every runtime knob the server needs. Values come from the
// environment; defaults are tuned for local development.
type Config struct {
	ServerAddr  string `env:"SERVER_ADDR" envDefault:":8090"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:justxchange.db?cache=shared"`

	SigningKey  string        `env:"SECRET_KEY,required"`
	TokenIssuer string        `env:"TOKEN_ISSUER" envDefault:"justxchange"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"1h"`

	OTPExpiry       time.Duration `env:"OTP_EXPIRY" envDefault:"5m"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"5s"`

	SMSFromNumber string `env:"SMS_FROM_NUMBER" envDefault:"+10000000000"`
	EmailFrom     string `env:"EMAIL_FROM" envDefault:"no-reply@justxchange.local"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse environment configuration")
	}
	return cfg, nil
}
