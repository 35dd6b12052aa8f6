package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/justxchange/go-backend/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("fails without a signing key", func(t *testing.T) {
		t.Setenv("SECRET_KEY", "placeholder")
		os.Unsetenv("SECRET_KEY")

		_, err := config.Load()

		assert.Error(t, err)
	})

	t.Run("applies development defaults", func(t *testing.T) {
		t.Setenv("SECRET_KEY", "test-signing-key")

		cfg, err := config.Load()

		assert.NoError(t, err)
		assert.Equal(t, ":8090", cfg.ServerAddr)
		assert.Equal(t, time.Hour, cfg.TokenExpiry)
		assert.Equal(t, 5*time.Minute, cfg.OTPExpiry)
		assert.Equal(t, "justxchange", cfg.TokenIssuer)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("SECRET_KEY", "test-signing-key")
		t.Setenv("SERVER_ADDR", ":9000")
		t.Setenv("OTP_EXPIRY", "10m")

		cfg, err := config.Load()

		assert.NoError(t, err)
		assert.Equal(t, ":9000", cfg.ServerAddr)
		assert.Equal(t, 10*time.Minute, cfg.OTPExpiry)
	})
}
