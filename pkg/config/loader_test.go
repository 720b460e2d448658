package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/config"
)

type clientConfig struct {
	APIURL  string        `env:"TEST_STOREFRONT_API_URL" envDefault:"http://localhost:8080/api"`
	Timeout time.Duration `env:"TEST_STOREFRONT_TIMEOUT" envDefault:"5s"`
	Debug   bool          `env:"TEST_STOREFRONT_DEBUG"`
}

type requiredConfig struct {
	Secret string `env:"TEST_STOREFRONT_REQUIRED,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg clientConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.False(t, cfg.Debug)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("TEST_STOREFRONT_API_URL", "https://shop.example.com/api")
		t.Setenv("TEST_STOREFRONT_DEBUG", "true")

		var cfg clientConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "https://shop.example.com/api", cfg.APIURL)
		assert.True(t, cfg.Debug)
	})

	t.Run("env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("TEST_STOREFRONT_TIMEOUT=30s\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("TEST_STOREFRONT_TIMEOUT") })

		var cfg clientConfig
		require.NoError(t, config.Load(&cfg, path))
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})

	t.Run("missing env file", func(t *testing.T) {
		var cfg clientConfig
		err := config.Load(&cfg, filepath.Join(t.TempDir(), "absent.env"))
		assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
	})

	t.Run("required value missing", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		err := config.Load[clientConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoadPanics(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}
