package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSyncConfig() *Config {
	return &Config{
		DatabaseURL:        "postgres://localhost/okbills",
		APIKey:             "key",
		Jurisdiction:       "ok",
		RequestTimeout:     30 * time.Second,
		PageDelay:          time.Second,
		BillsPerPage:       20,
		LegislatorsPerPage: 50,
		BillPageCap:        50,
		LegislatorPageCap:  10,
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/okbills")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/okbills", cfg.DatabaseURL)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "ok", cfg.Jurisdiction)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Second, cfg.PageDelay)
	assert.Equal(t, 20, cfg.BillsPerPage)
	assert.Equal(t, 50, cfg.BillPageCap)
	assert.Equal(t, 10, cfg.LegislatorPageCap)
	assert.Equal(t, 5*time.Minute, cfg.StatsCacheTTL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/okbills")
	t.Setenv("OPENSTATES_BASE_URL", "http://localhost:9999/")
	t.Setenv("OPENSTATES_SESSION", "2025")
	t.Setenv("SYNC_PAGE_DELAY", "250ms")
	t.Setenv("SYNC_BILL_PAGE_CAP", "80")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.BaseURL)
	assert.Equal(t, "2025", cfg.Session)
	assert.Equal(t, 250*time.Millisecond, cfg.PageDelay)
	assert.Equal(t, 80, cfg.BillPageCap)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/okbills")
	t.Setenv("OPENSTATES_SESSION", "2024")

	flags := pflag.NewFlagSet("sync", pflag.ContinueOnError)
	flags.String("session", "", "")
	flags.Int("bill-page-cap", 0, "")
	require.NoError(t, flags.Parse([]string{"--session", "2025", "--bill-page-cap", "5"}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "2025", cfg.Session)
	assert.Equal(t, 5, cfg.BillPageCap)
}

func TestValidateSync(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validSyncConfig().ValidateSync())
	})

	t.Run("missing database url", func(t *testing.T) {
		cfg := validSyncConfig()
		cfg.DatabaseURL = ""
		assert.ErrorContains(t, cfg.ValidateSync(), "DATABASE_URL")
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := validSyncConfig()
		cfg.APIKey = ""
		assert.ErrorContains(t, cfg.ValidateSync(), "OPENSTATES_API_KEY")
	})

	t.Run("bill cap must exceed legislator cap", func(t *testing.T) {
		cfg := validSyncConfig()
		cfg.BillPageCap = 10
		assert.ErrorContains(t, cfg.ValidateSync(), "bill page cap")
	})

	t.Run("non-positive page size", func(t *testing.T) {
		cfg := validSyncConfig()
		cfg.BillsPerPage = 0
		assert.Error(t, cfg.ValidateSync())
	})
}
