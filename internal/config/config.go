package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL      = "https://v3.openstates.org"
	DefaultJurisdiction = "ok"
)

// envBindings maps config keys to the environment variables that set them
var envBindings = map[string]string{
	"database_url":         "DATABASE_URL",
	"openstates_api_key":   "OPENSTATES_API_KEY",
	"openstates_base_url":  "OPENSTATES_BASE_URL",
	"jurisdiction":         "OPENSTATES_JURISDICTION",
	"session":              "OPENSTATES_SESSION",
	"request_timeout":      "SYNC_REQUEST_TIMEOUT",
	"page_delay":           "SYNC_PAGE_DELAY",
	"bills_per_page":       "SYNC_BILLS_PER_PAGE",
	"legislators_per_page": "SYNC_LEGISLATORS_PER_PAGE",
	"bill_page_cap":        "SYNC_BILL_PAGE_CAP",
	"legislator_page_cap":  "SYNC_LEGISLATOR_PAGE_CAP",
	"redis_url":            "REDIS_URL",
	"stats_cache_ttl":      "STATS_CACHE_TTL",
	"log_mode":             "LOG_MODE",
}

// Config holds runtime settings for the sync pipeline and CLI
type Config struct {
	DatabaseURL        string
	APIKey             string
	BaseURL            string
	Jurisdiction       string
	Session            string
	RequestTimeout     time.Duration
	PageDelay          time.Duration
	BillsPerPage       int
	LegislatorsPerPage int
	BillPageCap        int
	LegislatorPageCap  int
	RedisURL           string
	StatsCacheTTL      time.Duration
	LogMode            string
}

// Load reads configuration from .env, the environment and bound flags.
// Flags take precedence over the environment, which takes precedence over defaults.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := New()
	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	return FromViper(v), nil
}

// New creates a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()

	for key, env := range envBindings {
		// BindEnv only errors when called without a key
		_ = v.BindEnv(key, env)
	}

	v.SetDefault("database_url", "")
	v.SetDefault("openstates_api_key", "")
	v.SetDefault("openstates_base_url", DefaultBaseURL)
	v.SetDefault("jurisdiction", DefaultJurisdiction)
	v.SetDefault("session", "")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("page_delay", "1s")
	v.SetDefault("bills_per_page", 20)
	v.SetDefault("legislators_per_page", 50)
	v.SetDefault("bill_page_cap", 50)
	v.SetDefault("legislator_page_cap", 10)
	v.SetDefault("redis_url", "")
	v.SetDefault("stats_cache_ttl", "5m")
	v.SetDefault("log_mode", "development")

	return v
}

// FromViper maps viper keys onto a Config
func FromViper(v *viper.Viper) *Config {
	return &Config{
		DatabaseURL:        v.GetString("database_url"),
		APIKey:             v.GetString("openstates_api_key"),
		BaseURL:            strings.TrimRight(v.GetString("openstates_base_url"), "/"),
		Jurisdiction:       v.GetString("jurisdiction"),
		Session:            v.GetString("session"),
		RequestTimeout:     v.GetDuration("request_timeout"),
		PageDelay:          v.GetDuration("page_delay"),
		BillsPerPage:       v.GetInt("bills_per_page"),
		LegislatorsPerPage: v.GetInt("legislators_per_page"),
		BillPageCap:        v.GetInt("bill_page_cap"),
		LegislatorPageCap:  v.GetInt("legislator_page_cap"),
		RedisURL:           v.GetString("redis_url"),
		StatsCacheTTL:      v.GetDuration("stats_cache_ttl"),
		LogMode:            v.GetString("log_mode"),
	}
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	return nil
}

// ValidateSync checks the additional settings needed to pull from OpenStates
func (c *Config) ValidateSync() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return errors.New("OPENSTATES_API_KEY environment variable is required")
	}
	if c.Jurisdiction == "" {
		return errors.New("jurisdiction must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay must not be negative, got %s", c.PageDelay)
	}
	if c.BillsPerPage <= 0 || c.LegislatorsPerPage <= 0 {
		return errors.New("page sizes must be positive")
	}
	if c.BillPageCap <= 0 || c.LegislatorPageCap <= 0 {
		return errors.New("page caps must be positive")
	}
	if c.BillPageCap <= c.LegislatorPageCap {
		return fmt.Errorf("bill page cap (%d) must be larger than legislator page cap (%d)", c.BillPageCap, c.LegislatorPageCap)
	}
	return nil
}
