// Package config loads application configuration from environment variables
// and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/logging"
)

// EnvPrefix is prepended to every environment variable, e.g. STALEBOT_DB_PATH.
const EnvPrefix = "STALEBOT"

// ConfigFileEnv names the environment variable pointing at a YAML config file.
const ConfigFileEnv = "STALEBOT_CONFIG_FILE"

// Config holds the application configuration.
type Config struct {
	ListenAddr string        `mapstructure:"listen_addr"`
	Log        LogConfig     `mapstructure:"log"`
	DB         DBConfig      `mapstructure:"db"`
	GitHub     GitHubConfig  `mapstructure:"github"`
	Sweep      SweepConfig   `mapstructure:"sweep"`
	Tiers      TiersConfig   `mapstructure:"tiers"`
	Metrics    MetricsConfig `mapstructure:"metrics"`

	// Repos lists owner/repo names to sweep in token mode. Ignored in app
	// mode, where installations define the tracked repositories.
	Repos []string `mapstructure:"repos"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DBConfig locates the bookkeeping database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// GitHubConfig holds GitHub credentials. Either AppID with a private key
// (app mode) or Token (token mode) must be set.
type GitHubConfig struct {
	AppID          int64  `mapstructure:"app_id"`
	PrivateKey     string `mapstructure:"private_key"`
	PrivateKeyFile string `mapstructure:"private_key_file"`
	Token          string `mapstructure:"token"`
	BaseURL        string `mapstructure:"base_url"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
}

// SweepConfig tunes the escalation sweep.
type SweepConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	Concurrency       int           `mapstructure:"concurrency"`
	DeliveryRetention time.Duration `mapstructure:"delivery_retention"`
}

// TiersConfig overrides the escalation thresholds, in days.
type TiersConfig struct {
	NeedsAttentionDays float64 `mapstructure:"needs_attention_days"`
	StaleDays          float64 `mapstructure:"stale_days"`
	DireDays           float64 `mapstructure:"dire_days"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	tiers := model.DefaultTierThresholds()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatText)
	v.SetDefault("db.path", "stalebot.db")
	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.private_key", "")
	v.SetDefault("github.private_key_file", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.webhook_secret", "")
	v.SetDefault("sweep.interval", time.Hour)
	v.SetDefault("sweep.concurrency", 4)
	v.SetDefault("sweep.delivery_retention", 7*24*time.Hour)
	v.SetDefault("tiers.needs_attention_days", tiers.NeedsAttentionDays)
	v.SetDefault("tiers.stale_days", tiers.StaleDays)
	v.SetDefault("tiers.dire_days", tiers.DireDays)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("repos", []string{})
}

// Load reads configuration from STALEBOT_* environment variables and, when
// STALEBOT_CONFIG_FILE is set, from that YAML file. Environment variables win
// over the file. The result is validated, but GitHub credentials are only
// checked by RequireGitHub since some commands work offline.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Repos = normalizeRepos(cfg.Repos)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalizeRepos trims entries and drops empty ones. A comma-separated
// environment value arrives as a single element on some viper paths.
func normalizeRepos(in []string) []string {
	out := []string{}
	for _, entry := range in {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// Validate checks everything except GitHub credentials.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q, must be one of: text, json", c.Log.Format)
	}

	if c.DB.Path == "" {
		return errors.New("db path is required")
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.Sweep.Interval)
	}
	if c.Sweep.Concurrency < 1 {
		return fmt.Errorf("sweep concurrency must be at least 1, got %d", c.Sweep.Concurrency)
	}
	if c.Sweep.DeliveryRetention <= 0 {
		return fmt.Errorf("delivery retention must be positive, got %s", c.Sweep.DeliveryRetention)
	}
	if err := c.TierThresholds().Validate(); err != nil {
		return fmt.Errorf("invalid tiers: %w", err)
	}

	for _, name := range c.Repos {
		if _, err := model.ParseRepoRef(name); err != nil {
			return fmt.Errorf("invalid repos entry: %w", err)
		}
	}

	if c.GitHub.AppID < 0 {
		return fmt.Errorf("github app id must not be negative, got %d", c.GitHub.AppID)
	}
	if c.GitHub.PrivateKey != "" && c.GitHub.PrivateKeyFile != "" {
		return errors.New("set only one of github private_key and private_key_file")
	}

	return nil
}

// AppMode reports whether the bot authenticates as a GitHub App.
func (c *Config) AppMode() bool {
	return c.GitHub.AppID > 0
}

// RequireGitHub checks that a complete set of credentials is configured:
// app id with a private key, or a token with at least one repository.
func (c *Config) RequireGitHub() error {
	if c.AppMode() {
		if c.GitHub.PrivateKey == "" && c.GitHub.PrivateKeyFile == "" {
			return errors.New("github app id is set but no private key (STALEBOT_GITHUB_PRIVATE_KEY or STALEBOT_GITHUB_PRIVATE_KEY_FILE)")
		}
		return nil
	}
	if c.GitHub.Token == "" {
		return errors.New("github credentials missing: set STALEBOT_GITHUB_APP_ID with a private key, or STALEBOT_GITHUB_TOKEN")
	}
	return nil
}

// PrivateKeyPEM returns the app private key, reading it from
// PrivateKeyFile when the inline value is empty.
func (c *Config) PrivateKeyPEM() ([]byte, error) {
	if c.GitHub.PrivateKey != "" {
		return []byte(c.GitHub.PrivateKey), nil
	}
	if c.GitHub.PrivateKeyFile == "" {
		return nil, errors.New("no github private key configured")
	}
	data, err := os.ReadFile(c.GitHub.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	return data, nil
}

// TierThresholds returns the configured escalation thresholds.
func (c *Config) TierThresholds() model.TierThresholds {
	return model.TierThresholds{
		NeedsAttentionDays: c.Tiers.NeedsAttentionDays,
		StaleDays:          c.Tiers.StaleDays,
		DireDays:           c.Tiers.DireDays,
	}
}

// RepoRefs parses Repos. Entries were checked by Validate.
func (c *Config) RepoRefs() []model.RepoRef {
	refs := make([]model.RepoRef, 0, len(c.Repos))
	for _, name := range c.Repos {
		ref, err := model.ParseRepoRef(name)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
