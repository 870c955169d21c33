package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Site      SiteConfig      `mapstructure:"site"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	History   HistoryConfig   `mapstructure:"history"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
}

// SiteConfig describes the remote catalog. The selectors are an external
// contract the site may change at any time.
type SiteConfig struct {
	BaseURL    string          `mapstructure:"base_url" validate:"required,url"`
	Variants   VariantsConfig  `mapstructure:"variants"`
	EpisodeTag string          `mapstructure:"episode_tag" validate:"required"`
	Selectors  SelectorsConfig `mapstructure:"selectors"`
}

// VariantsConfig maps the dubbed/subtitled choice to a URL path segment
type VariantsConfig struct {
	Dubbed    string `mapstructure:"dubbed" validate:"required"`
	Subtitled string `mapstructure:"subtitled" validate:"required"`
}

// SelectorsConfig holds the download page controls
type SelectorsConfig struct {
	Confirm       string `mapstructure:"confirm" validate:"required"`
	Reveal        string `mapstructure:"reveal" validate:"required"`
	DownloadLabel string `mapstructure:"download_label" validate:"required"`
}

// BrowserConfig holds headless browser settings
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless"`
	ExecPath        string   `mapstructure:"exec_path"`
	BlockAds        bool     `mapstructure:"block_ads"`
	BlockedPatterns []string `mapstructure:"blocked_patterns"`
}

// DownloadsConfig holds download settings
type DownloadsConfig struct {
	TempDir                  string `mapstructure:"temp_dir"`
	Extension                string `mapstructure:"extension" validate:"required,startswith=."`
	TriggerTimeoutMS         int    `mapstructure:"trigger_timeout_ms" validate:"gt=0"`
	ClickTimeoutSeconds      int    `mapstructure:"click_timeout_seconds" validate:"gt=0"`
	NavigationTimeoutSeconds int    `mapstructure:"navigation_timeout_seconds" validate:"gt=0"`
	MinFreeMB                int64  `mapstructure:"min_free_mb" validate:"gte=0"`
	RetentionHours           int    `mapstructure:"retention_hours" validate:"gte=0"`
}

// HistoryConfig holds the acquisition history store settings
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`

	App      LogLevelConfig `mapstructure:"app"`
	Database LogLevelConfig `mapstructure:"database"`
}

// LogLevelConfig represents log level configuration for a specific component
type LogLevelConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// APIConfig holds history API server settings
type APIConfig struct {
	Port           int      `mapstructure:"port" validate:"gte=0,lte=65535"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var (
	cfg      *Config
	validate = validator.New()
)

// Load reads configuration from .env, file and environment variables
func Load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env file: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.config/animedl")
	viper.AddConfigPath("/etc/animedl")

	setDefaults()

	viper.SetEnvPrefix("ANIMEDL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about; nested keys
	// without defaults have to be bound explicitly.
	viper.BindEnv("browser.exec_path")
	viper.BindEnv("downloads.temp_dir")
	viper.BindEnv("logging.app.level")
	viper.BindEnv("logging.database.level")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg = loaded
	return nil
}

// Get returns the current configuration, or the defaults when Load has not run
func Get() *Config {
	if cfg == nil {
		return Defaults()
	}
	return cfg
}

// Defaults returns a configuration populated only from built-in defaults
func Defaults() *Config {
	v := viper.New()
	applyDefaults(v)
	out := &Config{}
	_ = v.Unmarshal(out)
	return out
}

func setDefaults() {
	applyDefaults(viper.GetViper())
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "https://betteranime.net/anime")
	v.SetDefault("site.variants.dubbed", "dublado")
	v.SetDefault("site.variants.subtitled", "legendado")
	v.SetDefault("site.episode_tag", "h3")
	v.SetDefault("site.selectors.confirm", `a[class="btn btn-danger mb-2"]`)
	v.SetDefault("site.selectors.reveal", `button[class="mb-5 btn btn-warning"]`)
	v.SetDefault("site.selectors.download_label", "Baixar")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.block_ads", true)
	v.SetDefault("browser.blocked_patterns", []string{
		"*doubleclick.net*",
		"*googlesyndication.com*",
		"*google-analytics.com*",
		"*googletagmanager.com*",
		"*adservice.google.com*",
		"*popads.net*",
		"*popcash.net*",
		"*propellerads.com*",
		"*adsterra.com*",
		"*exoclick.com*",
		"*juicyads.com*",
		"*hotjar.com*",
	})

	v.SetDefault("downloads.extension", ".mp4")
	v.SetDefault("downloads.trigger_timeout_ms", 5000)
	v.SetDefault("downloads.click_timeout_seconds", 30)
	v.SetDefault("downloads.navigation_timeout_seconds", 60)
	v.SetDefault("downloads.min_free_mb", 0)
	v.SetDefault("downloads.retention_hours", 24)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.dsn", "animedl-history.db")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.allowed_origins", []string{})
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats := map[string]bool{"json": true, "text": true}

	if c.Logging.Format != "" && !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.App.Level != "" && !validLevels[c.Logging.App.Level] {
		return fmt.Errorf("logging.app.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Database.Level != "" && !validLevels[c.Logging.Database.Level] {
		return fmt.Errorf("logging.database.level must be one of: debug, info, warn, error")
	}

	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}

// GetAppLogLevel returns the log level for application logging
// Priority: logging.app.level → logging.level → "warn"
func (c *Config) GetAppLogLevel() string {
	if c.Logging.App.Level != "" {
		return c.Logging.App.Level
	}
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	return "warn"
}

// GetDatabaseLogLevel returns the log level for history store logging
// Priority: logging.database.level → logging.level → "warn"
func (c *Config) GetDatabaseLogLevel() string {
	if c.Logging.Database.Level != "" {
		return c.Logging.Database.Level
	}
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	return "warn"
}

// TriggerTimeout bounds the wait for the browser download event
func (d DownloadsConfig) TriggerTimeout() time.Duration {
	return time.Duration(d.TriggerTimeoutMS) * time.Millisecond
}

// ClickTimeout bounds each confirmation click on the download page
func (d DownloadsConfig) ClickTimeout() time.Duration {
	return time.Duration(d.ClickTimeoutSeconds) * time.Second
}

// NavigationTimeout bounds page loads
func (d DownloadsConfig) NavigationTimeout() time.Duration {
	return time.Duration(d.NavigationTimeoutSeconds) * time.Second
}

// MinFreeBytes returns the free space required before a run starts
func (d DownloadsConfig) MinFreeBytes() uint64 {
	if d.MinFreeMB <= 0 {
		return 0
	}
	return uint64(d.MinFreeMB) * 1024 * 1024
}
