// The application's root configuration: logger, browser and resolver settings.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	instance *Config
	once     sync.Once
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Resolver ResolverConfig `mapstructure:"resolver"`
}

// ColorConfig defines the color settings for different log levels.
// These are used for console output to make logs more readable.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" json:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" json:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" json:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" json:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" json:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" json:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" json:"fatal" yaml:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
// This is the single source of truth for this struct.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" json:"level" yaml:"level"`
	Format      string      `mapstructure:"format" json:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors" yaml:"colors"`
}

// BrowserConfig holds settings for the headless browser.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors"`
	UserAgent       string   `mapstructure:"user_agent"`
	Args            []string `mapstructure:"args"`
}

// ResolverConfig holds every knob of the resolution state machine.
//
// The heuristic thresholds (anchor length, marker substrings, countdown
// selectors) are empirical values observed against real interstitial sites.
// They are configuration, not hard intent, so they can be tuned per target.
type ResolverConfig struct {
	MaxSteps              int           `mapstructure:"max_steps"`
	PageLoadTimeout       time.Duration `mapstructure:"page_load_timeout"`
	CountdownTimeout      time.Duration `mapstructure:"countdown_timeout"`
	CountdownPollInterval time.Duration `mapstructure:"countdown_poll_interval"`
	ActionTimeout         time.Duration `mapstructure:"action_timeout"`
	FallbackActionTimeout time.Duration `mapstructure:"fallback_action_timeout"`
	SettleDelay           time.Duration `mapstructure:"settle_delay"`
	MinAnchorLength       int           `mapstructure:"min_anchor_length"`
	FinalLinkMarkers      []string      `mapstructure:"final_link_markers"`
	FollowMarkers         []string      `mapstructure:"follow_markers"`
	FollowTexts           []string      `mapstructure:"follow_texts"`
}

// SetDefaults seeds Viper with the default values so the app can run with a
// minimal (or absent) config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "linkresolve")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)

	v.SetDefault("resolver.max_steps", 12)
	v.SetDefault("resolver.page_load_timeout", 30*time.Second)
	v.SetDefault("resolver.countdown_timeout", 20*time.Second)
	v.SetDefault("resolver.countdown_poll_interval", time.Second)
	v.SetDefault("resolver.action_timeout", 2*time.Second)
	v.SetDefault("resolver.fallback_action_timeout", time.Second)
	v.SetDefault("resolver.settle_delay", 1500*time.Millisecond)
	v.SetDefault("resolver.min_anchor_length", 20)
	v.SetDefault("resolver.final_link_markers", []string{"telegram", "t.me"})
	v.SetDefault("resolver.follow_markers", []string{"/readmore", "continue"})
	v.SetDefault("resolver.follow_texts", []string{"continue", "read more", "get link", "get-link"})
}

// Validate checks the configuration for values that would make a run
// impossible or nonsensical.
func (c *Config) Validate() error {
	if c.Resolver.MaxSteps <= 0 {
		return fmt.Errorf("resolver.max_steps must be positive, got %d", c.Resolver.MaxSteps)
	}
	if c.Resolver.CountdownPollInterval <= 0 {
		return fmt.Errorf("resolver.countdown_poll_interval must be positive, got %v", c.Resolver.CountdownPollInterval)
	}
	if c.Resolver.CountdownTimeout < c.Resolver.CountdownPollInterval {
		return fmt.Errorf("resolver.countdown_timeout (%v) must not be shorter than the poll interval (%v)",
			c.Resolver.CountdownTimeout, c.Resolver.CountdownPollInterval)
	}
	if c.Resolver.MinAnchorLength < 0 {
		return fmt.Errorf("resolver.min_anchor_length must not be negative, got %d", c.Resolver.MinAnchorLength)
	}
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logger.format must be 'console' or 'json', got %q", c.Logger.Format)
	}
	return nil
}

// Load initializes the configuration singleton from Viper.
func Load(v *viper.Viper) error {
	var loadErr error
	once.Do(func() {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			loadErr = fmt.Errorf("error unmarshaling config: %w", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			loadErr = err
			return
		}
		instance = &cfg
	})
	return loadErr
}

// Get returns the loaded configuration instance.
func Get() *Config {
	if instance == nil {
		panic("Configuration not initialized. Call config.Load() in the root command.")
	}
	return instance
}

// Set stores a configuration instance directly. Intended for tests and for
// callers that assemble a Config programmatically instead of through Viper.
func Set(cfg *Config) {
	instance = cfg
}
