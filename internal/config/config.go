// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Run() RunConfig
	Site() SiteConfig
	Recorder() RecorderConfig
	SetRunConfig(rc RunConfig)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserIgnoreTLSErrors(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	RunCfg      RunConfig      `mapstructure:"run" yaml:"run"`
	SiteCfg     SiteConfig     `mapstructure:"site" yaml:"site"`
	RecorderCfg RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
}

// --- Interface Method Implementations ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Run() RunConfig           { return c.RunCfg }
func (c *Config) Site() SiteConfig         { return c.SiteCfg }
func (c *Config) Recorder() RecorderConfig { return c.RecorderCfg }

func (c *Config) SetRunConfig(rc RunConfig)       { c.RunCfg = rc }
func (c *Config) SetBrowserHeadless(b bool)       { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserIgnoreTLSErrors(b bool) { c.BrowserCfg.IgnoreTLSErrors = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	StartupTimeout  time.Duration  `mapstructure:"startup_timeout" yaml:"startup_timeout"`
	UserAgent       string         `mapstructure:"user_agent" yaml:"user_agent"`
}

// RunConfig tunes the batch submission engine. BatchSize and Columns mirror
// the site's vote sheet layout and rarely need changing.
type RunConfig struct {
	BatchSize     int           `mapstructure:"batch_size" yaml:"batch_size"`
	Columns       int           `mapstructure:"columns" yaml:"columns"`
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	WaitAfter     time.Duration `mapstructure:"wait_after" yaml:"wait_after"`
	Retries       int           `mapstructure:"retries" yaml:"retries"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	BatchPause    time.Duration `mapstructure:"batch_pause" yaml:"batch_pause"`
	MaxNavHops    int           `mapstructure:"max_nav_hops" yaml:"max_nav_hops"`
	ActionsDir    string        `mapstructure:"actions_dir" yaml:"actions_dir"`
	// These get their marching orders from CLI flags, not the config file.
	InputFile  string `mapstructure:"-" yaml:"-"`
	DryRun     bool   `mapstructure:"-" yaml:"-"`
	Screenshot string `mapstructure:"-" yaml:"-"`
}

// SiteConfig names the recorded sequences the orchestrator replays at each
// page, plus the entry URL.
type SiteConfig struct {
	StartURL   string            `mapstructure:"start_url" yaml:"start_url"`
	Navigation map[string]string `mapstructure:"navigation" yaml:"navigation"`
	Submit     string            `mapstructure:"submit" yaml:"submit"`
	Confirm    string            `mapstructure:"confirm" yaml:"confirm"`
	NextBatch  string            `mapstructure:"next_batch" yaml:"next_batch"`
}

// RecorderConfig supplies the defaults stamped onto recorded steps.
type RecorderConfig struct {
	WaitAfter time.Duration `mapstructure:"wait_after" yaml:"wait_after"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries   int           `mapstructure:"retries" yaml:"retries"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formloop")
	v.SetDefault("logger.log_file", "formloop.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.startup_timeout", "30s")
	v.SetDefault("browser.viewport", map[string]int{"width": 1920, "height": 1080})

	// -- Run --
	v.SetDefault("run.batch_size", 10)
	v.SetDefault("run.columns", 13)
	v.SetDefault("run.action_timeout", "10s")
	v.SetDefault("run.wait_after", "1s")
	v.SetDefault("run.retries", 3)
	v.SetDefault("run.poll_interval", "250ms")
	v.SetDefault("run.batch_pause", "2s")
	v.SetDefault("run.max_nav_hops", 5)
	v.SetDefault("run.actions_dir", "actions")

	// -- Site --
	v.SetDefault("site.start_url", "https://www.toto-dream.com/toto/index.html")
	v.SetDefault("site.navigation", map[string]string{
		"round_select": "select_round",
		"cart":         "return_to_form",
	})
	v.SetDefault("site.submit", "submit_form")
	v.SetDefault("site.confirm", "")
	v.SetDefault("site.next_batch", "next_batch")

	// -- Recorder --
	v.SetDefault("recorder.wait_after", "1s")
	v.SetDefault("recorder.timeout", "10s")
	v.SetDefault("recorder.retries", 3)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.RunCfg.BatchSize <= 0 {
		return fmt.Errorf("run.batch_size must be a positive integer")
	}
	if c.RunCfg.Columns <= 0 {
		return fmt.Errorf("run.columns must be a positive integer")
	}
	if c.RunCfg.ActionTimeout <= 0 {
		return fmt.Errorf("run.action_timeout must be a positive duration")
	}
	if c.RunCfg.PollInterval <= 0 {
		return fmt.Errorf("run.poll_interval must be a positive duration")
	}
	if c.RunCfg.MaxNavHops <= 0 {
		return fmt.Errorf("run.max_nav_hops must be a positive integer")
	}
	if c.RunCfg.Retries < 0 {
		return fmt.Errorf("run.retries must not be negative")
	}
	if c.SiteCfg.StartURL == "" {
		return fmt.Errorf("site.start_url is a required configuration field")
	}
	if c.SiteCfg.Submit == "" {
		return fmt.Errorf("site.submit is a required configuration field")
	}
	return nil
}
