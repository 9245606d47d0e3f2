// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/inview/pkg/inview"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Static() StaticConfig
	Query() QueryConfig
	Runner() RunnerConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserUserAgent(string)

	// Runner Setters
	SetRunnerConcurrency(int)

	// Query Setters
	SetQuery(QueryConfig)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	StaticCfg  StaticConfig  `mapstructure:"static" yaml:"static"`
	QueryCfg   QueryConfig   `mapstructure:"query" yaml:"query"`
	RunnerCfg  RunnerConfig  `mapstructure:"runner" yaml:"runner"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Static() StaticConfig   { return c.StaticCfg }
func (c *Config) Query() QueryConfig     { return c.QueryCfg }
func (c *Config) Runner() RunnerConfig   { return c.RunnerCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)     { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserUserAgent(ua string) { c.BrowserCfg.UserAgent = ua }
func (c *Config) SetRunnerConcurrency(n int)    { c.RunnerCfg.Concurrency = n }
func (c *Config) SetQuery(q QueryConfig)        { c.QueryCfg = q }

type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig drives the headless Chrome host used for URL sources.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// StaticConfig drives the offline document host used for HTML files.
type StaticConfig struct {
	ViewportWidth  int     `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int     `mapstructure:"viewport_height" yaml:"viewport_height"`
	ScrollbarWidth float64 `mapstructure:"scrollbar_width" yaml:"scrollbar_width"`
	UserAgent      string  `mapstructure:"user_agent" yaml:"user_agent"`
	// BodyScrollReportsDocument emulates engines whose body scroll size reports
	// the document.
	BodyScrollReportsDocument bool `mapstructure:"body_scroll_reports_document" yaml:"body_scroll_reports_document"`
}

// QueryConfig holds the default visibility query options.
type QueryConfig struct {
	Partially     bool   `mapstructure:"partially" yaml:"partially"`
	ExcludeHidden bool   `mapstructure:"exclude_hidden" yaml:"exclude_hidden"`
	Direction     string `mapstructure:"direction" yaml:"direction"`
	Box           string `mapstructure:"box" yaml:"box"`
	Tolerance     string `mapstructure:"tolerance" yaml:"tolerance"`
}

// Options converts the configured defaults into query options.
func (q QueryConfig) Options() (*inview.Options, error) {
	opts := &inview.Options{
		Partially:     q.Partially,
		ExcludeHidden: q.ExcludeHidden,
		Direction:     inview.Axis(q.Direction),
		Box:           inview.BoxModel(q.Box),
	}
	if q.Tolerance != "" {
		tol, err := inview.ParseTolerance(q.Tolerance)
		if err != nil {
			return nil, err
		}
		opts.Tolerance = tol
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// RunnerConfig bounds the batch runner.
type RunnerConfig struct {
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	LoadsPerSecond float64       `mapstructure:"loads_per_second" yaml:"loads_per_second"`
	Burst          int           `mapstructure:"burst" yaml:"burst"`
	JobTimeout     time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
}

func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "inview")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 800)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.post_load_wait", "250ms")

	// -- Static host --
	v.SetDefault("static.viewport_width", 1280)
	v.SetDefault("static.viewport_height", 800)
	v.SetDefault("static.scrollbar_width", 15)
	v.SetDefault("static.body_scroll_reports_document", false)

	// -- Query defaults --
	v.SetDefault("query.partially", false)
	v.SetDefault("query.exclude_hidden", false)
	v.SetDefault("query.direction", string(inview.Both))
	v.SetDefault("query.box", string(inview.BorderBox))
	v.SetDefault("query.tolerance", "0")

	// -- Runner --
	v.SetDefault("runner.concurrency", 4)
	v.SetDefault("runner.loads_per_second", 2.0)
	v.SetDefault("runner.burst", 4)
	v.SetDefault("runner.job_timeout", "2m")
}

// EnvPrefix prefixes environment overrides, e.g. INVIEW_RUNNER_CONCURRENCY.
const EnvPrefix = "INVIEW"

// BindEnv lets environment variables override every key that has a default.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	var err error
	if cfg.LoggerCfg.LogFile, err = homedir.Expand(cfg.LoggerCfg.LogFile); err != nil {
		return nil, fmt.Errorf("expanding logger.log_file: %w", err)
	}
	if cfg.BrowserCfg.ExecPath, err = homedir.Expand(cfg.BrowserCfg.ExecPath); err != nil {
		return nil, fmt.Errorf("expanding browser.exec_path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.RunnerCfg.Concurrency <= 0 {
		return fmt.Errorf("runner.concurrency must be a positive integer")
	}
	if c.RunnerCfg.LoadsPerSecond < 0 {
		return fmt.Errorf("runner.loads_per_second must not be negative")
	}
	if c.RunnerCfg.LoadsPerSecond > 0 && c.RunnerCfg.Burst <= 0 {
		return fmt.Errorf("runner.burst must be a positive integer when loads are rate limited")
	}
	if c.BrowserCfg.ViewportWidth <= 0 || c.BrowserCfg.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive, got %dx%d", c.BrowserCfg.ViewportWidth, c.BrowserCfg.ViewportHeight)
	}
	if err := c.StaticCfg.Validate(); err != nil {
		return fmt.Errorf("static configuration invalid: %w", err)
	}
	if _, err := c.QueryCfg.Options(); err != nil {
		return fmt.Errorf("query configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the static host settings.
func (s *StaticConfig) Validate() error {
	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", s.ViewportWidth, s.ViewportHeight)
	}
	if s.ScrollbarWidth < 0 {
		return fmt.Errorf("scrollbar_width must not be negative")
	}
	return nil
}
