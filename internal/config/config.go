// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Answers() AnswersConfig
	Cache() CacheConfig
	Database() DatabaseConfig
	Browser() BrowserConfig
	Autofill() AutofillConfig
	Service() ServiceConfig

	// Answers Setters
	SetAnswersBaseURL(string)
	SetAnswersAPIKey(string)
	SetAnswersSessionID(string)

	// Autofill Setters
	SetAutofillAutoAdvance(bool)

	// Browser Setters
	SetBrowserHeadless(bool)
}

// Config holds the entire application configuration.
// Fields are exported so viper can decode into them; callers go through the getters.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	AnswersCfg  AnswersConfig  `mapstructure:"answers" yaml:"answers"`
	CacheCfg    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	AutofillCfg AutofillConfig `mapstructure:"autofill" yaml:"autofill"`
	ServiceCfg  ServiceConfig  `mapstructure:"service" yaml:"service"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Answers() AnswersConfig   { return c.AnswersCfg }
func (c *Config) Cache() CacheConfig       { return c.CacheCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Autofill() AutofillConfig { return c.AutofillCfg }
func (c *Config) Service() ServiceConfig   { return c.ServiceCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetAnswersBaseURL(s string)   { c.AnswersCfg.BaseURL = s }
func (c *Config) SetAnswersAPIKey(s string)    { c.AnswersCfg.APIKey = s }
func (c *Config) SetAnswersSessionID(s string) { c.AnswersCfg.SessionID = s }
func (c *Config) SetAutofillAutoAdvance(b bool) {
	c.AutofillCfg.AutoAdvance = b
}
func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }

// LoggerConfig holds all the configuration for the logger.
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

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Source strategies accepted by answers.source.
const (
	SourceAuto     = "auto"
	SourceREST     = "rest"
	SourceStatic   = "static"
	SourceS3       = "s3"
	SourcePackaged = "packaged"
	SourceCache    = "cache"
)

// AnswersConfig configures where questionnaire answers come from.
type AnswersConfig struct {
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey          string        `mapstructure:"api_key" yaml:"-"`
	SessionID       string        `mapstructure:"session_id" yaml:"session_id"`
	Source          string        `mapstructure:"source" yaml:"source"`
	PackagedPath    string        `mapstructure:"packaged_path" yaml:"packaged_path"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	MaxRetryElapsed time.Duration `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
}

// Cache drivers accepted by cache.driver.
const (
	CacheDriverSQLite   = "sqlite"
	CacheDriverPostgres = "postgres"
	CacheDriverNone     = "none"
)

// CacheConfig selects the persisted answer cache.
type CacheConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// BrowserConfig holds settings for the controlled Chrome instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	UserDataDir       string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// DelayConfig holds the named waits used by the page progression controller.
type DelayConfig struct {
	DOMContentLoaded time.Duration `mapstructure:"dom_content_loaded" yaml:"dom_content_loaded"`
	Load             time.Duration `mapstructure:"load" yaml:"load"`
	ReadyState       time.Duration `mapstructure:"ready_state" yaml:"ready_state"`
	Mutation         time.Duration `mapstructure:"mutation" yaml:"mutation"`
	ScrollSettle     time.Duration `mapstructure:"scroll_settle" yaml:"scroll_settle"`
	PostClickSettle  time.Duration `mapstructure:"post_click_settle" yaml:"post_click_settle"`
	StablePoll       time.Duration `mapstructure:"stable_poll" yaml:"stable_poll"`
	StableTimeout    time.Duration `mapstructure:"stable_timeout" yaml:"stable_timeout"`
	StatusDuration   time.Duration `mapstructure:"status_duration" yaml:"status_duration"`
}

// EventsConfig lists the DOM events dispatched after each kind of write.
type EventsConfig struct {
	Select []string `mapstructure:"select" yaml:"select"`
	Text   []string `mapstructure:"text" yaml:"text"`
	Choice []string `mapstructure:"choice" yaml:"choice"`
}

// ProfileConfig overrides the event profile for pages served from Host.
type ProfileConfig struct {
	Host   string       `mapstructure:"host" yaml:"host"`
	Events EventsConfig `mapstructure:"events" yaml:"events"`
}

// AutofillConfig tunes the fill engine and the page progression controller.
type AutofillConfig struct {
	AutoAdvance     bool            `mapstructure:"auto_advance" yaml:"auto_advance"`
	KeepPunctuation string          `mapstructure:"keep_punctuation" yaml:"keep_punctuation"`
	Delays          DelayConfig     `mapstructure:"delays" yaml:"delays"`
	Events          EventsConfig    `mapstructure:"events" yaml:"events"`
	Profiles        []ProfileConfig `mapstructure:"profiles" yaml:"profiles"`
}

// ServiceConfig configures the local HTTP API.
type ServiceConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
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
	v.SetDefault("logger.service_name", "visa-autofill")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Answers --
	v.SetDefault("answers.base_url", "")
	v.SetDefault("answers.source", SourceAuto)
	v.SetDefault("answers.packaged_path", "questionnaire_answers.json")
	v.SetDefault("answers.timeout", "15s")
	v.SetDefault("answers.refresh_interval", "5m")
	v.SetDefault("answers.max_retry_elapsed", "20s")

	// -- Cache --
	v.SetDefault("cache.driver", CacheDriverSQLite)
	v.SetDefault("cache.path", "~/.autofill/answers.db")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_data_dir", "~/.autofill/chrome")
	v.SetDefault("browser.navigation_timeout", "60s")

	// -- Autofill --
	v.SetDefault("autofill.auto_advance", true)
	v.SetDefault("autofill.keep_punctuation", "")
	v.SetDefault("autofill.delays.dom_content_loaded", "1000ms")
	v.SetDefault("autofill.delays.load", "1500ms")
	v.SetDefault("autofill.delays.ready_state", "500ms")
	v.SetDefault("autofill.delays.mutation", "800ms")
	v.SetDefault("autofill.delays.scroll_settle", "500ms")
	v.SetDefault("autofill.delays.post_click_settle", "1000ms")
	v.SetDefault("autofill.delays.stable_poll", "250ms")
	v.SetDefault("autofill.delays.stable_timeout", "3s")
	v.SetDefault("autofill.delays.status_duration", "4s")
	v.SetDefault("autofill.events.select", []string{"input", "change", "blur", "update"})
	v.SetDefault("autofill.events.text", []string{"input", "change"})
	v.SetDefault("autofill.events.choice", []string{"change"})

	// -- Service --
	v.SetDefault("service.listen_addr", "127.0.0.1:8765")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("answers.api_key", "AUTOFILL_API_KEY")
	v.BindEnv("database.url", "AUTOFILL_DATABASE_URL")

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
	if err := c.AnswersCfg.Validate(); err != nil {
		return fmt.Errorf("answers configuration invalid: %w", err)
	}
	switch c.CacheCfg.Driver {
	case CacheDriverSQLite, CacheDriverNone:
	case CacheDriverPostgres:
		if c.DatabaseCfg.URL == "" {
			return fmt.Errorf("database.url is required when cache.driver is postgres")
		}
	default:
		return fmt.Errorf("cache.driver must be one of sqlite, postgres, none")
	}
	if err := c.AutofillCfg.Delays.Validate(); err != nil {
		return fmt.Errorf("autofill.delays configuration invalid: %w", err)
	}
	for i, p := range c.AutofillCfg.Profiles {
		if strings.TrimSpace(p.Host) == "" {
			return fmt.Errorf("autofill.profiles[%d].host is required", i)
		}
	}
	return nil
}

// Validate checks the answers source settings.
func (a *AnswersConfig) Validate() error {
	switch a.Source {
	case SourceAuto, SourceREST, SourceStatic, SourceS3, SourcePackaged, SourceCache:
	default:
		return fmt.Errorf("source must be one of auto, rest, static, s3, packaged, cache")
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	if a.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must not be negative")
	}
	if a.MaxRetryElapsed < 0 {
		return fmt.Errorf("max_retry_elapsed must not be negative")
	}
	return nil
}

// Validate checks the DelayConfig settings.
func (d *DelayConfig) Validate() error {
	if d.DOMContentLoaded < 0 || d.Load < 0 || d.ReadyState < 0 || d.Mutation < 0 {
		return fmt.Errorf("trigger delays must not be negative")
	}
	if d.ScrollSettle < 0 || d.PostClickSettle < 0 {
		return fmt.Errorf("settle delays must not be negative")
	}
	if d.StablePoll <= 0 {
		return fmt.Errorf("stable_poll must be a positive duration")
	}
	if d.StableTimeout < d.StablePoll {
		return fmt.Errorf("stable_timeout must be at least stable_poll")
	}
	return nil
}

// EventsFor returns the event profile configured for host, falling back to the default events.
func (a AutofillConfig) EventsFor(host string) EventsConfig {
	host = strings.ToLower(host)
	for _, p := range a.Profiles {
		h := strings.ToLower(p.Host)
		if host == h || strings.HasSuffix(host, "."+h) {
			return mergeEvents(p.Events, a.Events)
		}
	}
	return a.Events
}

func mergeEvents(override, base EventsConfig) EventsConfig {
	out := base
	if len(override.Select) > 0 {
		out.Select = override.Select
	}
	if len(override.Text) > 0 {
		out.Text = override.Text
	}
	if len(override.Choice) > 0 {
		out.Choice = override.Choice
	}
	return out
}
