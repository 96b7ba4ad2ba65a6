// Package config loads and validates sitecat configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingSecret reports a required credential that is not set.
var ErrMissingSecret = errors.New("config: missing secret")

// Browser drivers.
const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
	DriverStatic     = "static"
)

// Store backends.
const (
	StoreSheets   = "sheets"
	StoreCSV      = "csv"
	StorePostgres = "postgres"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
)

// Config captures all knobs loaded via Viper.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Navigation NavigationConfig `mapstructure:"navigation"`
	Popup      PopupConfig      `mapstructure:"popup"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Store      StoreConfig      `mapstructure:"store"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Events     EventsConfig     `mapstructure:"events"`
	Report     ReportConfig     `mapstructure:"report"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// BrowserConfig selects and tunes the page driver.
type BrowserConfig struct {
	Driver           string        `mapstructure:"driver"`
	Engine           string        `mapstructure:"engine"`
	UserAgent        string        `mapstructure:"user_agent"`
	ExecPath         string        `mapstructure:"exec_path"`
	BlockedResources []string      `mapstructure:"blocked_resources"`
	IdleWindow       time.Duration `mapstructure:"idle_window"`
	StaticTimeout    time.Duration `mapstructure:"static_timeout"`
}

// NavigationConfig controls page-load retries.
type NavigationConfig struct {
	Retries             int           `mapstructure:"retries"`
	Delay               time.Duration `mapstructure:"delay"`
	AttemptTimeout      time.Duration `mapstructure:"attempt_timeout"`
	FirstAttemptTimeout time.Duration `mapstructure:"first_attempt_timeout"`
}

// PopupConfig bounds each dismissal step.
type PopupConfig struct {
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

// ExtractorConfig tunes metadata extraction.
type ExtractorConfig struct {
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MaxWords       int           `mapstructure:"max_words"`
	DetectLanguage bool          `mapstructure:"detect_language"`
}

// LLMConfig selects the completion backend.
type LLMConfig struct {
	Provider        string `mapstructure:"provider"`
	Model           string `mapstructure:"model"`
	BaseURL         string `mapstructure:"base_url"`
	APIKey          string `mapstructure:"api_key"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key"`
}

// Key returns the credential for the configured provider. api_key wins
// over the provider-specific variables.
func (c LLMConfig) Key() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.Provider {
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderOllama:
		return ""
	default:
		return c.OpenAIAPIKey
	}
}

// CacheConfig enables the Redis completion cache.
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// StoreConfig selects the tabular backend.
type StoreConfig struct {
	Backend         string        `mapstructure:"backend"`
	SheetID         string        `mapstructure:"sheet_id"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	Worksheet       string        `mapstructure:"worksheet"`
	CSVPath         string        `mapstructure:"csv_path"`
	DatabaseURL     string        `mapstructure:"database_url"`
	Table           string        `mapstructure:"table"`
	WriteAttempts   int           `mapstructure:"write_attempts"`
	WriteDelay      time.Duration `mapstructure:"write_delay"`
	WritesPerSecond float64       `mapstructure:"writes_per_second"`
}

// PricingConfig holds per-token rates used in the run summary.
type PricingConfig struct {
	InputPerToken  float64 `mapstructure:"input_per_token"`
	OutputPerToken float64 `mapstructure:"output_per_token"`
}

// EventsConfig routes per-row events.
type EventsConfig struct {
	MemoryCapacity int    `mapstructure:"memory_capacity"`
	PubSubProject  string `mapstructure:"pubsub_project"`
	PubSubTopic    string `mapstructure:"pubsub_topic"`
}

// ReportConfig picks summary sinks.
type ReportConfig struct {
	Stdout    bool   `mapstructure:"stdout"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// secretEnv binds well-known unprefixed variables.
var secretEnv = map[string]string{
	"llm.openai_api_key":     "OPENAI_API_KEY",
	"llm.anthropic_api_key":  "ANTHROPIC_API_KEY",
	"llm.gemini_api_key":     "GEMINI_API_KEY",
	"store.sheet_id":         "GOOGLE_SHEET_ID",
	"store.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
	"store.database_url":     "DATABASE_URL",
	"cache.redis_addr":       "REDIS_ADDR",
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITECAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, env := range secretEnv {
		prefixed := "SITECAT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.engine", "webkit")
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (compatible; sitecat/1.0)")
	v.SetDefault("browser.blocked_resources", []string{"image", "font", "media"})
	v.SetDefault("browser.idle_window", 500*time.Millisecond)
	v.SetDefault("browser.static_timeout", 30*time.Second)
	v.SetDefault("navigation.retries", 3)
	v.SetDefault("navigation.delay", 5*time.Second)
	v.SetDefault("navigation.attempt_timeout", 60*time.Second)
	v.SetDefault("navigation.first_attempt_timeout", 30*time.Second)
	v.SetDefault("popup.step_timeout", 5*time.Second)
	v.SetDefault("extractor.idle_timeout", 30*time.Second)
	v.SetDefault("extractor.read_timeout", 30*time.Second)
	v.SetDefault("extractor.max_words", 500)
	v.SetDefault("extractor.detect_language", false)
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "gpt-4")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", 720*time.Hour)
	v.SetDefault("store.backend", StoreSheets)
	v.SetDefault("store.table", "sites")
	v.SetDefault("store.write_attempts", 3)
	v.SetDefault("store.write_delay", 3*time.Second)
	v.SetDefault("store.writes_per_second", 0.0)
	v.SetDefault("pricing.input_per_token", 0.00003)
	v.SetDefault("pricing.output_per_token", 0.00006)
	v.SetDefault("events.memory_capacity", 1000)
	v.SetDefault("report.stdout", true)
	v.SetDefault("report.gcs_prefix", "sitecat/runs")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Browser.Driver {
	case DriverChromedp, DriverPlaywright, DriverStatic:
	default:
		return fmt.Errorf("browser.driver must be one of chromedp, playwright, static; got %q", c.Browser.Driver)
	}
	if c.Navigation.Retries <= 0 {
		return fmt.Errorf("navigation.retries must be > 0")
	}
	if c.Navigation.AttemptTimeout <= 0 {
		return fmt.Errorf("navigation.attempt_timeout must be > 0")
	}
	if c.Extractor.MaxWords <= 0 {
		return fmt.Errorf("extractor.max_words must be > 0")
	}
	if c.Store.WriteAttempts <= 0 {
		return fmt.Errorf("store.write_attempts must be > 0")
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr must be set when the cache is enabled")
	}
	if c.Events.PubSubTopic != "" && c.Events.PubSubProject == "" {
		return fmt.Errorf("events.pubsub_project must be set with events.pubsub_topic")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		if c.LLM.Key() == "" {
			return fmt.Errorf("%w: api key for llm provider %s", ErrMissingSecret, c.LLM.Provider)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}

	return nil
}

// Validate checks the settings of the selected backend. Only commands that
// open the store call it.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case StoreSheets:
		if c.SheetID == "" {
			return fmt.Errorf("%w: GOOGLE_SHEET_ID", ErrMissingSecret)
		}
		if c.CredentialsFile == "" {
			return fmt.Errorf("%w: GOOGLE_APPLICATION_CREDENTIALS", ErrMissingSecret)
		}
	case StoreCSV:
		if c.CSVPath == "" {
			return fmt.Errorf("store.csv_path must be set for the csv backend")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL", ErrMissingSecret)
		}
	default:
		return fmt.Errorf("store.backend %q is not supported", c.Backend)
	}
	return nil
}
