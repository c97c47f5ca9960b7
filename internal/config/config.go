package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/company-intel/internal/ratelimit"
	"github.com/sells-group/company-intel/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Scraper   ScraperConfig   `yaml:"scraper" mapstructure:"scraper"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina Search API settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// RateLimitConfig holds per-resource calls-per-minute ceilings.
type RateLimitConfig struct {
	LLMPerMinute    int `yaml:"llm_per_minute" mapstructure:"llm_per_minute"`
	SearchPerMinute int `yaml:"search_per_minute" mapstructure:"search_per_minute"`
	FetchPerMinute  int `yaml:"fetch_per_minute" mapstructure:"fetch_per_minute"`
}

// Ceilings converts the config into the limiter registry's input.
func (c RateLimitConfig) Ceilings() map[string]int {
	return map[string]int{
		ratelimit.ResourceLLM:    c.LLMPerMinute,
		ratelimit.ResourceSearch: c.SearchPerMinute,
		ratelimit.ResourceFetch:  c.FetchPerMinute,
	}
}

// RetryConfig holds retry executor settings.
type RetryConfig struct {
	MaxAttempts  int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMS  int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelaySecs int `yaml:"max_delay_secs" mapstructure:"max_delay_secs"`
}

// Policy converts the config into a retry policy.
func (c RetryConfig) Policy() resilience.Policy {
	p := resilience.DefaultPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelayMS > 0 {
		p.BaseDelay = time.Duration(c.BaseDelayMS) * time.Millisecond
	}
	if c.MaxDelaySecs > 0 {
		p.MaxDelay = time.Duration(c.MaxDelaySecs) * time.Second
	}
	return p
}

// ScraperConfig bounds the scraping workflow.
type ScraperConfig struct {
	MaxWebsiteAttempts int     `yaml:"max_website_attempts" mapstructure:"max_website_attempts"`
	MaxSearchAttempts  int     `yaml:"max_search_attempts" mapstructure:"max_search_attempts"`
	CompleteThreshold  float64 `yaml:"complete_threshold" mapstructure:"complete_threshold"`
	MaxLinksPerPage    int     `yaml:"max_links_per_page" mapstructure:"max_links_per_page"`
	SearchResults      int     `yaml:"search_results" mapstructure:"search_results"`
	FetchTimeoutSecs   int     `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MaxPageChars       int     `yaml:"max_page_chars" mapstructure:"max_page_chars"`
}

// FetchTimeout returns the fetch timeout as a duration.
func (c ScraperConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("jina.base_url", "https://s.jina.ai")
	v.SetDefault("rate_limit.llm_per_minute", 50)
	v.SetDefault("rate_limit.search_per_minute", 60)
	v.SetDefault("rate_limit.fetch_per_minute", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 500)
	v.SetDefault("retry.max_delay_secs", 30)
	v.SetDefault("scraper.max_website_attempts", 5)
	v.SetDefault("scraper.max_search_attempts", 5)
	v.SetDefault("scraper.complete_threshold", 0.7)
	v.SetDefault("scraper.max_links_per_page", 5)
	v.SetDefault("scraper.search_results", 3)
	v.SetDefault("scraper.fetch_timeout_secs", 15)
	v.SetDefault("scraper.max_page_chars", 12000)
	v.SetDefault("batch.max_concurrent_companies", 5)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "company-intel.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
