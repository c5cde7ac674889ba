// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProviderKind identifies which adapter implementation backs a provider entry.
type ProviderKind string

const (
	KindOllama    ProviderKind = "ollama"
	KindAnthropic ProviderKind = "anthropic"
	KindOpenAI    ProviderKind = "openai"
	KindGoogle    ProviderKind = "google"
)

// ProviderConfig describes one backing AI service. Loaded once at startup and
// read-only afterward; the router and adapters never mutate it.
type ProviderConfig struct {
	Name        string       `mapstructure:"name" yaml:"name"`
	Kind        ProviderKind `mapstructure:"kind" yaml:"kind"`
	Model       string       `mapstructure:"model" yaml:"model"`
	Endpoint    string       `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey      string       `mapstructure:"api_key" yaml:"api_key"`
	MaxRetries  int          `mapstructure:"max_retries" yaml:"max_retries"`
	BaseBackoff time.Duration `mapstructure:"base_backoff" yaml:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Enabled     bool         `mapstructure:"enabled" yaml:"enabled"`
}

// RoutingConfig maps each complexity tier to its ordered provider chain.
type RoutingConfig struct {
	Simple   []string `mapstructure:"simple" yaml:"simple"`
	Moderate []string `mapstructure:"moderate" yaml:"moderate"`
	Complex  []string `mapstructure:"complex" yaml:"complex"`
}

// EngineConfig tunes the clinical engines.
type EngineConfig struct {
	// MaxDiagnoses caps the differential list; 0 means unlimited.
	MaxDiagnoses int `mapstructure:"max_diagnoses" yaml:"max_diagnoses"`
	// StableSlopeThreshold is the |slope| below which a lab trend counts as stable.
	StableSlopeThreshold float64 `mapstructure:"stable_slope_threshold" yaml:"stable_slope_threshold"`
	Temperature          float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens            int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LoggerConfig controls the zap setup in internal/observability.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	Color       string `mapstructure:"color" yaml:"color"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes, per rotation
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// ServerConfig controls the REST layer.
type ServerConfig struct {
	Listen    string  `mapstructure:"listen" yaml:"listen"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests/second per client
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// DatabaseConfig points at the read-only patient record store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// Config is the full application configuration.
type Config struct {
	Logger    LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Providers []ProviderConfig `mapstructure:"providers" yaml:"providers"`
	Routing   RoutingConfig    `mapstructure:"routing" yaml:"routing"`
	Engine    EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Server    ServerConfig     `mapstructure:"server" yaml:"server"`
	Database  DatabaseConfig   `mapstructure:"database" yaml:"database"`
}

// setDefaults registers the defaults matching a local-first deployment:
// simple work stays on the local inference daemon, complex work walks the
// hosted chain and falls back to local.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "clinpilot")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)

	v.SetDefault("routing.simple", []string{"ollama"})
	v.SetDefault("routing.moderate", []string{"ollama", "openai-mini"})
	v.SetDefault("routing.complex", []string{"claude", "openai", "gemini", "ollama"})

	v.SetDefault("engine.max_diagnoses", 0)
	v.SetDefault("engine.stable_slope_threshold", 0.01)
	v.SetDefault("engine.temperature", 0.3)
	v.SetDefault("engine.max_tokens", 4096)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)
}

// Load reads the configuration from the given file (or the default search
// paths when empty), layers CLINPILOT_* environment variables on top, and
// validates the result.
func Load(cfgFile string) (*Config, error) {
	v := viper.GetViper()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("clinpilot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.clinpilot")
		v.AddConfigPath("/etc/clinpilot")
	}

	v.SetEnvPrefix("CLINPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults plus env carry us.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Chain returns the provider chain configured for a tier name. Unknown tier
// names return nil; Validate guarantees the three known tiers are populated.
func (r RoutingConfig) Chain(tier string) []string {
	switch tier {
	case "simple":
		return r.Simple
	case "moderate":
		return r.Moderate
	case "complex":
		return r.Complex
	}
	return nil
}
