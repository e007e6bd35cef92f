package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Ledger     LedgerConfig     `yaml:"ledger" mapstructure:"ledger"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Venue      VenueConfig      `yaml:"venue" mapstructure:"venue"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LedgerConfig locates the master ledger and run summaries.
type LedgerConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	RunsDir string `yaml:"runs_dir" mapstructure:"runs_dir"`
}

// CacheConfig selects the enrichment cache backend.
type CacheConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Dir    string `yaml:"dir" mapstructure:"dir"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EnrichConfig configures the enrichment collaborators.
type EnrichConfig struct {
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxContentLength  int     `yaml:"max_content_length" mapstructure:"max_content_length"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// VenueConfig is the home venue distances are measured from.
type VenueConfig struct {
	Name      string  `yaml:"name" mapstructure:"name"`
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude"`
	Longitude float64 `yaml:"longitude" mapstructure:"longitude"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// ServerConfig configures the lookup API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("RETREAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ledger.dir", "data/ledger")
	v.SetDefault("ledger.runs_dir", "data/runs")
	v.SetDefault("cache.driver", "jsonfile")
	v.SetDefault("cache.dir", "data/cache")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2000)
	v.SetDefault("enrich.concurrency", 5)
	v.SetDefault("enrich.requests_per_second", 2.0)
	v.SetDefault("enrich.timeout_secs", 15)
	v.SetDefault("enrich.max_content_length", 4000)
	v.SetDefault("enrich.user_agent", "Mozilla/5.0 (compatible; retreat-leads/1.0)")
	v.SetDefault("venue.name", "Surfbreak PXM")
	v.SetDefault("venue.latitude", 15.8427193)
	v.SetDefault("venue.longitude", -97.0480236)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Unmarshal only sees env vars for keys viper already knows about.
	for _, key := range []string{
		"google.key", "anthropic.key", "notion.token", "notion.lead_db",
		"salesforce.client_id", "salesforce.username", "salesforce.key_path",
	} {
		v.SetDefault(key, "")
	}

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

// Validate checks the settings a command mode depends on and reports every
// problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(val, key string) {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, key+" is required")
		}
	}

	switch mode {
	case "ingest", "analyze", "lookup":
		require(c.Ledger.Dir, "ledger.dir")
	case "enrich":
		require(c.Ledger.Dir, "ledger.dir")
		require(c.Cache.Dir, "cache.dir")
		if c.Cache.Driver != "jsonfile" && c.Cache.Driver != "sqlite" {
			errs = append(errs, fmt.Sprintf("cache.driver %q must be jsonfile or sqlite", c.Cache.Driver))
		}
		if c.Enrich.Concurrency < 1 || c.Enrich.Concurrency > 50 {
			errs = append(errs, "enrich.concurrency must be between 1 and 50")
		}
		if c.Enrich.RequestsPerSecond <= 0 {
			errs = append(errs, "enrich.requests_per_second must be > 0")
		}
	case "places":
		require(c.Google.Key, "google.key")
	case "classify":
		require(c.Anthropic.Key, "anthropic.key")
	case "notion":
		require(c.Notion.Token, "notion.token")
		require(c.Notion.LeadDB, "notion.lead_db")
	case "salesforce":
		require(c.Salesforce.ClientID, "salesforce.client_id")
		require(c.Salesforce.Username, "salesforce.username")
		require(c.Salesforce.KeyPath, "salesforce.key_path")
	case "serve":
		require(c.Ledger.Dir, "ledger.dir")
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
