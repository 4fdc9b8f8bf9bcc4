package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Apify    ApifyConfig    `yaml:"apify" mapstructure:"apify"`
	Download DownloadConfig `yaml:"download" mapstructure:"download"`
	Merge    MergeConfig    `yaml:"merge" mapstructure:"merge"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ApifyConfig holds Apify API settings and the actor used per source.
type ApifyConfig struct {
	Token            string       `yaml:"token" mapstructure:"token"`
	BaseURL          string       `yaml:"base_url" mapstructure:"base_url"`
	PollIntervalSecs int          `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	PollTimeoutSecs  int          `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
	PageSize         int          `yaml:"page_size" mapstructure:"page_size"`
	Actors           ActorsConfig `yaml:"actors" mapstructure:"actors"`
	Limits           LimitsConfig `yaml:"limits" mapstructure:"limits"`
}

// ActorsConfig maps each source to the actor that scrapes it.
type ActorsConfig struct {
	Instagram    string `yaml:"instagram" mapstructure:"instagram"`
	Facebook     string `yaml:"facebook" mapstructure:"facebook"`
	TikTok       string `yaml:"tiktok" mapstructure:"tiktok"`
	GoogleMaps   string `yaml:"google_maps" mapstructure:"google_maps"`
	Website      string `yaml:"website" mapstructure:"website"`
	GoogleSearch string `yaml:"google_search" mapstructure:"google_search"`
}

// LimitsConfig bounds how much each actor scrapes.
type LimitsConfig struct {
	InstagramPosts      int `yaml:"instagram_posts" mapstructure:"instagram_posts"`
	FacebookPosts       int `yaml:"facebook_posts" mapstructure:"facebook_posts"`
	TikTokVideos        int `yaml:"tiktok_videos" mapstructure:"tiktok_videos"`
	GoogleMapsPlaces    int `yaml:"google_maps_places" mapstructure:"google_maps_places"`
	WebsiteMaxDepth     int `yaml:"website_max_depth" mapstructure:"website_max_depth"`
	WebsitePages        int `yaml:"website_pages" mapstructure:"website_pages"`
	GoogleSearchResults int `yaml:"google_search_results" mapstructure:"google_search_results"`
}

// DownloadConfig configures media downloads.
type DownloadConfig struct {
	Concurrency   int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	MaxBytes      int64   `yaml:"max_bytes" mapstructure:"max_bytes"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// MergeConfig configures archive merging.
type MergeConfig struct {
	MaxPages int `yaml:"max_pages" mapstructure:"max_pages"`
}

// PipelineConfig configures run behavior.
type PipelineConfig struct {
	MaxMediaPerSource  int  `yaml:"max_media_per_source" mapstructure:"max_media_per_source"`
	IsolateJobFailures bool `yaml:"isolate_job_failures" mapstructure:"isolate_job_failures"`
}

// StoreConfig configures where run outputs are persisted.
type StoreConfig struct {
	Driver      string    `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string    `yaml:"database_url" mapstructure:"database_url"`
	Namespace   string    `yaml:"namespace" mapstructure:"namespace"`
	MaxConns    int32     `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32     `yaml:"min_conns" mapstructure:"min_conns"`
	FTP         FTPConfig `yaml:"ftp" mapstructure:"ftp"`
}

// FTPConfig configures the ftp store driver.
type FTPConfig struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Root        string `yaml:"root" mapstructure:"root"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (optional) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path and environment. An empty path
// falls back to an optional ./config.yaml; a named file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("BRANDMEDIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("apify.token", "")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.poll_interval_secs", 2)
	v.SetDefault("apify.poll_timeout_secs", 1800)
	v.SetDefault("apify.page_size", 1000)
	v.SetDefault("apify.actors.instagram", "apify/instagram-scraper")
	v.SetDefault("apify.actors.facebook", "apify/facebook-posts-scraper")
	v.SetDefault("apify.actors.tiktok", "clockworks/tiktok-scraper")
	v.SetDefault("apify.actors.google_maps", "compass/crawler-google-places")
	v.SetDefault("apify.actors.website", "apify/website-content-crawler")
	v.SetDefault("apify.actors.google_search", "apify/google-search-scraper")
	v.SetDefault("apify.limits.instagram_posts", 100)
	v.SetDefault("apify.limits.facebook_posts", 100)
	v.SetDefault("apify.limits.tiktok_videos", 100)
	v.SetDefault("apify.limits.google_maps_places", 1)
	v.SetDefault("apify.limits.website_max_depth", 2)
	v.SetDefault("apify.limits.website_pages", 50)
	v.SetDefault("apify.limits.google_search_results", 20)
	v.SetDefault("download.concurrency", 4)
	v.SetDefault("download.timeout_secs", 60)
	v.SetDefault("download.rate_per_second", 5.0)
	v.SetDefault("download.max_bytes", 200<<20)
	v.SetDefault("download.user_agent", "brand-media/1.0")
	v.SetDefault("merge.max_pages", 1000)
	v.SetDefault("pipeline.max_media_per_source", 0)
	v.SetDefault("pipeline.isolate_job_failures", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "brand-media.db")
	v.SetDefault("store.namespace", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.ftp.addr", "")
	v.SetDefault("store.ftp.user", "")
	v.SetDefault("store.ftp.password", "")
	v.SetDefault("store.ftp.root", "/brand-media")
	v.SetDefault("store.ftp.timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
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

// Validate checks the settings a command needs. mode is "run", "serve" or
// "result".
func (c *Config) Validate(mode string) error {
	var problems []string
	need := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "run", "serve":
		need(c.Apify.Token != "", "apify.token is required")
		need(c.Download.Concurrency > 0, "download.concurrency must be positive")
	}
	if mode == "serve" {
		need(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be between 1 and 65535")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		need(c.Store.DatabaseURL != "", "store.database_url is required")
	case "ftp":
		need(c.Store.FTP.Addr != "", "store.ftp.addr is required")
	case "apify":
		if mode == "result" {
			need(c.Apify.Token != "", "apify.token is required")
		}
	default:
		problems = append(problems, "store.driver must be one of sqlite, postgres, ftp, apify")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
