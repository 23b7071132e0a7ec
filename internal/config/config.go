package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/glad-clusters/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Cluster ClusterConfig `yaml:"cluster" mapstructure:"cluster"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Raster  RasterConfig  `yaml:"raster" mapstructure:"raster"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ClusterConfig holds the default clustering parameters. Flags and request
// files override them per run.
type ClusterConfig struct {
	Zoom       int     `yaml:"zoom" mapstructure:"zoom"`
	Width      float64 `yaml:"width" mapstructure:"width"`
	MinCount   int     `yaml:"min_count" mapstructure:"min_count"`
	Iterations int     `yaml:"iterations" mapstructure:"iterations"`
	Policy     string  `yaml:"policy" mapstructure:"policy"`
	Source     string  `yaml:"source" mapstructure:"source"`
	StartDate  string  `yaml:"start_date" mapstructure:"start_date"`
}

// BatchConfig sizes the tile worker pool.
type BatchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	BatchSize      int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxTiles       int `yaml:"max_tiles" mapstructure:"max_tiles"`
	MaxIterations  int `yaml:"max_iterations" mapstructure:"max_iterations"`
}

// RasterConfig selects and tunes the tile source.
type RasterConfig struct {
	// Source is one of dir, http or ftp.
	Source    string        `yaml:"source" mapstructure:"source"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	FTPURL    string        `yaml:"ftp_url" mapstructure:"ftp_url"`
	Format    string        `yaml:"format" mapstructure:"format"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst     int           `yaml:"burst" mapstructure:"burst"`

	Cache   CacheConfig                     `yaml:"cache" mapstructure:"cache"`
	Retry   resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	Breaker resilience.CircuitBreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// CacheConfig sizes the in-memory tile cache. MaxEntries 0 disables it.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// StoreConfig configures run history and the PostGIS export target.
type StoreConfig struct {
	SQLitePath   string  `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostGISURL   string  `yaml:"postgis_url" mapstructure:"postgis_url"`
	Schema       string  `yaml:"schema" mapstructure:"schema"`
	ConcaveRatio float64 `yaml:"concave_ratio" mapstructure:"concave_ratio"`
	MaxConns     int32   `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns     int32   `yaml:"min_conns" mapstructure:"min_conns"`
}

// ExportConfig controls the files written after a run.
type ExportConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
	Errors  bool     `yaml:"errors" mapstructure:"errors"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GLAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cluster.zoom", 12)
	v.SetDefault("cluster.width", 5.0)
	v.SetDefault("cluster.min_count", 25)
	v.SetDefault("cluster.iterations", 25)
	v.SetDefault("cluster.policy", "sequential-mutation")
	v.SetDefault("cluster.source", "glad")
	v.SetDefault("cluster.start_date", "2015-01-01")
	v.SetDefault("batch.max_concurrency", 200)
	v.SetDefault("batch.batch_size", 0)
	v.SetDefault("batch.max_tiles", 100000)
	v.SetDefault("batch.max_iterations", 1000)
	v.SetDefault("raster.source", "http")
	v.SetDefault("raster.base_url", "https://storage.googleapis.com/earthenginepartners-hansen/tiles/gfw/glad")
	v.SetDefault("raster.format", "png")
	v.SetDefault("raster.timeout", 30*time.Second)
	v.SetDefault("raster.rate_limit", 50.0)
	v.SetDefault("raster.burst", 10)
	v.SetDefault("raster.cache.max_entries", 1024)
	v.SetDefault("raster.cache.ttl", time.Hour)
	v.SetDefault("raster.retry.max_attempts", 3)
	v.SetDefault("raster.retry.initial_backoff", 250*time.Millisecond)
	v.SetDefault("raster.retry.max_backoff", 10*time.Second)
	v.SetDefault("raster.retry.multiplier", 2.0)
	v.SetDefault("raster.retry.jitter_fraction", 0.25)
	v.SetDefault("raster.breaker.failure_threshold", 10)
	v.SetDefault("raster.breaker.reset_timeout", 30*time.Second)
	v.SetDefault("store.sqlite_path", "glad-clusters.db")
	v.SetDefault("store.schema", "glad")
	v.SetDefault("store.concave_ratio", 0.99)
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("export.dir", "out")
	v.SetDefault("export.formats", []string{"csv"})
	v.SetDefault("export.errors", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})

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

// Validate checks the settings a command mode depends on. Modes are run,
// serve and export.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Batch.MaxConcurrency < 1 || c.Batch.MaxConcurrency > 1000 {
		errs = append(errs, "batch.max_concurrency must be between 1 and 1000")
	}
	if c.Batch.BatchSize < 0 {
		errs = append(errs, "batch.batch_size must be >= 0")
	}
	if c.Cluster.Width <= 0 {
		errs = append(errs, "cluster.width must be > 0")
	}
	if c.Cluster.MinCount < 1 {
		errs = append(errs, "cluster.min_count must be >= 1")
	}
	if c.Cluster.Iterations < 0 {
		errs = append(errs, "cluster.iterations must be >= 0")
	}
	if c.Batch.MaxTiles < 0 {
		errs = append(errs, "batch.max_tiles must be >= 0")
	}
	if c.Batch.MaxIterations < 0 {
		errs = append(errs, "batch.max_iterations must be >= 0")
	} else if c.Batch.MaxIterations > 0 && c.Cluster.Iterations > c.Batch.MaxIterations {
		errs = append(errs, "cluster.iterations must be <= batch.max_iterations")
	}

	switch mode {
	case "run":
		errs = append(errs, c.validateRaster()...)
	case "serve":
		errs = append(errs, c.validateRaster()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "export":
		if c.Store.PostGISURL == "" {
			errs = append(errs, "store.postgis_url is required")
		}
		if c.Store.ConcaveRatio < 0 || c.Store.ConcaveRatio > 1 {
			errs = append(errs, "store.concave_ratio must be between 0 and 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateRaster() []string {
	var errs []string
	switch c.Raster.Source {
	case "dir":
		if c.Raster.Dir == "" {
			errs = append(errs, "raster.dir is required for the dir source")
		}
	case "http":
		if c.Raster.BaseURL == "" {
			errs = append(errs, "raster.base_url is required for the http source")
		}
	case "ftp":
		if c.Raster.FTPURL == "" {
			errs = append(errs, "raster.ftp_url is required for the ftp source")
		}
	default:
		errs = append(errs, "raster.source must be one of dir, http, ftp")
	}
	if c.Raster.RateLimit < 0 {
		errs = append(errs, "raster.rate_limit must be >= 0")
	}
	return errs
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
