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
	Raster   RasterConfig   `yaml:"raster" mapstructure:"raster"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// RasterConfig locates the input rasters. PathTemplate may contain the
// {resolution} and {year} placeholders.
type RasterConfig struct {
	PathTemplate string   `yaml:"path_template" mapstructure:"path_template"`
	Resolutions  []string `yaml:"resolutions" mapstructure:"resolutions"`
	YearStart    int      `yaml:"year_start" mapstructure:"year_start"`
	YearEnd      int      `yaml:"year_end" mapstructure:"year_end"`
	// NoData overrides the sentinel declared by the file when set.
	NoData *float64 `yaml:"nodata" mapstructure:"nodata"`
}

// AnalysisConfig configures the neighbor graph.
type AnalysisConfig struct {
	K         int    `yaml:"k" mapstructure:"k"`
	Strategy  string `yaml:"strategy" mapstructure:"strategy"`
	Workers   int    `yaml:"workers" mapstructure:"workers"`
	BlockSize int    `yaml:"block_size" mapstructure:"block_size"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentRasters int `yaml:"max_concurrent_rasters" mapstructure:"max_concurrent_rasters"`
}

// StoreConfig configures run history persistence.
type StoreConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	// ConnectAttempts bounds how often opening the store is tried when the
	// database reports a transient error.
	ConnectAttempts int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// ReportConfig configures the report written after a run. An empty Output
// means stdout.
type ReportConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
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
	v.SetEnvPrefix("SARMORAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("raster.nodata")

	// Defaults
	v.SetDefault("raster.path_template", "")
	v.SetDefault("raster.resolutions", []string{})
	v.SetDefault("raster.year_start", 0)
	v.SetDefault("raster.year_end", 0)
	v.SetDefault("analysis.k", 4)
	v.SetDefault("analysis.strategy", "exhaustive")
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("analysis.block_size", 256)
	v.SetDefault("batch.max_concurrent_rasters", 2)
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "sarmoran.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.connect_attempts", 3)
	v.SetDefault("report.format", "table")
	v.SetDefault("report.output", "")
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

// Validate checks the settings every command depends on. Plan settings
// (template, years) are checked by ValidatePlan since only analyze needs them.
func (c *Config) Validate() error {
	if c.Analysis.K <= 0 {
		return eris.Errorf("config: analysis.k must be positive, got %d", c.Analysis.K)
	}
	switch c.Analysis.Strategy {
	case "exhaustive", "kdtree":
	default:
		return eris.Errorf("config: unknown analysis.strategy %q (want exhaustive or kdtree)", c.Analysis.Strategy)
	}
	if c.Analysis.Workers < 0 {
		return eris.Errorf("config: analysis.workers must not be negative, got %d", c.Analysis.Workers)
	}
	if c.Batch.MaxConcurrentRasters < 1 {
		return eris.Errorf("config: batch.max_concurrent_rasters must be at least 1, got %d", c.Batch.MaxConcurrentRasters)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store.driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.Enabled && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required when the store is enabled")
	}
	switch c.Report.Format {
	case "table", "json", "yaml", "xlsx":
	default:
		return eris.Errorf("config: unknown report.format %q", c.Report.Format)
	}
	if c.Report.Format == "xlsx" && c.Report.Output == "" {
		return eris.New("config: report.output is required for xlsx reports")
	}
	return nil
}

// ValidatePlan checks the raster plan used by the analyze command.
func (c *Config) ValidatePlan() error {
	if c.Raster.PathTemplate == "" {
		return eris.New("config: raster.path_template is required")
	}
	if len(c.Raster.Resolutions) == 0 {
		return eris.New("config: raster.resolutions must name at least one resolution")
	}
	if c.Raster.YearStart == 0 || c.Raster.YearEnd == 0 {
		return eris.New("config: raster.year_start and raster.year_end are required")
	}
	if c.Raster.YearEnd < c.Raster.YearStart {
		return eris.Errorf("config: year range %d-%d is inverted", c.Raster.YearStart, c.Raster.YearEnd)
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
