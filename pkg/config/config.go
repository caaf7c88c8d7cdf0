package config

import (
	"time"

	"github.com/sdejongh/dirlisting/pkg/listing"
	"github.com/sdejongh/dirlisting/pkg/listsource"
	"github.com/sdejongh/dirlisting/pkg/logging"
	"github.com/sdejongh/dirlisting/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Listing ListingConfig `yaml:"listing"`
	Search  SearchConfig  `yaml:"search"`
	Share   ShareConfig   `yaml:"share"`
	Sources SourcesConfig `yaml:"sources"`
	Metrics MetricsConfig `yaml:"metrics"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ListingConfig holds the behaviour switches of loaded listings
type ListingConfig struct {
	Nick            string        `yaml:"nick"`
	UseADL          bool          `yaml:"use_adl"`
	DupesInFilelist bool          `yaml:"dupes_in_filelist"`
	SkipZeroByte    bool          `yaml:"skip_zero_byte"`
	SkipSubtractKiB int64         `yaml:"skip_subtract_kib"`
	LanMode         bool          `yaml:"lan_mode"`
	FilterDebounce  time.Duration `yaml:"filter_debounce"`
	AckPollInterval time.Duration `yaml:"ack_poll_interval"`
}

// SearchConfig holds search limits and timeouts
type SearchConfig struct {
	NoResultTimeout time.Duration `yaml:"no_result_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	LocalResultCap  int           `yaml:"local_result_cap"`
	ShareResultCap  int           `yaml:"share_result_cap"`
}

// ShareConfig locates the share index
type ShareConfig struct {
	Database string `yaml:"database"` // SQLite file, empty disables the share
	RealRoot string `yaml:"real_root"`
}

// SourcesConfig holds the settings of remote listing sources
type SourcesConfig struct {
	MaxBandwidth int64    `yaml:"max_bandwidth"` // bytes per second, 0 = unlimited
	S3           S3Config `yaml:"s3"`
}

// S3Config holds the S3 compatible store listings are fetched from
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json" or "console"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = stderr)
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	s := listing.DefaultSettings()
	return &Config{
		Listing: ListingConfig{
			UseADL:          s.UseADL,
			DupesInFilelist: s.DupesInFilelist,
			SkipZeroByte:    s.SkipZeroByte,
			SkipSubtractKiB: s.SkipSubtractKiB,
			FilterDebounce:  s.FilterDebounce,
			AckPollInterval: s.AckPollInterval,
		},
		Search: SearchConfig{
			NoResultTimeout: s.NoResultTimeout,
			IdleTimeout:     s.IdleTimeout,
			TickInterval:    time.Second,
			LocalResultCap:  s.LocalResultCap,
			ShareResultCap:  s.ShareResultCap,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Format:  "console",
			Level:   "warn",
			File:    "",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Listing.SkipSubtractKiB < 0 {
		return &models.ValidationError{
			Field:   "listing.skip_subtract_kib",
			Message: "must not be negative",
		}
	}

	durations := []struct {
		field string
		value time.Duration
	}{
		{"listing.filter_debounce", c.Listing.FilterDebounce},
		{"listing.ack_poll_interval", c.Listing.AckPollInterval},
		{"search.no_result_timeout", c.Search.NoResultTimeout},
		{"search.idle_timeout", c.Search.IdleTimeout},
		{"search.tick_interval", c.Search.TickInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return &models.ValidationError{Field: d.field, Message: "must be a positive duration"}
		}
	}

	if c.Search.LocalResultCap < 1 {
		return &models.ValidationError{
			Field:   "search.local_result_cap",
			Message: "must be at least 1",
		}
	}
	if c.Search.ShareResultCap < 1 {
		return &models.ValidationError{
			Field:   "search.share_result_cap",
			Message: "must be at least 1",
		}
	}

	if c.Sources.MaxBandwidth < 0 {
		return &models.ValidationError{
			Field:   "sources.max_bandwidth",
			Message: "must not be negative",
		}
	}
	if c.Sources.S3.Enabled && c.Sources.S3.AccessKey != "" && c.Sources.S3.SecretKey == "" {
		return &models.ValidationError{
			Field:   "sources.s3.secret_key",
			Message: "is required with an access key",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "console": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'console'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

// ListingSettings converts the listing and search sections
func (c *Config) ListingSettings() listing.Settings {
	return listing.Settings{
		UseADL:          c.Listing.UseADL,
		DupesInFilelist: c.Listing.DupesInFilelist,
		SkipZeroByte:    c.Listing.SkipZeroByte,
		SkipSubtractKiB: c.Listing.SkipSubtractKiB,
		LanMode:         c.Listing.LanMode,
		Nick:            c.Listing.Nick,
		AckPollInterval: c.Listing.AckPollInterval,
		FilterDebounce:  c.Listing.FilterDebounce,
		NoResultTimeout: c.Search.NoResultTimeout,
		IdleTimeout:     c.Search.IdleTimeout,
		LocalResultCap:  c.Search.LocalResultCap,
		ShareResultCap:  c.Search.ShareResultCap,
	}
}

// S3 converts the S3 source section
func (c *Config) S3() listsource.S3Config {
	s := c.Sources.S3
	return listsource.S3Config{
		Endpoint:  s.Endpoint,
		Region:    s.Region,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		PathStyle: s.PathStyle,
	}
}

// LoggerConfig converts the logging section
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		Format:     logging.Format(c.Logging.Format),
		OutputPath: c.Logging.File,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
	}
}
