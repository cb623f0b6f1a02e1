// Package config holds the runtime configuration of the backup tool.
package config

import (
	"fmt"
	"time"

	"site-backup/internal/backup"
	"site-backup/internal/logging"
)

// Default paths and settings. Every one of them is overridable through the
// config file, environment variables, or CLI flags.
const (
	DefaultRootDir  = "/var/www"
	DefaultNginxDir = "/etc/nginx/sites-available"
	DefaultDestDir  = "/var/backups/sites"
	DefaultMarker   = "wp-config.php"
	DefaultTimeout  = 10 * time.Minute
)

// Config is the resolved runtime configuration
type Config struct {
	// RootDir is the installations root; each subdirectory carrying the
	// marker file is a candidate site.
	RootDir string `mapstructure:"root_dir"`
	// NginxDir is the conventional location of per-site virtual host files.
	NginxDir string `mapstructure:"nginx_dir"`
	// DestDir is the backup destination directory.
	DestDir string `mapstructure:"dest_dir"`
	// Marker is the configuration file name that qualifies a directory as
	// a site.
	Marker string `mapstructure:"marker"`
	// Timeout bounds each external process invocation.
	Timeout time.Duration `mapstructure:"timeout"`
	// Compression selects the dump compression algorithm.
	Compression backup.CompressionType `mapstructure:"compression"`
	// CompressionLevel is the algorithm-specific level; 0 means default.
	CompressionLevel int `mapstructure:"compression_level"`
	// SelectAll skips the interactive prompt and backs up every site.
	SelectAll bool `mapstructure:"select_all"`

	LogLevel     logging.LogLevel `mapstructure:"log_level"`
	LogFile      string           `mapstructure:"log_file"`
	ColorEnabled bool             `mapstructure:"color_enabled"`
}

// SetDefaults fills in zero-valued fields with the defaults
func (c *Config) SetDefaults() {
	if c.RootDir == "" {
		c.RootDir = DefaultRootDir
	}
	if c.NginxDir == "" {
		c.NginxDir = DefaultNginxDir
	}
	if c.DestDir == "" {
		c.DestDir = DefaultDestDir
	}
	if c.Marker == "" {
		c.Marker = DefaultMarker
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Compression == "" {
		c.Compression = backup.CompressionTypeGzip
	}
	if c.LogLevel == "" {
		c.LogLevel = logging.LogLevelNormal
	}
}

// Validate checks the configuration for invalid combinations
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("root directory is required")
	}
	if c.DestDir == "" {
		return fmt.Errorf("destination directory is required")
	}
	if c.Marker == "" {
		return fmt.Errorf("configuration file marker is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}

	switch c.Compression {
	case backup.CompressionTypeNone, backup.CompressionTypeGzip, backup.CompressionTypeZstd, backup.CompressionTypeLZ4:
	default:
		return fmt.Errorf("invalid compression algorithm %q, must be one of: none, gzip, zstd, lz4", c.Compression)
	}

	switch c.LogLevel {
	case logging.LogLevelQuiet, logging.LogLevelNormal, logging.LogLevelVerbose, logging.LogLevelDebug:
	default:
		return fmt.Errorf("invalid log level %q, must be one of: quiet, normal, verbose, debug", c.LogLevel)
	}

	return nil
}
