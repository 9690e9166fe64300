// Package config loads edgeboard configuration from file, environment,
// and defaults using viper.
//
// Precedence is the usual viper order: explicit flag bindings, then
// environment variables with the EDGEBOARD prefix, then the config
// file, then compiled-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/edgeboard/edgeboard/internal/images"
)

// Config holds the resolved configuration.
type Config struct {
	// Port the dashboard listens on.
	Port int `mapstructure:"port"`

	// DataDir holds the database, the drop-folder inbox, and the
	// default config file.
	DataDir string `mapstructure:"data_dir"`

	// LogFile, when set, routes serve/watch logs through a rotating
	// file instead of stderr.
	LogFile string `mapstructure:"log_file"`

	// Image holds the ingestion pipeline limits.
	Image ImageConfig `mapstructure:"image"`
}

// ImageConfig mirrors the pipeline options.
type ImageConfig struct {
	MaxBytes  int `mapstructure:"max_bytes"`
	MaxBatch  int `mapstructure:"max_batch"`
	BoxWidth  int `mapstructure:"box_width"`
	BoxHeight int `mapstructure:"box_height"`
	Quality   int `mapstructure:"quality"`
}

// DBPath returns the database file path under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "edgeboard.db")
}

// InboxDir returns the drop-folder inbox for the given setup.
func (c *Config) InboxDir(setupID string) string {
	return filepath.Join(c.DataDir, "inbox", setupID)
}

// PipelineOptions converts the image section to pipeline options.
func (c *Config) PipelineOptions() images.Options {
	return images.Options{
		MaxBytes:  c.Image.MaxBytes,
		MaxBatch:  c.Image.MaxBatch,
		BoxWidth:  c.Image.BoxWidth,
		BoxHeight: c.Image.BoxHeight,
		Quality:   c.Image.Quality,
	}
}

// DefaultDataDir returns ~/.edgeboard, falling back to the working
// directory when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".edgeboard"
	}
	return filepath.Join(home, ".edgeboard")
}

// New returns a viper instance with the edgeboard defaults and
// environment binding applied. Callers may bind flags onto it before
// Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("port", 8787)
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("log_file", "")
	v.SetDefault("image.max_bytes", images.DefaultMaxBytes)
	v.SetDefault("image.max_batch", images.DefaultMaxBatch)
	v.SetDefault("image.box_width", images.DefaultBoxWidth)
	v.SetDefault("image.box_height", images.DefaultBoxHeight)
	v.SetDefault("image.quality", images.DefaultQuality)

	v.SetEnvPrefix("EDGEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load resolves the configuration. When configFile is empty the
// default location <data_dir>/config.yaml is tried; a missing config
// file is not an error, an unreadable one is.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("data_dir"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
