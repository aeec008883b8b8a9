// Package config loads run settings for the horizon command line tools.
//
// Settings come from, in increasing precedence: defaults, HORIZON_*
// environment variables and explicitly set flags. The curriculum itself
// is a YAML file (see File).
package config

import (
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sky-flux/horizon"
	"github.com/sky-flux/horizon/internal/logging"
)

// EnvPrefix is prepended to environment variable names, e.g. HORIZON_DATA.
const EnvPrefix = "HORIZON"

// flagBindings maps viper keys to pflag names.
var flagBindings = map[string]string{
	"data":       "data",
	"curriculum": "curriculum",
	"log_level":  "log-level",
	"loss":       "loss",
	"seed":       "seed",
}

// Config holds resolved run settings.
type Config struct {
	DataPath       string
	CurriculumPath string
	LogLevel       string
	// Loss, when set, overrides the loss named in the curriculum file.
	Loss string
	Seed int64

	File *File
}

// Verbosity maps LogLevel to a logr verbosity.
func (c *Config) Verbosity() int {
	return logging.ParseLevel(strings.ToLower(c.LogLevel))
}

// BindFlags registers the flags read by Load on fs.
func BindFlags(fs *flag.FlagSet) {
	fs.String("data", "", "CSV file with observations")
	fs.String("curriculum", "", "YAML curriculum file")
	fs.String("log-level", "info", "log level: info, debug or trace")
	fs.String("loss", "", "override the curriculum loss (mse, sse, mae, huber)")
	fs.Int64("seed", 1, "seed for parameter initialization and mini-batches")
}

// Load resolves settings from flags and environment and, when a curriculum
// path is set, reads the curriculum file. fs may be nil.
func Load(fs *flag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault("data", "")
	v.SetDefault("curriculum", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("loss", "")
	v.SetDefault("seed", 1)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, name := range flagBindings {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("%w: bind flag %s: %w", horizon.ErrInvalidConfig, name, err)
				}
			}
		}
	}

	cfg := &Config{
		DataPath:       v.GetString("data"),
		CurriculumPath: v.GetString("curriculum"),
		LogLevel:       v.GetString("log_level"),
		Loss:           v.GetString("loss"),
		Seed:           v.GetInt64("seed"),
	}

	if cfg.CurriculumPath != "" {
		f, err := ReadFile(cfg.CurriculumPath)
		if err != nil {
			return nil, err
		}
		cfg.File = f
	}
	cfg.override(cfg.File)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FileOr returns the curriculum file read by Load, or def when no
// curriculum path was set. Flag and environment overrides apply to either.
func (c *Config) FileOr(def *File) *File {
	if c.File != nil {
		return c.File
	}
	c.override(def)
	return def
}

func (c *Config) override(f *File) {
	if f != nil && c.Loss != "" {
		f.Loss = LossSpec{Name: c.Loss}
	}
}

// Validate checks the resolved settings.
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.LogLevel) {
	case "", "info", "debug", "trace":
	default:
		return fmt.Errorf("%w: unknown log level %q", horizon.ErrInvalidConfig, cfg.LogLevel)
	}
	if cfg.Loss != "" {
		if _, err := horizon.LossByName(cfg.Loss); err != nil {
			return err
		}
	}
	if cfg.File != nil {
		if _, err := cfg.File.Curriculum(); err != nil {
			return err
		}
		if _, err := cfg.File.Method(); err != nil {
			return err
		}
	}
	return nil
}
