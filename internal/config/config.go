// Package config binds the flags shared by every crashfs subcommand through
// viper, following the teacher's cfg.BindFlags/cmd/root.go initConfig
// pattern: pflag registers the flag, viper.BindPFlag makes it overridable by
// an optional YAML config file, and Load unmarshals the result into a
// typed Config via mapstructure.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/crashfs/crashfs/internal/logger"
)

// Config holds the flags every crashfs subcommand shares.
type Config struct {
	Dir       string `mapstructure:"dir"`
	LogFormat string `mapstructure:"log-format"`
	LogLevel  string `mapstructure:"log-level"`
}

// BindFlags registers the shared persistent flags on flagSet and binds each
// to its viper key, so a config file value or a flag value can supply it.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.StringP("dir", "C", ".", "Working directory containing base and changes.")
	if err := viper.BindPFlag("dir", flagSet.Lookup("dir")); err != nil {
		return err
	}

	flagSet.String("log-format", "text", "Log format: text or json.")
	if err := viper.BindPFlag("log-format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.String("log-level", "info", "Log level: off, error, warning, info, debug, or trace.")
	if err := viper.BindPFlag("log-level", flagSet.Lookup("log-level")); err != nil {
		return err
	}

	return nil
}

// ReadConfigFile loads a YAML config file at path into viper, to be merged
// under flag values by a later Load.
func ReadConfigFile(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

// Load unmarshals the bound flags (and any config file read by
// ReadConfigFile) into a Config.
func Load() (Config, error) {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return c, nil
}

// Severity parses LogLevel into a logger.Severity.
func (c Config) Severity() (logger.Severity, error) {
	switch strings.ToLower(c.LogLevel) {
	case "off":
		return logger.OFF, nil
	case "error":
		return logger.ERROR, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "info":
		return logger.INFO, nil
	case "debug":
		return logger.DEBUG, nil
	case "trace":
		return logger.TRACE, nil
	default:
		return logger.OFF, fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
}
