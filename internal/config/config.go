// Package config loads yololbl settings from an optional YAML file and YOLOLBL_* environment
// variables.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/sensorable/yololbl"
)

// EnvPrefix is the prefix of environment variables that override configuration keys.
const EnvPrefix = "YOLOLBL"

// Config holds the settings shared by all yololbl commands.
type Config struct {
	Encoding    string `mapstructure:"encoding"`     // Text encoding of annotation and class files.
	ClassesFile string `mapstructure:"classes_file"` // Predefined class list, optional.
	Debug       bool   `mapstructure:"debug"`
}

// Default returns the configuration used when no file or environment override is present.
func Default() Config {
	return Config{
		Encoding: yololbl.DefaultEncoding,
	}
}

// Load reads the configuration. An empty path skips the config file; environment variables are
// always consulted.
func Load(path string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("encoding", def.Encoding)
	v.SetDefault("classes_file", def.ClassesFile)
	v.SetDefault("debug", def.Debug)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %q: %v", path, err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the configured encoding is known.
func (c Config) Validate() error {
	if _, err := yololbl.LookupEncoding(c.Encoding); err != nil {
		return fmt.Errorf("invalid encoding setting: %v", err)
	}
	return nil
}
