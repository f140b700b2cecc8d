// Package config loads engine configuration from the environment and an
// optional config file via viper.
package config

import (
	"strings"

	"github.com/spf13/viper"

	ierr "github.com/gridcost/gridcost/internal/errors"
)

// Configuration holds all tunable settings for the tariff engine.
type Configuration struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Tariffs TariffsConfig `mapstructure:"tariffs"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type CacheConfig struct {
	Type string `mapstructure:"type"`
}

type TariffsConfig struct {
	// MaxBackdateDays bounds how far a DCC tariff start date may be pulled
	// back to the meter's first reading date. Gaps larger than this are
	// left for default tariffs unless the meter carries an explicit
	// backdate attribute.
	MaxBackdateDays int `mapstructure:"max_backdate_days"`
}

// NewConfiguration reads configuration from ./config/config.yaml (if
// present) and GRIDCOST_* environment variables.
func NewConfiguration() (*Configuration, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("gridcost")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read config file").
				Mark(ierr.ErrSystem)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrSystem)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("cache.type", "inmemory")
	v.SetDefault("tariffs.max_backdate_days", 30)
}

// GetDefaultConfig returns the built-in defaults without touching the
// filesystem or environment. Used by tests and the package-level logger.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Logging: LoggingConfig{Level: "info"},
		Cache:   CacheConfig{Type: "inmemory"},
		Tariffs: TariffsConfig{MaxBackdateDays: 30},
	}
}
