// Package config loads engine and shell settings from defaults, an optional
// zugzwang.yaml in the working directory, and ZUGZWANG_-prefixed environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	// Depth is the default search depth for the shell and the runner.
	Depth int `mapstructure:"depth"`
	// SelfPlayGames is the default batch size for the selfplay command.
	SelfPlayGames int `mapstructure:"selfplay-games"`
	// MemoryFraction caps a transposition table at this fraction of total
	// system memory. Zero disables the budget.
	MemoryFraction float64 `mapstructure:"memory-fraction"`
	// TableStorePath is the sqlite file used to persist a table across runs.
	TableStorePath string `mapstructure:"table-store-path"`
	Debug          bool   `mapstructure:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Depth:          9,
		SelfPlayGames:  10,
		MemoryFraction: 0.25,
		TableStorePath: "./zugzwang-table.db",
	}
}

// Load reads the configuration. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("depth", defaults.Depth)
	v.SetDefault("selfplay-games", defaults.SelfPlayGames)
	v.SetDefault("memory-fraction", defaults.MemoryFraction)
	v.SetDefault("table-store-path", defaults.TableStorePath)
	v.SetDefault("debug", false)

	v.SetEnvPrefix("zugzwang")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("zugzwang")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("read-config-file")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
