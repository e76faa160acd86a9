// Package config loads histedit's configuration. The teacher loads a flat
// JSON file by hand; here that's generalized to viper so env vars
// (HISTEDIT_*), an optional config file, and defaults layer the same way
// the rest of the retrieval pack configures services.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds settings beyond what's carried on each ExportStack: log
// level, memoization cache sizes, a diff context window, and where the
// session store keeps its checkpoints. Of these, only LegalityCacheSize is
// read (by stack.NewCommitStackState); the other fields are loaded but no
// caller in this module reads them.
type Config struct {
	LogLevel          string `mapstructure:"log_level"`
	SessionDBPath     string `mapstructure:"session_db_path"`
	DepMapCacheSize   int    `mapstructure:"dep_map_cache_size"`
	LegalityCacheSize int    `mapstructure:"legality_cache_size"`
	DiffContextLines  int    `mapstructure:"diff_context_lines"`
}

func Defaults() Config {
	return Config{
		LogLevel:          "info",
		SessionDBPath:     ".histedit/session",
		DepMapCacheSize:   256,
		LegalityCacheSize: 512,
		DiffContextLines:  3,
	}
}

// Load builds a Config from (in increasing priority) built-in defaults, an
// optional config file at path, and HISTEDIT_-prefixed environment
// variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("session_db_path", d.SessionDBPath)
	v.SetDefault("dep_map_cache_size", d.DepMapCacheSize)
	v.SetDefault("legality_cache_size", d.LegalityCacheSize)
	v.SetDefault("diff_context_lines", d.DiffContextLines)

	v.SetEnvPrefix("HISTEDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}
