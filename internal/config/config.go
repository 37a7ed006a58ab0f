// Package config loads treesync settings.
//
// Sources, highest precedence first:
//  1. Command-line flags bound with Options.Flags (only when set)
//  2. Environment variables (TREESYNC_DATABASE, TREESYNC_BASE_PATH, ...)
//  3. .env files (.env.local, then .env)
//  4. A YAML config file (--config, or treesync.yaml in the working directory)
//  5. Defaults
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TREESYNC"

// Keys.
const (
	KeyDatabase = "database"
	KeyBasePath = "base_path"
	KeyLogLevel = "log_level"
)

// Defaults.
const (
	DefaultDatabase = "treesync.db"
	DefaultBasePath = "/1"
	DefaultLogLevel = "info"
)

// Config holds the resolved settings.
type Config struct {
	// Database is the SQLite file the store opens.
	Database string

	// BasePath is the store path of the node new children derive from.
	BasePath string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an explicit config file. It must exist when set.
	ConfigFile string

	// EnvFiles are loaded in order; a variable set by an earlier file or by
	// the process environment is not overridden. Defaults to .env.local, .env.
	EnvFiles []string

	// SearchPaths are directories searched for treesync.yaml when ConfigFile
	// is empty. Defaults to the working directory.
	SearchPaths []string

	// Flags maps flag names to keys (e.g. "db" -> KeyDatabase). A flag only
	// takes precedence when it was set on the command line.
	Flags     *pflag.FlagSet
	FlagNames map[string]string
}

// Load resolves a Config from every source.
func Load(opts Options) (*Config, error) {
	loadEnvFiles(opts.EnvFiles)

	v := viper.New()
	v.SetDefault(KeyDatabase, DefaultDatabase)
	v.SetDefault(KeyBasePath, DefaultBasePath)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for flag, key := range opts.FlagNames {
			f := opts.Flags.Lookup(flag)
			if f == nil {
				return nil, fmt.Errorf("bind flag %q: no such flag", flag)
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %q: %w", flag, err)
			}
		}
	}

	if err := readConfigFile(v, opts); err != nil {
		return nil, err
	}

	cfg := &Config{
		Database:   v.GetString(KeyDatabase),
		BasePath:   v.GetString(KeyBasePath),
		LogLevel:   strings.ToLower(v.GetString(KeyLogLevel)),
		ConfigFile: v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Database == "" {
		return errors.New("config: database must not be empty")
	}
	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("config: base_path %q must be an absolute store path", c.BasePath)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SlogLevel returns the configured log level. An invalid level yields info.
func (c *Config) SlogLevel() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

func readConfigFile(v *viper.Viper, opts Options) error {
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
		return nil
	}

	paths := opts.SearchPaths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("treesync")
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// loadEnvFiles loads variables from .env files. Missing files are skipped.
func loadEnvFiles(files []string) {
	if files == nil {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}
