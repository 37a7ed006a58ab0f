package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears every TREESYNC_ variable for the test and restores it
// afterwards, so variables loaded from .env files do not leak.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"TREESYNC_DATABASE", "TREESYNC_BASE_PATH", "TREESYNC_LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return t.TempDir()
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(Options{EnvFiles: []string{}, SearchPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, DefaultBasePath, cfg.BasePath)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_ConfigFileSearch(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "treesync.yaml"), "database: model.db\nlog_level: DEBUG\n")

	cfg, err := Load(Options{EnvFiles: []string{}, SearchPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "model.db", cfg.Database)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultBasePath, cfg.BasePath)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoad_ExplicitConfigFileMustExist(t *testing.T) {
	dir := isolate(t)

	_, err := Load(Options{EnvFiles: []string{}, ConfigFile: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	cfgFile := writeFile(t, filepath.Join(dir, "cfg.yaml"),
		"database: file.db\nbase_path: /file\nlog_level: error\n")
	envFile := writeFile(t, filepath.Join(dir, ".env"),
		"TREESYNC_DATABASE=dotenv.db\nTREESYNC_BASE_PATH=/dotenv\n")
	t.Setenv("TREESYNC_DATABASE", "env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "", "")
	flags.String("base", DefaultBasePath, "")
	require.NoError(t, flags.Parse([]string{"--db", "flag.db"}))

	cfg, err := Load(Options{
		ConfigFile: cfgFile,
		EnvFiles:   []string{envFile},
		Flags:      flags,
		FlagNames:  map[string]string{"db": KeyDatabase, "base": KeyBasePath},
	})
	require.NoError(t, err)

	// flag > env > .env > file
	assert.Equal(t, "flag.db", cfg.Database)
	assert.Equal(t, "/dotenv", cfg.BasePath, "unset flag does not override .env")
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_EnvFileOrder(t *testing.T) {
	dir := isolate(t)
	local := writeFile(t, filepath.Join(dir, ".env.local"), "TREESYNC_DATABASE=local.db\n")
	shared := writeFile(t, filepath.Join(dir, ".env"), "TREESYNC_DATABASE=shared.db\nTREESYNC_LOG_LEVEL=warn\n")

	cfg, err := Load(Options{EnvFiles: []string{local, shared}, SearchPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "local.db", cfg.Database)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_UnknownFlag(t *testing.T) {
	dir := isolate(t)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)

	_, err := Load(Options{
		EnvFiles:    []string{},
		SearchPaths: []string{dir},
		Flags:       flags,
		FlagNames:   map[string]string{"nope": KeyDatabase},
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Database: "a.db", BasePath: "/1", LogLevel: "info"}, false},
		{"empty database", Config{BasePath: "/1", LogLevel: "info"}, true},
		{"relative base", Config{Database: "a.db", BasePath: "1", LogLevel: "info"}, true},
		{"bad level", Config{Database: "a.db", BasePath: "/1", LogLevel: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)

	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "bogus"}).SlogLevel())
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
}
