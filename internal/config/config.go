// Package config handles configuration loading and defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default values.
const (
	DefaultDataDir    = "."
	DefaultTheme      = "classic"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultListenAddr = "localhost:8080"
)

// appDirName is the per-user state directory under the home directory.
const appDirName = ".todolist"

// Config holds the full configuration for todolist.
type Config struct {
	// Paths
	DataDir  string `toml:"data_dir"`  // directory holding todos.json
	SeedFile string `toml:"seed_file"` // optional JSON document used to seed an empty collection

	// Appearance
	Theme string `toml:"theme"` // classic, neon, mono

	// Logging
	LogLevel  string `toml:"log_level"`  // debug, info, warn, error
	LogFormat string `toml:"log_format"` // text, json, logfmt

	// Serve mode
	ListenAddr string `toml:"listen_addr"`
}

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.todolist/config.toml)
// 3. Project config file (todolist.toml)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	setDefaults(cfg)

	for _, path := range configFiles() {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return cfg, nil
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.DataDir = DefaultDataDir
	cfg.SeedFile = ""
	cfg.Theme = DefaultTheme
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.ListenAddr = DefaultListenAddr
}

// AppDir returns the per-user state directory (~/.todolist).
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, appDirName), nil
}

// configFiles returns the config files to load, lowest priority first.
// Missing files are skipped.
func configFiles() []string {
	var paths []string
	if dir, err := AppDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "config.toml"))
	}
	paths = append(paths, "todolist.toml", ".todolist.toml")

	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	return existing
}

// loadConfigFile loads TOML config from the given file.
func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// loadFromEnv overrides config from environment variables.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TODOLIST_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TODOLIST_SEED_FILE"); v != "" {
		cfg.SeedFile = v
	}
	if v := os.Getenv("TODOLIST_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("TODOLIST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TODOLIST_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TODOLIST_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
}

// parseFlags defines and parses CLI flags.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	if fs == nil {
		fs = flag.NewFlagSet("todolist", flag.ContinueOnError)
	}

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory holding todos.json")
	fs.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "JSON document used to seed an empty collection")
	fs.StringVar(&cfg.Theme, "theme", cfg.Theme, "Color theme (classic|neon|mono)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug|info|warn|error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text|json|logfmt)")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Listen address for serve mode")

	return fs.Parse(args)
}

// finalizeConfig expands and validates paths.
func finalizeConfig(cfg *Config) error {
	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.SeedFile = expandPath(cfg.SeedFile)

	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if !filepath.IsAbs(cfg.DataDir) {
		abs, err := filepath.Abs(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("resolving data dir: %w", err)
		}
		cfg.DataDir = abs
	}
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	if p == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return home
	}
	return p
}
