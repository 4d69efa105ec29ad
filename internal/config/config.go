// Package config provides configuration for the storyboard agent.
// Defaults are overridden first by an optional YAML file in the data
// directory, then by environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort     = 8797
	DefaultLogLevel = "info"
	DefaultDataDir  = ".unistory"
	DefaultLocale   = "zh"

	// Environment variable names
	EnvPort        = "STORYBOARD_PORT"
	EnvLogLevel    = "STORYBOARD_LOG_LEVEL"
	EnvDataDir     = "STORYBOARD_DATA_DIR"
	EnvLocale      = "STORYBOARD_LOCALE"
	EnvFFmpegPath  = "STORYBOARD_FFMPEG"
	EnvFFprobePath = "STORYBOARD_FFPROBE"
	EnvHeadless    = "STORYBOARD_HEADLESS"

	// Filenames under the data directory
	DBFilename   = "storyboard.db"
	FileFilename = "config.yaml"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportDir() string
	Locale() string
	FFmpegPath() string
	FFprobePath() string
	Headless() bool
}

// fileConfig mirrors the optional YAML file. Every field is a pointer so
// an absent key leaves the default untouched.
type fileConfig struct {
	Port     *int    `yaml:"port"`
	LogLevel *string `yaml:"log_level"`
	Locale   *string `yaml:"locale"`
	FFmpeg   *string `yaml:"ffmpeg"`
	FFprobe  *string `yaml:"ffprobe"`
	Headless *bool   `yaml:"headless"`
}

// EnvConfig layers environment variables over the YAML file over defaults.
type EnvConfig struct {
	port        int
	logLevel    string
	dataDir     string
	locale      string
	ffmpegPath  string
	ffprobePath string
	headless    bool
}

// New builds the effective configuration. The data directory itself can
// only come from the environment, since the YAML file lives inside it.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
		locale:   DefaultLocale,
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if err := cfg.applyFile(filepath.Join(cfg.dataDir, FileFilename)); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}
	return cfg, nil
}

func (c *EnvConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if fc.Port != nil {
		c.port = *fc.Port
	}
	if fc.LogLevel != nil {
		c.logLevel = *fc.LogLevel
	}
	if fc.Locale != nil {
		c.locale = *fc.Locale
	}
	if fc.FFmpeg != nil {
		c.ffmpegPath = *fc.FFmpeg
	}
	if fc.FFprobe != nil {
		c.ffprobePath = *fc.FFprobe
	}
	if fc.Headless != nil {
		c.headless = *fc.Headless
	}
	return nil
}

func (c *EnvConfig) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if loc := os.Getenv(EnvLocale); loc != "" {
		c.locale = loc
	}
	if fp := os.Getenv(EnvFFmpegPath); fp != "" {
		c.ffmpegPath = fp
	}
	if fp := os.Getenv(EnvFFprobePath); fp != "" {
		c.ffprobePath = fp
	}
	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = headless
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir returns the default directory for exported workbooks
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// Locale returns the configured UI language tag
func (c *EnvConfig) Locale() string {
	return c.locale
}

// FFmpegPath returns an explicit ffmpeg binary path, or "" for PATH lookup
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// FFprobePath returns an explicit ffprobe binary path, or "" for PATH lookup
func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

// Headless reports whether the tray UI should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
