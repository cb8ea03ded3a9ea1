// Package config loads spaghetti.toml.
//
// The file is optional. Values it defines are laid over Default; keys it
// leaves out keep their defaults. Command-line flags are applied on top by
// the CLI.
//
//	[engine]
//	tick_interval = "100ms"
//	max_ticks     = 0
//
//	[log]
//	level  = "info"
//	format = "text"
//	file   = "spaghetti.log" # optional, appended alongside the console
//
//	[store]
//	path = "spaghetti.db"
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the config file looked up in the working directory when
// no path is given.
const DefaultFile = "spaghetti.toml"

// Config is the resolved runtime configuration.
type Config struct {
	Engine EngineConfig
	Log    LogConfig
	Store  StoreConfig
}

// EngineConfig controls the tick loop.
type EngineConfig struct {
	TickInterval time.Duration // wall-clock period for free-running mode
	MaxTicks     int64         // 0 means unbounded
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	File   string // also append to this file when set
}

// StoreConfig locates the run database.
type StoreConfig struct {
	Path string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{TickInterval: 100 * time.Millisecond},
		Log:    LogConfig{Level: "info", Format: "text"},
		Store:  StoreConfig{Path: "spaghetti.db"},
	}
}

// spaghetti.toml key mapping.
type fileConfig struct {
	Engine struct {
		TickInterval string `toml:"tick_interval"`
		MaxTicks     int64  `toml:"max_ticks"`
	} `toml:"engine"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"log"`
	Store struct {
		Path string `toml:"path"`
	} `toml:"store"`
}

// Load reads path over the defaults. An empty path tries DefaultFile and
// falls back to the defaults when it does not exist; a named file that is
// missing is an error.
func Load(path string) (Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("engine", "tick_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Engine.TickInterval))
		if err != nil {
			return Config{}, fmt.Errorf("engine.tick_interval: %w", err)
		}
		cfg.Engine.TickInterval = d
	}
	if meta.IsDefined("engine", "max_ticks") {
		cfg.Engine.MaxTicks = raw.Engine.MaxTicks
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(raw.Log.Level))
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(raw.Log.Format))
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("store", "path") {
		cfg.Store.Path = strings.TrimSpace(raw.Store.Path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("engine.tick_interval must be positive, got %s", c.Engine.TickInterval)
	}
	if c.Engine.MaxTicks < 0 {
		return fmt.Errorf("engine.max_ticks must be non-negative, got %d", c.Engine.MaxTicks)
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q: want text or json", c.Log.Format)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	return nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch s {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Writer returns the log destination: console alone, or console and the
// configured file. The returned func closes the file.
func (c LogConfig) Writer(console io.Writer) (io.Writer, func() error, error) {
	if c.File == "" {
		return console, func() error { return nil }, nil
	}
	f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return io.MultiWriter(console, f), f.Close, nil
}

// NewLogger builds a Text or JSON slog logger writing to w. Unknown levels
// fall back to info.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
