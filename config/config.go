// Package config loads wasmrepl settings from defaults, an optional config
// file and WASMREPL_ environment variables.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/wippyai/wasm-repl/errors"
)

// UI modes.
const (
	UIModeAuto = "auto"
	UIModeTUI  = "tui"
	UIModeLine = "line"
)

// EnvPrefix is the prefix of environment overrides, e.g. WASMREPL_LOG_LEVEL.
const EnvPrefix = "WASMREPL"

// Config holds application configuration.
type Config struct {
	Engine EngineConfig `mapstructure:"engine"`
	Canvas CanvasConfig `mapstructure:"canvas"`
	HTML   HTMLConfig   `mapstructure:"html"`
	Log    LogConfig    `mapstructure:"log"`
	UI     UIConfig     `mapstructure:"ui"`
}

// EngineConfig holds guest settings.
type EngineConfig struct {
	Env              map[string]string `mapstructure:"env"`
	Module           string            `mapstructure:"module"`
	Storage          string            `mapstructure:"storage"`
	Home             string            `mapstructure:"home"`
	Args             []string          `mapstructure:"args"`
	EventBuffer      int               `mapstructure:"event_buffer"`
	MemoryLimitPages uint32            `mapstructure:"memory_limit_pages"`
}

// CanvasConfig is the plot device.
type CanvasConfig struct {
	// Dir receives line-mode plot files. Empty means a per-session temp dir.
	Dir    string `mapstructure:"dir"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// HTMLConfig controls browse documents.
type HTMLConfig struct {
	// ExportDir, when set, receives a copy of every inlined document.
	ExportDir string `mapstructure:"export_dir"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// UIConfig selects the surfaces.
type UIConfig struct {
	Mode string `mapstructure:"mode"`
}

// Load reads configuration. An explicit path must exist; without one the
// file is looked up as $HOME/.config/wasmrepl/config.{yaml,toml,json} and
// may be absent.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(homeDir(), ".config", "wasmrepl"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read config file")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "unmarshal config")
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	share := filepath.Join(homeDir(), ".local", "share", "wasmrepl")

	v.SetDefault("engine.module", "")
	v.SetDefault("engine.storage", filepath.Join(share, "storage"))
	v.SetDefault("engine.args", []string{})
	v.SetDefault("engine.env", map[string]string{})
	v.SetDefault("engine.memory_limit_pages", 0)
	v.SetDefault("engine.event_buffer", 64)
	v.SetDefault("engine.home", "/home/user")
	v.SetDefault("canvas.width", 504)
	v.SetDefault("canvas.height", 504)
	v.SetDefault("canvas.dir", "")
	v.SetDefault("html.export_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(share, "wasmrepl.log"))
	v.SetDefault("ui.mode", UIModeAuto)
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return os.TempDir()
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.Engine.Module == "":
		return errors.InvalidInput(errors.PhaseConfig, "engine.module is required")
	case c.Engine.Storage == "":
		return errors.InvalidInput(errors.PhaseConfig, "engine.storage is required")
	case c.Engine.EventBuffer < 0:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("engine.event_buffer must not be negative, got %d", c.Engine.EventBuffer))
	case c.Canvas.Width <= 0 || c.Canvas.Height <= 0:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height))
	}

	switch c.UI.Mode {
	case UIModeAuto, UIModeTUI, UIModeLine:
	default:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown ui.mode %q", c.UI.Mode))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown log.level %q", c.Log.Level))
	}
	return nil
}
