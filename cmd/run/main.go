package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/config"
	"github.com/wippyai/wasm-repl/dispatch"
	"github.com/wippyai/wasm-repl/engine"
	"github.com/wippyai/wasm-repl/surface"
)

const closeTimeout = 5 * time.Second

type flags struct {
	wasm    string
	config  string
	storage string
	argv    string
	env     string
	ui      string
	log     string
}

func main() {
	var f flags
	flag.StringVar(&f.wasm, "wasm", "", "Path to the guest wasm module (engine.module)")
	flag.StringVar(&f.config, "config", "", "Config file (default $HOME/.config/wasmrepl/config.*)")
	flag.StringVar(&f.storage, "storage", "", "Host directory mounted as the guest's / (engine.storage)")
	flag.StringVar(&f.argv, "argv", "", "Guest arguments (comma-separated)")
	flag.StringVar(&f.env, "env", "", "Environment variables (KEY=VAL,KEY2=VAL2)")
	flag.StringVar(&f.ui, "ui", "", "Surfaces: auto, tui or line")
	flag.StringVar(&f.log, "log", "", "Log file")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	applyFlags(&cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	engine.SetLogger(logger)

	wasm, err := os.ReadFile(cfg.Engine.Module)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Join(cfg.Engine.Storage, filepath.FromSlash(cfg.Engine.Home)), 0o755); err != nil {
		return fmt.Errorf("create home: %w", err)
	}

	eng, err := engine.Start(ctx, engine.Config{
		Module:           wasm,
		Name:             strings.TrimSuffix(filepath.Base(cfg.Engine.Module), ".wasm"),
		StorageRoot:      cfg.Engine.Storage,
		Args:             cfg.Engine.Args,
		Env:              guestEnv(cfg),
		MemoryLimitPages: cfg.Engine.MemoryLimitPages,
		EventBuffer:      cfg.Engine.EventBuffer,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := eng.Close(cctx); err != nil {
			logger.Warn("engine close failed", zap.Error(err))
		}
	}()

	slots := surface.NewSlots(logger)
	router := dispatch.NewRouter(slots, eng.Storage(), eng, dispatch.WithLogger(logger))
	loop := dispatch.NewLoop(eng.Events(), router, dispatch.WithLogger(logger))

	mode := resolveMode(cfg.UI.Mode, stdioIsTerminal)
	logger.Info("starting", zap.String("ui", mode), zap.String("session", eng.Session()))

	if mode == config.UIModeTUI {
		return runTUI(ctx, cfg, eng, slots, loop, logger)
	}
	return runLine(ctx, cfg, eng, slots, loop, logger)
}

// applyFlags overrides config values with the flags that were set.
func applyFlags(cfg *config.Config, f flags) {
	if f.wasm != "" {
		cfg.Engine.Module = f.wasm
	}
	if f.storage != "" {
		cfg.Engine.Storage = f.storage
	}
	if f.argv != "" {
		cfg.Engine.Args = strings.Split(f.argv, ",")
	}
	if f.env != "" {
		if cfg.Engine.Env == nil {
			cfg.Engine.Env = make(map[string]string)
		}
		for k, v := range parseEnv(f.env) {
			cfg.Engine.Env[k] = v
		}
	}
	if f.ui != "" {
		cfg.UI.Mode = f.ui
	}
	if f.log != "" {
		cfg.Log.File = f.log
	}
}

func parseEnv(s string) map[string]string {
	env := make(map[string]string)
	for _, kv := range strings.Split(s, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 && parts[0] != "" {
			env[parts[0]] = parts[1]
		}
	}
	return env
}

// guestEnv is the configured environment plus HOME, unless set explicitly.
func guestEnv(cfg config.Config) map[string]string {
	env := make(map[string]string, len(cfg.Engine.Env)+1)
	for k, v := range cfg.Engine.Env {
		env[k] = v
	}
	if _, ok := env["HOME"]; !ok && cfg.Engine.Home != "" {
		env["HOME"] = cfg.Engine.Home
	}
	return env
}
