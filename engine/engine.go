package engine

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
	"github.com/wippyai/wasm-repl/storage"
)

// startFunction is the WASI command entry point.
const startFunction = "_start"

// DefaultEventBuffer is the event channel capacity used when Config leaves it unset.
const DefaultEventBuffer = 64

// Config holds configuration for starting a guest.
type Config struct {
	// Env is passed to the guest environment, in key order.
	Env map[string]string

	// Logger receives engine lifecycle logs. nil uses the package Logger.
	Logger *zap.Logger

	// Name is the guest module name, also used as argv[0] when Args is empty.
	Name string

	// StorageRoot is the host directory mounted as the guest's "/".
	StorageRoot string

	// Module is the WASI preview1 binary.
	Module []byte

	// Args is the guest argv, including argv[0].
	Args []string

	// EventBuffer is the event channel capacity. 0 means DefaultEventBuffer.
	EventBuffer int

	// MemoryLimitPages caps guest memory in 64KB pages. 0 means wazero's default.
	MemoryLimitPages uint32
}

// Engine is a running guest.
type Engine struct {
	runtime wazero.Runtime
	store   *storage.Dir
	logger  *zap.Logger
	events  chan event.Event
	stdin   *lineQueue
	stdout  *lineWriter
	stderr  *lineWriter
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	session string
	once    sync.Once
}

// Start compiles cfg.Module and runs its _start function on a new goroutine.
// Errors in the binary itself are returned here; failures linking or
// running the guest arrive as the final ChannelClosed event.
func Start(ctx context.Context, cfg Config) (*Engine, error) {
	if len(cfg.Module) == 0 {
		return nil, errors.InvalidInput(errors.PhaseEngine, "empty guest module")
	}
	if cfg.StorageRoot == "" {
		return nil, errors.InvalidInput(errors.PhaseEngine, "storage root not set")
	}
	if cfg.EventBuffer < 0 {
		return nil, errors.InvalidInput(errors.PhaseEngine, "negative event buffer")
	}

	store, err := storage.Open(cfg.StorageRoot)
	if err != nil {
		return nil, err
	}

	session := uuid.NewString()
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	log = log.With(zap.String("session", session))

	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	// The guest outlives ctx; Close ends it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rt := wazero.NewRuntimeWithConfig(runCtx, runtimeCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(runCtx, rt); err != nil {
		cancel()
		_ = rt.Close(ctx)
		return nil, errors.Instantiation("instantiate WASI", err)
	}

	compiled, err := rt.CompileModule(runCtx, cfg.Module)
	if err != nil {
		cancel()
		_ = rt.Close(ctx)
		return nil, errors.Instantiation("compile guest", err)
	}
	if _, ok := compiled.ExportedFunctions()[startFunction]; !ok {
		cancel()
		_ = rt.Close(ctx)
		return nil, errors.Instantiation("guest does not export "+startFunction, nil)
	}

	size := cfg.EventBuffer
	if size == 0 {
		size = DefaultEventBuffer
	}

	e := &Engine{
		runtime: rt,
		store:   store,
		logger:  log,
		events:  make(chan event.Event, size),
		stdin:   newLineQueue(),
		runCtx:  runCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		session: session,
	}
	e.stdout = newLineWriter(func(line []byte) { e.emit(stdoutEvent(line)) })
	e.stderr = newLineWriter(func(line []byte) { e.emit(stderrEvent(line)) })

	go e.run(compiled, e.moduleConfig(cfg, store.Root()))

	log.Info("engine started",
		zap.String("name", cfg.Name),
		zap.String("storage", store.Root()))
	return e, nil
}

func (e *Engine) moduleConfig(cfg Config, root string) wazero.ModuleConfig {
	name := cfg.Name
	if name == "" {
		name = "guest"
	}
	args := cfg.Args
	if len(args) == 0 {
		args = []string{name}
	}

	mc := wazero.NewModuleConfig().
		WithName(name).
		WithArgs(args...).
		WithStdin(e.stdin).
		WithStdout(e.stdout).
		WithStderr(e.stderr).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(root, "/")).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithRandSource(rand.Reader)

	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		mc = mc.WithEnv(k, cfg.Env[k])
	}
	return mc
}

func (e *Engine) run(compiled wazero.CompiledModule, mc wazero.ModuleConfig) {
	defer close(e.done)
	defer close(e.events)

	mod, err := e.runtime.InstantiateModule(e.runCtx, compiled, mc)
	if mod != nil {
		_ = mod.Close(context.WithoutCancel(e.runCtx))
	}

	e.stdout.flush()
	e.stderr.flush()

	exitErr := e.exitError(err)
	if exitErr != nil {
		e.logger.Info("engine exited", zap.Error(exitErr))
	} else {
		e.logger.Info("engine exited")
	}
	e.emit(event.ChannelClosed{Err: exitErr})
}

// exitError maps the guest's run result to the ChannelClosed error: nil for
// a clean exit.
func (e *Engine) exitError(err error) error {
	if err == nil {
		return nil
	}
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		switch exit.ExitCode() {
		case 0:
			return nil
		case sys.ExitCodeContextCanceled, sys.ExitCodeDeadlineExceeded:
			return errors.New(errors.PhaseEngine, errors.KindClosed).
				Detail("engine closed").
				Cause(err).
				Build()
		default:
			return errors.Exit(exit.ExitCode())
		}
	}
	return errors.Instantiation("run guest", err)
}

// emit sends ev unless the engine is closing.
func (e *Engine) emit(ev event.Event) {
	select {
	case e.events <- ev:
	case <-e.runCtx.Done():
		debugf("dropping %s event after close", ev.Kind())
	}
}

// Events returns the guest's event stream. It is closed after the final
// ChannelClosed event.
func (e *Engine) Events() <-chan event.Event {
	return e.events
}

// WriteConsole queues one line of console input for the guest.
func (e *Engine) WriteConsole(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.stdin.push(line)
}

// Storage returns the host view of the guest's filesystem.
func (e *Engine) Storage() *storage.Dir {
	return e.store
}

// Session returns the random id of this run.
func (e *Engine) Session() string {
	return e.session
}

// Done is closed once the guest has exited and the event channel is closed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Close stops the guest, waits for it to exit and releases the runtime.
// It returns ctx.Err() if the guest does not stop in time.
func (e *Engine) Close(ctx context.Context) error {
	e.once.Do(func() {
		e.stdin.close()
		e.cancel()
	})

	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return e.runtime.Close(ctx)
}
