package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
)

// Loop is the single consumer of an engine's event channel.
type Loop struct {
	events <-chan event.Event
	router *Router
	logger *zap.Logger
}

// NewLoop creates a loop that feeds events to router.
func NewLoop(events <-chan event.Event, router *Router, opts ...Option) *Loop {
	o := buildOptions(opts)
	return &Loop{
		events: events,
		router: router,
		logger: o.logger,
	}
}

// Run dispatches events until the session ends. It returns nil when ctx is
// canceled, which is the shutdown signal, and an error wrapping
// errors.ErrChannelClosed or errors.ErrInputFailed when the session cannot
// continue.
//
// Paged and browse documents are handled with a context detached from ctx:
// once started they run to completion even if shutdown is requested.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("dispatch loop shut down")
			return nil

		case ev, ok := <-l.events:
			if !ok {
				err := errors.ChannelClosed(nil)
				l.logger.Error("engine channel closed", zap.Error(err))
				return err
			}

			hctx := ctx
			if Awaits(ev) {
				hctx = context.WithoutCancel(ctx)
			}

			err := l.router.Route(hctx, ev)
			if err == nil {
				continue
			}
			if errors.IsFatal(err) {
				l.logger.Error("dispatch loop ending", zap.String("kind", eventKind(ev)), zap.Error(err))
				return err
			}
			if ctx.Err() != nil {
				l.logger.Info("dispatch loop shut down")
				return nil
			}
			// Route only returns fatal or cancellation errors; anything
			// else is a handler bug and is dropped like a recoverable one.
			l.logger.Error("unexpected routing error", zap.String("kind", eventKind(ev)), zap.Error(err))
		}
	}
}
