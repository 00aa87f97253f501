package dispatch

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
	"github.com/wippyai/wasm-repl/inline"
	"github.com/wippyai/wasm-repl/surface"
)

// Storage is the part of engine storage the router needs.
type Storage interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
}

// Input delivers one line of console input back to the engine.
type Input interface {
	WriteConsole(ctx context.Context, line string) error
}

// Router maps one event to its handler. It keeps no state between calls;
// surfaces are looked up in the slots on every event.
type Router struct {
	slots  *surface.Slots
	store  Storage
	input  Input
	logger *zap.Logger
}

// NewRouter creates a Router over slots, engine storage and the engine's
// console input.
func NewRouter(slots *surface.Slots, store Storage, input Input, opts ...Option) *Router {
	o := buildOptions(opts)
	return &Router{
		slots:  slots,
		store:  store,
		input:  input,
		logger: o.logger,
	}
}

// Route handles ev. The returned error is nil unless the session must end:
// errors wrapping errors.ErrChannelClosed or errors.ErrInputFailed.
// Recoverable failures are reported inside Route and never returned.
func (r *Router) Route(ctx context.Context, ev event.Event) error {
	switch ev := ev.(type) {
	case event.Text:
		r.slots.Console().PrintLine(ev.Line)

	case event.ErrorText:
		r.slots.Console().PrintLine(surface.HighlightError(ev.Line))

	case event.Prompt:
		return r.prompt(ctx, ev)

	case event.GraphicsImage:
		r.slots.Graphics().DrawImage(ev.Image)

	case event.GraphicsNewPage:
		r.slots.Graphics().NewPage()

	case event.PagedDocument:
		r.report(ev, ev.Path, r.pager(ctx, ev))

	case event.DataView:
		r.slots.Documents().OpenTabular(ev.Title, ev.Table)

	case event.BrowseDocument:
		r.report(ev, ev.Path, r.browse(ctx, ev))

	case event.ChannelClosed:
		return errors.ChannelClosed(ev.Err)

	case event.Unrecognized:
		r.logger.Warn("dropping unrecognized event",
			zap.String("type", ev.Type),
			zap.ByteString("raw", ev.Raw))

	default:
		r.logger.Warn("dropping unrecognized event",
			zap.String("kind", eventKind(ev)),
			zap.String("go_type", fmt.Sprintf("%T", ev)))
	}
	return nil
}

// Awaits reports whether handling ev does engine-facing I/O, so the loop
// must not pull the next event until it finishes.
func Awaits(ev event.Event) bool {
	if ev == nil {
		return false
	}
	switch ev.Kind() {
	case event.KindPagedDocument, event.KindBrowseDocument:
		return true
	}
	return false
}

// prompt refreshes the file listing, waits for it, then reads a line from
// the console and sends it to the engine. The refresh always comes first:
// the file surface has no other signal that storage may have changed.
func (r *Router) prompt(ctx context.Context, ev event.Prompt) error {
	if err := r.slots.Documents().Refresh(ctx); err != nil {
		r.logger.Warn("refresh before prompt failed", zap.Error(err))
	}

	line, err := r.slots.Console().ReadLine(ctx, ev.Text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.InputFailed(err)
	}

	if err := r.input.WriteConsole(ctx, line); err != nil {
		r.report(ev, "", errors.Wrap(errors.PhaseRoute, errors.KindIO, err, "deliver console input"))
	}
	return nil
}

// pager opens the file, then deletes it if it is transient. A failed open
// skips the delete.
func (r *Router) pager(ctx context.Context, ev event.PagedDocument) error {
	title := ev.Title
	if title == "" {
		title = path.Base(ev.Path)
	}
	if err := r.slots.Documents().OpenFile(ctx, title, ev.Path, true); err != nil {
		return err
	}
	if !ev.DeleteAfter {
		return nil
	}
	if err := r.store.Remove(ctx, ev.Path); err != nil {
		return errors.New(errors.PhaseRoute, errors.KindIO).
			Path(ev.Path).
			Detail("remove transient file").
			Cause(err).
			Build()
	}
	return nil
}

func (r *Router) browse(ctx context.Context, ev event.BrowseDocument) error {
	doc, err := r.store.ReadFile(ctx, ev.Path)
	if err != nil {
		return err
	}
	content, err := inline.Inline(ctx, string(doc), path.Dir(ev.Path), r.store)
	if err != nil {
		return err
	}
	r.slots.Documents().OpenHTML(content, ev.Path)
	return nil
}

// report logs a recoverable handler failure and shows it on the console.
func (r *Router) report(ev event.Event, p string, err error) {
	if err == nil {
		return
	}
	kind := eventKind(ev)
	r.logger.Error("event handling failed",
		zap.String("kind", kind),
		zap.String("path", p),
		zap.Error(err))
	r.slots.Console().WriteRaw(surface.HighlightError(kind+": "+err.Error()) + "\n")
}

func eventKind(ev event.Event) string {
	if ev == nil {
		return "nil"
	}
	return ev.Kind().String()
}
