package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	replerrors "github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
	"github.com/wippyai/wasm-repl/surface"
)

const loopTimeout = 5 * time.Second

// runLoop runs a loop over events in the background and returns a channel
// that yields its result.
func runLoop(ctx context.Context, f *fixture, events <-chan event.Event) <-chan error {
	done := make(chan error, 1)
	loop := NewLoop(events, f.router)
	go func() { done <- loop.Run(ctx) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(loopTimeout):
		t.Fatal("loop did not finish")
		return nil
	}
}

func feed(evs ...event.Event) chan event.Event {
	ch := make(chan event.Event, len(evs))
	for _, ev := range evs {
		ch <- ev
	}
	return ch
}

func TestLoop_PreservesOrder(t *testing.T) {
	f := newFixture()
	f.console.inputs = []string{"plot(1)"}

	ch := feed(
		event.Text{Line: "R version"},
		event.Unrecognized{Type: "audio"},
		event.ErrorText{Line: "Warning"},
		event.Prompt{Text: "> "},
		event.GraphicsNewPage{},
		event.Text{Line: "done"},
	)
	close(ch)

	err := wait(t, runLoop(context.Background(), f, ch))
	if !errors.Is(err, replerrors.ErrChannelClosed) {
		t.Fatalf("err = %v, want ErrChannelClosed", err)
	}
	assertCalls(t, f.calls.all(),
		"console.print R version",
		"console.print "+surface.HighlightError("Warning"),
		"docs.refresh",
		"console.read > ",
		"engine.input plot(1)",
		"gfx.newpage",
		"console.print done",
	)
}

func TestLoop_ChannelClosedEvent(t *testing.T) {
	f := newFixture()
	cause := errors.New("guest exited with code 1")
	ch := feed(event.Text{Line: "bye"}, event.ChannelClosed{Err: cause}, event.Text{Line: "never"})

	err := wait(t, runLoop(context.Background(), f, ch))
	if !errors.Is(err, replerrors.ErrChannelClosed) || !errors.Is(err, cause) {
		t.Fatalf("err = %v", err)
	}
	assertCalls(t, f.calls.all(), "console.print bye")
}

func TestLoop_CancelReturnsNil(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	done := runLoop(ctx, f, make(chan event.Event))

	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("Run after cancel = %v, want nil", err)
	}
}

func TestLoop_ReadFailureEndsSession(t *testing.T) {
	f := newFixture()
	f.console.readErr = errors.New("eof")
	ch := feed(event.Prompt{Text: "> "}, event.Text{Line: "never"})

	err := wait(t, runLoop(context.Background(), f, ch))
	if !errors.Is(err, replerrors.ErrInputFailed) {
		t.Fatalf("err = %v, want ErrInputFailed", err)
	}
	if f.calls.indexOf("console.print never") != -1 {
		t.Error("no event may be handled after a fatal error")
	}
}

// blockingConsole blocks reads until the context is canceled.
type blockingConsole struct {
	reading chan struct{}
}

func (blockingConsole) PrintLine(string) {}
func (blockingConsole) WriteRaw(string)  {}

func (b blockingConsole) ReadLine(ctx context.Context, _ string) (string, error) {
	close(b.reading)
	<-ctx.Done()
	return "", errors.New("read interrupted")
}

func TestLoop_CancelDuringPromptReturnsNil(t *testing.T) {
	f := newFixture()
	console := blockingConsole{reading: make(chan struct{})}
	f.slots.SetConsole(console)

	ctx, cancel := context.WithCancel(context.Background())
	done := runLoop(ctx, f, feed(event.Prompt{Text: "> "}))

	select {
	case <-console.reading:
	case <-time.After(loopTimeout):
		t.Fatal("prompt never reached the console")
	}
	cancel()

	if err := wait(t, done); err != nil {
		t.Fatalf("Run = %v, want nil on shutdown", err)
	}
	if f.calls.indexOf("engine.input ") != -1 {
		t.Error("nothing may be sent after an interrupted read")
	}
}

func TestLoop_AwaitedHandlerSurvivesCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.docs.onOpen = func(context.Context) { cancel() }

	done := runLoop(ctx, f, feed(event.PagedDocument{Path: "/tmp/help.txt", DeleteAfter: true}))
	if err := wait(t, done); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if f.docs.openCtxErr != nil {
		t.Errorf("pager ran with a canceled context: %v", f.docs.openCtxErr)
	}
	if f.calls.indexOf("store.remove /tmp/help.txt") == -1 {
		t.Error("pager handler must run to completion")
	}
}

func TestLoop_RebindMidSession(t *testing.T) {
	f := newFixture()
	ch := make(chan event.Event)
	done := runLoop(context.Background(), f, ch)

	ch <- event.Text{Line: "a"}
	// A send on the unbuffered channel completes only once the loop has
	// finished the previous event and is selecting again.
	ch <- event.Unrecognized{Type: "sync"}

	second := &fakeConsole{name: "second", calls: f.calls}
	f.slots.SetConsole(second)

	ch <- event.Text{Line: "b"}
	close(ch)

	if err := wait(t, done); !errors.Is(err, replerrors.ErrChannelClosed) {
		t.Fatalf("err = %v", err)
	}
	assertCalls(t, f.calls.all(), "console.print a", "second.print b")
}

func TestLoop_EventsBeforeBindAreDropped(t *testing.T) {
	f := newFixture()
	f.slots.SetConsole(nil)
	f.slots.SetDocuments(nil)
	f.slots.SetGraphics(nil)

	ch := feed(
		event.Text{Line: "banner"},
		event.GraphicsNewPage{},
		event.BrowseDocument{Path: "/missing.html"},
	)
	close(ch)

	err := wait(t, runLoop(context.Background(), f, ch))
	if !errors.Is(err, replerrors.ErrChannelClosed) {
		t.Fatalf("err = %v, want ErrChannelClosed", err)
	}
	for _, c := range f.calls.all() {
		if c != "store.read /missing.html" {
			t.Errorf("unexpected call %q", c)
		}
	}
}
