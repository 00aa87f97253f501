package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	replerrors "github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
)

const testTimeout = 10 * time.Second

func startEngine(t *testing.T, wasm []byte) *Engine {
	t.Helper()
	eng, err := Start(context.Background(), Config{
		Module:      wasm,
		Name:        "test",
		StorageRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = eng.Close(ctx)
	})
	return eng
}

// collect drains the event channel until it closes.
func collect(t *testing.T, eng *Engine) []event.Event {
	t.Helper()
	var out []event.Event
	timeout := time.After(testTimeout)
	for {
		select {
		case ev, ok := <-eng.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("event channel did not close, got %v", out)
		}
	}
}

func lastClosed(t *testing.T, evs []event.Event) event.ChannelClosed {
	t.Helper()
	if len(evs) == 0 {
		t.Fatal("no events")
	}
	closed, ok := evs[len(evs)-1].(event.ChannelClosed)
	if !ok {
		t.Fatalf("last event = %#v, want ChannelClosed", evs[len(evs)-1])
	}
	return closed
}

func TestStart_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty module", Config{StorageRoot: t.TempDir()}},
		{"no storage", Config{Module: emptyStartModule()}},
		{"negative buffer", Config{Module: emptyStartModule(), StorageRoot: t.TempDir(), EventBuffer: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Start(context.Background(), tt.cfg)
			if replerrors.KindOf(err) != replerrors.KindInvalidInput {
				t.Errorf("err = %v, want invalid_input", err)
			}
		})
	}
}

func TestStart_InvalidBinary(t *testing.T) {
	_, err := Start(context.Background(), Config{
		Module:      []byte("not wasm"),
		StorageRoot: t.TempDir(),
	})
	if replerrors.KindOf(err) != replerrors.KindInstantiation {
		t.Fatalf("err = %v, want instantiation", err)
	}
}

func TestStart_NoStartExport(t *testing.T) {
	_, err := Start(context.Background(), Config{
		Module:      module(),
		StorageRoot: t.TempDir(),
	})
	if replerrors.KindOf(err) != replerrors.KindInstantiation {
		t.Fatalf("err = %v, want instantiation", err)
	}
}

func TestEngine_CleanExit(t *testing.T) {
	eng := startEngine(t, emptyStartModule())
	evs := collect(t, eng)

	if len(evs) != 1 {
		t.Fatalf("events = %#v, want only ChannelClosed", evs)
	}
	if err := lastClosed(t, evs).Err; err != nil {
		t.Errorf("clean exit carries error %v", err)
	}

	select {
	case <-eng.Done():
	case <-time.After(testTimeout):
		t.Fatal("Done not closed")
	}
}

func TestEngine_StdoutLines(t *testing.T) {
	eng := startEngine(t, writeModule(1, "hello\nwor", "ld\r\n", "tail"))
	evs := collect(t, eng)

	want := []string{"hello", "world", "tail"}
	if len(evs) != len(want)+1 {
		t.Fatalf("events = %#v", evs)
	}
	for i, w := range want {
		text, ok := evs[i].(event.Text)
		if !ok || text.Line != w {
			t.Errorf("event %d = %#v, want Text{%q}", i, evs[i], w)
		}
	}
	if err := lastClosed(t, evs).Err; err != nil {
		t.Errorf("exit error: %v", err)
	}
}

func TestEngine_StderrLines(t *testing.T) {
	eng := startEngine(t, writeModule(2, "Error: object 'x' not found\n"))
	evs := collect(t, eng)

	e, ok := evs[0].(event.ErrorText)
	if !ok || e.Line != "Error: object 'x' not found" {
		t.Fatalf("event = %#v", evs[0])
	}
}

func TestEngine_Records(t *testing.T) {
	eng := startEngine(t, writeModule(1,
		"plain\n",
		"\x1e{\"type\":\"prompt\",\"data\":\"> \"}\n",
		"\x1e{\"type\":\"pager\",\"data\":{\"path\":\"/tmp/h.txt\",\"delete\":true}}\n",
		"\x1enot json\n",
	))
	evs := collect(t, eng)
	if len(evs) != 5 {
		t.Fatalf("events = %#v", evs)
	}

	if _, ok := evs[0].(event.Text); !ok {
		t.Errorf("event 0 = %#v, want Text", evs[0])
	}
	if p, ok := evs[1].(event.Prompt); !ok || p.Text != "> " {
		t.Errorf("event 1 = %#v, want Prompt", evs[1])
	}
	if p, ok := evs[2].(event.PagedDocument); !ok || p.Path != "/tmp/h.txt" || !p.DeleteAfter {
		t.Errorf("event 2 = %#v, want PagedDocument", evs[2])
	}
	if u, ok := evs[3].(event.Unrecognized); !ok || string(u.Raw) != "not json" {
		t.Errorf("event 3 = %#v, want Unrecognized", evs[3])
	}
}

func TestEngine_ExitCode(t *testing.T) {
	eng := startEngine(t, exitModule(3))
	err := lastClosed(t, collect(t, eng)).Err

	if replerrors.KindOf(err) != replerrors.KindExit {
		t.Fatalf("err = %v, want exit", err)
	}
	var e *replerrors.Error
	if !errors.As(err, &e) || e.Value != uint32(3) {
		t.Errorf("exit value = %v", e)
	}
}

func TestEngine_ExitZeroIsClean(t *testing.T) {
	eng := startEngine(t, exitModule(0))
	if err := lastClosed(t, collect(t, eng)).Err; err != nil {
		t.Errorf("proc_exit(0) carries error %v", err)
	}
}

func TestEngine_LinkFailure(t *testing.T) {
	eng := startEngine(t, missingImportModule())
	err := lastClosed(t, collect(t, eng)).Err
	if replerrors.KindOf(err) != replerrors.KindInstantiation {
		t.Fatalf("err = %v, want instantiation", err)
	}
}

func TestEngine_StorageAndSession(t *testing.T) {
	root := filepath.Join(t.TempDir(), "home")
	eng, err := Start(context.Background(), Config{Module: emptyStartModule(), StorageRoot: root})
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close(context.Background())

	if _, err := os.Stat(root); err != nil {
		t.Errorf("storage root not created: %v", err)
	}
	if eng.Storage().Root() != root {
		t.Errorf("Root = %q, want %q", eng.Storage().Root(), root)
	}
	if len(eng.Session()) != 36 {
		t.Errorf("Session = %q, want a uuid", eng.Session())
	}
}

func TestEngine_WriteConsoleAfterClose(t *testing.T) {
	eng := startEngine(t, emptyStartModule())
	collect(t, eng)

	if err := eng.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err := eng.WriteConsole(context.Background(), "1+1")
	if replerrors.KindOf(err) != replerrors.KindClosed {
		t.Errorf("err = %v, want closed", err)
	}
}

func TestLineWriter(t *testing.T) {
	var got []string
	w := newLineWriter(func(line []byte) { got = append(got, string(line)) })

	for _, chunk := range []string{"a", "b\nc\n", "\n", "d\r\ne"} {
		if n, err := w.Write([]byte(chunk)); err != nil || n != len(chunk) {
			t.Fatalf("Write(%q) = %d, %v", chunk, n, err)
		}
	}
	w.flush()
	w.flush()

	want := []string{"ab", "c", "", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLineQueue(t *testing.T) {
	q := newLineQueue()

	read := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := q.Read(buf)
		read <- string(buf[:n])
	}()

	if err := q.push("x <- 1"); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-read:
		if got != "x <- 1\n" {
			t.Errorf("read %q", got)
		}
	case <-time.After(testTimeout):
		t.Fatal("blocked read not woken by push")
	}

	if err := q.push("y"); err != nil {
		t.Fatal(err)
	}
	q.close()

	buf := make([]byte, 64)
	n, err := q.Read(buf)
	if err != nil || string(buf[:n]) != "y\n" {
		t.Errorf("drain = %q, %v", buf[:n], err)
	}
	if _, err := q.Read(buf); err != io.EOF {
		t.Errorf("read after close = %v, want EOF", err)
	}
	if err := q.push("z"); replerrors.KindOf(err) != replerrors.KindClosed {
		t.Errorf("push after close = %v", err)
	}
}
