package engine

import (
	"bytes"
	"io"
	"sync"

	"github.com/wippyai/wasm-repl/errors"
	"github.com/wippyai/wasm-repl/event"
)

// RecordSeparator starts an event record on stdout (RFC 7464).
const RecordSeparator = 0x1E

// lineWriter splits guest writes into lines and hands each complete line to
// emit before Write returns.
type lineWriter struct {
	emit    func(line []byte)
	pending []byte
	mu      sync.Mutex
}

func newLineWriter(emit func(line []byte)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.emit(bytes.TrimSuffix(w.pending[:i], []byte{'\r'}))
		w.pending = w.pending[i+1:]
	}
	if len(w.pending) == 0 {
		w.pending = nil
	}
	return len(p), nil
}

// flush emits a trailing partial line, if any.
func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) > 0 {
		debugf("flushing partial line of %d bytes", len(w.pending))
		w.emit(w.pending)
		w.pending = nil
	}
}

// stdoutEvent maps one stdout line to an event.
func stdoutEvent(line []byte) event.Event {
	if len(line) > 0 && line[0] == RecordSeparator {
		return event.Decode(line[1:])
	}
	return event.Text{Line: string(line)}
}

// stderrEvent maps one stderr line to an event.
func stderrEvent(line []byte) event.Event {
	return event.ErrorText{Line: string(line)}
}

// lineQueue is the guest's stdin: an unbounded buffer of queued console
// lines. Reads block until data is queued and return io.EOF once the queue
// is closed and drained.
type lineQueue struct {
	cond   *sync.Cond
	buf    bytes.Buffer
	mu     sync.Mutex
	closed bool
}

func newLineQueue() *lineQueue {
	q := &lineQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *lineQueue) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.buf.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.buf.Len() == 0 {
		return 0, io.EOF
	}
	return q.buf.Read(p)
}

// push queues line followed by a newline.
func (q *lineQueue) push(line string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errors.New(errors.PhaseEngine, errors.KindClosed).
			Detail("console input after engine close").
			Build()
	}
	q.buf.WriteString(line)
	q.buf.WriteByte('\n')
	q.cond.Broadcast()
	return nil
}

func (q *lineQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
