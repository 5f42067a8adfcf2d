package surface

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// TTY renders shell output to a local terminal. It becomes ready once the
// controlling terminal has been switched to raw mode; until then writes
// from the engine are held back by the output buffer.
type TTY struct {
	in  *os.File
	out io.Writer

	mu       sync.Mutex
	ready    bool
	readyFns []func()
	oldState *term.State
}

// NewTTY creates a TTY surface reading geometry from in and writing to out.
func NewTTY(in *os.File, out io.Writer) *TTY {
	return &TTY{in: in, out: out}
}

// Start switches the terminal to raw mode and marks the surface ready.
func (t *TTY) Start() error {
	oldState, err := term.MakeRaw(int(t.in.Fd()))
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}

	t.mu.Lock()
	t.oldState = oldState
	t.ready = true
	fns := t.readyFns
	t.readyFns = nil
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

// Stop restores the terminal state. The surface is torn down for good;
// readiness does not survive Stop.
func (t *TTY) Stop() error {
	t.mu.Lock()
	oldState := t.oldState
	t.oldState = nil
	t.ready = false
	t.mu.Unlock()

	if oldState == nil {
		return nil
	}
	if err := term.Restore(int(t.in.Fd()), oldState); err != nil {
		return fmt.Errorf("restore terminal: %w", err)
	}
	return nil
}

// Size returns the current terminal geometry.
func (t *TTY) Size() (cols, rows int, err error) {
	return term.GetSize(int(t.in.Fd()))
}

// IsReady reports whether raw mode is established.
func (t *TTY) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

// Write delivers raw stream bytes to the terminal verbatim.
func (t *TTY) Write(p []byte) error {
	_, err := t.out.Write(p)
	return err
}

// WriteLine delivers a notice followed by CRLF; raw mode needs the explicit
// carriage return.
func (t *TTY) WriteLine(line string) error {
	_, err := io.WriteString(t.out, line+"\r\n")
	return err
}

// OnReadyOnce registers fn to run when raw mode is established, or runs it
// immediately if it already is.
func (t *TTY) OnReadyOnce(fn func()) {
	t.mu.Lock()
	if t.ready {
		t.mu.Unlock()
		fn()
		return
	}
	t.readyFns = append(t.readyFns, fn)
	t.mu.Unlock()
}
