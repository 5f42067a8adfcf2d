// Package buffer queues shell output for a rendering surface that has not
// confirmed readiness yet. Chunks offered before readiness are held in
// arrival order and drained in a single pass once the surface comes up;
// nothing is dropped, duplicated, or reordered across the transition.
package buffer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/termbridge/termbridge/internal/logging"
	"github.com/termbridge/termbridge/internal/surface"
)

// Kind distinguishes the two delivery modes of a chunk.
type Kind int

const (
	// KindStream is raw shell output, delivered verbatim. Inserting line
	// breaks here corrupts cursor-addressed output.
	KindStream Kind = iota
	// KindNotice is a line-oriented message, delivered with a trailing
	// line break.
	KindNotice
)

// Chunk is one unit of pending output.
type Chunk struct {
	Kind   Kind
	Stream []byte
	Notice string
}

// StreamChunk wraps raw shell output. The bytes are copied; callers may
// reuse their buffer.
func StreamChunk(p []byte) Chunk {
	cp := make([]byte, len(p))
	copy(cp, p)
	return Chunk{Kind: KindStream, Stream: cp}
}

// NoticeChunk wraps a line-oriented message.
func NoticeChunk(line string) Chunk {
	return Chunk{Kind: KindNotice, Notice: line}
}

// Output routes chunks to a surface, buffering while it is not ready.
type Output struct {
	surface surface.Surface
	logger  *logging.Logger

	mu      sync.Mutex
	pending []Chunk
}

// NewOutput creates an output buffer bound to the given surface.
func NewOutput(s surface.Surface, logger *logging.Logger) *Output {
	return &Output{surface: s, logger: logger}
}

// Offer delivers the chunk immediately when the surface is ready and no
// backlog exists, otherwise appends it to the pending queue. A chunk that
// arrives while the surface is ready but a backlog is still queued goes to
// the back of the queue and is drained in order, so arrival order is never
// violated.
func (o *Output) Offer(chunk Chunk) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.surface.IsReady() && len(o.pending) == 0 {
		o.deliver(chunk)
		return
	}

	o.pending = append(o.pending, chunk)
	if o.surface.IsReady() {
		// Readiness flipped while chunks were queued; drain now rather
		// than waiting on a flush that may already have run.
		o.drainLocked()
	}
}

// Flush drains the pending queue in arrival order and clears it. Invoked
// when readiness is first confirmed; calling it again is harmless, and a
// flush before the surface is ready leaves the queue untouched.
func (o *Output) Flush() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.drainLocked()
}

// Pending reports the number of queued chunks.
func (o *Output) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

func (o *Output) drainLocked() {
	if len(o.pending) == 0 || !o.surface.IsReady() {
		return
	}
	for _, chunk := range o.pending {
		o.deliver(chunk)
	}
	o.pending = nil
}

func (o *Output) deliver(chunk Chunk) {
	var err error
	switch chunk.Kind {
	case KindNotice:
		err = o.surface.WriteLine(chunk.Notice)
	default:
		err = o.surface.Write(chunk.Stream)
	}
	if err != nil {
		o.logger.Warn("surface write failed", zap.Error(err))
	}
}
