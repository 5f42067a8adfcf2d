package buffer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termbridge/termbridge/internal/logging"
)

// recordingSurface captures deliveries in order and lets tests flip
// readiness at any point.
type recordingSurface struct {
	mu      sync.Mutex
	ready   bool
	writes  []string
	readyFn []func()
}

func (r *recordingSurface) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *recordingSurface) Write(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, "raw:"+string(p))
	return nil
}

func (r *recordingSurface) WriteLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, "line:"+line)
	return nil
}

func (r *recordingSurface) OnReadyOnce(fn func()) {
	r.mu.Lock()
	if r.ready {
		r.mu.Unlock()
		fn()
		return
	}
	r.readyFn = append(r.readyFn, fn)
	r.mu.Unlock()
}

func (r *recordingSurface) setReady() {
	r.mu.Lock()
	r.ready = true
	fns := r.readyFn
	r.readyFn = nil
	r.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (r *recordingSurface) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

func TestOfferBuffersUntilReady(t *testing.T) {
	s := &recordingSurface{}
	out := NewOutput(s, logging.NewNop())

	out.Offer(NoticeChunk("connecting..."))
	out.Offer(StreamChunk([]byte("banner")))
	out.Offer(StreamChunk([]byte("$ ")))

	assert.Empty(t, s.recorded())
	assert.Equal(t, 3, out.Pending())

	s.setReady()
	out.Flush()

	assert.Equal(t, []string{"line:connecting...", "raw:banner", "raw:$ "}, s.recorded())
	assert.Zero(t, out.Pending())
}

func TestOfferDeliversDirectlyWhenReady(t *testing.T) {
	s := &recordingSurface{ready: true}
	out := NewOutput(s, logging.NewNop())

	out.Offer(StreamChunk([]byte("hello")))

	assert.Equal(t, []string{"raw:hello"}, s.recorded())
	assert.Zero(t, out.Pending())
}

func TestFlushPreservesArrivalOrder(t *testing.T) {
	s := &recordingSurface{}
	out := NewOutput(s, logging.NewNop())

	var want []string
	for i := 0; i < 100; i++ {
		data := fmt.Sprintf("chunk-%03d", i)
		out.Offer(StreamChunk([]byte(data)))
		want = append(want, "raw:"+data)
	}

	s.setReady()
	out.Flush()

	require.Equal(t, want, s.recorded())
}

func TestFlushIsIdempotent(t *testing.T) {
	s := &recordingSurface{}
	out := NewOutput(s, logging.NewNop())

	out.Offer(StreamChunk([]byte("once")))
	s.setReady()
	out.Flush()
	out.Flush()

	assert.Equal(t, []string{"raw:once"}, s.recorded())
}

func TestFlushBeforeReadyKeepsQueue(t *testing.T) {
	s := &recordingSurface{}
	out := NewOutput(s, logging.NewNop())

	out.Offer(StreamChunk([]byte("held")))
	out.Flush()

	assert.Empty(t, s.recorded())
	assert.Equal(t, 1, out.Pending())

	s.setReady()
	out.Flush()
	assert.Equal(t, []string{"raw:held"}, s.recorded())
}

func TestOfferRacingReadinessIsNotDropped(t *testing.T) {
	s := &recordingSurface{}
	out := NewOutput(s, logging.NewNop())

	out.Offer(StreamChunk([]byte("early")))

	// Readiness flips without a Flush having run yet; the next Offer must
	// drain the backlog itself instead of delivering out of order.
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	out.Offer(StreamChunk([]byte("late")))

	assert.Equal(t, []string{"raw:early", "raw:late"}, s.recorded())
	assert.Zero(t, out.Pending())
}

func TestStreamChunkCopiesBytes(t *testing.T) {
	p := []byte("abc")
	chunk := StreamChunk(p)
	p[0] = 'x'

	assert.Equal(t, []byte("abc"), chunk.Stream)
}

func TestConcurrentOffersAllDelivered(t *testing.T) {
	s := &recordingSurface{ready: true}
	out := NewOutput(s, logging.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out.Offer(StreamChunk([]byte(fmt.Sprintf("c%d", i))))
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.recorded(), 50)
	assert.Zero(t, out.Pending())
}
