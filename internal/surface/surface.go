package surface

// Surface is the rendering collaborator the engine writes shell output to.
// Implementations must be safe for concurrent use: transport events and
// user input arrive on different goroutines.
type Surface interface {
	// IsReady reports whether the surface can accept writes now.
	IsReady() bool

	// Write delivers raw stream bytes verbatim. No line break is inserted;
	// shell output is cursor-addressed and must not be reflowed.
	Write(p []byte) error

	// WriteLine delivers a line-oriented notice with a trailing line break.
	WriteLine(line string) error

	// OnReadyOnce registers a callback invoked exactly once when the
	// surface first becomes ready. A surface that is already ready invokes
	// the callback immediately.
	OnReadyOnce(fn func())
}
