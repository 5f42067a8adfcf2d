package surface

import (
	"sync"
	"time"
)

// Prober confirms surface readiness without blocking. Confirmation runs in
// up to three steps: a primary probe after ProbeDelay, a fallback re-probe
// after FallbackDelay, and finally the surface's own OnReadyOnce callback.
// The callback passed to Confirm fires exactly once.
type Prober struct {
	ProbeDelay    time.Duration
	FallbackDelay time.Duration
}

// Confirm arranges for onReady to be invoked once the surface is ready.
func (p *Prober) Confirm(s Surface, onReady func()) {
	var once sync.Once
	fire := func() { once.Do(onReady) }

	if s.IsReady() {
		fire()
		return
	}

	time.AfterFunc(p.ProbeDelay, func() {
		if s.IsReady() {
			fire()
			return
		}
		time.AfterFunc(p.FallbackDelay, func() {
			if s.IsReady() {
				fire()
				return
			}
			// Both probes came back negative; hand off to the surface's
			// own ready signal so confirmation still happens eventually.
			s.OnReadyOnce(fire)
		})
	})
}
