// Package surface defines the rendering surface boundary of the client
// engine and provides the local-TTY implementation used by the native
// client.
//
// A surface initializes asynchronously: layout and sizing may take an
// unbounded but finite amount of time, so the engine never assumes a
// surface is ready right after construction. The Prober implements the
// two-step readiness confirmation the engine relies on: a primary probe, a
// bounded fallback re-probe, and finally the surface's own ready callback,
// so a transiently-false probe can never wedge output buffering forever.
package surface
