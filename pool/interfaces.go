// Package pool manages the lifecycle of externally-provisioned
// automation sessions shared across a concurrent test run. Callers
// obtain a Worker handle for their execution unit and request named
// sessions through it; the pool either returns an existing live session
// visible to that worker or provisions a new one with bounded retries.
//
// The pool is the single source of truth for which sessions exist. A
// session is visible to a worker if it was created in the BeforeSuite
// phase (shared globally) or is owned by that worker. Session names are
// unique within a worker's visible scope.
package pool

import (
	"github.com/gridkit/driverpool/caps"
)

// DefaultName is the name used for a worker's primary session.
const DefaultName = "default"

// Handle is an opaque automation session reference returned by a
// Factory. Close is a soft close of UI surfaces; Quit terminates the
// session. Both may return protocol-native errors (see errors.IsProtocol).
type Handle interface {
	// SessionID returns the remote session identifier.
	SessionID() string

	// Close softly closes the session's UI surfaces.
	Close() error

	// Quit terminates the session.
	Quit() error
}

// Unwrappable is implemented by handle wrappers (event-firing
// decorators, tracing shims). The teardown pipeline unwraps to the
// innermost handle before issuing shutdown calls, since a quit issued
// on a wrapper could be intercepted or lost.
type Unwrappable interface {
	Underlying() Handle
}

// Unwrap follows Unwrappable chains to the innermost handle.
func Unwrap(h Handle) Handle {
	for {
		u, ok := h.(Unwrappable)
		if !ok {
			return h
		}
		h = u.Underlying()
	}
}

// Factory provisions new sessions. Create receives the logical session
// name, the requested capabilities, and an optional endpoint hint, and
// returns the live handle together with the capabilities actually used
// (which may differ from the requested set after remote negotiation).
// Errors from Create are treated as transient and retried by the pool
// up to the configured bound.
type Factory interface {
	Create(name string, capabilities caps.Capabilities, endpoint string) (Handle, caps.Capabilities, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(name string, capabilities caps.Capabilities, endpoint string) (Handle, caps.Capabilities, error)

// Create calls f.
func (f FactoryFunc) Create(name string, capabilities caps.Capabilities, endpoint string) (Handle, caps.Capabilities, error) {
	return f(name, capabilities, endpoint)
}
