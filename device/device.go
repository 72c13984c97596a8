// Package device defines the physical-device contract consumed by the
// pool. Devices are provisioned elsewhere; the pool only connects,
// disconnects, and correlates them with sessions.
package device

// Device is an opaque handle to a physical or virtual device a session
// may run on. Implementations must be safe for use from the single
// worker that registered them.
type Device interface {
	// Name returns a human-readable device name.
	Name() string

	// Identity returns the stable unique identifier of the device
	// (e.g. a UDID). Used to recreate a session on the same device.
	Identity() string

	// Connect establishes the remote connection to the device.
	Connect() error

	// Disconnect tears the remote connection down.
	Disconnect() error
}

// nullDevice is the "no device" sentinel. It is a singleton so callers
// can compare against Null by identity.
type nullDevice struct{}

func (nullDevice) Name() string      { return "" }
func (nullDevice) Identity() string  { return "" }
func (nullDevice) Connect() error    { return nil }
func (nullDevice) Disconnect() error { return nil }

// Null is returned wherever a session has no device attached. It is
// never nil, so callers can use device getters without nil checks.
var Null Device = nullDevice{}

// IsNull reports whether d is the Null sentinel or nil.
func IsNull(d Device) bool {
	return d == nil || d == Null
}
