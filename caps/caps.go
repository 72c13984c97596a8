// Package caps defines the capabilities value type passed to session
// factories. Capabilities are plain key/value maps; all operations
// return new maps so that captured capability sets stay immutable.
package caps

// Well-known capability keys.
const (
	// UDID identifies the physical device a session must be created on.
	// Set by Worker.Restart when the caller asks to stay on the same device.
	UDID = "udid"
)

// Capabilities is an opaque set of session creation options.
// A nil Capabilities is valid and means "no options".
type Capabilities map[string]any

// New returns an empty, non-nil capability set.
func New() Capabilities {
	return Capabilities{}
}

// Clone returns a shallow copy of c. Cloning nil returns an empty set.
func (c Capabilities) Clone() Capabilities {
	out := make(Capabilities, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge returns a new capability set containing c overlaid with other.
// Keys present in other win. Neither receiver nor argument is modified.
func (c Capabilities) Merge(other Capabilities) Capabilities {
	out := c.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Get returns the value for key and whether it was present.
func (c Capabilities) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}
