package pool

import (
	"sort"

	"github.com/gridkit/driverpool/caps"
	"github.com/gridkit/driverpool/device"
	"github.com/gridkit/driverpool/phase"
)

// visible computes the worker's scope: every BeforeSuite record plus
// every record owned by this worker, indexed by name. The map is
// freshly built on each call so it always reflects the latest registry
// state. On a name collision between a shared BeforeSuite record and an
// owner-scoped one, the owner-scoped record wins; the tie-break is
// deterministic regardless of registry iteration order.
func (w *Worker) visible() map[string]*Session {
	out := make(map[string]*Session)
	for _, s := range w.pool.reg.snapshot() {
		switch {
		case s.ownerID == w.id:
			out[s.name] = s
		case s.phase == phase.BeforeSuite:
			if _, taken := out[s.name]; !taken {
				out[s.name] = s
			}
		}
	}
	return out
}

// Default returns the worker's primary session, creating it if needed.
func (w *Worker) Default() (Handle, error) {
	return w.Get(DefaultName)
}

// Get returns the named session if one is visible to this worker, or
// creates it using the worker's capabilities override (if set).
func (w *Worker) Get(name string) (Handle, error) {
	return w.GetWithEndpoint(name, w.customCapabilities(), "")
}

// GetWithCapabilities is Get with an explicit capability set.
func (w *Worker) GetWithCapabilities(name string, c caps.Capabilities) (Handle, error) {
	return w.GetWithEndpoint(name, c, "")
}

// GetWithEndpoint is Get with explicit capabilities and an endpoint
// hint forwarded to the factory on a miss.
func (w *Worker) GetWithEndpoint(name string, c caps.Capabilities, endpoint string) (Handle, error) {
	if rec, ok := w.visible()[name]; ok {
		if rec.phase == phase.BeforeSuite {
			w.log.Info("returning globally shared driver", "driver", name)
		} else {
			w.log.Debug("returning registered driver", "driver", name, "phase", rec.phase.String())
		}
		return rec.handle, nil
	}

	w.log.Debug("starting new driver, nothing found in the pool", "driver", name)
	return w.createDriver(name, c, endpoint)
}

// IsRegistered reports whether a session with the given name is visible
// to this worker.
func (w *Worker) IsRegistered(name string) bool {
	_, ok := w.visible()[name]
	return ok
}

// Sessions returns the records visible to this worker, ordered by name.
func (w *Worker) Sessions() []*Session {
	scope := w.visible()
	out := make([]*Session, 0, len(scope))
	for _, s := range scope {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// -----------------------------------------------------------------------------
// Capabilities override
// -----------------------------------------------------------------------------

// SetCapabilities stores a capability override consumed by subsequent
// Get calls from this worker. The override is read on every lookup and
// is not cleared by reading; call ClearCapabilities (or bulk teardown,
// which clears it) to drop it.
func (w *Worker) SetCapabilities(c caps.Capabilities) {
	ws := w.pool.state(w.id)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.customCaps = c.Clone()
}

// ClearCapabilities removes the worker's capability override.
func (w *Worker) ClearCapabilities() {
	ws := w.pool.state(w.id)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.customCaps = nil
}

// customCapabilities returns the override, or nil if none is set.
func (w *Worker) customCapabilities() caps.Capabilities {
	ws := w.pool.state(w.id)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.customCaps
}

// -----------------------------------------------------------------------------
// Device side channel
// -----------------------------------------------------------------------------

// RegisterDevice records d as the worker's current device. The next
// session created by this worker is bound to it. Other workers'
// sessions are unaffected. When device.connect_on_register is set, the
// remote connection is established here; connect failures are logged
// and do not fail registration.
func (w *Worker) RegisterDevice(d device.Device) device.Device {
	ws := w.pool.state(w.id)
	ws.mu.Lock()
	ws.device = d
	ws.mu.Unlock()

	w.log.Debug("registered device for worker", "device", d.Name())

	if w.pool.devCfg.ConnectOnRegister {
		if err := d.Connect(); err != nil {
			w.log.Error("device connect failed on register", "device", d.Name(), "error", err)
		}
	}
	return d
}

// ClearDevice drops the worker's current-device slot. Sessions already
// bound to the device keep their binding.
func (w *Worker) ClearDevice() {
	ws := w.pool.state(w.id)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.device = nil
}

// registeredDevice returns the worker's current device, or device.Null.
func (w *Worker) registeredDevice() device.Device {
	ws := w.pool.state(w.id)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.device == nil {
		return device.Null
	}
	return ws.device
}

// IsDeviceRegistered reports whether the worker currently has a real
// (non-Null) device registered.
func (w *Worker) IsDeviceRegistered() bool {
	return !device.IsNull(w.registeredDevice())
}

// LastRegisteredDevice returns the device most recently registered by
// this worker, or device.Null if none.
//
// Deprecated: correlate through the session record instead (Device,
// DeviceByName, DeviceFor). Kept for callers migrating from
// thread-local device lookups.
func (w *Worker) LastRegisteredDevice() device.Device {
	return w.registeredDevice()
}

// Device returns the device bound to the worker's default session, or
// device.Null if the default session is absent or deviceless.
func (w *Worker) Device() device.Device {
	return w.DeviceByName(DefaultName)
}

// DeviceByName returns the device bound to the named visible session.
// Always returns a usable value; a miss yields device.Null, never an
// error.
func (w *Worker) DeviceByName(name string) device.Device {
	if rec, ok := w.visible()[name]; ok {
		return rec.device
	}
	return device.Null
}

// DeviceFor returns the device bound to the session owning the given
// handle, searching across all workers. Returns device.Null on a miss.
func (w *Worker) DeviceFor(h Handle) device.Device {
	for _, s := range w.pool.reg.snapshot() {
		if sameHandle(s.handle, h) {
			return s.device
		}
	}
	return device.Null
}

// sameHandle reports whether two handles refer to the same session,
// unwrapping decorators on both sides.
func sameHandle(a, b Handle) bool {
	if a == b {
		return true
	}
	return Unwrap(a) == Unwrap(b)
}
