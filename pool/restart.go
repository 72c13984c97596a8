package pool

import (
	"github.com/gridkit/driverpool/caps"
	"github.com/gridkit/driverpool/device"
)

// Restart recreates the worker's default session. When sameDevice is
// true, the identity of the device the session runs on is merged into
// the recreation capabilities so the new session lands on the same
// physical device. extra capabilities (may be nil) are merged on top of
// both the identity and the session's original capabilities.
//
// The device identity is captured before any teardown side effect, so a
// disconnected device never poisons the identity lookup. If no matching
// record is found, recreation proceeds with only the merged identity
// and extra capabilities.
func (w *Worker) Restart(sameDevice bool, extra caps.Capabilities) (Handle, error) {
	drv, err := w.Get(DefaultName)
	if err != nil {
		return nil, err
	}

	merged := caps.New()
	if sameDevice {
		dev := w.DeviceFor(drv)
		if !device.IsNull(dev) {
			w.log.Debug("carrying device identity into restart", "udid", dev.Identity())
			merged[caps.UDID] = dev.Identity()
		}
	}
	merged = merged.Merge(extra)

	recreate := merged
	for _, s := range w.pool.reg.snapshot() {
		if sameHandle(s.handle, drv) {
			recreate = s.originalCaps.Merge(merged)
			w.pool.quitSession(s)
			w.pool.reg.remove(s)
			activeSessions.Dec()
			break
		}
	}

	return w.createDriver(DefaultName, recreate, "")
}

// RestartSameDevice is Restart(true, extra).
func (w *Worker) RestartSameDevice(extra caps.Capabilities) (Handle, error) {
	return w.Restart(true, extra)
}
