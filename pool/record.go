package pool

import (
	"fmt"
	"time"

	"github.com/gridkit/driverpool/caps"
	"github.com/gridkit/driverpool/device"
	"github.com/gridkit/driverpool/phase"
)

// Session is an immutable record binding a live handle to the device it
// runs on, the lifecycle phase it was created in, the owning worker, its
// logical name, and the capabilities used to create it. Records are
// created only by the creation pipeline and destroyed only by registry
// removal; no field is ever mutated in place.
type Session struct {
	name         string
	handle       Handle
	device       device.Device
	phase        phase.Phase
	ownerID      string
	originalCaps caps.Capabilities
	createdAt    time.Time
}

// Name returns the logical session name, unique within a scope.
func (s *Session) Name() string { return s.name }

// Handle returns the live session handle.
func (s *Session) Handle() Handle { return s.handle }

// Device returns the attached device, or device.Null if none.
func (s *Session) Device() device.Device { return s.device }

// Phase returns the lifecycle phase the session was created in.
func (s *Session) Phase() phase.Phase { return s.phase }

// OwnerID returns the identity of the worker that created the session.
// Meaningful only when Phase is not BeforeSuite.
func (s *Session) OwnerID() string { return s.ownerID }

// CreatedAt returns the record's creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// OriginalCapabilities returns a copy of the capabilities the session
// was created with. Used to recreate an equivalent session on restart.
func (s *Session) OriginalCapabilities() caps.Capabilities {
	return s.originalCaps.Clone()
}

// String renders the record for debug logging.
func (s *Session) String() string {
	return fmt.Sprintf("session{name=%s phase=%s owner=%s}", s.name, s.phase, s.ownerID)
}
