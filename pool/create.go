package pool

import (
	"fmt"
	"time"

	"github.com/gridkit/driverpool/caps"
	"github.com/gridkit/driverpool/device"
	"github.com/gridkit/driverpool/errors"
	"github.com/gridkit/driverpool/phase"
)

// attemptOutcome tags the result of a single creation attempt.
type attemptOutcome int

const (
	attemptSuccess attemptOutcome = iota
	// attemptRetryable marks a transient factory failure worth retrying.
	attemptRetryable
	// attemptFatal marks a caller or configuration error: capacity
	// exhausted or duplicate name. Never retried.
	attemptFatal
)

// createDriver runs the bounded-retry creation state machine.
// pool.init_retry_count of 0 means exactly one attempt. Two workers
// creating the same name in their own scopes never interfere; racing
// on a shared BeforeSuite name must be serialized by the caller, e.g.
// by creating suite-level sessions before worker fan-out.
func (w *Worker) createDriver(name string, c caps.Capabilities, endpoint string) (Handle, error) {
	maxAttempts := w.pool.cfg.InitRetryCount + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		handle, outcome, err := w.attemptCreate(name, c, endpoint)
		switch outcome {
		case attemptSuccess:
			return handle, nil
		case attemptFatal:
			return nil, err
		case attemptRetryable:
			lastErr = err
			// Short message on intermediate attempts; only the final
			// failure surfaces the full cause to the caller.
			w.log.Warn("driver initialization failed",
				"driver", name, "attempt", attempt, "max_attempts", maxAttempts, "error", err)
			if attempt < maxAttempts {
				createRetries.Inc()
				time.Sleep(w.pool.cfg.InitRetryInterval())
			}
		}
	}

	createFailures.Inc()

	if lastErr == nil {
		// The loop can only get here by exhausting attempts, and every
		// exhausted attempt records its error. Anything else is a defect.
		return nil, errors.NewDriverError(
			"creation loop exited without a handle or a cause", nil).
			WithName(name).WithWorker(w.id)
	}

	return nil, errors.NewDriverError(
		"all initialization attempts exhausted",
		fmt.Errorf("%w: %w", errors.ErrDriverInitFailed, lastErr)).
		WithName(name).WithWorker(w.id).WithAttempts(maxAttempts)
}

// attemptCreate performs one creation attempt. The capacity and
// duplicate-name preconditions are evaluated before the factory call so
// a failed check never leaks a provisioned session.
func (w *Worker) attemptCreate(name string, c caps.Capabilities, endpoint string) (Handle, attemptOutcome, error) {
	scope := w.visible()

	if len(scope) >= w.pool.cfg.MaxDriverCount {
		return nil, attemptFatal, errors.NewDriverError(
			fmt.Sprintf("reached max number of drivers per scope (%d); raise pool.max_driver_count to allow more",
				w.pool.cfg.MaxDriverCount),
			errors.ErrPoolExhausted).WithName(name).WithWorker(w.id)
	}
	if _, exists := scope[name]; exists {
		return nil, attemptFatal, errors.NewDriverError(
			"driver is already registered for this scope",
			errors.ErrDuplicateName).WithName(name).WithWorker(w.id)
	}

	handle, used, err := w.pool.factory.Create(name, c, endpoint)
	if err != nil {
		// Release the tentatively associated device before retrying.
		if dev := w.registeredDevice(); !device.IsNull(dev) {
			if derr := dev.Disconnect(); derr != nil {
				w.log.Debug("device disconnect after failed init", "device", dev.Name(), "error", derr)
			}
		}
		return nil, attemptRetryable, err
	}

	active := w.pool.phases.Active(w.id)
	if active == phase.All {
		// All is a teardown wildcard, never a creation phase.
		active = phase.Method
	}

	rec := &Session{
		name:         name,
		handle:       handle,
		device:       w.registeredDevice(),
		phase:        active,
		ownerID:      w.id,
		originalCaps: used.Clone(),
		createdAt:    time.Now(),
	}
	w.pool.reg.insert(rec)

	sessionsCreated.Inc()
	activeSessions.Inc()
	w.log.Debug("driver initialized", "driver", name, "phase", active.String(),
		"session_id", Unwrap(handle).SessionID())

	return handle, attemptSuccess, nil
}
