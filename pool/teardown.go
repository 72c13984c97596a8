package pool

import (
	"slices"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/gridkit/driverpool/device"
	"github.com/gridkit/driverpool/errors"
	"github.com/gridkit/driverpool/phase"
)

// quitSession shuts one session down. Best-effort and total: every
// failure is logged and swallowed so the caller can always proceed to
// registry removal. Removal itself is left to the caller so batch
// teardown can remove many records in one pass.
func (p *Pool) quitSession(s *Session) {
	log := p.log.WithDriver(s.name).WithWorker(s.ownerID)

	if !device.IsNull(s.device) {
		if err := s.device.Disconnect(); err != nil {
			log.Warn("device disconnect failed during quit", "device", s.device.Name(), "error", err)
		}
	}

	log.Debug("start driver quit")

	// Shutdown must hit the innermost handle; a quit issued on a
	// decorator could be intercepted or lost.
	h := Unwrap(s.handle)
	timeout := p.cfg.DriverCloseTimeout()

	done := make(chan error, 1)
	go func() {
		if p.cfg.CloseBeforeQuit {
			if err := h.Close(); err != nil {
				log.Debug("driver close before quit failed", "error", err)
			}
		}
		done <- h.Quit()
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
		case errors.IsProtocol(err):
			// Usually means the remote side already terminated the session.
			log.Debug("protocol error during driver quit", "error", err)
		default:
			log.Error("unexpected error during driver quit", "error", err)
		}
	case <-time.After(timeout):
		teardownTimeouts.Inc()
		log.Error("unable to quit driver within timeout", "timeout", timeout.String())
	}

	log.Debug("finished driver quit")
}

// Quit tears down the worker's default session.
func (w *Worker) Quit() error {
	return w.QuitNamed(DefaultName)
}

// QuitNamed tears down the named session visible to this worker and
// removes it from the registry. The removal happens even if shutdown
// itself failed or timed out. Returns errors.ErrDriverNotFound when the
// name is not visible.
func (w *Worker) QuitNamed(name string) error {
	rec, ok := w.visible()[name]
	if !ok {
		return errors.NewNotFoundError("driver", name)
	}

	w.pool.quitSession(rec)
	w.pool.reg.remove(rec)
	activeSessions.Dec()
	return nil
}

// QuitByPhases tears down every session owned by this worker whose
// phase is in the target set. If phase.All is present, every session is
// torn down regardless of owner or phase. Teardown of the selected
// sessions runs in parallel; the collected records are then removed
// from the registry in one pass and the worker's capabilities override
// is cleared.
func (w *Worker) QuitByPhases(phases ...phase.Phase) {
	wildcard := slices.Contains(phases, phase.All)

	var victims []*Session
	for _, s := range w.pool.reg.snapshot() {
		if wildcard || (s.ownerID == w.id && slices.Contains(phases, s.phase)) {
			victims = append(victims, s)
		}
	}

	var wg conc.WaitGroup
	for _, s := range victims {
		wg.Go(func() { w.pool.quitSession(s) })
	}
	wg.Wait()

	w.pool.reg.removeAll(victims)
	activeSessions.Sub(float64(len(victims)))

	w.ClearCapabilities()
}
