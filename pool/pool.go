package pool

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/gridkit/driverpool/caps"
	"github.com/gridkit/driverpool/config"
	"github.com/gridkit/driverpool/device"
	"github.com/gridkit/driverpool/errors"
	"github.com/gridkit/driverpool/logging"
	"github.com/gridkit/driverpool/phase"
)

// Pool owns the session registry and the per-worker side channels
// (registered device, capabilities override). It is constructed once
// per test run and shared by reference across all workers; every method
// is safe for concurrent use.
type Pool struct {
	factory Factory
	cfg     config.PoolConfig
	devCfg  config.DeviceConfig
	phases  phase.Source
	log     *logging.Logger

	reg *registry

	mu      sync.Mutex
	workers map[string]*workerState
}

// workerState holds the slots that belong to exactly one worker.
// They replace the thread-local storage of classic pool designs: only
// the owning worker reads or writes them, keyed by worker identity.
type workerState struct {
	mu         sync.Mutex
	device     device.Device
	customCaps caps.Capabilities
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger overrides the logger built from the configuration.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// WithPhaseSource overrides the default phase tracker. The source must
// never report phase.All as an active phase.
func WithPhaseSource(s phase.Source) Option {
	return func(p *Pool) { p.phases = s }
}

// New constructs a Pool around the given session factory and settings.
// Unless overridden by options, the pool logs according to cfg.Logging
// and tracks phases with a fresh phase.Tracker.
func New(factory Factory, cfg *config.Config, opts ...Option) *Pool {
	if cfg == nil {
		cfg = config.Default()
	}

	p := &Pool{
		factory: factory,
		cfg:     cfg.Pool,
		devCfg:  cfg.Device,
		phases:  phase.NewTracker(),
		reg:     newRegistry(),
		workers: make(map[string]*workerState),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = loggerFromConfig(cfg.Logging)
	}

	return p
}

func loggerFromConfig(cfg config.LoggingConfig) *logging.Logger {
	if !cfg.Enabled {
		return logging.NopLogger()
	}
	l, err := logging.NewLogger(cfg.Dir, logging.ParseLevel(cfg.Level))
	if err != nil {
		return logging.NopLogger()
	}
	return l
}

// Worker returns the handle through which one execution unit interacts
// with the pool. Calls with the same id share the worker's state; an
// empty id is assigned a generated identity.
func (p *Pool) Worker(id string) *Worker {
	if id == "" {
		id = "worker-" + uuid.NewString()
	}
	return &Worker{
		pool: p,
		id:   id,
		log:  p.log.WithWorker(id),
	}
}

// state returns the worker's slot struct, creating it on first use.
func (p *Pool) state(workerID string) *workerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	ws, ok := p.workers[workerID]
	if !ok {
		ws = &workerState{}
		p.workers[workerID] = ws
	}
	return ws
}

// Sessions returns a snapshot of every registered session across all
// workers.
func (p *Pool) Sessions() []*Session {
	return p.reg.snapshot()
}

// BySessionID searches every registered session, regardless of owner,
// for one whose underlying remote session ID matches. Intended for
// cross-worker lookups such as reporting callbacks. Returns
// errors.ErrDriverNotFound when nothing matches.
func (p *Pool) BySessionID(sessionID string) (Handle, error) {
	for _, s := range p.reg.snapshot() {
		if Unwrap(s.handle).SessionID() == sessionID {
			return s.handle, nil
		}
	}
	return nil, errors.NewNotFoundError("session", sessionID)
}

// ByDevice returns the handle of a session bound to the given device.
// The boolean reports whether any session matched; a miss is an
// expected outcome, not an error. If several sessions share the device,
// which one is returned is unspecified.
func (p *Pool) ByDevice(d device.Device) (Handle, bool) {
	if device.IsNull(d) {
		return nil, false
	}
	for _, s := range p.reg.snapshot() {
		if s.device == d {
			return s.handle, true
		}
	}
	return nil, false
}

// Close tears down every registered session regardless of owner or
// phase and empties the registry. Best-effort: teardown failures are
// logged, never returned.
func (p *Pool) Close() {
	victims := p.reg.snapshot()

	var wg conc.WaitGroup
	for _, s := range victims {
		wg.Go(func() { p.quitSession(s) })
	}
	wg.Wait()

	p.reg.removeAll(victims)
	activeSessions.Sub(float64(len(victims)))
}

// Worker is a pool handle scoped to one execution unit. All creation
// and lookup operations resolve names against the worker's visible
// scope: its own sessions plus the globally shared BeforeSuite ones.
// A Worker is not meant to be shared across execution units; the pool
// itself may be.
type Worker struct {
	pool *Pool
	id   string
	log  *logging.Logger
}

// ID returns the worker identity this handle is bound to.
func (w *Worker) ID() string { return w.id }

// Pool returns the pool this worker belongs to.
func (w *Worker) Pool() *Pool { return w.pool }
