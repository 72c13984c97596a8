package pool

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkit/driverpool/caps"
	"github.com/gridkit/driverpool/config"
	"github.com/gridkit/driverpool/device"
	"github.com/gridkit/driverpool/errors"
	"github.com/gridkit/driverpool/phase"
)

// =============================================================================
// Test Helpers
// =============================================================================

// fakeHandle is a controllable session handle.
type fakeHandle struct {
	id        string
	mu        sync.Mutex
	closed    bool
	quit      bool
	quitErr   error
	quitDelay time.Duration
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{id: uuid.NewString()}
}

func (h *fakeHandle) SessionID() string { return h.id }

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) Quit() error {
	if h.quitDelay > 0 {
		time.Sleep(h.quitDelay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quit = true
	return h.quitErr
}

func (h *fakeHandle) wasQuit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.quit
}

// wrappedHandle decorates another handle. Shutdown calls issued on the
// wrapper are recorded so tests can prove teardown unwrapped first.
type wrappedHandle struct {
	inner Handle
	mu    sync.Mutex
	quit  bool
}

func (w *wrappedHandle) SessionID() string { return w.inner.SessionID() }

func (w *wrappedHandle) Close() error { return nil }

func (w *wrappedHandle) Quit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.quit = true
	return nil
}

func (w *wrappedHandle) Underlying() Handle { return w.inner }

// fakeDevice is a controllable device.
type fakeDevice struct {
	name        string
	udid        string
	mu          sync.Mutex
	connects    int
	disconnects int
}

func (d *fakeDevice) Name() string     { return d.name }
func (d *fakeDevice) Identity() string { return d.udid }

func (d *fakeDevice) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connects++
	return nil
}

func (d *fakeDevice) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnects++
	return nil
}

func (d *fakeDevice) disconnectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnects
}

// fakeFactory counts calls and can fail the first N of them.
type fakeFactory struct {
	mu         sync.Mutex
	calls      int
	failures   int // first N calls return an error
	makeHandle func(name string) Handle
	lastCaps   caps.Capabilities
}

func (f *fakeFactory) Create(name string, c caps.Capabilities, endpoint string) (Handle, caps.Capabilities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastCaps = c.Clone()
	if f.calls <= f.failures {
		return nil, nil, fmt.Errorf("simulated init failure %d", f.calls)
	}
	if f.makeHandle != nil {
		return f.makeHandle(name), c.Clone(), nil
	}
	return newFakeHandle(), c.Clone(), nil
}

func (f *fakeFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFactory) capsSeen() caps.Capabilities {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCaps.Clone()
}

// testConfig returns settings tuned for fast tests: no retry pauses,
// one-second close timeout, no logging.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Pool.InitRetryIntervalSec = 0
	cfg.Pool.DriverCloseTimeoutSec = 1
	cfg.Logging.Enabled = false
	return cfg
}

func newTestPool(t *testing.T, f Factory, mutate ...func(*config.Config)) *Pool {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	return New(f, cfg)
}

// =============================================================================
// Creation
// =============================================================================

func TestGet_CreatesThenReuses(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	h1, err := w.Default()
	require.NoError(t, err)
	require.NotNil(t, h1)
	require.Equal(t, 1, f.callCount())

	h2, err := w.Default()
	require.NoError(t, err)
	assert.Same(t, h1, h2, "second lookup must return the registered handle")
	assert.Equal(t, 1, f.callCount(), "factory must not be invoked on a hit")
}

func TestGet_UsesCapabilitiesOverride(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	w.SetCapabilities(caps.Capabilities{"browser": "chrome"})
	_, err := w.Get("default")
	require.NoError(t, err)
	assert.Equal(t, "chrome", f.capsSeen()["browser"])

	// The override is read, not consumed: a second named creation sees it too.
	_, err = w.Get("second")
	require.NoError(t, err)
	assert.Equal(t, "chrome", f.capsSeen()["browser"])
}

func TestCreate_PoolExhausted(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f, func(c *config.Config) { c.Pool.MaxDriverCount = 1 })
	w := p.Worker("w1")

	_, err := w.Default()
	require.NoError(t, err)

	_, err = w.Get("second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPoolExhausted))
	assert.Equal(t, 1, f.callCount(), "capacity check must precede the factory call")
}

func TestCreate_DuplicateName(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	_, err := w.Default()
	require.NoError(t, err)

	// Get short-circuits on a hit, so drive the pipeline directly.
	_, err = w.createDriver(DefaultName, nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateName))
	assert.Equal(t, 1, f.callCount(), "duplicate check must precede the factory call")
}

func TestCreate_RetriesThenSucceeds(t *testing.T) {
	f := &fakeFactory{failures: 2}
	p := newTestPool(t, f, func(c *config.Config) { c.Pool.InitRetryCount = 2 })
	w := p.Worker("w1")

	h, err := w.Default()
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, 3, f.callCount())

	// The record must reflect the successful attempt's handle.
	recs := w.Sessions()
	require.Len(t, recs, 1)
	assert.Same(t, h, recs[0].Handle())
}

func TestCreate_RetriesExhausted(t *testing.T) {
	f := &fakeFactory{failures: 2}
	p := newTestPool(t, f, func(c *config.Config) { c.Pool.InitRetryCount = 1 })
	w := p.Worker("w1")

	_, err := w.Default()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDriverInitFailed))
	assert.Contains(t, err.Error(), "simulated init failure 2", "must carry the last underlying error")
	assert.Equal(t, 2, f.callCount())
	assert.False(t, w.IsRegistered(DefaultName))
}

func TestCreate_ZeroRetryCountMeansSingleAttempt(t *testing.T) {
	f := &fakeFactory{failures: 1}
	p := newTestPool(t, f, func(c *config.Config) { c.Pool.InitRetryCount = 0 })
	w := p.Worker("w1")

	_, err := w.Default()
	require.Error(t, err)
	assert.Equal(t, 1, f.callCount())
}

func TestCreate_FailedAttemptDisconnectsDevice(t *testing.T) {
	f := &fakeFactory{failures: 1}
	p := newTestPool(t, f, func(c *config.Config) { c.Pool.InitRetryCount = 1 })
	w := p.Worker("w1")

	dev := &fakeDevice{name: "pixel", udid: "UD1"}
	w.RegisterDevice(dev)

	_, err := w.Default()
	require.NoError(t, err)
	assert.Equal(t, 1, dev.disconnectCount(), "tentatively associated device must be released on a failed attempt")
}

func TestCreate_AttachesRegisteredDevice(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	dev := &fakeDevice{name: "pixel", udid: "UD1"}
	w.RegisterDevice(dev)

	_, err := w.Default()
	require.NoError(t, err)
	assert.Equal(t, dev, w.Device())
}

// =============================================================================
// Worker isolation and concurrency
// =============================================================================

func TestRegisterDevice_PerWorkerIsolation(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w1 := p.Worker("w1")
	w2 := p.Worker("w2")

	dev := &fakeDevice{name: "pixel", udid: "UD1"}
	w1.RegisterDevice(dev)

	_, err := w2.Default()
	require.NoError(t, err)
	assert.True(t, device.IsNull(w2.Device()), "another worker's registration must not leak")

	_, err = w1.Default()
	require.NoError(t, err)
	assert.Equal(t, dev, w1.Device())
}

func TestConcurrentCreation_FiftyWorkers(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f, func(c *config.Config) { c.Pool.MaxDriverCount = 100 })

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w := p.Worker(fmt.Sprintf("w%d", n))
			if _, err := w.Get(fmt.Sprintf("session-%d", n)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent creation failed: %v", err)
	}

	recs := p.Sessions()
	require.Len(t, recs, workers)
	for _, rec := range recs {
		assert.Equal(t, fmt.Sprintf("session-%s", rec.OwnerID()[1:]), rec.Name(), "record must be owned by its creator")
	}
}

// =============================================================================
// Cross-worker lookups
// =============================================================================

func TestBySessionID_FindsAcrossWorkers(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)

	h1, err := p.Worker("w1").Default()
	require.NoError(t, err)
	_, err = p.Worker("w2").Default()
	require.NoError(t, err)

	found, err := p.BySessionID(h1.SessionID())
	require.NoError(t, err)
	assert.Same(t, h1, found)
}

func TestBySessionID_UnwrapsDecoratedHandles(t *testing.T) {
	inner := newFakeHandle()
	f := &fakeFactory{makeHandle: func(string) Handle { return &wrappedHandle{inner: inner} }}
	p := newTestPool(t, f)

	h, err := p.Worker("w1").Default()
	require.NoError(t, err)

	found, err := p.BySessionID(inner.SessionID())
	require.NoError(t, err)
	assert.Same(t, h, found, "lookup must return the registered (wrapped) handle")
}

func TestBySessionID_NotFound(t *testing.T) {
	p := newTestPool(t, &fakeFactory{})

	_, err := p.BySessionID("no-such-session")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDriverNotFound))
}

func TestByDevice(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	dev := &fakeDevice{name: "pixel", udid: "UD1"}
	w.RegisterDevice(dev)
	h, err := w.Default()
	require.NoError(t, err)

	found, ok := p.ByDevice(dev)
	require.True(t, ok)
	assert.Same(t, h, found)

	_, ok = p.ByDevice(&fakeDevice{name: "other", udid: "UD2"})
	assert.False(t, ok)

	_, ok = p.ByDevice(device.Null)
	assert.False(t, ok)
}

func TestDeviceByName_UnregisteredReturnsNull(t *testing.T) {
	p := newTestPool(t, &fakeFactory{})
	w := p.Worker("w1")

	dev := w.DeviceByName("nope")
	require.NotNil(t, dev)
	assert.True(t, device.IsNull(dev))
}

func TestLastRegisteredDevice(t *testing.T) {
	p := newTestPool(t, &fakeFactory{})
	w := p.Worker("w1")

	assert.True(t, device.IsNull(w.LastRegisteredDevice()))
	assert.False(t, w.IsDeviceRegistered())

	dev := &fakeDevice{name: "pixel", udid: "UD1"}
	w.RegisterDevice(dev)
	assert.Equal(t, dev, w.LastRegisteredDevice())
	assert.True(t, w.IsDeviceRegistered())

	w.ClearDevice()
	assert.True(t, device.IsNull(w.LastRegisteredDevice()))
}

func TestRegisterDevice_ConnectOnRegister(t *testing.T) {
	p := newTestPool(t, &fakeFactory{}, func(c *config.Config) { c.Device.ConnectOnRegister = true })
	w := p.Worker("w1")

	dev := &fakeDevice{name: "pixel", udid: "UD1"}
	w.RegisterDevice(dev)

	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.Equal(t, 1, dev.connects)
}

// =============================================================================
// Pool close
// =============================================================================

func TestPoolClose_QuitsEverything(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)

	var handles []*fakeHandle
	for i := 0; i < 3; i++ {
		h, err := p.Worker(fmt.Sprintf("w%d", i)).Default()
		require.NoError(t, err)
		handles = append(handles, h.(*fakeHandle))
	}

	p.Close()

	assert.Empty(t, p.Sessions())
	for _, h := range handles {
		assert.True(t, h.wasQuit())
	}
}

func TestPhaseSourceStampsRecords(t *testing.T) {
	tracker := phase.NewTracker()
	f := &fakeFactory{}
	cfg := testConfig()
	p := New(f, cfg, WithPhaseSource(tracker))
	w := p.Worker("w1")

	tracker.Set("w1", phase.BeforeClass)
	_, err := w.Get("classy")
	require.NoError(t, err)

	recs := w.Sessions()
	require.Len(t, recs, 1)
	assert.Equal(t, phase.BeforeClass, recs[0].Phase())
}
