package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkit/driverpool/caps"
	"github.com/gridkit/driverpool/config"
	"github.com/gridkit/driverpool/errors"
	"github.com/gridkit/driverpool/phase"
)

// =============================================================================
// Single-session teardown
// =============================================================================

func TestQuitNamed_RemovesRecord(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	h, err := w.Default()
	require.NoError(t, err)

	require.NoError(t, w.Quit())
	assert.False(t, w.IsRegistered(DefaultName))
	assert.Empty(t, p.Sessions())
	assert.True(t, h.(*fakeHandle).wasQuit())
}

func TestQuitNamed_NotFound(t *testing.T) {
	p := newTestPool(t, &fakeFactory{})
	w := p.Worker("w1")

	err := w.QuitNamed("ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDriverNotFound))
}

func TestQuitNamed_RemovesEvenWhenQuitFails(t *testing.T) {
	h := newFakeHandle()
	h.quitErr = errors.NewProtocolError("session already terminated", nil)
	f := &fakeFactory{makeHandle: func(string) Handle { return h }}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	_, err := w.Default()
	require.NoError(t, err)

	require.NoError(t, w.Quit(), "teardown failures are swallowed")
	assert.Empty(t, p.Sessions(), "record must be removed regardless of quit outcome")
}

func TestQuitNamed_RemovesEvenOnTimeout(t *testing.T) {
	h := newFakeHandle()
	h.quitDelay = 2 * time.Second
	f := &fakeFactory{makeHandle: func(string) Handle { return h }}
	p := newTestPool(t, f) // close timeout is 1s in testConfig
	w := p.Worker("w1")

	_, err := w.Default()
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, w.Quit())
	assert.Less(t, time.Since(start), 2*time.Second, "quit must give up at the configured timeout")
	assert.Empty(t, p.Sessions())
}

func TestQuitNamed_UnwrapsBeforeShutdown(t *testing.T) {
	inner := newFakeHandle()
	wrapper := &wrappedHandle{inner: inner}
	f := &fakeFactory{makeHandle: func(string) Handle { return wrapper }}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	_, err := w.Default()
	require.NoError(t, err)
	require.NoError(t, w.Quit())

	assert.True(t, inner.wasQuit(), "shutdown must reach the innermost handle")
	wrapper.mu.Lock()
	defer wrapper.mu.Unlock()
	assert.False(t, wrapper.quit, "shutdown must not be issued on the decorator")
}

func TestQuitNamed_CloseBeforeQuit(t *testing.T) {
	h := newFakeHandle()
	f := &fakeFactory{makeHandle: func(string) Handle { return h }}
	p := newTestPool(t, f, func(c *config.Config) { c.Pool.CloseBeforeQuit = true })
	w := p.Worker("w1")

	_, err := w.Default()
	require.NoError(t, err)
	require.NoError(t, w.Quit())

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.True(t, h.closed)
	assert.True(t, h.quit)
}

func TestQuitNamed_DisconnectsDevice(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	dev := &fakeDevice{name: "pixel", udid: "UD1"}
	w.RegisterDevice(dev)
	_, err := w.Default()
	require.NoError(t, err)

	require.NoError(t, w.Quit())
	assert.Equal(t, 1, dev.disconnectCount())
}

// =============================================================================
// Bulk teardown
// =============================================================================

func TestQuitByPhases_OwnerAndPhaseFiltered(t *testing.T) {
	tracker := phase.NewTracker()
	f := &fakeFactory{}
	p := New(f, testConfig(), WithPhaseSource(tracker))
	w1 := p.Worker("w1")
	w2 := p.Worker("w2")

	tracker.Set("w1", phase.Method)
	_, err := w1.Get("method-session")
	require.NoError(t, err)

	tracker.Set("w1", phase.BeforeClass)
	_, err = w1.Get("class-session")
	require.NoError(t, err)

	tracker.Set("w2", phase.Method)
	h2, err := w2.Get("method-session")
	require.NoError(t, err)

	w1.QuitByPhases(phase.Method)

	assert.False(t, w1.IsRegistered("method-session"))
	assert.True(t, w1.IsRegistered("class-session"), "other phases survive")
	assert.True(t, w2.IsRegistered("method-session"), "other workers' sessions survive")
	assert.False(t, h2.(*fakeHandle).wasQuit())
	assert.Len(t, p.Sessions(), 2)
}

func TestQuitByPhases_AllWildcard(t *testing.T) {
	tracker := phase.NewTracker()
	f := &fakeFactory{}
	p := New(f, testConfig(), WithPhaseSource(tracker))
	w1 := p.Worker("w1")
	w2 := p.Worker("w2")

	tracker.Set("w1", phase.BeforeSuite)
	_, err := w1.Get("suite-session")
	require.NoError(t, err)

	tracker.Set("w2", phase.Method)
	_, err = w2.Get("method-session")
	require.NoError(t, err)

	w1.QuitByPhases(phase.All)

	assert.Empty(t, p.Sessions(), "wildcard tears down every session regardless of owner or phase")
}

func TestQuitByPhases_ClearsCapabilitiesOverride(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	w.SetCapabilities(caps.Capabilities{"browser": "chrome"})
	_, err := w.Default()
	require.NoError(t, err)

	w.QuitByPhases(phase.Method)

	_, err = w.Default()
	require.NoError(t, err)
	assert.NotContains(t, f.capsSeen(), "browser", "bulk teardown must drop the override")
}

func TestQuitByPhases_NoMatchIsNoop(t *testing.T) {
	f := &fakeFactory{}
	p := newTestPool(t, f)
	w := p.Worker("w1")

	_, err := w.Default()
	require.NoError(t, err)

	w.QuitByPhases(phase.AfterSuite)
	assert.Len(t, p.Sessions(), 1)
}
