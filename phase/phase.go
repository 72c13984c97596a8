// Package phase classifies the lifecycle stage a session was created
// in. The phase governs session sharing (BeforeSuite sessions are
// visible to every worker) and bulk teardown grouping.
package phase

import (
	"fmt"
	"strings"
	"sync"
)

// Phase is a test lifecycle stage.
type Phase int

const (
	// BeforeSuite marks sessions shared globally across all workers.
	BeforeSuite Phase = iota
	BeforeClass
	BeforeMethod
	// Method is the default phase for sessions created inside a test.
	Method
	AfterMethod
	AfterClass
	AfterSuite
	// All is a wildcard accepted by bulk teardown, never stored on a session.
	All
)

// String returns the canonical lowercase name of the phase.
func (p Phase) String() string {
	switch p {
	case BeforeSuite:
		return "before-suite"
	case BeforeClass:
		return "before-class"
	case BeforeMethod:
		return "before-method"
	case Method:
		return "method"
	case AfterMethod:
		return "after-method"
	case AfterClass:
		return "after-class"
	case AfterSuite:
		return "after-suite"
	case All:
		return "all"
	default:
		return "unknown"
	}
}

// Parse converts a phase name to a Phase. Matching is case-insensitive.
func Parse(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "before-suite":
		return BeforeSuite, nil
	case "before-class":
		return BeforeClass, nil
	case "before-method":
		return BeforeMethod, nil
	case "method":
		return Method, nil
	case "after-method":
		return AfterMethod, nil
	case "after-class":
		return AfterClass, nil
	case "after-suite":
		return AfterSuite, nil
	case "all":
		return All, nil
	default:
		return Method, fmt.Errorf("unknown phase %q", s)
	}
}

// Source reports the lifecycle phase currently active for a worker.
// The pool consumes this to stamp new session records.
type Source interface {
	Active(workerID string) Phase
}

// Tracker is the default Source implementation: a concurrency-safe map
// of worker identity to active phase. Workers that never set a phase
// are considered to be in Method.
type Tracker struct {
	mu     sync.RWMutex
	active map[string]Phase
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]Phase)}
}

// Set records the active phase for a worker.
func (t *Tracker) Set(workerID string, p Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[workerID] = p
}

// Active returns the worker's current phase, defaulting to Method.
func (t *Tracker) Active(workerID string) Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.active[workerID]; ok {
		return p
	}
	return Method
}

// Clear removes the worker's phase entry. Intended for worker teardown.
func (t *Tracker) Clear(workerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, workerID)
}
