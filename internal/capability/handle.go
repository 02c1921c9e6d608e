package capability

import (
	"sync"
)

type State int

const (
	NotConfigured State = iota
	Unauthenticated
	Ready
)

func (s State) String() string {
	switch s {
	case NotConfigured:
		return "not configured"
	case Unauthenticated:
		return "unauthenticated"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Availability is the view the dispatcher has of a collaborator.
type Availability interface {
	Name() string
	State() State
}

// Handle owns one collaborator and its lifecycle state.
//
// A nil *Handle is valid and reports NotConfigured, so a service that failed
// to construct can still be referenced from the catalogue.
type Handle[T any] struct {
	mu    sync.RWMutex
	name  string
	svc   T
	state State
	err   error
}

func NewHandle[T any](name string) *Handle[T] {
	return &Handle[T]{name: name}
}

// Configure stores the service. It is not usable until MarkReady.
func (h *Handle[T]) Configure(svc T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.svc = svc
	h.state = Unauthenticated
	h.err = nil
}

// Ready stores the service and marks it usable in one step.
func (h *Handle[T]) Ready(svc T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.svc = svc
	h.state = Ready
	h.err = nil
}

func (h *Handle[T]) MarkReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == NotConfigured {
		return
	}
	h.state = Ready
	h.err = nil
}

// Fail records why the service is not usable and demotes a ready service
// back to Unauthenticated.
func (h *Handle[T]) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
	if h.state == Ready {
		h.state = Unauthenticated
	}
}

func (h *Handle[T]) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

func (h *Handle[T]) State() State {
	if h == nil {
		return NotConfigured
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *Handle[T]) Err() error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Get returns the service only when it is ready.
func (h *Handle[T]) Get() (T, bool) {
	var zero T
	if h == nil {
		return zero, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state != Ready {
		return zero, false
	}
	return h.svc, true
}

// Peek returns the stored service regardless of state, e.g. to close it.
func (h *Handle[T]) Peek() (T, bool) {
	var zero T
	if h == nil {
		return zero, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state == NotConfigured {
		return zero, false
	}
	return h.svc, true
}
