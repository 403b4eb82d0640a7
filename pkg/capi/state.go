// Package capi bridges native extension code to the managed runtime. It
// provides stable refcounted handles over relocatable objects, generic
// protocol operations, a format-driven argument binder and the buffer
// exporter. All entry points must run with the state's execution lock
// held; the runtime itself is single-threaded.
package capi

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrigankpawagi/skybison/pkg/runtime"
)

const defaultRecursionLimit = 1000

// State ties a runtime to the native bridge: the handle bookkeeping, the
// execution lock, the compiled format cache and the call-depth guard.
type State struct {
	rt  *runtime.Runtime
	mu  sync.Mutex
	log zerolog.Logger

	live      map[*Handle]struct{}
	descCache map[string]*Descriptor

	depth          int
	recursionLimit int
}

// Option configures a State.
type Option func(*State)

// WithLogger attaches a structured logger; the default discards.
func WithLogger(log zerolog.Logger) Option {
	return func(s *State) { s.log = log }
}

// WithRecursionLimit bounds nested dispatch depth before the bridge raises
// RecursionError-style RuntimeError instead of exhausting the native stack.
func WithRecursionLimit(n int) Option {
	return func(s *State) { s.recursionLimit = n }
}

// NewState wraps a runtime for native access.
func NewState(rt *runtime.Runtime, opts ...Option) *State {
	s := &State{
		rt:             rt,
		log:            zerolog.Nop(),
		live:           make(map[*Handle]struct{}),
		descCache:      make(map[string]*Descriptor),
		recursionLimit: defaultRecursionLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Runtime returns the underlying runtime.
func (s *State) Runtime() *runtime.Runtime { return s.rt }

// Lock acquires the global execution lock. Native threads hold it across
// any sequence of bridge calls; refcounts and runtime state mutate only
// under it.
func (s *State) Lock() { s.mu.Lock() }

// Unlock releases the global execution lock.
func (s *State) Unlock() { s.mu.Unlock() }

// Do runs fn with the execution lock held.
func (s *State) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// enterCall bumps the dispatch depth, raising when the configured limit is
// exceeded.
func (s *State) enterCall() bool {
	s.depth++
	if s.depth > s.recursionLimit {
		s.depth--
		s.rt.Raise(runtime.RuntimeError, "maximum recursion depth exceeded")
		return false
	}
	return true
}

func (s *State) leaveCall() { s.depth-- }

// HasPendingError reports whether the runtime has a pending condition.
func (s *State) HasPendingError() bool { return s.rt.HasPendingError() }

// PendingError returns the pending condition, or nil.
func (s *State) PendingError() *runtime.RaisedError { return s.rt.PendingError() }

// ClearPendingError drops the pending condition.
func (s *State) ClearPendingError() { s.rt.ClearPendingError() }
