// Package lifecycle implements the Created/Running/ExitPending/Exited
// state machine shared by Looper and the background workers in
// msgloop/diagnostics.
//
// It is an atomic.Int32 CAS guard with four states, distinguishing a
// requested-but-not-yet-observed exit from a fully drained one.
package lifecycle

import (
	"errors"
	"sync"
	"sync/atomic"
)

// State is one point in the Created -> Running -> ExitPending -> Exited
// progression. Exited is terminal; nothing transitions out of it.
type State int32

const (
	Created State = iota
	Running
	ExitPending
	Exited
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case ExitPending:
		return "ExitPending"
	case Exited:
		return "Exited"
	default:
		return "Unknown"
	}
}

// ErrTerminal names the condition of a machine that has already left
// Created/Running and cannot be restarted; a new Looper must be created.
// TryStart does not return it: it reports that case as
// started=false, alreadyRunning=false.
var ErrTerminal = errors.New("lifecycle: state machine is in a terminal or exiting state")

// Machine is a small atomic state machine plus a done channel that
// closes exactly once, when the owner calls MarkExited.
type Machine struct {
	state State32
	done  chan struct{}
	once  sync.Once
}

// State32 wraps atomic.Int32 with State-typed accessors, exposed as its
// own type so Machine can embed it without leaking the raw int32.
type State32 struct {
	v atomic.Int32
}

func (s *State32) Load() State           { return State(s.v.Load()) }
func (s *State32) cas(old, new State) bool { return s.v.CompareAndSwap(int32(old), int32(new)) }

// New returns a Machine in the Created state.
func New() *Machine {
	return &Machine{done: make(chan struct{})}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state.Load()
}

// TryStart attempts the Created->Running transition.
//
// started is true only for the caller that actually performed the
// transition (that caller, and only that caller, should spawn the
// worker goroutine). alreadyRunning is true when another caller won
// the race or the machine was already running — Start is documented as
// idempotent, so this is not an error. Once the machine has left
// Created/Running, both results are false; use IsTerminal to tell
// that case apart.
func (m *Machine) TryStart() (started, alreadyRunning bool) {
	if m.state.cas(Created, Running) {
		return true, false
	}
	return false, m.state.Load() == Running
}

// IsTerminal reports whether the machine can no longer be started.
func (m *Machine) IsTerminal() bool {
	switch m.state.Load() {
	case ExitPending, Exited:
		return true
	default:
		return false
	}
}

// RequestExit transitions Running (or Created) to ExitPending. It
// returns true the first time it succeeds; later calls are no-ops, so
// repeated calls are safe.
func (m *Machine) RequestExit() bool {
	for {
		cur := m.state.Load()
		if cur == ExitPending || cur == Exited {
			return false
		}
		if m.state.cas(cur, ExitPending) {
			return true
		}
	}
}

// MarkExited transitions to the terminal Exited state and closes Done.
// Safe to call more than once; only the first call has any effect.
func (m *Machine) MarkExited() {
	m.once.Do(func() {
		m.state.v.Store(int32(Exited))
		close(m.done)
	})
}

// Done returns a channel closed once MarkExited has run, for callers
// that need to block until the owning goroutine has fully exited.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}
