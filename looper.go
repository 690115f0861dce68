package msgloop

import (
	"bytes"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/romanqed/msgloop/internal/lifecycle"
	"github.com/romanqed/msgloop/internal/queue"
	"github.com/romanqed/msgloop/message"
	"github.com/romanqed/msgloop/watchdog"
)

// LooperConfig configures a Looper at construction.
type LooperConfig struct {
	// Name identifies the looper in logs and in diagnostics records.
	// Go cannot portably rename the OS thread a goroutine happens to
	// run on (goroutines migrate between OS threads), so this becomes
	// a structured logging field instead of a kernel-visible thread
	// name.
	Name string
	// DefaultHandleFunc and DefaultFreeFunc back messages posted
	// without their own per-message callbacks.
	DefaultHandleFunc message.HandleFunc
	DefaultFreeFunc   message.FreeFunc
	// Logger receives lifecycle and dispatch diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Stats reports cumulative, cheap-to-maintain counters for a Looper,
// for general diagnostics. Dump does not include them.
type Stats struct {
	Dispatched uint64
	Discarded  uint64
	Removed    uint64
}

// DumpEntry is one queued message as reported by Looper.Dump.
type DumpEntry struct {
	What     int
	Arg1     int
	Arg2     int
	When     time.Time
	Deadline time.Time
}

func (e DumpEntry) String() string {
	return fmt.Sprintf("what=%d arg1=%d arg2=%d when=%s", e.What, e.Arg1, e.Arg2, e.When.Format(time.RFC3339Nano))
}

// Looper owns a single worker goroutine and the time-ordered message
// sequence it drains: a dedicated dispatch goroutine, an ordered queue,
// and a Created/Running/ExitPending/Exited state machine (see
// internal/lifecycle).
type Looper struct {
	name string
	log  *slog.Logger

	q  *queue.Queue
	lc *lifecycle.Machine

	defaultHandle message.HandleFunc
	defaultFree   message.FreeFunc

	wd     *watchdog.Watchdog
	wdNode atomic.Pointer[watchdog.Node]

	ownerGoroutine atomic.Pointer[string]

	dispatched atomic.Uint64
	discarded  atomic.Uint64
	removed    atomic.Uint64
}

// Create returns a non-running Looper. A goroutine-backed looper has
// no OS-resource-exhaustion failure mode short of the runtime already
// being out of memory (which panics, not errors), so Create has no
// error return.
func Create(cfg LooperConfig) *Looper {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Looper{
		name:          cfg.Name,
		log:           log.With("looper", cfg.Name),
		q:             queue.New(),
		lc:            lifecycle.New(),
		defaultHandle: cfg.DefaultHandleFunc,
		defaultFree:   cfg.DefaultFreeFunc,
	}
}

// NewPoster returns a fresh Poster a caller can stamp on messages it
// posts directly to this (or any) Looper, enabling owner-scoped
// removal without going through a Handler.
func (l *Looper) NewPoster() message.Poster {
	return message.NewPoster()
}

// Start spawns the worker goroutine if the looper is not already
// running. Idempotent: calling it again while already running is not
// an error. It only fails once Stop has been requested (ExitPending) or
// the looper has reached its terminal Exited state.
func (l *Looper) Start() error {
	if l.lc.IsTerminal() {
		return ErrLooperExited
	}
	started, _ := l.lc.TryStart()
	if !started {
		return nil
	}
	go l.run()
	return nil
}

// Stop signals the worker to exit and returns immediately. Safe to
// call from any goroutine, including repeatedly; it never blocks and
// never joins the worker.
func (l *Looper) Stop() {
	l.lc.RequestExit()
	l.q.RequestExit()
}

// StopSafely signals exit like Stop and additionally blocks until the
// worker has drained and exited. Calling it from the looper's own
// worker goroutine is a documented misuse (it would deadlock): this
// logs a warning and returns ErrSelfJoin immediately instead of
// blocking.
func (l *Looper) StopSafely() error {
	if l.calledFromOwnGoroutine() {
		l.log.Warn("stop_safely called from the looper's own goroutine; refusing to join")
		return ErrSelfJoin
	}
	l.Stop()
	<-l.lc.Done()
	return nil
}

// State reports the looper's current lifecycle state.
func (l *Looper) State() lifecycle.State {
	return l.lc.State()
}

// MessageCount returns a point-in-time snapshot of the number of
// messages currently queued. Not meant to drive scheduling decisions.
func (l *Looper) MessageCount() int {
	return l.q.Len()
}

// Stats returns the looper's cumulative dispatch counters.
func (l *Looper) Stats() Stats {
	return Stats{
		Dispatched: l.dispatched.Load(),
		Discarded:  l.discarded.Load(),
		Removed:    l.removed.Load(),
	}
}

// Dump returns the current queue contents in dispatch order, for
// diagnostics, without removing anything.
func (l *Looper) Dump() []DumpEntry {
	snap := l.q.Snapshot()
	out := make([]DumpEntry, len(snap))
	for i, m := range snap {
		out[i] = DumpEntry{What: m.What, Arg1: m.Arg1, Arg2: m.Arg2, When: m.When, Deadline: m.Deadline}
	}
	return out
}

// Post schedules msg for dispatch at the current time.
func (l *Looper) Post(msg *message.Message) error {
	return l.post(msg, 0)
}

// PostDelay schedules msg for dispatch at now+delay.
func (l *Looper) PostDelay(msg *message.Message, delay time.Duration) error {
	return l.post(msg, delay)
}

func (l *Looper) post(msg *message.Message, delay time.Duration) error {
	if msg == nil {
		return ErrNilMessage
	}
	if msg.HandleFunc == nil && l.defaultHandle == nil {
		l.free(msg)
		return ErrNoHandler
	}
	if msg.TimeoutMs > 0 && msg.TimeoutMs <= delay.Milliseconds() {
		l.free(msg)
		return ErrTimeoutBeforeDelay
	}
	now := time.Now()
	if msg.TimeoutMs > 0 {
		msg.Deadline = now.Add(time.Duration(msg.TimeoutMs) * time.Millisecond)
	}
	l.q.Push(msg, now.Add(delay))
	return nil
}

// PostFront schedules msg so that it becomes the next message
// dispatched: its When is clamped to no later than the current head's
// When.
func (l *Looper) PostFront(msg *message.Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if msg.HandleFunc == nil && l.defaultHandle == nil {
		l.free(msg)
		return ErrNoHandler
	}
	now := time.Now()
	if msg.TimeoutMs > 0 {
		msg.Deadline = now.Add(time.Duration(msg.TimeoutMs) * time.Millisecond)
	}
	l.q.PushFront(msg, now)
	return nil
}

// RemoveMessages removes every queued message with the given What that
// was posted by owner, freeing each synchronously before returning. It
// returns the number removed.
func (l *Looper) RemoveMessages(owner message.Poster, what int) int {
	return l.RemoveMessagesFunc(owner, func(m *message.Message) bool {
		return m.What == what
	})
}

// RemoveMessagesFunc generalizes RemoveMessages to an arbitrary
// predicate, still scoped to owner's own messages.
func (l *Looper) RemoveMessagesFunc(owner message.Poster, pred func(*message.Message) bool) int {
	if !owner.Valid() {
		return 0
	}
	removed := l.q.RemoveFunc(func(m *message.Message) bool {
		return m.Owner == owner && pred(m)
	})
	for _, m := range removed {
		l.free(m)
	}
	if n := len(removed); n > 0 {
		l.removed.Add(uint64(n))
		return n
	}
	return 0
}

// EnableWatchdog arms handler-execution supervision on wd (the process
// Singleton if wd is nil): every dispatched handler invocation on this
// looper is bounded by timeout, firing cb (or a process-fatal default)
// if exceeded.
func (l *Looper) EnableWatchdog(wd *watchdog.Watchdog, timeout time.Duration, cb watchdog.TimeoutFunc, arg any) {
	if wd == nil {
		wd = watchdog.Singleton()
	}
	l.wd = wd
	node := wd.Create(l.name, timeout, cb, arg)
	l.wdNode.Store(node)
}

// DisableWatchdog removes any watchdog supervision previously enabled
// via EnableWatchdog.
func (l *Looper) DisableWatchdog() {
	if n := l.wdNode.Swap(nil); n != nil {
		n.Destroy()
	}
	l.wd = nil
}

func (l *Looper) run() {
	l.recordOwnGoroutine()
	for {
		m, ok := l.q.Next()
		if !ok {
			break
		}
		l.dispatch(m)
	}
	for _, m := range l.q.Drain() {
		l.free(m)
	}
	l.lc.MarkExited()
}

func (l *Looper) dispatch(m *message.Message) {
	if !m.Deadline.IsZero() && m.Deadline.Before(time.Now()) {
		l.discarded.Add(1)
		if m.TimeoutFunc != nil {
			m.TimeoutFunc(m)
		}
		l.free(m)
		return
	}
	handle := m.HandleFunc
	if handle == nil {
		handle = l.defaultHandle
	}
	if handle == nil {
		l.log.Error("dispatch without handler", "what", m.What)
		l.free(m)
		return
	}
	node := l.wdNode.Load()
	if node != nil {
		node.Start()
	}
	l.safeHandle(handle, m)
	if node != nil {
		node.Stop()
	}
	l.dispatched.Add(1)
	l.free(m)
}

// safeHandle recovers a panicking handler so one bad message cannot
// bring down the worker goroutine and strand the rest of the queue.
func (l *Looper) safeHandle(handle message.HandleFunc, m *message.Message) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("handler panic recovered", "what", m.What, "panic", r)
		}
	}()
	handle(m)
}

func (l *Looper) free(m *message.Message) {
	if m.FreeFunc != nil {
		m.FreeFunc(m)
	} else if l.defaultFree != nil {
		l.defaultFree(m)
	}
	m.Recycle()
}

func (l *Looper) recordOwnGoroutine() {
	id := goroutineID()
	l.ownerGoroutine.Store(&id)
}

func (l *Looper) calledFromOwnGoroutine() bool {
	owner := l.ownerGoroutine.Load()
	if owner == nil {
		return false
	}
	return goroutineID() == *owner
}

// goroutineID extracts the calling goroutine's runtime-assigned id from
// its stack trace header ("goroutine 123 [running]:..."). Go exposes
// no official goroutine-identity API; parsing runtime.Stack's header is
// the well-known idiom substituting for one, needed only for the
// self-join guard in StopSafely.
func goroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line := buf[:n]
	const prefix = "goroutine "
	if bytes.HasPrefix(line, []byte(prefix)) {
		line = line[len(prefix):]
	}
	if i := bytes.IndexByte(line, ' '); i >= 0 {
		line = line[:i]
	}
	return string(line)
}
