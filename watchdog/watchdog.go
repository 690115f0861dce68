// Package watchdog implements the tick-driven handler-execution deadline
// supervisor that a Looper arms around each callback invocation.
//
// A set of armed nodes lives behind a single mutex/condvar; a
// background ticker is lazily started on first use and blocks entirely
// while nothing is armed. The default timeout callback is a real
// process-fatal log call via go.uber.org/zap's Logger.Fatal, which logs
// then terminates the process unconditionally.
package watchdog

import (
	"log/slog"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimeoutFunc is invoked when an armed Node's accumulated idle time
// exceeds its timeout. It runs on the watchdog's own ticker goroutine,
// never on the looper thread that armed the node.
type TimeoutFunc func(n *Node)

// Config controls a Watchdog's tick cadence and logging.
type Config struct {
	// TickInterval is the ticker's period. Defaults to 100ms. Per
	// Node minimum enforceable timeout is 10*TickInterval.
	TickInterval time.Duration
	// Logger receives a Warn line for each node that expires; arm, feed
	// and disarm are not logged. Defaults to slog.Default().
	Logger *slog.Logger
	// Fatal backs the default timeout callback used by nodes created
	// without an explicit TimeoutFunc. Defaults to a production zap
	// logger (falling back to a no-op core if one cannot be built);
	// either way Logger.Fatal still terminates the process, since
	// zap's Fatal level always exits after logging regardless of core.
	Fatal *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Fatal == nil {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		c.Fatal = l
	}
	return c
}

// Watchdog is a process-scoped (or test-scoped) supervisor of armed
// Nodes. The zero value is not usable; construct with New.
type Watchdog struct {
	mu          sync.Mutex
	cond        *sync.Cond
	nodes       map[*Node]struct{}
	activeCount int
	exitPending bool
	started     bool

	tick           time.Duration
	log            *slog.Logger
	wg             sync.WaitGroup
	defaultTimeout TimeoutFunc
}

var (
	singletonOnce sync.Once
	singleton     *Watchdog
)

// Singleton returns the process-wide Watchdog, lazily constructed on
// first call with default Config.
func Singleton() *Watchdog {
	singletonOnce.Do(func() {
		singleton = New(Config{})
	})
	return singleton
}

// New constructs a standalone Watchdog. Most callers should use
// Singleton; New exists for tests and for callers that want isolated
// tick cadences per subsystem.
func New(cfg Config) *Watchdog {
	cfg = cfg.withDefaults()
	w := &Watchdog{
		nodes: make(map[*Node]struct{}),
		tick:  cfg.TickInterval,
		log:   cfg.Logger,
	}
	w.cond = sync.NewCond(&w.mu)
	w.defaultTimeout = func(n *Node) {
		cfg.Fatal.Fatal("watchdog node timed out",
			zap.String("node", n.Name),
			zap.Int64("timeout_ms", n.timeoutMs),
		)
	}
	return w
}

// Create returns a new, initially inactive Node, clamping timeout up to
// a minimum of 10*TickInterval. Starts the ticker goroutine on first
// call.
func (w *Watchdog) Create(name string, timeout time.Duration, cb TimeoutFunc, arg any) *Node {
	w.startOnce()
	min := 10 * w.tick
	if timeout < min {
		timeout = min
	}
	if cb == nil {
		cb = w.defaultTimeout
	}
	n := &Node{wd: w, Name: name, timeoutMs: timeout.Milliseconds(), cb: cb, arg: arg}
	w.mu.Lock()
	w.nodes[n] = struct{}{}
	w.mu.Unlock()
	return n
}

func (w *Watchdog) startOnce() {
	w.mu.Lock()
	already := w.started
	w.started = true
	w.mu.Unlock()
	if !already {
		w.wg.Add(1)
		go w.loop()
	}
}

// Start marks n active, resets its accumulated idle time, and wakes the
// ticker if it was blocked on an empty active set. A node that has
// already fired once (and was dropped from the active set as a result)
// is re-registered, so the same Node can be armed again for its next
// handler invocation; a node that was explicitly Destroy'd is not.
func (w *Watchdog) Start(n *Node) {
	w.mu.Lock()
	if n.destroyed {
		w.mu.Unlock()
		return
	}
	if _, ok := w.nodes[n]; !ok {
		w.nodes[n] = struct{}{}
	}
	if !n.active {
		n.active = true
		w.activeCount++
	}
	n.count = 0
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Feed resets n's accumulated idle time to zero if n is active;
// otherwise it is a no-op. Multiple feeds between ticks are
// equivalent to one.
func (w *Watchdog) Feed(n *Node) {
	w.mu.Lock()
	if n.active {
		n.count = 0
	}
	w.mu.Unlock()
}

// Stop marks n inactive and resets its idle time.
func (w *Watchdog) Stop(n *Node) {
	w.mu.Lock()
	if n.active {
		n.active = false
		w.activeCount--
	}
	n.count = 0
	w.mu.Unlock()
}

// Destroy removes n from the watchdog entirely. Unlike Stop, a
// destroyed node can never be rearmed by a later Start.
func (w *Watchdog) Destroy(n *Node) {
	w.mu.Lock()
	n.destroyed = true
	if _, ok := w.nodes[n]; ok {
		delete(w.nodes, n)
		if n.active {
			n.active = false
			w.activeCount--
		}
	}
	w.mu.Unlock()
}

// Close stops the ticker goroutine. Only meaningful for Watchdogs built
// with New; the process Singleton is never closed.
func (w *Watchdog) Close() {
	w.mu.Lock()
	w.exitPending = true
	w.cond.Broadcast()
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watchdog) loop() {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		for w.activeCount == 0 && !w.exitPending {
			w.cond.Wait()
		}
		if w.exitPending {
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		time.Sleep(w.tick)

		w.mu.Lock()
		if w.exitPending {
			w.mu.Unlock()
			return
		}
		var fired []*Node
		tickMs := w.tick.Milliseconds()
		for n := range w.nodes {
			if !n.active {
				continue
			}
			n.count += tickMs
			if n.count > n.timeoutMs {
				fired = append(fired, n)
				delete(w.nodes, n)
				n.active = false
				w.activeCount--
			}
		}
		w.mu.Unlock()

		for _, n := range fired {
			w.log.Warn("watchdog node expired", "node", n.Name, "timeout_ms", n.timeoutMs)
			n.cb(n)
		}
	}
}
