package watchdog

// Node is a single armed/disarmed deadline slot created by
// Watchdog.Create. Its fields are only ever touched by its owning
// Watchdog under that watchdog's mutex; Node itself holds no lock.
type Node struct {
	wd        *Watchdog
	Name      string
	timeoutMs int64
	cb        TimeoutFunc
	arg       any

	active    bool
	count     int64
	destroyed bool
}

// Arg returns the user-supplied value passed to Create.
func (n *Node) Arg() any {
	return n.arg
}

// TimeoutMs returns the clamped timeout this node was created with.
func (n *Node) TimeoutMs() int64 {
	return n.timeoutMs
}

// Start arms n: the looper calls this immediately before invoking a
// handler it wants supervised.
func (n *Node) Start() {
	n.wd.Start(n)
}

// Feed resets n's accumulated idle time without disarming it.
func (n *Node) Feed() {
	n.wd.Feed(n)
}

// Stop disarms n: the looper calls this immediately after a supervised
// handler returns.
func (n *Node) Stop() {
	n.wd.Stop(n)
}

// Destroy removes n from its watchdog permanently.
func (n *Node) Destroy() {
	n.wd.Destroy(n)
}
