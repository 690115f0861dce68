// Package msgloop provides a message-loop concurrency toolkit modeled
// after the Android Looper/Handler pattern.
//
// # Overview
//
// Application code queues timestamped Messages to a Looper, which owns
// a single worker goroutine and drains them in (when, insertion order)
// order. A Handler is a thin, non-owning facade that binds a Target
// (an {OnHandle, OnFree} callback pair) to a Looper, so independent
// senders can share one looper and later bulk-remove only the messages
// they posted. A Watchdog supervises handler-execution time: a Looper
// arms its node immediately before calling a handler and disarms it
// immediately after, firing a user (or process-fatal default) callback
// if the handler overran.
//
// # Ordering
//
// Messages are totally ordered by (When ascending, insertion sequence
// ascending). A single sender's posts with non-decreasing When values
// are delivered in post order; PostFront always becomes the next
// message dispatched, even over an already-due head message.
//
// # Timeouts vs. the Watchdog
//
// A Message's own TimeoutMs bounds queueing latency only — time
// between Post and dispatch — and causes the message to be discarded
// (TimeoutFunc invoked, HandleFunc not) rather than delivered late. It
// is not a handler-execution deadline: once a handler starts, only the
// Watchdog observes how long it runs, and an overrun handler is never
// interrupted, only reported.
//
// # Ownership and removal
//
// RemoveMessages/RemoveMessagesFunc only reach messages owned by the
// Poster passed in. Ownership is keyed by an explicit Poster capability
// (see message.Poster) rather than by inferred thread identity, since
// Go exposes no portable comparable goroutine identity to library code.
//
// # Lifecycle
//
// A Looper moves Created -> Running -> ExitPending -> Exited. Start is
// idempotent; Stop signals exit without waiting; StopSafely additionally
// blocks until the worker has drained its queue (running only the free
// path, never handlers, for anything left queued) and exited. Calling
// StopSafely from the looper's own worker goroutine is refused with
// ErrSelfJoin rather than deadlocking.
//
// # Concurrency model
//
// Each Looper has exactly one worker goroutine; it is the only
// goroutine that ever calls a HandleFunc/FreeFunc/TimeoutFunc for that
// looper. Post/PostDelay/PostFront never block on dispatch. The
// Watchdog ticker is a single, lazily started background goroutine per
// Watchdog (shared across every looper that enables it), blocking
// entirely while no node is armed.
package msgloop
