package message

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HandleFunc processes a dispatched message. Invoked on the owning
// Looper's worker goroutine only, never by the poster.
type HandleFunc func(m *Message)

// FreeFunc releases any resources m.Data holds. Runs exactly once per
// message regardless of which path (dispatch, timeout, removal, or
// shutdown drain) freed it.
type FreeFunc func(m *Message)

// TimeoutFunc is invoked instead of HandleFunc when a message's
// Deadline has already passed at dispatch time.
type TimeoutFunc func(m *Message)

// Poster identifies whoever posted a message, for owner-scoped
// removal. Go gives library code no portable, comparable notion of
// "the calling thread", so Poster is an explicit capability callers
// obtain once (from a Handler, or via NewPoster for bare Looper use)
// and stamp onto messages themselves.
type Poster struct {
	id uuid.UUID
}

// NewPoster returns a fresh, unique Poster.
func NewPoster() Poster {
	return Poster{id: uuid.New()}
}

// Valid reports whether p was obtained from NewPoster (as opposed to
// the zero value, which owns nothing and can never be the target of an
// owner-scoped removal).
func (p Poster) Valid() bool {
	return p.id != uuid.Nil
}

func (p Poster) String() string {
	return p.id.String()
}

// Message is a unit of work queued to a Looper.
//
// Between Post and dispatch/discard a Message is owned exclusively by
// the Looper it was posted to; nothing else may read or write it.
// Callers must treat a Message as consumed once a Post* call returns
// nil — its fields belong to the looper from then on.
type Message struct {
	// What discriminates the message's purpose; also the basis for
	// selective removal.
	What int
	// Arg1, Arg2 are small user-defined integers the toolkit never
	// interprets.
	Arg1, Arg2 int
	// Data is an opaque payload the toolkit never interprets. Set
	// directly by Obtain, or preallocated by ObtainWithBuffer.
	Data any

	// When is the earliest dispatch time. Set by the Looper at post
	// time (via Push/PushFront) — callers must not set it themselves.
	When time.Time
	// Deadline is the absolute time after which the message is
	// discarded instead of dispatched. Zero means no deadline.
	Deadline time.Time
	// TimeoutMs is the queueing-latency budget a sender requested via
	// WithTimeout; 0 means no deadline. Recorded so the looper can
	// validate timeout_ms > delay_ms before committing to a deadline.
	TimeoutMs int64

	// HandleFunc, FreeFunc and TimeoutFunc override the looper's
	// defaults for this message only. A Handler sets HandleFunc/FreeFunc
	// automatically when they are nil at post time.
	HandleFunc  HandleFunc
	FreeFunc    FreeFunc
	TimeoutFunc TimeoutFunc

	// Owner is the Poster that posted this message, used to scope
	// RemoveMessages/RemoveMessagesFunc. The zero Poster owns nothing.
	Owner Poster

	// Seq is the insertion sequence stamped by the owning queue,
	// breaking ties between messages with equal When. Exported so the
	// queue package (a sibling, not a parent) can set it without a
	// dependency cycle; callers must not set it themselves.
	Seq int64
}

// Obtain constructs a Message carrying a caller-owned payload. Freeing
// data is the responsibility of FreeFunc (or the looper's default free
// callback) — set one via WithFreeFunc if data needs releasing.
func Obtain(what, arg1, arg2 int, data any) *Message {
	return &Message{What: what, Arg1: arg1, Arg2: arg2, Data: data}
}

// ObtainWithBuffer constructs a Message with a freshly allocated []byte
// payload of the given size. No FreeFunc is required for the buffer
// itself: Recycle drops the reference and the garbage collector
// reclaims it.
func ObtainWithBuffer(what, arg1, arg2, size int) *Message {
	return &Message{What: what, Arg1: arg1, Arg2: arg2, Data: make([]byte, size)}
}

// WithHandleFunc sets the per-message handle override and returns m for
// chaining.
func (m *Message) WithHandleFunc(f HandleFunc) *Message {
	m.HandleFunc = f
	return m
}

// WithFreeFunc sets the per-message free override and returns m for
// chaining.
func (m *Message) WithFreeFunc(f FreeFunc) *Message {
	m.FreeFunc = f
	return m
}

// WithTimeoutFunc sets the per-message timeout override and returns m
// for chaining.
func (m *Message) WithTimeoutFunc(f TimeoutFunc) *Message {
	m.TimeoutFunc = f
	return m
}

// WithTimeout requests that m be discarded if it has not been
// dispatched within d of being posted. A zero or negative d clears any
// previously requested timeout.
func (m *Message) WithTimeout(d time.Duration) *Message {
	if d <= 0 {
		m.TimeoutMs = 0
		return m
	}
	m.TimeoutMs = d.Milliseconds()
	if m.TimeoutMs == 0 {
		m.TimeoutMs = 1 // sub-millisecond durations still count as "a deadline was requested"
	}
	return m
}

// WithOwner stamps m with the given Poster, enabling owner-scoped
// removal. Handler.Post/PostDelay/PostFront stamp the Handler's own
// Poster automatically (replacing any Owner already set);
// bare Looper callers that want RemoveMessages to reach their own
// messages must call it themselves before posting.
func (m *Message) WithOwner(p Poster) *Message {
	m.Owner = p
	return m
}

// Recycle zeroes m's slots. Called by the looper's free path exactly
// once per message, after FreeFunc/default-free has run. Messages are
// not pooled; the zeroed struct is left to the garbage collector.
func (m *Message) Recycle() {
	*m = Message{}
}

func (m *Message) String() string {
	return fmt.Sprintf("what=%d arg1=%d arg2=%d when=%s", m.What, m.Arg1, m.Arg2, m.When.Format(time.RFC3339Nano))
}
