package msgloop

import (
	"time"

	"github.com/romanqed/msgloop/message"
)

// Target is the polymorphic callback sink a Handler routes messages to
// (the alternative to supplying a bare HandleFunc/FreeFunc pair
// directly on a Message).
type Target interface {
	// OnHandle processes a dispatched message.
	OnHandle(m *message.Message)
	// OnFree releases any resources m.Data holds.
	OnFree(m *message.Message)
}

// Handler is a lightweight, non-owning facade binding a Target to a
// Looper, so independent senders can share one looper and later
// bulk-remove only the messages they posted. It stamps every message it
// posts with its own Poster, so removal is scoped per Handler.
type Handler struct {
	looper *Looper
	target Target
	poster message.Poster
}

// NewHandler binds target to looper. Either may be nil: a Handler with
// no Looper fails every Post* call (freeing the message first); a
// Handler with no Target falls back to whatever HandleFunc/FreeFunc the
// message already carries, or the looper's defaults.
func NewHandler(looper *Looper, target Target) *Handler {
	return &Handler{
		looper: looper,
		target: target,
		poster: message.NewPoster(),
	}
}

// Poster returns the Poster this Handler stamps on messages it posts,
// so callers can also scope bare Looper.RemoveMessages calls to it.
func (h *Handler) Poster() message.Poster {
	return h.poster
}

func (h *Handler) prepare(m *message.Message) {
	if m.HandleFunc == nil && h.target != nil {
		m.HandleFunc = h.target.OnHandle
	}
	if m.FreeFunc == nil && h.target != nil {
		m.FreeFunc = h.target.OnFree
	}
	m.Owner = h.poster
}

// Post mirrors Looper.Post, additionally routing m through the
// Handler's Target and stamping ownership for later removal.
func (h *Handler) Post(m *message.Message) error {
	if m == nil {
		return ErrNilMessage
	}
	if h.looper == nil {
		h.freeOrphan(m)
		return ErrLooperAbsent
	}
	h.prepare(m)
	return h.looper.Post(m)
}

// PostDelay mirrors Looper.PostDelay; see Post.
func (h *Handler) PostDelay(m *message.Message, delay time.Duration) error {
	if m == nil {
		return ErrNilMessage
	}
	if h.looper == nil {
		h.freeOrphan(m)
		return ErrLooperAbsent
	}
	h.prepare(m)
	return h.looper.PostDelay(m, delay)
}

// PostFront mirrors Looper.PostFront; see Post.
func (h *Handler) PostFront(m *message.Message) error {
	if m == nil {
		return ErrNilMessage
	}
	if h.looper == nil {
		h.freeOrphan(m)
		return ErrLooperAbsent
	}
	h.prepare(m)
	return h.looper.PostFront(m)
}

// freeOrphan runs the free path for a message that can never be posted
// because this Handler has no Looper.
func (h *Handler) freeOrphan(m *message.Message) {
	if m.FreeFunc != nil {
		m.FreeFunc(m)
	} else if h.target != nil {
		h.target.OnFree(m)
	}
	m.Recycle()
}

// RemoveMessages removes every queued message with the given What that
// this Handler posted.
func (h *Handler) RemoveMessages(what int) int {
	if h.looper == nil {
		return 0
	}
	return h.looper.RemoveMessages(h.poster, what)
}

// RemoveMessagesFunc generalizes RemoveMessages to an arbitrary
// predicate, still scoped to this Handler's own messages.
func (h *Handler) RemoveMessagesFunc(pred func(*message.Message) bool) int {
	if h.looper == nil {
		return 0
	}
	return h.looper.RemoveMessagesFunc(h.poster, pred)
}

// Close purges every message this Handler posted to its Looper. Go has
// no destructors, so callers that discard a Handler while its Target
// may still be referenced elsewhere must call Close explicitly — the
// source's requirement that "a Handler's destructor must purge its own
// messages before the target is destroyed" becomes an explicit method
// instead of an implicit one.
func (h *Handler) Close() {
	if h.looper == nil {
		return
	}
	h.looper.RemoveMessagesFunc(h.poster, func(*message.Message) bool { return true })
}
