package msgloop

import "errors"

var (
	// ErrNilMessage is returned by Post/PostDelay/PostFront when passed a
	// nil *message.Message.
	ErrNilMessage = errors.New("msgloop: nil message")

	// ErrNoHandler is returned by Post/PostDelay/PostFront when the
	// message carries no HandleFunc and the looper has no default one
	// configured. The message is still freed before the error returns.
	ErrNoHandler = errors.New("msgloop: message has no resolvable handler")

	// ErrTimeoutBeforeDelay is returned when a message's requested
	// TimeoutMs is less than or equal to its requested post delay, which
	// would make it expire before it could ever become due. The message
	// is still freed before the error returns.
	ErrTimeoutBeforeDelay = errors.New("msgloop: timeout is not greater than post delay")

	// ErrLooperExited is returned by Start once exit has been requested
	// (ExitPending) or the looper has reached its terminal Exited state.
	// A new Looper must be created.
	ErrLooperExited = errors.New("msgloop: looper has exited and cannot be restarted")

	// ErrSelfJoin is returned by StopSafely when called from the
	// looper's own worker goroutine. Blocking in that case would
	// deadlock, so StopSafely logs a warning and returns this error
	// instead of waiting.
	ErrSelfJoin = errors.New("msgloop: stop_safely called from the looper's own goroutine")

	// ErrLooperAbsent is returned by Handler.Post/PostDelay/PostFront
	// when the Handler was constructed without a Looper. The message is
	// freed before the error returns.
	ErrLooperAbsent = errors.New("msgloop: handler has no looper")
)
