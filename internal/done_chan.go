package internal

// DoneChan is a channel closed exactly once to signal completion.
type DoneChan chan struct{}
