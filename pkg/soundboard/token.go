// ABOUTME: Per-session cancellation token
// ABOUTME: A write-once atomic flag polled by stream writers between blocks
package soundboard

import "sync/atomic"

// CancelToken is a cooperative cancellation flag. The zero value is not
// cancelled.
type CancelToken struct {
	cancelled atomic.Bool
}

// Cancel sets the token
func (t *CancelToken) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called since the last Reset
func (t *CancelToken) Cancelled() bool {
	return t.cancelled.Load()
}

// Reset clears the token
func (t *CancelToken) Reset() {
	t.cancelled.Store(false)
}
