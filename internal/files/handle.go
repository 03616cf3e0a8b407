package files

import (
	"sync"
	"time"
)

// Handle is a transient reference to downloaded bytes, registered with the
// preview server. Release is completion-driven: once the last consumer
// finishes reading, the handle lingers briefly (so viewers that re-fetch —
// range requests, a reload — still succeed) and then goes away. The grace
// timer only fires for consumers that never connect.
type Handle struct {
	token       string
	filename    string
	contentType string
	data        []byte
	url         string
	lingerDelay time.Duration

	mu       sync.Mutex
	refs     int
	served   bool
	released bool
	grace    *time.Timer
	linger   *time.Timer
	done     chan struct{}
	onClose  func(token string)
}

// URL is the loopback address the bytes are served from.
func (h *Handle) URL() string { return h.url }

// Filename is the suggested name for the artifact.
func (h *Handle) Filename() string { return h.filename }

// Done is closed once the handle has been released.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Close releases the handle immediately. Idempotent.
func (h *Handle) Close() {
	h.mu.Lock()
	h.releaseLocked()
	h.mu.Unlock()
}

// retain marks a consumer as reading. The grace timer is stopped once a
// real consumer shows up, and a pending linger is cancelled by a re-fetch.
func (h *Handle) retain() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return false
	}
	h.refs++
	h.served = true
	if h.grace != nil {
		h.grace.Stop()
		h.grace = nil
	}
	if h.linger != nil {
		h.linger.Stop()
		h.linger = nil
	}
	return true
}

// release is the completion callback: when the last active consumer is
// done, the linger countdown starts.
func (h *Handle) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs--
	if h.refs > 0 || !h.served || h.released {
		return
	}
	if h.lingerDelay <= 0 {
		h.releaseLocked()
		return
	}
	if h.linger == nil {
		h.linger = time.AfterFunc(h.lingerDelay, h.Close)
	}
}

// releaseLocked tears down the handle; caller holds mu.
func (h *Handle) releaseLocked() {
	if h.released {
		return
	}
	h.released = true
	if h.grace != nil {
		h.grace.Stop()
		h.grace = nil
	}
	if h.linger != nil {
		h.linger.Stop()
		h.linger = nil
	}
	if h.onClose != nil {
		h.onClose(h.token)
	}
	h.data = nil
	close(h.done)
}
