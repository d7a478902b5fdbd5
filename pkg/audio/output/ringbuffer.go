// ABOUTME: Blocking float32 ring buffer between writers and device callbacks
// ABOUTME: Writers block while full; the callback side never blocks and zero-fills underruns
package output

import (
	"sync"
)

// RingBuffer provides a thread-safe circular buffer for audio samples
type RingBuffer struct {
	buffer   []float32
	readPos  int
	writePos int
	size     int
	count    int // Number of samples currently in buffer
	closed   bool
	mu       sync.Mutex
	cond     *sync.Cond
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	rb := &RingBuffer{
		buffer: make([]float32, capacity),
		size:   capacity,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write adds all samples to the ring buffer, blocking while it is full.
// It returns ErrStreamClosed if the buffer is closed before every sample
// was queued.
func (rb *RingBuffer) Write(samples []float32) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i := 0; i < len(samples); {
		for rb.count == rb.size && !rb.closed {
			rb.cond.Wait()
		}
		if rb.closed {
			return ErrStreamClosed
		}

		for ; i < len(samples) && rb.count < rb.size; i++ {
			rb.buffer[rb.writePos] = samples[i]
			rb.writePos = (rb.writePos + 1) % rb.size
			rb.count++
		}
	}
	return nil
}

// Read retrieves samples from the ring buffer without blocking
func (rb *RingBuffer) Read(samples []float32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for i := 0; i < len(samples) && rb.count > 0; i++ {
		samples[i] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
		rb.count--
		read++
	}

	// Zero-fill remaining if underrun
	for i := read; i < len(samples); i++ {
		samples[i] = 0
	}

	if read > 0 {
		rb.cond.Broadcast()
	}
	return read
}

// Drain blocks until every queued sample has been read or the buffer is closed
func (rb *RingBuffer) Drain() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count > 0 && !rb.closed {
		rb.cond.Wait()
	}
}

// Close discards queued samples and wakes blocked writers
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.closed = true
	rb.count = 0
	rb.cond.Broadcast()
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Free returns the number of free slots in the buffer
func (rb *RingBuffer) Free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size - rb.count
}
