// ABOUTME: Bounded per-client byte queue between capture and an HTTP response
// ABOUTME: Push never blocks; Pull blocks until data, close, or cancellation
package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrClosed is returned by Push on a closed buffer
var ErrClosed = errors.New("stream: buffer closed")

// DropPolicy decides which chunk is discarded when a slow reader lets the
// queue fill up. Capture never waits for a reader.
type DropPolicy int

const (
	DropOldest DropPolicy = iota
	DropNewest
)

// BufferConfig configures a Buffer
type BufferConfig struct {
	// Capacity is the number of chunks held before dropping (default 64)
	Capacity int
	// Policy selects the chunk dropped on overflow
	Policy DropPolicy
	// Header is returned by the first Pull, before any pushed data
	Header []byte
	// SilenceAfter, when positive, makes Pull return Silence if nothing was
	// pushed for that long, keeping renderers from timing out
	SilenceAfter time.Duration
	// Silence is the chunk returned on a silence timeout
	Silence []byte
}

// Stats describes buffer activity. Pushed counts every chunk offered to an
// open buffer, kept or not, under either policy. Dropped counts chunks lost
// to overflow, so Pushed-Dropped chunks were or will be delivered.
type Stats struct {
	Pushed  uint64
	Dropped uint64
	Queued  int
}

// Buffer is a bounded ring of byte chunks with a single blocking reader
type Buffer struct {
	config BufferConfig

	mu         sync.Mutex
	ring       [][]byte
	head       int
	count      int
	headerSent bool
	closed     bool
	pushed     uint64
	dropped    uint64

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBuffer creates an empty buffer
func NewBuffer(config BufferConfig) *Buffer {
	if config.Capacity <= 0 {
		config.Capacity = 64
	}
	return &Buffer{
		config: config,
		ring:   make([][]byte, config.Capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push queues a chunk. The chunk is retained, not copied, so callers must
// not modify it afterwards. Returns true when a chunk was dropped.
func (b *Buffer) Push(chunk []byte) (bool, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false, ErrClosed
	}

	b.pushed++
	dropped := false
	size := len(b.ring)
	if b.count == size {
		dropped = true
		b.dropped++
		if b.config.Policy == DropNewest {
			b.mu.Unlock()
			return true, nil
		}
		b.ring[b.head] = nil
		b.head = (b.head + 1) % size
		b.count--
	}

	b.ring[(b.head+b.count)%size] = chunk
	b.count++
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return dropped, nil
}

// Pull returns the header on the first call and queued chunks in push order
// afterwards. It blocks while the queue is empty and returns io.EOF once the
// buffer is closed, or ctx.Err() when ctx is cancelled.
func (b *Buffer) Pull(ctx context.Context) ([]byte, error) {
	var silence <-chan time.Time
	var timer *time.Timer

	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return nil, io.EOF
		}
		if !b.headerSent {
			b.headerSent = true
			if len(b.config.Header) > 0 {
				b.mu.Unlock()
				return b.config.Header, nil
			}
		}
		if b.count > 0 {
			chunk := b.ring[b.head]
			b.ring[b.head] = nil
			b.head = (b.head + 1) % len(b.ring)
			b.count--
			b.mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			return chunk, nil
		}
		b.mu.Unlock()

		if b.config.SilenceAfter > 0 && timer == nil {
			timer = time.NewTimer(b.config.SilenceAfter)
			silence = timer.C
		}

		select {
		case <-b.notify:
		case <-b.done:
		case <-silence:
			return b.config.Silence, nil
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil, ctx.Err()
		}
	}
}

// Close marks end-of-stream, discards queued chunks and wakes the reader.
// It is idempotent and safe from any goroutine.
func (b *Buffer) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		for i := range b.ring {
			b.ring[i] = nil
		}
		b.count = 0
		b.mu.Unlock()
		close(b.done)
	})
}

// Done is closed when the buffer is closed
func (b *Buffer) Done() <-chan struct{} {
	return b.done
}

// Closed reports whether Close was called
func (b *Buffer) Closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Stats returns a snapshot of buffer counters
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Pushed:  b.pushed,
		Dropped: b.dropped,
		Queued:  b.count,
	}
}
