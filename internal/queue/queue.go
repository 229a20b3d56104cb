// ABOUTME: Bounded blocking packet queue between the demuxer and the audio loop
// ABOUTME: Take blocks until a packet arrives, end of stream is signaled or ctx ends
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/avsync-go/pkg/audio"
)

var (
	// ErrEndOfStream is returned by Take once the queue is empty and ended
	ErrEndOfStream = errors.New("queue: end of stream")
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("queue: closed")
)

// DefaultCapacity bounds the queue when no capacity is given
const DefaultCapacity = 256

// PacketQueue is a FIFO of audio packets shared by one producer and one
// consumer. Put blocks while the queue is full. Take blocks while it is empty
// and not ended.
//
// Waiters are woken through a channel that is closed and replaced on every
// state change, so both sides can also select on their context.
type PacketQueue struct {
	mu       sync.Mutex
	packets  []audio.Packet
	capacity int
	ended    bool
	closed   bool
	changed  chan struct{}
}

// New creates a queue holding at most capacity packets
func New(capacity int) *PacketQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &PacketQueue{
		packets:  make([]audio.Packet, 0, capacity),
		capacity: capacity,
		changed:  make(chan struct{}),
	}
}

// notify wakes every waiter. Caller holds mu.
func (q *PacketQueue) notify() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// Put appends a packet, blocking while the queue is full.
// A flush packet is accepted even when full so seeks are never stuck.
func (q *PacketQueue) Put(ctx context.Context, p audio.Packet) error {
	q.mu.Lock()
	for {
		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}
		if len(q.packets) < q.capacity || !p.IsValid() {
			break
		}
		wait := q.changed
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return fmt.Errorf("queue: put: %w", ctx.Err())
		case <-wait:
		}
		q.mu.Lock()
	}

	q.packets = append(q.packets, p)
	q.ended = false
	q.notify()
	q.mu.Unlock()
	return nil
}

// Take removes the oldest packet. It returns ErrEndOfStream when the queue
// is empty and ended, and the context error when ctx ends first.
func (q *PacketQueue) Take(ctx context.Context) (audio.Packet, error) {
	q.mu.Lock()
	for len(q.packets) == 0 {
		if q.closed {
			q.mu.Unlock()
			return audio.Packet{}, ErrClosed
		}
		if q.ended {
			q.mu.Unlock()
			return audio.Packet{}, ErrEndOfStream
		}
		wait := q.changed
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return audio.Packet{}, ctx.Err()
		case <-wait:
		}
		q.mu.Lock()
	}

	p := q.packets[0]
	q.packets[0] = audio.Packet{}
	q.packets = q.packets[1:]
	q.notify()
	q.mu.Unlock()
	return p, nil
}

// IsEmpty reports whether no packet is queued
func (q *PacketQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets) == 0
}

// Len returns the number of queued packets
func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets)
}

// Ended reports whether the producer signaled end of stream
func (q *PacketQueue) Ended() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ended
}

// SetEnd marks the end of stream. Queued packets are still delivered.
func (q *PacketQueue) SetEnd() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ended = true
	q.notify()
}

// Clear drops every queued packet and the end-of-stream flag
func (q *PacketQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.packets)
	q.packets = q.packets[:0]
	q.ended = false
	q.notify()
}

// Close unblocks every waiter. Further operations return ErrClosed.
func (q *PacketQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notify()
}
