package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/user/framerec/pkg/pipeline"
)

// Policy decides what Submit does when the frame queue is full.
type Policy int

const (
	// PolicyBackpressure makes Submit wait up to the submit timeout for
	// space, then reject the new frame with ErrQueueFull.
	PolicyBackpressure Policy = iota
	// PolicyDropOldest evicts the oldest queued frame to make room. Submit
	// never waits. Evicted frames are counted as dropped.
	PolicyDropOldest
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyDropOldest:
		return "drop-oldest"
	default:
		return "backpressure"
	}
}

// ParsePolicy parses "backpressure" or "drop-oldest".
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "backpressure", "reject":
		return PolicyBackpressure, true
	case "drop-oldest", "drop_oldest", "drop":
		return PolicyDropOldest, true
	default:
		return PolicyBackpressure, false
	}
}

// frameQueue is a bounded FIFO between the capture side and the worker.
// Frames keep their submission order; Seq is assigned on acceptance.
type frameQueue struct {
	mu       sync.Mutex
	items    []pipeline.RawFrame
	capacity int
	next     int64
	closed   bool
	dropped  int64
	rejected int64

	ready  chan struct{}
	space  chan struct{}
	closeC chan struct{}
}

func newFrameQueue(capacity int) *frameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &frameQueue{
		items:    make([]pipeline.RawFrame, 0, capacity),
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
		closeC:   make(chan struct{}),
	}
}

// push appends frame, waiting up to timeout for space under
// PolicyBackpressure. On failure the frame is still owned by the caller.
func (q *frameQueue) push(frame pipeline.RawFrame, policy Policy, timeout time.Duration) (int64, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		seq, ok, err := q.tryPush(frame, policy == PolicyDropOldest)
		if ok || err != nil {
			return seq, err
		}

		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-q.space:
		case <-q.closeC:
		case <-timer.C:
			q.mu.Lock()
			q.rejected++
			q.mu.Unlock()
			return 0, pipeline.ErrQueueFull
		}
	}
}

// pushWait appends frame, waiting for space until ctx ends. It never evicts
// and never rejects. On failure the frame is still owned by the caller.
func (q *frameQueue) pushWait(ctx context.Context, frame pipeline.RawFrame) (int64, error) {
	for {
		seq, ok, err := q.tryPush(frame, false)
		if ok || err != nil {
			return seq, err
		}

		select {
		case <-q.space:
		case <-q.closeC:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// tryPush appends frame if there is room, or if evict allows dropping the
// oldest frame. ok is false when the queue is full.
func (q *frameQueue) tryPush(frame pipeline.RawFrame, evict bool) (seq int64, ok bool, err error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, false, pipeline.ErrStopped
	}
	if len(q.items) >= q.capacity && !evict {
		q.mu.Unlock()
		return 0, false, nil
	}

	var evicted *pipeline.RawFrame
	if len(q.items) >= q.capacity {
		old := q.items[0]
		evicted = &old
		q.items = q.items[1:]
		q.dropped++
	}
	seq = q.next
	q.next++
	frame.Seq = seq
	q.items = append(q.items, frame)
	q.mu.Unlock()

	if evicted != nil {
		evicted.Done()
	}
	signal(q.ready)
	return seq, true, nil
}

// pop returns the oldest frame. After close it keeps returning queued frames
// until the queue is empty, then reports false.
func (q *frameQueue) pop(ctx context.Context) (pipeline.RawFrame, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			frame := q.items[0]
			q.items[0] = pipeline.RawFrame{}
			q.items = q.items[1:]
			q.mu.Unlock()
			signal(q.space)
			return frame, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return pipeline.RawFrame{}, false
		}

		select {
		case <-q.ready:
		case <-q.closeC:
		case <-ctx.Done():
			return pipeline.RawFrame{}, false
		}
	}
}

// close stops accepting frames. Idempotent.
func (q *frameQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.closeC)
}

// discard closes the queue and releases every frame still in it.
func (q *frameQueue) discard() int {
	q.close()

	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, f := range items {
		f.Done()
	}
	return len(items)
}

func (q *frameQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *frameQueue) counts() (accepted, dropped, rejected int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.next, q.dropped, q.rejected
}

func signal(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}
