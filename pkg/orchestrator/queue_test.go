package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/framerec/pkg/pipeline"
)

func countedFrame(released *atomic.Int32) pipeline.RawFrame {
	return pipeline.RawFrame{Release: func() { released.Add(1) }}
}

func TestFrameQueue_PreservesOrder(t *testing.T) {
	q := newFrameQueue(8)
	var released atomic.Int32

	for i := 0; i < 5; i++ {
		seq, err := q.push(countedFrame(&released), PolicyBackpressure, time.Millisecond)
		if err != nil {
			t.Fatalf("push failed: %v", err)
		}
		if seq != int64(i) {
			t.Errorf("seq = %d, want %d", seq, i)
		}
	}
	q.close()

	for i := 0; i < 5; i++ {
		f, ok := q.pop(context.Background())
		if !ok {
			t.Fatalf("pop %d returned nothing", i)
		}
		if f.Seq != int64(i) {
			t.Errorf("pop %d: seq %d", i, f.Seq)
		}
	}
	if _, ok := q.pop(context.Background()); ok {
		t.Error("pop on closed empty queue should report false")
	}
	if released.Load() != 0 {
		t.Errorf("queue released %d frames it did not drop", released.Load())
	}
}

func TestFrameQueue_BackpressureRejects(t *testing.T) {
	q := newFrameQueue(2)
	var released atomic.Int32

	for i := 0; i < 2; i++ {
		if _, err := q.push(countedFrame(&released), PolicyBackpressure, time.Millisecond); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}

	begin := time.Now()
	_, err := q.push(countedFrame(&released), PolicyBackpressure, 20*time.Millisecond)
	if !errors.Is(err, pipeline.ErrQueueFull) {
		t.Fatalf("got %v, want ErrQueueFull", err)
	}
	if elapsed := time.Since(begin); elapsed < 15*time.Millisecond {
		t.Errorf("push gave up after %s, expected to wait for the timeout", elapsed)
	}
	if _, _, rejected := q.counts(); rejected != 1 {
		t.Errorf("rejected = %d, want 1", rejected)
	}
	if released.Load() != 0 {
		t.Error("rejected frame belongs to the caller and must not be released by the queue")
	}
}

func TestFrameQueue_BackpressureWaitsForSpace(t *testing.T) {
	q := newFrameQueue(1)
	var released atomic.Int32
	if _, err := q.push(countedFrame(&released), PolicyBackpressure, time.Millisecond); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.pop(context.Background())
	}()

	if _, err := q.push(countedFrame(&released), PolicyBackpressure, time.Second); err != nil {
		t.Fatalf("push should succeed once space frees up: %v", err)
	}
}

func TestFrameQueue_DropOldest(t *testing.T) {
	q := newFrameQueue(2)
	var released atomic.Int32

	for i := 0; i < 5; i++ {
		if _, err := q.push(countedFrame(&released), PolicyDropOldest, 0); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}
	if released.Load() != 3 {
		t.Errorf("released %d evicted frames, want 3", released.Load())
	}
	if _, dropped, _ := q.counts(); dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}

	for _, want := range []int64{3, 4} {
		f, ok := q.pop(context.Background())
		if !ok || f.Seq != want {
			t.Errorf("pop = %d, %v; want %d", f.Seq, ok, want)
		}
	}
}

func TestFrameQueue_CloseWakesWaiters(t *testing.T) {
	q := newFrameQueue(1)
	if _, err := q.push(pipeline.RawFrame{}, PolicyBackpressure, time.Millisecond); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := q.push(pipeline.RawFrame{}, PolicyBackpressure, 10*time.Second)
		errc <- err
	}()
	time.Sleep(5 * time.Millisecond)
	q.close()

	select {
	case err := <-errc:
		if !errors.Is(err, pipeline.ErrStopped) {
			t.Errorf("got %v, want ErrStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("close did not wake the blocked push")
	}
}

func TestFrameQueue_PopHonoursContext(t *testing.T) {
	q := newFrameQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, ok := q.pop(ctx); ok {
		t.Error("pop on empty queue should give up when ctx ends")
	}
}

func TestFrameQueue_Discard(t *testing.T) {
	q := newFrameQueue(4)
	var released atomic.Int32
	for i := 0; i < 3; i++ {
		q.push(countedFrame(&released), PolicyBackpressure, time.Millisecond)
	}

	if n := q.discard(); n != 3 {
		t.Errorf("discard = %d, want 3", n)
	}
	if released.Load() != 3 {
		t.Errorf("released %d, want 3", released.Load())
	}
	if _, err := q.push(countedFrame(&released), PolicyBackpressure, time.Millisecond); !errors.Is(err, pipeline.ErrStopped) {
		t.Errorf("push after discard: got %v, want ErrStopped", err)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
		ok   bool
	}{
		{"", PolicyBackpressure, true},
		{"backpressure", PolicyBackpressure, true},
		{"drop-oldest", PolicyDropOldest, true},
		{"drop", PolicyDropOldest, true},
		{"newest", PolicyBackpressure, false},
	}
	for _, tt := range tests {
		got, ok := ParsePolicy(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePolicy(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
		if ok && tt.in != "" && tt.in != "drop" {
			if got.String() != tt.in {
				t.Errorf("%v.String() = %q, want %q", got, got.String(), tt.in)
			}
		}
	}
}

func TestFrameQueue_PushWait(t *testing.T) {
	q := newFrameQueue(1)
	var released atomic.Int32
	if _, err := q.pushWait(context.Background(), countedFrame(&released)); err != nil {
		t.Fatalf("pushWait failed: %v", err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		q.pop(context.Background())
	}()

	begin := time.Now()
	seq, err := q.pushWait(context.Background(), countedFrame(&released))
	if err != nil {
		t.Fatalf("pushWait should wait for space: %v", err)
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
	if time.Since(begin) < 20*time.Millisecond {
		t.Error("pushWait returned before space was freed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.pushWait(ctx, countedFrame(&released)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
	if _, dropped, rejected := q.counts(); dropped != 0 || rejected != 0 {
		t.Errorf("dropped/rejected = %d/%d, want 0/0", dropped, rejected)
	}
	if released.Load() != 0 {
		t.Error("queue must not release frames it did not accept")
	}

	q.close()
	if _, err := q.pushWait(context.Background(), countedFrame(&released)); !errors.Is(err, pipeline.ErrStopped) {
		t.Errorf("after close: got %v, want ErrStopped", err)
	}
}
