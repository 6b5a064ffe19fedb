package h264encoder

import "time"

// slotPool is a fixed set of reusable byte buffers. A buffer that is checked
// out belongs to the caller until it is put back.
type slotPool struct {
	free chan []byte
	size int
}

func newSlotPool(count, size int) *slotPool {
	p := &slotPool{free: make(chan []byte, count), size: size}
	for i := 0; i < count; i++ {
		p.free <- make([]byte, size)
	}
	return p
}

// get waits up to timeout for a free buffer. A zero timeout polls.
func (p *slotPool) get(timeout time.Duration) ([]byte, bool) {
	select {
	case buf := <-p.free:
		return buf, true
	default:
	}
	if timeout <= 0 {
		return nil, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case buf := <-p.free:
		return buf, true
	case <-timer.C:
		return nil, false
	}
}

// put returns a buffer. Buffers beyond the pool's capacity are dropped.
func (p *slotPool) put(buf []byte) {
	select {
	case p.free <- buf[:cap(buf)]:
	default:
	}
}

// available returns the number of free buffers.
func (p *slotPool) available() int {
	return len(p.free)
}
