package mocks

import (
	"image"
	"sync"

	"github.com/user/framerec/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	RecordingJSON []byte
	RawFrames     map[int]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:   enabled,
		RawFrames: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveRecordingJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordingJSON = data
	return nil
}

func (m *DebugSink) SaveRawFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RawFrames[index] = img
	return nil
}

// FrameCount returns the number of saved frames.
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.RawFrames)
}

var _ ports.DebugSink = (*DebugSink)(nil)
