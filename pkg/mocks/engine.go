package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

// ErrEngineClosed is returned by Engine.Write after CloseInput or Close.
var ErrEngineClosed = errors.New("mocks: engine closed")

// Engine is a mock implementation of ports.Engine.
//
// By default every Write produces one synthetic access unit, preceded by a
// format event on the first Write, and CloseInput produces an EOS event.
// Events are delivered on an unbuffered channel, so a consumer that stops
// draining blocks Write the way a saturated encoder would.
type Engine struct {
	OpenFunc       func(ctx context.Context, cfg ports.EngineConfig) error
	WriteFunc      func(frame []byte, pts int64) error
	CloseInputFunc func() error

	// WriteDelay is slept at the start of every Write.
	WriteDelay time.Duration

	// RenegotiateAfter, when positive, emits a second format event after
	// that many units.
	RenegotiateAfter int

	// FailAfter, when positive, emits an error event instead of the unit
	// with that index.
	FailAfter int

	// Recorded calls for verification
	OpenCalled       bool
	Config           ports.EngineConfig
	WritePTS         []int64
	CloseInputCalled bool
	CloseCalled      bool

	mu          sync.Mutex
	events      chan ports.EngineEvent
	quit        chan struct{}
	closeOnce   sync.Once
	eventsOnce  sync.Once
	inputClosed bool
	units       int
}

// NewEngine creates a new mock Engine.
func NewEngine() *Engine {
	return &Engine{
		events: make(chan ports.EngineEvent),
		quit:   make(chan struct{}),
	}
}

func (m *Engine) Open(ctx context.Context, cfg ports.EngineConfig) error {
	m.mu.Lock()
	m.OpenCalled = true
	m.Config = cfg
	m.mu.Unlock()
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, cfg)
	}
	return nil
}

func (m *Engine) Write(frame []byte, pts int64) error {
	if m.WriteDelay > 0 {
		select {
		case <-time.After(m.WriteDelay):
		case <-m.quit:
			return ErrEngineClosed
		}
	}

	m.mu.Lock()
	if m.inputClosed {
		m.mu.Unlock()
		return ErrEngineClosed
	}
	m.WritePTS = append(m.WritePTS, pts)
	index := m.units
	m.units++
	cfg := m.Config
	m.mu.Unlock()

	if m.WriteFunc != nil {
		if err := m.WriteFunc(frame, pts); err != nil {
			return err
		}
	}

	if index == 0 || (m.RenegotiateAfter > 0 && index == m.RenegotiateAfter) {
		if !m.send(ports.EngineEvent{Format: Format(cfg)}) {
			return ErrEngineClosed
		}
	}
	if m.FailAfter > 0 && index == m.FailAfter {
		m.send(ports.EngineEvent{Err: errors.New("mocks: engine failure")})
		return nil
	}

	interval := cfg.KeyFrameInterval
	if interval < 1 {
		interval = 1
	}
	key := index%interval == 0
	ev := ports.EngineEvent{
		Data:     AccessUnit(cfg.Width, cfg.Height, key),
		PTS:      pts,
		KeyFrame: key,
	}
	if !m.send(ev) {
		return ErrEngineClosed
	}
	return nil
}

func (m *Engine) CloseInput() error {
	m.mu.Lock()
	if m.inputClosed {
		m.mu.Unlock()
		return nil
	}
	m.inputClosed = true
	m.CloseInputCalled = true
	m.mu.Unlock()

	if m.CloseInputFunc != nil {
		if err := m.CloseInputFunc(); err != nil {
			return err
		}
	}

	go func() {
		m.send(ports.EngineEvent{EOS: true})
		m.eventsOnce.Do(func() { close(m.events) })
	}()
	return nil
}

func (m *Engine) Events() <-chan ports.EngineEvent {
	return m.events
}

func (m *Engine) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.CloseCalled = true
		m.inputClosed = true
		m.mu.Unlock()
		close(m.quit)
	})
	return nil
}

// Units returns the number of frames written so far.
func (m *Engine) Units() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.units
}

func (m *Engine) send(ev ports.EngineEvent) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.quit:
		return false
	}
}

// Format returns the output format the mock engine reports for cfg.
func Format(cfg ports.EngineConfig) *pipeline.OutputFormat {
	return &pipeline.OutputFormat{
		Codec:       "h264",
		CodecString: "avc1.42c01f",
		Profile:     66,
		Level:       31,
		Width:       cfg.Width,
		Height:      cfg.Height,
		ColorFormat: cfg.Layout,
		SPS:         SPS(cfg.Width, cfg.Height),
		PPS:         PPS(),
	}
}

var _ ports.Engine = (*Engine)(nil)
