// Package h264encoder drives an H.264 compression engine through a
// slot-based buffer exchange.
//
// A Session owns a fixed pool of input slots and a fixed pool of output
// slots. Callers copy planar pictures into input slots with EnqueueInput and
// collect compressed access units with DrainOutput; each unit occupies an
// output slot until it is released. When every output slot is held, the
// session stops pulling from the engine, the engine stops consuming input,
// and EnqueueInput starts returning ErrTryAgain. The default engine runs
// ffmpeg as an external process.
package h264encoder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateCreated State = iota
	StateConfigured
	StateRunning
	StateDraining
	StateStopped
	StateReleased
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	case StateReleased:
		return "released"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds the encoding parameters of a session.
type Config struct {
	Width   int
	Height  int
	FPS     int
	Bitrate int // bits per second
	Codec   string
	Layout  pipeline.ChromaLayout

	// KeyFrameInterval is the time between IDR pictures. Zero means 1s.
	KeyFrameInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Codec == "" {
		c.Codec = "h264"
	}
	if c.KeyFrameInterval <= 0 {
		c.KeyFrameInterval = time.Second
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0 || c.Width%2 != 0 || c.Height%2 != 0:
		return fmt.Errorf("%w: size %dx%d", pipeline.ErrUnsupportedConfiguration, c.Width, c.Height)
	case c.FPS <= 0:
		return fmt.Errorf("%w: fps %d", pipeline.ErrUnsupportedConfiguration, c.FPS)
	case c.Bitrate <= 0:
		return fmt.Errorf("%w: bitrate %d", pipeline.ErrUnsupportedConfiguration, c.Bitrate)
	case c.Codec != "h264":
		return fmt.Errorf("%w: codec %q", pipeline.ErrUnsupportedConfiguration, c.Codec)
	}
	return nil
}

// keyFrameDistance converts the key frame interval to a frame count.
func (c Config) keyFrameDistance() int {
	n := int(c.KeyFrameInterval.Seconds() * float64(c.FPS))
	if n < 1 {
		n = 1
	}
	return n
}

// SessionOptions sizes the slot pools and the bounded waits.
type SessionOptions struct {
	InputSlots   int
	OutputSlots  int
	InputTimeout time.Duration
	DrainTimeout time.Duration
}

// DefaultSessionOptions returns the options used for zero fields.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		InputSlots:   4,
		OutputSlots:  8,
		InputTimeout: 20 * time.Millisecond,
		DrainTimeout: 20 * time.Millisecond,
	}
}

func (o SessionOptions) withDefaults() SessionOptions {
	d := DefaultSessionOptions()
	if o.InputSlots <= 0 {
		o.InputSlots = d.InputSlots
	}
	if o.OutputSlots <= 0 {
		o.OutputSlots = d.OutputSlots
	}
	if o.InputTimeout <= 0 {
		o.InputTimeout = d.InputTimeout
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = d.DrainTimeout
	}
	return o
}

// DrainResult is what one DrainOutput call collected.
type DrainResult struct {
	// Format is set on the one call that observed the engine's output format.
	Format *pipeline.OutputFormat

	// Units must each be released by the caller.
	Units []pipeline.AccessUnit

	// EOS is set once the engine has emitted its last unit.
	EOS bool
}

// SessionStats is a snapshot of session counters.
type SessionStats struct {
	State           State
	FramesIn        int64
	UnitsOut        int64
	InputSlotsFree  int
	OutputSlotsFree int
}

type inputJob struct {
	buf []byte
	pts int64
}

// Session is one encoder lifetime: configure, start, feed, drain, stop,
// release. EnqueueInput and DrainOutput are meant to be called from a single
// goroutine; Release may be called from anywhere.
type Session struct {
	engine ports.Engine
	opts   SessionOptions
	log    ports.Logger

	mu            sync.Mutex
	state         State
	err           error
	cfg           Config
	frameSize     int
	inputs        *slotPool
	outputs       *slotPool
	pending       chan inputJob
	pendingClosed bool
	feederDone    chan struct{}
	formatSeen    bool
	eos           bool
	framesIn      int64
	unitsOut      int64
}

// NewSession creates a session around engine.
func NewSession(engine ports.Engine, opts SessionOptions, log ports.Logger) *Session {
	return &Session{
		engine: engine,
		opts:   opts.withDefaults(),
		log:    log,
		state:  StateCreated,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the session to StateFailed, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns current counters.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionStats{State: s.state, FramesIn: s.framesIn, UnitsOut: s.unitsOut}
	if s.inputs != nil {
		st.InputSlotsFree = s.inputs.available()
	}
	if s.outputs != nil {
		st.OutputSlotsFree = s.outputs.available()
	}
	return st
}

// Configure validates cfg and opens the engine. On error the session stays
// in StateCreated.
func (s *Session) Configure(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCreated {
		return s.stateErrLocked("configure")
	}

	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	err := s.engine.Open(ctx, ports.EngineConfig{
		Width:            cfg.Width,
		Height:           cfg.Height,
		FPS:              cfg.FPS,
		Bitrate:          cfg.Bitrate,
		Codec:            cfg.Codec,
		Layout:           cfg.Layout,
		KeyFrameInterval: cfg.keyFrameDistance(),
	})
	if err != nil {
		return fmt.Errorf("%w: open engine: %w", pipeline.ErrUnsupportedConfiguration, err)
	}

	s.cfg = cfg
	s.frameSize = pipeline.PlanarSize(cfg.Width, cfg.Height)
	s.state = StateConfigured
	s.log.Debug("Session configured: %dx%d at %d fps, %d bps, %s",
		cfg.Width, cfg.Height, cfg.FPS, cfg.Bitrate, cfg.Layout)
	return nil
}

// Start allocates the slot pools and starts feeding the engine.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConfigured {
		return s.stateErrLocked("start")
	}

	s.inputs = newSlotPool(s.opts.InputSlots, s.frameSize)
	s.outputs = newSlotPool(s.opts.OutputSlots, s.frameSize/8)
	s.pending = make(chan inputJob, s.opts.InputSlots)
	s.feederDone = make(chan struct{})
	s.state = StateRunning

	go s.feed(s.pending, s.feederDone)

	s.log.Debug("Session started with %d input slots and %d output slots",
		s.opts.InputSlots, s.opts.OutputSlots)
	return nil
}

// EnqueueInput copies buf into a free input slot and queues it for the
// engine with the given presentation timestamp in microseconds.
//
// If no slot frees up within the input timeout it returns
// pipeline.ErrTryAgain; the caller should drain output and retry.
func (s *Session) EnqueueInput(buf pipeline.PlanarBuffer, pts int64) error {
	s.mu.Lock()
	if s.state != StateRunning {
		err := s.stateErrLocked("enqueue input")
		s.mu.Unlock()
		return err
	}
	cfg, size, inputs := s.cfg, s.frameSize, s.inputs
	s.mu.Unlock()

	if buf.Width != cfg.Width || buf.Height != cfg.Height || len(buf.Data) < size {
		return fmt.Errorf("%w: got %dx%d (%d bytes), session is %dx%d",
			pipeline.ErrInvalidFrameGeometry, buf.Width, buf.Height, len(buf.Data), cfg.Width, cfg.Height)
	}
	if buf.Layout != cfg.Layout {
		return fmt.Errorf("%w: layout %s, session expects %s",
			pipeline.ErrUnsupportedPixelFormat, buf.Layout, cfg.Layout)
	}

	slot, ok := inputs.get(s.opts.InputTimeout)
	if !ok {
		return pipeline.ErrTryAgain
	}
	copy(slot, buf.Data[:size])

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		inputs.put(slot)
		return s.stateErrLocked("enqueue input")
	}
	// Never blocks: pending holds at most as many jobs as there are slots.
	s.pending <- inputJob{buf: slot, pts: pts}
	s.framesIn++
	return nil
}

// DrainOutput collects whatever the engine has produced.
//
// While running it never blocks. While draining it waits up to the drain
// timeout for the first event. It stops early when every output slot is
// held by an unreleased unit.
func (s *Session) DrainOutput() (DrainResult, error) {
	s.mu.Lock()
	state := s.state
	if state != StateRunning && state != StateDraining {
		err := s.stateErrLocked("drain output")
		s.mu.Unlock()
		return DrainResult{}, err
	}
	if s.eos {
		s.mu.Unlock()
		return DrainResult{EOS: true}, nil
	}
	outputs := s.outputs
	s.mu.Unlock()

	var res DrainResult
	events := s.engine.Events()

	wait := time.Duration(0)
	if state == StateDraining {
		wait = s.opts.DrainTimeout
	}

	for {
		slot, ok := outputs.get(0)
		if !ok {
			break
		}

		ev, open, got := receive(events, wait)
		wait = 0
		if !got {
			outputs.put(slot)
			break
		}
		if !open {
			outputs.put(slot)
			if state != StateDraining {
				return s.abort(res, fmt.Errorf("%w: engine exited while running", pipeline.ErrEncoderFault))
			}
			res.EOS = true
			break
		}

		if ev.Err != nil {
			outputs.put(slot)
			return s.abort(res, fmt.Errorf("%w: %w", pipeline.ErrEncoderFault, ev.Err))
		}

		if ev.Format != nil {
			outputs.put(slot)
			s.mu.Lock()
			seen := s.formatSeen
			s.formatSeen = true
			s.mu.Unlock()
			if seen {
				return s.abort(res, pipeline.ErrFormatRenegotiation)
			}
			res.Format = ev.Format
			s.log.Debug("Output format: %s %dx%d", ev.Format.CodecString, ev.Format.Width, ev.Format.Height)
			continue
		}

		if len(ev.Data) == 0 {
			outputs.put(slot)
		} else {
			s.mu.Lock()
			seen := s.formatSeen
			s.mu.Unlock()
			if !seen {
				outputs.put(slot)
				return s.abort(res, fmt.Errorf("%w: output before format", pipeline.ErrEncoderFault))
			}

			data := append(slot[:0], ev.Data...)
			var flags pipeline.UnitFlags
			if ev.KeyFrame {
				flags |= pipeline.FlagKeyFrame
			}
			if ev.EOS {
				flags |= pipeline.FlagEndOfStream
			}
			res.Units = append(res.Units, pipeline.NewAccessUnit(data, ev.PTS, flags, func() {
				outputs.put(data)
			}))
		}

		if ev.EOS {
			res.EOS = true
			break
		}
	}

	s.mu.Lock()
	s.unitsOut += int64(len(res.Units))
	if res.EOS {
		s.eos = true
	}
	s.mu.Unlock()

	return res, nil
}

// SignalEndOfStream stops accepting input. Already queued pictures are still
// written, then the engine is told to flush.
func (s *Session) SignalEndOfStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return s.stateErrLocked("signal end of stream")
	}
	s.state = StateDraining
	s.closePendingLocked()
	s.log.Debug("Session draining after %d frames", s.framesIn)
	return nil
}

// Stop waits for the engine to finish after end of stream.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateDraining {
		err := s.stateErrLocked("stop")
		s.mu.Unlock()
		return err
	}
	done := s.feederDone
	s.mu.Unlock()

	<-done
	err := s.engine.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFailed {
		return s.err
	}
	s.state = StateStopped
	if err != nil {
		return fmt.Errorf("%w: close engine: %w", pipeline.ErrEncoderFault, err)
	}
	return nil
}

// Release frees the engine and pools. It is valid in every state, including
// StateFailed, and may be called more than once.
func (s *Session) Release() {
	s.mu.Lock()
	if s.state == StateReleased {
		s.mu.Unlock()
		return
	}
	s.state = StateReleased
	s.closePendingLocked()
	done := s.feederDone
	s.mu.Unlock()

	if err := s.engine.Close(); err != nil {
		s.log.Debug("Engine close: %v", err)
	}
	if done != nil {
		<-done
	}
}

func (s *Session) feed(pending <-chan inputJob, done chan<- struct{}) {
	defer close(done)

	for job := range pending {
		err := s.engine.Write(job.buf, job.pts)
		s.inputs.put(job.buf)
		if err != nil {
			s.fail(fmt.Errorf("%w: write frame: %w", pipeline.ErrEncoderFault, err))
			for job := range pending {
				s.inputs.put(job.buf)
			}
			return
		}
	}

	if s.State() == StateReleased {
		return
	}
	if err := s.engine.CloseInput(); err != nil {
		s.fail(fmt.Errorf("%w: close input: %w", pipeline.ErrEncoderFault, err))
	}
}

func (s *Session) closePendingLocked() {
	if s.pending != nil && !s.pendingClosed {
		close(s.pending)
		s.pendingClosed = true
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLocked(err)
}

func (s *Session) failLocked(err error) {
	switch s.state {
	case StateFailed, StateStopped, StateReleased:
		return
	}
	s.state = StateFailed
	s.err = err
	s.log.Error("Encoder session failed: %v", err)
}

// abort releases the units collected so far and fails the session.
func (s *Session) abort(res DrainResult, err error) (DrainResult, error) {
	for _, u := range res.Units {
		u.Release()
	}
	s.fail(err)
	return DrainResult{}, err
}

func (s *Session) stateErrLocked(op string) error {
	if s.state == StateFailed && s.err != nil {
		return s.err
	}
	return fmt.Errorf("%w: %s in state %s", pipeline.ErrInvalidState, op, s.state)
}

// receive polls events, waiting up to wait if nothing is ready.
func receive(events <-chan ports.EngineEvent, wait time.Duration) (ev ports.EngineEvent, open, got bool) {
	select {
	case ev, open = <-events:
		return ev, open, true
	default:
	}
	if wait <= 0 {
		return ev, false, false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case ev, open = <-events:
		return ev, open, true
	case <-timer.C:
		return ev, false, false
	}
}
