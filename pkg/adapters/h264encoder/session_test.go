package h264encoder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/framerec/pkg/adapters/logger"
	"github.com/user/framerec/pkg/mocks"
	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

func testConfig() Config {
	return Config{
		Width:   64,
		Height:  48,
		FPS:     30,
		Bitrate: 500_000,
		Codec:   "h264",
		Layout:  pipeline.LayoutI420,
	}
}

func testBuffer(cfg Config) pipeline.PlanarBuffer {
	return pipeline.PlanarBuffer{
		Width:  cfg.Width,
		Height: cfg.Height,
		Layout: cfg.Layout,
		Data:   make([]byte, pipeline.PlanarSize(cfg.Width, cfg.Height)),
	}
}

func startSession(t *testing.T, engine *mocks.Engine, opts SessionOptions) *Session {
	t.Helper()
	s := NewSession(engine, opts, logger.NewNoop())
	if err := s.Configure(context.Background(), testConfig()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return s
}

// collect drains s until it reports end of stream, releasing every unit.
func collect(t *testing.T, s *Session, res *[]pipeline.AccessUnit, formats *int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		out, err := s.DrainOutput()
		if err != nil {
			t.Fatalf("DrainOutput failed: %v", err)
		}
		if out.Format != nil {
			*formats++
		}
		for _, u := range out.Units {
			*res = append(*res, pipeline.AccessUnit{PTS: u.PTS, Flags: u.Flags})
			u.Release()
		}
		if out.EOS {
			return
		}
	}
	t.Fatal("timed out waiting for end of stream")
}

func TestSession_EncodesAllFrames(t *testing.T) {
	engine := mocks.NewEngine()
	s := startSession(t, engine, SessionOptions{})
	defer s.Release()

	cfg := testConfig()
	var units []pipeline.AccessUnit
	formats := 0
	numFrames := 10

	for i := 0; i < numFrames; i++ {
		pts := pipeline.Timestamp(int64(i), cfg.FPS)
		for {
			err := s.EnqueueInput(testBuffer(cfg), pts)
			if err == nil {
				break
			}
			if !errors.Is(err, pipeline.ErrTryAgain) {
				t.Fatalf("EnqueueInput failed at frame %d: %v", i, err)
			}
			out, err := s.DrainOutput()
			if err != nil {
				t.Fatalf("DrainOutput failed: %v", err)
			}
			if out.Format != nil {
				formats++
			}
			for _, u := range out.Units {
				units = append(units, pipeline.AccessUnit{PTS: u.PTS, Flags: u.Flags})
				u.Release()
			}
		}
	}

	if err := s.SignalEndOfStream(); err != nil {
		t.Fatalf("SignalEndOfStream failed: %v", err)
	}
	collect(t, s, &units, &formats)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.State() != StateStopped {
		t.Errorf("expected state stopped, got %s", s.State())
	}

	if formats != 1 {
		t.Errorf("expected exactly one format, got %d", formats)
	}
	if len(units) != numFrames {
		t.Fatalf("expected %d units, got %d", numFrames, len(units))
	}
	for i, u := range units {
		if want := pipeline.Timestamp(int64(i), cfg.FPS); u.PTS != want {
			t.Errorf("unit %d: PTS = %d, want %d", i, u.PTS, want)
		}
	}
	if !units[0].KeyFrame() {
		t.Error("expected first unit to be a key frame")
	}
	if got := engine.Config.KeyFrameInterval; got != 30 {
		t.Errorf("expected key frame distance 30, got %d", got)
	}
	if !engine.CloseInputCalled {
		t.Error("expected CloseInput to be called")
	}
}

func TestSession_ConfigureRejects(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"odd width", func(c *Config) { c.Width = 65 }},
		{"zero height", func(c *Config) { c.Height = 0 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"negative bitrate", func(c *Config) { c.Bitrate = -1 }},
		{"unknown codec", func(c *Config) { c.Codec = "vp8" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := mocks.NewEngine()
			s := NewSession(engine, SessionOptions{}, logger.NewNoop())
			cfg := testConfig()
			tt.modify(&cfg)

			err := s.Configure(context.Background(), cfg)
			if !errors.Is(err, pipeline.ErrUnsupportedConfiguration) {
				t.Errorf("expected ErrUnsupportedConfiguration, got %v", err)
			}
			if engine.OpenCalled {
				t.Error("engine should not be opened for invalid config")
			}
			if s.State() != StateCreated {
				t.Errorf("expected state created, got %s", s.State())
			}
		})
	}
}

func TestSession_ConfigureEngineFailure(t *testing.T) {
	engine := mocks.NewEngine()
	engine.OpenFunc = func(context.Context, ports.EngineConfig) error {
		return ErrFFmpegNotFound
	}
	s := NewSession(engine, SessionOptions{}, logger.NewNoop())

	err := s.Configure(context.Background(), testConfig())
	if !errors.Is(err, pipeline.ErrUnsupportedConfiguration) {
		t.Errorf("expected ErrUnsupportedConfiguration, got %v", err)
	}
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("expected wrapped ErrFFmpegNotFound, got %v", err)
	}
}

func TestSession_InvalidState(t *testing.T) {
	s := NewSession(mocks.NewEngine(), SessionOptions{}, logger.NewNoop())
	defer s.Release()

	if err := s.Start(); !errors.Is(err, pipeline.ErrInvalidState) {
		t.Errorf("Start before Configure: expected ErrInvalidState, got %v", err)
	}
	if err := s.EnqueueInput(testBuffer(testConfig()), 0); !errors.Is(err, pipeline.ErrInvalidState) {
		t.Errorf("EnqueueInput before Start: expected ErrInvalidState, got %v", err)
	}
	if _, err := s.DrainOutput(); !errors.Is(err, pipeline.ErrInvalidState) {
		t.Errorf("DrainOutput before Start: expected ErrInvalidState, got %v", err)
	}
	if err := s.SignalEndOfStream(); !errors.Is(err, pipeline.ErrInvalidState) {
		t.Errorf("SignalEndOfStream before Start: expected ErrInvalidState, got %v", err)
	}

	if err := s.Configure(context.Background(), testConfig()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := s.Configure(context.Background(), testConfig()); !errors.Is(err, pipeline.ErrInvalidState) {
		t.Errorf("second Configure: expected ErrInvalidState, got %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Stop(); !errors.Is(err, pipeline.ErrInvalidState) {
		t.Errorf("Stop while running: expected ErrInvalidState, got %v", err)
	}
}

func TestSession_RejectsMismatchedBuffer(t *testing.T) {
	s := startSession(t, mocks.NewEngine(), SessionOptions{})
	defer s.Release()

	buf := testBuffer(testConfig())
	buf.Width = 32
	if err := s.EnqueueInput(buf, 0); !errors.Is(err, pipeline.ErrInvalidFrameGeometry) {
		t.Errorf("expected ErrInvalidFrameGeometry, got %v", err)
	}

	buf = testBuffer(testConfig())
	buf.Layout = pipeline.LayoutNV12
	if err := s.EnqueueInput(buf, 0); !errors.Is(err, pipeline.ErrUnsupportedPixelFormat) {
		t.Errorf("expected ErrUnsupportedPixelFormat, got %v", err)
	}
}

func TestSession_TryAgainWhenInputSlotsBusy(t *testing.T) {
	gate := make(chan struct{})
	engine := mocks.NewEngine()
	engine.WriteFunc = func([]byte, int64) error {
		<-gate
		return nil
	}
	s := startSession(t, engine, SessionOptions{InputSlots: 2, InputTimeout: 10 * time.Millisecond})
	defer s.Release()
	defer close(gate)

	cfg := testConfig()
	if err := s.EnqueueInput(testBuffer(cfg), 0); err != nil {
		t.Fatalf("first EnqueueInput failed: %v", err)
	}
	if err := s.EnqueueInput(testBuffer(cfg), 33_333); err != nil {
		t.Fatalf("second EnqueueInput failed: %v", err)
	}

	start := time.Now()
	err := s.EnqueueInput(testBuffer(cfg), 66_666)
	if !errors.Is(err, pipeline.ErrTryAgain) {
		t.Fatalf("expected ErrTryAgain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("expected bounded wait of at least 10ms, returned after %v", elapsed)
	}
	if s.State() != StateRunning {
		t.Errorf("ErrTryAgain must not change state, got %s", s.State())
	}
}

func TestSession_OutputSlotsBoundOutstandingUnits(t *testing.T) {
	engine := mocks.NewEngine()
	s := startSession(t, engine, SessionOptions{OutputSlots: 2, InputSlots: 2, InputTimeout: 5 * time.Millisecond})
	defer s.Release()

	cfg := testConfig()
	var held []pipeline.AccessUnit
	submitted := 0

	for attempt := 0; attempt < 200 && submitted < 8; attempt++ {
		err := s.EnqueueInput(testBuffer(cfg), pipeline.Timestamp(int64(submitted), cfg.FPS))
		if err == nil {
			submitted++
			continue
		}
		if !errors.Is(err, pipeline.ErrTryAgain) {
			t.Fatalf("EnqueueInput failed: %v", err)
		}
		out, err := s.DrainOutput()
		if err != nil {
			t.Fatalf("DrainOutput failed: %v", err)
		}
		held = append(held, out.Units...)
		if len(held) > 2 {
			t.Fatalf("expected at most 2 outstanding units, got %d", len(held))
		}
	}

	if len(held) != 2 {
		t.Fatalf("expected output pool to be exhausted with 2 units, got %d", len(held))
	}
	if submitted >= 8 {
		t.Fatal("expected input to stall while output slots are held")
	}
	if free := s.Stats().OutputSlotsFree; free != 0 {
		t.Errorf("expected no free output slots, got %d", free)
	}

	for _, u := range held {
		u.Release()
		u.Release()
	}
	if free := s.Stats().OutputSlotsFree; free != 2 {
		t.Errorf("expected 2 free output slots after release, got %d", free)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		out, err := s.DrainOutput()
		if err != nil {
			t.Fatalf("DrainOutput failed: %v", err)
		}
		if len(out.Units) > 0 {
			for _, u := range out.Units {
				u.Release()
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Error("expected output to resume after releasing units")
}

// drive feeds frames and drains output until an error occurs or the
// deadline passes. It returns the number of formats seen and the first error.
func drive(s *Session, frames int) (int, error) {
	cfg := testConfig()
	formats := 0
	frame := 0
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if frame < frames {
			err := s.EnqueueInput(testBuffer(cfg), pipeline.Timestamp(int64(frame), cfg.FPS))
			if err == nil {
				frame++
			} else if !errors.Is(err, pipeline.ErrTryAgain) {
				return formats, err
			}
		}
		out, err := s.DrainOutput()
		if err != nil {
			return formats, err
		}
		if out.Format != nil {
			formats++
		}
		for _, u := range out.Units {
			u.Release()
		}
	}
	return formats, nil
}

func TestSession_FormatRenegotiation(t *testing.T) {
	engine := mocks.NewEngine()
	engine.RenegotiateAfter = 2
	s := startSession(t, engine, SessionOptions{})
	defer s.Release()

	formats, err := drive(s, 5)
	if !errors.Is(err, pipeline.ErrFormatRenegotiation) {
		t.Fatalf("expected ErrFormatRenegotiation, got %v", err)
	}
	if formats != 1 {
		t.Errorf("expected the first format to be surfaced once, got %d", formats)
	}
	if s.State() != StateFailed {
		t.Errorf("expected state failed, got %s", s.State())
	}
	if err := s.EnqueueInput(testBuffer(testConfig()), 0); !errors.Is(err, pipeline.ErrFormatRenegotiation) {
		t.Errorf("failed session should keep reporting its error, got %v", err)
	}
}

func TestSession_EngineErrorFailsSession(t *testing.T) {
	engine := mocks.NewEngine()
	engine.FailAfter = 1
	s := startSession(t, engine, SessionOptions{})
	defer s.Release()

	_, err := drive(s, 3)
	if !errors.Is(err, pipeline.ErrEncoderFault) {
		t.Fatalf("expected ErrEncoderFault, got %v", err)
	}
	if s.State() != StateFailed {
		t.Errorf("expected state failed, got %s", s.State())
	}
}

func TestSession_ReleaseIsIdempotent(t *testing.T) {
	engine := mocks.NewEngine()
	s := startSession(t, engine, SessionOptions{})

	s.Release()
	s.Release()

	if s.State() != StateReleased {
		t.Errorf("expected state released, got %s", s.State())
	}
	if !engine.CloseCalled {
		t.Error("expected engine to be closed")
	}
	if err := s.EnqueueInput(testBuffer(testConfig()), 0); !errors.Is(err, pipeline.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after release, got %v", err)
	}
}

func TestSession_ReleaseBeforeConfigure(t *testing.T) {
	engine := mocks.NewEngine()
	s := NewSession(engine, SessionOptions{}, logger.NewNoop())
	s.Release()
	if s.State() != StateReleased {
		t.Errorf("expected state released, got %s", s.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateConfigured, "configured"},
		{StateRunning, "running"},
		{StateDraining, "draining"},
		{StateStopped, "stopped"},
		{StateReleased, "released"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestKeyFrameDistance(t *testing.T) {
	tests := []struct {
		fps      int
		interval time.Duration
		want     int
	}{
		{30, time.Second, 30},
		{30, 2 * time.Second, 60},
		{25, 0, 25},
		{10, time.Millisecond, 1},
	}
	for _, tt := range tests {
		cfg := Config{FPS: tt.fps, KeyFrameInterval: tt.interval}.withDefaults()
		if got := cfg.keyFrameDistance(); got != tt.want {
			t.Errorf("fps=%d interval=%v: got %d, want %d", tt.fps, tt.interval, got, tt.want)
		}
	}
}
