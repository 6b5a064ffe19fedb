// Package orchestrator runs one recording: it accepts raw frames from a
// capture source and turns them into a finished MP4 file on a private
// worker goroutine.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/framerec/pkg/adapters/h264encoder"
	"github.com/user/framerec/pkg/adapters/logger"
	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

// Config contains all configuration for one recording.
type Config struct {
	// Output
	OutputPath string

	// Encoding
	FPS              int
	Bitrate          int // bits per second
	Codec            string
	Layout           pipeline.ChromaLayout
	KeyFrameInterval time.Duration
	FragmentSamples  int

	// Frame queue
	QueueSize     int
	Policy        Policy
	SubmitTimeout time.Duration

	// Encoder session
	InputSlots   int
	OutputSlots  int
	InputTimeout time.Duration
	DrainTimeout time.Duration

	// StopTimeout bounds how long Stop waits for the encoder to flush.
	StopTimeout time.Duration

	// OnComplete is called exactly once with the outcome, never on the
	// goroutine that called Stop. It runs after Done is closed, so it may
	// call Stop or Wait itself.
	OnComplete func(Result)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		FPS:              30,
		Bitrate:          2_000_000,
		Codec:            "h264",
		Layout:           pipeline.LayoutI420,
		KeyFrameInterval: time.Second,

		QueueSize:     64,
		Policy:        PolicyBackpressure,
		SubmitTimeout: 50 * time.Millisecond,

		InputSlots:   4,
		OutputSlots:  8,
		InputTimeout: 20 * time.Millisecond,
		DrainTimeout: 20 * time.Millisecond,

		StopTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FPS <= 0 {
		c.FPS = d.FPS
	}
	if c.Bitrate <= 0 {
		c.Bitrate = d.Bitrate
	}
	if c.Codec == "" {
		c.Codec = d.Codec
	}
	if c.KeyFrameInterval <= 0 {
		c.KeyFrameInterval = d.KeyFrameInterval
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = d.SubmitTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
	return c
}

func (c Config) sessionOptions() h264encoder.SessionOptions {
	return h264encoder.SessionOptions{
		InputSlots:   c.InputSlots,
		OutputSlots:  c.OutputSlots,
		InputTimeout: c.InputTimeout,
		DrainTimeout: c.DrainTimeout,
	}
}

// Deps are the collaborators of a recording. Notifier is optional.
type Deps struct {
	Engine   ports.Engine
	FS       ports.FileSystem
	Logger   ports.Logger
	Notifier ports.Notifier
}

// Result is the outcome of a recording. Err is nil on success, and Path
// then names a complete file.
type Result struct {
	Path        string
	Frames      int
	Samples     int
	KeyFrames   int
	Dropped     int
	Rejected    int
	Width       int
	Height      int
	CodecString string
	Duration    time.Duration
	Size        int64
	Elapsed     time.Duration

	Err    error
	Reason string
}

// OK reports whether the recording produced a file.
func (r Result) OK() bool {
	return r.Err == nil
}

// Stats is a snapshot of a running recording.
type Stats struct {
	Submitted  int64
	Encoded    int64
	Dropped    int64
	Rejected   int64
	QueueDepth int
}

// Orchestrator accepts frames from any goroutine and encodes them on a
// single worker goroutine, which owns the encoder session and the muxer.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger ports.Logger
	queue  *frameQueue

	mu      sync.Mutex
	started bool
	stopped bool

	encoded  atomic.Int64
	finished chan struct{}
	result   Result
}

// New creates a new Orchestrator for one recording.
func New(cfg Config, deps Deps) *Orchestrator {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = logger.NewNoop()
	}
	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger.WithComponent("pipeline"),
		queue:    newFrameQueue(cfg.QueueSize),
		finished: make(chan struct{}),
	}
}

// Start launches the worker. Cancelling ctx aborts the recording and
// deletes any partial output; use Stop for a clean finish.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return fmt.Errorf("%w: pipeline already started", pipeline.ErrInvalidState)
	}
	if o.stopped {
		return pipeline.ErrStopped
	}
	if o.deps.Engine == nil || o.deps.FS == nil {
		return fmt.Errorf("%w: engine and filesystem are required", pipeline.ErrUnsupportedConfiguration)
	}
	o.started = true

	o.logger.Info("Recording to %s at %d fps", o.cfg.OutputPath, o.cfg.FPS)
	go o.run(ctx)
	return nil
}

// Submit queues a frame for encoding. The pipeline owns the frame from
// here on and releases it exactly once, also when Submit fails. Submit
// never blocks longer than the submit timeout. Use it for live sources
// that cannot be paused.
func (o *Orchestrator) Submit(frame pipeline.RawFrame) error {
	if err := o.accepting(); err != nil {
		frame.Done()
		return err
	}

	if _, err := o.queue.push(frame, o.cfg.Policy, o.cfg.SubmitTimeout); err != nil {
		frame.Done()
		if errors.Is(err, pipeline.ErrQueueFull) {
			o.logger.Warn("Frame queue full, frame rejected")
		}
		return err
	}
	return nil
}

// SubmitWait queues a frame, waiting as long as it takes for queue space.
// It never drops or rejects, regardless of the policy, so it suits sources
// that are read at the encoder's pace such as files. It returns ctx.Err()
// if ctx ends first and ErrStopped once the recording has stopped. The
// frame is released on failure, as with Submit.
func (o *Orchestrator) SubmitWait(ctx context.Context, frame pipeline.RawFrame) error {
	if err := o.accepting(); err != nil {
		frame.Done()
		return err
	}

	if _, err := o.queue.pushWait(ctx, frame); err != nil {
		frame.Done()
		return err
	}
	return nil
}

func (o *Orchestrator) accepting() error {
	o.mu.Lock()
	started, stopped := o.started, o.stopped
	o.mu.Unlock()

	if stopped {
		return pipeline.ErrStopped
	}
	if !started {
		return fmt.Errorf("%w: pipeline not started", pipeline.ErrInvalidState)
	}
	return nil
}

// Stop ends the recording. Frames already queued are still encoded, the
// file is finalized, and the result is returned once the worker is done.
// Calling Stop again returns the same result.
func (o *Orchestrator) Stop() Result {
	o.mu.Lock()
	started := o.started
	first := !o.stopped
	o.stopped = true
	o.mu.Unlock()

	o.queue.close()

	if !started && first {
		go o.complete(context.Background(), Result{
			Path:   o.cfg.OutputPath,
			Err:    pipeline.ErrNoFramesRecorded,
			Reason: pipeline.Reason(pipeline.ErrNoFramesRecorded),
		})
	}
	return o.Wait()
}

// Wait blocks until the recording has finished and returns its result.
func (o *Orchestrator) Wait() Result {
	<-o.finished
	return o.result
}

// Done is closed once the result is available.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.finished
}

// Stats returns a snapshot of the recording's counters.
func (o *Orchestrator) Stats() Stats {
	accepted, dropped, rejected := o.queue.counts()
	return Stats{
		Submitted:  accepted,
		Encoded:    o.encoded.Load(),
		Dropped:    dropped,
		Rejected:   rejected,
		QueueDepth: o.queue.depth(),
	}
}

func (o *Orchestrator) run(ctx context.Context) {
	begin := time.Now()
	rec := newRecording(o.cfg, o.deps, o.logger, &o.encoded)

	var err error
	for {
		frame, ok := o.queue.pop(ctx)
		if !ok {
			break
		}
		if err = rec.process(ctx, frame); err != nil {
			break
		}
	}
	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		if n := o.queue.discard(); n > 0 {
			o.logger.Debug("Discarded %d queued frames", n)
		}
		rec.abort()
	} else {
		err = rec.finish(ctx)
	}

	res := rec.result(err)
	_, dropped, rejected := o.queue.counts()
	res.Dropped = int(dropped)
	res.Rejected = int(rejected)
	res.Elapsed = time.Since(begin)

	if err != nil {
		o.logger.Error("Recording failed: %s", err)
	} else {
		o.logger.Info("Saved %d frames to %s", res.Samples, res.Path)
		if res.Dropped > 0 {
			o.logger.Warn("%d frames were dropped", res.Dropped)
		}
		if res.Rejected > 0 {
			o.logger.Warn("%d frames were rejected", res.Rejected)
		}
	}
	o.complete(ctx, res)
}

// complete publishes res, then hands it to OnComplete. The notifier only
// hears about finished files.
func (o *Orchestrator) complete(ctx context.Context, res Result) {
	if res.OK() && o.deps.Notifier != nil {
		nctx := context.WithoutCancel(ctx)
		if err := o.deps.Notifier.NotifySaved(nctx, res.Path); err != nil {
			o.logger.Warn("Failed to notify: %s", err)
		}
	}

	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()

	o.result = res
	close(o.finished)

	if o.cfg.OnComplete != nil {
		o.cfg.OnComplete(res)
	}
}
