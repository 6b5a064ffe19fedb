package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/user/framerec/pkg/adapters/h264encoder"
	"github.com/user/framerec/pkg/adapters/mp4muxer"
	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
	"github.com/user/framerec/pkg/stages/colorspace"
)

// recording is the worker-owned state of one output file. Nothing outside
// the worker goroutine touches it.
type recording struct {
	cfg     Config
	engine  ports.Engine
	fs      ports.FileSystem
	log     ports.Logger
	encoded *atomic.Int64

	converter *colorspace.Converter
	scratch   []byte
	session   *h264encoder.Session
	muxer     *mp4muxer.Muxer
	handle    mp4muxer.StreamHandle

	width       int
	height      int
	codecString string
	frames      int
	samples     int
	keyFrames   int
}

func newRecording(cfg Config, deps Deps, log ports.Logger, encoded *atomic.Int64) *recording {
	return &recording{
		cfg:       cfg,
		engine:    deps.Engine,
		fs:        deps.FS,
		log:       log,
		encoded:   encoded,
		converter: colorspace.New(cfg.Layout),
	}
}

// process converts one frame and feeds it to the encoder. The frame is
// released as soon as its pixels have been converted.
func (r *recording) process(ctx context.Context, frame pipeline.RawFrame) error {
	if err := frame.Validate(); err != nil {
		frame.Done()
		return fmt.Errorf("frame %d: %w", frame.Seq, err)
	}

	if r.session == nil {
		if err := r.open(ctx, frame.Width, frame.Height); err != nil {
			frame.Done()
			return err
		}
	} else if frame.Width != r.width || frame.Height != r.height {
		frame.Done()
		return fmt.Errorf("%w: frame %d is %dx%d, recording is %dx%d",
			pipeline.ErrInvalidFrameGeometry, frame.Seq, frame.Width, frame.Height, r.width, r.height)
	}

	buf, err := r.converter.ConvertInto(r.scratch, frame)
	frame.Done()
	if err != nil {
		return fmt.Errorf("convert frame %d: %w", frame.Seq, err)
	}

	pts := pipeline.Timestamp(frame.Seq, r.cfg.FPS)
	for {
		err := r.session.EnqueueInput(buf, pts)
		if err == nil {
			break
		}
		if !errors.Is(err, pipeline.ErrTryAgain) {
			return fmt.Errorf("enqueue input: %w", err)
		}
		if err := r.drain(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	r.frames++

	return r.drain()
}

// open configures the encoder from the first frame's geometry.
func (r *recording) open(ctx context.Context, width, height int) error {
	r.width, r.height = width, height
	r.scratch = make([]byte, pipeline.PlanarSize(width, height))
	r.session = h264encoder.NewSession(r.engine, r.cfg.sessionOptions(), r.log.WithComponent("encoder"))

	cfg := h264encoder.Config{
		Width:            width,
		Height:           height,
		FPS:              r.cfg.FPS,
		Bitrate:          r.cfg.Bitrate,
		Codec:            r.cfg.Codec,
		Layout:           r.cfg.Layout,
		KeyFrameInterval: r.cfg.KeyFrameInterval,
	}
	if err := r.session.Configure(ctx, cfg); err != nil {
		return fmt.Errorf("configure encoder: %w", err)
	}
	if err := r.session.Start(); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}

	r.log.Info("Encoding %dx%d at %d fps, %d bps", width, height, r.cfg.FPS, r.cfg.Bitrate)
	return nil
}

// drain moves everything the encoder has ready into the muxer.
func (r *recording) drain() error {
	for {
		out, err := r.session.DrainOutput()
		if err != nil {
			return fmt.Errorf("drain output: %w", err)
		}
		if err := r.route(out); err != nil {
			return err
		}
		if out.Format == nil && len(out.Units) == 0 {
			return nil
		}
	}
}

func (r *recording) route(out h264encoder.DrainResult) error {
	if out.Format != nil {
		if err := r.openMuxer(out.Format); err != nil {
			releaseAll(out.Units)
			return err
		}
	}
	for i, u := range out.Units {
		if err := r.write(u); err != nil {
			releaseAll(out.Units[i+1:])
			return err
		}
	}
	return nil
}

// openMuxer creates the output file once the encoder has told us what it
// produces. A recording that never gets here never touches the filesystem.
func (r *recording) openMuxer(format *pipeline.OutputFormat) error {
	if r.muxer != nil {
		return pipeline.ErrFormatRenegotiation
	}

	r.muxer = mp4muxer.New(r.cfg.OutputPath, r.fs, r.log.WithComponent("muxer"),
		mp4muxer.WithFrameDuration(pipeline.FrameDuration(r.cfg.FPS)),
		mp4muxer.WithFragmentSamples(r.cfg.FragmentSamples),
	)
	h, err := r.muxer.AddStream(format)
	if err != nil {
		return fmt.Errorf("add stream: %w", err)
	}
	if err := r.muxer.Start(); err != nil {
		return fmt.Errorf("start muxer: %w", err)
	}
	r.handle = h
	r.codecString = format.CodecString
	return nil
}

func (r *recording) write(u pipeline.AccessUnit) error {
	defer u.Release()

	if r.muxer == nil {
		return fmt.Errorf("%w: access unit before output format", pipeline.ErrEncoderFault)
	}
	if err := r.muxer.WriteSample(r.handle, u); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	r.samples++
	if u.KeyFrame() {
		r.keyFrames++
	}
	r.encoded.Add(1)
	return nil
}

// finish flushes the encoder and finalizes the file. On any failure the
// partial output is removed.
func (r *recording) finish(ctx context.Context) error {
	if r.session == nil {
		return pipeline.ErrNoFramesRecorded
	}

	err := r.flush(ctx)
	if err == nil && r.samples == 0 {
		err = fmt.Errorf("%w: no output for %d frames", pipeline.ErrEncoderFault, r.frames)
	}
	if err == nil {
		if ferr := r.muxer.Finalize(); ferr != nil {
			err = fmt.Errorf("finalize: %w", ferr)
		}
	}
	if err != nil {
		r.abort()
		return err
	}

	r.session.Release()
	return nil
}

func (r *recording) flush(ctx context.Context) error {
	if err := r.session.SignalEndOfStream(); err != nil {
		return fmt.Errorf("signal end of stream: %w", err)
	}

	deadline := time.Now().Add(r.cfg.StopTimeout)
	for {
		out, err := r.session.DrainOutput()
		if err != nil {
			return fmt.Errorf("drain output: %w", err)
		}
		if err := r.route(out); err != nil {
			return err
		}
		if out.EOS {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: encoder did not finish within %s", pipeline.ErrEncoderFault, r.cfg.StopTimeout)
		}
	}

	if err := r.session.Stop(); err != nil {
		return fmt.Errorf("stop encoder: %w", err)
	}
	return nil
}

// abort releases the encoder and deletes any partial output.
func (r *recording) abort() {
	if r.session != nil {
		r.session.Release()
	}
	if r.muxer != nil {
		if err := r.muxer.Abort(); err != nil {
			r.log.Warn("Failed to remove partial output: %s", err)
		}
	}
}

func (r *recording) result(err error) Result {
	res := Result{
		Path:        r.cfg.OutputPath,
		Frames:      r.frames,
		Samples:     r.samples,
		KeyFrames:   r.keyFrames,
		Width:       r.width,
		Height:      r.height,
		CodecString: r.codecString,
		Err:         err,
		Reason:      pipeline.Reason(err),
	}
	if r.muxer != nil && err == nil {
		st := r.muxer.Stats()
		res.Duration = time.Duration(st.Duration) * time.Microsecond
		res.Size = st.Bytes
	}
	return res
}

func releaseAll(units []pipeline.AccessUnit) {
	for _, u := range units {
		u.Release()
	}
}
