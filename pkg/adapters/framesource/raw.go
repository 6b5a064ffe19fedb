package framesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

// Raw reads tightly packed frames of Width x Height pixels from a stream.
type Raw struct {
	r      io.Reader
	closer io.Closer
	opts   Options
	pool   *bufferPool
	pacer  *pacer
	n      int
}

// OpenRaw opens path for reading, or stdin when path is "-".
func OpenRaw(path string, opts Options) (*Raw, error) {
	if path == "-" {
		return NewRaw(os.Stdin, opts)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw input: %w", err)
	}
	src, err := NewRaw(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	src.closer = f
	return src, nil
}

// NewRaw reads frames from r.
func NewRaw(r io.Reader, opts Options) (*Raw, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Raw{
		r:     r,
		opts:  opts,
		pool:  newBufferPool(opts.frameSize()),
		pacer: newPacer(opts),
	}, nil
}

// Next reads the next frame. A stream that ends inside a frame is an error.
func (s *Raw) Next(ctx context.Context) (pipeline.RawFrame, error) {
	if s.opts.Frames > 0 && s.n >= s.opts.Frames {
		return pipeline.RawFrame{}, io.EOF
	}
	if err := s.pacer.wait(ctx); err != nil {
		return pipeline.RawFrame{}, err
	}

	buf := s.pool.get()
	if _, err := io.ReadFull(s.r, buf); err != nil {
		s.pool.pool.Put(buf)
		if errors.Is(err, io.EOF) {
			return pipeline.RawFrame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return pipeline.RawFrame{}, fmt.Errorf("frame %d is truncated", s.n)
		}
		return pipeline.RawFrame{}, fmt.Errorf("read frame %d: %w", s.n, err)
	}
	s.n++
	return s.pool.frame(buf, s.opts), nil
}

// Close closes the underlying file, if the source opened one.
func (s *Raw) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

var _ ports.FrameSource = (*Raw)(nil)
