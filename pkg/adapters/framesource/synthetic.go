package framesource

import (
	"context"
	"fmt"
	"image/color"
	"io"

	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

// Synthetic draws a moving test pattern: a box sliding across the frame,
// the frame number and a progress bar.
type Synthetic struct {
	renderer ports.Renderer
	opts     Options
	pool     *bufferPool
	pacer    *pacer
	n        int
}

// NewSynthetic creates a test pattern source.
func NewSynthetic(renderer ports.Renderer, opts Options) (*Synthetic, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if renderer == nil {
		return nil, fmt.Errorf("synthetic source needs a renderer")
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}
	if opts.Foreground == nil {
		opts.Foreground = color.White
	}
	return &Synthetic{
		renderer: renderer,
		opts:     opts,
		pool:     newBufferPool(opts.frameSize()),
		pacer:    newPacer(opts),
	}, nil
}

// Next draws the next frame.
func (s *Synthetic) Next(ctx context.Context) (pipeline.RawFrame, error) {
	if s.opts.Frames > 0 && s.n >= s.opts.Frames {
		return pipeline.RawFrame{}, io.EOF
	}
	if err := s.pacer.wait(ctx); err != nil {
		return pipeline.RawFrame{}, err
	}

	data := s.pool.get()
	Pack(data, s.draw(s.n).ToImage(), s.opts.Format)
	s.n++
	return s.pool.frame(data, s.opts), nil
}

func (s *Synthetic) draw(n int) ports.Canvas {
	w, h := s.opts.Width, s.opts.Height
	canvas := s.renderer.CreateCanvas(w, h, s.opts.Background)

	box := h / 4
	if box < 2 {
		box = 2
	}
	travel := w - box
	if travel < 1 {
		travel = 1
	}
	// The box moves 4 pixels per frame and bounces at the edges.
	x := (n * 4) % (2 * travel)
	if x > travel {
		x = 2*travel - x
	}
	canvas.DrawRoundedRect(x, (h-box)/2, box, box, box/6, s.opts.Foreground)

	canvas.DrawText(fmt.Sprintf("frame %d", n), w/2, h/8, ports.TextStyle{
		FontSize: 13,
		Color:    s.opts.Foreground,
		Align:    ports.AlignCenter,
	})

	if s.opts.Frames > 0 {
		done := w * (n + 1) / s.opts.Frames
		canvas.DrawLine(0, h-2, done, h-2, s.opts.Foreground, 4)
	}
	canvas.DrawRectStroke(0, 0, w, h, s.opts.Foreground, 2)
	return canvas
}

// Close stops the source.
func (s *Synthetic) Close() error {
	return nil
}

var _ ports.FrameSource = (*Synthetic)(nil)
