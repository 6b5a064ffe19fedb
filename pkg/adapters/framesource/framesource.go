// Package framesource provides capture sources that feed raw frames to the
// recorder: a drawn test pattern, a directory of still images and a raw
// pixel stream.
package framesource

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

// Kinds accepted by New.
const (
	KindSynthetic = "synthetic"
	KindDir       = "dir"
	KindRaw       = "raw"
)

// Options shape the frames a source produces.
type Options struct {
	Width  int
	Height int
	Format pipeline.PixelFormat

	// Frames limits the number of frames. Zero means until the input ends,
	// or forever for the synthetic source.
	Frames int

	// FPS and Realtime pace Next to wall-clock time.
	FPS      int
	Realtime bool

	// Background and Foreground colour the synthetic pattern.
	Background color.Color
	Foreground color.Color
}

func (o Options) frameSize() int {
	return o.Width * o.Height * o.Format.BytesPerPixel()
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", pipeline.ErrInvalidFrameGeometry, o.Width, o.Height)
	}
	if o.Format.BytesPerPixel() == 0 {
		return fmt.Errorf("%w: %v", pipeline.ErrUnsupportedPixelFormat, o.Format)
	}
	return nil
}

// New opens the source of the given kind. input is a directory for
// KindDir and a file path or "-" for KindRaw.
func New(kind, input string, opts Options, renderer ports.Renderer) (ports.FrameSource, error) {
	switch kind {
	case KindSynthetic, "":
		return NewSynthetic(renderer, opts)
	case KindDir:
		return NewDir(input, renderer, opts)
	case KindRaw:
		return OpenRaw(input, opts)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

// bufferPool recycles frame buffers through each frame's Release hook.
type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	p := &bufferPool{size: size}
	p.pool.New = func() any { return make([]byte, size) }
	return p
}

func (p *bufferPool) get() []byte {
	return p.pool.Get().([]byte)[:p.size]
}

func (p *bufferPool) frame(data []byte, opts Options) pipeline.RawFrame {
	return pipeline.RawFrame{
		Width:   opts.Width,
		Height:  opts.Height,
		Format:  opts.Format,
		Data:    data,
		Release: func() { p.pool.Put(data) },
	}
}

// Pack writes img into dst using the byte order of format. img must
// already have the frame's size.
func Pack(dst []byte, img image.Image, format pipeline.PixelFormat) {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	bpp := format.BytesPerPixel()
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		out := dst[y*w*bpp : (y+1)*w*bpp]
		switch format {
		case pipeline.PixelFormatRGBA32:
			copy(out, row)
		case pipeline.PixelFormatBGRA32:
			for x := 0; x < w; x++ {
				out[x*4+0] = row[x*4+2]
				out[x*4+1] = row[x*4+1]
				out[x*4+2] = row[x*4+0]
				out[x*4+3] = row[x*4+3]
			}
		case pipeline.PixelFormatRGB24:
			for x := 0; x < w; x++ {
				out[x*3+0] = row[x*4+0]
				out[x*3+1] = row[x*4+1]
				out[x*3+2] = row[x*4+2]
			}
		}
	}
}

// Unpack copies a frame into a new RGBA image.
func Unpack(frame pipeline.RawFrame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	bpp := frame.Format.BytesPerPixel()
	for i := 0; i < frame.Width*frame.Height; i++ {
		px := frame.Data[i*bpp : i*bpp+bpp]
		out := img.Pix[i*4 : i*4+4]
		switch frame.Format {
		case pipeline.PixelFormatRGBA32:
			copy(out, px)
		case pipeline.PixelFormatBGRA32:
			out[0], out[1], out[2], out[3] = px[2], px[1], px[0], px[3]
		case pipeline.PixelFormatRGB24:
			out[0], out[1], out[2], out[3] = px[0], px[1], px[2], 255
		}
	}
	return img
}

// pacer spaces calls to wait one frame interval apart.
type pacer struct {
	interval time.Duration
	next     time.Time
}

func newPacer(opts Options) *pacer {
	if !opts.Realtime || opts.FPS <= 0 {
		return nil
	}
	return &pacer{interval: time.Second / time.Duration(opts.FPS)}
}

func (p *pacer) wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	now := time.Now()
	if p.next.IsZero() {
		p.next = now
	}
	if d := p.next.Sub(now); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.next = p.next.Add(p.interval)
	return nil
}
