// Package colorspace implements the RGB to 4:2:0 conversion stage.
package colorspace

import (
	"context"
	"fmt"

	"github.com/user/framerec/pkg/pipeline"
)

// Converter turns interleaved RGB(A) frames into 4:2:0 planar buffers using
// full-range BT.601 fixed-point weights. It holds no state beyond its
// layout and is safe for concurrent use.
type Converter struct {
	Layout pipeline.ChromaLayout
}

// New creates a converter producing the given chroma layout.
func New(layout pipeline.ChromaLayout) *Converter {
	return &Converter{Layout: layout}
}

// Execute implements pipeline.Stage.
func (c *Converter) Execute(ctx context.Context, frame pipeline.RawFrame) (pipeline.PlanarBuffer, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.PlanarBuffer{}, err
	}
	return c.Convert(frame)
}

// Convert allocates a new planar buffer and fills it from frame.
func (c *Converter) Convert(frame pipeline.RawFrame) (pipeline.PlanarBuffer, error) {
	if err := frame.Validate(); err != nil {
		return pipeline.PlanarBuffer{}, err
	}
	dst := make([]byte, pipeline.PlanarSize(frame.Width, frame.Height))
	return c.ConvertInto(dst, frame)
}

// ConvertInto fills dst, which must hold at least PlanarSize bytes, and
// returns a buffer that aliases it.
func (c *Converter) ConvertInto(dst []byte, frame pipeline.RawFrame) (pipeline.PlanarBuffer, error) {
	if err := frame.Validate(); err != nil {
		return pipeline.PlanarBuffer{}, err
	}
	size := pipeline.PlanarSize(frame.Width, frame.Height)
	if len(dst) < size {
		return pipeline.PlanarBuffer{}, fmt.Errorf("%w: destination has %d bytes, need %d",
			pipeline.ErrInvalidFrameGeometry, len(dst), size)
	}

	rOff, gOff, bOff := channelOffsets(frame.Format)
	bpp := frame.Format.BytesPerPixel()
	width, height := frame.Width, frame.Height
	ySize := width * height
	src := frame.Data

	yPlane := dst[:ySize]
	var uPlane, vPlane, uvPlane []byte
	if c.Layout == pipeline.LayoutNV12 {
		uvPlane = dst[ySize : ySize+ySize/2]
	} else {
		uPlane = dst[ySize : ySize+ySize/4]
		vPlane = dst[ySize+ySize/4 : ySize+ySize/2]
	}

	chromaWidth := width / 2
	for y := 0; y < height; y++ {
		row := y * width * bpp
		for x := 0; x < width; x++ {
			idx := row + x*bpp
			r := int(src[idx+rOff])
			g := int(src[idx+gOff])
			b := int(src[idx+bOff])

			yPlane[y*width+x] = luma(r, g, b)

			if y%2 != 0 || x%2 != 0 {
				continue
			}
			u, v := chroma(r, g, b)
			ci := (y/2)*chromaWidth + x/2
			if uvPlane != nil {
				uvPlane[2*ci] = u
				uvPlane[2*ci+1] = v
			} else {
				uPlane[ci] = u
				vPlane[ci] = v
			}
		}
	}

	return pipeline.PlanarBuffer{
		Width:  width,
		Height: height,
		Layout: c.Layout,
		Data:   dst[:size],
		Seq:    frame.Seq,
	}, nil
}

// luma computes Y = 0.299R + 0.587G + 0.114B in 8.8 fixed point.
func luma(r, g, b int) byte {
	return clamp((77*r + 150*g + 29*b + 128) >> 8)
}

// chroma computes the Cb/Cr colour differences in 8.8 fixed point.
func chroma(r, g, b int) (u, v byte) {
	u = clamp(((-43*r - 85*g + 128*b + 128) >> 8) + 128)
	v = clamp(((128*r - 107*g - 21*b + 128) >> 8) + 128)
	return u, v
}

func clamp(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func channelOffsets(f pipeline.PixelFormat) (r, g, b int) {
	if f == pipeline.PixelFormatBGRA32 {
		return 2, 1, 0
	}
	return 0, 1, 2
}

// AverageLuma returns the mean of the luma plane.
func AverageLuma(buf pipeline.PlanarBuffer) float64 {
	y := buf.Y()
	if len(y) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range y {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(y))
}

// Ensure Converter implements pipeline.Stage
var _ pipeline.Stage[pipeline.RawFrame, pipeline.PlanarBuffer] = (*Converter)(nil)
