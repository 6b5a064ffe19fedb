package pipeline

import "sync"

// =============================================================================
// Raw Frames
// =============================================================================

// PixelFormat identifies the interleaved byte order of a raw frame.
type PixelFormat int

const (
	// PixelFormatUnknown is the zero value and is never accepted.
	PixelFormatUnknown PixelFormat = iota
	// PixelFormatRGB24 stores R, G, B (3 bytes per pixel).
	PixelFormatRGB24
	// PixelFormatRGBA32 stores R, G, B, A (4 bytes per pixel).
	PixelFormatRGBA32
	// PixelFormatBGRA32 stores B, G, R, A (4 bytes per pixel).
	// Little-endian ARGB bitmaps have this byte order.
	PixelFormatBGRA32
)

// BytesPerPixel returns the pixel stride, or 0 for unknown formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGB24:
		return 3
	case PixelFormatRGBA32, PixelFormatBGRA32:
		return 4
	default:
		return 0
	}
}

// String returns the ffmpeg-style name of the format.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGB24:
		return "rgb24"
	case PixelFormatRGBA32:
		return "rgba"
	case PixelFormatBGRA32:
		return "bgra"
	default:
		return "unknown"
	}
}

// ParsePixelFormat parses a format name as produced by String.
func ParsePixelFormat(s string) PixelFormat {
	switch s {
	case "rgb24", "rgb":
		return PixelFormatRGB24
	case "rgba", "rgba32":
		return PixelFormatRGBA32
	case "bgra", "bgra32", "argb8888":
		return PixelFormatBGRA32
	default:
		return PixelFormatUnknown
	}
}

// RawFrame is one captured picture as delivered by a capture source.
//
// A frame is immutable once submitted. The pipeline owns it from Submit
// until it calls Release, which happens exactly once: after the colour
// converter has consumed the pixels, or when the frame is dropped.
type RawFrame struct {
	Width  int
	Height int
	Format PixelFormat
	Data   []byte

	// Seq is assigned by the pipeline at submission time.
	Seq int64

	// Release hands the backing memory back to the capture source. Optional.
	Release func()
}

// Validate checks that the buffer matches the declared geometry.
func (f RawFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 || f.Width%2 != 0 || f.Height%2 != 0 {
		return geometryError(f.Width, f.Height)
	}
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return formatError(f.Format)
	}
	if want := f.Width * f.Height * bpp; len(f.Data) < want {
		return bufferError(len(f.Data), want)
	}
	return nil
}

// Done releases the frame back to its source. Safe on frames without a
// release hook.
func (f RawFrame) Done() {
	if f.Release != nil {
		f.Release()
	}
}

// =============================================================================
// Planar Buffers
// =============================================================================

// ChromaLayout selects how the two 4:2:0 chroma planes are stored.
type ChromaLayout int

const (
	// LayoutI420 stores Y, then the full U plane, then the full V plane.
	LayoutI420 ChromaLayout = iota
	// LayoutNV12 stores Y, then U and V interleaved.
	LayoutNV12
)

// String returns the ffmpeg pixel format name for the layout.
func (l ChromaLayout) String() string {
	switch l {
	case LayoutNV12:
		return "nv12"
	default:
		return "yuv420p"
	}
}

// ParseChromaLayout parses "yuv420p"/"i420" or "nv12".
func ParseChromaLayout(s string) (ChromaLayout, bool) {
	switch s {
	case "", "yuv420p", "i420":
		return LayoutI420, true
	case "nv12":
		return LayoutNV12, true
	default:
		return LayoutI420, false
	}
}

// PlanarSize returns the byte size of a 4:2:0 buffer.
func PlanarSize(width, height int) int {
	return width * height * 3 / 2
}

// PlanarBuffer is a 4:2:0 luma/chroma picture derived from a RawFrame.
type PlanarBuffer struct {
	Width  int
	Height int
	Layout ChromaLayout
	Data   []byte
	Seq    int64
}

// Y returns the luma plane.
func (b PlanarBuffer) Y() []byte {
	return b.Data[:b.Width*b.Height]
}

// U returns the Cb plane of an I420 buffer, nil for NV12.
func (b PlanarBuffer) U() []byte {
	if b.Layout != LayoutI420 {
		return nil
	}
	ySize := b.Width * b.Height
	return b.Data[ySize : ySize+ySize/4]
}

// V returns the Cr plane of an I420 buffer, nil for NV12.
func (b PlanarBuffer) V() []byte {
	if b.Layout != LayoutI420 {
		return nil
	}
	ySize := b.Width * b.Height
	return b.Data[ySize+ySize/4 : ySize+ySize/2]
}

// UV returns the interleaved chroma plane of an NV12 buffer, nil for I420.
func (b PlanarBuffer) UV() []byte {
	if b.Layout != LayoutNV12 {
		return nil
	}
	ySize := b.Width * b.Height
	return b.Data[ySize : ySize+ySize/2]
}

// =============================================================================
// Timing
// =============================================================================

// FrameDuration returns the nominal duration of one frame in microseconds.
func FrameDuration(fps int) int64 {
	if fps <= 0 {
		return 0
	}
	return 1_000_000 / int64(fps)
}

// Timestamp returns the presentation timestamp of the frame at index, in
// microseconds. Timestamps derive from the index only, never from arrival
// time.
func Timestamp(index int64, fps int) int64 {
	return index * FrameDuration(fps)
}

// =============================================================================
// Compressed Output
// =============================================================================

// UnitFlags describes a compressed access unit.
type UnitFlags uint8

const (
	// FlagKeyFrame marks an IDR access unit.
	FlagKeyFrame UnitFlags = 1 << iota
	// FlagEndOfStream marks the last unit of a session.
	FlagEndOfStream
	// FlagConfig marks a unit that carries only parameter sets.
	FlagConfig
)

// Has reports whether all bits of f are set.
func (u UnitFlags) Has(f UnitFlags) bool {
	return u&f == f
}

// AccessUnit is one compressed picture in Annex B byte-stream form.
//
// Data is only valid until Release is called; callers that need the bytes
// longer must copy them out first.
type AccessUnit struct {
	Data  []byte
	PTS   int64
	Flags UnitFlags

	release *releaser
}

type releaser struct {
	once sync.Once
	fn   func()
}

// NewAccessUnit creates a unit whose Release calls fn once.
func NewAccessUnit(data []byte, pts int64, flags UnitFlags, fn func()) AccessUnit {
	au := AccessUnit{Data: data, PTS: pts, Flags: flags}
	if fn != nil {
		au.release = &releaser{fn: fn}
	}
	return au
}

// KeyFrame reports whether the unit is an IDR picture.
func (a AccessUnit) KeyFrame() bool {
	return a.Flags.Has(FlagKeyFrame)
}

// EndOfStream reports whether the unit ends the session.
func (a AccessUnit) EndOfStream() bool {
	return a.Flags.Has(FlagEndOfStream)
}

// Release returns the unit's buffer to its owner. Idempotent.
func (a AccessUnit) Release() {
	if a.release != nil {
		a.release.once.Do(a.release.fn)
	}
}

// OutputFormat is the metadata an encoder negotiates once it has seen its
// first input. A muxer needs it before it can describe the stream.
type OutputFormat struct {
	Codec       string // "h264"
	CodecString string // RFC 6381 string, e.g. "avc1.42c01f"
	Profile     int
	Level       int
	Width       int
	Height      int
	ColorFormat ChromaLayout
	SPS         []byte
	PPS         []byte
}
