// Package mp4muxer writes one H.264 video track into a fragmented MP4 file.
//
// The file is written to a hidden temporary name next to the target and
// only renamed into place by Finalize, so an interrupted recording never
// leaves a truncated file under the final name.
package mp4muxer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framerec/pkg/adapters/h264encoder"
	"github.com/user/framerec/pkg/pipeline"
	"github.com/user/framerec/pkg/ports"
)

// Timescale is the track timescale. Microsecond timestamps map one to one.
const Timescale = 1_000_000

const (
	trackID                = 1
	defaultFragmentSamples = 60
	defaultFrameDurationUs = 33_333
	partialSuffix          = ".partial"
)

// StreamHandle identifies a track added with AddStream.
type StreamHandle int

// Stats describes what has been written so far.
type Stats struct {
	Samples   int
	Fragments int
	Bytes     int64
	Duration  int64 // microseconds
}

// Option configures a Muxer.
type Option func(*Muxer)

// WithFragmentSamples caps the number of samples per fragment. A new
// fragment also starts at every key frame.
func WithFragmentSamples(n int) Option {
	return func(m *Muxer) {
		if n > 0 {
			m.fragmentSamples = n
		}
	}
}

// WithFrameDuration sets the duration given to the final sample, in
// microseconds.
func WithFrameDuration(us int64) Option {
	return func(m *Muxer) {
		if us > 0 {
			m.frameDuration = us
		}
	}
}

type heldSample struct {
	data []byte
	pts  int64
	key  bool
}

// Muxer is a single-track fragmented MP4 writer.
type Muxer struct {
	path    string
	tmpPath string
	fs      ports.FileSystem
	log     ports.Logger

	fragmentSamples int
	frameDuration   int64

	mu        sync.Mutex
	format    *pipeline.OutputFormat
	init      *mp4.InitSegment
	file      ports.File
	started   bool
	finalized bool
	aborted   bool

	seq         uint32
	frag        *mp4.Fragment
	fragSamples int
	held        *heldSample
	basePTS     int64
	lastPTS     int64
	havePTS     bool
	stats       Stats
}

// New creates a muxer for path. Nothing touches the filesystem until
// AddStream.
func New(path string, fs ports.FileSystem, log ports.Logger, opts ...Option) *Muxer {
	dir, name := filepath.Split(path)
	m := &Muxer{
		path:            path,
		tmpPath:         filepath.Join(dir, "."+name+partialSuffix),
		fs:              fs,
		log:             log,
		fragmentSamples: defaultFragmentSamples,
		frameDuration:   defaultFrameDurationUs,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the final output path.
func (m *Muxer) Path() string {
	return m.path
}

// TempPath returns the path written to before Finalize.
func (m *Muxer) TempPath() string {
	return m.tmpPath
}

// AddStream registers the video track. It may be called once, before Start.
func (m *Muxer) AddStream(format *pipeline.OutputFormat) (StreamHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return 0, pipeline.ErrMuxerStarted
	}
	if m.format != nil {
		return 0, pipeline.ErrStreamExists
	}
	if format == nil {
		return 0, fmt.Errorf("add stream: nil format")
	}
	if format.Codec != "" && format.Codec != "h264" {
		return 0, fmt.Errorf("%w: codec %q", pipeline.ErrUnsupportedConfiguration, format.Codec)
	}

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(Timescale, "video", "und")
	trak := init.Moov.Trak

	avcC, err := mp4.CreateAvcC([][]byte{format.SPS}, [][]byte{format.PPS}, true)
	if err != nil {
		return 0, fmt.Errorf("create avcC: %w", err)
	}
	width, height := uint16(format.Width), uint16(format.Height)
	avc1 := mp4.CreateVisualSampleEntryBox("avc1", width, height, avcC)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(avc1)
	trak.Tkhd.Width = mp4.Fixed32(format.Width << 16)
	trak.Tkhd.Height = mp4.Fixed32(format.Height << 16)

	if dir := filepath.Dir(m.tmpPath); dir != "." {
		if err := m.fs.MkdirAll(dir); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}
	file, err := m.fs.Create(m.tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}

	m.format = format
	m.init = init
	m.file = file
	m.log.Debug("Added stream %s %dx%d", format.CodecString, format.Width, format.Height)
	return StreamHandle(trackID), nil
}

// Start writes the file header. Samples are accepted afterwards.
func (m *Muxer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return pipeline.ErrMuxerStarted
	}
	if m.format == nil {
		return fmt.Errorf("%w: no stream added", pipeline.ErrMuxerNotStarted)
	}
	if m.aborted {
		return fmt.Errorf("%w: muxer aborted", pipeline.ErrInvalidState)
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "iso6", "avc1", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return fmt.Errorf("encode ftyp: %w", err)
	}
	if err := m.init.Moov.Encode(&buf); err != nil {
		return fmt.Errorf("encode moov: %w", err)
	}
	if err := m.write(buf.Bytes()); err != nil {
		return err
	}

	m.started = true
	return nil
}

// WriteSample appends one access unit. Timestamps must strictly increase:
// an equal PTS would give the previous sample a zero duration in the trun,
// and the pipeline assigns one PTS per frame, so a repeat means a
// duplicated or reordered unit. Empty units are ignored. The unit's data is copied; the caller may
// release it as soon as WriteSample returns.
func (m *Muxer) WriteSample(handle StreamHandle, au pipeline.AccessUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return pipeline.ErrMuxerNotStarted
	}
	if m.finalized || m.aborted {
		return fmt.Errorf("%w: write after finalize", pipeline.ErrInvalidState)
	}
	if handle != StreamHandle(trackID) {
		return fmt.Errorf("unknown stream handle %d", handle)
	}
	if len(au.Data) == 0 {
		return nil
	}
	if m.havePTS && au.PTS <= m.lastPTS {
		return fmt.Errorf("%w: pts %d after %d", pipeline.ErrOutOfOrderSample, au.PTS, m.lastPTS)
	}
	if !m.havePTS {
		m.basePTS = au.PTS
		m.havePTS = true
	}

	sample := &heldSample{
		data: h264encoder.ToAVCC(au.Data),
		pts:  au.PTS,
		key:  au.KeyFrame(),
	}

	if m.held != nil {
		if err := m.appendSample(m.held, au.PTS-m.held.pts); err != nil {
			return err
		}
	}
	m.held = sample
	m.lastPTS = au.PTS
	return nil
}

// Finalize flushes the pending sample and fragment, closes the file and
// moves it to its final path. Calling it again is a no-op.
func (m *Muxer) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return nil
	}
	if !m.started {
		return pipeline.ErrMuxerNotStarted
	}
	if m.aborted {
		return fmt.Errorf("%w: muxer aborted", pipeline.ErrInvalidState)
	}

	if err := m.finalizeLocked(); err != nil {
		m.abortLocked()
		return err
	}
	m.finalized = true
	m.log.Debug("Finalized %s: %d samples in %d fragments", m.path, m.stats.Samples, m.stats.Fragments)
	return nil
}

func (m *Muxer) finalizeLocked() error {
	if m.held != nil {
		if err := m.appendSample(m.held, m.frameDuration); err != nil {
			return err
		}
		m.held = nil
	}
	if err := m.flushFragment(); err != nil {
		return err
	}
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	if err := m.file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	m.file = nil
	if err := m.fs.Rename(m.tmpPath, m.path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Abort discards the partial file. It is a no-op after Finalize and safe to
// call more than once.
func (m *Muxer) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.abortLocked()
}

func (m *Muxer) abortLocked() error {
	if m.finalized || m.aborted {
		return nil
	}
	m.aborted = true
	m.held = nil
	m.frag = nil

	if m.format == nil {
		return nil
	}
	if m.file != nil {
		m.file.Close()
		m.file = nil
	}
	if err := m.fs.Remove(m.tmpPath); err != nil {
		return fmt.Errorf("remove partial output: %w", err)
	}
	m.log.Debug("Removed partial output %s", m.tmpPath)
	return nil
}

// Stats returns what has been written to the file so far. The sample held
// back for duration computation is not counted until it is written.
func (m *Muxer) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// appendSample adds s to the open fragment, starting a new one at key frames
// or when the current one is full.
func (m *Muxer) appendSample(s *heldSample, dur int64) error {
	if m.frag != nil && (s.key || m.fragSamples >= m.fragmentSamples) {
		if err := m.flushFragment(); err != nil {
			return err
		}
	}
	if m.frag == nil {
		m.seq++
		frag, err := mp4.CreateFragment(m.seq, trackID)
		if err != nil {
			return fmt.Errorf("create fragment: %w", err)
		}
		m.frag = frag
		m.fragSamples = 0
	}

	flags := mp4.NonSyncSampleFlags
	if s.key {
		flags = mp4.SyncSampleFlags
	}
	m.frag.AddFullSample(mp4.FullSample{
		Sample: mp4.Sample{
			Flags: flags,
			Size:  uint32(len(s.data)),
			Dur:   uint32(dur),
		},
		DecodeTime: uint64(s.pts - m.basePTS),
		Data:       s.data,
	})
	m.fragSamples++
	m.stats.Samples++
	m.stats.Duration += dur
	return nil
}

func (m *Muxer) flushFragment() error {
	if m.frag == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := m.frag.Encode(&buf); err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	if err := m.write(buf.Bytes()); err != nil {
		return err
	}
	m.frag = nil
	m.fragSamples = 0
	m.stats.Fragments++
	return nil
}

func (m *Muxer) write(p []byte) error {
	n, err := m.file.Write(p)
	m.stats.Bytes += int64(n)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
