// Package mp4probe reads back MP4 files: track metadata, sample timing and
// optionally decoded luma for verification.
package mp4probe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// ErrNoVideoTrack is returned when a file has no video track.
var ErrNoVideoTrack = errors.New("mp4probe: no video track found")

// Codec represents a video codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecH265    Codec = "h265"
	CodecAV1     Codec = "av1"
	CodecUnknown Codec = "unknown"
)

// Sample is one video sample with timing in microseconds.
type Sample struct {
	PTS      int64
	Duration int64
	Size     int
	KeyFrame bool

	// Data is the sample payload in length-prefixed form.
	Data []byte
}

// Info describes the video track of a file.
type Info struct {
	Codec       Codec
	SampleEntry string
	Width       int
	Height      int
	Timescale   uint32
	Fragmented  bool
	Fragments   int
	SPS         [][]byte
	PPS         [][]byte
	Samples     []Sample
}

// Duration returns the summed sample durations in microseconds.
func (i Info) Duration() int64 {
	var d int64
	for _, s := range i.Samples {
		d += s.Duration
	}
	return d
}

// KeyFrames returns the number of sync samples.
func (i Info) KeyFrames() int {
	n := 0
	for _, s := range i.Samples {
		if s.KeyFrame {
			n++
		}
	}
	return n
}

// ProbeFile reads the video track of the MP4 file at path.
func ProbeFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return Probe(f)
}

// ProbeBytes reads the video track of in-memory MP4 data.
func ProbeBytes(data []byte) (Info, error) {
	return Probe(bytes.NewReader(data))
}

// Probe reads the video track from r.
func Probe(r io.ReadSeeker) (Info, error) {
	file, err := mp4.DecodeFile(r)
	if err != nil {
		return Info{}, fmt.Errorf("decode mp4: %w", err)
	}

	if file.IsFragmented() {
		return probeFragmented(file)
	}
	return probeProgressive(file, r)
}

func videoTrack(traks []*mp4.TrakBox) *mp4.TrakBox {
	for _, trak := range traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

// describe fills codec, size and parameter sets from the sample description.
func describe(trak *mp4.TrakBox, info *Info) {
	info.Codec = CodecUnknown
	if trak.Mdia.Mdhd != nil {
		info.Timescale = trak.Mdia.Mdhd.Timescale
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		info.SampleEntry = child.Type()
		switch child.Type() {
		case "avc1", "avc3":
			info.Codec = CodecH264
		case "hvc1", "hev1":
			info.Codec = CodecH265
		case "av01":
			info.Codec = CodecAV1
		}
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			info.Width = int(vse.Width)
			info.Height = int(vse.Height)
			if vse.AvcC != nil {
				info.SPS = vse.AvcC.SPSnalus
				info.PPS = vse.AvcC.PPSnalus
			}
		}
		return
	}
}

func toMicros(t uint64, timescale uint32) int64 {
	if timescale == 0 {
		return int64(t)
	}
	return int64(t * 1_000_000 / uint64(timescale))
}

func probeFragmented(file *mp4.File) (Info, error) {
	info := Info{Fragmented: true}
	if file.Init == nil || file.Init.Moov == nil {
		return info, ErrNoVideoTrack
	}

	trak := videoTrack(file.Init.Moov.Traks)
	if trak == nil {
		return info, ErrNoVideoTrack
	}
	describe(trak, &info)
	trackID := trak.Tkhd.TrackID

	var trex *mp4.TrexBox
	if file.Init.Moov.Mvex != nil {
		for _, t := range file.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}
				info.Fragments++

				var decodeTime uint64
				if traf.Tfdt != nil {
					decodeTime = traf.Tfdt.BaseMediaDecodeTime()
				}

				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return info, fmt.Errorf("get samples: %w", err)
				}
				for _, s := range samples {
					pts := int64(decodeTime) + int64(s.CompositionTimeOffset)
					info.Samples = append(info.Samples, Sample{
						PTS:      toMicros(uint64(pts), info.Timescale),
						Duration: toMicros(uint64(s.Dur), info.Timescale),
						Size:     int(s.Size),
						KeyFrame: !mp4.DecodeSampleFlags(s.Flags).SampleIsNonSync,
						Data:     s.Data,
					})
					decodeTime += uint64(s.Dur)
				}
			}
		}
	}

	return info, nil
}

func probeProgressive(file *mp4.File, r io.ReadSeeker) (Info, error) {
	var info Info
	if file.Moov == nil {
		return info, ErrNoVideoTrack
	}
	trak := videoTrack(file.Moov.Traks)
	if trak == nil {
		return info, ErrNoVideoTrack
	}
	describe(trak, &info)

	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsz == nil {
		return info, fmt.Errorf("no sample table found")
	}
	stbl := trak.Mdia.Minf.Stbl

	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
		data, err := sampleData(stbl, r, nr)
		if err != nil {
			return info, fmt.Errorf("sample %d: %w", nr, err)
		}

		var decodeTime uint64
		var dur uint32
		if stbl.Stts != nil {
			decodeTime, dur = stbl.Stts.GetDecodeTime(nr)
		}

		info.Samples = append(info.Samples, Sample{
			PTS:      toMicros(decodeTime, info.Timescale),
			Duration: toMicros(uint64(dur), info.Timescale),
			Size:     len(data),
			KeyFrame: stbl.Stss == nil || syncSamples[nr],
			Data:     data,
		})
	}

	return info, nil
}

// sampleData reads one sample of a progressive file via the chunk tables.
func sampleData(stbl *mp4.StblBox, r io.ReadSeeker, nr uint32) ([]byte, error) {
	if stbl.Stsc == nil {
		return nil, fmt.Errorf("missing stsc box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return nil, fmt.Errorf("get chunk nr: %w", err)
	}

	var offset uint64
	switch {
	case stbl.Stco != nil:
		offset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return nil, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return nil, fmt.Errorf("chunk nr out of range")
		}
		offset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return nil, fmt.Errorf("no stco or co64 box")
	}

	for s := uint32(firstSampleInChunk); s < nr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}

	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}
	data := make([]byte, stbl.Stsz.GetSampleSize(int(nr)))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return data, nil
}
