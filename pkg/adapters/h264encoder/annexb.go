package h264encoder

import (
	"encoding/binary"
	"fmt"

	"github.com/Eyevinn/mp4ff/avc"

	"github.com/user/framerec/pkg/pipeline"
)

// SplitNALUs parses an Annex B byte stream into NAL units without start codes.
func SplitNALUs(data []byte) [][]byte {
	return avc.ExtractNalusFromByteStream(data)
}

// IsKeyFrame reports whether an Annex B access unit contains an IDR slice.
func IsKeyFrame(au []byte) bool {
	for _, nalu := range SplitNALUs(au) {
		if len(nalu) > 0 && avc.GetNaluType(nalu[0]) == avc.NALU_IDR {
			return true
		}
	}
	return false
}

// ParameterSets returns the first SPS and PPS found in an Annex B access unit.
func ParameterSets(au []byte) (sps, pps []byte) {
	for _, nalu := range SplitNALUs(au) {
		if len(nalu) == 0 {
			continue
		}
		switch avc.GetNaluType(nalu[0]) {
		case avc.NALU_SPS:
			if sps == nil {
				sps = append([]byte(nil), nalu...)
			}
		case avc.NALU_PPS:
			if pps == nil {
				pps = append([]byte(nil), nalu...)
			}
		}
	}
	return sps, pps
}

// ToAVCC converts an Annex B access unit to 4-byte length-prefixed form.
// Parameter sets and access unit delimiters are dropped; they live in the
// sample entry.
func ToAVCC(au []byte) []byte {
	nalus := SplitNALUs(au)

	size := 0
	for _, nalu := range nalus {
		size += 4 + len(nalu)
	}

	out := make([]byte, 0, size)
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch avc.GetNaluType(nalu[0]) {
		case avc.NALU_SPS, avc.NALU_PPS, avc.NALU_AUD:
			continue
		}
		out = binary.BigEndian.AppendUint32(out, uint32(len(nalu)))
		out = append(out, nalu...)
	}
	return out
}

// FormatFromParameterSets builds the negotiated output format from an SPS
// and PPS pair.
func FormatFromParameterSets(sps, pps []byte, layout pipeline.ChromaLayout) (*pipeline.OutputFormat, error) {
	if len(sps) == 0 || len(pps) == 0 {
		return nil, ErrMissingParameterSets
	}
	parsed, err := avc.ParseSPSNALUnit(sps, false)
	if err != nil {
		return nil, fmt.Errorf("parse SPS: %w", err)
	}
	return &pipeline.OutputFormat{
		Codec:       "h264",
		CodecString: avc.CodecString("avc1", parsed),
		Profile:     int(parsed.Profile),
		Level:       int(parsed.Level),
		Width:       int(parsed.Width),
		Height:      int(parsed.Height),
		ColorFormat: layout,
		SPS:         sps,
		PPS:         pps,
	}, nil
}

// splitAccessUnits is a bufio.SplitFunc that cuts an Annex B stream in front
// of every access unit delimiter. Each token is one complete access unit.
func splitAccessUnits(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	// The stream starts with a delimiter; look for the next one.
	if i := nextDelimiter(data, 1); i > 0 {
		return i, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// nextDelimiter returns the offset of the first AUD start code at or after
// from, including a leading zero of a 4-byte start code, or -1.
func nextDelimiter(data []byte, from int) int {
	for i := from; i+3 < len(data); i++ {
		if data[i] != 0 || data[i+1] != 0 || data[i+2] != 1 {
			continue
		}
		if avc.GetNaluType(data[i+3]) != avc.NALU_AUD {
			continue
		}
		start := i
		if start > 0 && data[start-1] == 0 {
			start--
		}
		if start > 0 {
			return start
		}
	}
	return -1
}
