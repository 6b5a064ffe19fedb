package h264encoder

import "errors"

var (
	// ErrFFmpegNotFound is returned when ffmpeg is not found in PATH.
	ErrFFmpegNotFound = errors.New("h264encoder: ffmpeg not found in PATH")

	// ErrEngineClosed is returned when writing to an engine after Close.
	ErrEngineClosed = errors.New("h264encoder: engine closed")

	// ErrMissingParameterSets is returned when the first access unit carries
	// no SPS or PPS.
	ErrMissingParameterSets = errors.New("h264encoder: missing SPS/PPS")
)
