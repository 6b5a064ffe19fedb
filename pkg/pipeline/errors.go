package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrameGeometry is returned for zero, negative or odd frame
	// dimensions, or for a buffer that does not match them.
	ErrInvalidFrameGeometry = errors.New("framerec: invalid frame geometry")

	// ErrUnsupportedPixelFormat is returned for pixel formats outside the
	// interleaved RGB family.
	ErrUnsupportedPixelFormat = errors.New("framerec: unsupported pixel format")

	// ErrUnsupportedConfiguration is returned when the encoder cannot be
	// created for the requested parameters.
	ErrUnsupportedConfiguration = errors.New("framerec: unsupported encoder configuration")

	// ErrFormatRenegotiation is returned when an encoder reports its output
	// format a second time.
	ErrFormatRenegotiation = errors.New("framerec: encoder output format changed twice")

	// ErrOutOfOrderSample is returned when a sample timestamp goes backwards.
	ErrOutOfOrderSample = errors.New("framerec: out of order sample")

	// ErrMuxerNotStarted is returned when writing or finalizing before Start.
	ErrMuxerNotStarted = errors.New("framerec: muxer not started")

	// ErrNoFramesRecorded is returned when a recording stops without frames.
	ErrNoFramesRecorded = errors.New("framerec: no frames recorded")

	// ErrEncoderFault wraps unexpected failures of the compression engine.
	ErrEncoderFault = errors.New("framerec: encoder fault")
)

var (
	// ErrTryAgain signals that no encoder input slot was free within the
	// bounded wait. The caller drains output and retries; it is not a failure.
	ErrTryAgain = errors.New("framerec: no input slot available, try again")

	// ErrInvalidState is returned when a session operation is called in the
	// wrong lifecycle state.
	ErrInvalidState = errors.New("framerec: invalid session state")

	// ErrMuxerStarted is returned when a stream is added after Start.
	ErrMuxerStarted = errors.New("framerec: muxer already started")

	// ErrStreamExists is returned when AddStream is called twice.
	ErrStreamExists = errors.New("framerec: stream already added")

	// ErrQueueFull is returned by Submit when the frame queue stays full for
	// the whole submit timeout.
	ErrQueueFull = errors.New("framerec: frame queue full")

	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("framerec: pipeline stopped")
)

func geometryError(width, height int) error {
	return fmt.Errorf("%w: %dx%d (dimensions must be positive and even)", ErrInvalidFrameGeometry, width, height)
}

func formatError(f PixelFormat) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedPixelFormat, f)
}

func bufferError(got, want int) error {
	return fmt.Errorf("%w: buffer has %d bytes, need %d", ErrInvalidFrameGeometry, got, want)
}

// Reason maps an error to a short human-readable sentence for end users.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoFramesRecorded):
		return "No frames recorded"
	case errors.Is(err, ErrInvalidFrameGeometry):
		return "Frame size is not supported (width and height must be even)"
	case errors.Is(err, ErrUnsupportedPixelFormat):
		return "Frame pixel format is not supported"
	case errors.Is(err, ErrUnsupportedConfiguration):
		return "Encoder could not be configured"
	case errors.Is(err, ErrFormatRenegotiation):
		return "Encoder changed its output format mid-recording"
	case errors.Is(err, ErrOutOfOrderSample):
		return "Encoder produced out-of-order samples"
	case errors.Is(err, ErrMuxerNotStarted):
		return "Video file was never started"
	case errors.Is(err, ErrEncoderFault):
		return "Encoder failed"
	default:
		return "Recording failed"
	}
}
