package ports

import (
	"context"

	"github.com/user/framerec/pkg/pipeline"
)

// FrameSource abstracts a capture source that produces raw frames at its
// own cadence.
type FrameSource interface {
	// Next blocks until the next frame is captured. It returns io.EOF when
	// the source is exhausted.
	Next(ctx context.Context) (pipeline.RawFrame, error)

	// Close releases the source.
	Close() error
}
