// Package pipeline holds the frame, buffer and access-unit types shared by
// every stage of the recorder, plus the error taxonomy.
package pipeline

import (
	"context"
)

// Stage transforms one value into another. The colour converter is a
// Stage from RawFrame to PlanarBuffer; it may be run standalone or from the
// encoding worker.
type Stage[In, Out any] interface {
	Execute(ctx context.Context, input In) (Out, error)
}
