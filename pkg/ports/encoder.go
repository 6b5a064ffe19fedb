package ports

import (
	"context"

	"github.com/user/framerec/pkg/pipeline"
)

// Engine abstracts the compression engine behind an encoder session.
//
// An engine accepts 4:2:0 pictures on Write and reports compressed output
// asynchronously on Events. Write may block while the engine's internal
// buffers are full; the session never calls it from the pipeline worker.
type Engine interface {
	// Open prepares the engine for the given parameters.
	Open(ctx context.Context, cfg EngineConfig) error

	// Write submits one planar picture with its presentation timestamp in
	// microseconds. The engine must not retain frame after returning.
	Write(frame []byte, pts int64) error

	// CloseInput signals that no more pictures will be written. The engine
	// flushes and then emits an event with EOS set.
	CloseInput() error

	// Events returns the output channel. It is closed when the engine exits.
	Events() <-chan EngineEvent

	// Close releases all engine resources. Safe to call more than once.
	Close() error
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Width   int
	Height  int
	FPS     int
	Bitrate int // bits per second
	Codec   string
	Layout  pipeline.ChromaLayout

	// KeyFrameInterval is the distance between IDR pictures in frames.
	KeyFrameInterval int
}

// EngineEvent is one notification from an Engine.
//
// Exactly one of Format, Data/EOS or Err is meaningful per event. Data is
// owned by the receiver.
type EngineEvent struct {
	Format   *pipeline.OutputFormat
	Data     []byte
	PTS      int64
	KeyFrame bool
	EOS      bool
	Err      error
}
