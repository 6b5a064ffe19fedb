package ports

import (
	"image"
)

// DebugSink abstracts debug output for a recording.
// It allows saving captured frames and the outcome for later inspection.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveRawFrame saves a captured frame as it was handed to the pipeline.
	SaveRawFrame(index int, img image.Image) error

	// SaveRecordingJSON saves the recording result as JSON.
	SaveRecordingJSON(data []byte) error
}
