// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/framerec/pkg/ports"
)

// Sink saves debug output to files.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
	every    int
}

// New creates a new FileSink that keeps every n-th frame. n below 1 keeps
// all frames.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer, every int) *Sink {
	if every < 1 {
		every = 1
	}
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
		every:    every,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveRawFrame saves a captured frame as PNG.
func (s *Sink) SaveRawFrame(index int, img image.Image) error {
	if index%s.every != 0 {
		return nil
	}
	data, err := s.renderer.EncodePNG(img)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", index, err)
	}
	path := filepath.Join(s.baseDir, "frames", fmt.Sprintf("frame-%04d.png", index))
	return s.fs.WriteFile(path, data)
}

// SaveRecordingJSON saves the recording result as JSON.
func (s *Sink) SaveRecordingJSON(data []byte) error {
	path := filepath.Join(s.baseDir, "recording.json")
	return s.fs.WriteFile(path, data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
