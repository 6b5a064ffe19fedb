// Package summarizer provides summary generation for recording results.
package summarizer

import (
	"time"

	"github.com/user/framerec/pkg/orchestrator"
)

// Summary contains all data collected during a recording session.
type Summary struct {
	// Metadata
	GeneratedAt time.Time
	SessionID   string

	// Recording settings
	Settings Settings

	// Frame accounting
	Frames FrameInfo

	// Video output details
	Video VideoInfo

	// Outcome
	Outcome Outcome
}

// Settings contains the recording configuration.
type Settings struct {
	Source           string
	FPS              int
	Bitrate          int
	Codec            string
	Layout           string
	KeyFrameInterval time.Duration
	QueueSize        int
	DropPolicy       string
}

// FrameInfo counts frames through the pipeline.
type FrameInfo struct {
	Encoded   int
	Samples   int
	KeyFrames int
	Dropped   int
	Rejected  int
}

// VideoInfo contains information about the output video.
type VideoInfo struct {
	Path        string
	CodecString string
	Width       int
	Height      int
	DurationMs  int
	FileSize    int64
}

// Outcome tells whether the file was written.
type Outcome struct {
	OK        bool
	Reason    string
	Error     string
	ElapsedMs int
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSession sets the session id used in the logs.
func (b *Builder) WithSession(id string) *Builder {
	b.summary.SessionID = id
	return b
}

// WithSettings sets recording settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithResult fills frames, video and outcome from a pipeline result.
func (b *Builder) WithResult(res orchestrator.Result) *Builder {
	b.summary.Frames = FrameInfo{
		Encoded:   res.Frames,
		Samples:   res.Samples,
		KeyFrames: res.KeyFrames,
		Dropped:   res.Dropped,
		Rejected:  res.Rejected,
	}
	b.summary.Video = VideoInfo{
		Path:        res.Path,
		CodecString: res.CodecString,
		Width:       res.Width,
		Height:      res.Height,
		DurationMs:  int(res.Duration.Milliseconds()),
		FileSize:    res.Size,
	}
	b.summary.Outcome = Outcome{
		OK:        res.OK(),
		Reason:    res.Reason,
		ElapsedMs: int(res.Elapsed.Milliseconds()),
	}
	if res.Err != nil {
		b.summary.Outcome.Error = res.Err.Error()
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
