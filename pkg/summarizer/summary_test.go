package summarizer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/user/framerec/pkg/mocks"
	"github.com/user/framerec/pkg/orchestrator"
	"github.com/user/framerec/pkg/pipeline"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_WithResult_Success(t *testing.T) {
	res := orchestrator.Result{
		Path:        "out/video_1.mp4",
		Frames:      90,
		Samples:     90,
		KeyFrames:   3,
		Dropped:     2,
		Rejected:    1,
		Width:       640,
		Height:      480,
		CodecString: "avc1.42c01e",
		Duration:    3 * time.Second,
		Size:        123456,
		Elapsed:     3500 * time.Millisecond,
	}

	summary := NewBuilder().
		WithSession("abc").
		WithResult(res).
		Build()

	if summary.SessionID != "abc" {
		t.Errorf("SessionID = %q", summary.SessionID)
	}
	if summary.Frames != (FrameInfo{Encoded: 90, Samples: 90, KeyFrames: 3, Dropped: 2, Rejected: 1}) {
		t.Errorf("Frames = %+v", summary.Frames)
	}
	if summary.Video.DurationMs != 3000 || summary.Video.FileSize != 123456 {
		t.Errorf("Video = %+v", summary.Video)
	}
	if !summary.Outcome.OK || summary.Outcome.Error != "" || summary.Outcome.ElapsedMs != 3500 {
		t.Errorf("Outcome = %+v", summary.Outcome)
	}
}

func TestBuilder_WithResult_Failure(t *testing.T) {
	err := fmt.Errorf("stop: %w", pipeline.ErrNoFramesRecorded)
	summary := NewBuilder().
		WithResult(orchestrator.Result{Path: "x.mp4", Err: err, Reason: pipeline.Reason(err)}).
		Build()

	if summary.Outcome.OK {
		t.Error("expected failed outcome")
	}
	if summary.Outcome.Error != err.Error() {
		t.Errorf("Error = %q", summary.Outcome.Error)
	}
	if summary.Outcome.Reason == "" {
		t.Error("expected a reason")
	}
}

func TestBuilder_WithSettings(t *testing.T) {
	settings := Settings{
		Source:     "synthetic",
		FPS:        30,
		Bitrate:    2_000_000,
		Codec:      "h264",
		DropPolicy: "backpressure",
	}
	summary := NewBuilder().WithSettings(settings).Build()
	if summary.Settings != settings {
		t.Errorf("Settings = %+v", summary.Settings)
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(s *Summary) string { return "report for " + s.SessionID }), fs)

	if err := w.Write("reports/summary.md", NewBuilder().WithSession("s1").Build()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, ok := fs.GetFile("reports/summary.md")
	if !ok {
		t.Fatal("summary not written")
	}
	if string(data) != "report for s1" {
		t.Errorf("content = %q", data)
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error { return errors.New("disk full") }

	w := NewWriter(NewMarkdownFormatter(), fs)
	if err := w.Write("summary.md", NewSummary()); err == nil {
		t.Error("expected error")
	}
}
