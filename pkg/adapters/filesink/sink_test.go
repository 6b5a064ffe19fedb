package filesink

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"testing"

	"github.com/user/framerec/pkg/mocks"
)

// testBaseDir is a platform-independent base directory for tests
var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem(), &mocks.Renderer{}, 1)

	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveRecordingJSON(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{}, 1)

	data := []byte(`{"samples": 90}`)
	if err := sink.SaveRecordingJSON(data); err != nil {
		t.Fatalf("SaveRecordingJSON failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "recording.json")
	saved, ok := fs.GetFile(expectedPath)
	if !ok {
		t.Fatalf("expected file to be saved at %s", expectedPath)
	}
	if string(saved) != string(data) {
		t.Errorf("expected %q, got %q", data, saved)
	}
}

func TestSink_SaveRawFrame(t *testing.T) {
	tests := []struct {
		name  string
		every int
		saved []int
	}{
		{"all frames", 0, []int{0, 1, 2, 3, 4}},
		{"every second frame", 2, []int{0, 2, 4}},
		{"every tenth frame", 10, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := mocks.NewFileSystem()
			renderer := &mocks.Renderer{}
			sink := New(testBaseDir, fs, renderer, tt.every)

			img := image.NewRGBA(image.Rect(0, 0, 8, 8))
			for i := 0; i < 5; i++ {
				if err := sink.SaveRawFrame(i, img); err != nil {
					t.Fatalf("SaveRawFrame(%d) failed: %v", i, err)
				}
			}

			if len(fs.GetAllFiles()) != len(tt.saved) {
				t.Errorf("saved %d files, want %d", len(fs.GetAllFiles()), len(tt.saved))
			}
			for _, i := range tt.saved {
				path := filepath.Join(testBaseDir, "frames", fmt.Sprintf("frame-%04d.png", i))
				if _, ok := fs.GetFile(path); !ok {
					t.Errorf("expected %s", path)
				}
			}
			if len(renderer.Encoded) != len(tt.saved) {
				t.Errorf("encoded %d images, want %d", len(renderer.Encoded), len(tt.saved))
			}
		})
	}
}

func TestSink_SaveRawFrame_EncodeError(t *testing.T) {
	fs := mocks.NewFileSystem()
	renderer := &mocks.Renderer{
		EncodePNGFunc: func(img image.Image) ([]byte, error) { return nil, errors.New("boom") },
	}
	sink := New(testBaseDir, fs, renderer, 1)

	if err := sink.SaveRawFrame(0, image.NewRGBA(image.Rect(0, 0, 2, 2))); err == nil {
		t.Error("expected error")
	}
	if len(fs.GetAllFiles()) != 0 {
		t.Error("nothing should be written when encoding fails")
	}
}
