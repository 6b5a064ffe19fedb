package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "a", "b", "config.yaml")

	if err := fs.WriteFile(path, []byte("fps: 30")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "fps: 30" {
		t.Errorf("expected %q, got %q", "fps: 30", data)
	}
}

func TestFileSystem_CreateStreamsWrites(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "out", ".video.mp4.partial")

	f, err := fs.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, chunk := range []string{"ftyp", "moov", "moof", "mdat"} {
		if _, err := f.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "ftypmoovmoofmdat" {
		t.Errorf("got %q", data)
	}
}

func TestFileSystem_CreateTruncates(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte("old contents"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := fs.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	f.Write([]byte("new"))
	f.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("got %q, want %q", data, "new")
	}
}

func TestFileSystem_Rename(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	src := filepath.Join(dir, ".video.mp4.partial")
	dst := filepath.Join(dir, "final", "video.mp4")
	if err := os.WriteFile(src, []byte("mp4"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := fs.Rename(src, dst); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if exists, _ := fs.Exists(src); exists {
		t.Error("source should be gone after Rename")
	}
	if exists, _ := fs.Exists(dst); !exists {
		t.Error("destination should exist after Rename")
	}
}

func TestFileSystem_Exists(t *testing.T) {
	fs := New()
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"directory", dir, true},
		{"missing file", filepath.Join(dir, "nonexistent.mp4"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.Exists(tt.path)
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFileSystem_MkdirAllAndRemove(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := fs.MkdirAll(path); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if exists, _ := fs.Exists(path); !exists {
		t.Fatal("expected directory to exist")
	}
	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if exists, _ := fs.Exists(path); exists {
		t.Error("expected directory to be removed")
	}
}
