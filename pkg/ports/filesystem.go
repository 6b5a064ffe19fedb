package ports

import "io"

// FileSystem is everything the recorder does to disk. The muxer streams
// into a temporary file from Create and publishes it with Rename; summaries
// and debug output go through WriteFile.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data in one go, creating parent directories.
	WriteFile(path string, data []byte) error

	// Create opens a new file for streaming writes, creating parent
	// directories and truncating any existing file.
	Create(path string) (File, error)

	// Rename atomically moves oldPath to newPath.
	Rename(oldPath, newPath string) error

	MkdirAll(path string) error
	Exists(path string) (bool, error)

	// Remove deletes a file. The muxer uses it to discard partial output.
	Remove(path string) error
}

// File is a writable file handle returned by FileSystem.Create.
type File interface {
	io.Writer

	// Sync flushes written data to stable storage.
	Sync() error

	// Close closes the file.
	Close() error
}
