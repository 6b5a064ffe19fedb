package ports

import "context"

// Notifier is told about a finished recording after the file is complete.
type Notifier interface {
	// NotifySaved announces that path holds a complete video.
	NotifySaved(ctx context.Context, path string) error
}
