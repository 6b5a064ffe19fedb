package mocks

import (
	"context"
	"sync"

	"github.com/user/framerec/pkg/ports"
)

// Notifier is a mock implementation of ports.Notifier.
type Notifier struct {
	NotifySavedFunc func(ctx context.Context, path string) error

	mu    sync.Mutex
	paths []string
}

func (m *Notifier) NotifySaved(ctx context.Context, path string) error {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()
	if m.NotifySavedFunc != nil {
		return m.NotifySavedFunc(ctx, path)
	}
	return nil
}

// Paths returns the paths passed to NotifySaved.
func (m *Notifier) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

var _ ports.Notifier = (*Notifier)(nil)
