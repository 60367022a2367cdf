// Package clip provides access to the system clipboard for multiclip.
//
// Only the text format is handled. New returns the system backend backed by
// golang.design/x/clipboard, or a headless backend when no display is
// available (containers, CI, SSH sessions without forwarding).
package clip

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"golang.design/x/clipboard"
)

// ErrUnavailable is returned by the headless backend.
var ErrUnavailable = errors.New("clip: clipboard unavailable")

// Backend is the interface every clipboard implementation satisfies.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current text content of the clipboard. An empty
	// clipboard, or one holding only non-text formats, yields nil, nil.
	Read() ([]byte, error)

	// Write replaces the clipboard content with data as text.
	Write(data []byte) error

	// Close releases any resources held by the backend.
	Close()
}

// Holder is implemented by backends whose written content is served by the
// writing process, as on X11 and Wayland. Content written by a process that
// exits is lost, so a short-lived writer must Hold.
type Holder interface {
	// Hold blocks until another program takes the clipboard or ctx is done.
	Hold(ctx context.Context) error
}

var (
	initOnce sync.Once
	initErr  error
)

// New returns the system clipboard backend, or a headless backend if the
// clipboard cannot be initialised. clipboard.Init is called here rather than
// in init() so sub-commands that never touch the clipboard don't warn on
// headless systems.
func New() Backend {
	initOnce.Do(func() { initErr = clipboard.Init() })
	if initErr != nil {
		slog.Warn("clipboard unavailable, running headless", "err", initErr)
		return Headless{}
	}
	switch runtime.GOOS {
	case "darwin", "windows":
		return systemBackend{}
	}
	return &ownedBackend{}
}

type systemBackend struct{}

func (systemBackend) Name() string { return "system clipboard" }

func (systemBackend) Read() ([]byte, error) {
	return clipboard.Read(clipboard.FmtText), nil
}

func (systemBackend) Write(data []byte) error {
	clipboard.Write(clipboard.FmtText, data)
	return nil
}

func (systemBackend) Close() {}

// ownedBackend is the system backend on platforms where the clipboard owner
// serves its content until another program takes over.
type ownedBackend struct {
	systemBackend

	mu   sync.Mutex
	lost <-chan struct{}
}

func (b *ownedBackend) Write(data []byte) error {
	lost := clipboard.Write(clipboard.FmtText, data)
	b.mu.Lock()
	b.lost = lost
	b.mu.Unlock()
	return nil
}

func (b *ownedBackend) Hold(ctx context.Context) error {
	b.mu.Lock()
	lost := b.lost
	b.mu.Unlock()
	return waitLost(ctx, lost)
}

// waitLost waits for lost to close. A nil channel means nothing was written.
func waitLost(ctx context.Context, lost <-chan struct{}) error {
	if lost == nil {
		return nil
	}
	select {
	case <-lost:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Headless is a backend for environments without a clipboard. Reads and
// writes fail with ErrUnavailable.
type Headless struct{}

func (Headless) Name() string          { return "headless (no-op)" }
func (Headless) Read() ([]byte, error) { return nil, ErrUnavailable }
func (Headless) Write(_ []byte) error  { return ErrUnavailable }
func (Headless) Close()                {}
