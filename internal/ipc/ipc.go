// Package ipc is the local Unix-socket channel between a running
// "multiclip watch" daemon and the one-shot CLI commands.
//
// The daemon owns the system clipboard, so commands that place content on
// it (copy, merge) ask the daemon to do the write, and "multiclip tail"
// subscribes to entries as they are recorded. Messages use the
// newline-delimited JSON framing of package wire.
package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

const dialTimeout = 2 * time.Second

// ErrAlreadyRunning is returned by Listen when another daemon answers on
// the socket.
var ErrAlreadyRunning = errors.New("ipc: another multiclip daemon is listening")

// SocketPath returns the default socket path:
//
//   - $MULTICLIP_SOCKET if set
//   - $XDG_RUNTIME_DIR/multiclip.sock
//   - $TMPDIR/multiclip.sock
func SocketPath() string {
	if s := os.Getenv("MULTICLIP_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "multiclip.sock")
	}
	return filepath.Join(os.TempDir(), "multiclip.sock")
}

// IsRunning reports whether a daemon appears to be listening on path. It
// does a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on path, removing a stale socket file left by a
// crashed run. The socket file is removed when the listener is closed.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc listen %s: %w", path, err)
	}
	return ln, nil
}

// Dial connects to the daemon socket at path.
func Dial(path string) (net.Conn, error) {
	c, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("ipc dial %s: %w", path, err)
	}
	return c, nil
}
