package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/multiclip/internal/clip"
	"go.klb.dev/multiclip/internal/hub"
	"go.klb.dev/multiclip/internal/message"
	"go.klb.dev/multiclip/internal/wire"
)

type daemon struct {
	path string
	h    *hub.Hub
	mem  *clip.Memory
}

func startDaemon(t *testing.T) *daemon {
	t.Helper()
	d := &daemon{
		path: filepath.Join(t.TempDir(), "mc.sock"),
		h:    hub.New(),
		mem:  clip.NewMemory(nil),
	}
	ln, err := Listen(d.path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(d.h, d.mem, "test").Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Serve did not return")
		}
	})
	return d
}

func TestSocketPathEnvOverride(t *testing.T) {
	t.Setenv("MULTICLIP_SOCKET", "/tmp/custom.sock")
	assert.Equal(t, "/tmp/custom.sock", SocketPath())

	t.Setenv("MULTICLIP_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/multiclip.sock", SocketPath())
}

func TestListenRefusesSecondDaemon(t *testing.T) {
	d := startDaemon(t)
	assert.True(t, IsRunning(d.path))

	_, err := Listen(d.path)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestIsRunningNoDaemon(t *testing.T) {
	assert.False(t, IsRunning(filepath.Join(t.TempDir(), "none.sock")))
}

func TestPing(t *testing.T) {
	d := startDaemon(t)
	st, err := Ping(d.path)
	require.NoError(t, err)
	assert.Equal(t, "test", st.Version)
	assert.Empty(t, st.Subscribers)
}

func TestCopyWritesClipboard(t *testing.T) {
	d := startDaemon(t)
	require.NoError(t, Copy(d.path, []byte("from cli")))

	got, err := d.mem.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("from cli"), got)
}

func TestCopyHeadlessFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mc.sock")
	ln, err := Listen(path)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewServer(hub.New(), clip.Headless{}, "test").Serve(ctx, ln) }()

	err = Copy(path, []byte("x"))
	assert.ErrorContains(t, err, "clipboard unavailable")
}

func TestUnsupportedRequest(t *testing.T) {
	d := startDaemon(t)
	conn, err := Dial(d.path)
	require.NoError(t, err)
	wc := wire.New(conn)
	defer wc.Close()

	require.NoError(t, wc.WriteMsg(&message.Message{Type: message.TypeEntry}))
	resp, err := wc.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, message.TypeError, resp.Type)
}

func TestTail(t *testing.T) {
	d := startDaemon(t)
	d.h.Publish(hub.Event{ID: 1, Timestamp: time.Now(), Content: []byte("before")})

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *message.Message, 8)
	done := make(chan error, 1)
	go func() {
		done <- Tail(ctx, d.path, true, func(m *message.Message) error {
			got <- m
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(d.h.Subscribers()) == 1 }, 2*time.Second, 10*time.Millisecond)
	st, err := Ping(d.path)
	require.NoError(t, err)
	assert.Equal(t, d.h.Subscribers(), st.Subscribers)

	d.h.Publish(hub.Event{ID: 2, Timestamp: time.Now(), Content: []byte("after")})

	for _, want := range []struct {
		id      int64
		content string
	}{{1, "before"}, {2, "after"}} {
		select {
		case m := <-got:
			assert.Equal(t, message.TypeEntry, m.Type)
			assert.Equal(t, want.id, m.ID)
			content, err := m.Content()
			require.NoError(t, err)
			assert.Equal(t, want.content, string(content))
		case <-time.After(2 * time.Second):
			t.Fatalf("entry %d not received", want.id)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Tail did not return after cancel")
	}
	require.Eventually(t, func() bool { return len(d.h.Subscribers()) == 0 }, 2*time.Second, 10*time.Millisecond)
}
