package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/multiclip/internal/clip"
	"go.klb.dev/multiclip/internal/history"
	"go.klb.dev/multiclip/internal/ipc"
)

const (
	waitFor = 5 * time.Second
	tick    = 20 * time.Millisecond
)

// syncBuffer lets a background command write while the test reads.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func (s *syncBuffer) lines() []string {
	return strings.FieldsFunc(s.String(), func(r rune) bool { return r == '\n' })
}

// start runs the CLI in the background. The returned func cancels it and
// returns its error; it also runs at cleanup.
func start(t *testing.T, out io.Writer, args ...string) func() error {
	t.Helper()
	root := newRootCmd()
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	var (
		once sync.Once
		err  error
	)
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case err = <-done:
			case <-time.After(waitFor):
				err = errors.New("command did not stop")
			}
		})
		return err
	}
	t.Cleanup(func() { assert.NoError(t, stop()) })
	return stop
}

// startDaemon runs "watch" on a memory clipboard and waits until it answers.
func startDaemon(t *testing.T, db string, extra ...string) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "mc.sock")
	args := append([]string{
		"watch",
		"--clipboard", "memory",
		"--db", db,
		"--socket", socket,
		"--interval", "10ms",
		"--log-level", "error",
	}, extra...)
	start(t, io.Discard, args...)

	require.Eventually(t, func() bool {
		_, err := ipc.Ping(socket)
		return err == nil
	}, waitFor, tick, "daemon did not come up")
	return socket
}

// contents reads the history straight from the database.
func contents(db string) []string {
	st, err := history.Open(db)
	if err != nil {
		return nil
	}
	defer st.Close()
	entries, err := st.List(context.Background())
	if err != nil {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = string(e.Content)
	}
	return out
}

func eventuallyContents(t *testing.T, db string, want ...string) {
	t.Helper()
	require.Eventually(t, func() bool { return slices.Equal(contents(db), want) },
		waitFor, tick, "history never became %q", want)
}

// useClipboard makes "watch" use b regardless of --clipboard.
func useClipboard(t *testing.T, b clip.Backend) {
	t.Helper()
	prev := openBackend
	openBackend = func(string) (clip.Backend, error) { return b, nil }
	t.Cleanup(func() { openBackend = prev })
}

func TestWatchRecordsCopyMergeAndTails(t *testing.T) {
	db := seed(t, "one", "two")
	socket := startDaemon(t, db)

	_, err := run(t, "copy", "1", "--db", db, "--socket", socket)
	require.NoError(t, err)
	eventuallyContents(t, db, "one", "two", "one")

	_, err = run(t, "merge", "2", "1", "--db", db, "--socket", socket)
	require.NoError(t, err)
	eventuallyContents(t, db, "one", "two", "one", "two\none\n")

	out, err := run(t, "show", "4", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "two\none\n", out, "merge keeps argument order and ends every entry with a newline")

	tailed := &syncBuffer{}
	stopTail := start(t, tailed, "tail", "--replay", "--json", "--socket", socket, "--log-level", "error")
	require.Eventually(t, func() bool { return len(tailed.lines()) == 1 }, waitFor, tick, "no replayed entry")

	out, err = run(t, "status", "--json", "--db", db, "--socket", socket)
	require.NoError(t, err)
	var status statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Running)
	require.NotNil(t, status.Daemon)
	assert.Equal(t, Version, status.Daemon.Version)
	assert.Len(t, status.Daemon.Subscribers, 1)
	assert.Equal(t, 4, status.Entries)

	_, err = run(t, "copy", "2", "--db", db, "--socket", socket)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(tailed.lines()) == 2 }, waitFor, tick, "live entry not tailed")
	require.NoError(t, stopTail())

	var got []entryJSON
	for _, line := range tailed.lines() {
		var e entryJSON
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].ID)
	require.NotNil(t, got[0].Content)
	assert.Equal(t, "two\none\n", *got[0].Content)
	assert.Equal(t, int64(5), got[1].ID)
	require.NotNil(t, got[1].Content)
	assert.Equal(t, "two", *got[1].Content)
}

func TestWatchPrimesInitialClipboard(t *testing.T) {
	mem := clip.NewMemory([]byte("startup"))
	useClipboard(t, mem)
	db := seed(t)
	startDaemon(t, db)

	mem.Set([]byte("next"))
	eventuallyContents(t, db, "next")
}

func TestWatchRecordInitial(t *testing.T) {
	mem := clip.NewMemory([]byte("startup"))
	useClipboard(t, mem)
	db := seed(t)
	startDaemon(t, db, "--record-initial")

	eventuallyContents(t, db, "startup")
}

func TestWatchRefusesSecondDaemon(t *testing.T) {
	db := seed(t)
	socket := startDaemon(t, db)

	_, err := run(t, "watch", "--clipboard", "memory", "--db", db, "--socket", socket, "--log-level", "error")
	assert.ErrorIs(t, err, ipc.ErrAlreadyRunning)
}

func TestWatchUnknownBackend(t *testing.T) {
	db := seed(t)
	socket := filepath.Join(t.TempDir(), "mc.sock")
	_, err := run(t, "watch", "--clipboard", "carrier-pigeon", "--db", db, "--socket", socket, "--log-level", "error")
	assert.ErrorContains(t, err, "unknown clipboard backend")
}

func TestTailWithoutDaemon(t *testing.T) {
	_, err := run(t, "tail", "--socket", filepath.Join(t.TempDir(), "none.sock"))
	assert.ErrorContains(t, err, "no daemon listening")
}

// holdingClipboard records whether the command stayed to serve its write.
type holdingClipboard struct {
	*clip.Memory
	held atomic.Bool
}

func (h *holdingClipboard) Hold(context.Context) error {
	h.held.Store(true)
	return nil
}

func useLocalClipboard(t *testing.T, b clip.Backend) {
	t.Helper()
	prev := localClipboard
	localClipboard = func() clip.Backend { return b }
	t.Cleanup(func() { localClipboard = prev })
}

func TestCopyWithoutDaemonHoldsClipboard(t *testing.T) {
	cb := &holdingClipboard{Memory: clip.NewMemory(nil)}
	useLocalClipboard(t, cb)
	db := seed(t, "a", "b")
	noDaemon := filepath.Join(t.TempDir(), "none.sock")

	_, err := run(t, "merge", "2", "1", "--db", db, "--socket", noDaemon)
	require.NoError(t, err)

	got, err := cb.Read()
	require.NoError(t, err)
	assert.Equal(t, "b\na\n", string(got))
	assert.True(t, cb.held.Load(), "a process-owned clipboard must be served until taken")
}

func TestCopyWithoutDaemonNoHold(t *testing.T) {
	mem := clip.NewMemory(nil)
	useLocalClipboard(t, mem)
	db := seed(t, "a")

	_, err := run(t, "copy", "1", "--db", db, "--socket", filepath.Join(t.TempDir(), "none.sock"))
	require.NoError(t, err)

	got, err := mem.Read()
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
}

func TestCopyMissingEntry(t *testing.T) {
	mem := clip.NewMemory([]byte("untouched"))
	useLocalClipboard(t, mem)
	db := seed(t, "a")

	_, err := run(t, "merge", "1", "9", "--db", db, "--socket", filepath.Join(t.TempDir(), "none.sock"))
	assert.ErrorIs(t, err, history.ErrNotFound)

	got, err := mem.Read()
	require.NoError(t, err)
	assert.Equal(t, "untouched", string(got))
}
