package clip

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWrite(t *testing.T) {
	m := NewMemory([]byte("a"))
	var b Backend = m

	got, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	require.NoError(t, b.Write([]byte("b")))
	got, err = b.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
	assert.Equal(t, 2, m.Reads())
}

func TestMemoryReadReturnsCopy(t *testing.T) {
	m := NewMemory([]byte("abc"))
	got, err := m.Read()
	require.NoError(t, err)
	got[0] = 'z'

	again, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryFailReads(t *testing.T) {
	boom := errors.New("boom")
	m := NewMemory([]byte("a"))
	m.FailReads(boom)

	_, err := m.Read()
	assert.ErrorIs(t, err, boom)

	m.FailReads(nil)
	got, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)
}

func TestHeadless(t *testing.T) {
	var b Backend = Headless{}
	_, err := b.Read()
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, b.Write([]byte("x")), ErrUnavailable)
}

func TestWaitLost(t *testing.T) {
	require.NoError(t, waitLost(context.Background(), nil), "nothing written")

	lost := make(chan struct{})
	close(lost)
	require.NoError(t, waitLost(context.Background(), lost))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, waitLost(ctx, make(chan struct{})), context.Canceled)
}

func TestOwnedBackendHoldBeforeWrite(t *testing.T) {
	var h Holder = &ownedBackend{}
	assert.NoError(t, h.Hold(context.Background()))
}
