package wire

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/multiclip/internal/message"
)

func pipe(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return New(a), New(b)
}

func TestWriteRead(t *testing.T) {
	client, server := pipe(t)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	go func() {
		_ = client.WriteMsg(&message.Message{Type: message.TypePing})
		_ = client.WriteMsg(message.NewEntry(3, ts, []byte("multi\nline")))
	}()

	m, err := server.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, message.TypePing, m.Type)

	m, err = server.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.ID)
	content, err := m.Content()
	require.NoError(t, err)
	assert.Equal(t, "multi\nline", string(content))
}

func TestLargeMessageSpansBuffer(t *testing.T) {
	client, server := pipe(t)
	big := bytes.Repeat([]byte("z"), 200*1024)

	go func() { _ = client.WriteMsg(message.NewCopy(big)) }()

	m, err := server.ReadMsg()
	require.NoError(t, err)
	content, err := m.Content()
	require.NoError(t, err)
	assert.Equal(t, big, content)
}

func TestReadEOF(t *testing.T) {
	client, server := pipe(t)
	require.NoError(t, client.Close())

	_, err := server.ReadMsg()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteTooLarge(t *testing.T) {
	client, _ := pipe(t)
	err := client.WriteMsg(message.NewCopy(make([]byte, MaxMessageSize)))
	assert.ErrorIs(t, err, ErrTooLarge)
}
