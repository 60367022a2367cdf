package message

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryCarriesBinaryContent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	raw, err := NewEntry(7, ts, []byte{0, 1, 0xff, '\n'}).Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "\n")

	m, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeEntry, m.Type)
	assert.Equal(t, int64(7), m.ID)
	assert.True(t, ts.Equal(m.Timestamp))

	content, err := m.Content()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0xff, '\n'}, content)
}

func TestZeroFieldsOmitted(t *testing.T) {
	raw, err := (&Message{Type: TypePing}).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"PING"}`, string(raw))
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`{`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"id":1}`))
	assert.ErrorContains(t, err, "missing type")

	_, err = (&Message{Type: TypeCopy, Data: "!!"}).Content()
	assert.Error(t, err)
}

func TestErr(t *testing.T) {
	assert.NoError(t, (&Message{Type: TypeOK}).Err())
	err := NewError(errors.New("no clipboard")).Err()
	assert.ErrorContains(t, err, "no clipboard")
}
