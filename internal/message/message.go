// Package message defines the multiclip IPC protocol.
//
// All messages are newline-delimited JSON. Clipboard payloads are
// base64-encoded so binary content is safe to embed in JSON strings.
// Each message is exactly one line: <json>\n
package message

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the kind of message.
//
// TAIL subscribes the connection to recorded entries; the daemon answers with
// one ENTRY per entry until the client hangs up. COPY asks the daemon to put
// Data on the system clipboard and is answered with OK or ERROR.
type Type string

const (
	TypeTail  Type = "TAIL"
	TypeEntry Type = "ENTRY"
	TypeCopy  Type = "COPY"
	TypeOK    Type = "OK"
	TypePing  Type = "PING"
	TypePong  Type = "PONG"
	TypeError Type = "ERROR"
)

// Message is the wire envelope.
type Message struct {
	Type Type `json:"type"`

	// ENTRY
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`

	// ENTRY, COPY: base64-encoded payload
	Data string `json:"data,omitempty"`

	// TAIL: also send the latest entry recorded before subscribing
	Replay bool `json:"replay,omitempty"`

	// PONG
	Version     string   `json:"version,omitempty"`
	Subscribers []string `json:"subscribers,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// NewEntry returns an ENTRY message.
func NewEntry(id int64, ts time.Time, content []byte) *Message {
	return &Message{
		Type:      TypeEntry,
		ID:        id,
		Timestamp: ts,
		Data:      base64.StdEncoding.EncodeToString(content),
	}
}

// NewCopy returns a COPY request for content.
func NewCopy(content []byte) *Message {
	return &Message{Type: TypeCopy, Data: base64.StdEncoding.EncodeToString(content)}
}

// NewError returns an ERROR message carrying err's text.
func NewError(err error) *Message {
	return &Message{Type: TypeError, Error: err.Error()}
}

// Content returns the decoded payload.
func (m *Message) Content() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return nil, fmt.Errorf("message payload: %w", err)
	}
	return b, nil
}

// Err returns the error carried by an ERROR message, or nil.
func (m *Message) Err() error {
	if m.Type != TypeError {
		return nil
	}
	return fmt.Errorf("daemon: %s", m.Error)
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("message decode: missing type")
	}
	return &m, nil
}
