// Package history persists clipboard entries and settings in a local SQLite
// database.
//
// Entries are append-only: they are inserted with a store-assigned id and
// capture timestamp, and later removed individually or all at once. Nothing
// is ever updated in place. Settings are a small name → value table seeded
// with defaults on first initialization.
package history

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Setting names known to the store.
const (
	SettingAlwaysOnTop = "ALWAYS_ON_TOP"
	SettingBufferSize  = "BUFFER_SIZE"
)

// DefaultSettings are seeded by Initialize when absent. Existing values are
// never overwritten.
var DefaultSettings = []Setting{
	{Name: SettingAlwaysOnTop, Value: "Y"},
	{Name: SettingBufferSize, Value: "200"},
}

// ErrNotFound is returned when an entry or setting does not exist.
var ErrNotFound = errors.New("history: not found")

// ErrInvalidSetting is returned by SetSetting for a malformed value of a
// known setting.
var ErrInvalidSetting = errors.New("history: invalid setting value")

// Entry is one recorded clipboard value.
type Entry struct {
	ID        int64
	Timestamp time.Time
	Content   []byte
}

// Setting is a named, persisted configuration value.
type Setting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// InitError reports a failure to open the database or create its schema.
// The store is unusable after an InitError.
type InitError struct {
	Op  string
	Err error
}

func (e *InitError) Error() string { return fmt.Sprintf("history: init %s: %v", e.Op, e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

// WriteError reports a failed commit. The attempted change is not persisted
// and the caller may retry it.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("history: %s: %v", e.Op, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Filter returns the entries whose content contains query, ignoring case.
// The match is a fixed string, not a pattern. An empty query matches all.
func Filter(entries []Entry, query string) []Entry {
	if query == "" {
		return entries
	}
	q := strings.ToLower(query)
	var out []Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(string(e.Content)), q) {
			out = append(out, e)
		}
	}
	return out
}

// Merge concatenates the contents of entries in the given order, each one
// followed by a newline.
func Merge(entries []Entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.Write(e.Content)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Reverse returns a copy of entries in the opposite order. Display layers use
// it to show the newest entry first.
func Reverse(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

func validateSetting(name, value string) error {
	switch name {
	case SettingAlwaysOnTop:
		if value != "Y" && value != "N" {
			return fmt.Errorf("%w: %s must be Y or N, got %q", ErrInvalidSetting, name, value)
		}
	case SettingBufferSize:
		if n, err := strconv.Atoi(value); err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidSetting, name, value)
		}
	case "":
		return fmt.Errorf("%w: empty name", ErrInvalidSetting)
	}
	return nil
}
