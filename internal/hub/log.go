package hub

import (
	"context"
	"log/slog"
	"unicode/utf8"
)

const previewRunes = 120

// LogEvent logs a recorded entry at INFO (id, size) and, when enabled, at
// DEBUG with a text preview of up to 120 runes.
func LogEvent(msg string, ev Event) {
	slog.Info(msg, "id", ev.ID, "size_bytes", len(ev.Content))

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("clipboard entry", "id", ev.ID, "preview", Preview(ev.Content, previewRunes))
}

// Preview returns content as a single-line string truncated to n runes.
// Invalid UTF-8 is reported by size instead.
func Preview(content []byte, n int) string {
	if !utf8.Valid(content) {
		return "<binary>"
	}
	out := make([]rune, 0, n)
	for _, r := range string(content) {
		if len(out) == n {
			return string(out) + "…"
		}
		switch r {
		case '\n', '\r', '\t':
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}
