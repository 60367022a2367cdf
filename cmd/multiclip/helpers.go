package main

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"go.klb.dev/multiclip/internal/history"
)

// parseIDs converts positional arguments into entry ids, keeping order.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid entry id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(age.Hours()/24))
}

// entryJSON is the --json shape of an entry. Text content goes in "content";
// anything that is not valid UTF-8 goes base64-encoded in "data".
type entryJSON struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Size      int       `json:"size"`
	Content   *string   `json:"content,omitempty"`
	Data      []byte    `json:"data,omitempty"`
}

func toEntryJSON(e history.Entry) entryJSON {
	j := entryJSON{ID: e.ID, Timestamp: e.Timestamp, Size: len(e.Content)}
	if utf8.Valid(e.Content) {
		s := string(e.Content)
		j.Content = &s
	} else {
		j.Data = e.Content
	}
	return j
}
