// Package watcher detects clipboard changes by polling.
//
// A Watcher owns the last clipboard value it observed. Each poll reads the
// clipboard and compares the bytes with that value; only a difference counts
// as a change, so an unchanged clipboard never produces an event no matter
// how often it is polled.
package watcher

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Reader reads the current clipboard content. clip.Backend satisfies it.
type Reader interface {
	Read() ([]byte, error)
}

// ChangeFunc receives each new clipboard value. It runs on the polling
// goroutine; the next poll waits for it to return.
type ChangeFunc func(ctx context.Context, content []byte)

// Stats are point-in-time counters.
type Stats struct {
	Polls      int64 `json:"polls"`
	Changes    int64 `json:"changes"`
	ReadErrors int64 `json:"read_errors"`
}

// Watcher polls a Reader and reports changed content.
type Watcher struct {
	r        Reader
	interval time.Duration

	mu   sync.Mutex
	last []byte

	polls      atomic.Int64
	changes    atomic.Int64
	readErrors atomic.Int64
}

// New returns a Watcher reading from r every interval. A non-positive
// interval means DefaultInterval.
func New(r Reader, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{r: r, interval: interval}
}

// Interval returns the polling period.
func (w *Watcher) Interval() time.Duration { return w.interval }

// Seed sets the last seen value without reporting a change.
func (w *Watcher) Seed(content []byte) {
	w.mu.Lock()
	w.last = bytes.Clone(content)
	w.mu.Unlock()
}

// Prime reads the clipboard once and seeds the last seen value with it, so
// whatever is on the clipboard at startup is not reported.
func (w *Watcher) Prime() error {
	content, err := w.r.Read()
	if err != nil {
		return err
	}
	w.Seed(content)
	return nil
}

// LastSeen returns a copy of the last observed value.
func (w *Watcher) LastSeen() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return bytes.Clone(w.last)
}

// Poll reads the clipboard once. It returns the content and true when it
// differs from the last seen value. A read error leaves the state unchanged.
//
// Empty content is the one exception to the byte comparison: it is never
// reported and does not replace the last seen value. The system backend
// reads a clipboard holding only non-text formats (an image, a file list) as
// empty, so copying A, then an image, then A again yields a single change
// for A rather than three.
func (w *Watcher) Poll() ([]byte, bool, error) {
	w.polls.Add(1)
	content, err := w.r.Read()
	if err != nil {
		w.readErrors.Add(1)
		return nil, false, err
	}
	if len(content) == 0 {
		return nil, false, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if bytes.Equal(content, w.last) {
		return nil, false, nil
	}
	w.last = bytes.Clone(content)
	w.changes.Add(1)
	return content, true, nil
}

// Run polls every interval until ctx is cancelled, calling fn once for each
// change. Read failures skip the cycle; the first of a streak is logged at
// WARN and the rest at DEBUG.
func (w *Watcher) Run(ctx context.Context, fn ChangeFunc) {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	slog.Info("clipboard watcher started", "interval", w.interval)
	failing := false
	for {
		select {
		case <-ctx.Done():
			slog.Info("clipboard watcher stopped", "polls", w.polls.Load(), "changes", w.changes.Load())
			return
		case <-t.C:
			content, changed, err := w.Poll()
			if err != nil {
				if !failing {
					slog.Warn("clipboard read failed, retrying", "err", err)
				} else {
					slog.Debug("clipboard read failed", "err", err)
				}
				failing = true
				continue
			}
			if failing {
				slog.Info("clipboard read recovered")
				failing = false
			}
			if changed {
				fn(ctx, content)
			}
		}
	}
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Polls:      w.polls.Load(),
		Changes:    w.changes.Load(),
		ReadErrors: w.readErrors.Load(),
	}
}
