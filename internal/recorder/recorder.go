// Package recorder turns clipboard changes into history entries and
// announces each committed entry on the hub.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/multiclip/internal/history"
	"go.klb.dev/multiclip/internal/hub"
)

// MaxPending bounds how many failed values are kept for retry.
const MaxPending = 64

// Store is the part of history.Store the recorder writes to.
type Store interface {
	Insert(ctx context.Context, content []byte) (history.Entry, error)
}

// Publisher receives an event for every committed entry.
type Publisher interface {
	Publish(hub.Event)
}

// Recorder persists clipboard values in arrival order. Values whose insert
// fails are held in memory and retried ahead of newer values, so nothing the
// watcher reported is lost to a transient write failure.
type Recorder struct {
	store Store
	pub   Publisher

	mu      sync.Mutex
	pending [][]byte
}

// New returns a Recorder writing to store and publishing to pub.
func New(store Store, pub Publisher) *Recorder {
	return &Recorder{store: store, pub: pub}
}

// Record persists content. It has the watcher.ChangeFunc signature.
func (r *Recorder) Record(ctx context.Context, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flushLocked(ctx)
	if len(r.pending) > 0 {
		r.enqueueLocked(content)
		return
	}
	if err := r.insertLocked(ctx, content); err != nil {
		slog.Error("history write failed, keeping entry for retry", "err", err, "size_bytes", len(content))
		r.enqueueLocked(content)
	}
}

// Retry attempts to persist held values. It stops at the first failure and
// returns the number still pending.
func (r *Recorder) Retry(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked(ctx)
	return len(r.pending)
}

// Pending returns the number of values waiting to be retried.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// RetryLoop calls Retry every interval while values are pending, until ctx
// is cancelled.
func (r *Recorder) RetryLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if n := r.Pending(); n > 0 {
				slog.Warn("exiting with unsaved clipboard values", "pending", n)
			}
			return
		case <-t.C:
			if r.Pending() == 0 {
				continue
			}
			if n := r.Retry(ctx); n > 0 {
				slog.Warn("history still unwritable", "pending", n)
			}
		}
	}
}

func (r *Recorder) insertLocked(ctx context.Context, content []byte) error {
	e, err := r.store.Insert(ctx, content)
	if err != nil {
		return err
	}
	ev := hub.Event{ID: e.ID, Timestamp: e.Timestamp, Content: e.Content}
	hub.LogEvent("clipboard recorded", ev)
	r.pub.Publish(ev)
	return nil
}

func (r *Recorder) flushLocked(ctx context.Context) {
	for len(r.pending) > 0 {
		if err := r.insertLocked(ctx, r.pending[0]); err != nil {
			slog.Debug("retry of held entry failed", "err", err, "pending", len(r.pending))
			return
		}
		r.pending[0] = nil
		r.pending = r.pending[1:]
	}
	r.pending = nil
}

func (r *Recorder) enqueueLocked(content []byte) {
	if len(r.pending) == MaxPending {
		slog.Warn("pending queue full, dropping oldest held value", "size_bytes", len(r.pending[0]))
		r.pending = r.pending[1:]
	}
	r.pending = append(r.pending, append([]byte{}, content...))
}
