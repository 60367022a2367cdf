package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/multiclip/internal/clip"
	"go.klb.dev/multiclip/internal/dbwatch"
	"go.klb.dev/multiclip/internal/history"
	"go.klb.dev/multiclip/internal/hub"
	"go.klb.dev/multiclip/internal/ipc"
	"go.klb.dev/multiclip/internal/recorder"
	"go.klb.dev/multiclip/internal/watcher"
)

const retryInterval = 5 * time.Second

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Record clipboard changes until interrupted",
		Long: `Polls the system clipboard and appends every new distinct value to the
history database. Only changes are recorded: copying the same text twice in a
row produces one entry.

The daemon also listens on a local Unix socket so that "multiclip copy",
"multiclip merge" and "multiclip tail" can reach it.

Precedence (lowest → highest): defaults → config file → MULTICLIP_* env vars → flags`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			setupLogging(v, false)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return runWatch(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Duration("interval", watcher.DefaultInterval, "clipboard polling interval")
	f.Bool("record-initial", false, "record the value already on the clipboard at startup")
	f.String("clipboard", "system", "clipboard backend: system|memory (memory is fed only by copy requests)")
	addDBFlag(cmd)
	addSocketFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runWatch(ctx context.Context, v *viper.Viper) error {
	socket := v.GetString("socket")
	ln, err := ipc.Listen(socket)
	switch {
	case errors.Is(err, ipc.ErrAlreadyRunning):
		return err
	case err != nil:
		slog.Warn("IPC socket unavailable, copy and tail will not reach this daemon", "err", err)
	default:
		slog.Info("IPC socket listening", "path", socket)
		defer ln.Close()
	}

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer st.Close()

	logStoreReady(ctx, st)

	backend, err := openBackend(v.GetString("clipboard"))
	if err != nil {
		return err
	}
	defer backend.Close()

	h := hub.New()
	rec := recorder.New(st, h)
	w := watcher.New(backend, v.GetDuration("interval"))
	if !v.GetBool("record-initial") {
		if err := w.Prime(); err != nil {
			slog.Debug("could not read initial clipboard", "err", err)
		}
	}

	slog.Info("multiclip watch starting",
		"version", Version,
		"db", st.Path(),
		"backend", backend.Name(),
		"interval", w.Interval(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.Run(gctx, rec.Record)
		return nil
	})
	g.Go(func() error {
		rec.RetryLoop(gctx, retryInterval)
		return nil
	})

	if ln != nil {
		srv := ipc.NewServer(h, backend, Version)
		g.Go(func() error { return srv.Serve(gctx, ln) })
	}

	g.Go(func() error {
		if err := dbwatch.New(st.Path(), st.Reopen).Run(gctx); err != nil {
			slog.Warn("database file watch disabled", "err", err)
		}
		return nil
	})

	err = g.Wait()
	stats := w.Stats()
	slog.Info("multiclip watch stopped", "polls", stats.Polls, "changes", stats.Changes, "read_errors", stats.ReadErrors)
	return err
}

// openBackend resolves the --clipboard flag.
var openBackend = newBackend

func newBackend(name string) (clip.Backend, error) {
	switch name {
	case "", "system":
		return clip.New(), nil
	case "memory":
		return clip.NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("unknown clipboard backend %q", name)
	}
}

// logStoreReady reports the store size and settings. BUFFER_SIZE is shown
// but history is not trimmed to it.
func logStoreReady(ctx context.Context, st *history.Store) {
	n, err := st.Count(ctx)
	if err != nil {
		slog.Warn("could not count history", "err", err)
	}
	attrs := []any{"path", st.Path(), "entries", n}
	settings, err := st.Settings(ctx)
	if err != nil {
		slog.Warn("could not read settings", "err", err)
	}
	for _, s := range settings {
		attrs = append(attrs, s.Name, s.Value)
	}
	slog.Info("history ready", attrs...)
}
