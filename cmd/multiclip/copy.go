package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/multiclip/internal/clip"
	"go.klb.dev/multiclip/internal/history"
	"go.klb.dev/multiclip/internal/ipc"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:   "copy <id>",
		Short: "Put a past entry back on the clipboard",
		Long: `Places the content of entry <id> on the system clipboard. The running
daemon records it again as a new entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { return runCopy(cmd, v, args) },
	})
	addDBFlag(cmd)
	addSocketFlag(cmd)
	return cmd
}

func newMergeCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:   "merge <id>...",
		Short: "Copy several entries as one",
		Long: `Concatenates the given entries in the order listed, each followed by a
newline, and places the result on the system clipboard.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error { return runCopy(cmd, v, args) },
	})
	addDBFlag(cmd)
	addSocketFlag(cmd)
	return cmd
}

// runCopy serves both copy and merge. copy writes the entry verbatim; merge
// joins the entries in argument order.
func runCopy(cmd *cobra.Command, v *viper.Viper, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	entries, err := getEntries(ctx, st, ids)
	// Closed before writing: the write may hold this process for a while.
	_ = st.Close()
	if err != nil {
		return err
	}

	var content []byte
	if cmd.Name() == "merge" {
		content = history.Merge(entries)
	} else {
		content = entries[0].Content
	}

	return writeClipboard(ctx, cmd.ErrOrStderr(), v.GetString("socket"), content)
}

func getEntries(ctx context.Context, st *history.Store, ids []int64) ([]history.Entry, error) {
	out := make([]history.Entry, 0, len(ids))
	for _, id := range ids {
		e, err := st.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// localClipboard opens the clipboard when no daemon answers.
var localClipboard = clip.New

// writeClipboard asks the daemon to set the clipboard and falls back to
// writing it from this process when no daemon answers. Where the writing
// process must keep serving the content, it then stays in the foreground
// until another program takes the clipboard or ctx is cancelled.
func writeClipboard(ctx context.Context, msg io.Writer, socket string, content []byte) error {
	if ipc.IsRunning(socket) {
		err := ipc.Copy(socket, content)
		if err == nil {
			fmt.Fprintf(msg, "Copied %d bytes.\n", len(content))
			return nil
		}
		slog.Warn("daemon copy failed, writing clipboard directly", "socket", socket, "err", err)
	}

	b := localClipboard()
	defer b.Close()
	if err := b.Write(content); err != nil {
		return fmt.Errorf("write clipboard (%s): %w", b.Name(), err)
	}
	fmt.Fprintf(msg, "Copied %d bytes.\n", len(content))

	h, ok := b.(clip.Holder)
	if !ok {
		return nil
	}
	slog.Warn("no daemon running, serving the clipboard in the foreground until another program takes it (start \"multiclip watch\" to avoid this)",
		"backend", b.Name())
	if err := h.Hold(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("hold clipboard: %w", err)
	}
	return nil
}
