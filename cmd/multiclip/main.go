// multiclip: clipboard history daemon and CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "multiclip",
		Short: "Clipboard history",
		Long: `multiclip records every distinct value copied to the system clipboard
in a local SQLite database and lets you browse, filter, re-copy, merge and
delete past entries.

Run "multiclip watch" in the background (or from your session's autostart).
Other commands work on the database directly and talk to the running daemon
over a local Unix socket when they need the clipboard.

Config file search order (first found wins):
  /etc/multiclip/multiclip.toml
  $HOME/.config/multiclip/multiclip.toml
  path supplied via --config

All flags can be set via MULTICLIP_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newWatchCmd(),
		newListCmd(),
		newShowCmd(),
		newCopyCmd(),
		newMergeCmd(),
		newDeleteCmd(),
		newClearCmd(),
		newSettingCmd(),
		newStatusCmd(),
		newTailCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "multiclip %s\n", Version)
		},
	}
}
