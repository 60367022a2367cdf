package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/multiclip/internal/history"
	"go.klb.dev/multiclip/internal/ipc"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:   "status",
		Short: "Show daemon and history status",
		Long: `Reports whether a "multiclip watch" daemon answers on the IPC socket,
which tail clients are attached to it, and the size and settings of the
history database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	})
	cmd.Flags().Bool("json", false, "output JSON")
	addDBFlag(cmd)
	addSocketFlag(cmd)
	return cmd
}

type statusReport struct {
	Socket   string            `json:"socket"`
	Running  bool              `json:"running"`
	Daemon   *ipc.Status       `json:"daemon,omitempty"`
	DB       string            `json:"db"`
	Entries  int               `json:"entries"`
	Settings []history.Setting `json:"settings"`
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()
	r := statusReport{Socket: v.GetString("socket"), DB: v.GetString("db")}

	if ipc.IsRunning(r.Socket) {
		st, err := ipc.Ping(r.Socket)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		r.Running = true
		r.Daemon = &st
	}

	store, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer store.Close()
	if r.Entries, err = store.Count(ctx); err != nil {
		return err
	}
	if r.Settings, err = store.Settings(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	if r.Running {
		_, _ = fmt.Fprintf(tw, "Daemon:\trunning (%s)\n", r.Daemon.Version)
		tails := "-"
		if len(r.Daemon.Subscribers) > 0 {
			tails = strings.Join(r.Daemon.Subscribers, ",")
		}
		_, _ = fmt.Fprintf(tw, "Tails:\t%s\n", tails)
	} else {
		_, _ = fmt.Fprintf(tw, "Daemon:\tnot running\n")
	}
	_, _ = fmt.Fprintf(tw, "Socket:\t%s\n", r.Socket)
	_, _ = fmt.Fprintf(tw, "Database:\t%s\n", r.DB)
	_, _ = fmt.Fprintf(tw, "Entries:\t%d\n", r.Entries)
	for _, s := range r.Settings {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", s.Name, s.Value)
	}
	return tw.Flush()
}
