package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/multiclip/internal/history"
	"go.klb.dev/multiclip/internal/hub"
	"go.klb.dev/multiclip/internal/ipc"
	"go.klb.dev/multiclip/internal/message"
)

func newTailCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:   "tail",
		Short: "Print entries as the daemon records them",
		Long: `Connects to the running "multiclip watch" daemon and prints one line per
newly recorded entry until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error { return runTail(cmd, v) },
	})

	f := cmd.Flags()
	f.Bool("replay", false, "print the most recent entry first")
	f.Bool("json", false, "one JSON object per line")
	addSocketFlag(cmd)

	return cmd
}

func runTail(cmd *cobra.Command, v *viper.Viper) error {
	socket := v.GetString("socket")
	if !ipc.IsRunning(socket) {
		return fmt.Errorf("no daemon listening on %s (start one with \"multiclip watch\")", socket)
	}

	out := cmd.OutOrStdout()
	jsonOut := v.GetBool("json")
	enc := json.NewEncoder(out)

	return ipc.Tail(cmd.Context(), socket, v.GetBool("replay"), func(msg *message.Message) error {
		if msg.Type != message.TypeEntry {
			return nil
		}
		content, err := msg.Content()
		if err != nil {
			return err
		}
		e := history.Entry{ID: msg.ID, Timestamp: msg.Timestamp, Content: content}
		if jsonOut {
			return enc.Encode(toEntryJSON(e))
		}
		_, err = fmt.Fprintf(out, "%d\t%s\t%s\n",
			e.ID, e.Timestamp.Local().Format("15:04:05"), hub.Preview(e.Content, previewRunes))
		return err
	})
}
