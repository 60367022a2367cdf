package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/multiclip/internal/history"
	"go.klb.dev/multiclip/internal/hub"
	"go.klb.dev/multiclip/internal/logging"
)

const previewRunes = 60

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded clipboard entries",
		Long: `Prints the clipboard history, newest first. --filter keeps only entries
whose content contains the given text, ignoring case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error { return runList(cmd, v) },
	})

	f := cmd.Flags()
	f.StringP("filter", "f", "", "show only entries containing this text (case-insensitive)")
	f.Bool("asc", false, "oldest first")
	f.IntP("limit", "n", 0, "show at most this many entries (0 = all)")
	f.Bool("full", false, "print full content instead of a one-line preview")
	f.Bool("json", false, "output JSON")
	addDBFlag(cmd)

	return cmd
}

func runList(cmd *cobra.Command, v *viper.Viper) error {
	st, err := openStore(cmd.Context(), v)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	entries = history.Filter(entries, v.GetString("filter"))
	if !v.GetBool("asc") {
		entries = history.Reverse(entries)
	}
	if n := v.GetInt("limit"); n > 0 && len(entries) > n {
		entries = entries[:n]
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		return writeEntriesJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No entries.")
		return nil
	}
	printEntries(out, entries, v.GetBool("full"))
	return nil
}

func printEntries(out io.Writer, entries []history.Entry, full bool) {
	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tDATE\tAGE\tSIZE\tVALUE\n")
	_, _ = fmt.Fprintf(tw, "--\t----\t---\t----\t-----\n")
	for _, e := range entries {
		value := hub.Preview(e.Content, previewRunes)
		if full {
			value = string(e.Content)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			e.ID, e.Timestamp.Local().Format(time.DateTime), fmtAge(e.Timestamp), len(e.Content), value)
	}
	_ = tw.Flush()
}

func writeEntriesJSON(out io.Writer, entries []history.Entry) error {
	js := make([]entryJSON, len(entries))
	for i, e := range entries {
		js[i] = toEntryJSON(e)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(js)
}

func newShowCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:   "show <id>",
		Short: "Write one entry's raw content to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer st.Close()

			e, err := st.Get(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(e.Content); err != nil {
				return err
			}
			if logging.IsTTY(out) && !bytes.HasSuffix(e.Content, []byte("\n")) {
				fmt.Fprintln(out)
			}
			return nil
		},
	})
	addDBFlag(cmd)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete entries by id",
		Long:    `Deletes the given entries in one transaction. Ids that do not exist are ignored.`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Delete(cmd.Context(), ids...)
		},
	})
	addDBFlag(cmd)
	return cmd
}

func newClearCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry",
		Long: `Removes the whole clipboard history. Ids start again from 1 afterwards.
Settings are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !v.GetBool("yes") {
				return fmt.Errorf("refusing to clear history without --yes")
			}
			st, err := openStore(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "History cleared.")
			return nil
		},
	})
	cmd.Flags().BoolP("yes", "y", false, "confirm")
	addDBFlag(cmd)
	return cmd
}
