package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSettingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "setting",
		Aliases: []string{"settings"},
		Short:   "Read or change stored settings",
		Long: `Settings live in the history database next to the entries.

  ALWAYS_ON_TOP  Y or N
  BUFFER_SIZE    positive integer (recorded, history is not trimmed to it)`,
	}
	cmd.AddCommand(newSettingListCmd(), newSettingGetCmd(), newSettingSetCmd())
	return cmd
}

func newSettingListCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:   "list",
		Short: "Show all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer st.Close()

			settings, err := st.Settings(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 1, 0, 2, ' ', 0)
			for _, s := range settings {
				_, _ = fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Value)
			}
			return tw.Flush()
		},
	})
	addDBFlag(cmd)
	return cmd
}

func newSettingGetCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:   "get <name>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer st.Close()

			val, err := st.Setting(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	})
	addDBFlag(cmd)
	return cmd
}

func newSettingSetCmd() *cobra.Command {
	v := viper.New()

	cmd := newOneShotCmd(v, &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.SetSetting(cmd.Context(), args[0], args[1])
		},
	})
	addDBFlag(cmd)
	return cmd
}
