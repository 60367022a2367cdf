package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/multiclip/internal/history"
	"go.klb.dev/multiclip/internal/ipc"
	"go.klb.dev/multiclip/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and MULTICLIP_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → MULTICLIP_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("multiclip")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/multiclip/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "multiclip"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("MULTICLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// newOneShotCmd returns a short-lived command whose flags are bound into v
// before RunE.
func newOneShotCmd(v *viper.Viper, cmd *cobra.Command) *cobra.Command {
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := bindViper(cmd, v); err != nil {
			return err
		}
		setupLogging(v, true)
		return nil
	}
	addLoggingFlags(cmd)
	addConfigFlag(cmd)
	return cmd
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: warn for one-shot commands; for watch, debug when interactive, else info)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addDBFlag adds the --db and --busy-timeout flags to a command.
func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().String("db", defaultDBPath(), "path to the history database")
	cmd.Flags().Duration("busy-timeout", history.DefaultBusyTimeout, "how long to wait for a database lock held by another process")
}

// addSocketFlag adds the --socket flag to a command.
func addSocketFlag(cmd *cobra.Command) {
	cmd.Flags().String("socket", ipc.SocketPath(), "daemon IPC socket path")
}

// setupLogging reads logging flags from viper and configures slog.
// Interactive sessions default to debug and the daemon under a service
// manager to info. One-shot commands only log warnings unless asked
// otherwise.
func setupLogging(v *viper.Viper, oneShot bool) {
	fallback := slog.LevelInfo
	switch {
	case oneShot:
		fallback = slog.LevelWarn
	case v.GetBool("no-background") || logging.IsTTY(os.Stderr):
		fallback = slog.LevelDebug
	}
	logging.Setup(
		logging.ParseFormat(v.GetString("log-format")),
		logging.ParseLevel(v.GetString("log-level"), fallback),
	)
}

// defaultDBPath returns $XDG_DATA_HOME/multiclip/history.db, falling back to
// ~/.local/share/multiclip/history.db.
func defaultDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "multiclip", "history.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "multiclip", "history.db")
	}
	return "history.db"
}

// openStore opens and initialises the history database named by the "db" key.
func openStore(ctx context.Context, v *viper.Viper) (*history.Store, error) {
	st, err := history.Open(v.GetString("db"), history.WithBusyTimeout(v.GetDuration("busy-timeout")))
	if err != nil {
		return nil, err
	}
	if err := st.Initialize(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
