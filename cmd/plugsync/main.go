package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/plugsync/internal/client"
	"github.com/openmined/plugsync/internal/client/config"
	"github.com/openmined/plugsync/internal/utils"
	"github.com/openmined/plugsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	exitError       = 1
	exitConfigError = 2
)

var rootCmd = &cobra.Command{
	Use:   "plugsync",
	Short: "Keep local source files in sync with remote plugs",
	Long: `plugsync periodically scans the configured directories and uploads every new or
modified file of the configured types to the remote service, attaching it to a plug
that is created once per file and updated afterwards.`,
	Version:      version.Detailed(),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		closeLog, err := setupLogging(cmd, cfg.LogFilePath())
		if err != nil {
			return err
		}
		defer closeLog()

		c, err := client.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		defer slog.Info("Bye!")
		return c.Start(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default searches ., ~/.plugsync, ~/.config/plugsync)")
	rootCmd.PersistentFlags().Duration("interval", config.DefaultInterval, "wait between cycles")
	rootCmd.PersistentFlags().Int("workers", config.DefaultWorkers, "files synced in parallel")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging on the console")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if config.IsConfigError(err) {
		return exitConfigError
	}
	return exitError
}

// loadConfig binds the command flags over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	for key, flag := range map[string]string{
		"interval": "interval",
		"workers":  "workers",
	} {
		if f := cmd.Flag(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	return config.Load(v, loadConfigPath(cmd))
}

// setupLogging logs to the console through tint and to logFile as text.
// The returned func closes the log file.
func setupLogging(cmd *cobra.Command, logFile string) (func(), error) {
	if err := utils.EnsureParent(logFile); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	consoleLevel := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		consoleLevel = slog.LevelDebug
	}

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(
		newConsoleHandler(cmd.ErrOrStderr(), consoleLevel),
		slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)))

	return func() { file.Close() }, nil
}

func newConsoleHandler(w io.Writer, level slog.Level) slog.Handler {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    noColor,
	})
}
