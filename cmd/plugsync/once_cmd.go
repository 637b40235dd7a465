package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/plugsync/internal/client"
	"github.com/openmined/plugsync/internal/client/syncer"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newOnceCmd())
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single sync cycle and exit",
		Long: `Run a single sync cycle, print its report and exit. The exit code is non-zero when
the cycle failed as a whole: no credential, a directory that could not be scanned, or
most files rejected by the remote. Individual file failures are only reported.`,
		Args: cobra.NoArgs,
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

			report, err := c.RunOnce(cmd.Context())
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
}

func printReport(w io.Writer, r *syncer.CycleReport) {
	fmt.Fprintf(w, "cycle %s\n", r.ID)
	fmt.Fprintf(w, "  scanned    %d\n", r.Scanned)
	fmt.Fprintf(w, "  unchanged  %d\n", r.Unchanged)
	fmt.Fprintf(w, "  created    %d\n", r.Created)
	fmt.Fprintf(w, "  updated    %d\n", r.Updated)
	fmt.Fprintf(w, "  skipped    %d\n", r.Skipped)
	fmt.Fprintf(w, "  failed     %d\n", r.Failed)
	fmt.Fprintf(w, "  sent       %s in %s\n", humanize.Bytes(uint64(r.Bytes)), r.Took.Round(time.Millisecond))

	for _, path := range slices.Sorted(maps.Keys(r.Errors)) {
		fmt.Fprintf(w, "  ! %s: %v\n", path, r.Errors[path])
	}
}
