// Command schedsim runs scheduling scenarios on the kernel under virtual time
// and reports how the CPU was shared.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sparkrt/internal/buildinfo"
)

var (
	runOpts = struct {
		duration time.Duration
		pprof    string
		verbose  bool
	}{}

	rootCmd = &cobra.Command{
		Use:          "schedsim",
		Short:        "Run kernel scheduling scenarios on virtual time",
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios and print a report",
		Long:  "Run the named scenarios (all of them without arguments) and print per-thread CPU share and schedule statistics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, sc := range scenarios {
					args = append(args, sc.name)
				}
			}
			if runOpts.pprof != "" && len(args) != 1 {
				return fmt.Errorf("--pprof needs exactly one scenario")
			}
			return runScenarios(cmd, args)
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the scenarios",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, sc := range scenarios {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", sc.name, sc.desc)
			}
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schedsim %s (commit %s, built %s)\n", buildinfo.Short(), buildinfo.Commit, buildinfo.Date)
		},
	}
)

func init() {
	runCmd.Flags().DurationVarP(&runOpts.duration, "duration", "d", 100*time.Millisecond, "virtual time per scenario")
	runCmd.Flags().StringVar(&runOpts.pprof, "pprof", "", "write the per-thread runtime as a pprof profile to this file")
	runCmd.Flags().BoolVarP(&runOpts.verbose, "verbose", "v", false, "show kernel log lines")

	rootCmd.AddCommand(runCmd, listCmd, versionCmd)
}

func runScenarios(cmd *cobra.Command, names []string) error {
	if runOpts.duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	us := uint64(runOpts.duration / time.Microsecond)

	out := cmd.OutOrStdout()
	var log io.Writer
	if runOpts.verbose {
		log = cmd.ErrOrStderr()
	}
	for i, name := range names {
		sc, ok := findScenario(name)
		if !ok {
			return fmt.Errorf("unknown scenario %q", name)
		}
		r, err := run(cmd.Context(), sc, us, log)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		writeReport(out, r, summarize(r))

		if runOpts.pprof != "" {
			f, err := os.Create(runOpts.pprof)
			if err != nil {
				return err
			}
			if err := writeProfile(f, r); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
