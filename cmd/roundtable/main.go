// Command roundtable runs a multi-agent session from a YAML configuration
// file and exits with a code reflecting the session outcome: 0 when the
// termination condition matched, 2 when the turn limit was reached, 1 on
// failure.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/roundtable"
	"github.com/hupe1980/roundtable/config"
	"github.com/hupe1980/roundtable/console"
	"github.com/hupe1980/roundtable/logging"
)

func main() {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:           "roundtable",
		Short:         "Run a round-robin multi-agent session",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger := logging.Logger(logging.NoOpLogger{})
			if verbose {
				logger = logging.NewTextLogger(os.Stderr, slog.LevelDebug)
			}

			rt, err := roundtable.New(cfg, func(o *roundtable.Options) {
				o.Logger = logger
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sink := console.Attach(rt.Transcript(), os.Stdout)

			outcome, runErr := rt.Run(ctx)
			sink.Wait()

			if runErr != nil {
				fmt.Fprintf(os.Stderr, "session failed: %v\n", runErr)
			}
			fmt.Fprintf(os.Stderr, "session ended: %s after %d turns\n", outcome.State, outcome.TurnsExecuted)

			// Returned instead of calling os.Exit here so deferred cleanup
			// (signal handler release) still runs.
			return exitCodeError{code: outcome.ExitCode()}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "roundtable.yaml", "path to the session configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")

	if err := cmd.Execute(); err != nil {
		var ec exitCodeError
		if errors.As(err, &ec) {
			os.Exit(ec.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitCodeError carries the session exit code out of the command's RunE.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
