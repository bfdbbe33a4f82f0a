package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hypecast/internal/batch"
	"hypecast/internal/hypem"
	"hypecast/internal/ui"
)

var (
	flagJSON    bool
	flagVerbose bool
)

// errUnresolved makes the exit status reflect absent results for scripts.
var errUnresolved = errors.New("some tracks could not be resolved")

var resolveCmd = &cobra.Command{
	Use:   "resolve <track-url-or-id>...",
	Short: "Print the hosting URL for each track",
	Example: `  hypecast resolve http://hypem.com/track/2c87x
  hypecast resolve 2c87x zz999 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: resolveRun,
}

func init() {
	resolveCmd.Flags().BoolVarP(&flagJSON, "json", "j", false, "Output traces as JSON")
	resolveCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Show the outcome of every step")
}

func resolveRun(cmd *cobra.Command, args []string) error {
	r, _, err := newResolver(nil)
	if err != nil {
		return err
	}

	traces, err := traceAll(cmd, r, args)
	if err != nil {
		return err
	}
	recordHistory(traces...)

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		var v any = traces
		if len(traces) == 1 {
			v = traces[0]
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	} else {
		for _, t := range traces {
			fmt.Println(ui.Trace(t, flagVerbose))
		}
	}

	for _, t := range traces {
		if t.URL == nil {
			return errUnresolved
		}
	}
	return nil
}

// traceAll resolves inputs in parallel behind a spinner on interactive stderr.
func traceAll(cmd *cobra.Command, r batch.Tracer, inputs []string) ([]hypem.Trace, error) {
	label := "Resolving " + inputs[0]
	if len(inputs) > 1 {
		label = fmt.Sprintf("Resolving %d tracks", len(inputs))
	}

	var traces []hypem.Trace
	err := ui.WithSpinner(cmd.Context(), os.Stderr, label, func(ctx context.Context) {
		traces = batch.Run(ctx, r, inputs, cfg.HTTP.Concurrency)
	})
	if err != nil {
		return nil, err
	}

	for _, t := range traces {
		logger.Debug("Traced track", zap.Stringer("trace", t))
	}
	return traces, nil
}
