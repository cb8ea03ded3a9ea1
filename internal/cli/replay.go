package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spaghetti/internal/compiler"
	"github.com/roach88/spaghetti/internal/engine"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
	"github.com/roach88/spaghetti/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
	Defs     string // optional - definitions the recorded package refers to
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string              `json:"run_id"`
	Type          string              `json:"type"`
	Ticks         int64               `json:"ticks"`
	HashVerified  bool                `json:"hash_verified"`
	Deterministic bool                `json:"deterministic"`
	Divergences   []engine.Divergence `json:"divergences,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-execute recorded runs and verify determinism",
		Long: `Re-execute recorded runs and compare every output with the recording.

Each run is rebuilt from the package snapshot stored with it, driven with
the recorded inputs and checked tick by tick. The stored trace hash is
verified as well.

Packages that use definition types (not only built-in elements) need the
definitions directory passed with --defs.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  spaghetti replay --db ./runs.db
  spaghetti replay --db ./runs.db --run 0192...
  spaghetti replay --db ./runs.db --defs ./defs --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default store.path)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")
	cmd.Flags().StringVar(&opts.Defs, "defs", "", "directory of package definitions used by the runs")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, _, err := openExistingStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	loaded, errs := loadOptionalDefs(opts.Defs)
	if len(errs) > 0 {
		code, message := parseCompileError(errs[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}
	reg, err := compiler.BuildRegistry(loaded, opts.logger())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build registry", err)
	}

	// Get runs to process
	var runIDs []string
	if opts.RunID != "" {
		runIDs = []string{opts.RunID}
	} else {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range runs {
			runIDs = append(runIDs, r.ID)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runIDs)),
		TotalRuns:        len(runIDs),
		AllDeterministic: true,
	}

	if len(runIDs) == 0 {
		if formatter.JSON() {
			return outputReplayJSON(formatter, result)
		}
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}

	for _, id := range runIDs {
		rec, err := st.LoadRecording(ctx, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load run %s", id), err)
		}
		formatter.VerboseLog("Replaying run %s (%s, %d ticks)", id, rec.Doc.Type, rec.Run.Ticks)

		runResult := replayAndVerifyRun(ctx, reg, rec, opts)
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic || !runResult.HashVerified {
			result.AllDeterministic = false
		}
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// loadOptionalDefs loads the definitions directory when one is given.
func loadOptionalDefs(dir string) ([]ir.PackageDoc, []error) {
	if dir == "" {
		return nil, nil
	}
	res, errs := compiler.Load(dir, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs
	}
	return res.Docs, nil
}

// replayAndVerifyRun checks the sealed trace hash and re-executes one
// recording. A run that cannot be rebuilt is reported as not
// deterministic with the reason.
func replayAndVerifyRun(ctx context.Context, reg *registry.Registry, rec store.Recording, opts *ReplayOptions) ReplayRunResult {
	res := ReplayRunResult{
		RunID: rec.Run.ID,
		Type:  rec.Doc.Type,
		Ticks: rec.Run.Ticks,
	}

	if err := rec.Verify(); err != nil {
		res.Error = err.Error()
	} else {
		res.HashVerified = true
	}

	replayed, err := engine.Replay(ctx, reg, rec.Doc, rec.Samples, engine.WithLogger(opts.logger()))
	if err != nil {
		if res.Error == "" {
			res.Error = err.Error()
		}
		return res
	}
	res.Divergences = replayed.Divergences
	res.Deterministic = !replayed.Diverged() && replayed.TraceHash == rec.Run.TraceHash
	if res.Error == "" {
		if derr := replayed.Err(); derr != nil {
			res.Error = derr.Error()
		} else if !res.Deterministic {
			res.Error = fmt.Sprintf("replayed trace hash %s differs from recorded %s", replayed.TraceHash, rec.Run.TraceHash)
		}
	}
	return res
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDiverged,
			Message: "determinism verification failed",
		}
	}

	if err := writeResponse(formatter.Writer, response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic || !run.HashVerified {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		fmt.Fprintf(w, "  Package: %s, %d tick(s)\n", run.Type, run.Ticks)

		if formatter.Verbose {
			for _, d := range run.Divergences {
				fmt.Fprintf(w, "  tick %d %s: recorded %s, replayed %s\n",
					d.Tick, d.Label, ir.FormatValue(d.Want), ir.FormatValue(d.Got))
			}
		}
		if run.Error != "" {
			fmt.Fprintf(w, "  Warning: %s\n", run.Error)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
