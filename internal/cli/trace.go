package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	RunID     string // optional - defaults to the latest run
	Element   string // optional - filter to one socket label
	Direction string // optional - "in" or "out"
	FromTick  int64
	ToTick    int64
	ListRuns  bool
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run     store.Run   `json:"run"`
	Type    string      `json:"type"`
	Samples []ir.Sample `json:"samples"`
	Stats   TraceStats  `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Samples int `json:"samples"`
	Inputs  int `json:"inputs"`
	Outputs int `json:"outputs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the samples of a recorded run",
		Long: `Show the per-tick input and output samples of a recorded run.

Without --run the latest run is shown. The filters are compiled to a
single parameterized query over the samples table.

Examples:
  spaghetti trace --db ./runs.db
  spaghetti trace --db ./runs.db --run 0192... --element pulse --direction out
  spaghetti trace --db ./runs.db --from-tick 10 --to-tick 20 --format json
  spaghetti trace --db ./runs.db --runs`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default store.path)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to show (default latest)")
	cmd.Flags().StringVar(&opts.Element, "element", "", "only samples of this socket label")
	cmd.Flags().StringVar(&opts.Direction, "direction", "", "only inputs (in) or outputs (out)")
	cmd.Flags().Int64Var(&opts.FromTick, "from-tick", 0, "first tick to show")
	cmd.Flags().Int64Var(&opts.ToTick, "to-tick", 0, "last tick to show (0 = no limit)")
	cmd.Flags().BoolVar(&opts.ListRuns, "runs", false, "list recorded runs instead")

	return cmd
}

// openExistingStore opens a run database that must already exist, so a
// mistyped path is not silently created.
func openExistingStore(opts *RootOptions, path string) (*store.Store, string, error) {
	if path == "" {
		path = opts.settings().Store.Path
	}
	if _, err := os.Stat(path); err != nil {
		return nil, path, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, path, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, path, nil
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	switch ir.Direction(opts.Direction) {
	case "", ir.DirectionIn, ir.DirectionOut:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --direction %q: must be in or out", opts.Direction))
	}
	if opts.ToTick > 0 && opts.ToTick < opts.FromTick {
		return NewExitError(ExitCommandError, fmt.Sprintf("--to-tick %d is before --from-tick %d", opts.ToTick, opts.FromTick))
	}

	st, _, err := openExistingStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.ListRuns {
		return outputRuns(ctx, st, formatter)
	}

	var run store.Run
	if opts.RunID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, opts.RunID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if opts.RunID != "" {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if formatter.JSON() {
			return formatter.Success(TraceResult{Samples: []ir.Sample{}})
		}
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	pkg, err := st.ReadPackage(ctx, run.PackageID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read package", err)
	}

	filter := store.SampleFilter{
		RunID:     run.ID,
		Label:     opts.Element,
		Direction: ir.Direction(opts.Direction),
		FromTick:  opts.FromTick,
		ToTick:    opts.ToTick,
	}
	samples, err := st.QuerySamples(ctx, filter.Predicate())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query samples", err)
	}

	result := TraceResult{Run: run, Type: pkg.Type, Samples: samples}
	result.Stats.Samples = len(samples)
	for _, s := range samples {
		if s.Direction == ir.DirectionIn {
			result.Stats.Inputs++
		} else {
			result.Stats.Outputs++
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Trace for Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Package: %s (%d tick(s))\n", result.Type, result.Run.Ticks)
	if formatter.Verbose {
		fmt.Fprintf(w, "Trace Hash: %s\n", result.Run.TraceHash)
		fmt.Fprintf(w, "Engine: %s, IR: %s\n", result.Run.EngineVersion, result.Run.IRVersion)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Samples ===")
	if len(result.Samples) == 0 {
		fmt.Fprintln(w, "  (no samples)")
	}
	for _, s := range result.Samples {
		fmt.Fprintf(w, "  [%d] %-3s %s#%d = %s\n", s.Tick, s.Direction, s.Label, s.Socket, ir.FormatValue(s.Value))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Samples: %d\n", result.Stats.Samples)
	fmt.Fprintf(w, "  Inputs:  %d\n", result.Stats.Inputs)
	fmt.Fprintf(w, "  Outputs: %d\n", result.Stats.Outputs)

	return nil
}

// outputRuns lists every recorded run.
func outputRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if formatter.JSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%4d  %s  %d tick(s)  %s\n", r.Seq, r.ID, r.Ticks, truncateID(r.TraceHash))
	}
	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
