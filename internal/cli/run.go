package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/compiler"
	"github.com/roach88/spaghetti/internal/engine"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Type     string
	Ticks    int64
	Sets     []string // label=value or label=v1,v2,... per tick
	Database string
	Record   bool
	Realtime bool

	// RunIDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator engine.RunIDGenerator
}

// TickOutputs holds the output values after one tick.
type TickOutputs struct {
	Tick   int64               `json:"tick"`
	Values map[string]ir.Value `json:"values"`
}

// RunResult holds the outcome of a run.
type RunResult struct {
	Type      string        `json:"type"`
	RunID     string        `json:"run_id,omitempty"`
	Ticks     int64         `json:"ticks"`
	TraceHash string        `json:"trace_hash,omitempty"`
	Outputs   []string      `json:"outputs"`
	Rows      []TickOutputs `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <defs-dir>",
		Short: "Tick a package definition",
		Long: `Instantiate a package definition and tick it.

Inputs are driven with --set. A single value holds for the whole run; a
comma-separated list gives one value per tick and its last value holds.
Outputs are printed after every tick.

By default the ticks run back to back. With --realtime they run on the
configured tick interval until --ticks is reached or Ctrl-C is pressed.

With --record (or --db) the run is written to the run database so it can
be inspected with trace and checked with replay.

Examples:
  spaghetti run ./defs --type demo/edge --ticks 6 --set in=false,true,true,false
  spaghetti run ./defs --type demo/blinker --ticks 10 --record
  spaghetti run ./defs --type demo/blinker --realtime --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "package type to run (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().Int64Var(&opts.Ticks, "ticks", 0, "number of ticks (default engine.max_ticks)")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "drive an input: label=value or label=v1,v2,...")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run into this SQLite database")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the run into store.path")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "tick on engine.tick_interval instead of back to back")

	return cmd
}

// inputSchedule drives one external input.
type inputSchedule struct {
	label  string
	index  int
	values []ir.Value
}

// at returns the value for tick (1-based); the last value holds.
func (s inputSchedule) at(tick int64) ir.Value {
	if int(tick) > len(s.values) {
		return s.values[len(s.values)-1]
	}
	return s.values[tick-1]
}

func runEngine(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()
	cfg := opts.settings()

	ticks := opts.Ticks
	if ticks == 0 {
		ticks = cfg.Engine.MaxTicks
	}
	if ticks < 0 || (ticks == 0 && !opts.Realtime) {
		return NewExitError(ExitCommandError, "--ticks must be positive (or set engine.max_ticks, or use --realtime)")
	}

	loadResult, loadErrors := compiler.Load(dir, compiler.LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}
	logger.Info("definitions loaded", "dir", dir, "types", len(loadResult.Docs))

	reg, err := compiler.BuildRegistry(loadResult.Docs, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build registry", err)
	}
	el, err := reg.Create(opts.Type)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to create %s", opts.Type), err)
	}
	pkg, ok := el.(*circuit.Package)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("type %s is an element, not a package definition", opts.Type))
	}

	schedule, err := parseSets(pkg, opts.Sets)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --set", err)
	}

	result := RunResult{Type: opts.Type, Outputs: outputLabels(pkg), Rows: []TickOutputs{}}
	if !formatter.JSON() {
		writeRunHeader(formatter, result.Outputs)
	}

	// Inputs are applied through the command queue so they land at a tick
	// boundary in both modes. The hook queues the values for the next tick.
	var eng *engine.Engine
	enqueue := func(tick int64) error {
		for _, s := range schedule {
			if err := eng.Enqueue(engine.Command{
				Name:  "set " + s.label,
				Apply: func(p *circuit.Package) error { return p.SetInput(s.index, s.at(tick)) },
			}); err != nil {
				return err
			}
		}
		return nil
	}

	recorder := engine.NewRecorder()
	record := recorder.Hook()
	eng = engine.New(pkg,
		engine.WithLogger(logger),
		engine.WithMaxTicks(ticks),
		engine.WithTickHook(func(tick int64, p *circuit.Package) {
			record(tick, p)
			row := snapshotOutputs(tick, p)
			result.Rows = append(result.Rows, row)
			if !formatter.JSON() {
				writeRunRow(formatter, result.Outputs, row)
			}
			if err := enqueue(tick + 1); err != nil {
				logger.Debug("inputs not queued", "tick", tick+1, "error", err)
			}
		}),
	)
	if err := enqueue(1); err != nil {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	if opts.Realtime {
		err = runRealtime(cmd, eng, cfg.Engine.TickInterval, logger)
	} else {
		err = runSteps(eng, ticks)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	result.Ticks = eng.Clock().Current()

	dbPath := opts.Database
	if dbPath == "" && opts.Record {
		dbPath = cfg.Store.Path
	}
	if dbPath != "" {
		gen := opts.RunIDGenerator
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		run, err := recordRun(cmd.Context(), dbPath, gen.Generate(), pkg, recorder.Samples())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		result.RunID = run.ID
		result.TraceHash = run.TraceHash
		logger.Info("run recorded", "db", dbPath, "run_id", run.ID, "ticks", run.Ticks)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "✓ %d tick(s) of %s\n", result.Ticks, result.Type)
	if result.RunID != "" {
		fmt.Fprintf(formatter.Writer, "Recorded run %s (trace %s)\n", result.RunID, result.TraceHash)
	}
	return nil
}

// runSteps ticks the engine back to back.
func runSteps(eng *engine.Engine, ticks int64) error {
	for i := int64(0); i < ticks; i++ {
		res := eng.Tick()
		if len(res.Errors) > 0 {
			return res.Errors[0]
		}
	}
	return nil
}

// runRealtime ticks on the wall clock until the tick budget is spent, the
// command context ends or the process is interrupted.
func runRealtime(cmd *cobra.Command, eng *engine.Engine, interval time.Duration, logger *slog.Logger) error {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	err := eng.Run(ctx, interval)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	case engine.IsTickBudgetExceeded(err):
		return nil
	default:
		return err
	}
}

// parseSets resolves --set flags against the package inputs. The result
// is sorted by socket index so inputs are applied in a fixed order.
func parseSets(pkg *circuit.Package, sets []string) ([]inputSchedule, error) {
	byLabel := make(map[string]inputSchedule, len(sets))
	for _, set := range sets {
		label, raw, ok := strings.Cut(set, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" || strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("%q: want label=value", set)
		}
		idx, ok := pkg.InputIndex(label)
		if !ok {
			return nil, fmt.Errorf("%q: package %s has no input %q", set, pkg.Type(), label)
		}
		kind := pkg.Inputs()[idx].Kind()

		s := inputSchedule{label: label, index: idx}
		for _, part := range strings.Split(raw, ",") {
			v, err := ir.ParseValue(kind, part)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", set, err)
			}
			s.values = append(s.values, v)
		}
		byLabel[label] = s
	}

	out := make([]inputSchedule, 0, len(byLabel))
	for _, s := range byLabel {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out, nil
}

func outputLabels(pkg *circuit.Package) []string {
	labels := make([]string, len(pkg.Outputs()))
	for i, o := range pkg.Outputs() {
		labels[i] = o.Label()
	}
	return labels
}

func snapshotOutputs(tick int64, p *circuit.Package) TickOutputs {
	row := TickOutputs{Tick: tick, Values: make(map[string]ir.Value, len(p.Outputs()))}
	for _, o := range p.Outputs() {
		row.Values[o.Label()] = o.Value()
	}
	return row
}

func writeRunHeader(formatter *OutputFormatter, labels []string) {
	fmt.Fprintf(formatter.Writer, "%6s", "tick")
	for _, l := range labels {
		fmt.Fprintf(formatter.Writer, "  %-10s", l)
	}
	fmt.Fprintln(formatter.Writer)
}

func writeRunRow(formatter *OutputFormatter, labels []string, row TickOutputs) {
	fmt.Fprintf(formatter.Writer, "%6d", row.Tick)
	for _, l := range labels {
		fmt.Fprintf(formatter.Writer, "  %-10s", ir.FormatValue(row.Values[l]))
	}
	fmt.Fprintln(formatter.Writer)
}

// recordRun writes the run and closes the database.
func recordRun(ctx context.Context, path, runID string, pkg *circuit.Package, samples []ir.Sample) (store.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	doc, err := pkg.Enumerate()
	if err != nil {
		return store.Run{}, err
	}

	st, err := store.Open(path)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()

	return st.RecordRun(ctx, runID, doc, samples)
}
