package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/compiler"
	"github.com/roach88/spaghetti/internal/engine"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
	"github.com/roach88/spaghetti/internal/store"
	"github.com/roach88/spaghetti/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs one scenario against a fresh registry and store.
type Harness struct {
	store  *store.Store
	reg    *registry.Registry
	runGen engine.RunIDGenerator
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger used for the registry, package and engine.
// The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// WithStore records the run into st instead of a fresh in-memory store.
// The caller keeps ownership of st.
func WithStore(st *store.Store) Option {
	return func(h *Harness) {
		h.store = st
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the definitions from scenario.Specs and build a registry
// 3. Instantiate scenario.Type and tick it, driving the inputs
// 4. Record the run and compare the outputs with the expectations
// 5. Evaluate assertions and return the result
//
// Run returns an error when the scenario cannot be executed at all
// (bad definitions, unknown type or labels); failed expectations are
// reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		runGen: testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.store == nil {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		h.store = st
	}

	docs, err := h.loadSpecs(scenario.Specs)
	if err != nil {
		return nil, err
	}
	reg, err := compiler.BuildRegistry(docs, h.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}
	h.reg = reg

	el, err := reg.Create(scenario.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", scenario.Type, err)
	}
	pkg, ok := el.(*circuit.Package)
	if !ok {
		return nil, fmt.Errorf("type %s is an element, not a package definition", scenario.Type)
	}

	inputs, err := resolveInputs(pkg, scenario.Inputs)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for _, doc := range docs {
		if doc.Type == scenario.Type {
			result.Feedback = compiler.AnalyzeFeedback(doc)
		}
	}

	if err := h.execute(ctx, scenario, pkg, inputs, result); err != nil {
		return nil, err
	}

	checkExpect(pkg, scenario.Expect, result)

	actx := &AssertionContext{
		Store:   h.store,
		Ctx:     ctx,
		RunID:   result.RunID,
		Package: pkg,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"ticks", result.Ticks,
		"pass", result.Pass,
		"trace_hash", result.TraceHash,
	)
	return result, nil
}

// loadSpecs loads every spec directory and rejects recursive composition
// before anything is instantiated.
func (h *Harness) loadSpecs(dirs []string) ([]ir.PackageDoc, error) {
	var docs []ir.PackageDoc
	for _, dir := range dirs {
		res, errs := compiler.Load(dir, compiler.LoadModeFailFast)
		if len(errs) > 0 {
			return nil, fmt.Errorf("failed to load specs from %s: %w", dir, errs[0])
		}
		docs = append(docs, res.Docs...)
	}
	if errs := compiler.AnalyzeComposition(docs); len(errs) > 0 {
		return nil, fmt.Errorf("invalid specs: %w", errs[0])
	}
	return docs, nil
}

// tickInput is one resolved scenario input: the socket index and a value
// per scripted tick.
type tickInput struct {
	label  string
	socket int
	values []ir.Value
}

// at returns the value for a 1-based tick; the last value holds.
func (in tickInput) at(tick int64) ir.Value {
	if tick > int64(len(in.values)) {
		return in.values[len(in.values)-1]
	}
	return in.values[tick-1]
}

// resolveInputs maps input labels to socket indices and coerces the YAML
// values to the socket kinds. The result is sorted by socket.
func resolveInputs(pkg *circuit.Package, raw map[string][]any) ([]tickInput, error) {
	inputs := make([]tickInput, 0, len(raw))
	for label, values := range raw {
		idx, ok := pkg.InputIndex(label)
		if !ok {
			return nil, fmt.Errorf("inputs.%s: package %s has no such input", label, pkg.Type())
		}
		kind := pkg.Inputs()[idx].Kind()
		in := tickInput{label: label, socket: idx, values: make([]ir.Value, len(values))}
		for i, v := range values {
			val, err := ir.Coerce(kind, v)
			if err != nil {
				return nil, fmt.Errorf("inputs.%s[%d]: %w", label, i, err)
			}
			in.values[i] = val
		}
		inputs = append(inputs, in)
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].socket < inputs[j].socket })
	return inputs, nil
}

// execute ticks the package, records every tick and stores the run.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, pkg *circuit.Package, inputs []tickInput, result *Result) error {
	rec := engine.NewRecorder()
	eng := engine.New(pkg, engine.WithLogger(h.logger), engine.WithTickHook(rec.Hook()))

	for tick := int64(1); tick <= scenario.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := eng.Do(func(p *circuit.Package) error {
			for _, in := range inputs {
				if err := p.SetInput(in.socket, in.at(tick)); err != nil {
					return fmt.Errorf("tick %d: input %s: %w", tick, in.label, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		res := eng.Tick()
		for _, terr := range res.Errors {
			result.AddError(terr.Error())
		}
		result.Ticks++
	}

	samples := rec.Samples()
	result.AddSamples(samples)

	doc, err := pkg.Enumerate()
	if err != nil {
		return fmt.Errorf("failed to enumerate %s: %w", scenario.Type, err)
	}
	result.RunID = h.runGen.Generate()
	run, err := h.store.RecordRun(ctx, result.RunID, doc, samples)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	result.TraceHash = run.TraceHash
	return nil
}

// checkExpect compares the per-tick output expectations.
func checkExpect(pkg *circuit.Package, expect map[string][]any, result *Result) {
	labels := make([]string, 0, len(expect))
	for label := range expect {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		idx, ok := pkg.OutputIndex(label)
		if !ok {
			result.AddError(fmt.Sprintf("expect.%s: package %s has no such output", label, pkg.Type()))
			continue
		}
		kind := pkg.Outputs()[idx].Kind()
		for i, raw := range expect[label] {
			tick := int64(i + 1)
			want, err := ir.Coerce(kind, raw)
			if err != nil {
				result.AddError(fmt.Sprintf("expect.%s[%d]: %v", label, i, err))
				continue
			}
			got, _ := result.OutputAt(label, tick)
			if !ir.Equal(want, got) {
				result.AddError((&AssertionError{
					Type:     "expect",
					Output:   label,
					Expected: fmt.Sprintf("%s at tick %d", ir.FormatValue(want), tick),
					Actual:   formatOrMissing(got),
					Values:   result.Outputs[label],
				}).Error())
			}
		}
	}
}
