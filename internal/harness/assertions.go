package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/queryir"
	"github.com/roach88/spaghetti/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Output   string     // Output label, if the assertion names one
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Values   []ir.Value // Output values per tick for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Output != "" {
		fmt.Fprintf(&buf, " (%s)", e.Output)
	}
	buf.WriteString("\n")

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full output history for context
	if len(e.Values) > 0 {
		fmt.Fprintf(&buf, "\nValues by tick:\n")
		for i, v := range e.Values {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, ir.FormatValue(v))
		}
	}

	return buf.String()
}

func formatOrMissing(v ir.Value) string {
	if v == nil {
		return "no value recorded"
	}
	return ir.FormatValue(v)
}

// outputKind returns the kind of an external output, or an error naming
// the missing label.
func outputKind(pkg *circuit.Package, label string) (ir.Kind, error) {
	idx, ok := pkg.OutputIndex(label)
	if !ok {
		return 0, fmt.Errorf("package %s has no output %q", pkg.Type(), label)
	}
	return pkg.Outputs()[idx].Kind(), nil
}

// assertOutputAt checks the value of an output after one tick.
func assertOutputAt(result *Result, pkg *circuit.Package, a Assertion) error {
	kind, err := outputKind(pkg, a.Output)
	if err != nil {
		return err
	}
	want, err := ir.Coerce(kind, a.Value)
	if err != nil {
		return fmt.Errorf("output_at %s: %w", a.Output, err)
	}

	got, _ := result.OutputAt(a.Output, a.Tick)
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     AssertOutputAt,
			Output:   a.Output,
			Expected: fmt.Sprintf("%s at tick %d", ir.FormatValue(want), a.Tick),
			Actual:   formatOrMissing(got),
			Values:   result.Outputs[a.Output],
		}
	}
	return nil
}

// assertCountTrue checks how many ticks a bool output was true.
func assertCountTrue(result *Result, pkg *circuit.Package, a Assertion) error {
	kind, err := outputKind(pkg, a.Output)
	if err != nil {
		return err
	}
	if kind != ir.KindBool {
		return fmt.Errorf("count_true %s: output is %s, not bool", a.Output, kind)
	}

	count := 0
	for _, v := range result.Outputs[a.Output] {
		if v == ir.Bool(true) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertCountTrue,
			Output:   a.Output,
			Expected: fmt.Sprintf("true on %d ticks", a.Count),
			Actual:   fmt.Sprintf("true on %d ticks", count),
			Values:   result.Outputs[a.Output],
		}
	}
	return nil
}

// assertStableAfter checks that an output keeps one value from a tick on.
// A feedback loop that has settled passes; an oscillating one fails.
func assertStableAfter(result *Result, pkg *circuit.Package, a Assertion) error {
	kind, err := outputKind(pkg, a.Output)
	if err != nil {
		return err
	}

	first, ok := result.OutputAt(a.Output, a.Tick)
	if !ok {
		return fmt.Errorf("stable_after %s: no value at tick %d", a.Output, a.Tick)
	}
	if a.Value != nil {
		want, err := ir.Coerce(kind, a.Value)
		if err != nil {
			return fmt.Errorf("stable_after %s: %w", a.Output, err)
		}
		if !ir.Equal(want, first) {
			return &AssertionError{
				Type:     AssertStableAfter,
				Output:   a.Output,
				Expected: fmt.Sprintf("%s from tick %d", ir.FormatValue(want), a.Tick),
				Actual:   fmt.Sprintf("%s at tick %d", ir.FormatValue(first), a.Tick),
				Values:   result.Outputs[a.Output],
			}
		}
	}

	values := result.Outputs[a.Output]
	for tick := a.Tick + 1; tick <= int64(len(values)); tick++ {
		if v := values[tick-1]; !ir.Equal(first, v) {
			return &AssertionError{
				Type:     AssertStableAfter,
				Output:   a.Output,
				Expected: fmt.Sprintf("%s from tick %d", ir.FormatValue(first), a.Tick),
				Actual:   fmt.Sprintf("changed to %s at tick %d", ir.FormatValue(v), tick),
				Values:   values,
			}
		}
	}
	return nil
}

// assertSampleCount counts recorded samples of this run that match the
// where filter. The filter goes through the query compiler, so keys must
// be sample columns and values are bound parameters.
func assertSampleCount(ctx context.Context, st *store.Store, runID string, a Assertion) error {
	filter, err := buildSampleFilter(runID, a.Where)
	if err != nil {
		return err
	}

	samples, err := st.QuerySamples(ctx, filter)
	if err != nil {
		return &AssertionError{
			Type:     AssertSampleCount,
			Expected: fmt.Sprintf("query samples where %s", formatWhereClause(a.Where)),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if len(samples) != a.Count {
		return &AssertionError{
			Type:     AssertSampleCount,
			Expected: fmt.Sprintf("%d samples where %s", a.Count, formatWhereClause(a.Where)),
			Actual:   fmt.Sprintf("%d samples", len(samples)),
		}
	}
	return nil
}

// buildSampleFilter converts a where map into a QueryIR conjunction scoped
// to one run. Keys are sorted for determinism. The value column holds
// tagged JSON, so its literal is converted to an ir.Value first.
func buildSampleFilter(runID string, where map[string]any) (queryir.Predicate, error) {
	and := queryir.And{}.Append(queryir.Equals{Field: "run_id", Value: runID})

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		val := where[key]
		if key == "value" {
			v, err := ir.Infer(val)
			if err != nil {
				return nil, fmt.Errorf("where.value: %w", err)
			}
			val = v
		}
		and = and.Append(queryir.Equals{Field: key, Value: val})
	}
	return and, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store   *store.Store
	Ctx     context.Context
	RunID   string
	Package *circuit.Package
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the package for output kinds and database
// access for sample_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch {
		case actx == nil || actx.Package == nil:
			err = fmt.Errorf("assertion[%d]: %s requires a package context", i, assertion.Type)
		case assertion.Type == AssertOutputAt:
			err = assertOutputAt(result, actx.Package, assertion)
		case assertion.Type == AssertCountTrue:
			err = assertCountTrue(result, actx.Package, assertion)
		case assertion.Type == AssertStableAfter:
			err = assertStableAfter(result, actx.Package, assertion)
		case assertion.Type == AssertSampleCount:
			if actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: sample_count requires database context", i)
			} else {
				err = assertSampleCount(actx.Ctx, actx.Store, actx.RunID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
