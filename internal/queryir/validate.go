package queryir

import (
	"fmt"
	"slices"

	"github.com/roach88/spaghetti/internal/ir"
)

// ValidationResult contains the problems found in a query.
type ValidationResult struct {
	// Valid is true when the query only names catalog tables and columns
	// and uses supported literal types.
	Valid bool

	// Errors lists every problem found, in traversal order.
	Errors []string
}

// Err returns the first error, or nil.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", r.Errors[0])
}

// Validate checks a query against the table catalog.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		Valid:  len(v.errors) == 0,
		Errors: v.errors,
	}
}

// validator accumulates errors during traversal.
type validator struct {
	errors []string
	table  Table
	name   string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	table, ok := Tables[sel.From]
	if !ok {
		v.addError("unknown table %q", sel.From)
		return
	}
	v.table, v.name = table, sel.From

	for column, alias := range sel.Bindings {
		v.checkColumn(column)
		if alias == "" || !isIdent(alias) {
			v.addError("binding %q: invalid result name %q", column, alias)
		}
	}
	v.validatePredicate(sel.Filter)
}

func (v *validator) checkColumn(column string) bool {
	if !slices.Contains(v.table.Columns, column) {
		v.addError("table %s has no column %q", v.name, column)
		return false
	}
	return true
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case Between:
		v.validateBetween(pred)
	case *Between:
		v.validateBetween(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	v.checkColumn(eq.Field)
	switch eq.Value.(type) {
	case string, int, int64, bool, ir.Value:
	case nil:
		v.addError("column %q compared to NULL", eq.Field)
	default:
		v.addError("column %q: unsupported literal type %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateBetween(b Between) {
	if !v.checkColumn(b.Field) {
		return
	}
	if !slices.Contains(v.table.IntFields, b.Field) {
		v.addError("column %q is not an integer column", b.Field)
	}
	if b.Low > b.High {
		v.addError("column %q: empty range %d..%d", b.Field, b.Low, b.High)
	}
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}
