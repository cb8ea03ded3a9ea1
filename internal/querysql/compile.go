// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/queryir"
)

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// Every query includes the table's stable ORDER BY key, so results are
// deterministic. All values are parameterized, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple. The query is validated against the
// table catalog first, so only catalog identifiers reach the SQL text.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select to SQL.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	table := queryir.Tables[q.From]
	selectClause := c.compileBindings(q.Bindings, table)

	var whereClause string
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		selectClause,
		q.From,
		whereClause,
		table.OrderBy)

	return sql, params, nil
}

// compileBindings converts bindings to a SELECT column list.
// Example: {"tick": "t"} → "tick AS t". Columns are sorted for
// deterministic output; empty bindings list every catalog column in
// schema order.
func (c *SQLCompiler) compileBindings(bindings map[string]string, table queryir.Table) string {
	if len(bindings) == 0 {
		return strings.Join(table.Columns, ", ")
	}

	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, column := range keys {
		alias := bindings[column]
		if column == alias {
			parts = append(parts, column)
		} else {
			parts = append(parts, fmt.Sprintf("%s AS %s", column, alias))
		}
	}
	return strings.Join(parts, ", ")
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.Between:
		return fmt.Sprintf("%s BETWEEN ? AND ?", pred.Field), []any{pred.Low, pred.High}, nil
	case *queryir.Between:
		return fmt.Sprintf("%s BETWEEN ? AND ?", pred.Field), []any{pred.Low, pred.High}, nil
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "field = ?".
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := toParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return fmt.Sprintf("%s = ?", eq.Field), []any{param}, nil
}

// compileAnd compiles an And predicate to a conjunction.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested && len(params) > 0 {
			sql = "(" + sql + ")"
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return strings.Join(sqlParts, " AND "), allParams, nil
}

// toParam converts a literal to a SQL parameter. Socket values are
// stored as canonical JSON text, so an ir.Value compares in that form.
func toParam(v any) (any, error) {
	switch val := v.(type) {
	case ir.Value:
		data, err := ir.MarshalCanonical(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	case string:
		return val, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case bool:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported literal type for SQL parameter: %T", v)
	}
}
