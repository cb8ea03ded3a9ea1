package queryir

// Query represents an abstract query in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select represents a basic table access query with filtering.
//
// Semantics:
//
//	SELECT <bindings> FROM <from> WHERE <filter> ORDER BY <stable key>
//
// Example:
//
//	Select{
//	  From: "samples",
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "run_id", Value: runID},
//	    Equals{Field: "direction", Value: "out"},
//	    Between{Field: "tick", Low: 10, High: 20},
//	  }},
//	  Bindings: map[string]string{"tick": "tick", "value": "value"},
//	}
//
// Every backend must order results by the table's stable key, so equal
// queries return rows in equal order.
type Select struct {
	From     string            // Table name, one of Tables
	Filter   Predicate         // WHERE conditions (nil = no filter)
	Bindings map[string]string // column → result name (empty = all columns)
}

func (Select) queryNode() {}

// Equals represents a column-equals-literal predicate.
//
//	<field> = <value>
type Equals struct {
	Field string // Column name
	Value any    // string, int64, int, bool or ir.Value
}

func (Equals) predicateNode() {}

// Between represents an inclusive integer range predicate.
//
//	<field> BETWEEN <low> AND <high>
type Between struct {
	Field string
	Low   int64
	High  int64
}

func (Between) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// Empty Predicates means "always true".
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Table describes one queryable table: its columns and the stable
// ORDER BY key every query over it uses.
type Table struct {
	Columns   []string
	OrderBy   string
	IntFields []string // columns that hold integers (valid for Between)
}

// Tables is the catalog of queryable tables. It mirrors the store schema.
var Tables = map[string]Table{
	"packages": {
		Columns:   []string{"id", "type", "name", "doc", "seq"},
		OrderBy:   "seq ASC, id ASC COLLATE BINARY",
		IntFields: []string{"seq"},
	},
	"runs": {
		Columns:   []string{"id", "package_id", "seq", "ticks", "trace_hash", "engine_version", "ir_version"},
		OrderBy:   "seq ASC, id ASC COLLATE BINARY",
		IntFields: []string{"seq", "ticks"},
	},
	"samples": {
		Columns:   []string{"run_id", "tick", "direction", "socket", "label", "kind", "value"},
		OrderBy:   "run_id ASC COLLATE BINARY, tick ASC, direction ASC COLLATE BINARY, socket ASC",
		IntFields: []string{"tick", "socket"},
	},
}

// Append adds p to a conjunction, flattening nested Ands.
func (a And) Append(p Predicate) And {
	if nested, ok := p.(And); ok {
		return And{Predicates: append(a.Predicates, nested.Predicates...)}
	}
	return And{Predicates: append(a.Predicates, p)}
}
