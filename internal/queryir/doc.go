// Package queryir provides a small abstract query representation for
// reading recorded runs back out of the store.
//
// The trace command, scenario assertions and the store's own sample
// queries build a Query here and hand it to a backend compiler
// (internal/querysql) instead of writing SQL by hand:
//
//	[trace flags / scenario assertions] → [Query IR] → [SQL Backend]
//
// The fragment is deliberately narrow:
//   - Select(from, filter, bindings) over one known table
//   - Predicates: Equals, Between, And
//   - Explicit column bindings (empty bindings select every column)
//
// Table and column names are checked against a fixed catalog (Tables), so
// identifiers reaching the SQL backend are never user-controlled text.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, which gives backends an
// exhaustive type switch:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Between:
//	case And:
//	}
//
// Literal values are Go scalars (string, int64, bool) or ir.Value. An
// ir.Value is compared in its canonical JSON form, which is how the store
// persists socket values.
package queryir
