package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/ir"
)

func TestSealedInterfaces(t *testing.T) {
	var _ Query = Select{}
	var _ Query = &Select{}
	var _ Predicate = Equals{}
	var _ Predicate = Between{}
	var _ Predicate = And{}
}

func TestAnd_Append(t *testing.T) {
	var a And
	a = a.Append(Equals{Field: "run_id", Value: "r1"})
	a = a.Append(And{Predicates: []Predicate{
		Equals{Field: "direction", Value: "out"},
		Between{Field: "tick", Low: 1, High: 3},
	}})

	require.Len(t, a.Predicates, 3)
	assert.Equal(t, Between{Field: "tick", Low: 1, High: 3}, a.Predicates[2])
}

func TestTables_OrderKeysNameCatalogColumns(t *testing.T) {
	for name, table := range Tables {
		assert.NotEmpty(t, table.OrderBy, name)
		for _, f := range table.IntFields {
			assert.Contains(t, table.Columns, f, name)
		}
	}
}

func TestValidate_Valid(t *testing.T) {
	q := Select{
		From: "samples",
		Filter: And{Predicates: []Predicate{
			Equals{Field: "run_id", Value: "r1"},
			&Equals{Field: "value", Value: ir.Bool(true)},
			Between{Field: "tick", Low: 2, High: 2},
		}},
		Bindings: map[string]string{"tick": "tick", "value": "v"},
	}

	res := Validate(q)
	assert.True(t, res.Valid, res.Errors)
	assert.NoError(t, res.Err())
	assert.True(t, Validate(&Select{From: "runs"}).Valid)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"nil query", nil, "nil query"},
		{"unknown table", Select{From: "invocations"}, `unknown table "invocations"`},
		{"unknown column", Select{From: "runs", Filter: Equals{Field: "flow_token", Value: "x"}}, `no column "flow_token"`},
		{"unknown binding", Select{From: "runs", Bindings: map[string]string{"nope": "nope"}}, `no column "nope"`},
		{"bad alias", Select{From: "runs", Bindings: map[string]string{"id": "id; DROP"}}, "invalid result name"},
		{"null literal", Select{From: "runs", Filter: Equals{Field: "id"}}, "compared to NULL"},
		{"float literal", Select{From: "runs", Filter: Equals{Field: "ticks", Value: 1.5}}, "unsupported literal type float64"},
		{"between on text", Select{From: "samples", Filter: Between{Field: "label", Low: 1, High: 2}}, "not an integer column"},
		{"empty range", Select{From: "samples", Filter: Between{Field: "tick", Low: 5, High: 4}}, "empty range 5..4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.query)
			assert.False(t, res.Valid)
			require.NotEmpty(t, res.Errors)
			assert.Contains(t, res.Errors[0], tt.want)
			assert.ErrorContains(t, res.Err(), tt.want)
		})
	}
}
