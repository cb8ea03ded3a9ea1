package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/ir"
)

func TestCompileHCL_Circuits(t *testing.T) {
	src := `
circuit "demo/scale" {
  name = "Scale"
  icon = "scale.png"

  input "x" {
    kind = "float"
  }
  input "gain" {
    kind    = "float"
    default = 2
  }
  output "y" {
    kind = "float"
  }

  element "mul" {
    type         = "logic/multiply"
    display_name = "Product"
    position     = [10, 20.5]
  }

  link {
    from = "inputs"
    to   = "mul"
  }
  link {
    from        = "inputs"
    from_socket = 1
    to          = "mul"
    to_socket   = 1
  }
  link {
    from = "mul"
    to   = "outputs"
  }
}

circuit "demo/one" {
  element "k" {
    type   = "values/const_int"
    config = { value = 7 }
  }
  element "f" {
    type   = "values/const_float"
    config = { value = 0.25 }
  }
}
`
	docs, err := CompileHCL([]byte(src), "test.hcl")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	want := ir.PackageDoc{
		Type: "demo/scale",
		Meta: ir.Metadata{Name: "Scale", Icon: "scale.png"},
		Inputs: []ir.SocketDoc{
			{Label: "x", Kind: ir.KindFloat},
			{Label: "gain", Kind: ir.KindFloat, Default: ir.Float(2)},
		},
		Outputs: []ir.SocketDoc{{Label: "y", Kind: ir.KindFloat}},
		Elements: []ir.ElementDoc{{
			ID:   1,
			Type: "logic/multiply",
			Meta: ir.Metadata{Name: "Product", Position: ir.Position{X: 10, Y: 20.5}},
		}},
		Links: []ir.LinkDoc{
			{From: circuit.InputsID, FromSocket: 0, To: 1, ToSocket: 0},
			{From: circuit.InputsID, FromSocket: 1, To: 1, ToSocket: 1},
			{From: 1, FromSocket: 0, To: circuit.OutputsID, ToSocket: 0},
		},
	}
	if diff := cmp.Diff(want, docs[0]); diff != "" {
		t.Errorf("CompileHCL mismatch (-want +got):\n%s", diff)
	}

	one := docs[1]
	assert.Equal(t, "demo/one", one.Type)
	require.Len(t, one.Elements, 2)
	assert.Equal(t, "k", one.Elements[0].Meta.Name)
	assert.Equal(t, ir.Config{"value": ir.Int(7)}, one.Elements[0].Config)
	assert.Equal(t, ir.Config{"value": ir.Float(0.25)}, one.Elements[1].Config)
	assert.Empty(t, one.Links)
}

func TestCompileHCL_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		line  int
	}{
		{
			name:  "syntax error",
			src:   "circuit \"demo/x\" {\n  name = \n}\n",
			field: "hcl",
		},
		{
			name:  "unknown attribute",
			src:   "circuit \"demo/x\" {\n  colour = \"red\"\n}\n",
			field: "hcl",
			line:  2,
		},
		{
			name:  "bad type name",
			src:   "circuit \"x\" {\n}\n",
			field: "type",
			line:  1,
		},
		{
			name:  "bad kind",
			src:   "circuit \"demo/x\" {\n  input \"in\" {\n    kind = \"text\"\n  }\n}\n",
			field: "input[0]",
			line:  2,
		},
		{
			name:  "duplicate element",
			src:   "circuit \"demo/x\" {\n  element \"a\" {\n    type = \"logic/not\"\n  }\n  element \"a\" {\n    type = \"logic/not\"\n  }\n}\n",
			field: "element.a",
			line:  5,
		},
		{
			name:  "bad position",
			src:   "circuit \"demo/x\" {\n  element \"a\" {\n    type = \"logic/not\"\n    position = [1]\n  }\n}\n",
			field: "element.a.position",
			line:  2,
		},
		{
			name:  "non scalar config",
			src:   "circuit \"demo/x\" {\n  element \"a\" {\n    type = \"values/const_int\"\n    config = { value = \"seven\" }\n  }\n}\n",
			field: "element.a.config",
			line:  2,
		},
		{
			name:  "unknown link target",
			src:   "circuit \"demo/x\" {\n  link {\n    from = \"inputs\"\n    to = \"nowhere\"\n  }\n}\n",
			field: "link[0].to",
			line:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileHCL([]byte(tt.src), "bad.hcl")
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, "bad.hcl", ce.File)
			if tt.line > 0 {
				assert.Equal(t, tt.line, ce.Line)
			}
		})
	}
}
