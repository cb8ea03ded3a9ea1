package compiler

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/spaghetti/internal/ir"
)

// hclFile decodes every circuit block of one file.
type hclFile struct {
	Circuits []*hclCircuit `hcl:"circuit,block"`
	Remain   hcl.Body      `hcl:",remain"`
}

type hclCircuit struct {
	Type     string        `hcl:"type,label"`
	Name     *string       `hcl:"name,optional"`
	Icon     *string       `hcl:"icon,optional"`
	Inputs   []*hclSocket  `hcl:"input,block"`
	Outputs  []*hclSocket  `hcl:"output,block"`
	Elements []*hclElement `hcl:"element,block"`
	Links    []*hclLink    `hcl:"link,block"`
	DefRange hcl.Range     `hcl:",def_range"`
}

type hclSocket struct {
	Label    string    `hcl:"label,label"`
	Kind     string    `hcl:"kind"`
	Default  cty.Value `hcl:"default,optional"`
	DefRange hcl.Range `hcl:",def_range"`
}

type hclElement struct {
	Local    string    `hcl:"name,label"`
	Type     string    `hcl:"type"`
	Name     *string   `hcl:"display_name,optional"`
	Icon     *string   `hcl:"icon,optional"`
	Position []float64 `hcl:"position,optional"`
	Config   cty.Value `hcl:"config,optional"`
	DefRange hcl.Range `hcl:",def_range"`
}

type hclLink struct {
	From       string    `hcl:"from"`
	FromSocket int       `hcl:"from_socket,optional"`
	To         string    `hcl:"to"`
	ToSocket   int       `hcl:"to_socket,optional"`
	DefRange   hcl.Range `hcl:",def_range"`
}

// CompileHCL parses one HCL file holding any number of circuit blocks:
//
//	circuit "demo/edge" {
//	  name = "Edge"
//	  input "in" { kind = "bool" }
//	  output "pulse" { kind = "bool" }
//	  element "edge" { type = "logic/trigger_falling" }
//	  link {
//	    from = "inputs"
//	    to   = "edge"
//	  }
//	  link {
//	    from = "edge"
//	    to   = "outputs"
//	  }
//	}
//
// Element blocks get IDs in declaration order, as in CUE definitions.
func CompileHCL(src []byte, filename string) ([]ir.PackageDoc, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, formatDiagnostics(diags)
	}

	var root hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, formatDiagnostics(diags)
	}

	docs := make([]ir.PackageDoc, 0, len(root.Circuits))
	for _, c := range root.Circuits {
		doc, err := compileHCLCircuit(c)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func compileHCLCircuit(c *hclCircuit) (*ir.PackageDoc, error) {
	if !ValidTypeName(c.Type) {
		return nil, hclError("type", fmt.Sprintf("type name %q must have the form category/name", c.Type), c.DefRange)
	}

	doc := &ir.PackageDoc{
		Type:     c.Type,
		Meta:     ir.Metadata{Name: deref(c.Name), Icon: deref(c.Icon)},
		Inputs:   make([]ir.SocketDoc, 0, len(c.Inputs)),
		Outputs:  make([]ir.SocketDoc, 0, len(c.Outputs)),
		Elements: make([]ir.ElementDoc, 0, len(c.Elements)),
		Links:    make([]ir.LinkDoc, 0, len(c.Links)),
	}

	for i, s := range c.Inputs {
		sd, err := hclSocketDoc(s)
		if err != nil {
			return nil, hclError(fmt.Sprintf("input[%d]", i), err.Error(), s.DefRange)
		}
		doc.Inputs = append(doc.Inputs, sd)
	}
	for i, s := range c.Outputs {
		sd, err := hclSocketDoc(s)
		if err != nil {
			return nil, hclError(fmt.Sprintf("output[%d]", i), err.Error(), s.DefRange)
		}
		doc.Outputs = append(doc.Outputs, sd)
	}

	ids := newNames()
	for _, e := range c.Elements {
		field := "element." + e.Local
		id, err := ids.declare(e.Local)
		if err != nil {
			return nil, hclError(field, err.Error(), e.DefRange)
		}

		ed := ir.ElementDoc{
			ID:   id,
			Type: e.Type,
			Meta: ir.Metadata{Name: deref(e.Name), Icon: deref(e.Icon)},
		}
		if ed.Meta.Name == "" {
			ed.Meta.Name = e.Local
		}
		switch len(e.Position) {
		case 0:
		case 2:
			ed.Meta.Position = ir.Position{X: e.Position[0], Y: e.Position[1]}
		default:
			return nil, hclError(field+".position", "position must be [x, y]", e.DefRange)
		}

		if !e.Config.IsNull() {
			cfg, err := ctyConfig(e.Config)
			if err != nil {
				return nil, hclError(field+".config", err.Error(), e.DefRange)
			}
			ed.Config = cfg
		}
		doc.Elements = append(doc.Elements, ed)
	}

	for i, l := range c.Links {
		field := fmt.Sprintf("link[%d]", i)
		from, ok := ids.lookup(l.From)
		if !ok {
			return nil, hclError(field+".from", fmt.Sprintf("unknown element %q", l.From), l.DefRange)
		}
		to, ok := ids.lookup(l.To)
		if !ok {
			return nil, hclError(field+".to", fmt.Sprintf("unknown element %q", l.To), l.DefRange)
		}
		doc.Links = append(doc.Links, ir.LinkDoc{From: from, FromSocket: l.FromSocket, To: to, ToSocket: l.ToSocket})
	}
	return doc, nil
}

func hclSocketDoc(s *hclSocket) (ir.SocketDoc, error) {
	var def any
	if !s.Default.IsNull() {
		native, err := ctyNative(s.Default)
		if err != nil {
			return ir.SocketDoc{}, err
		}
		def = native
	}
	return socketDoc(s.Label, s.Kind, def)
}

// ctyConfig converts an object of scalars to a Config.
func ctyConfig(v cty.Value) (ir.Config, error) {
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("config must be an object, got %s", v.Type().FriendlyName())
	}
	cfg := ir.Config{}
	for key, val := range v.AsValueMap() {
		native, err := ctyNative(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		iv, err := ir.Infer(native)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		cfg[key] = iv
	}
	return cfg, nil
}

// ctyNative converts a known scalar to bool, int64 or float64. Whole
// numbers become int64 so they keep their int kind in configuration.
func ctyNative(v cty.Value) (any, error) {
	if !v.IsKnown() || v.IsNull() {
		return nil, fmt.Errorf("value must be known and non-null")
	}
	switch v.Type() {
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return n, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", v.Type().FriendlyName())
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
