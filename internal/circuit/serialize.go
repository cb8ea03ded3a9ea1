package circuit

import (
	"fmt"

	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
)

// Enumerate lists the package in stable order: external sockets, elements
// in insertion order with their type, configuration, metadata and socket
// layout, and links in creation order. Nested packages carry their body.
func (p *Package) Enumerate() (ir.PackageDoc, error) {
	doc := ir.PackageDoc{
		Type:        p.Type(),
		Meta:        *p.Meta(),
		InputsMeta:  *p.inputs.Meta(),
		OutputsMeta: *p.outputs.Meta(),
		Inputs:      inputDocs(p.Inputs()),
		Outputs:     outputDocs(p.Outputs()),
		Elements:    make([]ir.ElementDoc, 0, len(p.entries)),
		Links:       p.Links(),
	}

	var highest ir.ElementID
	for _, e := range p.entries {
		highest = max(highest, e.ID)
		ed := ir.ElementDoc{
			ID:      e.ID,
			Type:    e.Element.Type(),
			Meta:    *e.Element.Meta(),
			Inputs:  inputDocs(e.Element.Inputs()),
			Outputs: outputDocs(e.Element.Outputs()),
		}
		if c, ok := e.Element.(element.Configurable); ok {
			ed.Config = c.Config().Clone()
		}
		if sub, ok := e.Element.(*Package); ok {
			body, err := sub.Enumerate()
			if err != nil {
				return ir.PackageDoc{}, fmt.Errorf("element %d: %w", e.ID, err)
			}
			ed.Body = &body
		}
		doc.Elements = append(doc.Elements, ed)
	}
	if p.nextID > highest+1 {
		doc.NextID = p.nextID
	}
	return doc, nil
}

func inputDocs(ins []*element.Input) []ir.SocketDoc {
	out := make([]ir.SocketDoc, 0, len(ins))
	for _, in := range ins {
		out = append(out, ir.SocketDoc{Label: in.Label(), Kind: in.Kind(), Default: in.Default()})
	}
	return out
}

func outputDocs(outs []*element.Output) []ir.SocketDoc {
	out := make([]ir.SocketDoc, 0, len(outs))
	for _, o := range outs {
		out = append(out, ir.SocketDoc{Label: o.Label(), Kind: o.Kind()})
	}
	return out
}

// Reconstruct rebuilds a package from its enumeration with repeated Add
// and Connect calls. Element IDs are preserved.
func Reconstruct(reg *registry.Registry, doc ir.PackageDoc, opts ...Option) (*Package, error) {
	typeName := doc.Type
	if typeName == "" {
		typeName = PackageType
	}
	p := New(reg, append(opts, WithType(typeName))...)
	if err := p.load(reg, doc); err != nil {
		return nil, fmt.Errorf("reconstruct %s: %w", typeName, err)
	}
	return p, nil
}

// load fills an empty package from doc.
func (p *Package) load(c creator, doc ir.PackageDoc) error {
	*p.Meta() = doc.Meta
	*p.inputs.Meta() = doc.InputsMeta
	*p.outputs.Meta() = doc.OutputsMeta

	for _, s := range doc.Inputs {
		in, err := p.AddInput(s.Kind, s.Label)
		if err != nil {
			return fmt.Errorf("input %q: %w", s.Label, err)
		}
		if s.Default != nil {
			if err := in.SetDefault(s.Default); err != nil {
				return fmt.Errorf("input %q: %w", s.Label, err)
			}
		}
	}
	for _, s := range doc.Outputs {
		if _, err := p.AddOutput(s.Kind, s.Label); err != nil {
			return fmt.Errorf("output %q: %w", s.Label, err)
		}
	}

	for _, ed := range doc.Elements {
		if ed.ID < 1 {
			return element.Errorf(element.ErrCodeNoSuchElement, "element %q has invalid id %d", ed.Type, ed.ID)
		}
		_, el, err := p.add(c, ed.Type, ed.ID)
		if err != nil {
			return fmt.Errorf("element %d: %w", ed.ID, err)
		}
		if err := p.apply(c, el, ed); err != nil {
			return fmt.Errorf("element %d (%s): %w", ed.ID, ed.Type, err)
		}
	}

	for _, l := range doc.Links {
		if err := p.Connect(l.From, l.FromSocket, l.To, l.ToSocket); err != nil {
			return err
		}
	}
	p.nextID = max(p.nextID, doc.NextID)
	return nil
}

// apply restores the saved state of a freshly added element: nested body,
// configuration, socket layout and metadata. Empty socket lists and empty
// metadata keep what the factory built, so hand-written definitions may
// omit them.
func (p *Package) apply(c creator, el element.Element, ed ir.ElementDoc) error {
	if ed.Body != nil {
		sub, ok := el.(*Package)
		if !ok {
			return element.Errorf(element.ErrCodeBadConfig, "body given for non-package element")
		}
		sub.reset()
		if err := sub.load(c, *ed.Body); err != nil {
			return err
		}
	}

	if len(ed.Config) > 0 {
		cfg, ok := el.(element.Configurable)
		if !ok {
			return element.Errorf(element.ErrCodeBadConfig, "configuration given for element without configuration")
		}
		if err := cfg.Configure(ed.Config); err != nil {
			return err
		}
	}

	for i, s := range ed.Inputs {
		var in *element.Input
		if i < len(el.Inputs()) {
			in = el.Inputs()[i]
			if in.Kind() != s.Kind {
				return element.Errorf(element.ErrCodeKindMismatch, "input %d is %s, saved as %s", i, in.Kind(), s.Kind)
			}
			in.SetLabel(s.Label)
		} else {
			added, err := el.AddInput(s.Kind, s.Label)
			if err != nil {
				return err
			}
			in = added
		}
		if s.Default != nil {
			if err := in.SetDefault(s.Default); err != nil {
				return err
			}
		}
	}
	if len(ed.Inputs) > 0 && len(el.Inputs()) != len(ed.Inputs) {
		return element.Errorf(element.ErrCodeCardinality, "has %d inputs, saved with %d", len(el.Inputs()), len(ed.Inputs))
	}

	for i, s := range ed.Outputs {
		if i < len(el.Outputs()) {
			out := el.Outputs()[i]
			if out.Kind() != s.Kind {
				return element.Errorf(element.ErrCodeKindMismatch, "output %d is %s, saved as %s", i, out.Kind(), s.Kind)
			}
			out.SetLabel(s.Label)
			continue
		}
		if _, err := el.AddOutput(s.Kind, s.Label); err != nil {
			return err
		}
	}
	if len(ed.Outputs) > 0 && len(el.Outputs()) != len(ed.Outputs) {
		return element.Errorf(element.ErrCodeCardinality, "has %d outputs, saved with %d", len(el.Outputs()), len(ed.Outputs))
	}

	if ed.Meta != (ir.Metadata{}) {
		*el.Meta() = ed.Meta
	}
	return nil
}
