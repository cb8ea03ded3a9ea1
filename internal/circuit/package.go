package circuit

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
)

// Type names of the generic container and its boundary proxies.
const (
	PackageType = "logic/package"
	InputsType  = "logic/inputs"
	OutputsType = "logic/outputs"
)

// Reserved element IDs of the boundary proxies.
const (
	InputsID  ir.ElementID = -1
	OutputsID ir.ElementID = -2
)

const (
	packageIcon = "elements/logic/package.png"
	inputsIcon  = "elements/logic/inputs.png"
	outputsIcon = "elements/logic/outputs.png"
)

// creator is satisfied by *registry.Registry and *registry.Creation.
type creator interface {
	Create(typeName string) (element.Element, error)
}

// proxy is a boundary pseudo-element. The inputs proxy only has outputs,
// the outputs proxy only has inputs. Neither is visited during a tick.
type proxy struct {
	element.Base
}

func (*proxy) Calculate() bool { return true }

func newProxy(typeName, name, icon string) *proxy {
	p := &proxy{Base: element.NewBase(typeName, element.Limits{MaxInputs: element.Unbounded, MaxOutputs: element.Unbounded})}
	p.Meta().Name = name
	p.Meta().Icon = icon
	return p
}

// Entry pairs an element with its ID in the package.
type Entry struct {
	ID      ir.ElementID
	Element element.Element
}

// TickStats summarizes one pass over a package.
type TickStats struct {
	Calculated int `json:"calculated"`
	NotReady   int `json:"not_ready"`
}

// Package is an element whose body is a graph of elements and links.
// Its external inputs are mirrored by the outputs of the inputs proxy and
// its external outputs by the inputs of the outputs proxy, so a package
// can be placed inside another package like any other element.
//
// A Package is not safe for concurrent use; the engine serializes access.
type Package struct {
	element.Base

	reg    *registry.Registry
	logger *slog.Logger
	parent *Package

	inputs  *proxy
	outputs *proxy

	entries []Entry
	links   []ir.LinkDoc
	nextID  ir.ElementID
}

// Option configures a Package.
type Option func(*Package)

// WithType sets the package's element type. Defaults to PackageType.
func WithType(typeName string) Option {
	return func(p *Package) {
		meta := *p.Meta()
		p.Base = element.NewBase(typeName, packageLimits)
		*p.Meta() = meta
	}
}

// WithLogger sets the logger used for diagnostics. Defaults to the
// registry's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Package) {
		if logger != nil {
			p.logger = logger
		}
	}
}

var packageLimits = element.Limits{MaxInputs: element.Unbounded, MaxOutputs: element.Unbounded}

// New creates an empty package that instantiates elements through reg.
func New(reg *registry.Registry, opts ...Option) *Package {
	p := &Package{
		Base:   element.NewBase(PackageType, packageLimits),
		reg:    reg,
		logger: slog.Default(),
	}
	if reg != nil {
		p.logger = reg.Logger()
	}
	for _, opt := range opts {
		opt(p)
	}
	p.reset()
	return p
}

func (p *Package) reset() {
	for _, e := range p.entries {
		if sub, ok := e.Element.(*Package); ok {
			sub.parent = nil
		}
	}
	p.ResetSockets()
	p.inputs = newProxy(InputsType, "inputs", inputsIcon)
	p.outputs = newProxy(OutputsType, "outputs", outputsIcon)
	p.entries = []Entry{}
	p.links = []ir.LinkDoc{}
	p.nextID = 1
}

// Registry returns the registry the package creates elements with.
func (p *Package) Registry() *registry.Registry { return p.reg }

// Parent returns the enclosing package, or nil at top level.
func (p *Package) Parent() *Package { return p.parent }

// AddInput adds an external input and the matching inputs-proxy output.
func (p *Package) AddInput(kind ir.Kind, label string) (*element.Input, error) {
	in, err := p.Base.AddInput(kind, label)
	if err != nil {
		return nil, err
	}
	p.inputs.MustAddOutput(kind, in.Label())
	return in, nil
}

// AddOutput adds an external output and the matching outputs-proxy input.
func (p *Package) AddOutput(kind ir.Kind, label string) (*element.Output, error) {
	out, err := p.Base.AddOutput(kind, label)
	if err != nil {
		return nil, err
	}
	p.outputs.MustAddInput(kind, out.Label())
	return out, nil
}

// Add instantiates typeName through the registry and takes ownership of
// the new element.
func (p *Package) Add(typeName string) (ir.ElementID, element.Element, error) {
	return p.add(p.reg, typeName, 0)
}

func (p *Package) add(c creator, typeName string, id ir.ElementID) (ir.ElementID, element.Element, error) {
	ancestry := p.ancestry()
	if ancestry[typeName] {
		return 0, nil, &element.ConfigError{
			Code:    element.ErrCodeSelfNesting,
			Message: fmt.Sprintf("package %s cannot contain its own type", p.Type()),
			Type:    typeName,
		}
	}

	if id == 0 {
		id = p.nextID
	}
	if id < 1 {
		return 0, nil, element.Errorf(element.ErrCodeNoSuchElement, "invalid element id %d", id)
	}
	if _, ok := p.index(id); ok {
		return 0, nil, element.Errorf(element.ErrCodeBadConfig, "element id %d already in use", id)
	}

	el, err := c.Create(typeName)
	if err != nil {
		return 0, nil, err
	}

	if sub, ok := el.(*Package); ok {
		expansion := make(map[string]bool)
		sub.expansion(expansion)
		for t := range expansion {
			if ancestry[t] {
				return 0, nil, &element.ConfigError{
					Code:    element.ErrCodeSelfNesting,
					Message: fmt.Sprintf("%s expands to %s, an enclosing package type", typeName, t),
					Type:    typeName,
				}
			}
		}
		sub.parent = p
		sub.logger = p.logger
	}

	if id >= p.nextID {
		p.nextID = id + 1
	}
	p.entries = append(p.entries, Entry{ID: id, Element: el})
	p.logger.Debug("element added", "package", p.Type(), "id", id, "type", typeName)
	return id, el, nil
}

// ancestry returns the types of p and every enclosing package. Generic
// containers are left out: each instance is a distinct empty container.
func (p *Package) ancestry() map[string]bool {
	set := make(map[string]bool)
	for a := p; a != nil; a = a.parent {
		if a.Type() != PackageType {
			set[a.Type()] = true
		}
	}
	return set
}

// expansion collects the types of p and everything nested in it.
func (p *Package) expansion(into map[string]bool) {
	if p.Type() != PackageType {
		into[p.Type()] = true
	}
	for _, e := range p.entries {
		into[e.Element.Type()] = true
		if sub, ok := e.Element.(*Package); ok {
			sub.expansion(into)
		}
	}
}

// Remove tears down every link touching the element and drops it.
func (p *Package) Remove(id ir.ElementID) error {
	i, ok := p.index(id)
	if !ok {
		return element.Errorf(element.ErrCodeNoSuchElement, "no element %d", id)
	}

	kept := p.links[:0]
	for _, l := range p.links {
		if l.From == id || l.To == id {
			if in, err := p.input(l.To, l.ToSocket); err == nil {
				in.Disconnect()
			}
			continue
		}
		kept = append(kept, l)
	}
	p.links = kept

	el := p.entries[i].Element
	if sub, ok := el.(*Package); ok {
		sub.parent = nil
	}
	p.entries = slices.Delete(p.entries, i, i+1)
	p.logger.Debug("element removed", "package", p.Type(), "id", id, "type", el.Type())
	return nil
}

// Connect links output srcOut of src to input dstIn of dst. InputsID is
// a valid source and OutputsID a valid destination. On failure nothing
// changes.
func (p *Package) Connect(src ir.ElementID, srcOut int, dst ir.ElementID, dstIn int) error {
	link := ir.LinkDoc{From: src, FromSocket: srcOut, To: dst, ToSocket: dstIn}
	out, err := p.output(src, srcOut)
	if err != nil {
		return fmt.Errorf("connect %s: %w", link, err)
	}
	in, err := p.input(dst, dstIn)
	if err != nil {
		return fmt.Errorf("connect %s: %w", link, err)
	}
	if err := in.Connect(out); err != nil {
		return fmt.Errorf("connect %s: %w", link, err)
	}
	p.links = append(p.links, link)
	return nil
}

// Disconnect removes the link between the given sockets.
func (p *Package) Disconnect(src ir.ElementID, srcOut int, dst ir.ElementID, dstIn int) error {
	link := ir.LinkDoc{From: src, FromSocket: srcOut, To: dst, ToSocket: dstIn}
	i := slices.Index(p.links, link)
	if i < 0 {
		return element.Errorf(element.ErrCodeNoSuchLink, "no link %s", link)
	}
	in, err := p.input(dst, dstIn)
	if err != nil {
		return fmt.Errorf("disconnect %s: %w", link, err)
	}
	in.Disconnect()
	p.links = slices.Delete(p.links, i, i+1)
	return nil
}

// Element returns the element with the given ID, including the boundary
// proxies.
func (p *Package) Element(id ir.ElementID) (element.Element, bool) {
	switch id {
	case InputsID:
		return p.inputs, true
	case OutputsID:
		return p.outputs, true
	}
	i, ok := p.index(id)
	if !ok {
		return nil, false
	}
	return p.entries[i].Element, true
}

// Elements returns the contained elements in insertion order.
func (p *Package) Elements() []Entry {
	return slices.Clone(p.entries)
}

// Links returns the links in creation order.
func (p *Package) Links() []ir.LinkDoc {
	return slices.Clone(p.links)
}

// Len returns the number of contained elements, proxies excluded.
func (p *Package) Len() int { return len(p.entries) }

// Configure applies cfg to a configurable element.
func (p *Package) Configure(id ir.ElementID, cfg ir.Config) error {
	el, ok := p.Element(id)
	if !ok {
		return element.Errorf(element.ErrCodeNoSuchElement, "no element %d", id)
	}
	c, ok := el.(element.Configurable)
	if !ok {
		return &element.ConfigError{Code: element.ErrCodeBadConfig, Message: "element has no configuration", Type: el.Type()}
	}
	return c.Configure(cfg)
}

// SetInput sets the default value of external input i. A top-level
// package's inputs are unconnected, so this is how a host drives them.
func (p *Package) SetInput(i int, v ir.Value) error {
	ins := p.Inputs()
	if i < 0 || i >= len(ins) {
		return element.Errorf(element.ErrCodeNoSuchSocket, "package %s has no input %d", p.Type(), i)
	}
	return ins[i].SetDefault(v)
}

// Output returns the current value of external output i.
func (p *Package) Output(i int) (ir.Value, error) {
	outs := p.Outputs()
	if i < 0 || i >= len(outs) {
		return nil, element.Errorf(element.ErrCodeNoSuchSocket, "package %s has no output %d", p.Type(), i)
	}
	return outs[i].Value(), nil
}

// InputIndex returns the index of the external input with the label.
func (p *Package) InputIndex(label string) (int, bool) {
	for i, in := range p.Inputs() {
		if in.Label() == label {
			return i, true
		}
	}
	return 0, false
}

// OutputIndex returns the index of the external output with the label.
func (p *Package) OutputIndex(label string) (int, bool) {
	for i, out := range p.Outputs() {
		if out.Label() == label {
			return i, true
		}
	}
	return 0, false
}

// Tick runs one pass: copy the external inputs into the inputs proxy,
// calculate every element once in insertion order, then copy the outputs
// proxy into the external outputs. There is no inner fixed point; a
// feedback loop carries its values into the next tick.
//
// In a nested package an external input that is not driven leaves its
// proxy output floating, so inner elements that need every input linked
// stay not ready, as they would outside the package. A top-level package
// is driven through SetInput and never floats.
func (p *Package) Tick() TickStats {
	nested := p.parent != nil
	for i, in := range p.Inputs() {
		mirror := p.inputs.Outputs()[i]
		mirror.SetFloating(nested && !in.Driven())
		mirror.Write(in.Read())
	}

	var stats TickStats
	for _, e := range p.entries {
		if e.Element.Calculate() {
			stats.Calculated++
		} else {
			stats.NotReady++
		}
	}

	for i, out := range p.Outputs() {
		out.Write(p.outputs.Inputs()[i].Read())
	}
	return stats
}

// Calculate ticks the package body once when it is nested in another
// package. It reports not ready when the body has elements and none of
// them was ready.
func (p *Package) Calculate() bool {
	stats := p.Tick()
	return stats.Calculated > 0 || len(p.entries) == 0
}

func (p *Package) index(id ir.ElementID) (int, bool) {
	for i, e := range p.entries {
		if e.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (p *Package) output(id ir.ElementID, socket int) (*element.Output, error) {
	el, ok := p.Element(id)
	if !ok {
		return nil, element.Errorf(element.ErrCodeNoSuchElement, "no element %d", id)
	}
	outs := el.Outputs()
	if socket < 0 || socket >= len(outs) {
		return nil, element.Errorf(element.ErrCodeNoSuchSocket, "element %d (%s) has no output %d", id, el.Type(), socket)
	}
	return outs[socket], nil
}

func (p *Package) input(id ir.ElementID, socket int) (*element.Input, error) {
	el, ok := p.Element(id)
	if !ok {
		return nil, element.Errorf(element.ErrCodeNoSuchElement, "no element %d", id)
	}
	ins := el.Inputs()
	if socket < 0 || socket >= len(ins) {
		return nil, element.Errorf(element.ErrCodeNoSuchSocket, "element %d (%s) has no input %d", id, el.Type(), socket)
	}
	return ins[socket], nil
}
