package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
)

// Factory constructs a fresh, unattached element. Elements that build
// other elements while being constructed (package definitions) must do so
// through c so the registry can follow the expansion.
type Factory func(c *Creation) (element.Element, error)

// Descriptor is the palette entry for an element type.
type Descriptor struct {
	Type        string `json:"type"`
	Hash        uint64 `json:"hash"`
	Name        string `json:"name,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

// Category returns the part of the type name before the first '/'.
func (d Descriptor) Category() string {
	if i := strings.IndexByte(d.Type, '/'); i >= 0 {
		return d.Type[:i]
	}
	return ""
}

// Layout is the default socket layout of an element type.
type Layout struct {
	Type    string         `json:"type"`
	Limits  element.Limits `json:"limits"`
	Inputs  []ir.SocketDoc `json:"inputs"`
	Outputs []ir.SocketDoc `json:"outputs"`
}

type entry struct {
	desc    Descriptor
	factory Factory
}

// Registry maps element type hashes to factories. It is the only way
// elements are instantiated. A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[uint64]entry
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[uint64]entry),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the registry's logger. Packages built on the registry
// log through it unless given their own.
func (r *Registry) Logger() *slog.Logger { return r.logger }

// Register adds a factory for desc.Type. Registering a type name twice,
// or a name whose hash collides with another registered name, is
// rejected and the existing registration stays.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	if desc.Type == "" {
		return element.Errorf(element.ErrCodeBadConfig, "register: empty type name")
	}
	if factory == nil {
		return element.Errorf(element.ErrCodeBadConfig, "register %q: nil factory", desc.Type)
	}
	desc.Hash = ir.TypeHash(desc.Type)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[desc.Hash]; ok {
		if existing.desc.Type == desc.Type {
			return &element.ConfigError{Code: element.ErrCodeDuplicateType, Message: "type already registered", Type: desc.Type}
		}
		return &element.ConfigError{
			Code:    element.ErrCodeHashCollision,
			Message: fmt.Sprintf("hash %016x already used by %q", desc.Hash, existing.desc.Type),
			Type:    desc.Type,
		}
	}
	r.entries[desc.Hash] = entry{desc: desc, factory: factory}
	r.logger.Debug("registered element type", "type", desc.Type, "hash", fmt.Sprintf("%016x", desc.Hash))
	return nil
}

// MustRegister is Register for startup code where a failure is a bug.
func (r *Registry) MustRegister(desc Descriptor, factory Factory) {
	if err := r.Register(desc, factory); err != nil {
		panic(err)
	}
}

// Create instantiates a new element of typeName.
func (r *Registry) Create(typeName string) (element.Element, error) {
	return (&Creation{reg: r}).Create(typeName)
}

// Has reports whether typeName is registered.
func (r *Registry) Has(typeName string) bool {
	_, ok := r.lookup(typeName)
	return ok
}

// Types lists all registered types sorted by name.
func (r *Registry) Types() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.desc)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Descriptor) int { return strings.Compare(a.Type, b.Type) })
	return out
}

// Describe returns the descriptor of typeName.
func (r *Registry) Describe(typeName string) (Descriptor, error) {
	e, ok := r.lookup(typeName)
	if !ok {
		return Descriptor{}, &element.ConfigError{Code: element.ErrCodeUnknownType, Message: "no factory registered", Type: typeName}
	}
	return e.desc, nil
}

// Layout instantiates a prototype of typeName and reports its default
// socket layout.
func (r *Registry) Layout(typeName string) (Layout, error) {
	el, err := r.Create(typeName)
	if err != nil {
		return Layout{}, err
	}
	layout := Layout{
		Type:    typeName,
		Limits:  el.Limits(),
		Inputs:  make([]ir.SocketDoc, 0, len(el.Inputs())),
		Outputs: make([]ir.SocketDoc, 0, len(el.Outputs())),
	}
	for _, in := range el.Inputs() {
		layout.Inputs = append(layout.Inputs, ir.SocketDoc{Label: in.Label(), Kind: in.Kind(), Default: in.Default()})
	}
	for _, out := range el.Outputs() {
		layout.Outputs = append(layout.Outputs, ir.SocketDoc{Label: out.Label(), Kind: out.Kind()})
	}
	return layout, nil
}

func (r *Registry) lookup(typeName string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[ir.TypeHash(typeName)]
	if !ok || e.desc.Type != typeName {
		return entry{}, false
	}
	return e, true
}

// Creation tracks the chain of types being expanded while one top-level
// element is constructed. A type reappearing in its own chain would
// expand forever and is rejected.
type Creation struct {
	reg   *Registry
	chain []string
}

// Registry returns the registry the creation runs against.
func (c *Creation) Registry() *Registry { return c.reg }

// Chain returns the types currently being expanded, outermost first.
func (c *Creation) Chain() []string { return slices.Clone(c.chain) }

// Create instantiates typeName as part of the current expansion.
func (c *Creation) Create(typeName string) (element.Element, error) {
	if slices.Contains(c.chain, typeName) {
		return nil, &element.ConfigError{
			Code:    element.ErrCodeSelfNesting,
			Message: fmt.Sprintf("recursive composition %s", strings.Join(append(c.Chain(), typeName), " -> ")),
			Type:    typeName,
		}
	}

	e, ok := c.reg.lookup(typeName)
	if !ok {
		c.reg.logger.Warn("unknown element type requested", "type", typeName)
		return nil, &element.ConfigError{Code: element.ErrCodeUnknownType, Message: "no factory registered", Type: typeName}
	}

	nested := &Creation{reg: c.reg, chain: append(c.Chain(), typeName)}
	el, err := e.factory(nested)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", typeName, err)
	}
	if el.Type() != typeName {
		panic(fmt.Sprintf("registry: factory for %q built an element of type %q", typeName, el.Type()))
	}
	return el, nil
}
