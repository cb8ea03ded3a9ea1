package element

import (
	"fmt"

	"github.com/roach88/spaghetti/internal/ir"
)

// Unbounded is the maximum for a socket list without an upper limit.
const Unbounded = -1

// Limits are the socket cardinality constraints declared by an element
// type at construction.
type Limits struct {
	MinInputs  int
	MaxInputs  int
	MinOutputs int
	MaxOutputs int
}

// Fixed returns limits for exactly in inputs and out outputs.
func Fixed(in, out int) Limits {
	return Limits{MinInputs: in, MaxInputs: in, MinOutputs: out, MaxOutputs: out}
}

// Element is the unit of computation. Concrete elements embed Base and
// implement Calculate.
type Element interface {
	// Type returns the stable type name, e.g. "logic/multiply".
	Type() string
	// Hash returns the precomputed ir.TypeHash of Type.
	Hash() uint64

	// Inputs and Outputs return the sockets in order. Callers must not
	// modify the returned slices.
	Inputs() []*Input
	Outputs() []*Output

	AddInput(kind ir.Kind, label string) (*Input, error)
	AddOutput(kind ir.Kind, label string) (*Output, error)
	Limits() Limits

	// AllInputsConnected reports whether every input aliases an upstream
	// output that is driven.
	AllInputsConnected() bool

	// Calculate performs one tick of work: read inputs, update private
	// state, write outputs. It returns false when the element is not
	// ready and has written nothing.
	Calculate() bool

	// Meta returns the editor metadata, stored but never interpreted.
	Meta() *ir.Metadata
}

// Configurable is implemented by elements with configuration beyond their
// socket layout.
type Configurable interface {
	Config() ir.Config
	Configure(cfg ir.Config) error
}

// SameType reports whether two elements are of the same type.
func SameType(a, b Element) bool {
	return a.Hash() == b.Hash() && a.Type() == b.Type()
}

// Base carries the identity, metadata and sockets shared by all elements.
type Base struct {
	typ     string
	hash    uint64
	limits  Limits
	meta    ir.Metadata
	inputs  []*Input
	outputs []*Output
}

// NewBase returns a Base for typeName with the given socket limits and
// no sockets.
func NewBase(typeName string, limits Limits) Base {
	return Base{
		typ:     typeName,
		hash:    ir.TypeHash(typeName),
		limits:  limits,
		inputs:  []*Input{},
		outputs: []*Output{},
	}
}

func (b *Base) Type() string       { return b.typ }
func (b *Base) Hash() uint64       { return b.hash }
func (b *Base) Limits() Limits     { return b.limits }
func (b *Base) Meta() *ir.Metadata { return &b.meta }
func (b *Base) Inputs() []*Input   { return b.inputs }
func (b *Base) Outputs() []*Output { return b.outputs }

// AddInput appends an input socket. An empty label becomes "#n".
// Exceeding MaxInputs fails and leaves the sockets unchanged.
func (b *Base) AddInput(kind ir.Kind, label string) (*Input, error) {
	if !kind.Valid() {
		return nil, Errorf(ErrCodeKindMismatch, "invalid input kind %d", uint8(kind))
	}
	if b.limits.MaxInputs != Unbounded && len(b.inputs) >= b.limits.MaxInputs {
		return nil, &ConfigError{
			Code:    ErrCodeCardinality,
			Message: fmt.Sprintf("at most %d inputs", b.limits.MaxInputs),
			Type:    b.typ,
		}
	}
	if label == "" {
		label = fmt.Sprintf("#%d", len(b.inputs)+1)
	}
	in := NewInput(kind, label)
	b.inputs = append(b.inputs, in)
	return in, nil
}

// AddOutput appends an output socket. An empty label becomes "#n".
// Exceeding MaxOutputs fails and leaves the sockets unchanged.
func (b *Base) AddOutput(kind ir.Kind, label string) (*Output, error) {
	if !kind.Valid() {
		return nil, Errorf(ErrCodeKindMismatch, "invalid output kind %d", uint8(kind))
	}
	if b.limits.MaxOutputs != Unbounded && len(b.outputs) >= b.limits.MaxOutputs {
		return nil, &ConfigError{
			Code:    ErrCodeCardinality,
			Message: fmt.Sprintf("at most %d outputs", b.limits.MaxOutputs),
			Type:    b.typ,
		}
	}
	if label == "" {
		label = fmt.Sprintf("#%d", len(b.outputs)+1)
	}
	out := NewOutput(kind, label)
	b.outputs = append(b.outputs, out)
	return out, nil
}

// MustAddInput is AddInput for constructors whose limits make failure
// impossible.
func (b *Base) MustAddInput(kind ir.Kind, label string) *Input {
	in, err := b.AddInput(kind, label)
	if err != nil {
		panic(err)
	}
	return in
}

// MustAddOutput is AddOutput for constructors whose limits make failure
// impossible.
func (b *Base) MustAddOutput(kind ir.Kind, label string) *Output {
	out, err := b.AddOutput(kind, label)
	if err != nil {
		panic(err)
	}
	return out
}

// AllInputsConnected reports whether every input is linked to a driven
// output.
func (b *Base) AllInputsConnected() bool {
	for _, in := range b.inputs {
		if !in.Driven() {
			return false
		}
	}
	return true
}

// Validate reports socket counts below the declared minimums.
func (b *Base) Validate() error {
	if len(b.inputs) < b.limits.MinInputs {
		return &ConfigError{
			Code:    ErrCodeCardinality,
			Message: fmt.Sprintf("has %d inputs, needs at least %d", len(b.inputs), b.limits.MinInputs),
			Type:    b.typ,
		}
	}
	if len(b.outputs) < b.limits.MinOutputs {
		return &ConfigError{
			Code:    ErrCodeCardinality,
			Message: fmt.Sprintf("has %d outputs, needs at least %d", len(b.outputs), b.limits.MinOutputs),
			Type:    b.typ,
		}
	}
	return nil
}

// ResetSockets drops every socket. It exists for rebuilding a freshly
// created element from a saved layout before anything links to it.
func (b *Base) ResetSockets() {
	b.inputs = []*Input{}
	b.outputs = []*Output{}
}

// DisconnectAll drops every incoming link of the element.
func (b *Base) DisconnectAll() {
	for _, in := range b.inputs {
		in.Disconnect()
	}
}
