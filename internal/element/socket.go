package element

import (
	"fmt"

	"github.com/roach88/spaghetti/internal/ir"
)

// cell is a value slot. Every cell has exactly one owner: an Output, or
// the private default of an Input.
type cell struct {
	v ir.Value
}

// Output is an output socket. It always owns its cell; any number of
// inputs may read that cell through links.
type Output struct {
	kind     ir.Kind
	label    string
	cell     *cell
	floating bool
}

// NewOutput creates an output socket holding the zero value of kind.
func NewOutput(kind ir.Kind, label string) *Output {
	return &Output{kind: kind, label: label, cell: &cell{v: ir.Zero(kind)}}
}

// Kind returns the socket's fixed value kind.
func (o *Output) Kind() ir.Kind { return o.kind }

// Label returns the socket label.
func (o *Output) Label() string { return o.label }

// SetLabel renames the socket. Labels are display data only.
func (o *Output) SetLabel(label string) { o.label = label }

// Value returns the current value.
func (o *Output) Value() ir.Value { return o.cell.v }

// Floating reports whether the output is currently undriven. Inputs linked
// to a floating output do not count as connected for readiness.
func (o *Output) Floating() bool { return o.floating }

// SetFloating marks the output as undriven or driven. Packages use it on
// the boundary outputs that mirror unconnected external inputs.
func (o *Output) SetFloating(floating bool) { o.floating = floating }

// Write replaces the owned value. Only the owning element writes its
// outputs. A value of the wrong kind is a broken element contract and
// panics.
func (o *Output) Write(v ir.Value) {
	if v == nil || v.Kind() != o.kind {
		panic(fmt.Sprintf("element: write of %v to %s output %q", v, o.kind, o.label))
	}
	o.cell.v = v
}

// binding is where an Input reads from: its own default cell or the cell
// of the upstream Output it is linked to.
type binding interface {
	cell() *cell
}

// owned reads the input's private default cell.
type owned struct{ c *cell }

func (b owned) cell() *cell { return b.c }

// borrowed reads an upstream output's cell without owning it.
type borrowed struct{ from *Output }

func (b borrowed) cell() *cell { return b.from.cell }

// Input is an input socket. Unconnected it reads its private default
// value; connected it aliases the upstream output's cell, so every read
// sees the latest write without copying.
type Input struct {
	kind  ir.Kind
	label string
	def   *cell
	bind  binding
}

// NewInput creates an unconnected input whose default is the zero value.
func NewInput(kind ir.Kind, label string) *Input {
	def := &cell{v: ir.Zero(kind)}
	return &Input{kind: kind, label: label, def: def, bind: owned{c: def}}
}

// Kind returns the socket's fixed value kind.
func (in *Input) Kind() ir.Kind { return in.kind }

// Label returns the socket label.
func (in *Input) Label() string { return in.label }

// SetLabel renames the socket. Labels are display data only.
func (in *Input) SetLabel(label string) { in.label = label }

// Read returns the value currently visible on the input.
func (in *Input) Read() ir.Value { return in.bind.cell().v }

// Connected reports whether the input aliases an upstream output.
func (in *Input) Connected() bool {
	_, ok := in.bind.(borrowed)
	return ok
}

// Driven reports whether the input is linked to an output that is not
// floating.
func (in *Input) Driven() bool {
	b, ok := in.bind.(borrowed)
	return ok && !b.from.floating
}

// Source returns the upstream output, or nil when unconnected.
func (in *Input) Source() *Output {
	if b, ok := in.bind.(borrowed); ok {
		return b.from
	}
	return nil
}

// Connect rebinds the input to read out's cell. It fails without side
// effects when the kinds differ or the input already has a link.
func (in *Input) Connect(out *Output) error {
	if out == nil {
		return Errorf(ErrCodeNoSuchSocket, "connect %q: nil output", in.label)
	}
	if out.kind != in.kind {
		return Errorf(ErrCodeKindMismatch, "cannot connect %s output %q to %s input %q", out.kind, out.label, in.kind, in.label)
	}
	if in.Connected() {
		return Errorf(ErrCodeFanIn, "input %q already has a link", in.label)
	}
	in.bind = borrowed{from: out}
	return nil
}

// Disconnect restores the private default cell. Disconnecting an
// unconnected input is a no-op.
func (in *Input) Disconnect() {
	in.bind = owned{c: in.def}
}

// Default returns the private default value.
func (in *Input) Default() ir.Value { return in.def.v }

// SetDefault replaces the private default value. Unconnected inputs read
// it immediately; connected inputs read it again after Disconnect.
func (in *Input) SetDefault(v ir.Value) error {
	if v == nil || v.Kind() != in.kind {
		return Errorf(ErrCodeKindMismatch, "default %v for %s input %q", v, in.kind, in.label)
	}
	in.def.v = v
	return nil
}

// Bool reads a bool input. Reading through the wrong kind panics.
func (in *Input) Bool() bool {
	v, ok := in.Read().(ir.Bool)
	if !ok {
		panic(fmt.Sprintf("element: input %q of kind %s read as bool", in.label, in.kind))
	}
	return bool(v)
}

// Int reads an int input. Reading through the wrong kind panics.
func (in *Input) Int() int64 {
	v, ok := in.Read().(ir.Int)
	if !ok {
		panic(fmt.Sprintf("element: input %q of kind %s read as int", in.label, in.kind))
	}
	return int64(v)
}

// Float reads a float input. Reading through the wrong kind panics.
func (in *Input) Float() float64 {
	v, ok := in.Read().(ir.Float)
	if !ok {
		panic(fmt.Sprintf("element: input %q of kind %s read as float", in.label, in.kind))
	}
	return float64(v)
}
