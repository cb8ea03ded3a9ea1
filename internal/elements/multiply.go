package elements

import (
	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
)

const (
	MultiplyType = "logic/multiply"
	AddType      = "math/add"
)

// Multiply writes the product of its float inputs. It needs at least two
// inputs and does nothing until every input is linked.
type Multiply struct {
	element.Base
}

// NewMultiply returns a multiplier with inputs "#1", "#2" and output "#1".
func NewMultiply() *Multiply {
	m := &Multiply{Base: element.NewBase(MultiplyType, element.Limits{
		MinInputs:  2,
		MaxInputs:  element.Unbounded,
		MinOutputs: 1,
		MaxOutputs: 1,
	})}
	m.MustAddInput(ir.KindFloat, "")
	m.MustAddInput(ir.KindFloat, "")
	m.MustAddOutput(ir.KindFloat, "")
	return m
}

func (m *Multiply) Calculate() bool {
	if !m.AllInputsConnected() {
		return false
	}
	product := 1.0
	for _, in := range m.Inputs() {
		product *= in.Float()
	}
	m.Outputs()[0].Write(ir.Float(product))
	return true
}

// Add writes the sum of its float inputs, with the same wiring
// precondition as Multiply.
type Add struct {
	element.Base
}

// NewAdd returns an adder with two inputs and one output.
func NewAdd() *Add {
	a := &Add{Base: element.NewBase(AddType, element.Limits{
		MinInputs:  2,
		MaxInputs:  element.Unbounded,
		MinOutputs: 1,
		MaxOutputs: 1,
	})}
	a.MustAddInput(ir.KindFloat, "")
	a.MustAddInput(ir.KindFloat, "")
	a.MustAddOutput(ir.KindFloat, "")
	return a
}

func (a *Add) Calculate() bool {
	if !a.AllInputsConnected() {
		return false
	}
	sum := 0.0
	for _, in := range a.Inputs() {
		sum += in.Float()
	}
	a.Outputs()[0].Write(ir.Float(sum))
	return true
}
