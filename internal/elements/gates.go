package elements

import (
	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
)

const (
	NotType = "logic/not"
	AndType = "logic/and"
	OrType  = "logic/or"
)

// Not inverts its input. An unlinked input reads its default.
type Not struct {
	element.Base
}

func NewNot() *Not {
	n := &Not{Base: element.NewBase(NotType, element.Fixed(1, 1))}
	n.MustAddInput(ir.KindBool, "")
	n.MustAddOutput(ir.KindBool, "")
	return n
}

func (n *Not) Calculate() bool {
	n.Outputs()[0].Write(ir.Bool(!n.Inputs()[0].Bool()))
	return true
}

// Gate folds any number of bool inputs into one output.
type Gate struct {
	element.Base
	fold func(acc, v bool) bool
	init bool
}

func newGate(typeName string, init bool, fold func(acc, v bool) bool) *Gate {
	g := &Gate{
		Base: element.NewBase(typeName, element.Limits{MinInputs: 2, MaxInputs: element.Unbounded, MinOutputs: 1, MaxOutputs: 1}),
		fold: fold,
		init: init,
	}
	g.MustAddInput(ir.KindBool, "")
	g.MustAddInput(ir.KindBool, "")
	g.MustAddOutput(ir.KindBool, "")
	return g
}

func (g *Gate) Calculate() bool {
	acc := g.init
	for _, in := range g.Inputs() {
		acc = g.fold(acc, in.Bool())
	}
	g.Outputs()[0].Write(ir.Bool(acc))
	return true
}

// NewAnd returns a gate that is true when every input is true.
func NewAnd() *Gate {
	return newGate(AndType, true, func(acc, v bool) bool { return acc && v })
}

// NewOr returns a gate that is true when any input is true.
func NewOr() *Gate {
	return newGate(OrType, false, func(acc, v bool) bool { return acc || v })
}
