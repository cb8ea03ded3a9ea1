package elements

import (
	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
)

const (
	TriggerFallingType = "logic/trigger_falling"
	TriggerRisingType  = "logic/trigger_rising"
)

// TriggerState is the state of a falling-edge trigger.
type TriggerState uint8

const (
	StateWait TriggerState = iota
	StateSet
	StateReset
)

func (s TriggerState) String() string {
	switch s {
	case StateWait:
		return "wait"
	case StateSet:
		return "set"
	case StateReset:
		return "reset"
	default:
		return "unknown"
	}
}

// TriggerFalling emits a single true pulse on the tick its input goes
// from true to false.
//
//	Wait  --in-->  Set
//	Set   --!in--> Reset  (output true)
//	Reset --in-->  Set
//	Reset --!in--> Wait
//
// The output is false in every other case, so a falling edge produces
// exactly one pulse no matter how long the input then stays low.
type TriggerFalling struct {
	element.Base
	state TriggerState
}

// NewTriggerFalling returns a trigger in the Wait state.
func NewTriggerFalling() *TriggerFalling {
	t := &TriggerFalling{Base: element.NewBase(TriggerFallingType, element.Fixed(1, 1))}
	t.MustAddInput(ir.KindBool, "")
	t.MustAddOutput(ir.KindBool, "")
	return t
}

// State returns the current state.
func (t *TriggerFalling) State() TriggerState { return t.state }

func (t *TriggerFalling) Calculate() bool {
	high := t.Inputs()[0].Bool()
	pulse := false

	switch t.state {
	case StateWait:
		if high {
			t.state = StateSet
		}
	case StateSet:
		if !high {
			t.state = StateReset
			pulse = true
		}
	case StateReset:
		if high {
			t.state = StateSet
		} else {
			t.state = StateWait
		}
	}

	t.Outputs()[0].Write(ir.Bool(pulse))
	return true
}

// TriggerRising emits a single true pulse on the tick its input goes from
// false to true.
type TriggerRising struct {
	element.Base
	last bool
}

// NewTriggerRising returns a rising-edge trigger that has last seen false.
func NewTriggerRising() *TriggerRising {
	t := &TriggerRising{Base: element.NewBase(TriggerRisingType, element.Fixed(1, 1))}
	t.MustAddInput(ir.KindBool, "")
	t.MustAddOutput(ir.KindBool, "")
	return t
}

func (t *TriggerRising) Calculate() bool {
	high := t.Inputs()[0].Bool()
	t.Outputs()[0].Write(ir.Bool(high && !t.last))
	t.last = high
	return true
}
