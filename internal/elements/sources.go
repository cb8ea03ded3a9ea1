package elements

import (
	"fmt"

	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
)

const (
	ConstBoolType  = "values/const_bool"
	ConstIntType   = "values/const_int"
	ConstFloatType = "values/const_float"
	ClockType      = "logic/clock"
)

// Const writes a configured value to its single output every tick.
type Const struct {
	element.Base
	value ir.Value
}

func newConst(typeName string, kind ir.Kind) *Const {
	c := &Const{Base: element.NewBase(typeName, element.Fixed(0, 1)), value: ir.Zero(kind)}
	c.MustAddOutput(kind, "value")
	return c
}

func NewConstBool() *Const  { return newConst(ConstBoolType, ir.KindBool) }
func NewConstInt() *Const   { return newConst(ConstIntType, ir.KindInt) }
func NewConstFloat() *Const { return newConst(ConstFloatType, ir.KindFloat) }

// Value returns the configured value.
func (c *Const) Value() ir.Value { return c.value }

// Config returns {"value": v}.
func (c *Const) Config() ir.Config {
	return ir.Config{"value": c.value}
}

// Configure sets "value", coercing it to the output kind.
func (c *Const) Configure(cfg ir.Config) error {
	for key := range cfg {
		if key != "value" {
			return &element.ConfigError{Code: element.ErrCodeBadConfig, Message: fmt.Sprintf("unknown config key %q", key), Type: c.Type()}
		}
	}
	v, ok, err := cfg.Lookup("value", c.Outputs()[0].Kind())
	if err != nil {
		return &element.ConfigError{Code: element.ErrCodeBadConfig, Message: err.Error(), Type: c.Type()}
	}
	if ok {
		c.value = v
	}
	return nil
}

func (c *Const) Calculate() bool {
	c.Outputs()[0].Write(c.value)
	return true
}

// Clock toggles its bool output every Period ticks, starting low.
type Clock struct {
	element.Base
	period int64
	count  int64
	level  bool
}

func NewClock() *Clock {
	c := &Clock{Base: element.NewBase(ClockType, element.Fixed(0, 1)), period: 1}
	c.MustAddOutput(ir.KindBool, "")
	return c
}

// Config returns {"period": n}.
func (c *Clock) Config() ir.Config {
	return ir.Config{"period": ir.Int(c.period)}
}

// Configure sets "period", which must be positive.
func (c *Clock) Configure(cfg ir.Config) error {
	for key := range cfg {
		if key != "period" {
			return &element.ConfigError{Code: element.ErrCodeBadConfig, Message: fmt.Sprintf("unknown config key %q", key), Type: c.Type()}
		}
	}
	v, ok, err := cfg.Lookup("period", ir.KindInt)
	if err != nil {
		return &element.ConfigError{Code: element.ErrCodeBadConfig, Message: err.Error(), Type: c.Type()}
	}
	if !ok {
		return nil
	}
	period := int64(v.(ir.Int))
	if period < 1 {
		return &element.ConfigError{Code: element.ErrCodeBadConfig, Message: fmt.Sprintf("period must be positive, got %d", period), Type: c.Type()}
	}
	c.period = period
	return nil
}

func (c *Clock) Calculate() bool {
	c.Outputs()[0].Write(ir.Bool(c.level))
	c.count++
	if c.count >= c.period {
		c.count = 0
		c.level = !c.level
	}
	return true
}
