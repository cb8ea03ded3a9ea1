package elements

import (
	"fmt"

	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/registry"
)

type builtin struct {
	desc registry.Descriptor
	make func() element.Element
}

var builtins = []builtin{
	{registry.Descriptor{Type: MultiplyType, Name: "Multiply", Description: "Product of float inputs"}, func() element.Element { return NewMultiply() }},
	{registry.Descriptor{Type: AddType, Name: "Add", Description: "Sum of float inputs"}, func() element.Element { return NewAdd() }},
	{registry.Descriptor{Type: TriggerFallingType, Name: "Trigger Falling", Description: "One pulse per falling edge"}, func() element.Element { return NewTriggerFalling() }},
	{registry.Descriptor{Type: TriggerRisingType, Name: "Trigger Rising", Description: "One pulse per rising edge"}, func() element.Element { return NewTriggerRising() }},
	{registry.Descriptor{Type: NotType, Name: "Not"}, func() element.Element { return NewNot() }},
	{registry.Descriptor{Type: AndType, Name: "And"}, func() element.Element { return NewAnd() }},
	{registry.Descriptor{Type: OrType, Name: "Or"}, func() element.Element { return NewOr() }},
	{registry.Descriptor{Type: ClockType, Name: "Clock", Description: "Toggles every period ticks"}, func() element.Element { return NewClock() }},
	{registry.Descriptor{Type: ConstBoolType, Name: "Bool"}, func() element.Element { return NewConstBool() }},
	{registry.Descriptor{Type: ConstIntType, Name: "Int"}, func() element.Element { return NewConstInt() }},
	{registry.Descriptor{Type: ConstFloatType, Name: "Float"}, func() element.Element { return NewConstFloat() }},
}

// Register adds every built-in element type to reg.
func Register(reg *registry.Registry) error {
	for _, b := range builtins {
		desc := b.desc
		if desc.Icon == "" {
			desc.Icon = fmt.Sprintf("elements/%s.png", desc.Type)
		}
		construct := b.make
		err := reg.Register(desc, func(*registry.Creation) (element.Element, error) {
			return construct(), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
