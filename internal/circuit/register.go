package circuit

import (
	"fmt"

	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
)

// Register adds the generic package container to reg.
func Register(reg *registry.Registry) error {
	return reg.Register(registry.Descriptor{
		Type:        PackageType,
		Name:        "Package",
		Icon:        packageIcon,
		Description: "Empty container for a nested graph",
	}, func(c *registry.Creation) (element.Element, error) {
		return New(c.Registry()), nil
	})
}

// Define registers doc as a new element type named doc.Type. Every
// instance is a package reconstructed from doc.
func Define(reg *registry.Registry, doc ir.PackageDoc) error {
	if doc.Type == "" || doc.Type == PackageType {
		return element.Errorf(element.ErrCodeBadConfig, "package definition needs its own type name, got %q", doc.Type)
	}
	icon := doc.Meta.Icon
	if icon == "" {
		icon = packageIcon
	}
	desc := registry.Descriptor{
		Type: doc.Type,
		Name: doc.Meta.Name,
		Icon: icon,
	}
	return reg.Register(desc, func(c *registry.Creation) (element.Element, error) {
		p := New(c.Registry(), WithType(doc.Type))
		if err := p.load(c, doc); err != nil {
			return nil, fmt.Errorf("define %s: %w", doc.Type, err)
		}
		return p, nil
	})
}
