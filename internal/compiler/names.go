package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/ir"
)

// Reserved local names for the boundary proxies in link endpoints.
const (
	InputsName  = "inputs"
	OutputsName = "outputs"
)

// typePattern matches element type names of the form category/name.
var typePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*/[a-z][a-z0-9_]*$`)

// ValidTypeName reports whether s is a category/name type name.
func ValidTypeName(s string) bool {
	return typePattern.MatchString(s)
}

// names assigns element IDs to the local names used in a definition, in
// declaration order starting at 1.
type names struct {
	ids  map[string]ir.ElementID
	next ir.ElementID
}

func newNames() *names {
	return &names{
		ids: map[string]ir.ElementID{
			InputsName:  circuit.InputsID,
			OutputsName: circuit.OutputsID,
		},
		next: 1,
	}
}

// declare assigns the next ID to name. Fails on reserved or repeated names.
func (n *names) declare(name string) (ir.ElementID, error) {
	if name == InputsName || name == OutputsName {
		return 0, fmt.Errorf("%q is reserved for the package boundary", name)
	}
	if _, ok := n.ids[name]; ok {
		return 0, fmt.Errorf("element %q declared twice", name)
	}
	id := n.next
	n.ids[name] = id
	n.next++
	return id, nil
}

func (n *names) lookup(name string) (ir.ElementID, bool) {
	id, ok := n.ids[name]
	return id, ok
}

// socketDoc builds an external socket. def may be nil.
func socketDoc(label, kind string, def any) (ir.SocketDoc, error) {
	k, err := ir.ParseKind(kind)
	if err != nil {
		return ir.SocketDoc{}, err
	}
	s := ir.SocketDoc{Label: label, Kind: k}
	if def != nil {
		v, err := ir.Coerce(k, def)
		if err != nil {
			return ir.SocketDoc{}, fmt.Errorf("default: %w", err)
		}
		s.Default = v
	}
	return s, nil
}
