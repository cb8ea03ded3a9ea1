package compiler

import (
	"fmt"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
)

// Validation error codes (E100-E199)
const (
	ErrBadTypeName        = "E100" // type name is not category/name
	ErrBadElementID       = "E101" // element IDs must be positive
	ErrDuplicateElementID = "E102" // element ID used twice
	ErrInvalidKind        = "E103" // socket kind is not bool, int or float
	ErrDefaultKind        = "E104" // socket default has another kind
	ErrUnknownType        = "E105" // no factory registered for the element type
	ErrUnknownLinkEnd     = "E106" // link names an element that does not exist
	ErrSocketRange        = "E107" // link socket index out of range
	ErrFanIn              = "E108" // two links feed the same input
	ErrLinkKind           = "E109" // link joins sockets of different kinds
	ErrSelfNesting        = "E110" // definition contains itself
	ErrInstantiate        = "E111" // element type cannot be instantiated
)

// ValidationError represents a structural error in a package definition.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// layout is the socket layout known for one element of a document.
type layout struct {
	inputs  []ir.SocketDoc
	outputs []ir.SocketDoc
	known   bool
}

// Validate checks a package definition without instantiating it.
// Returns all errors found (does not fail-fast).
//
// reg is optional. With a registry, element types must be registered and
// elements that do not list their sockets are checked against the type's
// default layout. Without one, only sockets the document spells out are
// checked.
func Validate(doc ir.PackageDoc, reg *registry.Registry) []ValidationError {
	var errs []ValidationError

	if !ValidTypeName(doc.Type) {
		errs = append(errs, ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("type name %q must have the form category/name", doc.Type),
			Code:    ErrBadTypeName,
		})
	}
	errs = append(errs, validateSockets("inputs", doc.Inputs)...)
	errs = append(errs, validateSockets("outputs", doc.Outputs)...)

	layouts := map[ir.ElementID]layout{
		circuit.InputsID:  {outputs: doc.Inputs, known: true},
		circuit.OutputsID: {inputs: doc.Outputs, known: true},
	}

	for i, ed := range doc.Elements {
		field := fmt.Sprintf("elements[%d]", i)
		if ed.ID <= 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("element id %d must be positive", ed.ID),
				Code:    ErrBadElementID,
			})
			continue
		}
		if _, dup := layouts[ed.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("element id %d used twice", ed.ID),
				Code:    ErrDuplicateElementID,
			})
			continue
		}

		errs = append(errs, validateSockets(field+".inputs", ed.Inputs)...)
		errs = append(errs, validateSockets(field+".outputs", ed.Outputs)...)

		l := layout{inputs: ed.Inputs, outputs: ed.Outputs, known: len(ed.Inputs) > 0 || len(ed.Outputs) > 0}
		if reg != nil {
			if !reg.Has(ed.Type) {
				errs = append(errs, ValidationError{
					Field:   field + ".type",
					Message: fmt.Sprintf("unknown element type %q", ed.Type),
					Code:    ErrUnknownType,
				})
			} else if !l.known {
				def, err := reg.Layout(ed.Type)
				if err != nil {
					errs = append(errs, ValidationError{
						Field:   field + ".type",
						Message: err.Error(),
						Code:    ErrInstantiate,
					})
				} else {
					l = layout{inputs: def.Inputs, outputs: def.Outputs, known: true}
				}
			}
		}
		layouts[ed.ID] = l

		if ed.Body != nil {
			for _, nested := range Validate(*ed.Body, reg) {
				nested.Field = field + ".body." + nested.Field
				errs = append(errs, nested)
			}
		}
	}

	errs = append(errs, validateLinks(doc.Links, layouts)...)
	return errs
}

func validateSockets(field string, sockets []ir.SocketDoc) []ValidationError {
	var errs []ValidationError
	for i, s := range sockets {
		f := fmt.Sprintf("%s[%d]", field, i)
		if !s.Kind.Valid() {
			errs = append(errs, ValidationError{
				Field:   f + ".kind",
				Message: fmt.Sprintf("invalid socket kind %q", s.Kind),
				Code:    ErrInvalidKind,
			})
			continue
		}
		if s.Default != nil && s.Default.Kind() != s.Kind {
			errs = append(errs, ValidationError{
				Field:   f + ".default",
				Message: fmt.Sprintf("default %s is %s, socket is %s", ir.FormatValue(s.Default), s.Default.Kind(), s.Kind),
				Code:    ErrDefaultKind,
			})
		}
	}
	return errs
}

type inputKey struct {
	id     ir.ElementID
	socket int
}

func validateLinks(links []ir.LinkDoc, layouts map[ir.ElementID]layout) []ValidationError {
	var errs []ValidationError
	fed := make(map[inputKey]int)

	for i, l := range links {
		field := fmt.Sprintf("links[%d]", i)

		src, srcOK := layouts[l.From]
		dst, dstOK := layouts[l.To]
		if !srcOK {
			errs = append(errs, ValidationError{
				Field:   field + ".from",
				Message: fmt.Sprintf("no element %d", l.From),
				Code:    ErrUnknownLinkEnd,
			})
		}
		if !dstOK {
			errs = append(errs, ValidationError{
				Field:   field + ".to",
				Message: fmt.Sprintf("no element %d", l.To),
				Code:    ErrUnknownLinkEnd,
			})
		}
		if !srcOK || !dstOK {
			continue
		}

		key := inputKey{l.To, l.ToSocket}
		if prev, ok := fed[key]; ok {
			errs = append(errs, ValidationError{
				Field:   field + ".to_socket",
				Message: fmt.Sprintf("input %d.%d already fed by links[%d]", l.To, l.ToSocket, prev),
				Code:    ErrFanIn,
			})
		} else {
			fed[key] = i
		}

		var from, to *ir.SocketDoc
		if src.known {
			if l.FromSocket < 0 || l.FromSocket >= len(src.outputs) {
				errs = append(errs, ValidationError{
					Field:   field + ".from_socket",
					Message: fmt.Sprintf("element %d has %d outputs, no socket %d", l.From, len(src.outputs), l.FromSocket),
					Code:    ErrSocketRange,
				})
			} else {
				from = &src.outputs[l.FromSocket]
			}
		}
		if dst.known {
			if l.ToSocket < 0 || l.ToSocket >= len(dst.inputs) {
				errs = append(errs, ValidationError{
					Field:   field + ".to_socket",
					Message: fmt.Sprintf("element %d has %d inputs, no socket %d", l.To, len(dst.inputs), l.ToSocket),
					Code:    ErrSocketRange,
				})
			} else {
				to = &dst.inputs[l.ToSocket]
			}
		}
		if from != nil && to != nil && from.Kind != to.Kind {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("link %s joins %s output to %s input", l, from.Kind, to.Kind),
				Code:    ErrLinkKind,
			})
		}
	}
	return errs
}
