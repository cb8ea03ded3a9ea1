package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/spaghetti/internal/ir"
)

// CompileCUE parses a CUE value into a package definition.
// Uses the CUE SDK's Go API directly.
//
// The value is the circuit struct itself, e.g.:
//
//	circuit: "demo/edge": {
//		name: "Edge"
//		inputs: [{label: "in", kind: "bool"}]
//		outputs: [{label: "pulse", kind: "bool"}]
//		elements: edge: type: "logic/trigger_falling"
//		links: [
//			{from: "inputs", from_socket: 0, to: "edge", to_socket: 0},
//			{from: "edge", from_socket: 0, to: "outputs", to_socket: 0},
//		]
//	}
//
// Elements get IDs in declaration order; "inputs" and "outputs" name the
// boundary proxies.
func CompileCUE(v cue.Value) (*ir.PackageDoc, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := &ir.PackageDoc{
		Inputs:   []ir.SocketDoc{},
		Outputs:  []ir.SocketDoc{},
		Elements: []ir.ElementDoc{},
		Links:    []ir.LinkDoc{},
	}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		doc.Type = strings.Trim(labels[len(labels)-1].String(), `"`)
	}
	if !ValidTypeName(doc.Type) {
		return nil, cueError("type", fmt.Sprintf("type name %q must have the form category/name", doc.Type), v.Pos())
	}

	var err error
	if doc.Meta, err = cueMeta(v); err != nil {
		return nil, err
	}
	if doc.Inputs, err = cueSockets(v, "inputs"); err != nil {
		return nil, err
	}
	if doc.Outputs, err = cueSockets(v, "outputs"); err != nil {
		return nil, err
	}

	ids := newNames()
	if doc.Elements, err = cueElements(v, ids); err != nil {
		return nil, err
	}
	if doc.Links, err = cueLinks(v, ids); err != nil {
		return nil, err
	}
	return doc, nil
}

// cueMeta reads the optional name, icon and position fields.
func cueMeta(v cue.Value) (ir.Metadata, error) {
	var meta ir.Metadata
	var err error
	if meta.Name, err = optionalString(v, "name"); err != nil {
		return meta, err
	}
	if meta.Icon, err = optionalString(v, "icon"); err != nil {
		return meta, err
	}
	posVal := v.LookupPath(cue.ParsePath("position"))
	if posVal.Exists() {
		if meta.Position.X, err = posVal.LookupPath(cue.ParsePath("x")).Float64(); err != nil {
			return meta, formatCUEError(err)
		}
		if meta.Position.Y, err = posVal.LookupPath(cue.ParsePath("y")).Float64(); err != nil {
			return meta, formatCUEError(err)
		}
	}
	return meta, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// cueSockets reads a list of {label, kind, default?} structs.
func cueSockets(v cue.Value, field string) ([]ir.SocketDoc, error) {
	out := []ir.SocketDoc{}
	list := v.LookupPath(cue.ParsePath(field))
	if !list.Exists() {
		return out, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		sv := iter.Value()
		label, err := optionalString(sv, "label")
		if err != nil {
			return nil, err
		}
		kind, err := sv.LookupPath(cue.ParsePath("kind")).String()
		if err != nil {
			return nil, cueError(fmt.Sprintf("%s[%d].kind", field, i), "kind is required", sv.Pos())
		}

		var def any
		if dv := sv.LookupPath(cue.ParsePath("default")); dv.Exists() {
			if def, err = cueNative(dv); err != nil {
				return nil, err
			}
		}

		s, err := socketDoc(label, kind, def)
		if err != nil {
			return nil, cueError(fmt.Sprintf("%s[%d]", field, i), err.Error(), sv.Pos())
		}
		out = append(out, s)
	}
	return out, nil
}

// cueElements reads the elements struct in declaration order.
func cueElements(v cue.Value, ids *names) ([]ir.ElementDoc, error) {
	out := []ir.ElementDoc{}
	elems := v.LookupPath(cue.ParsePath("elements"))
	if !elems.Exists() {
		return out, nil
	}
	iter, err := elems.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		local := iter.Label()
		ev := iter.Value()
		field := "elements." + local

		id, err := ids.declare(local)
		if err != nil {
			return nil, cueError(field, err.Error(), ev.Pos())
		}

		typ, err := ev.LookupPath(cue.ParsePath("type")).String()
		if err != nil {
			return nil, cueError(field+".type", "type is required", ev.Pos())
		}

		meta, err := cueMeta(ev)
		if err != nil {
			return nil, err
		}
		if meta.Name == "" {
			meta.Name = local
		}

		ed := ir.ElementDoc{ID: id, Type: typ, Meta: meta}

		if cv := ev.LookupPath(cue.ParsePath("config")); cv.Exists() {
			cfg, err := cueConfig(cv)
			if err != nil {
				return nil, err
			}
			ed.Config = cfg
		}
		out = append(out, ed)
	}
	return out, nil
}

// cueConfig reads a struct of scalar values.
func cueConfig(v cue.Value) (ir.Config, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	cfg := ir.Config{}
	for iter.Next() {
		native, err := cueNative(iter.Value())
		if err != nil {
			return nil, err
		}
		val, err := ir.Infer(native)
		if err != nil {
			return nil, cueError("config."+iter.Label(), err.Error(), iter.Value().Pos())
		}
		cfg[iter.Label()] = val
	}
	return cfg, nil
}

// cueNative converts a concrete scalar CUE value to bool, int64 or float64.
func cueNative(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	default:
		return nil, cueError("value", fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()), v.Pos())
	}
}

// cueLinks reads the links list, resolving local names to IDs.
func cueLinks(v cue.Value, ids *names) ([]ir.LinkDoc, error) {
	out := []ir.LinkDoc{}
	list := v.LookupPath(cue.ParsePath("links"))
	if !list.Exists() {
		return out, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		lv := iter.Value()
		field := fmt.Sprintf("links[%d]", i)

		from, err := lv.LookupPath(cue.ParsePath("from")).String()
		if err != nil {
			return nil, cueError(field+".from", "from is required", lv.Pos())
		}
		to, err := lv.LookupPath(cue.ParsePath("to")).String()
		if err != nil {
			return nil, cueError(field+".to", "to is required", lv.Pos())
		}
		fromSocket, err := optionalInt(lv, "from_socket")
		if err != nil {
			return nil, err
		}
		toSocket, err := optionalInt(lv, "to_socket")
		if err != nil {
			return nil, err
		}

		fromID, ok := ids.lookup(from)
		if !ok {
			return nil, cueError(field+".from", fmt.Sprintf("unknown element %q", from), lv.Pos())
		}
		toID, ok := ids.lookup(to)
		if !ok {
			return nil, cueError(field+".to", fmt.Sprintf("unknown element %q", to), lv.Pos())
		}
		out = append(out, ir.LinkDoc{From: fromID, FromSocket: fromSocket, To: toID, ToSocket: toSocket})
	}
	return out, nil
}

func optionalInt(v cue.Value, field string) (int, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}
