package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/spaghetti/internal/ir"
)

// marshalDoc converts a PackageDoc to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal documents store identical text.
func marshalDoc(doc ir.PackageDoc) (string, error) {
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal doc: %w", err)
	}
	return string(data), nil
}

// unmarshalDoc parses stored JSON TEXT back to a PackageDoc.
func unmarshalDoc(data string) (ir.PackageDoc, error) {
	var doc ir.PackageDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return ir.PackageDoc{}, fmt.Errorf("unmarshal doc: %w", err)
	}
	return doc, nil
}

// marshalValue converts a socket value to its tagged canonical JSON TEXT,
// e.g. {"float":1.5}.
func marshalValue(v ir.Value) (string, error) {
	if v == nil {
		return "", fmt.Errorf("marshal value: nil value")
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses tagged JSON TEXT and checks it against the kind
// column stored next to it.
func unmarshalValue(kind, data string) (ir.Value, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	if v.Kind().String() != kind {
		return nil, fmt.Errorf("unmarshal value: stored kind %q, value is %s", kind, v.Kind())
	}
	return v, nil
}
