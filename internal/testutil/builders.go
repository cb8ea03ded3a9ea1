// Package testutil holds deterministic helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/elements"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
)

// NewRegistry returns a registry holding the built-in catalog, the generic
// package container and one type per definition in docs.
func NewRegistry(t testing.TB, docs ...ir.PackageDoc) *registry.Registry {
	t.Helper()
	reg := registry.New()
	if err := elements.Register(reg); err != nil {
		t.Fatalf("register elements: %v", err)
	}
	if err := circuit.Register(reg); err != nil {
		t.Fatalf("register package: %v", err)
	}
	for _, doc := range docs {
		if err := circuit.Define(reg, doc); err != nil {
			t.Fatalf("define %s: %v", doc.Type, err)
		}
	}
	return reg
}

// NewPackage creates an instance of typeName that must be a package.
func NewPackage(t testing.TB, reg *registry.Registry, typeName string) *circuit.Package {
	t.Helper()
	el, err := reg.Create(typeName)
	if err != nil {
		t.Fatalf("create %s: %v", typeName, err)
	}
	pkg, ok := el.(*circuit.Package)
	if !ok {
		t.Fatalf("%s is %T, not a package", typeName, el)
	}
	return pkg
}

// DriveBool ticks pkg once per value, setting input in before each tick,
// and returns output out after each tick.
func DriveBool(t testing.TB, pkg *circuit.Package, in, out int, values []bool) []bool {
	t.Helper()
	got := make([]bool, 0, len(values))
	for i, v := range values {
		if err := pkg.SetInput(in, ir.Bool(v)); err != nil {
			t.Fatalf("tick %d: set input %d: %v", i+1, in, err)
		}
		pkg.Tick()
		val, err := pkg.Output(out)
		if err != nil {
			t.Fatalf("tick %d: read output %d: %v", i+1, out, err)
		}
		b, ok := val.(ir.Bool)
		if !ok {
			t.Fatalf("tick %d: output %d is %s, not bool", i+1, out, val.Kind())
		}
		got = append(got, bool(b))
	}
	return got
}
