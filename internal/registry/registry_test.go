package registry

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/element"
	"github.com/roach88/spaghetti/internal/ir"
)

type stub struct {
	element.Base
}

func (s *stub) Calculate() bool { return true }

func stubFactory(typeName string) Factory {
	return func(*Creation) (element.Element, error) {
		s := &stub{Base: element.NewBase(typeName, element.Fixed(1, 1))}
		s.MustAddInput(ir.KindBool, "in")
		s.MustAddOutput(ir.KindBool, "out")
		return s, nil
	}
}

func TestRegistry_CreateReturnsFreshInstances(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{Type: "test/stub"}, stubFactory("test/stub")))

	a, err := r.Create("test/stub")
	require.NoError(t, err)
	b, err := r.Create("test/stub")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, "test/stub", a.Type())
	assert.Equal(t, ir.TypeHash("test/stub"), a.Hash())
}

func TestRegistry_UnknownType(t *testing.T) {
	var logs bytes.Buffer
	r := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	_, err := r.Create("test/missing")
	require.Error(t, err)
	assert.True(t, element.IsUnknownType(err))
	assert.Contains(t, logs.String(), "unknown element type requested")
	assert.Contains(t, logs.String(), "test/missing")
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{Type: "test/stub", Name: "first"}, stubFactory("test/stub")))

	err := r.Register(Descriptor{Type: "test/stub", Name: "second"}, stubFactory("test/stub"))
	require.Error(t, err)
	assert.True(t, element.HasCode(err, element.ErrCodeDuplicateType))

	desc, err := r.Describe("test/stub")
	require.NoError(t, err)
	assert.Equal(t, "first", desc.Name, "first registration stays")
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := New()
	assert.Error(t, r.Register(Descriptor{}, stubFactory("x")))
	assert.Error(t, r.Register(Descriptor{Type: "test/nil"}, nil))
	assert.Panics(t, func() { r.MustRegister(Descriptor{}, nil) })
}

func TestRegistry_TypesSortedWithCategory(t *testing.T) {
	r := New()
	r.MustRegister(Descriptor{Type: "math/b"}, stubFactory("math/b"))
	r.MustRegister(Descriptor{Type: "logic/a"}, stubFactory("logic/a"))

	types := r.Types()
	require.Len(t, types, 2)
	assert.Equal(t, "logic/a", types[0].Type)
	assert.Equal(t, "logic", types[0].Category())
	assert.Equal(t, ir.TypeHash("logic/a"), types[0].Hash)
	assert.True(t, r.Has("math/b"))
	assert.False(t, r.Has("math/c"))
}

func TestRegistry_Layout(t *testing.T) {
	r := New()
	r.MustRegister(Descriptor{Type: "test/stub"}, stubFactory("test/stub"))

	layout, err := r.Layout("test/stub")
	require.NoError(t, err)
	assert.Equal(t, element.Fixed(1, 1), layout.Limits)
	require.Len(t, layout.Inputs, 1)
	assert.Equal(t, "in", layout.Inputs[0].Label)
	assert.Equal(t, ir.KindBool, layout.Inputs[0].Kind)
	assert.Equal(t, ir.Bool(false), layout.Inputs[0].Default)
	require.Len(t, layout.Outputs, 1)
}

func TestRegistry_RecursiveExpansionRejected(t *testing.T) {
	r := New()
	// a builds b, b builds a.
	r.MustRegister(Descriptor{Type: "test/a"}, func(c *Creation) (element.Element, error) {
		if _, err := c.Create("test/b"); err != nil {
			return nil, err
		}
		return stubFactory("test/a")(c)
	})
	r.MustRegister(Descriptor{Type: "test/b"}, func(c *Creation) (element.Element, error) {
		if _, err := c.Create("test/a"); err != nil {
			return nil, err
		}
		return stubFactory("test/b")(c)
	})

	_, err := r.Create("test/a")
	require.Error(t, err)
	assert.True(t, element.IsSelfNesting(err))
	assert.Contains(t, err.Error(), "test/a -> test/b -> test/a")
}

func TestRegistry_FactoryTypeMismatchPanics(t *testing.T) {
	r := New()
	r.MustRegister(Descriptor{Type: "test/liar"}, stubFactory("test/other"))
	assert.Panics(t, func() { _, _ = r.Create("test/liar") })
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	r := New()
	r.MustRegister(Descriptor{Type: "test/stub"}, stubFactory("test/stub"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := r.Create("test/stub")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
