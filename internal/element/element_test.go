package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/ir"
)

// passthrough copies its single float input to its output.
type passthrough struct {
	Base
}

func newPassthrough() *passthrough {
	p := &passthrough{Base: NewBase("test/passthrough", Fixed(1, 1))}
	p.MustAddInput(ir.KindFloat, "")
	p.MustAddOutput(ir.KindFloat, "")
	return p
}

func (p *passthrough) Calculate() bool {
	p.outputs[0].Write(ir.Float(p.inputs[0].Float()))
	return true
}

func TestInput_ReadsDefaultUntilConnected(t *testing.T) {
	in := NewInput(ir.KindFloat, "x")
	assert.Equal(t, ir.Float(0), in.Read())
	assert.False(t, in.Connected())

	require.NoError(t, in.SetDefault(ir.Float(2.5)))
	assert.Equal(t, 2.5, in.Float())
}

func TestInput_AliasesUpstreamCell(t *testing.T) {
	out := NewOutput(ir.KindFloat, "y")
	a := NewInput(ir.KindFloat, "a")
	b := NewInput(ir.KindFloat, "b")

	require.NoError(t, a.Connect(out))
	require.NoError(t, b.Connect(out))

	out.Write(ir.Float(3))
	assert.Equal(t, 3.0, a.Float())
	assert.Equal(t, 3.0, b.Float())

	out.Write(ir.Float(4))
	assert.Equal(t, 4.0, a.Float(), "reads must observe the latest write")
	assert.Same(t, out, a.Source())
}

func TestInput_DisconnectReconnectRestoresAliasing(t *testing.T) {
	out := NewOutput(ir.KindInt, "y")
	in := NewInput(ir.KindInt, "x")
	require.NoError(t, in.SetDefault(ir.Int(-1)))

	require.NoError(t, in.Connect(out))
	out.Write(ir.Int(10))
	assert.Equal(t, int64(10), in.Int())

	in.Disconnect()
	assert.False(t, in.Connected())
	assert.Equal(t, int64(-1), in.Int(), "disconnected input reads its own default")

	out.Write(ir.Int(20))
	assert.Equal(t, int64(-1), in.Int())

	require.NoError(t, in.Connect(out))
	assert.Equal(t, int64(20), in.Int(), "no stale copy after reconnect")
	out.Write(ir.Int(30))
	assert.Equal(t, int64(30), in.Int())
}

func TestInput_ConnectKindMismatch(t *testing.T) {
	out := NewOutput(ir.KindBool, "y")
	in := NewInput(ir.KindFloat, "x")

	err := in.Connect(out)
	require.Error(t, err)
	assert.True(t, IsKindMismatch(err))
	assert.False(t, in.Connected(), "failed connect leaves the input unchanged")
}

func TestInput_ConnectFanIn(t *testing.T) {
	first := NewOutput(ir.KindFloat, "a")
	second := NewOutput(ir.KindFloat, "b")
	in := NewInput(ir.KindFloat, "x")

	require.NoError(t, in.Connect(first))
	err := in.Connect(second)
	require.Error(t, err)
	assert.True(t, IsFanIn(err))
	assert.Same(t, first, in.Source(), "failed connect keeps the original link")
}

func TestSocket_KindViolationsPanic(t *testing.T) {
	out := NewOutput(ir.KindFloat, "y")
	assert.Panics(t, func() { out.Write(ir.Bool(true)) })
	assert.Panics(t, func() { out.Write(nil) })

	in := NewInput(ir.KindBool, "x")
	assert.Panics(t, func() { in.Float() })
	assert.Panics(t, func() { in.Int() })
	assert.NotPanics(t, func() { in.Bool() })

	err := in.SetDefault(ir.Int(1))
	assert.True(t, IsKindMismatch(err))
}

func TestBase_CardinalityLimits(t *testing.T) {
	p := newPassthrough()

	_, err := p.AddInput(ir.KindFloat, "")
	require.Error(t, err)
	assert.True(t, IsCardinality(err))
	assert.Len(t, p.Inputs(), 1, "failed add must not change the socket count")

	_, err = p.AddOutput(ir.KindFloat, "")
	require.Error(t, err)
	assert.True(t, IsCardinality(err))
	assert.Len(t, p.Outputs(), 1)
}

func TestBase_UnboundedAndDefaultLabels(t *testing.T) {
	b := NewBase("test/variadic", Limits{MinInputs: 2, MaxInputs: Unbounded, MinOutputs: 1, MaxOutputs: 1})
	assert.Error(t, b.Validate())

	for i := 0; i < 5; i++ {
		_, err := b.AddInput(ir.KindBool, "")
		require.NoError(t, err)
	}
	_, err := b.AddOutput(ir.KindBool, "out")
	require.NoError(t, err)

	assert.NoError(t, b.Validate())
	assert.Equal(t, "#1", b.Inputs()[0].Label())
	assert.Equal(t, "#5", b.Inputs()[4].Label())
	assert.Equal(t, "out", b.Outputs()[0].Label())
}

func TestBase_AllInputsConnected(t *testing.T) {
	p := newPassthrough()
	assert.False(t, p.AllInputsConnected())

	src := NewOutput(ir.KindFloat, "src")
	require.NoError(t, p.Inputs()[0].Connect(src))
	assert.True(t, p.AllInputsConnected())

	p.DisconnectAll()
	assert.False(t, p.AllInputsConnected())
}

func TestBase_FloatingSourceIsNotReady(t *testing.T) {
	p := newPassthrough()
	src := NewOutput(ir.KindFloat, "src")
	src.Write(ir.Float(2))
	require.NoError(t, p.Inputs()[0].Connect(src))

	src.SetFloating(true)
	assert.True(t, p.Inputs()[0].Connected())
	assert.False(t, p.Inputs()[0].Driven())
	assert.False(t, p.AllInputsConnected())
	assert.Equal(t, ir.Float(2), p.Inputs()[0].Read())

	src.SetFloating(false)
	assert.True(t, p.Inputs()[0].Driven())
	assert.True(t, p.AllInputsConnected())
}

func TestBase_IdentityAndMeta(t *testing.T) {
	a := newPassthrough()
	b := newPassthrough()

	assert.Equal(t, "test/passthrough", a.Type())
	assert.Equal(t, ir.TypeHash("test/passthrough"), a.Hash())
	assert.True(t, SameType(a, b))

	a.Meta().Name = "sensor"
	a.Meta().Position = ir.Position{X: 10, Y: 20}
	assert.Equal(t, "sensor", a.Meta().Name)
	assert.Empty(t, b.Meta().Name)
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{Code: ErrCodeUnknownType, Message: "no factory", Type: "x/y"}
	assert.Equal(t, "UNKNOWN_TYPE: no factory (type=x/y)", err.Error())
	assert.True(t, IsUnknownType(err))
	assert.False(t, IsFanIn(err))
}
