package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_KindAndZero(t *testing.T) {
	assert.Equal(t, KindBool, Bool(true).Kind())
	assert.Equal(t, KindInt, Int(1).Kind())
	assert.Equal(t, KindFloat, Float(1).Kind())

	assert.Equal(t, Bool(false), Zero(KindBool))
	assert.Equal(t, Int(0), Zero(KindInt))
	assert.Equal(t, Float(0), Zero(KindFloat))
	assert.Panics(t, func() { Zero(Kind(0)) })
}

func TestValue_EqualComparesKind(t *testing.T) {
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Float(1)))
	assert.False(t, Equal(Bool(true), Bool(false)))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, Int(0)))
}

func TestKind_TextRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindBool, KindInt, KindFloat} {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var back Kind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}

	_, err := ParseKind("string")
	assert.Error(t, err)
}

func TestValue_TaggedJSONPreservesKind(t *testing.T) {
	for _, v := range []Value{Bool(true), Int(-3), Float(2), Float(0.1)} {
		data, err := MarshalValue(v)
		require.NoError(t, err)

		back, err := UnmarshalValue(data)
		require.NoError(t, err)
		assert.Equal(t, v, back, "round trip of %s", data)
	}
}

func TestValue_UnmarshalRejectsBadTags(t *testing.T) {
	for _, input := range []string{`{}`, `{"string":"x"}`, `{"int":1,"bool":true}`, `{"int":1.5}`, `true`} {
		_, err := UnmarshalValue([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		input   any
		want    Value
		wantErr bool
	}{
		{"int widens to float", KindFloat, 3, Float(3), false},
		{"whole float narrows to int", KindInt, 4.0, Int(4), false},
		{"fractional float does not narrow", KindInt, 4.5, nil, true},
		{"bool", KindBool, true, Bool(true), false},
		{"bool is not a number", KindFloat, true, nil, true},
		{"string parses", KindFloat, "1.25", Float(1.25), false},
		{"value converts", KindFloat, Int(2), Float(2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.kind, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_JSONRoundTrip(t *testing.T) {
	cfg := Config{"value": Float(1.5), "enabled": Bool(true)}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var back Config
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, cfg, back)
	assert.Equal(t, []string{"enabled", "value"}, back.Keys())
}

func TestSocketDoc_JSONRoundTrip(t *testing.T) {
	in := SocketDoc{Label: "#1", Kind: KindInt, Default: Int(9)}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"#1","kind":"int","default":{"int":9}}`, string(data))

	var back SocketDoc
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, in, back)
}

func TestPackageID_Deterministic(t *testing.T) {
	doc := PackageDoc{Type: "logic/package", Inputs: []SocketDoc{}, Outputs: []SocketDoc{}, Elements: []ElementDoc{}, Links: []LinkDoc{}}

	id1 := MustPackageID(doc)
	id2 := MustPackageID(doc)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")

	doc.Meta.Name = "other"
	assert.NotEqual(t, id1, MustPackageID(doc))
}

func TestTypeHash_Stable(t *testing.T) {
	assert.Equal(t, TypeHash("logic/multiply"), TypeHash("logic/multiply"))
	assert.NotEqual(t, TypeHash("logic/multiply"), TypeHash("logic/trigger_falling"))
}
