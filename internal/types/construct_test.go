package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructKindOrdinals(t *testing.T) {
	// Ordinals are part of the word-list wire format
	assert.Equal(t, 1, int(KindKeyword))
	assert.Equal(t, 2, int(KindBuiltinType))
	assert.Equal(t, 4, int(KindStaticClass))
	assert.Equal(t, 9, int(KindLocalVariable))
	assert.Equal(t, 14, int(KindConstructor))
	assert.Equal(t, 26, int(KindChar))
	assert.Len(t, AllConstructKinds(), 27)
}

func TestParseConstructKind(t *testing.T) {
	tests := []struct {
		in   string
		want ConstructKind
	}{
		{"class", KindClass},
		{"StaticClass", KindStaticClass},
		{"static_class", KindStaticClass},
		{"local-variable", KindLocalVariable},
		{"7", KindField},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConstructKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseConstructKind("gadget")
	assert.Error(t, err)
	_, err = ParseConstructKind("99")
	assert.Error(t, err)
}

func TestConstructKindString(t *testing.T) {
	assert.Equal(t, "static_class", KindStaticClass.String())
	assert.Equal(t, "kind(42)", ConstructKind(42).String())
	assert.True(t, KindEnum.IsType())
	assert.False(t, KindMethod.IsType())
}

func TestModifiers(t *testing.T) {
	m := ModPublic | ModStatic
	assert.True(t, m.Has(ModPublic))
	assert.True(t, m.Has(ModPublic|ModStatic))
	assert.False(t, m.Has(ModPrivate))
	assert.Equal(t, "public|static", m.String())
	assert.Equal(t, "none", Modifiers(0).String())
}

func TestHighlightStyle(t *testing.T) {
	assert.Equal(t, 0, int(HighlightNone))
	assert.Equal(t, "BodyName", HighlightBodyName.String())

	s, err := ParseHighlightStyle("argumentname")
	require.NoError(t, err)
	assert.Equal(t, HighlightArgumentName, s)

	_, err = ParseHighlightStyle("Bold")
	assert.Error(t, err)
}

func TestTextMarshaling(t *testing.T) {
	data, err := json.Marshal(struct {
		Kind  ConstructKind  `json:"kind"`
		Mods  Modifiers      `json:"mods"`
		Style HighlightStyle `json:"style"`
	}{KindStaticClass, ModPublic | ModStatic, HighlightBodyName})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"static_class","mods":"public|static","style":"BodyName"}`, string(data))

	var back struct {
		Kind  ConstructKind  `json:"kind"`
		Mods  Modifiers      `json:"mods"`
		Style HighlightStyle `json:"style"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, KindStaticClass, back.Kind)
	assert.Equal(t, ModPublic|ModStatic, back.Mods)
	assert.Equal(t, HighlightBodyName, back.Style)

	var m Modifiers
	assert.Error(t, m.UnmarshalText([]byte("public|bogus")))
	require.NoError(t, m.UnmarshalText([]byte("none")))
	assert.Equal(t, Modifiers(0), m)
}
