package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolvedType(t *testing.T) {
	tests := []struct {
		in   string
		want ResolvedType
	}{
		{"int", ResolvedType{Kind: Int}},
		{"INTEGER", ResolvedType{Kind: Int}},
		{"?string", ResolvedType{Kind: String, Nullable: true}},
		{"datetime?", ResolvedType{Kind: DateTime, Nullable: true}},
		{"decimal(10,2)", ResolvedType{Kind: Float}},
		{"blob", ResolvedType{Kind: Bytes}},
		{"mixed", UnknownNullable},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResolvedType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseResolvedType("money")
	assert.Error(t, err)
}

func TestWiden(t *testing.T) {
	assert.Equal(t, Int, Widen(Int, Int))
	assert.Equal(t, Float, Widen(Int, Float))
	assert.Equal(t, Float, Widen(Float, Int))
	assert.Equal(t, Unknown, Widen(Int, String))
	assert.Equal(t, Unknown, Widen(DateTime, Bytes))
}

func TestParseCardinality(t *testing.T) {
	for tag, want := range map[string]Cardinality{
		":one":      One,
		"many":      Many,
		":affected": Affected,
		":exec":     Affected,
		":execrows": Affected,
	} {
		got, err := ParseCardinality(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, want, got, tag)
	}

	_, err := ParseCardinality(":batch")
	assert.Error(t, err)
	assert.True(t, One.ReturnsRows())
	assert.False(t, Affected.ReturnsRows())
}

func TestResolvedTypeString(t *testing.T) {
	assert.Equal(t, "int!", ResolvedType{Kind: Int}.String())
	assert.Equal(t, "unknown?", UnknownNullable.String())
}
