package capi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFormatSplits(t *testing.T) {
	s := newTestState(t)

	d := s.CompileFormat("ii|i:pow", nil)
	assert.Equal(t, 2, d.Min())
	assert.Equal(t, 3, d.Max())
	assert.Equal(t, 3, d.MaxPositional())
	assert.Equal(t, "pow()", d.funcName())

	d = s.CompileFormat("O|O$O:get", []string{"key", "default", "strict"})
	assert.Equal(t, 1, d.Min())
	assert.Equal(t, 3, d.Max())
	assert.Equal(t, 2, d.MaxPositional())
}

func TestCompileFormatNesting(t *testing.T) {
	s := newTestState(t)

	d := s.CompileFormat("(ii)s", nil)
	require.Equal(t, 2, d.Max())
	require.NotNil(t, d.items[0].nested)
	assert.Equal(t, 2, d.items[0].nested.Max())
}

func TestCompileFormatCaches(t *testing.T) {
	s := newTestState(t)

	d1 := s.CompileFormat("is#", nil)
	d2 := s.CompileFormat("is#", nil)
	assert.Same(t, d1, d2)

	// A different keyword list compiles separately.
	d3 := s.CompileFormat("is#", []string{"a", "b"})
	assert.NotSame(t, d1, d3)
}

func TestCompileFormatFatal(t *testing.T) {
	s := newTestState(t)

	cases := []struct {
		format   string
		keywords []string
	}{
		{"(ii", nil},
		{"ii)", nil},
		{"i|i|i", nil},
		{"$i", nil},
		{"i|$i$i", nil},
		{"w", nil},
		{"ex", nil},
		{"q", nil},
		{"(i|i)", nil},
		{"ii", []string{"a"}},
		{"i", []string{"a", "b"}},
		{"(ii)", []string{"pair"}},
		{"ii", []string{"a", ""}},
	}
	for _, tc := range cases {
		tc := tc
		assert.Panics(t, func() { s.CompileFormat(tc.format, tc.keywords) },
			"format %q keywords %v", tc.format, tc.keywords)
	}
}
