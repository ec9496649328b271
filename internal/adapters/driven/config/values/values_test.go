package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "sqlite", String("sqlite"))
	assert.Equal(t, "", String(8))
	assert.Equal(t, "", String(nil))
}

func TestInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{8, 8},
		{int64(12), 12},
		{" 6 ", 6},
		{"six", 0},
		{0.5, 0},
		{nil, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Int(tt.in), "%#v", tt.in)
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{0.75, 0.75},
		{3, 3},
		{int64(2), 2},
		{"0.95", 0.95},
		{"high", 0},
		{true, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Float(tt.in), 1e-9, "%#v", tt.in)
	}
}
