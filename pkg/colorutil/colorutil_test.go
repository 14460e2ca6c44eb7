package colorutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp16(t *testing.T) {
	tests := []struct {
		in   float64
		want uint16
	}{
		{-12.5, 0},
		{0, 0},
		{0.9, 0},
		{499.99, 499},
		{65534.7, 65534},
		{65535, 65535},
		{1e9, 65535},
		{math.NaN(), 0},
		{math.Inf(1), 65535},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clamp16(tt.in), "Clamp16(%v)", tt.in)
	}
}

func TestFormatTriple(t *testing.T) {
	assert.Equal(t, "(500.0, 50.0, 49.5)", FormatTriple([3]float64{500, 50, 49.5}))
}
