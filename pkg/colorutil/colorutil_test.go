package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackComponents(t *testing.T) {
	p := Pack(1, 2, 3, 4)
	assert.Equal(t, RGBA32(0x01020304), p)
	assert.Equal(t, uint8(1), p.R())
	assert.Equal(t, uint8(2), p.G())
	assert.Equal(t, uint8(3), p.B())
	assert.Equal(t, uint8(4), p.A())
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 4}, p.RGBA())
	assert.Equal(t, "#01020304", p.String())
}

func TestClearBlackIsZero(t *testing.T) {
	assert.Equal(t, RGBA32(0), ClearBlack32)
	assert.Equal(t, RGBA32(0xD1D1D1FF), BodyGray32)
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#FF0000", color.RGBA{R: 255, A: 255}},
		{"d1d1d1", BodyGray},
		{"#00000000", ClearBlack},
		{" #0A0B0C80 ", color.RGBA{R: 10, G: 11, B: 12, A: 128}},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseHex("#12345")
	assert.Error(t, err)
	_, err = ParseHex("#GGGGGG")
	assert.Error(t, err)
}

func TestHexRoundTrip(t *testing.T) {
	for _, c := range []color.RGBA{Selection, BodyGray, {R: 1, G: 2, B: 3, A: 4}} {
		got, err := ParseHex(Hex(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestDistanceSq(t *testing.T) {
	assert.Equal(t, 0.0, DistanceSq(Selection, Selection))
	assert.InDelta(t, 3.0, DistanceSq(Black, White), 1e-12)
}
