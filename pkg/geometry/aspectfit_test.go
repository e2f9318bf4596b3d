package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateAspectFit(t *testing.T) {
	tests := []struct {
		name         string
		imageW       float64
		imageH       float64
		viewW, viewH float64
		want         Rect
	}{
		{"taller image letterboxed horizontally", 100, 150, 300, 300, Rect{X: 50, Y: 0, Width: 200, Height: 300}},
		{"wider image letterboxed vertically", 150, 100, 300, 300, Rect{X: 0, Y: 50, Width: 300, Height: 200}},
		{"equal sizes", 300, 300, 300, 300, Rect{X: 0, Y: 0, Width: 300, Height: 300}},
		{"same ratio scaled", 100, 200, 200, 400, Rect{X: 0, Y: 0, Width: 200, Height: 400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateAspectFit(tt.imageW, tt.imageH, tt.viewW, tt.viewH)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateAspectFitPortraitView(t *testing.T) {
	got := CalculateAspectFit(326, 412, 375, 600)
	wantH := 375.0 * 412.0 / 326.0
	assert.Equal(t, 0.0, got.X)
	assert.Equal(t, 375.0, got.Width)
	assert.InDelta(t, wantH, got.Height, 1e-9)
	assert.InDelta(t, (600-wantH)/2, got.Y, 1e-9)
}

func TestAspectFitMatchesCalculate(t *testing.T) {
	got := AspectFit(NewSize(100, 150), NewSize(300, 300))
	assert.Equal(t, CalculateAspectFit(100, 150, 300, 300), got)
}

func TestTranslateCenterPointToAspectFit(t *testing.T) {
	leadingTop, size := TranslateCenterPointToAspectFit(
		NewSize(100, 150),
		NewRect(50, 0, 200, 300),
		NewPoint2D(10, 10),
		NewSize(4, 4),
	)
	assert.Equal(t, NewPoint2D(66, 16), leadingTop)
	assert.Equal(t, NewSize(8, 8), size)
}

func TestTranslateRectToAspectFit(t *testing.T) {
	// Zone at (8,8) sized 4x4 has center (10,10): same numbers as above.
	got := TranslateRectToAspectFit(NewSize(100, 150), NewRect(50, 0, 200, 300), NewRect(8, 8, 4, 4))
	assert.Equal(t, NewRect(66, 16, 8, 8), got)
}

func TestAspectFitTransformAgreesWithTranslate(t *testing.T) {
	imageSize := NewSize(100, 150)
	fit := NewRect(50, 0, 200, 300)
	tr := AspectFitTransform(imageSize, fit)

	p := tr.Apply(NewPoint2D(10, 10))
	assert.InDelta(t, 70, p.X, 1e-9)
	assert.InDelta(t, 20, p.Y, 1e-9)

	inv, ok := tr.Inverse()
	assert.True(t, ok)
	back := inv.Apply(p)
	assert.InDelta(t, 10, back.X, 1e-9)
	assert.InDelta(t, 10, back.Y, 1e-9)
}
