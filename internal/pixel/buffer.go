// Package pixel decodes bitmaps into raw premultiplied RGBA8 buffers and runs
// exact, row-major passes over every pixel for counting and masking.
package pixel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"psoriasis-draw/pkg/colorutil"
)

// ErrDecode is returned when a bitmap cannot be turned into a pixel buffer.
var ErrDecode = errors.New("pixel: unable to decode bitmap")

// Buffer is a row-major premultiplied RGBA8 pixel buffer with its origin at
// the top-left corner. A Buffer is owned by one processing task at a time.
type Buffer struct {
	img *image.RGBA
}

// Decode draws img once into a fresh RGBA8 buffer.
func Decode(img image.Image) (*Buffer, error) {
	if img == nil {
		return nil, ErrDecode
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrDecode, b)
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Buffer{img: dst}, nil
}

// DecodeBytes decodes encoded image data (any registered format) into a buffer.
func DecodeBytes(data []byte) (*Buffer, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Decode(img)
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.img.Rect.Dx() }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.img.Rect.Dy() }

// Len returns the number of pixels.
func (b *Buffer) Len() int { return b.Width() * b.Height() }

// At returns the pixel at row, col.
func (b *Buffer) At(row, col int) colorutil.RGBA32 {
	i := row*b.img.Stride + col*4
	p := b.img.Pix[i : i+4 : i+4]
	return colorutil.Pack(p[0], p[1], p[2], p[3])
}

// Set writes the pixel at row, col.
func (b *Buffer) Set(row, col int, px colorutil.RGBA32) {
	i := row*b.img.Stride + col*4
	p := b.img.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = px.R(), px.G(), px.B(), px.A()
}

// Each visits every pixel once in row-major order.
func (b *Buffer) Each(visit func(px colorutil.RGBA32, row, col int)) {
	w, h := b.Width(), b.Height()
	for row := 0; row < h; row++ {
		line := b.img.Pix[row*b.img.Stride : row*b.img.Stride+w*4]
		for col := 0; col < w; col++ {
			p := line[col*4 : col*4+4 : col*4+4]
			visit(colorutil.Pack(p[0], p[1], p[2], p[3]), row, col)
		}
	}
}

// Image returns the buffer as an image sharing its pixels.
func (b *Buffer) Image() *image.RGBA { return b.img }

// Iterate decodes img and calls visit for every pixel in row-major order.
// Nothing is visited when decoding fails.
func Iterate(img image.Image, visit func(px colorutil.RGBA32, row, col int)) error {
	buf, err := Decode(img)
	if err != nil {
		return err
	}
	buf.Each(visit)
	return nil
}

// Transform decodes img, replaces every pixel with fn's result and returns the
// new image, which has the same dimensions as img.
func Transform(img image.Image, fn func(px colorutil.RGBA32, row, col int) colorutil.RGBA32) (*image.RGBA, error) {
	buf, err := Decode(img)
	if err != nil {
		return nil, err
	}
	w, h := buf.Width(), buf.Height()
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			buf.Set(row, col, fn(buf.At(row, col), row, col))
		}
	}
	return buf.img, nil
}

// IsSelected reports whether a rendered pixel was drawn on: anything other
// than fully transparent black.
func IsSelected(px colorutil.RGBA32) bool {
	return px != colorutil.ClearBlack32
}

// CountSelected counts the pixels of img accepted by isSelected. A nil
// classifier uses IsSelected.
func CountSelected(img image.Image, isSelected func(colorutil.RGBA32) bool) (int, error) {
	if isSelected == nil {
		isSelected = IsSelected
	}
	count := 0
	err := Iterate(img, func(px colorutil.RGBA32, _, _ int) {
		if isSelected(px) {
			count++
		}
	})
	return count, err
}

// IsolateSilhouette keeps only pixels exactly equal to body and makes
// everything else fully transparent.
func IsolateSilhouette(img image.Image, body color.RGBA) (*image.RGBA, error) {
	keep := colorutil.FromRGBA(body)
	return Transform(img, func(px colorutil.RGBA32, _, _ int) colorutil.RGBA32 {
		if px == keep {
			return px
		}
		return colorutil.ClearBlack32
	})
}

// DefaultColorThreshold is the squared unit-RGB distance under which an opaque
// pixel counts as the target color.
const DefaultColorThreshold = 0.3

// ColorCoverage returns the fraction of fully opaque pixels whose color is
// within threshold of target. Images without opaque pixels have zero coverage.
func ColorCoverage(img image.Image, target color.RGBA, threshold float64) (float64, error) {
	var total, selected int
	want := colorutil.FromRGBA(target)
	err := Iterate(img, func(px colorutil.RGBA32, _, _ int) {
		if px.A() != 0xFF {
			return
		}
		total++
		if px == want || colorutil.DistanceSq(px.RGBA(), target) < threshold {
			selected++
		}
	})
	if err != nil || total == 0 {
		return 0, err
	}
	return float64(selected) / float64(total), nil
}
