package image

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Composite combines multiple bitmaps into a single image.
type Composite struct {
	Width     int
	Height    int
	Layers    []*CompositeLayer
	BackColor color.Color
}

// CompositeLayer places one bitmap in the composite.
type CompositeLayer struct {
	Image   image.Image
	OffsetX int
	OffsetY int
	Opacity float64 // 0.0 - 1.0
}

// NewComposite creates a new transparent Composite with the specified dimensions.
func NewComposite(width, height int) *Composite {
	return &Composite{
		Width:     width,
		Height:    height,
		BackColor: color.Transparent,
	}
}

// AddLayer adds a fully opaque layer to the composite.
func (c *Composite) AddLayer(img image.Image, offsetX, offsetY int) {
	c.Layers = append(c.Layers, &CompositeLayer{
		Image:   img,
		OffsetX: offsetX,
		OffsetY: offsetY,
		Opacity: 1.0,
	})
}

// Render produces the final composited image. Layers are drawn in order with
// source-over blending.
func (c *Composite) Render() *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))

	draw.Draw(result, result.Bounds(), &image.Uniform{c.BackColor}, image.Point{}, draw.Src)

	for _, cl := range c.Layers {
		if cl.Image == nil || cl.Opacity <= 0 {
			continue
		}
		src := cl.Image
		sb := src.Bounds()
		dr := image.Rect(cl.OffsetX, cl.OffsetY, cl.OffsetX+sb.Dx(), cl.OffsetY+sb.Dy())
		if cl.Opacity >= 1 {
			draw.Draw(result, dr, src, sb.Min, draw.Over)
			continue
		}
		alpha := uint8(clamp(cl.Opacity, 0, 1) * 255)
		draw.DrawMask(result, dr, src, sb.Min, image.NewUniform(color.Alpha{A: alpha}), image.Point{}, draw.Over)
	}

	return result
}

// Vertical spacing between the above- and below-the-waist silhouettes,
// expressed as a fraction of the tile width.
const (
	FrontVerticalSpacing = 82.0 / 171.67
	BackVerticalSpacing  = 84.0 / 171.67
)

// BodySummary lays the four body-region drawings out as one image: the front
// pair on the left, the back pair on the right, each lower half tucked up
// under its upper half by the spacing ratio. Every tile is scaled to the width
// of the widest input.
func BodySummary(aboveFront, belowFront, aboveBack, belowBack image.Image) *image.RGBA {
	tileW := 0
	for _, img := range []image.Image{aboveFront, belowFront, aboveBack, belowBack} {
		if img != nil {
			tileW = max(tileW, img.Bounds().Dx())
		}
	}
	if tileW == 0 {
		return image.NewRGBA(image.Rectangle{})
	}

	type column struct {
		above, below image.Image
		h, belowY    int
	}
	stack := func(above, below image.Image, spacing float64) column {
		col := column{above: fitWidth(above, tileW), below: fitWidth(below, tileW)}
		aboveH := height(col.above)
		col.belowY = max(0, aboveH-int(math.Round(spacing*float64(tileW))))
		col.h = max(aboveH, col.belowY+height(col.below))
		return col
	}
	front := stack(aboveFront, belowFront, FrontVerticalSpacing)
	back := stack(aboveBack, belowBack, BackVerticalSpacing)

	c := NewComposite(tileW*2, max(front.h, back.h))
	for i, col := range []column{front, back} {
		x := i * tileW
		if col.above != nil {
			c.AddLayer(col.above, x, 0)
		}
		if col.below != nil {
			c.AddLayer(col.below, x, col.belowY)
		}
	}
	return c.Render()
}

func fitWidth(img image.Image, w int) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() == w {
		return img
	}
	h := int(math.Round(float64(b.Dy()) * float64(w) / float64(b.Dx())))
	return Resize(img, w, h)
}

func height(img image.Image) int {
	if img == nil {
		return 0
	}
	return img.Bounds().Dy()
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
