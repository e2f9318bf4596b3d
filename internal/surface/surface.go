// Package surface implements the freehand drawing surface that participants
// paint their affected skin on. Output is clipped to a body silhouette mask
// and rendered to a bitmap for pixel counting.
package surface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	bitmap "psoriasis-draw/internal/image"
	"psoriasis-draw/pkg/colorutil"
	"psoriasis-draw/pkg/geometry"
)

// ErrMaskNotReady is returned when a surface is rendered before a mask has
// been applied to it.
var ErrMaskNotReady = errors.New("surface: mask not ready")

// DefaultLineWidth is the pen width in surface points.
const DefaultLineWidth = 5.0

// Surface is a drawable area that records strokes and renders them through a
// mask. Implementations are not safe for concurrent use; every call must be
// made from the render queue.
type Surface interface {
	BeginStroke(p geometry.Point2D)
	ExtendStroke(p geometry.Point2D)
	EndStroke()
	Undo()
	Clear()
	ApplyMask(mask image.Image, frame geometry.Rect) error
	FillAll(c color.RGBA)
	Render() (*image.RGBA, error)
	Strokes() []Stroke
	DrawPoints() []geometry.Point2D
	Size() geometry.Size
	MaskReady() bool
}

// Masked is the raster Surface implementation.
type Masked struct {
	width, height int

	lineWidth float64
	lineColor color.RGBA

	strokes []Stroke
	current *Stroke

	mask      *image.Alpha
	frame     geometry.Rect
	fillCount int

	onDrawComplete func(Stroke)
}

var _ Surface = (*Masked)(nil)

// New creates a surface of the given size, rounded up to whole pixels.
func New(size geometry.Size) *Masked {
	w, h := size.Pixels()
	return &Masked{
		width:     max(w, 0),
		height:    max(h, 0),
		lineWidth: DefaultLineWidth,
		lineColor: colorutil.Selection,
	}
}

// SetLineWidth sets the pen width used by subsequent strokes.
func (s *Masked) SetLineWidth(w float64) {
	if w > 0 {
		s.lineWidth = w
	}
}

// SetLineColor sets the pen color used by subsequent strokes.
func (s *Masked) SetLineColor(c color.RGBA) {
	s.lineColor = c
}

// LineWidth returns the current pen width.
func (s *Masked) LineWidth() float64 {
	return s.lineWidth
}

// OnDrawComplete registers the listener notified when a stroke ends.
func (s *Masked) OnDrawComplete(fn func(Stroke)) {
	s.onDrawComplete = fn
}

// BeginStroke starts a new stroke at p. A stroke left open is finished first.
func (s *Masked) BeginStroke(p geometry.Point2D) {
	if s.current != nil {
		s.EndStroke()
	}
	s.current = &Stroke{
		Points: []geometry.Point2D{p},
		Color:  s.lineColor,
		Width:  s.lineWidth,
	}
}

// ExtendStroke appends p to the open stroke. Without one it starts a stroke.
func (s *Masked) ExtendStroke(p geometry.Point2D) {
	if s.current == nil {
		s.BeginStroke(p)
		return
	}
	s.current.Points = append(s.current.Points, p)
}

// EndStroke finalizes the open stroke and notifies the draw-complete listener.
func (s *Masked) EndStroke() {
	if s.current == nil {
		return
	}
	st := *s.current
	s.current = nil
	s.strokes = append(s.strokes, st)
	if s.onDrawComplete != nil {
		s.onDrawComplete(st)
	}
}

// Undo removes the most recently finished stroke.
func (s *Masked) Undo() {
	if len(s.strokes) == 0 {
		return
	}
	s.strokes[len(s.strokes)-1] = Stroke{}
	s.strokes = s.strokes[:len(s.strokes)-1]
}

// Clear removes every stroke, including an open one.
func (s *Masked) Clear() {
	s.strokes = nil
	s.current = nil
}

// SetStrokes replaces the drawing, e.g. with one restored from disk.
func (s *Masked) SetStrokes(strokes []Stroke) {
	s.current = nil
	s.strokes = append([]Stroke(nil), strokes...)
}

// Strokes returns a copy of the finished strokes in drawing order.
func (s *Masked) Strokes() []Stroke {
	out := make([]Stroke, len(s.strokes))
	copy(out, s.strokes)
	return out
}

// DrawPoints returns every recorded point of every user stroke, including
// points the mask hides. Fill strokes contribute none.
func (s *Masked) DrawPoints() []geometry.Point2D {
	var pts []geometry.Point2D
	for _, st := range s.strokes {
		if !st.Fill {
			pts = append(pts, st.Points...)
		}
	}
	if s.current != nil {
		pts = append(pts, s.current.Points...)
	}
	return pts
}

// Size returns the surface size in pixels.
func (s *Masked) Size() geometry.Size {
	return geometry.NewSize(float64(s.width), float64(s.height))
}

// Frame returns the rectangle the mask was applied at.
func (s *Masked) Frame() geometry.Rect {
	return s.frame
}

// MaskReady reports whether ApplyMask has succeeded.
func (s *Masked) MaskReady() bool {
	return s.mask != nil
}

// FillCount returns the number of FillAll passes performed on this surface.
func (s *Masked) FillCount() int {
	return s.fillCount
}

// ApplyMask clips rendering to the non-transparent pixels of mask, scaled
// into frame. Everything outside frame is clipped as well.
func (s *Masked) ApplyMask(mask image.Image, frame geometry.Rect) error {
	if mask == nil || mask.Bounds().Empty() {
		return fmt.Errorf("apply mask: empty mask image")
	}
	x0 := int(math.Round(frame.X))
	y0 := int(math.Round(frame.Y))
	w := int(math.Round(frame.Width))
	h := int(math.Round(frame.Height))
	if w <= 0 || h <= 0 {
		return fmt.Errorf("apply mask: empty frame %vx%v", frame.Width, frame.Height)
	}

	scaled := bitmap.ResizeNearest(mask, w, h)
	alpha := image.NewAlpha(image.Rect(0, 0, s.width, s.height))
	draw.Draw(alpha, image.Rect(x0, y0, x0+w, y0+h), scaled, image.Point{}, draw.Src)

	s.mask = alpha
	s.frame = frame
	return nil
}

// FillAll records a synthetic stroke covering the whole surface. Rendered
// through the mask it selects exactly the pixels a participant could reach.
func (s *Masked) FillAll(c color.RGBA) {
	if s.current != nil {
		s.EndStroke()
	}
	s.fillCount++
	s.strokes = append(s.strokes, Stroke{Color: c, Fill: true})
}

// Render rasterizes the strokes and clips the result to the mask. Pixels
// nothing was drawn on, or that the mask hides, are clear black.
func (s *Masked) Render() (*image.RGBA, error) {
	if s.mask == nil {
		return nil, ErrMaskNotReady
	}
	bounds := image.Rect(0, 0, s.width, s.height)
	canvas := image.NewRGBA(bounds)

	strokes := s.strokes
	if s.current != nil {
		strokes = append(s.Strokes(), *s.current)
	}
	for _, st := range strokes {
		z := vector.NewRasterizer(s.width, s.height)
		if st.Fill {
			addFill(z, s.width, s.height)
		} else {
			addStroke(z, st.Points, st.Width)
		}
		z.Draw(canvas, bounds, image.NewUniform(st.Color), image.Point{})
	}

	out := image.NewRGBA(bounds)
	draw.DrawMask(out, bounds, canvas, image.Point{}, s.mask, image.Point{}, draw.Over)
	return out, nil
}
