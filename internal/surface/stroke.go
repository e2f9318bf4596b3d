package surface

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"math"

	"golang.org/x/image/vector"

	"psoriasis-draw/pkg/colorutil"
	"psoriasis-draw/pkg/geometry"
)

// Stroke is the point history of one continuous gesture together with the
// pen it was drawn with. Fill marks the synthetic stroke produced by FillAll,
// which covers the whole surface regardless of its points.
type Stroke struct {
	Points []geometry.Point2D
	Color  color.RGBA
	Width  float64
	Fill   bool
}

type strokeJSON struct {
	Points []geometry.Point2D `json:"points"`
	Color  string             `json:"color"`
	Width  float64            `json:"width"`
	Fill   bool               `json:"fill,omitempty"`
}

// MarshalJSON encodes the color as a hex string.
func (s Stroke) MarshalJSON() ([]byte, error) {
	return json.Marshal(strokeJSON{
		Points: s.Points,
		Color:  colorutil.Hex(s.Color),
		Width:  s.Width,
		Fill:   s.Fill,
	})
}

// UnmarshalJSON decodes a stroke written by MarshalJSON.
func (s *Stroke) UnmarshalJSON(data []byte) error {
	var raw strokeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c, err := colorutil.ParseHex(raw.Color)
	if err != nil {
		return err
	}
	*s = Stroke{Points: raw.Points, Color: c, Width: raw.Width, Fill: raw.Fill}
	return nil
}

// EncodeStrokes writes a drawing as JSON so it can be restored later.
func EncodeStrokes(w io.Writer, strokes []Stroke) error {
	if strokes == nil {
		strokes = []Stroke{}
	}
	if err := json.NewEncoder(w).Encode(strokes); err != nil {
		return fmt.Errorf("failed to encode strokes: %w", err)
	}
	return nil
}

// DecodeStrokes reads a drawing written by EncodeStrokes.
func DecodeStrokes(r io.Reader) ([]Stroke, error) {
	var strokes []Stroke
	if err := json.NewDecoder(r).Decode(&strokes); err != nil {
		return nil, fmt.Errorf("failed to decode strokes: %w", err)
	}
	return strokes, nil
}

// addStroke adds the outline of a round-capped, round-joined polyline to z.
// Every piece (one quad per segment, one disc per point) is wound the same
// way, so where pieces overlap the rasterizer's clamped coverage gives their
// union instead of cancelling out.
func addStroke(z *vector.Rasterizer, points []geometry.Point2D, width float64) {
	r := width / 2
	if r <= 0 || len(points) == 0 {
		return
	}
	for i, p := range points {
		addDisc(z, p, r)
		if i == 0 {
			continue
		}
		addSegment(z, points[i-1], p, r)
	}
}

func addSegment(z *vector.Rasterizer, p0, p1 geometry.Point2D, r float64) {
	d := p1.Sub(p0)
	length := math.Hypot(d.X, d.Y)
	if length == 0 {
		return
	}
	n := geometry.NewPoint2D(-d.Y/length*r, d.X/length*r)

	a := p0.Add(n)
	b := p1.Add(n)
	c := p1.Sub(n)
	e := p0.Sub(n)
	z.MoveTo(float32(a.X), float32(a.Y))
	z.LineTo(float32(b.X), float32(b.Y))
	z.LineTo(float32(c.X), float32(c.Y))
	z.LineTo(float32(e.X), float32(e.Y))
	z.ClosePath()
}

// addDisc approximates a circle with a polygon, walking the angle downwards
// to match the winding of addSegment.
func addDisc(z *vector.Rasterizer, c geometry.Point2D, r float64) {
	steps := int(math.Max(16, math.Ceil(r*4)))
	z.MoveTo(float32(c.X+r), float32(c.Y))
	for i := 1; i < steps; i++ {
		theta := -2 * math.Pi * float64(i) / float64(steps)
		z.LineTo(float32(c.X+r*math.Cos(theta)), float32(c.Y+r*math.Sin(theta)))
	}
	z.ClosePath()
}

// addFill covers the whole w x h raster, wound like addSegment.
func addFill(z *vector.Rasterizer, w, h int) {
	z.MoveTo(0, 0)
	z.LineTo(0, float32(h))
	z.LineTo(float32(w), float32(h))
	z.LineTo(float32(w), 0)
	z.ClosePath()
}
