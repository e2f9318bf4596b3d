// Package colorutil provides the pixel value type and shared colors for the
// drawing and coverage code.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Common colors used throughout the application.
var (
	// ClearBlack is the sentinel for an untouched pixel: fully transparent black.
	ClearBlack = color.RGBA{R: 0, G: 0, B: 0, A: 0}
	// BodyGray is the fill color of the unselected body silhouette. Full coverage
	// passes draw with it so a stray rendered frame is not visually jarring.
	BodyGray  = color.RGBA{R: 209, G: 209, B: 209, A: 255}
	Selection = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// RGBA32 is one premultiplied RGBA8 pixel packed as 0xRRGGBBAA.
type RGBA32 uint32

// Pack builds an RGBA32 from premultiplied components.
func Pack(r, g, b, a uint8) RGBA32 {
	return RGBA32(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a))
}

// FromRGBA packs a premultiplied color.RGBA.
func FromRGBA(c color.RGBA) RGBA32 {
	return Pack(c.R, c.G, c.B, c.A)
}

func (p RGBA32) R() uint8 { return uint8(p >> 24) }
func (p RGBA32) G() uint8 { return uint8(p >> 16) }
func (p RGBA32) B() uint8 { return uint8(p >> 8) }
func (p RGBA32) A() uint8 { return uint8(p) }

// RGBA unpacks the pixel.
func (p RGBA32) RGBA() color.RGBA {
	return color.RGBA{R: p.R(), G: p.G(), B: p.B(), A: p.A()}
}

func (p RGBA32) String() string {
	return fmt.Sprintf("#%08X", uint32(p))
}

// Packed values of the common colors.
var (
	ClearBlack32 = FromRGBA(ClearBlack)
	BodyGray32   = FromRGBA(BodyGray)
)

// DistanceSq returns the squared distance between the RGB components of two
// colors in unit space (each channel in [0,1]).
func DistanceSq(a, b color.RGBA) float64 {
	dr := (float64(a.R) - float64(b.R)) / 255
	dg := (float64(a.G) - float64(b.G)) / 255
	db := (float64(a.B) - float64(b.B)) / 255
	return dr*dr + dg*dg + db*db
}

// ParseHex parses "#RRGGBB" or "#RRGGBBAA" (leading # optional).
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	if len(s) == 6 {
		v = v<<8 | 0xFF
	}
	return RGBA32(v).RGBA(), nil
}

// Hex formats c as "#RRGGBB", or "#RRGGBBAA" when not opaque.
func Hex(c color.RGBA) string {
	if c.A == 0xFF {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
