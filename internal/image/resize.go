package image

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Resize scales img to exactly w x h with Catmull-Rom resampling.
func Resize(img image.Image, w, h int) *image.RGBA {
	return scale(img, w, h, xdraw.CatmullRom)
}

// ResizeNearest scales img to exactly w x h without interpolation. Masks are
// resized this way so their alpha edges stay hard.
func ResizeNearest(img image.Image, w, h int) *image.RGBA {
	return scale(img, w, h, xdraw.NearestNeighbor)
}

func scale(img image.Image, w, h int, s xdraw.Scaler) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	if dst.Bounds().Empty() {
		return dst
	}
	s.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
