//go:build gocv

package pixel

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// CountNonZeroAlpha returns the number of pixels whose alpha is non-zero,
// counted by OpenCV over the alpha plane.
func CountNonZeroAlpha(img image.Image) (int, error) {
	buf, err := Decode(img)
	if err != nil {
		return 0, err
	}
	rgba := buf.Image()
	mat, err := gocv.NewMatFromBytes(buf.Height(), buf.Width(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return 0, fmt.Errorf("failed to wrap pixel buffer: %w", err)
	}
	defer mat.Close()

	planes := gocv.Split(mat)
	defer func() {
		for _, p := range planes {
			p.Close()
		}
	}()
	return gocv.CountNonZero(planes[3]), nil
}
