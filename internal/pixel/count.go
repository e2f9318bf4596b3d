//go:build !gocv

package pixel

import "image"

// CountNonZeroAlpha returns the number of pixels whose alpha is non-zero.
// Build with the gocv tag to count with OpenCV instead.
func CountNonZeroAlpha(img image.Image) (int, error) {
	buf, err := Decode(img)
	if err != nil {
		return 0, err
	}
	pix := buf.Image().Pix
	count := 0
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0 {
			count++
		}
	}
	return count, nil
}
