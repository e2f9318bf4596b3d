// Package image provides bitmap loading, encoding, resizing and compositing.
package image

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrDecode wraps every failure to decode image data, including a file that
// is still being written.
var ErrDecode = errors.New("failed to decode image")

// Format selects the encoding used when persisting a bitmap.
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
)

// DefaultJPEGQuality is used when Save is given a quality outside 1..100.
const DefaultJPEGQuality = 90

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	default:
		return "png"
	}
}

// Ext returns the file extension (without dot) for the format.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Load opens and decodes the image at path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

// Decode decodes an image in any supported format.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatJPEG:
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return png.Encode(w, img)
	}
}

// FilePath returns where Save writes the bitmap for identifier.
func FilePath(dir, identifier string, format Format) string {
	return filepath.Join(dir, identifier+"."+format.Ext())
}

// Save encodes img into dir/<identifier>.<ext>, replacing any previous file,
// and returns the written path.
func Save(img image.Image, dir, identifier string, format Format, quality int) (string, error) {
	if identifier == "" {
		return "", errors.New("image: empty identifier")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := FilePath(dir, identifier, format)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to delete previous image: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, img, format, quality); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
