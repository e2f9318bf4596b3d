package processor

import (
	"image"
	"path/filepath"

	"github.com/google/uuid"

	bitmap "psoriasis-draw/internal/image"
)

// ImageResult is the outcome of AttachImage.
type ImageResult struct {
	File FileResult
	Err  error
}

// AttachImage writes img into dir in the background and records a file result
// under identifier. The write is tracked under the file name. An empty
// identifier gets a random one.
func (p *Processor) AttachImage(identifier string, img image.Image, dir string, format bitmap.Format) <-chan ImageResult {
	out := make(chan ImageResult, 1)
	if identifier == "" {
		identifier = uuid.NewString()
	}
	trackID := filepath.Base(bitmap.FilePath(dir, identifier, format))
	p.begin(trackID)
	p.onWork(func() {
		path, err := bitmap.Save(img, dir, identifier, format, p.quality)
		if err != nil {
			p.logger.WithError(err).WithField("identifier", identifier).Warn("Failed to save image")
			p.finish(trackID, nil)
			p.onMain(func() { out <- ImageResult{Err: err} })
			return
		}
		fr := FileResult{Identifier: identifier, Path: path, ContentType: format.ContentType()}
		p.finish(trackID, fr)
		p.onMain(func() { out <- ImageResult{File: fr} })
	})
	return out
}
