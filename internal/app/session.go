// Package app wires the drawing surface, processor and results of one
// drawing step together and publishes its lifecycle as events.
package app

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"psoriasis-draw/internal/config"
	bitmap "psoriasis-draw/internal/image"
	"psoriasis-draw/internal/pixel"
	"psoriasis-draw/internal/processor"
	"psoriasis-draw/internal/surface"
	"psoriasis-draw/internal/zone"
	"psoriasis-draw/pkg/geometry"
)

// EventType identifies different session events.
type EventType int

const (
	// EventDrawComplete carries the finished surface.Stroke.
	EventDrawComplete EventType = iota
	// EventMaskApplied carries the aspect-fit geometry.Rect.
	EventMaskApplied
	// EventProcessingFinished fires whenever background work drains.
	EventProcessingFinished
	// EventStepComplete carries the *StepSummary.
	EventStepComplete
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Session is one drawing step: a body-region mask and zone map, the surface
// the participant draws on and the processor that turns the drawing into
// results.
type Session struct {
	mu sync.RWMutex

	ID     string
	StepID string

	// IsolateMask keeps only the exact fill color pixels of the mask image,
	// dropping outlines and shading drawn on the silhouette.
	IsolateMask bool

	cfg    *config.Config
	zones  zone.Map
	mask   image.Image
	proc   *processor.Processor
	logger *logrus.Logger

	surface   *surface.Masked
	viewSize  geometry.Size
	aspectFit geometry.Rect

	listeners map[EventType][]EventListener
}

// StepSummary is what a completed step produced.
type StepSummary struct {
	SessionID      string                    `json:"sessionId"`
	StepID         string                    `json:"stepId"`
	SelectedPixels int                       `json:"selectedPixels"`
	TotalPixels    int                       `json:"totalPixels"`
	Coverage       float64                   `json:"coverage"`
	ColorCoverage  float64                   `json:"colorCoverage"`
	SelectedZones  []zone.SelectedIdentifier `json:"selectedZones"`
	ImagePath      string                    `json:"imagePath,omitempty"`

	// DrawingBounds encloses every drawn point, in zone map coordinates.
	DrawingBounds geometry.Rect `json:"drawingBounds"`
}

// NewSession creates a session for stepID. mask is the region silhouette at
// its intrinsic size; zones are authored against zones.ImageSize.
func NewSession(stepID string, cfg *config.Config, zones zone.Map, mask image.Image, proc *processor.Processor, logger *logrus.Logger) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Session{
		ID:        uuid.NewString(),
		StepID:    stepID,
		cfg:       cfg,
		zones:     zones,
		mask:      mask,
		proc:      proc,
		logger:    logger,
		listeners: make(map[EventType][]EventListener),
	}
	proc.Registry().OnFinished(func() {
		s.Emit(EventProcessingFinished, nil)
	})
	return s
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Processor returns the session's processor.
func (s *Session) Processor() *processor.Processor {
	return s.proc
}

// imageSize is the space zone coordinates are expressed in.
func (s *Session) imageSize() geometry.Size {
	if !s.zones.ImageSize.IsEmpty() {
		return s.zones.ImageSize
	}
	b := s.mask.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

// Layout sizes the drawing surface to viewSize and applies the mask at the
// aspect-fit position of the region image. EventMaskApplied fires once the
// mask is in place.
func (s *Session) Layout(viewSize geometry.Size) error {
	if s.mask == nil || s.mask.Bounds().Empty() {
		return fmt.Errorf("layout: %w", pixel.ErrDecode)
	}
	if viewSize.IsEmpty() {
		return fmt.Errorf("layout: empty view size")
	}
	b := s.mask.Bounds()
	aspectFit := geometry.CalculateAspectFit(float64(b.Dx()), float64(b.Dy()), viewSize.Width, viewSize.Height)

	mask := s.mask
	if s.IsolateMask {
		isolated, err := pixel.IsolateSilhouette(mask, s.cfg.Fill())
		if err != nil {
			s.logger.WithError(err).Warn("Could not isolate mask silhouette, using it as is")
		} else {
			mask = isolated
		}
	}

	var err error
	qerr := s.proc.Main().Sync(func() {
		surf := surface.New(viewSize)
		surf.SetLineWidth(s.cfg.LineWidth)
		surf.SetLineColor(s.cfg.Selection())
		surf.OnDrawComplete(func(st surface.Stroke) {
			s.Emit(EventDrawComplete, st)
		})
		if err = surf.ApplyMask(mask, aspectFit); err != nil {
			return
		}
		s.mu.Lock()
		s.surface = surf
		s.viewSize = viewSize
		s.aspectFit = aspectFit
		s.mu.Unlock()
	})
	if qerr != nil {
		return qerr
	}
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"identifier": s.StepID,
		"width":      viewSize.Width,
		"height":     viewSize.Height,
	}).Debug("Mask applied")
	s.Emit(EventMaskApplied, aspectFit)
	return nil
}

// AspectFit returns the rectangle the region image occupies in the view.
func (s *Session) AspectFit() geometry.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aspectFit
}

// ZoneFrames returns each zone's rectangle in view coordinates, in zone order.
func (s *Session) ZoneFrames() []geometry.Rect {
	aspectFit := s.AspectFit()
	imageSize := s.imageSize()
	frames := make([]geometry.Rect, len(s.zones.Zones))
	for i, z := range s.zones.Zones {
		frames[i] = geometry.TranslateRectToAspectFit(imageSize, aspectFit, z.Rect())
	}
	return frames
}

// Draw runs fn with the surface on the main queue. It returns
// surface.ErrMaskNotReady before Layout.
func (s *Session) Draw(fn func(surface.Surface)) error {
	s.mu.RLock()
	surf := s.surface
	s.mu.RUnlock()
	if surf == nil {
		return surface.ErrMaskNotReady
	}
	return s.proc.Main().Sync(func() { fn(surf) })
}

// Restore replaces the drawing with strokes recorded earlier, e.g. from a
// file written by surface.EncodeStrokes.
func (s *Session) Restore(strokes []surface.Stroke) error {
	s.mu.RLock()
	surf := s.surface
	s.mu.RUnlock()
	if surf == nil {
		return surface.ErrMaskNotReady
	}
	return s.proc.Main().Sync(func() { surf.SetStrokes(strokes) })
}

// Complete finishes the step: it snapshots the drawing and computes the
// selected pixel count, the full-coverage baseline, the coverage percentage
// and the selected zones, saves the drawing and waits for all of it. Without
// an applied mask nothing is attempted and surface.ErrMaskNotReady is
// returned.
func (s *Session) Complete(ctx context.Context) (*StepSummary, error) {
	s.mu.RLock()
	surf := s.surface
	aspectFit := s.aspectFit
	s.mu.RUnlock()
	if surf == nil {
		return nil, surface.ErrMaskNotReady
	}

	var (
		snapshot  *image.RGBA
		points    []geometry.Point2D
		lineWidth float64
		err       error
	)
	if qerr := s.proc.Main().Sync(func() {
		if !surf.MaskReady() {
			err = surface.ErrMaskNotReady
			return
		}
		snapshot, err = surf.Render()
		points = surf.DrawPoints()
		lineWidth = surf.LineWidth()
	}); qerr != nil {
		return nil, qerr
	}
	if err != nil {
		return nil, err
	}

	coverageCh := s.proc.ComputeCoverage(s.StepID+processor.SelectedPixelsSuffix, snapshot, nil)
	zonesCh := s.proc.ComputeSelectedZones(s.StepID+processor.SelectedZonesSuffix, s.zones, aspectFit, s.imageSize(), points, lineWidth)
	imageCh := s.proc.AttachImage(s.StepID, snapshot, s.cfg.OutputDir, bitmap.FormatPNG)

	total, err := s.proc.ComputeFullCoverage(ctx, s.StepID, surf)
	if err != nil {
		return nil, fmt.Errorf("full coverage: %w", err)
	}

	summary := &StepSummary{SessionID: s.ID, StepID: s.StepID, TotalPixels: total}
	select {
	case c := <-coverageCh:
		summary.SelectedPixels = c.Count
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case m := <-zonesCh:
		summary.SelectedZones = m.SelectedIdentifiers()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-imageCh:
		if r.Err == nil {
			summary.ImagePath = r.File.Path
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if len(points) > 0 {
		if inv, ok := geometry.AspectFitTransform(s.imageSize(), aspectFit).Inverse(); ok {
			imagePoints := make([]geometry.Point2D, len(points))
			for i, p := range points {
				imagePoints[i] = inv.Apply(p)
			}
			summary.DrawingBounds = geometry.BoundingBox(imagePoints)
		}
	}
	summary.Coverage = processor.Percent(processor.Fraction(summary.SelectedPixels, total))
	if f, err := pixel.ColorCoverage(snapshot, s.cfg.Selection(), pixel.DefaultColorThreshold); err == nil {
		summary.ColorCoverage = processor.Percent(f)
	}
	if err := s.proc.Main().Sync(func() {
		s.proc.Results().Append(processor.AnswerResult{
			Identifier: s.StepID + processor.CoverageSuffix,
			Type:       processor.AnswerDecimal,
			Value:      processor.Fraction(summary.SelectedPixels, total),
		})
	}); err != nil {
		return nil, err
	}

	if err := s.proc.Wait(ctx); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"identifier": s.StepID,
		"pixels":     summary.SelectedPixels,
	}).Infof("Step complete with %.1f%% coverage", summary.Coverage)
	s.Emit(EventStepComplete, summary)
	return summary, nil
}
