package processor

import (
	"time"

	"github.com/sirupsen/logrus"

	"psoriasis-draw/internal/zone"
	"psoriasis-draw/pkg/geometry"
)

// SelectedZones marks each zone of m selected when any drawn point's brush
// footprint, a square of side strokeWidth centered on the point, touches the
// zone's rectangle translated into aspectFit. Zone order is preserved.
func SelectedZones(m zone.Map, aspectFit geometry.Rect, imageSize geometry.Size, points []geometry.Point2D, strokeWidth float64) zone.Map {
	footprints := make([]geometry.Rect, len(points))
	for i, pt := range points {
		footprints[i] = geometry.SquareAround(pt, strokeWidth)
	}

	selected := make(map[string]bool, len(m.Zones))
	for _, z := range m.Zones {
		rect := geometry.TranslateRectToAspectFit(imageSize, aspectFit, z.Rect())
		for _, fp := range footprints {
			if rect.ContainsRect(fp) || rect.Intersects(fp) {
				selected[z.Identifier] = true
				break
			}
		}
	}
	return m.WithSelection(selected)
}

// ComputeSelectedZones runs SelectedZones in the background and records the
// selection summary under id.
func (p *Processor) ComputeSelectedZones(id string, m zone.Map, aspectFit geometry.Rect, imageSize geometry.Size, points []geometry.Point2D, strokeWidth float64) <-chan zone.Map {
	out := make(chan zone.Map, 1)
	pts := append([]geometry.Point2D(nil), points...)
	p.begin(id)
	p.onWork(func() {
		start := time.Now()
		result := SelectedZones(m, aspectFit, imageSize, pts, strokeWidth)
		p.logger.WithFields(logrus.Fields{
			"identifier": id,
			"region":     m.Identifier,
			"elapsed":    time.Since(start),
		}).Debugf("Selected %d of %d zones", len(result.Selected()), len(result.Zones))

		p.finish(id, SelectedIdentifiersResult{
			Identifier: id,
			Selected:   result.SelectedIdentifiers(),
			RegionMap:  &result,
		})
		p.onMain(func() { out <- result })
	})
	return out
}
