package processor

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"psoriasis-draw/internal/prefs"
	"psoriasis-draw/internal/surface"
	"psoriasis-draw/pkg/colorutil"
	"psoriasis-draw/pkg/geometry"
)

// ResolutionKey is the pixel resolution the user's drawings are rendered at.
type ResolutionKey struct {
	Width  int
	Height int
}

// KeyFor returns the resolution key of a surface size.
func KeyFor(size geometry.Size) ResolutionKey {
	w, h := size.Pixels()
	return ResolutionKey{Width: w, Height: h}
}

func (k ResolutionKey) String() string {
	return fmt.Sprintf("%dx%d", k.Width, k.Height)
}

// Size returns the key as a geometry size.
func (k ResolutionKey) Size() geometry.Size {
	return geometry.NewSize(float64(k.Width), float64(k.Height))
}

// SurfaceFactory builds the masked surface of a region at the given size. It
// is called on the main queue and must return a surface whose mask is applied.
type SurfaceFactory func(region string, size geometry.Size) (surface.Surface, error)

// BaselineKey returns the store key of the multi-region baseline for key.
func (p *Processor) BaselineKey(key ResolutionKey) string {
	return prefs.BaselineKey(p.namespace, key.Width, key.Height)
}

// CachedBaseline returns the stored baseline for key, if any region count in
// it is non-zero.
func (p *Processor) CachedBaseline(key ResolutionKey) ([]int, bool) {
	counts, ok := p.store.IntList(p.BaselineKey(key))
	if !ok || len(counts) == 0 {
		return nil, false
	}
	for _, c := range counts {
		if c > 0 {
			return counts, true
		}
	}
	return nil, false
}

// ComputeFullCoverageBaseline returns, for each region, the number of pixels
// a participant could possibly select at resolution key. Regions are filled,
// rendered and counted one after the other since they share the main queue.
// The list is cached under the resolution; later calls, and calls racing with
// one already computing, reuse it without filling again. It must not be
// called from the main or work queue.
func (p *Processor) ComputeFullCoverageBaseline(ctx context.Context, key ResolutionKey, regions []string, factory SurfaceFactory) ([]int, error) {
	storeKey := p.BaselineKey(key)
	return p.dedupe(ctx, storeKey, func() ([]int, error) {
		if counts, ok := p.CachedBaseline(key); ok {
			p.logger.WithFields(logrus.Fields{
				"width":  key.Width,
				"height": key.Height,
			}).Debug("Using cached full coverage baseline")
			p.record(AnswerResult{Identifier: BaselineIdentifier, Type: AnswerIntegerArray, Value: counts})
			return counts, nil
		}

		p.begin(BaselineIdentifier)
		counts := make([]int, 0, len(regions))
		for _, region := range regions {
			if err := ctx.Err(); err != nil {
				p.finish(BaselineIdentifier, nil)
				return nil, err
			}
			start := time.Now()
			n, err := p.fillAndCount(key, region, factory)
			if err != nil {
				p.finish(BaselineIdentifier, nil)
				return nil, fmt.Errorf("baseline for %s at %s: %w", region, key, err)
			}
			p.logger.WithFields(logrus.Fields{
				"region":  region,
				"pixels":  n,
				"width":   key.Width,
				"height":  key.Height,
				"elapsed": time.Since(start),
			}).Debug("Computed full coverage")
			counts = append(counts, n)
		}

		p.store.SetIntList(storeKey, counts)
		p.logger.WithFields(logrus.Fields{
			"width":  key.Width,
			"height": key.Height,
			"pixels": BaselineTotal(counts),
		}).Info("Stored full coverage baseline")
		p.finish(BaselineIdentifier, AnswerResult{Identifier: BaselineIdentifier, Type: AnswerIntegerArray, Value: counts})
		return counts, p.flush()
	})
}

func (p *Processor) fillAndCount(key ResolutionKey, region string, factory SurfaceFactory) (int, error) {
	var (
		snapshot *image.RGBA
		err      error
	)
	qerr := p.main.Sync(func() {
		var s surface.Surface
		s, err = factory(region, key.Size())
		if err != nil {
			return
		}
		if !s.MaskReady() {
			err = surface.ErrMaskNotReady
			return
		}
		s.FillAll(colorutil.BodyGray)
		p.fills.Add(1)
		snapshot, err = s.Render()
	})
	if qerr != nil {
		return 0, qerr
	}
	if err != nil {
		return 0, err
	}
	return p.count(snapshot)
}

// ComputeFullCoverage returns the full-coverage pixel count of a live surface,
// cached per step identifier and resolution. The fill is undone once the
// surface has been snapshotted. The count is recorded as an integer answer
// under id followed by TotalPixelCountSuffix.
func (p *Processor) ComputeFullCoverage(ctx context.Context, id string, s surface.Surface) (int, error) {
	var size geometry.Size
	if err := p.main.Sync(func() { size = s.Size() }); err != nil {
		return 0, err
	}
	w, h := size.Pixels()
	resultID := id + TotalPixelCountSuffix
	storeKey := fmt.Sprintf("%s%d%d", resultID, w, h)

	counts, err := p.dedupe(ctx, storeKey, func() ([]int, error) {
		if n, ok := p.store.Int(storeKey); ok && n > 0 {
			p.logger.WithFields(logrus.Fields{
				"identifier": resultID,
				"pixels":     n,
			}).Debug("Using cached full coverage")
			p.record(AnswerResult{Identifier: resultID, Type: AnswerInteger, Value: n})
			return []int{n}, nil
		}

		p.begin(resultID)
		var (
			snapshot *image.RGBA
			rerr     error
		)
		qerr := p.main.Sync(func() {
			if !s.MaskReady() {
				rerr = surface.ErrMaskNotReady
				return
			}
			s.FillAll(colorutil.BodyGray)
			p.fills.Add(1)
			snapshot, rerr = s.Render()
			s.Undo()
		})
		if qerr != nil {
			rerr = qerr
		}
		if rerr != nil {
			p.finish(resultID, nil)
			return nil, rerr
		}

		n, err := p.count(snapshot)
		if err != nil {
			p.finish(resultID, nil)
			return nil, err
		}
		p.store.SetInt(storeKey, n)
		p.finish(resultID, AnswerResult{Identifier: resultID, Type: AnswerInteger, Value: n})
		return []int{n}, p.flush()
	})
	if err != nil || len(counts) == 0 {
		return 0, err
	}
	return counts[0], nil
}

// record appends r on the main queue and waits for it.
func (p *Processor) record(r Result) {
	if err := p.main.Sync(func() { p.results.Append(r) }); err != nil {
		p.results.Append(r)
	}
}

// flush persists the store when it is file backed.
func (p *Processor) flush() error {
	if s, ok := p.store.(interface{ Save() error }); ok {
		if err := s.Save(); err != nil {
			return fmt.Errorf("save baseline cache: %w", err)
		}
	}
	return nil
}
