package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/sirupsen/logrus"

	"psoriasis-draw/internal/config"
	bitmap "psoriasis-draw/internal/image"
	"psoriasis-draw/internal/processor"
	"psoriasis-draw/internal/retry"
	"psoriasis-draw/internal/surface"
	"psoriasis-draw/internal/zone"
	"psoriasis-draw/pkg/geometry"
)

// ImageLoader fetches the saved drawing of a region. ok is false while the
// image is not available yet.
type ImageLoader func(region string) (img image.Image, ok bool, err error)

// FileLoader loads region drawings saved by earlier steps from dir. A file
// that is missing or does not decode yet is reported as not available.
func FileLoader(dir string, format bitmap.Format, logger *logrus.Logger) ImageLoader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(region string) (image.Image, bool, error) {
		img, err := bitmap.Load(bitmap.FilePath(dir, region, format))
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		if errors.Is(err, bitmap.ErrDecode) {
			logger.WithError(err).WithField("region", region).Debug("Region image not decodable yet")
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return img, true, nil
	}
}

// LoadRegionImages collects the drawings of the configured regions, one per
// region in order, retrying each while it is still being written. Regions
// that never show up fall back to defaults (which may hold the blank
// silhouettes) and are otherwise nil.
func LoadRegionImages(ctx context.Context, cfg *config.Config, loader ImageLoader, defaults map[string]image.Image, logger *logrus.Logger) ([]image.Image, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	images := make([]image.Image, len(cfg.Regions))
	for i, region := range cfg.Regions {
		img, err := retry.Load(ctx, cfg.RetryPolicy(), func() (image.Image, bool, error) {
			return loader(region)
		})
		switch {
		case err == nil:
			images[i] = img
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			logger.WithError(err).WithField("region", region).Warn("Summary image not available")
			if d, ok := defaults[region]; ok {
				images[i] = d
			}
		}
	}
	return images, nil
}

// LoadSummaryImages loads the first four region drawings with
// LoadRegionImages and lays them out as one body summary image.
func LoadSummaryImages(ctx context.Context, cfg *config.Config, loader ImageLoader, defaults map[string]image.Image, logger *logrus.Logger) (*image.RGBA, error) {
	images, err := LoadRegionImages(ctx, cfg, loader, defaults, logger)
	if err != nil {
		return nil, err
	}
	return SummaryImage(images), nil
}

// SummaryImage lays the first four region images out as one body summary.
// Missing images leave their tile empty.
func SummaryImage(images []image.Image) *image.RGBA {
	tiles := make([]image.Image, 4)
	copy(tiles, images)
	return bitmap.BodySummary(tiles[0], tiles[1], tiles[2], tiles[3])
}

// SummaryImageIdentifier names the body summary image result and file.
const SummaryImageIdentifier = "summaryImage"

// AttachSummary saves the body summary of the region images as a tracked file
// result, then records the zone selection merged over every step.
func AttachSummary(ctx context.Context, proc *processor.Processor, cfg *config.Config, images []image.Image) (processor.FileResult, error) {
	select {
	case r := <-proc.AttachImage(SummaryImageIdentifier, SummaryImage(images), cfg.OutputDir, bitmap.FormatPNG):
		if r.Err != nil {
			return processor.FileResult{}, r.Err
		}
		proc.SummarizeSelectedZones()
		return r.File, nil
	case <-ctx.Done():
		return processor.FileResult{}, ctx.Err()
	}
}

// ErrNoBaseline is returned by ComputeBodyCoverage when no full-coverage
// baseline is cached for the drawings' resolution.
var ErrNoBaseline = errors.New("no full coverage baseline cached")

// BodyCoverage is the coverage of a whole-body drawing made of one image per
// region.
type BodyCoverage struct {
	Regions  []string `json:"regions"`
	Selected []int    `json:"selectedPixels"`
	Baseline []int    `json:"totalPixels"`
	// Percent weighs each region by its baseline; Mean averages the region
	// percentages.
	Percent float64 `json:"coverage"`
	Mean    float64 `json:"meanCoverage"`
}

// ComputeBodyCoverage counts the selected pixels of each region image and
// relates them to the baseline cached for their resolution. images must be
// in cfg.Regions order; nil entries count as nothing drawn. The result is
// recorded under fullBodySummary.
func ComputeBodyCoverage(ctx context.Context, proc *processor.Processor, cfg *config.Config, images []image.Image) (*BodyCoverage, error) {
	var key processor.ResolutionKey
	for _, img := range images {
		if img != nil {
			b := img.Bounds()
			key = processor.KeyFor(geometry.NewSize(float64(b.Dx()), float64(b.Dy())))
			break
		}
	}
	baseline, ok := proc.CachedBaseline(key)
	if !ok || len(baseline) != len(cfg.Regions) {
		return nil, fmt.Errorf("%w at %s", ErrNoBaseline, key)
	}

	pending := make([]<-chan processor.CoverageResult, len(images))
	for i, img := range images {
		if img != nil && i < len(cfg.Regions) {
			pending[i] = proc.ComputeCoverage(cfg.Regions[i]+processor.SelectedPixelsSuffix, img, nil)
		}
	}
	selected := make([]int, len(cfg.Regions))
	fractions := make([]float64, len(cfg.Regions))
	for i, ch := range pending {
		if ch == nil {
			continue
		}
		select {
		case r := <-ch:
			selected[i] = r.Count
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for i := range selected {
		fractions[i] = processor.Fraction(selected[i], baseline[i])
	}

	bc := &BodyCoverage{
		Regions:  append([]string(nil), cfg.Regions...),
		Selected: selected,
		Baseline: baseline,
		Percent:  proc.RecordBodyCoverage(string(zone.FullBody)+processor.SummarySuffix, selected, baseline),
		Mean:     processor.SummaryCoverage(fractions),
	}
	return bc, proc.Wait(ctx)
}

// MaskFactory builds full-coverage surfaces from region masks: each mask is
// placed at its aspect-fit position inside the requested size.
func MaskFactory(masks map[string]image.Image) processor.SurfaceFactory {
	return func(region string, size geometry.Size) (surface.Surface, error) {
		mask, ok := masks[region]
		if !ok {
			return nil, errors.New("no mask for region " + region)
		}
		b := mask.Bounds()
		frame := geometry.CalculateAspectFit(float64(b.Dx()), float64(b.Dy()), size.Width, size.Height)
		s := surface.New(size)
		if err := s.ApplyMask(mask, frame); err != nil {
			return nil, err
		}
		return s, nil
	}
}
