package app

import (
	"bytes"
	"context"
	"image"
	"os"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psoriasis-draw/internal/config"
	bitmap "psoriasis-draw/internal/image"
	"psoriasis-draw/internal/pixel"
	"psoriasis-draw/internal/prefs"
	"psoriasis-draw/internal/processor"
	"psoriasis-draw/internal/surface"
	"psoriasis-draw/internal/zone"
	"psoriasis-draw/pkg/colorutil"
	"psoriasis-draw/pkg/geometry"
)

func silhouette(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, colorutil.BodyGray)
		}
	}
	return img
}

type recorder struct {
	mu     sync.Mutex
	events map[EventType][]interface{}
}

func (r *recorder) listen(s *Session, types ...EventType) {
	r.events = make(map[EventType][]interface{})
	for _, et := range types {
		et := et
		s.On(et, func(data interface{}) {
			r.mu.Lock()
			r.events[et] = append(r.events[et], data)
			r.mu.Unlock()
		})
	}
}

func (r *recorder) get(et EventType) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interface{}(nil), r.events[et]...)
}

func newTestSession(t *testing.T) (*Session, *processor.Processor) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	proc := processor.New(processor.Options{Logger: logger})
	t.Cleanup(proc.Close)

	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	zones := zone.Map{
		Identifier: "aboveTheWaistFront",
		ImageSize:  geometry.NewSize(100, 150),
		Zones: []zone.Zone{
			{Identifier: "a", Label: "A", Dimensions: geometry.NewSize(50, 50)},
			{Identifier: "b", Label: "B", Origin: geometry.NewPoint2D(50, 100), Dimensions: geometry.NewSize(50, 50)},
		},
	}
	return NewSession("psoDraw", cfg, zones, silhouette(100, 150), proc, logger), proc
}

func TestSessionRequiresLayout(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.Complete(context.Background())
	assert.ErrorIs(t, err, surface.ErrMaskNotReady)
	assert.ErrorIs(t, s.Draw(func(surface.Surface) {}), surface.ErrMaskNotReady)
	assert.Error(t, s.Layout(geometry.Size{}))
	assert.NotEmpty(t, s.ID)
}

func TestSessionLayout(t *testing.T) {
	s, _ := newTestSession(t)
	rec := &recorder{}
	rec.listen(s, EventMaskApplied)

	require.NoError(t, s.Layout(geometry.NewSize(300, 300)))
	assert.Equal(t, geometry.NewRect(50, 0, 200, 300), s.AspectFit())
	assert.Equal(t, []interface{}{geometry.NewRect(50, 0, 200, 300)}, rec.get(EventMaskApplied))
	assert.Equal(t, []geometry.Rect{
		geometry.NewRect(50, 0, 100, 100),
		geometry.NewRect(150, 200, 100, 100),
	}, s.ZoneFrames())
}

func TestSessionComplete(t *testing.T) {
	s, proc := newTestSession(t)
	rec := &recorder{}
	rec.listen(s, EventDrawComplete, EventProcessingFinished, EventStepComplete)
	require.NoError(t, s.Layout(geometry.NewSize(300, 300)))

	require.NoError(t, s.Draw(func(surf surface.Surface) {
		surf.BeginStroke(geometry.NewPoint2D(100, 50))
		surf.ExtendStroke(geometry.NewPoint2D(110, 50))
		surf.EndStroke()
	}))
	assert.Len(t, rec.get(EventDrawComplete), 1)

	summary, err := s.Complete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 200*300, summary.TotalPixels)
	assert.Greater(t, summary.SelectedPixels, 50)
	assert.Less(t, summary.SelectedPixels, 120)
	assert.Equal(t, processor.Percent(processor.Fraction(summary.SelectedPixels, summary.TotalPixels)), summary.Coverage)
	assert.Equal(t, []zone.SelectedIdentifier{
		{Identifier: "a", IsSelected: true},
		{Identifier: "b", IsSelected: false},
	}, summary.SelectedZones)
	assert.Greater(t, summary.ColorCoverage, 0.0)
	// View (100,50)-(110,50) is image (25,25)-(30,25) at scale 2.
	assert.Equal(t, geometry.NewRect(25, 25, 5, 0), summary.DrawingBounds)

	_, err = os.Stat(summary.ImagePath)
	require.NoError(t, err)

	a, ok := proc.Results().Answer("psoDrawCoverage")
	require.True(t, ok)
	assert.Equal(t, processor.AnswerDecimal, a.Type)
	// The answer keeps the unrounded fraction; only the summary is a percentage.
	stored, ok := a.Float()
	require.True(t, ok)
	assert.Equal(t, processor.Fraction(summary.SelectedPixels, summary.TotalPixels), stored)
	assert.Less(t, stored, 1.0)
	total, ok := proc.Results().Answer("psoDrawTotalPixelCount")
	require.True(t, ok)
	assert.Equal(t, summary.TotalPixels, total.Value)
	_, ok = proc.Results().Answer("psoDrawSelectedPixels")
	assert.True(t, ok)
	_, ok = proc.Results().Find("psoDrawSelectedZones")
	assert.True(t, ok)

	assert.False(t, proc.Registry().IsProcessing())
	assert.NotEmpty(t, rec.get(EventProcessingFinished))
	require.Len(t, rec.get(EventStepComplete), 1)
	assert.Same(t, summary, rec.get(EventStepComplete)[0])

	// The full-coverage fill is undone.
	require.NoError(t, s.Draw(func(surf surface.Surface) {
		assert.Len(t, surf.Strokes(), 1)
	}))
}

func TestSessionRestore(t *testing.T) {
	s, _ := newTestSession(t)
	strokes := []surface.Stroke{
		{Points: []geometry.Point2D{{X: 60, Y: 10}, {X: 80, Y: 10}}, Color: colorutil.Selection, Width: 5},
	}
	assert.ErrorIs(t, s.Restore(strokes), surface.ErrMaskNotReady)

	require.NoError(t, s.Layout(geometry.NewSize(300, 300)))
	require.NoError(t, s.Restore(strokes))
	require.NoError(t, s.Draw(func(surf surface.Surface) {
		assert.Equal(t, strokes, surf.Strokes())
		assert.Len(t, surf.DrawPoints(), 2)
	}))
}

func TestSessionIsolatesMask(t *testing.T) {
	s, _ := newTestSession(t)
	s.mask = image.NewRGBA(image.Rect(0, 0, 10, 10))
	s.mask.(*image.RGBA).SetRGBA(0, 0, colorutil.BodyGray)
	s.mask.(*image.RGBA).SetRGBA(1, 0, colorutil.Black)
	s.IsolateMask = true
	s.zones = zone.Map{}

	require.NoError(t, s.Layout(geometry.NewSize(10, 10)))
	require.NoError(t, s.Draw(func(surf surface.Surface) {
		surf.FillAll(colorutil.Selection)
		img, err := surf.Render()
		require.NoError(t, err)
		n, err := pixel.CountSelected(img, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}))
}

func TestLoadSummaryImagesRetriesAndFallsBack(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ImageLoadAttempts = 3
	cfg.ImageLoadDelay = config.Duration{Duration: time.Millisecond}

	attempts := map[string]int{}
	loader := func(region string) (image.Image, bool, error) {
		attempts[region]++
		switch region {
		case "belowTheWaistBack":
			return nil, false, nil
		case "aboveTheWaistBack":
			if attempts[region] < 2 {
				return nil, false, nil
			}
		}
		return silhouette(10, 20), true, nil
	}
	defaults := map[string]image.Image{"belowTheWaistBack": silhouette(10, 20)}
	logger, hook := logtest.NewNullLogger()

	out, err := LoadSummaryImages(context.Background(), cfg, loader, defaults, logger)
	require.NoError(t, err)
	assert.Equal(t, 20, out.Bounds().Dx())
	assert.Equal(t, 3, attempts["belowTheWaistBack"])
	assert.Equal(t, 2, attempts["aboveTheWaistBack"])
	assert.Equal(t, 1, attempts["aboveTheWaistFront"])
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "belowTheWaistBack", hook.LastEntry().Data["region"])
}

func TestLoadSummaryImagesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadSummaryImages(ctx, config.DefaultConfig(), func(string) (image.Image, bool, error) {
		return nil, false, nil
	}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	_, err := bitmap.Save(silhouette(4, 4), dir, "aboveTheWaistFront", bitmap.FormatPNG, 0)
	require.NoError(t, err)
	load := FileLoader(dir, bitmap.FormatPNG, nil)

	img, ok, err := load("aboveTheWaistFront")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, ok, err = load("belowTheWaistFront")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFileLoaderRetriesPartialWrite(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, bitmap.Encode(&buf, silhouette(40, 40), bitmap.FormatPNG, 0))
	full := buf.Bytes()
	path := bitmap.FilePath(dir, "aboveTheWaistFront", bitmap.FormatPNG)
	require.NoError(t, os.WriteFile(path, full[:len(full)/2], 0o644))

	cfg := config.DefaultConfig()
	cfg.Regions = []string{"aboveTheWaistFront"}
	cfg.ImageLoadAttempts = 50
	cfg.ImageLoadDelay = config.Duration{Duration: 20 * time.Millisecond}
	logger, _ := logtest.NewNullLogger()

	var attempts int
	fileLoader := FileLoader(dir, bitmap.FormatPNG, logger)
	loader := func(region string) (image.Image, bool, error) {
		attempts++
		if attempts == 2 {
			// The writer finishes between the first and second attempt.
			require.NoError(t, os.WriteFile(path, full, 0o644))
		}
		return fileLoader(region)
	}

	images, err := LoadRegionImages(context.Background(), cfg, loader, nil, logger)
	require.NoError(t, err)
	require.NotNil(t, images[0])
	assert.Equal(t, 40, images[0].Bounds().Dx())
	assert.Equal(t, 2, attempts)
}

func TestMaskFactory(t *testing.T) {
	factory := MaskFactory(map[string]image.Image{"a": silhouette(10, 20)})

	s, err := factory("a", geometry.NewSize(20, 20))
	require.NoError(t, err)
	require.True(t, s.MaskReady())
	s.FillAll(colorutil.BodyGray)
	img, err := s.Render()
	require.NoError(t, err)
	n, err := pixel.CountSelected(img, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, n)

	_, err = factory("missing", geometry.NewSize(20, 20))
	assert.Error(t, err)
}

func TestLoadRegionImagesKeepsRegionOrder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Regions = []string{"a", "b", "c", "d", "e"}
	cfg.ImageLoadAttempts = 1
	logger, _ := logtest.NewNullLogger()

	images, err := LoadRegionImages(context.Background(), cfg, func(region string) (image.Image, bool, error) {
		if region == "c" {
			return nil, false, nil
		}
		return silhouette(len(region)+int(region[0]-'a'), 1), true, nil
	}, nil, logger)
	require.NoError(t, err)
	require.Len(t, images, 5)
	assert.Nil(t, images[2])
	assert.Equal(t, 1, images[0].Bounds().Dx())
	assert.Equal(t, 5, images[4].Bounds().Dx())
}

func partial(w, h, filled int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < filled; i++ {
		img.SetRGBA(i%w, i/w, colorutil.Selection)
	}
	return img
}

func TestComputeBodyCoverage(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	store := prefs.NewMemory()
	proc := processor.New(processor.Options{Logger: logger, Store: store})
	t.Cleanup(proc.Close)

	cfg := config.DefaultConfig()
	cfg.Regions = []string{"front", "back"}

	images := []image.Image{partial(10, 10, 5), partial(10, 10, 0)}
	_, err := ComputeBodyCoverage(context.Background(), proc, cfg, images)
	assert.ErrorIs(t, err, ErrNoBaseline)

	store.SetIntList(proc.BaselineKey(processor.ResolutionKey{Width: 10, Height: 10}), []int{10, 40})
	bc, err := ComputeBodyCoverage(context.Background(), proc, cfg, images)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 0}, bc.Selected)
	assert.Equal(t, []int{10, 40}, bc.Baseline)
	assert.Equal(t, 10.0, bc.Percent)
	assert.Equal(t, 25.0, bc.Mean)

	a, ok := proc.Results().Answer("fullBodySummary")
	require.True(t, ok)
	v, _ := a.Float()
	assert.Equal(t, 10.0, v)

	// A missing region counts as nothing drawn.
	bc, err = ComputeBodyCoverage(context.Background(), proc, cfg, []image.Image{nil, partial(10, 10, 40)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 40}, bc.Selected)
	assert.Equal(t, 80.0, bc.Percent)
}
