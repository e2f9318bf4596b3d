// Package processor turns finished drawings into step results: selected pixel
// counts, resolution independent full-coverage baselines, selected zones and
// saved images. Heavy pixel work runs on a background queue; registry and
// result updates run on the main queue.
package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"psoriasis-draw/internal/dispatch"
	"psoriasis-draw/internal/pixel"
	"psoriasis-draw/internal/prefs"
	"psoriasis-draw/pkg/colorutil"
)

// DefaultNamespace prefixes the cache keys of multi-region baselines.
const DefaultNamespace = "psoriasisDrawFullCoverage"

// Result identifier suffixes, appended to a step identifier.
const (
	CoverageSuffix        = "Coverage"
	SelectedPixelsSuffix  = "SelectedPixels"
	SelectedZonesSuffix   = "SelectedZones"
	TotalPixelCountSuffix = "TotalPixelCount"
	SummarySuffix         = "Summary"
)

// BaselineIdentifier is the result identifier of multi-region baselines.
const BaselineIdentifier = "totalPixelCounts"

// SelectedZonesIdentifier is the result identifier of the zone selection
// merged over every step.
const SelectedZonesIdentifier = "selectedZones"

// Options configures a Processor.
type Options struct {
	// Main serializes registry, result and surface work. When nil the
	// processor starts and owns its own queue.
	Main *dispatch.Queue
	// Work runs pixel counting. When nil the processor starts its own.
	Work *dispatch.Queue
	// Store caches full-coverage baselines. Defaults to in-memory prefs.
	Store       prefs.Store
	Logger      *logrus.Logger
	Namespace   string
	JPEGQuality int
	Now         func() time.Time
}

// Processor computes coverage and zone results for drawing steps.
type Processor struct {
	main, work *dispatch.Queue
	owned      []*dispatch.Queue

	store     prefs.Store
	logger    *logrus.Logger
	namespace string
	quality   int

	registry *Registry
	results  *Results

	fills atomic.Int64

	mu       sync.Mutex
	inflight map[string]*call
}

// call is a baseline computation other callers can wait on.
type call struct {
	done chan struct{}
	val  []int
	err  error
}

// New creates a Processor.
func New(opts Options) *Processor {
	p := &Processor{
		main:      opts.Main,
		work:      opts.Work,
		store:     opts.Store,
		logger:    opts.Logger,
		namespace: opts.Namespace,
		quality:   opts.JPEGQuality,
		results:   NewResults(),
		inflight:  make(map[string]*call),
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	if p.main == nil {
		p.main = dispatch.NewQueue("main")
		p.owned = append(p.owned, p.main)
	}
	if p.work == nil {
		p.work = dispatch.NewQueue("processing")
		p.owned = append(p.owned, p.work)
	}
	if p.store == nil {
		p.store = prefs.NewMemory()
	}
	if p.namespace == "" {
		p.namespace = DefaultNamespace
	}
	p.registry = NewRegistry(p.logger, opts.Now)
	return p
}

// Close stops the queues the processor started itself.
func (p *Processor) Close() {
	for _, q := range p.owned {
		q.Close()
	}
}

// Registry returns the in-flight registry.
func (p *Processor) Registry() *Registry { return p.registry }

// Results returns the step result history.
func (p *Processor) Results() *Results { return p.results }

// Main returns the queue surface work must run on.
func (p *Processor) Main() *dispatch.Queue { return p.main }

// FillCount returns how many full-coverage fill passes the processor ran.
func (p *Processor) FillCount() int { return int(p.fills.Load()) }

// onMain schedules fn on the main queue, running it inline when the queue has
// been closed so results are never lost.
func (p *Processor) onMain(fn func()) {
	if err := p.main.Async(fn); err != nil {
		fn()
	}
}

func (p *Processor) onWork(fn func()) {
	if err := p.work.Async(fn); err != nil {
		fn()
	}
}

func (p *Processor) begin(id string) {
	p.onMain(func() { p.registry.Start(id) })
}

// finish records r and marks id done, on the main queue.
func (p *Processor) finish(id string, r Result) {
	p.onMain(func() {
		if r != nil {
			p.results.Append(r)
		}
		p.registry.Finish(id)
	})
}

// SummarizeSelectedZones merges the zone selections recorded so far into one
// result under SelectedZonesIdentifier.
func (p *Processor) SummarizeSelectedZones() SelectedIdentifiersResult {
	var merged SelectedIdentifiersResult
	if err := p.main.Sync(func() {
		merged = p.results.MergeSelectedIdentifiers(SelectedZonesIdentifier)
	}); err != nil {
		merged = p.results.MergeSelectedIdentifiers(SelectedZonesIdentifier)
	}
	return merged
}

// Wait blocks until every computation started so far has finished. It must
// not be called from the main queue.
func (p *Processor) Wait(ctx context.Context) error {
	// Registrations are queued on main; let them land first.
	if err := p.main.Sync(func() {}); err != nil && !errors.Is(err, dispatch.ErrClosed) {
		return err
	}
	return p.registry.Wait(ctx)
}

// CoverageResult is the outcome of ComputeCoverage.
type CoverageResult struct {
	Identifier string
	Count      int
	Err        error
}

// ComputeCoverage counts the selected pixels of img in the background and
// records the count as an integer answer under id. A nil isSelected uses
// pixel.IsSelected. Undecodable images count as zero.
func (p *Processor) ComputeCoverage(id string, img image.Image, isSelected func(colorutil.RGBA32) bool) <-chan CoverageResult {
	out := make(chan CoverageResult, 1)
	p.begin(id)
	p.onWork(func() {
		start := time.Now()
		count, err := pixel.CountSelected(img, isSelected)
		log := p.logger.WithFields(logrus.Fields{
			"identifier": id,
			"pixels":     count,
			"elapsed":    time.Since(start),
		})
		if err != nil {
			log.WithError(err).Warn("Could not count selected pixels")
			count = 0
		} else {
			log.Debug("Counted selected pixels")
		}
		p.finish(id, AnswerResult{Identifier: id, Type: AnswerInteger, Value: count})
		p.onMain(func() {
			out <- CoverageResult{Identifier: id, Count: count, Err: err}
		})
	})
	return out
}

// dedupe runs fn unless a computation for key is already in flight, in which
// case it waits for that one and shares its result.
func (p *Processor) dedupe(ctx context.Context, key string, fn func() ([]int, error)) ([]int, error) {
	p.mu.Lock()
	if c, ok := p.inflight[key]; ok {
		p.mu.Unlock()
		select {
		case <-c.done:
			return append([]int(nil), c.val...), c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	p.inflight[key] = c
	p.mu.Unlock()

	c.val, c.err = fn()

	p.mu.Lock()
	delete(p.inflight, key)
	p.mu.Unlock()
	close(c.done)

	return append([]int(nil), c.val...), c.err
}

// count runs a non-clear pixel count of a fill snapshot on the work queue and
// waits for it.
func (p *Processor) count(img image.Image) (int, error) {
	var (
		n   int
		err error
	)
	if qerr := p.work.Sync(func() { n, err = pixel.CountNonZeroAlpha(img) }); qerr != nil {
		return 0, fmt.Errorf("count pixels: %w", qerr)
	}
	return n, err
}
