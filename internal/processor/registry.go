package processor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Registry tracks the background computations of one step, keyed by result
// identifier. The step may move on once the registry has drained.
type Registry struct {
	mu         sync.Mutex
	started    map[string]time.Time
	onFinished func()
	idle       chan struct{} // closed while nothing is pending

	logger *logrus.Logger
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logrus.Logger, now func() time.Time) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if now == nil {
		now = time.Now
	}
	idle := make(chan struct{})
	close(idle)
	return &Registry{
		started: make(map[string]time.Time),
		idle:    idle,
		logger:  logger,
		now:     now,
	}
}

// Start registers id as in flight. Starting an identifier that has not
// finished yet is logged and keeps the latest start time.
func (r *Registry) Start(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.started[id]; ok {
		r.logger.WithField("identifier", id).Warn("Processing already started for identifier")
	} else if len(r.started) == 0 {
		r.idle = make(chan struct{})
	}
	r.started[id] = r.now()
}

// Finish removes id and returns how long it was in flight. The finished
// listener runs when this empties the registry.
func (r *Registry) Finish(id string) time.Duration {
	r.mu.Lock()
	start, ok := r.started[id]
	if !ok {
		r.mu.Unlock()
		r.logger.WithField("identifier", id).Warn("Finished processing an identifier that was never started")
		return 0
	}
	delete(r.started, id)
	elapsed := r.now().Sub(start)

	var fn func()
	if len(r.started) == 0 {
		close(r.idle)
		fn = r.onFinished
	}
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"identifier": id,
		"elapsed":    elapsed,
	}).Debug("Finished processing")

	if fn != nil {
		fn()
	}
	return elapsed
}

// IsProcessing reports whether anything is in flight.
func (r *Registry) IsProcessing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started) > 0
}

// Pending returns the in-flight identifiers, sorted.
func (r *Registry) Pending() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.started))
	for id := range r.started {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// OnFinished sets the single listener fired whenever the registry drains.
func (r *Registry) OnFinished(fn func()) {
	r.mu.Lock()
	r.onFinished = fn
	r.mu.Unlock()
}

// Wait blocks until nothing is in flight.
func (r *Registry) Wait(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
