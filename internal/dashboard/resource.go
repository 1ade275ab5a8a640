package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/vzahanych/weather-dashboard/internal/location"
	"go.uber.org/zap"
)

// resource is a value derived from the current location by one network
// fetch. Every location change bumps seq and cancels the previous request;
// a completion carrying an old seq is dropped, so a slow answer for an
// earlier location can never overwrite a newer one.
type resource[T any] struct {
	kind    string
	fetch   func(ctx context.Context, loc location.Location) (T, error)
	onError func(err error) (T, bool)

	mu      sync.RWMutex
	seq     uint64
	cancel  context.CancelFunc
	value   T
	has     bool
	loc     *location.Location
	pending bool

	tasks   *sync.WaitGroup
	logger  *zap.Logger
	metrics MetricsRecorder
}

func newResource[T any](kind string, fetch func(context.Context, location.Location) (T, error), tasks *sync.WaitGroup, logger *zap.Logger, metrics MetricsRecorder) *resource[T] {
	return &resource[T]{
		kind:    kind,
		fetch:   fetch,
		tasks:   tasks,
		logger:  logger.With(zap.String("component", kind)),
		metrics: metrics,
	}
}

func (r *resource[T]) LocationChanged(ctx context.Context, loc location.Location) {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	if r.cancel != nil {
		r.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.pending = true
	r.mu.Unlock()

	r.tasks.Add(1)
	go func() {
		defer r.tasks.Done()
		defer cancel()

		value, err := r.fetch(fetchCtx, loc)
		r.apply(ctx, seq, loc, value, err)
	}()
}

func (r *resource[T]) apply(ctx context.Context, seq uint64, loc location.Location, value T, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq {
		r.logger.Debug("Discarding stale result",
			zap.String("location", loc.String()),
			zap.Uint64("seq", seq),
			zap.Uint64("latest_seq", r.seq))
		if r.metrics != nil {
			r.metrics.RecordStaleDiscard(ctx, r.kind)
		}
		return
	}

	r.pending = false

	if err != nil {
		if r.metrics != nil && !errors.Is(err, context.Canceled) {
			r.metrics.RecordFetch(ctx, r.kind, false)
		}
		if r.onError == nil {
			r.logger.Error("Fetch failed, keeping previous content",
				zap.String("location", loc.String()),
				zap.Error(err))
			return
		}
		fallback, ok := r.onError(err)
		if !ok {
			return
		}
		r.logger.Warn("Fetch failed, using fallback",
			zap.String("location", loc.String()),
			zap.Error(err))
		value = fallback
	} else if r.metrics != nil {
		r.metrics.RecordFetch(ctx, r.kind, true)
	}

	r.value = value
	r.has = true
	r.loc = &loc
}

type resourceState[T any] struct {
	value   T
	has     bool
	loc     *location.Location
	pending bool
}

func (r *resource[T]) state() resourceState[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := resourceState[T]{value: r.value, has: r.has, pending: r.pending}
	if r.loc != nil {
		loc := *r.loc
		s.loc = &loc
	}
	return s
}
