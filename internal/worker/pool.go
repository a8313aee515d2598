package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pool runs a finite batch of independent items with bounded concurrency.
// Each item gets its own deadline, a failing or panicking item never stops
// its siblings, and cancellation stops new items from starting.
type Pool struct {
	name        string
	maxWorkers  int
	itemTimeout time.Duration
	logger      zerolog.Logger

	active    atomic.Int64
	processed atomic.Int64
}

func NewPool(name string, maxWorkers int, itemTimeout time.Duration, logger zerolog.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Pool{
		name:        name,
		maxWorkers:  maxWorkers,
		itemTimeout: itemTimeout,
		logger:      logger.With().Str("pool", name).Logger(),
	}
}

func (p *Pool) MaxWorkers() int {
	return p.maxWorkers
}

func (p *Pool) ItemTimeout() time.Duration {
	return p.itemTimeout
}

func (p *Pool) Stats() map[string]interface{} {
	return map[string]interface{}{
		"name":           p.name,
		"max_workers":    p.maxWorkers,
		"active_workers": p.active.Load(),
		"processed":      p.processed.Load(),
		"item_timeout":   p.itemTimeout.String(),
	}
}

// Map calls fn for every index in [0, n) and returns the results in index
// order. started[i] is false for items skipped because ctx was cancelled
// before they began. A panic in fn is recovered and converted by onPanic.
func Map[T any](ctx context.Context, p *Pool, n int, fn func(ctx context.Context, i int) T, onPanic func(i int, err error) T) (results []T, started []bool) {
	return MapThrottled(ctx, p, n, nil, fn, onPanic)
}

// MapThrottled is Map with an admission gate. wait runs under the batch
// context, before the item timeout starts, so time spent queued on the gate
// never counts against an item. An item whose wait fails is not started.
func MapThrottled[T any](ctx context.Context, p *Pool, n int, wait func(ctx context.Context) error, fn func(ctx context.Context, i int) T, onPanic func(i int, err error) T) (results []T, started []bool) {
	results = make([]T, n)
	started = make([]bool, n)

	// Plain group: an item's failure must not cancel the others.
	var g errgroup.Group
	g.SetLimit(p.maxWorkers)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if wait != nil {
				if err := wait(ctx); err != nil {
					p.logger.Debug().Err(err).Int("item", i).Msg("Item not admitted")
					return nil
				}
			}
			if ctx.Err() != nil {
				return nil
			}
			started[i] = true
			results[i] = runItem(ctx, p, i, fn, onPanic)
			return nil
		})
	}

	_ = g.Wait()

	skipped := 0
	for _, ok := range started {
		if !ok {
			skipped++
		}
	}
	if skipped > 0 {
		p.logger.Warn().
			Err(ctx.Err()).
			Int("skipped", skipped).
			Int("total", n).
			Msg("Batch stopped before all items started")
	}

	return results, started
}

func runItem[T any](ctx context.Context, p *Pool, i int, fn func(ctx context.Context, i int) T, onPanic func(i int, err error) T) (result T) {
	p.active.Add(1)
	defer func() {
		p.active.Add(-1)
		p.processed.Add(1)

		if r := recover(); r != nil {
			p.logger.Error().
				Int("item", i).
				Interface("panic", r).
				Msg("Worker recovered from panic")
			result = onPanic(i, fmt.Errorf("panic: %v", r))
		}
	}()

	itemCtx := ctx
	if p.itemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, p.itemTimeout)
		defer cancel()
	}

	return fn(itemCtx, i)
}
