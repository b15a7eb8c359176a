// Package service runs the background workers of the batch swap daemon: the
// batcher, which periodically re-evaluates the age trigger over every pending
// pair so batches still form when no new submissions arrive.
package service

import (
	"context"
	"fmt"
	"time"

	"go.vocdoni.io/dvote/log"

	"github.com/darkswap-labs/batchswap/engine"
)

// DefaultTickInterval is how often the batcher re-evaluates pending pairs.
const DefaultTickInterval = 10 * time.Second

// Batcher is a worker that periodically re-runs the batch trigger policy of
// the engine. The size trigger fires synchronously on submission; the age
// trigger needs this worker, since an aging backlog produces no events of
// its own.
type Batcher struct {
	engine       *engine.Engine
	ctx          context.Context
	cancel       context.CancelFunc
	tickInterval time.Duration
}

// NewBatcher creates a batcher for the given engine. A non-positive tick
// interval selects the default.
func NewBatcher(e *engine.Engine, tickInterval time.Duration) (*Batcher, error) {
	if e == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &Batcher{engine: e, tickInterval: tickInterval}, nil
}

// Start begins the periodic trigger evaluation. It returns once the
// background goroutine is running.
func (b *Batcher) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	b.ctx, b.cancel = context.WithCancel(ctx)

	ticker := time.NewTicker(b.tickInterval)
	go func() {
		defer ticker.Stop()
		log.Infow("batcher started", "tickInterval", b.tickInterval.String())
		for {
			select {
			case <-b.ctx.Done():
				log.Infow("batcher stopped")
				return
			case <-ticker.C:
				if formed := b.engine.EvaluateAll(); len(formed) > 0 {
					log.Infow("age trigger formed batches", "batches", formed)
				}
			}
		}
	}()
	return nil
}

// Stop halts the batcher.
func (b *Batcher) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}
