package feeds

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/feedcached/feedcached/internal/eventbus"
	"github.com/feedcached/feedcached/internal/store"
)

// Runner drives collectors on independent refresh schedules. After every
// successful write it publishes a store-update event; the store itself never
// notifies anyone.
type Runner struct {
	store   *store.Store
	bus     *eventbus.Bus
	limiter *rate.Limiter
}

// NewRunner creates a runner. The rate limit is shared across all collectors
// so a burst of simultaneous refreshes cannot hammer the upstreams.
func NewRunner(st *store.Store, bus *eventbus.Bus, rps float64) *Runner {
	if rps <= 0 {
		rps = 4
	}
	return &Runner{
		store:   st,
		bus:     bus,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Run collects immediately, then on every tick of the interval until the
// context is cancelled. Fetch failures are logged and retried on the next
// tick; they never terminate the loop.
func (r *Runner) Run(ctx context.Context, c Collector, interval time.Duration) {
	log.Info().
		Str("namespace", c.Namespace()).
		Str("collection", c.Collection()).
		Dur("interval", interval).
		Msg("Collector started")

	r.collect(ctx, c)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("collection", c.Collection()).Msg("Collector stopping")
			return
		case <-ticker.C:
			r.collect(ctx, c)
		}
	}
}

func (r *Runner) collect(ctx context.Context, c Collector) {
	if err := r.limiter.Wait(ctx); err != nil {
		return
	}

	records, err := c.Fetch(ctx)
	if err != nil {
		log.Warn().
			Err(err).
			Str("namespace", c.Namespace()).
			Str("collection", c.Collection()).
			Msg("Collection run failed")
		return
	}

	r.store.Write(c.Namespace(), c.Collection(), c.Description(), records)
	r.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeStoreUpdate,
		Data: map[string]any{
			"namespace":  c.Namespace(),
			"collection": c.Collection(),
			"items":      len(records),
		},
	})

	log.Info().
		Str("namespace", c.Namespace()).
		Str("collection", c.Collection()).
		Int("items", len(records)).
		Msg("Collection run complete")
}
