package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"vintedwatch/monitor-service/internal/dedup"
	"vintedwatch/monitor-service/internal/model"
	"vintedwatch/monitor-service/internal/monitor"
	"vintedwatch/monitor-service/internal/notify"
	"vintedwatch/monitor-service/internal/store"
)

// Fetcher is the slice of the monitor fetcher the worker needs.
type Fetcher interface {
	Fetch(ctx context.Context, p model.SearchProfile) ([]model.Item, error)
}

// Worker executes one fetch → filter → dedup → notify cycle for a profile.
type Worker struct {
	fetcher  Fetcher
	seen     dedup.SeenStore
	notifier notify.Notifier
	store    store.ProfileStore // nil disables stats persistence
}

// NewWorker constructs a Worker.
func NewWorker(fetcher Fetcher, seen dedup.SeenStore, notifier notify.Notifier, st store.ProfileStore) *Worker {
	return &Worker{fetcher: fetcher, seen: seen, notifier: notifier, store: st}
}

// Run executes one cycle, mutating the profile's runtime stats in place. The
// caller guarantees cycles for one profile never overlap, so p is owned by
// this call for its duration.
//
// Any fetch error makes this a no-op cycle: logged, profile state unchanged,
// nothing notified. Errors never propagate — one profile's failure must not
// disturb the scheduler or its peers.
func (w *Worker) Run(ctx context.Context, p *model.SearchProfile) {
	started := time.Now()
	log.Printf("[worker] Profile %q (%s): cycle started", p.Name, p.ID)

	items, err := w.fetcher.Fetch(ctx, *p)
	if err != nil {
		switch {
		case errors.Is(err, monitor.ErrRateLimited):
			log.Printf("[worker] Profile %q: rate limited — cycle skipped: %v", p.Name, err)
		case errors.Is(err, monitor.ErrParse):
			log.Printf("[worker] Profile %q: unparseable response — cycle skipped: %v", p.Name, err)
		default:
			log.Printf("[worker] Profile %q: fetch failed — cycle skipped: %v", p.Name, err)
		}
		return
	}

	var matched, admitted int
	for _, item := range items {
		if !monitor.Matches(item, *p) {
			continue
		}
		matched++

		// Admit before hand-off: a crash after this point can lose one
		// notification but never duplicate it on restart.
		ok, err := w.seen.Admit(ctx, p.ID, item.ID)
		if err != nil {
			log.Printf("[worker] Profile %q: dedup error for item %s: %v", p.Name, item.ID, err)
			continue
		}
		if !ok {
			continue
		}
		admitted++

		if err := w.notifier.Notify(ctx, p.Destination, item); err != nil {
			log.Printf("[worker] Profile %q: notify failed for item %s: %v", p.Name, item.ID, err)
		}
	}

	p.ItemsFound += admitted
	p.LastRun = time.Now()
	if w.store != nil {
		if err := w.store.SaveStats(ctx, *p); err != nil {
			log.Printf("[worker] Profile %q: persist stats: %v", p.Name, err)
		}
	}

	log.Printf("[worker] Profile %q done — fetched=%d matched=%d new=%d (%s)",
		p.Name, len(items), matched, admitted, time.Since(started).Round(time.Millisecond))
}
