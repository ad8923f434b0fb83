// Package scheduler runs one poll cycle per enabled search profile on a
// fixed cadence.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"vintedwatch/monitor-service/internal/model"
)

// Engine owns the poll cadence. Each enabled profile gets its own cron entry;
// entries fire concurrently and independently — one profile's backoff or
// failure never blocks another's cycle.
type Engine struct {
	cron     *cron.Cron
	interval time.Duration
	worker   *Worker

	mu       sync.Mutex
	profiles map[string]*profileRuntime

	cycles sync.WaitGroup // in-flight cycles, for the shutdown grace period
}

// profileRuntime pairs a profile with its scheduling state. The running flag
// enforces the no-overlap rule: a tick that finds a cycle still in flight is
// skipped, never queued.
type profileRuntime struct {
	profile model.SearchProfile
	running atomic.Bool
	entry   cron.EntryID // 0 when the profile is disabled
}

// New creates an Engine polling every interval.
func New(worker *Worker, interval time.Duration) *Engine {
	return &Engine{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		interval: interval,
		worker:   worker,
		profiles: make(map[string]*profileRuntime),
	}
}

// Start registers the profiles and starts the cadence. An immediate cycle
// runs for every enabled profile so monitoring begins without waiting a full
// interval.
func (e *Engine) Start(ctx context.Context, profiles []model.SearchProfile) error {
	for _, p := range profiles {
		if err := e.AddProfile(ctx, p); err != nil {
			return err
		}
	}
	e.cron.Start()
	log.Printf("[scheduler] Cron started — %d profile(s), interval %s", len(profiles), e.interval)
	return nil
}

// AddProfile registers one profile and fires its first cycle immediately.
// Disabled profiles are recorded but consume no scheduling slot.
func (e *Engine) AddProfile(ctx context.Context, p model.SearchProfile) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, dup := e.profiles[p.ID]; dup {
		return fmt.Errorf("profile %s already scheduled", p.ID)
	}
	rt := &profileRuntime{profile: p}
	e.profiles[p.ID] = rt
	if !p.Enabled {
		log.Printf("[scheduler] Profile %q (%s) is disabled — not scheduled", p.Name, p.ID)
		return nil
	}

	id, err := e.cron.AddFunc(fmt.Sprintf("@every %s", e.interval), func() {
		e.runCycle(ctx, rt)
	})
	if err != nil {
		delete(e.profiles, p.ID)
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	rt.entry = id

	go e.runCycle(ctx, rt)
	return nil
}

// RemoveProfile unschedules a profile. An in-flight cycle is left to finish.
func (e *Engine) RemoveProfile(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rt, ok := e.profiles[id]
	if !ok {
		return
	}
	if rt.entry != 0 {
		e.cron.Remove(rt.entry)
	}
	delete(e.profiles, id)
	log.Printf("[scheduler] Profile %q (%s) removed", rt.profile.Name, id)
}

// Stop halts the cadence and waits up to grace for in-flight cycles to
// finish; cycles still running after that are abandoned.
func (e *Engine) Stop(grace time.Duration) {
	e.cron.Stop()

	done := make(chan struct{})
	go func() {
		e.cycles.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Println("[scheduler] Stopped — all cycles finished")
	case <-time.After(grace):
		log.Printf("[scheduler] Stopped — grace period %s elapsed with cycles still in flight", grace)
	}
}

// runCycle runs one cycle for a profile unless one is already in flight, in
// which case this tick is skipped and the profile is retried at the next
// interval.
func (e *Engine) runCycle(ctx context.Context, rt *profileRuntime) {
	if !rt.running.CompareAndSwap(false, true) {
		log.Printf("[scheduler] Profile %q: previous cycle still running — skipping this tick", rt.profile.Name)
		return
	}
	e.cycles.Add(1)
	defer e.cycles.Done()
	defer rt.running.Store(false)

	if ctx.Err() != nil {
		return
	}
	e.worker.Run(ctx, &rt.profile)
}
