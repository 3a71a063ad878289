package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reaper periodically expires sessions that have been idle longer than ttl.
type Reaper struct {
	store    *Store
	ttl      time.Duration
	interval time.Duration

	// Called for every expired session after its records are deleted.
	OnExpire func(ctx context.Context, sessionID uuid.UUID)

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewReaper(store *Store, ttl, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Reaper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (r *Reaper) Start() {
	slog.Info("starting session reaper", "ttl", r.ttl, "interval", r.interval)

	r.wg.Add(1)
	go r.run()
}

func (r *Reaper) Stop() {
	close(r.stopChan)
	r.wg.Wait()
	slog.Info("session reaper stopped")
}

func (r *Reaper) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			if _, err := r.ReapOnce(context.Background()); err != nil {
				slog.Error("error reaping sessions", "error", err)
			}
		}
	}
}

// ReapOnce expires idle sessions and returns how many were removed.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	cutoff := r.store.now().Add(-r.ttl)

	expired, err := r.store.Expire(ctx, cutoff)
	for _, id := range expired {
		if r.OnExpire != nil {
			r.OnExpire(ctx, id)
		}
	}
	if len(expired) > 0 {
		slog.Info("expired idle sessions", "count", len(expired), "cutoff", cutoff)
	}
	return len(expired), err
}
