package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner is implemented by caches that support expiry sweeps.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps expired entries out of registered caches.
type Janitor struct {
	interval time.Duration
	caches   []Cleaner
}

func NewJanitor(interval time.Duration) *Janitor {
	return &Janitor{interval: interval}
}

func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Run sweeps until the context is cancelled. It always returns nil so it can
// sit in an errgroup without tearing the group down on shutdown.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cleaned := 0
			for _, c := range j.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Cache sweep completed", "entries_removed", cleaned)
			}
		}
	}
}
