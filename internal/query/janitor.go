package query

import (
	"context"
	"time"
)

const defaultJanitorInterval = time.Minute

// StartJanitor launches a background goroutine that evicts idle entries at a
// fixed cadence until ctx ends or the cache closes. It returns immediately.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				if n := c.GC(); n > 0 {
					c.logger.Debug("evicted idle entries", "count", n)
				}
			}
		}
	}()
}

// GC evicts entries that are unwatched, have no fetch running and were
// untouched for longer than GCTime. It returns the number evicted.
func (c *Cache) GC() int {
	if c.opts.GCTime <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	evicted := 0
	for hash, e := range c.entries {
		if e.watchers > 0 || e.inflight || e.running > 0 {
			continue
		}
		if now.Sub(e.touchedAt) > c.opts.GCTime {
			delete(c.entries, hash)
			evicted++
		}
	}
	return evicted
}
