// internal/app/system/cache/sweeper.go
package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper is a background worker that periodically evicts expired cache
// entries so a quiet namespace does not hold dead data indefinitely.
type Sweeper struct {
	cache    *Cache
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper creates a sweeper for the given cache. It does not start
// until Start is called.
func NewSweeper(c *Cache, logger *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		cache:    c,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.Info("cache sweeper started", zap.Duration("interval", s.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.log.Info("cache sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.cache.SweepExpired(); removed > 0 {
				s.log.Debug("evicted expired cache entries", zap.Int("count", removed))
			}
		case <-s.stopCh:
			return
		}
	}
}
