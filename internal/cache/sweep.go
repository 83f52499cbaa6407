package cache

import (
	"log"

	"github.com/robfig/cron/v3"
)

// Sweeper ticks a Cache's Sweep on a cron schedule, the way the teacher's
// Scheduler (internal/storage/scheduler.go) drives catalog jobs off a
// cron.Cron instead of a bare time.Ticker — a cron expression lets callers
// express "every 30 seconds" (`@every 30s`) or a calendar cadence
// uniformly, and Stop() drains in-flight ticks the same way.
type Sweeper struct {
	cache  *Cache
	cron   *cron.Cron
	logger *log.Logger
}

// NewSweeper builds a Sweeper for cache on the given cron expression
// (e.g. "@every 30s"). logger defaults to log.Default() when nil.
func NewSweeper(cache *Cache, cronExpr string, logger *log.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = log.Default()
	}
	c := cron.New()
	s := &Sweeper{cache: cache, cron: c, logger: logger}
	if _, err := c.AddFunc(cronExpr, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) tick() {
	n := s.cache.Sweep()
	if n > 0 {
		s.logger.Printf("cache sweep: removed %d expired entries", n)
	}
}

// Start begins the sweep schedule.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the sweep schedule, blocking until any in-flight tick
// finishes.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
