package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pushpipe/internal/eventbus"
	logx "pushpipe/pkg/logx"
)

// SweepConfig controls the retention sweep for idle history entries.
type SweepConfig struct {
	Enabled  bool
	TTL      time.Duration
	Interval time.Duration
}

// Sweeper periodically prunes idle history entries. Start and Stop are safe
// to call from concurrent goroutines (config reload vs shutdown).
type Sweeper struct {
	store *Store
	log   logx.Logger
	bus   eventbus.Bus

	cfg SweepConfig

	mu sync.Mutex
	c  *cron.Cron
}

func NewSweeper(store *Store, cfg SweepConfig, log logx.Logger, bus eventbus.Bus) *Sweeper {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Sweeper{store: store, log: log, bus: bus, cfg: cfg}
}

func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.c != nil {
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := c.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("schedule history sweep: %w", err)
	}
	c.Start()
	s.c = c
	s.log.Debug("history sweeper started",
		logx.Duration("ttl", s.cfg.TTL),
		logx.Duration("interval", s.cfg.Interval),
	)
	return nil
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	// Wait for a sweep in flight to finish.
	<-c.Stop().Done()
}

func (s *Sweeper) sweep() {
	removed := s.store.PruneIdle(s.cfg.TTL)
	if removed == 0 {
		return
	}
	s.log.Debug("history entries pruned", logx.Int("removed", removed))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.TypeHistoryPruned,
			Data: eventbus.HistoryEvent{Removed: removed},
		})
	}
}
