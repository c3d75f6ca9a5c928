package monitoring

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// SessionSweeper removes expired sessions.
type SessionSweeper interface {
	Sweep() int
}

// EventPruner deletes old activity events.
type EventPruner interface {
	PruneOlderThan(before time.Time) (int64, error)
}

// Config holds the maintenance schedules as cron expressions.
type Config struct {
	SessionSweepSchedule string
	EventPruneSchedule   string
	EventRetention       time.Duration
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron      *cron.Cron
	sessions  SessionSweeper
	events    EventPruner
	retention time.Duration
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance. Invalid schedules are reported as errors.
func NewScheduler(sessions SessionSweeper, events EventPruner, cfg Config) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		sessions:  sessions,
		events:    events,
		retention: cfg.EventRetention,
		now:       time.Now,
	}

	if _, err := s.cron.AddFunc(cfg.SessionSweepSchedule, s.sweepSessions); err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", cfg.SessionSweepSchedule, err)
	}
	if events != nil {
		if _, err := s.cron.AddFunc(cfg.EventPruneSchedule, s.pruneEvents); err != nil {
			return nil, fmt.Errorf("invalid event prune schedule %q: %w", cfg.EventPruneSchedule, err)
		}
	}
	return s, nil
}

// Run starts the scheduler in its own goroutine.
func (s *Scheduler) Run() {
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

func (s *Scheduler) sweepSessions() {
	if n := s.sessions.Sweep(); n > 0 {
		log.Info().Int("removed", n).Msg("Scheduler: Swept expired sessions")
	}
}

func (s *Scheduler) pruneEvents() {
	cutoff := s.now().Add(-s.retention)
	n, err := s.events.PruneOlderThan(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to prune events")
		return
	}
	log.Info().Int64("removed", n).Time("before", cutoff).Msg("Scheduler: Pruned old events")
}
