package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/chatrelay/internal/observability"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultRetentionSchedule runs the sweep once an hour.
const DefaultRetentionSchedule = "@hourly"

// Retention periodically purges session records older than MaxAge.
type Retention struct {
	purger   Purger
	maxAge   time.Duration
	schedule string
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewRetention validates the schedule; an empty schedule means hourly.
func NewRetention(purger Purger, maxAge time.Duration, schedule string, logger zerolog.Logger) (*Retention, error) {
	if purger == nil {
		return nil, errors.New("purger is required")
	}
	if maxAge <= 0 {
		return nil, errors.New("retention max age must be positive")
	}
	if schedule == "" {
		schedule = DefaultRetentionSchedule
	}
	if _, err := retentionParser().Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule: %w", err)
	}

	return &Retention{
		purger:   purger,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger.With().Str("component", "retention").Logger(),
		now:      time.Now,
	}, nil
}

func retentionParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// Start schedules the sweep.
func (r *Retention) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("retention already running")
	}

	c := cron.New(cron.WithParser(retentionParser()))
	if _, err := c.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(context.Background()); err != nil {
			r.logger.Error().Err(err).Msg("Retention sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule retention: %w", err)
	}
	c.Start()

	r.cron = c
	r.running = true
	r.logger.Info().
		Str("schedule", r.schedule).
		Dur("max_age", r.maxAge).
		Msg("Retention started")
	return nil
}

// Stop cancels the schedule and waits for a running sweep.
func (r *Retention) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.running = false
	r.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	r.logger.Info().Msg("Retention stopped")
}

// RunOnce purges everything older than MaxAge now.
func (r *Retention) RunOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.maxAge)
	deleted, err := r.purger.PurgeBefore(ctx, cutoff)
	observability.RecordPurged(deleted)
	if err != nil {
		return deleted, err
	}

	if deleted > 0 {
		r.logger.Info().
			Int("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Purged old sessions")
	}
	return deleted, nil
}

// IsRunning returns whether the schedule is active
func (r *Retention) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
