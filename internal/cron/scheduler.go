package cronjob

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Probe is a connectivity check run on a schedule.
type Probe func(ctx context.Context) bool

type Scheduler struct {
	c   *cron.Cron
	log logrus.FieldLogger
}

// NewScheduler creates a scheduler taking six-field specs (seconds first).
// A job still running when its next tick fires skips that tick.
func NewScheduler(log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		c:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log: log,
	}
}

// AddProbe schedules probe under spec. Each run is bounded by timeout and
// logs its outcome.
func (s *Scheduler) AddProbe(spec, name string, timeout time.Duration, probe Probe) error {
	if _, err := s.c.AddFunc(spec, func() { s.runProbe(name, timeout, probe) }); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) runProbe(name string, timeout time.Duration, probe Probe) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	ok := probe(ctx)
	entry := s.log.WithFields(logrus.Fields{
		"job":        name,
		"latency_ms": time.Since(start).Milliseconds(),
	})
	if ok {
		entry.Info("probe succeeded")
		return
	}
	entry.Warn("probe failed")
}

// Start initializes cron tasks
func (s *Scheduler) Start() {
	s.c.Start()
	s.log.WithField("jobs", len(s.c.Entries())).Info("cron scheduler started")
}

// Stop halts scheduling. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.c.Stop()
}
