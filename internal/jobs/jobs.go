// Package jobs runs periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const reconcileTimeout = 5 * time.Minute

// CounterReconciler repairs follow counters that drifted from their sets
type CounterReconciler interface {
	ReconcileCounters(ctx context.Context) (int64, error)
}

// Scheduler runs background jobs on a cron schedule
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// NewScheduler creates a scheduler. Overlapping runs of one job are skipped.
func NewScheduler(log *logrus.Logger) *Scheduler {
	cronLog := cron.VerbosePrintfLogger(log)
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		log:  log,
	}
}

// AddReconcile schedules counter reconciliation
func (s *Scheduler) AddReconcile(spec string, r CounterReconciler) error {
	_, err := s.cron.AddFunc(spec, func() { s.runReconcile(r) })
	if err != nil {
		return fmt.Errorf("failed to schedule counter reconciliation %q: %w", spec, err)
	}
	s.log.Infof("Counter reconciliation scheduled: %s", spec)
	return nil
}

func (s *Scheduler) runReconcile(r CounterReconciler) {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	start := time.Now()
	repaired, err := r.ReconcileCounters(ctx)
	if err != nil {
		s.log.WithError(err).Error("Counter reconciliation failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"repaired": repaired,
		"duration": time.Since(start).String(),
	}).Info("Counter reconciliation finished")
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Timed out waiting for running jobs")
	}
}
