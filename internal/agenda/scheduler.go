package agenda

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/podiumhq/podium-core/internal/logging"
)

// Scheduler runs the gap-fill reconciler on a cron schedule, covering the
// upcoming meeting dates over a fixed horizon.
type Scheduler struct {
	reconciler   *Reconciler
	cron         *cron.Cron
	weekday      time.Weekday
	horizonWeeks int
}

// NewScheduler builds a scheduler; Start arms it.
func NewScheduler(reconciler *Reconciler, weekday time.Weekday, horizonWeeks int) *Scheduler {
	if horizonWeeks <= 0 {
		horizonWeeks = 8
	}
	return &Scheduler{
		reconciler:   reconciler,
		cron:         cron.New(),
		weekday:      weekday,
		horizonWeeks: horizonWeeks,
	}
}

// Start runs one pass immediately, then repeats per the cron spec.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runPass); err != nil {
		return fmt.Errorf("invalid reconciler schedule %q: %w", spec, err)
	}
	s.cron.Start()

	// The first pass should not wait for the first cron tick.
	go s.runPass()
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runPass() {
	dates := UpcomingMeetingDates(time.Now(), s.weekday, s.horizonWeeks)
	inserted, err := s.reconciler.Reconcile(dates)
	if err != nil {
		logging.Log.Error("Calendar reconciliation failed", zap.Error(err))
		return
	}
	logging.Log.Debug("Calendar reconciliation pass finished",
		zap.Int("candidates", len(dates)),
		zap.Int("inserted", inserted))
}
