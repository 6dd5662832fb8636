package requests

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"sentinel-desk/config"
	"sentinel-desk/core/notify"
	"sentinel-desk/core/store"
	"sentinel-desk/core/utils"
)

// ReminderScheduler periodically flags requests stuck in a non-terminal
// status and pushes one summary card to the webhook. It runs entirely
// outside the request path; a failed sweep only logs.
type ReminderScheduler struct {
	cfg      *config.AppConfig
	store    store.RequestsStore
	notifier *notify.Notifier
	logger   *utils.Logger
	cron     *cron.Cron
}

func NewReminderScheduler(cfg *config.AppConfig, rs store.RequestsStore, notifier *notify.Notifier, logger *utils.Logger) *ReminderScheduler {
	return &ReminderScheduler{cfg: cfg, store: rs, notifier: notifier, logger: logger}
}

func (s *ReminderScheduler) Start() {
	if s == nil || s.cfg == nil || !s.cfg.Scheduler.Enabled {
		return
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Scheduler.CronSpec, s.sweep); err != nil {
		if s.logger != nil {
			s.logger.Errorf("reminder schedule %q: %v", s.cfg.Scheduler.CronSpec, err)
		}
		s.cron = nil
		return
	}
	s.cron.Start()
	if s.logger != nil {
		s.logger.Printf("stale-request reminder scheduled (%s)", s.cfg.Scheduler.CronSpec)
	}
}

func (s *ReminderScheduler) Stop() {
	if s == nil || s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *ReminderScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	staleAfter := time.Duration(s.cfg.Requests.StaleAfterHrs) * time.Hour
	if staleAfter <= 0 {
		staleAfter = 72 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-staleAfter)
	stale, err := s.store.ListStale(ctx, cutoff, s.cfg.Requests.ReminderLimit)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("stale sweep: %v", err)
		}
		return
	}
	if len(stale) == 0 {
		return
	}
	if s.logger != nil {
		s.logger.Printf("stale sweep found %d request(s)", len(stale))
	}
	s.notifier.NotifyStaleRequests(ctx, stale)
}
