// Package cron runs the periodic history flush.
package cron

import (
	"fmt"
	"log/slog"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/halcyonchat/halcyon/internal/session"
)

// Service flushes all live sessions on a fixed interval so a crash loses at
// most one interval's worth of conversation.
type Service struct {
	sessions *session.Manager
	interval int // minutes; 0 disables the timer
	cron     *robfigcron.Cron
}

func NewService(sessions *session.Manager, intervalMin int) *Service {
	return &Service{sessions: sessions, interval: intervalMin}
}

// Start schedules the flush job. Safe to call with a zero interval.
func (s *Service) Start() error {
	if s.interval <= 0 {
		slog.Info("periodic flush disabled")
		return nil
	}

	s.cron = robfigcron.New()
	spec := fmt.Sprintf("@every %dm", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		slog.Debug("periodic flush")
		s.sessions.FlushAll()
	}); err != nil {
		return fmt.Errorf("schedule flush job: %w", err)
	}

	s.cron.Start()
	slog.Info("periodic flush scheduled", "every_min", s.interval)
	return nil
}

// Stop halts the scheduler and runs one final flush.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	s.sessions.FlushAll()
}
