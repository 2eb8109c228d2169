package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"careerhub/api/internal/service"
)

// Scheduler runs the expired-session sweep. Lazy deletion during
// validation already keeps semantics correct; the sweep keeps the
// sessions table from accumulating dead rows.
type Scheduler struct {
	cron     *cron.Cron
	sessions *service.SessionService
	log      zerolog.Logger
}

func NewScheduler(sessions *service.SessionService, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sessions: sessions,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeExpiredSessions); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits briefly for a running sweep.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) purgeExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("expired session sweep failed")
		return
	}

	s.log.Info().Int64("deleted", deleted).Msg("expired session sweep complete")
}
