package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SessionPurger deletes sessions whose refresh token has expired.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	sessions SessionPurger
	timeout  time.Duration
	log      zerolog.Logger
}

func NewScheduler(sessions SessionPurger, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		timeout:  time.Minute,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.sessions == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 * * * *", s.purgeSessions); err != nil { // hourly
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.sessions.PurgeExpiredSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired sessions failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("expired sessions purged")
	}
}
