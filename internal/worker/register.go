package worker

import (
	"time"

	"coach-booking/internal/data/repository"
	"coach-booking/internal/notify"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/cache"
	"coach-booking/pkg/utils"

	"go.uber.org/zap"
)

type Deps struct {
	Repo     *repository.Repository
	Service  *usecase.Service
	Notifier notify.Notifier
	Deduper  cache.Deduper
	Policy   utils.PolicyConfig
	Clock    func() time.Time
	Log      *zap.Logger
}

// Register adds the four sweeps to s with the configured intervals.
func Register(s *Scheduler, d Deps, cfg utils.SchedulerConfig) {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	s.Add(NewReminderSweep(d.Repo, d.Notifier, d.Deduper, d.Clock, d.Log), Every(cfg.ReminderInterval))
	s.Add(NewAutoConfirmSweep(d.Repo, d.Service.Booking, d.Policy.AutoConfirmAfter, d.Clock, d.Log), Every(cfg.AutoConfirmInterval))
	s.Add(NewPayoutSweep(d.Repo, d.Service.Escrow, d.Policy.AutoConfirmAfter, d.Clock, d.Log), Every(cfg.PayoutInterval))
	s.Add(NewReliabilitySweep(d.Repo, d.Service.Reliability, d.Log), DailyAt(cfg.ReliabilityHour))
}
