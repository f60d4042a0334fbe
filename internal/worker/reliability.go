package worker

import (
	"context"
	"fmt"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/data/repository"
	"coach-booking/internal/usecase"

	"go.uber.org/zap"
)

const ReliabilitySweepName = "reliability"

// ReliabilitySweep recomputes every active student's and coach's reliability.
type ReliabilitySweep struct {
	repo        *repository.Repository
	reliability usecase.ReliabilityService
	log         *zap.Logger
}

func NewReliabilitySweep(repo *repository.Repository, reliability usecase.ReliabilityService, log *zap.Logger) *ReliabilitySweep {
	return &ReliabilitySweep{
		repo:        repo,
		reliability: reliability,
		log:         log.With(zap.String("worker", ReliabilitySweepName)),
	}
}

func (w *ReliabilitySweep) Name() string { return ReliabilitySweepName }

func (w *ReliabilitySweep) Run(ctx context.Context) (Report, error) {
	var report Report
	users, err := w.repo.User.FindActiveByRoles(ctx, []entity.UserRole{entity.RoleStudent, entity.RoleCoach})
	if err != nil {
		return report, fmt.Errorf("select users: %w", err)
	}
	report.Selected = len(users)

	for _, u := range users {
		if _, err := w.reliability.Recompute(ctx, u.ID); err != nil {
			w.log.Error("Failed to recompute reliability", zap.Error(err), zap.String("user_id", u.ID.String()))
			report.Failed++
			continue
		}
		report.Processed++
	}
	return report, nil
}
