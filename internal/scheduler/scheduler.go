// Package scheduler runs periodic maintenance over the points ledger and
// issued certificates.
package scheduler

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/pkg/logger"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultMaintenanceSpec = "@every 1h"

// StatsRecomputer rebuilds a user's rollup from the ledger.
type StatsRecomputer interface {
	RecomputeUserStats(userID string) (*model.UserStats, error)
}

// Report summarises one maintenance run.
type Report struct {
	ExpiredUsers          int
	ExpiredCertifications int64
	Errors                int
}

type Scheduler struct {
	PointRepo    *repository.PointRepository
	ProgressRepo *repository.ProgressRepository
	Stats        StatsRecomputer

	cron *cron.Cron
	now  func() time.Time
}

func New(pointRepo *repository.PointRepository, progressRepo *repository.ProgressRepository, stats StatsRecomputer) *Scheduler {
	return &Scheduler{
		PointRepo:    pointRepo,
		ProgressRepo: progressRepo,
		Stats:        stats,
		cron:         cron.New(),
		now:          time.Now,
	}
}

// Start registers the maintenance job on spec and starts the cron runner.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultMaintenanceSpec
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunMaintenance() }); err != nil {
		return err
	}
	s.cron.Start()
	logger.Log.Info("Maintenance scheduler started", zap.String("spec", spec))
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunMaintenance expires due points and certificates. Safe to run repeatedly.
func (s *Scheduler) RunMaintenance() Report {
	var r Report
	now := s.now()

	users, err := s.PointRepo.ExpireDue(now)
	if err != nil {
		logger.Log.Error("expire points failed", zap.Error(err))
		r.Errors++
	}
	for _, userID := range users {
		if _, err := s.Stats.RecomputeUserStats(userID); err != nil {
			logger.Log.Error("recompute stats after expiry failed", zap.String("userId", userID), zap.Error(err))
			r.Errors++
			continue
		}
		r.ExpiredUsers++
	}

	n, err := s.ProgressRepo.MarkExpiredCertifications(now)
	if err != nil {
		logger.Log.Error("expire certifications failed", zap.Error(err))
		r.Errors++
	}
	r.ExpiredCertifications = n

	logger.Log.Info("Maintenance finished",
		zap.Int("expiredUsers", r.ExpiredUsers),
		zap.Int64("expiredCertifications", r.ExpiredCertifications),
		zap.Int("errors", r.Errors))
	return r
}
