// Package scheduler runs the periodic background jobs: report cache warming
// and activity feed retention.
package scheduler

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	activitydomain "github.com/stackspendlabs/stackspend/internal/activity/domain"
	"github.com/stackspendlabs/stackspend/internal/clock"
	"github.com/stackspendlabs/stackspend/internal/config"
	reportdomain "github.com/stackspendlabs/stackspend/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Scheduler struct {
	log   *zap.Logger
	cfg   config.SchedulerConfig
	clock clock.Clock

	reportSvc   reportdomain.Service
	activitySvc activitydomain.Service

	jobRuns   *prometheus.CounterVec
	jobErrors *prometheus.CounterVec
}

type SchedulerParam struct {
	fx.In

	Log         *zap.Logger
	Config      config.Config
	Clock       clock.Clock
	Registry    *prometheus.Registry
	ReportSvc   reportdomain.Service
	ActivitySvc activitydomain.Service
}

func NewScheduler(p SchedulerParam) *Scheduler {
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stackspend_scheduler_job_runs_total",
		Help: "Completed scheduler job runs by job name.",
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stackspend_scheduler_job_errors_total",
		Help: "Failed scheduler job runs by job name.",
	}, []string{"job"})
	p.Registry.MustRegister(jobRuns, jobErrors)

	return &Scheduler{
		log:         p.Log.Named("scheduler"),
		cfg:         p.Config.Scheduler,
		clock:       p.Clock,
		reportSvc:   p.ReportSvc,
		activitySvc: p.ActivitySvc,
		jobRuns:     jobRuns,
		jobErrors:   jobErrors,
	}
}

// RunForever blocks until ctx is canceled. Each job runs on its own ticker so
// a slow warm pass cannot starve retention.
func (s *Scheduler) RunForever(ctx context.Context) {
	warmInterval := s.cfg.WarmInterval
	if warmInterval <= 0 {
		warmInterval = 15 * time.Minute
	}
	retentionInterval := s.cfg.RetentionInterval
	if retentionInterval <= 0 {
		retentionInterval = 24 * time.Hour
	}

	s.log.Info("scheduler started",
		zap.Duration("warm_interval", warmInterval),
		zap.Duration("retention_interval", retentionInterval),
	)

	warmTicker := time.NewTicker(warmInterval)
	defer warmTicker.Stop()
	retentionTicker := time.NewTicker(retentionInterval)
	defer retentionTicker.Stop()

	// Warm once at startup so dashboards are hot before the first tick.
	s.runJob(ctx, "warm_report_cache", s.WarmReportCacheJob)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-warmTicker.C:
			s.runJob(ctx, "warm_report_cache", s.WarmReportCacheJob)
		case <-retentionTicker.C:
			s.runJob(ctx, "prune_activity", s.PruneActivityJob)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, name string, job func(context.Context) error) {
	start := time.Now()
	if err := job(ctx); err != nil {
		s.jobErrors.WithLabelValues(name).Inc()
		s.log.Error("scheduler job failed",
			zap.String("job", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.jobRuns.WithLabelValues(name).Inc()
	s.log.Info("scheduler job completed",
		zap.String("job", name),
		zap.Duration("duration", time.Since(start)),
	)
}

func (s *Scheduler) WarmReportCacheJob(ctx context.Context) error {
	return s.reportSvc.WarmAll(ctx)
}

func (s *Scheduler) PruneActivityJob(ctx context.Context) error {
	retentionDays := s.cfg.ActivityRetentionDays
	if retentionDays <= 0 {
		s.log.Info("activity retention disabled", zap.Int("days", retentionDays))
		return nil
	}

	_, err := s.activitySvc.Prune(ctx, time.Duration(retentionDays)*24*time.Hour)
	return err
}
