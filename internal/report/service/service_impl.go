package service

import (
	"context"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stackspendlabs/stackspend/internal/billing"
	"github.com/stackspendlabs/stackspend/internal/clock"
	"github.com/stackspendlabs/stackspend/internal/config"
	dealdomain "github.com/stackspendlabs/stackspend/internal/lifetimedeal/domain"
	"github.com/stackspendlabs/stackspend/internal/orgcontext"
	reportdomain "github.com/stackspendlabs/stackspend/internal/report/domain"
	subscriptiondomain "github.com/stackspendlabs/stackspend/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bwmarrin/snowflake"
)

const uncategorized = "uncategorized"

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock            clock.Clock
	cfg              config.ReportConfig
	cache            *reportCache
	subscriptionRepo subscriptiondomain.Repository
	dealRepo         dealdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	Clock            clock.Clock
	Config           config.Config
	Redis            *redis.Client
	Registry         *prometheus.Registry
	SubscriptionRepo subscriptiondomain.Repository
	DealRepo         dealdomain.Repository
}

func NewService(p ServiceParam) reportdomain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("report.service"),
		clock:            p.Clock,
		cfg:              p.Config.Report,
		cache:            newReportCache(p.Redis, p.Config.Report.CacheTTL, p.Registry),
		subscriptionRepo: p.SubscriptionRepo,
		dealRepo:         p.DealRepo,
	}
}

func (s *Service) SpendSummary(ctx context.Context) (reportdomain.SpendSummary, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return reportdomain.SpendSummary{}, reportdomain.ErrInvalidOrganization
	}

	var cached reportdomain.SpendSummary
	if s.cache.get(ctx, "summary", summaryKey(orgID), &cached) {
		return cached, nil
	}

	summary, err := s.computeSummary(ctx, orgID)
	if err != nil {
		return reportdomain.SpendSummary{}, err
	}

	if err := s.cache.set(ctx, summaryKey(orgID), summary); err != nil {
		s.log.Warn("failed to cache spend summary", zap.Error(err))
	}
	return summary, nil
}

func (s *Service) UpcomingRenewals(ctx context.Context, windowDays int) (reportdomain.RenewalsReport, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return reportdomain.RenewalsReport{}, reportdomain.ErrInvalidOrganization
	}

	if windowDays <= 0 {
		windowDays = s.cfg.RenewalWindowDays
	}

	var cached reportdomain.RenewalsReport
	if s.cache.get(ctx, "renewals", renewalsKey(orgID, windowDays), &cached) {
		return cached, nil
	}

	report, err := s.computeRenewals(ctx, orgID, windowDays)
	if err != nil {
		return reportdomain.RenewalsReport{}, err
	}

	if err := s.cache.set(ctx, renewalsKey(orgID, windowDays), report); err != nil {
		s.log.Warn("failed to cache renewals report", zap.Error(err))
	}
	return report, nil
}

// CategoryBreakdown is a view over the cached spend summary, so it never
// costs a second computation.
func (s *Service) CategoryBreakdown(ctx context.Context) (reportdomain.CategoryReport, error) {
	summary, err := s.SpendSummary(ctx)
	if err != nil {
		return reportdomain.CategoryReport{}, err
	}
	return reportdomain.CategoryReport{
		Categories:  summary.ByCategory,
		GeneratedAt: summary.GeneratedAt,
	}, nil
}

func (s *Service) Invalidate(ctx context.Context) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return reportdomain.ErrInvalidOrganization
	}
	return s.cache.invalidate(ctx, orgID)
}

func (s *Service) WarmAll(ctx context.Context) error {
	orgIDs, err := s.subscriptionRepo.DistinctOrgIDs(ctx, s.db)
	if err != nil {
		return err
	}

	for _, orgID := range orgIDs {
		summary, err := s.computeSummary(ctx, orgID)
		if err != nil {
			s.log.Warn("failed to warm spend summary",
				zap.String("org_id", orgID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := s.cache.set(ctx, summaryKey(orgID), summary); err != nil {
			s.log.Warn("failed to cache spend summary", zap.Error(err))
		}

		report, err := s.computeRenewals(ctx, orgID, s.cfg.RenewalWindowDays)
		if err != nil {
			s.log.Warn("failed to warm renewals report",
				zap.String("org_id", orgID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := s.cache.set(ctx, renewalsKey(orgID, s.cfg.RenewalWindowDays), report); err != nil {
			s.log.Warn("failed to cache renewals report", zap.Error(err))
		}
	}

	s.log.Info("warmed report caches", zap.Int("organizations", len(orgIDs)))
	return nil
}

func (s *Service) computeSummary(ctx context.Context, orgID snowflake.ID) (reportdomain.SpendSummary, error) {
	subscriptions, err := s.subscriptionRepo.ListActiveByOrg(ctx, s.db, orgID)
	if err != nil {
		return reportdomain.SpendSummary{}, err
	}

	lifetimeSpend, err := s.dealRepo.SumByOrg(ctx, s.db, orgID)
	if err != nil {
		return reportdomain.SpendSummary{}, err
	}

	now := s.clock.Now(ctx)

	var totalMonthly, accumulated float64
	type bucket struct {
		monthly float64
		count   int
	}
	categories := map[string]*bucket{}

	for _, sub := range subscriptions {
		cycle := billing.ParseCycle(sub.BillingCycle)
		monthly := sub.Amount * cycle.MonthlyFactor()

		totalMonthly += monthly
		accumulated += billing.AccumulatedCost(sub.Amount, sub.StartDate, cycle, now)

		category := uncategorized
		if sub.Category != nil && *sub.Category != "" {
			category = *sub.Category
		}
		b, ok := categories[category]
		if !ok {
			b = &bucket{}
			categories[category] = b
		}
		b.monthly += monthly
		b.count++
	}

	byCategory := make([]reportdomain.CategorySpend, 0, len(categories))
	for name, b := range categories {
		byCategory = append(byCategory, reportdomain.CategorySpend{
			Category:     name,
			MonthlySpend: round2(b.monthly),
			Count:        b.count,
		})
	}
	sort.Slice(byCategory, func(i, j int) bool {
		if byCategory[i].MonthlySpend != byCategory[j].MonthlySpend {
			return byCategory[i].MonthlySpend > byCategory[j].MonthlySpend
		}
		return byCategory[i].Category < byCategory[j].Category
	})

	return reportdomain.SpendSummary{
		TotalMonthly:    round2(totalMonthly),
		TotalAnnual:     round2(totalMonthly * 12),
		AccumulatedCost: round2(accumulated),
		LifetimeSpend:   round2(lifetimeSpend),
		ActiveCount:     len(subscriptions),
		ByCategory:      byCategory,
		GeneratedAt:     now,
	}, nil
}

func (s *Service) computeRenewals(ctx context.Context, orgID snowflake.ID, windowDays int) (reportdomain.RenewalsReport, error) {
	subscriptions, err := s.subscriptionRepo.ListActiveByOrg(ctx, s.db, orgID)
	if err != nil {
		return reportdomain.RenewalsReport{}, err
	}

	now := s.clock.Now(ctx)

	renewals := make([]reportdomain.UpcomingRenewal, 0)
	for _, sub := range subscriptions {
		cycle := billing.ParseCycle(sub.BillingCycle)
		next := billing.NextBillingDate(sub.StartDate, cycle, now)
		daysUntil := billing.DaysUntil(now, next)
		if daysUntil > windowDays {
			continue
		}

		renewal := reportdomain.UpcomingRenewal{
			SubscriptionID:     sub.ID.String(),
			Name:               sub.Name,
			Amount:             sub.Amount,
			Currency:           sub.Currency,
			NextBillingDate:    billing.FormatDateForInput(next),
			NextBillingDisplay: billing.FormatDateForDisplay(next, billing.StyleUS),
			DaysUntilDue:       daysUntil,
		}
		if sub.Vendor != nil {
			renewal.Vendor = *sub.Vendor
		}
		renewals = append(renewals, renewal)
	}

	sort.Slice(renewals, func(i, j int) bool {
		if renewals[i].DaysUntilDue != renewals[j].DaysUntilDue {
			return renewals[i].DaysUntilDue < renewals[j].DaysUntilDue
		}
		return renewals[i].Name < renewals[j].Name
	})

	return reportdomain.RenewalsReport{
		WindowDays:  windowDays,
		Renewals:    renewals,
		GeneratedAt: now,
	}, nil
}

// round2 rounds half away from zero, which float math alone does not
// guarantee for currency values.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
