package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stackspendlabs/stackspend/internal/clock"
	"github.com/stackspendlabs/stackspend/internal/config"
	dealdomain "github.com/stackspendlabs/stackspend/internal/lifetimedeal/domain"
	dealrepository "github.com/stackspendlabs/stackspend/internal/lifetimedeal/repository"
	"github.com/stackspendlabs/stackspend/internal/orgcontext"
	reportdomain "github.com/stackspendlabs/stackspend/internal/report/domain"
	"github.com/stackspendlabs/stackspend/internal/report/service"
	subscriptiondomain "github.com/stackspendlabs/stackspend/internal/subscription/domain"
	subscriptionrepository "github.com/stackspendlabs/stackspend/internal/subscription/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	mr    *miniredis.Miniredis
	node  *snowflake.Node
	svc   reportdomain.Service
	reg   *prometheus.Registry
	orgID snowflake.ID
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&subscriptiondomain.Subscription{}, &dealdomain.LifetimeDeal{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)

	cfg := config.Config{}
	cfg.Report.CacheTTL = 5 * time.Minute
	cfg.Report.RenewalWindowDays = 30

	reg := prometheus.NewRegistry()
	svc := service.NewService(service.ServiceParam{
		DB:               db,
		Log:              zap.NewNop(),
		Clock:            clock.Fixed{T: now},
		Config:           cfg,
		Redis:            client,
		Registry:         reg,
		SubscriptionRepo: subscriptionrepository.Provide(),
		DealRepo:         dealrepository.Provide(),
	})

	return &fixture{
		db:    db,
		mr:    mr,
		node:  node,
		svc:   svc,
		reg:   reg,
		orgID: node.Generate(),
		now:   now,
	}
}

func (f *fixture) ctx() context.Context {
	return orgcontext.WithOrgID(context.Background(), f.orgID)
}

func (f *fixture) addSubscription(t *testing.T, name, category, cycle string, amount float64, start time.Time, status subscriptiondomain.SubscriptionStatus) {
	t.Helper()
	var categoryPtr *string
	if category != "" {
		categoryPtr = &category
	}
	sub := subscriptiondomain.Subscription{
		ID:           f.node.Generate(),
		OrgID:        f.orgID,
		Name:         name,
		Category:     categoryPtr,
		Amount:       amount,
		Currency:     "USD",
		BillingCycle: cycle,
		StartDate:    start,
		Status:       status,
		CreatedAt:    f.now,
		UpdatedAt:    f.now,
	}
	require.NoError(t, subscriptionrepository.Provide().Insert(context.Background(), f.db, &sub))
}

func (f *fixture) addDeal(t *testing.T, name string, amount float64) {
	t.Helper()
	deal := dealdomain.LifetimeDeal{
		ID:           f.node.Generate(),
		OrgID:        f.orgID,
		Name:         name,
		Amount:       amount,
		Currency:     "USD",
		PurchaseDate: f.now.AddDate(0, -1, 0),
		CreatedAt:    f.now,
		UpdatedAt:    f.now,
	}
	require.NoError(t, dealrepository.Provide().Insert(context.Background(), f.db, &deal))
}

func TestSpendSummary(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.Local)

	f.addSubscription(t, "Datadog", "infra", "monthly", 30, start, subscriptiondomain.SubscriptionStatusActive)
	f.addSubscription(t, "Backups", "infra", "weekly", 7, start, subscriptiondomain.SubscriptionStatusActive)
	f.addSubscription(t, "Paused thing", "tools", "monthly", 99, start, subscriptiondomain.SubscriptionStatusPaused)
	f.addDeal(t, "AppSumo LTD", 59)

	got, err := f.svc.SpendSummary(f.ctx())
	require.NoError(t, err)

	// weekly $7 normalizes to 7 * 30.44/7 = $30.44 per month.
	assert.InDelta(t, 60.44, got.TotalMonthly, 0.001)
	assert.InDelta(t, 725.28, got.TotalAnnual, 0.001)
	assert.Equal(t, 59.0, got.LifetimeSpend)
	assert.Equal(t, 2, got.ActiveCount)

	require.Len(t, got.ByCategory, 1)
	assert.Equal(t, "infra", got.ByCategory[0].Category)
	assert.Equal(t, 2, got.ByCategory[0].Count)
	assert.InDelta(t, 60.44, got.ByCategory[0].MonthlySpend, 0.001)
}

func TestSpendSummary_ServedFromCache(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.Local)
	f.addSubscription(t, "Datadog", "infra", "monthly", 30, start, subscriptiondomain.SubscriptionStatusActive)

	first, err := f.svc.SpendSummary(f.ctx())
	require.NoError(t, err)

	// A new row must not show up while the snapshot is cached.
	f.addSubscription(t, "New thing", "", "monthly", 100, start, subscriptiondomain.SubscriptionStatusActive)

	second, err := f.svc.SpendSummary(f.ctx())
	require.NoError(t, err)
	assert.Equal(t, first.TotalMonthly, second.TotalMonthly)

	// After TTL expiry the report recomputes.
	f.mr.FastForward(10 * time.Minute)
	third, err := f.svc.SpendSummary(f.ctx())
	require.NoError(t, err)
	assert.InDelta(t, 130.0, third.TotalMonthly, 0.001)
}

func TestUpcomingRenewals(t *testing.T) {
	f := newFixture(t)

	// Anchored 2024-03-15: next renewal 2024-04-15, 26 days out.
	f.addSubscription(t, "Inside window", "", "monthly",
		50, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.Local),
		subscriptiondomain.SubscriptionStatusActive)
	// Annual anchored 2023-06-01: next renewal 2024-06-01, well outside 30 days.
	f.addSubscription(t, "Outside window", "", "annual",
		120, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.Local),
		subscriptiondomain.SubscriptionStatusActive)

	got, err := f.svc.UpcomingRenewals(f.ctx(), 0)
	require.NoError(t, err)

	assert.Equal(t, 30, got.WindowDays)
	require.Len(t, got.Renewals, 1)
	assert.Equal(t, "Inside window", got.Renewals[0].Name)
	assert.Equal(t, "2024-04-15", got.Renewals[0].NextBillingDate)
	assert.Equal(t, "Apr 15, 2024", got.Renewals[0].NextBillingDisplay)
	assert.Equal(t, 26, got.Renewals[0].DaysUntilDue)
}

func TestCategoryBreakdown(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.Local)

	f.addSubscription(t, "Datadog", "infra", "monthly", 30, start, subscriptiondomain.SubscriptionStatusActive)
	f.addSubscription(t, "Figma", "design", "monthly", 15, start, subscriptiondomain.SubscriptionStatusActive)
	f.addSubscription(t, "Uncategorized tool", "", "monthly", 5, start, subscriptiondomain.SubscriptionStatusActive)

	got, err := f.svc.CategoryBreakdown(f.ctx())
	require.NoError(t, err)

	require.Len(t, got.Categories, 3)
	assert.Equal(t, "infra", got.Categories[0].Category)
	assert.Equal(t, "design", got.Categories[1].Category)
	assert.Equal(t, "uncategorized", got.Categories[2].Category)
	assert.InDelta(t, 30.0, got.Categories[0].MonthlySpend, 0.001)
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.Local)
	f.addSubscription(t, "Datadog", "infra", "monthly", 30, start, subscriptiondomain.SubscriptionStatusActive)

	_, err := f.svc.SpendSummary(f.ctx())
	require.NoError(t, err)
	_, err = f.svc.UpcomingRenewals(f.ctx(), 30)
	require.NoError(t, err)

	f.addSubscription(t, "New thing", "", "monthly", 100, start, subscriptiondomain.SubscriptionStatusActive)
	require.NoError(t, f.svc.Invalidate(f.ctx()))

	got, err := f.svc.SpendSummary(f.ctx())
	require.NoError(t, err)
	assert.InDelta(t, 130.0, got.TotalMonthly, 0.001)
}

func TestInvalidate_ScopedToOrganization(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.Local)

	// Org ids chosen so one is a string prefix of the other: invalidating 12
	// must not touch 123's keys.
	orgA := snowflake.ID(12)
	orgB := snowflake.ID(123)
	ctxA := orgcontext.WithOrgID(context.Background(), orgA)
	ctxB := orgcontext.WithOrgID(context.Background(), orgB)

	repo := subscriptionrepository.Provide()
	for _, orgID := range []snowflake.ID{orgA, orgB} {
		sub := subscriptiondomain.Subscription{
			ID:           f.node.Generate(),
			OrgID:        orgID,
			Name:         "Datadog",
			Amount:       30,
			Currency:     "USD",
			BillingCycle: "monthly",
			StartDate:    start,
			Status:       subscriptiondomain.SubscriptionStatusActive,
			CreatedAt:    f.now,
			UpdatedAt:    f.now,
		}
		require.NoError(t, repo.Insert(context.Background(), f.db, &sub))
	}

	_, err := f.svc.SpendSummary(ctxA)
	require.NoError(t, err)
	_, err = f.svc.SpendSummary(ctxB)
	require.NoError(t, err)

	require.NoError(t, f.svc.Invalidate(ctxA))

	// B's snapshot survived: a new row is not visible until its own cache
	// expires or is invalidated.
	subB := subscriptiondomain.Subscription{
		ID:           f.node.Generate(),
		OrgID:        orgB,
		Name:         "New thing",
		Amount:       100,
		Currency:     "USD",
		BillingCycle: "monthly",
		StartDate:    start,
		Status:       subscriptiondomain.SubscriptionStatusActive,
		CreatedAt:    f.now,
		UpdatedAt:    f.now,
	}
	require.NoError(t, repo.Insert(context.Background(), f.db, &subB))

	got, err := f.svc.SpendSummary(ctxB)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, got.TotalMonthly, 0.001)
}

func TestWarmAll(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.Local)
	f.addSubscription(t, "Datadog", "infra", "monthly", 30, start, subscriptiondomain.SubscriptionStatusActive)

	require.NoError(t, f.svc.WarmAll(context.Background()))

	// The warmed snapshot is served without recomputing.
	f.addSubscription(t, "New thing", "", "monthly", 100, start, subscriptiondomain.SubscriptionStatusActive)

	got, err := f.svc.SpendSummary(f.ctx())
	require.NoError(t, err)
	assert.InDelta(t, 30.0, got.TotalMonthly, 0.001)
}

func TestCacheCounters(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.Local)
	f.addSubscription(t, "Datadog", "infra", "monthly", 30, start, subscriptiondomain.SubscriptionStatusActive)

	_, err := f.svc.SpendSummary(f.ctx())
	require.NoError(t, err)
	_, err = f.svc.SpendSummary(f.ctx())
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterValue(t, f.reg, "stackspend_report_cache_misses_total", "summary"))
	assert.Equal(t, 1.0, counterValue(t, f.reg, "stackspend_report_cache_hits_total", "summary"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, report string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == name {
			family = f
			break
		}
	}
	if family == nil {
		return 0
	}

	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "report" && label.GetValue() == report {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestReports_RequireOrganization(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SpendSummary(context.Background())
	assert.ErrorIs(t, err, reportdomain.ErrInvalidOrganization)

	_, err = f.svc.UpcomingRenewals(context.Background(), 30)
	assert.ErrorIs(t, err, reportdomain.ErrInvalidOrganization)
}
