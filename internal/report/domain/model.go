// Package domain defines the reporting read models: aggregate spend and
// upcoming renewals, always derived from live subscription rows.
package domain

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidOrganization = errors.New("report: invalid organization")

// SpendSummary is the dashboard headline. Monetary fields are rounded to two
// decimal places at the aggregation boundary; intermediate math stays float.
type SpendSummary struct {
	TotalMonthly    float64         `json:"total_monthly"`
	TotalAnnual     float64         `json:"total_annual"`
	AccumulatedCost float64         `json:"accumulated_cost"`
	LifetimeSpend   float64         `json:"lifetime_spend"`
	ActiveCount     int             `json:"active_count"`
	ByCategory      []CategorySpend `json:"by_category"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

type CategorySpend struct {
	Category     string  `json:"category"`
	MonthlySpend float64 `json:"monthly_spend"`
	Count        int     `json:"count"`
}

type UpcomingRenewal struct {
	SubscriptionID     string  `json:"subscription_id"`
	Name               string  `json:"name"`
	Vendor             string  `json:"vendor,omitempty"`
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency"`
	NextBillingDate    string  `json:"next_billing_date"`
	NextBillingDisplay string  `json:"next_billing_display"`
	DaysUntilDue       int     `json:"days_until_due"`
}

type RenewalsReport struct {
	WindowDays  int               `json:"window_days"`
	Renewals    []UpcomingRenewal `json:"renewals"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type CategoryReport struct {
	Categories  []CategorySpend `json:"categories"`
	GeneratedAt time.Time       `json:"generated_at"`
}

type Service interface {
	SpendSummary(ctx context.Context) (SpendSummary, error)
	UpcomingRenewals(ctx context.Context, windowDays int) (RenewalsReport, error)
	CategoryBreakdown(ctx context.Context) (CategoryReport, error)
	// Invalidate drops the organization's cached reports. Called after
	// mutations that change spend.
	Invalidate(ctx context.Context) error
	// WarmAll recomputes and caches reports for every organization that has
	// subscriptions. Used by the scheduler.
	WarmAll(ctx context.Context) error
}
