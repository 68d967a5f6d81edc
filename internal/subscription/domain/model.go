// Package domain defines the subscription model: a recurring third-party
// charge the business pays for, tracked with its billing cycle and anchor
// date so the billing engine can derive due dates and accrued spend.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stackspendlabs/stackspend/pkg/db/pagination"
	"gorm.io/datatypes"
)

var (
	ErrInvalidOrganization  = errors.New("subscription: invalid organization")
	ErrSubscriptionNotFound = errors.New("subscription: not found")
	ErrInvalidSubscription  = errors.New("subscription: invalid subscription id")
	ErrInvalidName          = errors.New("subscription: name is required")
	ErrInvalidAmount        = errors.New("subscription: amount must be >= 0")
	ErrInvalidBillingCycle  = errors.New("subscription: invalid billing cycle")
	ErrInvalidStartDate     = errors.New("subscription: invalid start date")
	ErrInvalidStatus        = errors.New("subscription: invalid status")
	ErrInvalidTargetStatus  = errors.New("subscription: invalid target status")
	ErrInvalidTransition    = errors.New("subscription: transition not allowed")
	ErrInvalidClient        = errors.New("subscription: invalid client id")
	ErrInvalidProject       = errors.New("subscription: invalid project id")
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused   SubscriptionStatus = "PAUSED"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

type Subscription struct {
	ID             snowflake.ID       `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID       `gorm:"not null;index" json:"org_id"`
	ClientID       *snowflake.ID      `gorm:"index" json:"client_id,omitempty"`
	ProjectID      *snowflake.ID      `gorm:"index" json:"project_id,omitempty"`
	Name           string             `gorm:"type:text;not null" json:"name"`
	Vendor         *string            `gorm:"type:text" json:"vendor,omitempty"`
	Category       *string            `gorm:"type:text" json:"category,omitempty"`
	Amount         float64            `gorm:"not null" json:"amount"`
	Currency       string             `gorm:"type:text;not null;default:USD" json:"currency"`
	BillingCycle   string             `gorm:"type:text;not null" json:"billing_cycle"`
	StartDate      time.Time          `gorm:"not null" json:"start_date"`
	Status         SubscriptionStatus `gorm:"type:text;not null;default:ACTIVE" json:"status"`
	Notes          *string            `gorm:"type:text" json:"notes,omitempty"`
	Metadata       datatypes.JSONMap  `json:"metadata,omitempty"`
	IdempotencyKey *string            `gorm:"type:text" json:"-"`
	PausedAt       *time.Time         `json:"paused_at,omitempty"`
	ResumedAt      *time.Time         `json:"resumed_at,omitempty"`
	CanceledAt     *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt      time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// View is a subscription decorated with engine-derived read-time fields.
// None of these are persisted; they are recomputed on every read so they can
// never drift from the anchor date.
type View struct {
	Subscription

	NextBillingDate    string  `json:"next_billing_date"`
	NextBillingDisplay string  `json:"next_billing_display"`
	DaysUntilDue       int     `json:"days_until_due"`
	AccruedThisPeriod  float64 `json:"accrued_this_period"`
	AccumulatedCost    float64 `json:"accumulated_cost"`
}

type CreateSubscriptionRequest struct {
	Name           string
	Vendor         string
	Category       string
	Amount         float64
	Currency       string
	BillingCycle   string
	StartDate      string
	ClientID       string
	ProjectID      string
	Notes          string
	Metadata       map[string]any
	IdempotencyKey string
}

type UpdateSubscriptionRequest struct {
	SubscriptionID string
	Name           *string
	Vendor         *string
	Category       *string
	Amount         *float64
	Currency       *string
	BillingCycle   *string
	StartDate      *string
	ClientID       *string
	ProjectID      *string
	Notes          *string
	Metadata       map[string]any
}

type ListSubscriptionRequest struct {
	Status      string
	ClientID    string
	ProjectID   string
	Category    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	PageToken   string
	PageSize    int32
}

type ListSubscriptionResponse struct {
	Subscriptions []View              `json:"subscriptions"`
	PageInfo      pagination.PageInfo `json:"page_info"`
}
