// Package domain defines the lifetime deal model: a one-time purchase with no
// recurring cycle, tracked for its refund window and amortized cost.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stackspendlabs/stackspend/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidOrganization = errors.New("lifetimedeal: invalid organization")
	ErrDealNotFound        = errors.New("lifetimedeal: not found")
	ErrInvalidDeal         = errors.New("lifetimedeal: invalid deal id")
	ErrInvalidName         = errors.New("lifetimedeal: name is required")
	ErrInvalidAmount       = errors.New("lifetimedeal: amount must be >= 0")
	ErrInvalidPurchaseDate = errors.New("lifetimedeal: invalid purchase date")
	ErrInvalidRefundWindow = errors.New("lifetimedeal: refund window must be >= 0")
	ErrInvalidClient       = errors.New("lifetimedeal: invalid client id")
)

type LifetimeDeal struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID      `gorm:"not null;index" json:"org_id"`
	ClientID         *snowflake.ID     `gorm:"index" json:"client_id,omitempty"`
	Name             string            `gorm:"type:text;not null" json:"name"`
	Vendor           *string           `gorm:"type:text" json:"vendor,omitempty"`
	Amount           float64           `gorm:"not null" json:"amount"`
	Currency         string            `gorm:"type:text;not null;default:USD" json:"currency"`
	PurchaseDate     time.Time         `gorm:"not null" json:"purchase_date"`
	RefundWindowDays int               `gorm:"not null;default:0" json:"refund_window_days"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty"`
	IdempotencyKey   *string           `gorm:"type:text" json:"-"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (LifetimeDeal) TableName() string { return "lifetime_deals" }

// View is a deal decorated with read-time fields derived from the purchase
// date, recomputed on every read.
type View struct {
	LifetimeDeal

	DaysSincePurchase int  `json:"days_since_purchase"`
	RefundEligible    bool `json:"refund_eligible"`
}

type CreateDealRequest struct {
	Name             string
	Vendor           string
	Amount           float64
	Currency         string
	PurchaseDate     string
	RefundWindowDays int
	ClientID         string
	Metadata         map[string]any
	IdempotencyKey   string
}

type UpdateDealRequest struct {
	DealID           string
	Name             *string
	Vendor           *string
	Amount           *float64
	Currency         *string
	PurchaseDate     *string
	RefundWindowDays *int
	ClientID         *string
	Metadata         map[string]any
}

type ListDealRequest struct {
	ClientID  string
	PageToken string
	PageSize  int32
}

type ListDealResponse struct {
	Deals    []View              `json:"deals"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, deal *LifetimeDeal) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*LifetimeDeal, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*LifetimeDeal, error)
	Update(ctx context.Context, db *gorm.DB, deal *LifetimeDeal) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
	SumByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (float64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateDealRequest) (View, error)
	GetByID(ctx context.Context, id string) (View, error)
	List(ctx context.Context, req ListDealRequest) (ListDealResponse, error)
	Update(ctx context.Context, req UpdateDealRequest) (View, error)
	Delete(ctx context.Context, id string) error
}
