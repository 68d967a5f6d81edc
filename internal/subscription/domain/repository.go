package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Subscription, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Subscription, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*Subscription, error)
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	UpdateLifecycle(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
	ListActiveByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Subscription, error)
	DistinctOrgIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
	Count(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateSubscriptionRequest) (View, error)
	GetByID(ctx context.Context, id string) (View, error)
	List(ctx context.Context, req ListSubscriptionRequest) (ListSubscriptionResponse, error)
	Update(ctx context.Context, req UpdateSubscriptionRequest) (View, error)
	Transition(ctx context.Context, id string, target SubscriptionStatus) error
	Delete(ctx context.Context, id string) error
}
