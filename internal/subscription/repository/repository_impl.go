package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/stackspendlabs/stackspend/internal/subscription/domain"
	"gorm.io/gorm"
)

const subscriptionColumns = `id, org_id, client_id, project_id, name, vendor, category, amount, currency,
	 billing_cycle, start_date, status, notes, metadata, idempotency_key,
	 paused_at, resumed_at, canceled_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (`+subscriptionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.OrgID,
		subscription.ClientID,
		subscription.ProjectID,
		subscription.Name,
		subscription.Vendor,
		subscription.Category,
		subscription.Amount,
		subscription.Currency,
		subscription.BillingCycle,
		subscription.StartDate,
		subscription.Status,
		subscription.Notes,
		subscription.Metadata,
		subscription.IdempotencyKey,
		subscription.PausedAt,
		subscription.ResumedAt,
		subscription.CanceledAt,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE org_id = ? AND id = ?`
	// sqlite has no row locks; everything else gets FOR UPDATE.
	if db.Dialector.Name() != "sqlite" {
		query += ` FOR UPDATE`
	}

	var s domain.Subscription
	err := db.WithContext(ctx).Raw(query, orgID, id).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE org_id = ? AND idempotency_key = ? LIMIT 1`,
		orgID,
		key,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	if subscription == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET client_id = ?, project_id = ?, name = ?, vendor = ?, category = ?, amount = ?, currency = ?,
		     billing_cycle = ?, start_date = ?, notes = ?, metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		subscription.ClientID,
		subscription.ProjectID,
		subscription.Name,
		subscription.Vendor,
		subscription.Category,
		subscription.Amount,
		subscription.Currency,
		subscription.BillingCycle,
		subscription.StartDate,
		subscription.Notes,
		subscription.Metadata,
		subscription.UpdatedAt,
		subscription.OrgID,
		subscription.ID,
	).Error
}

func (r *repo) UpdateLifecycle(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	if subscription == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, paused_at = ?, resumed_at = ?, canceled_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		subscription.Status,
		subscription.PausedAt,
		subscription.ResumedAt,
		subscription.CanceledAt,
		subscription.UpdatedAt,
		subscription.OrgID,
		subscription.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM subscriptions WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Error
}

func (r *repo) ListActiveByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.Subscription, error) {
	var items []domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE org_id = ? AND status = ? ORDER BY created_at ASC`,
		orgID,
		domain.SubscriptionStatusActive,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DistinctOrgIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT org_id FROM subscriptions`,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM subscriptions WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
