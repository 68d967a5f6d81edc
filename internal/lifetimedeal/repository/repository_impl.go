package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/stackspendlabs/stackspend/internal/lifetimedeal/domain"
	"gorm.io/gorm"
)

const dealColumns = `id, org_id, client_id, name, vendor, amount, currency, purchase_date,
	 refund_window_days, metadata, idempotency_key, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, deal *domain.LifetimeDeal) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO lifetime_deals (`+dealColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deal.ID,
		deal.OrgID,
		deal.ClientID,
		deal.Name,
		deal.Vendor,
		deal.Amount,
		deal.Currency,
		deal.PurchaseDate,
		deal.RefundWindowDays,
		deal.Metadata,
		deal.IdempotencyKey,
		deal.CreatedAt,
		deal.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.LifetimeDeal, error) {
	var d domain.LifetimeDeal
	err := db.WithContext(ctx).Raw(
		`SELECT `+dealColumns+` FROM lifetime_deals WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*domain.LifetimeDeal, error) {
	var d domain.LifetimeDeal
	err := db.WithContext(ctx).Raw(
		`SELECT `+dealColumns+` FROM lifetime_deals WHERE org_id = ? AND idempotency_key = ? LIMIT 1`,
		orgID,
		key,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, deal *domain.LifetimeDeal) error {
	if deal == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE lifetime_deals
		 SET client_id = ?, name = ?, vendor = ?, amount = ?, currency = ?, purchase_date = ?,
		     refund_window_days = ?, metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		deal.ClientID,
		deal.Name,
		deal.Vendor,
		deal.Amount,
		deal.Currency,
		deal.PurchaseDate,
		deal.RefundWindowDays,
		deal.Metadata,
		deal.UpdatedAt,
		deal.OrgID,
		deal.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM lifetime_deals WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Error
}

func (r *repo) SumByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (float64, error) {
	var sum float64
	if err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM lifetime_deals WHERE org_id = ?`,
		orgID,
	).Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}
