package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/stackspendlabs/stackspend/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, org_id, name, slug, email, company, notes, metadata, idempotency_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.OrgID,
		client.Name,
		client.Slug,
		client.Email,
		client.Company,
		client.Notes,
		client.Metadata,
		client.IdempotencyKey,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Client, error) {
	var c domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, slug, email, company, notes, metadata, idempotency_key, created_at, updated_at
		 FROM clients WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*domain.Client, error) {
	var c domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, slug, email, company, notes, metadata, idempotency_key, created_at, updated_at
		 FROM clients WHERE org_id = ? AND idempotency_key = ? LIMIT 1`,
		orgID,
		key,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	if client == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE clients
		 SET name = ?, slug = ?, email = ?, company = ?, notes = ?, metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		client.Name,
		client.Slug,
		client.Email,
		client.Company,
		client.Notes,
		client.Metadata,
		client.UpdatedAt,
		client.OrgID,
		client.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM clients WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Error
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM clients WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
