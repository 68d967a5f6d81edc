package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/stackspendlabs/stackspend/internal/project/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO projects (id, org_id, client_id, name, slug, status, metadata, idempotency_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.OrgID,
		project.ClientID,
		project.Name,
		project.Slug,
		project.Status,
		project.Metadata,
		project.IdempotencyKey,
		project.CreatedAt,
		project.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, client_id, name, slug, status, metadata, idempotency_key, created_at, updated_at
		 FROM projects WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, client_id, name, slug, status, metadata, idempotency_key, created_at, updated_at
		 FROM projects WHERE org_id = ? AND idempotency_key = ? LIMIT 1`,
		orgID,
		key,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	if project == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE projects
		 SET name = ?, slug = ?, status = ?, client_id = ?, metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		project.Name,
		project.Slug,
		project.Status,
		project.ClientID,
		project.Metadata,
		project.UpdatedAt,
		project.OrgID,
		project.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM projects WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Error
}
