package repository

import (
	"context"
	"time"

	"github.com/stackspendlabs/stackspend/internal/activity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO activity_events (id, org_id, actor, action, entity_type, entity_id, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.OrgID,
		event.Actor,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.Payload,
		event.CreatedAt,
	).Error
}

func (r *repo) DeleteOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM activity_events WHERE created_at < ?`,
		cutoff,
	)
	return res.RowsAffected, res.Error
}
