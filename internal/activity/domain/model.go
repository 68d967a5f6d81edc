// Package domain defines the append-only activity feed: one event per
// meaningful mutation, kept for a bounded retention window.
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
	ErrInvalidOrganization = errors.New("activity: invalid organization")
	ErrInvalidAction       = errors.New("activity: action is required")
	ErrInvalidEntityType   = errors.New("activity: entity type is required")
)

// Event IDs are ULIDs rather than snowflakes: lexicographic order matches
// insertion order, which is what a feed wants.
type Event struct {
	ID         string            `gorm:"primaryKey;type:text" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index" json:"org_id"`
	Actor      *string           `gorm:"type:text" json:"actor,omitempty"`
	Action     string            `gorm:"type:text;not null" json:"action"`
	EntityType string            `gorm:"type:text;not null" json:"entity_type"`
	EntityID   *string           `gorm:"type:text" json:"entity_id,omitempty"`
	Payload    datatypes.JSONMap `json:"payload,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Event) TableName() string { return "activity_events" }

type RecordEventRequest struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Payload    map[string]any
}

type ListEventRequest struct {
	EntityType string
	Action     string
	PageToken  string
	PageSize   int32
}

type ListEventResponse struct {
	Events   []Event             `json:"events"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	DeleteOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

type Service interface {
	Record(ctx context.Context, req RecordEventRequest) (Event, error)
	List(ctx context.Context, req ListEventRequest) (ListEventResponse, error)
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}
