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
	ErrInvalidOrganization = errors.New("project: invalid organization")
	ErrProjectNotFound     = errors.New("project: not found")
	ErrInvalidProject      = errors.New("project: invalid project id")
	ErrInvalidName         = errors.New("project: name is required")
	ErrInvalidStatus       = errors.New("project: invalid status")
	ErrInvalidClient       = errors.New("project: invalid client id")
)

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "ACTIVE"
	ProjectStatusArchived ProjectStatus = "ARCHIVED"
)

type Project struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID      `gorm:"not null;index" json:"org_id"`
	ClientID       *snowflake.ID     `gorm:"index" json:"client_id,omitempty"`
	Name           string            `gorm:"type:text;not null" json:"name"`
	Slug           string            `gorm:"type:text;not null" json:"slug"`
	Status         ProjectStatus     `gorm:"type:text;not null;default:ACTIVE" json:"status"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	IdempotencyKey *string           `gorm:"type:text" json:"-"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

type CreateProjectRequest struct {
	Name           string
	ClientID       string
	Metadata       map[string]any
	IdempotencyKey string
}

type UpdateProjectRequest struct {
	ProjectID string
	Name      *string
	Status    *string
	ClientID  *string
	Metadata  map[string]any
}

type ListProjectRequest struct {
	Status    string
	ClientID  string
	PageToken string
	PageSize  int32
}

type ListProjectResponse struct {
	Projects []Project           `json:"projects"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Project, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*Project, error)
	Update(ctx context.Context, db *gorm.DB, project *Project) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
}

type Service interface {
	Create(ctx context.Context, req CreateProjectRequest) (Project, error)
	GetByID(ctx context.Context, id string) (Project, error)
	List(ctx context.Context, req ListProjectRequest) (ListProjectResponse, error)
	Update(ctx context.Context, req UpdateProjectRequest) (Project, error)
	Delete(ctx context.Context, id string) error
}
