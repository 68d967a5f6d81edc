package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stackspendlabs/stackspend/pkg/db/pagination"
	"gorm.io/datatypes"
)

var (
	ErrInvalidOrganization = errors.New("client: invalid organization")
	ErrClientNotFound      = errors.New("client: not found")
	ErrInvalidClient       = errors.New("client: invalid client id")
	ErrInvalidName         = errors.New("client: name is required")
)

// Client is a company or contact that subscriptions and lifetime deals can be
// attached to for cost attribution.
type Client struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID      `gorm:"not null;index" json:"org_id"`
	Name           string            `gorm:"type:text;not null" json:"name"`
	Slug           string            `gorm:"type:text;not null" json:"slug"`
	Email          *string           `gorm:"type:text" json:"email,omitempty"`
	Company        *string           `gorm:"type:text" json:"company,omitempty"`
	Notes          *string           `gorm:"type:text" json:"notes,omitempty"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	IdempotencyKey *string           `gorm:"type:text" json:"-"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

type CreateClientRequest struct {
	Name           string
	Email          string
	Company        string
	Notes          string
	Metadata       map[string]any
	IdempotencyKey string
}

type UpdateClientRequest struct {
	ClientID string
	Name     *string
	Email    *string
	Company  *string
	Notes    *string
	Metadata map[string]any
}

type ListClientRequest struct {
	Name      string
	PageToken string
	PageSize  int32
}

type ListClientResponse struct {
	Clients  []Client            `json:"clients"`
	PageInfo pagination.PageInfo `json:"page_info"`
}
