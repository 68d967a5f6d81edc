package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Client, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, key string) (*Client, error)
	Update(ctx context.Context, db *gorm.DB, client *Client) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
	Count(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateClientRequest) (Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
	List(ctx context.Context, req ListClientRequest) (ListClientResponse, error)
	Update(ctx context.Context, req UpdateClientRequest) (Client, error)
	Delete(ctx context.Context, id string) error
}
