// Package seed provisions the default organization on startup. There is no
// self-serve organization API, so a fresh database gets one tenant to work
// in.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	organizationdomain "github.com/stackspendlabs/stackspend/internal/organization/domain"
	"gorm.io/gorm"
)

const (
	defaultOrgName = "Main"
	defaultOrgSlug = "main"
)

// EnsureMainOrg creates the default organization if none exists. It is
// idempotent and safe to run on every boot.
func EnsureMainOrg(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing organizationdomain.Organization
		err := tx.Raw(
			`SELECT id, name, slug, created_at, updated_at FROM organizations WHERE slug = ? LIMIT 1`,
			defaultOrgSlug,
		).Scan(&existing).Error
		if err != nil {
			return err
		}
		if existing.ID != 0 {
			return nil
		}

		now := time.Now()
		org := organizationdomain.Organization{
			ID:        node.Generate(),
			Name:      defaultOrgName,
			Slug:      slug.Make(defaultOrgSlug),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Exec(
			`INSERT INTO organizations (id, name, slug, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			org.ID,
			org.Name,
			org.Slug,
			org.CreatedAt,
			org.UpdatedAt,
		).Error
	})
}
