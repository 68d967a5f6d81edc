// Package domain holds the tenant organization model. Organizations are
// provisioned by seeding or operator tooling; there is no self-serve org API.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Organization struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }
