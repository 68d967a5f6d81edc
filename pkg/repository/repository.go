// Package repository provides a small generic read store over gorm models,
// used by services for filtered list queries that need no bespoke SQL.
package repository

import (
	"context"

	"github.com/stackspendlabs/stackspend/pkg/db/option"
	"gorm.io/gorm"
)

type Repository[T any] interface {
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, filter *T) (*T, error)
	Count(ctx context.Context, filter *T) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error) {
	stmt := s.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		stmt = stmt.Where(filter)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var items []*T
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *store[T]) FindOne(ctx context.Context, filter *T) (*T, error) {
	var item T
	err := s.db.WithContext(ctx).Model(new(T)).Where(filter).Limit(1).Find(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *store[T]) Count(ctx context.Context, filter *T) (int64, error) {
	var count int64
	stmt := s.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		stmt = stmt.Where(filter)
	}
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
