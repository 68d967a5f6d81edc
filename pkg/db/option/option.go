// Package option provides composable gorm query modifiers used by the
// repositories and generic store.
package option

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stackspendlabs/stackspend/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type optionFunc func(*gorm.DB) *gorm.DB

func (f optionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

// Operator names for ApplyOperator conditions.
type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a single comparison predicate.
func ApplyOperator(cond Condition) QueryOption {
	return optionFunc(func(stmt *gorm.DB) *gorm.DB {
		return stmt.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
	})
}

// ApplyPagination decodes the cursor, applies the keyset predicate and
// over-fetches one row so the caller can detect a following page.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return optionFunc(func(stmt *gorm.DB) *gorm.DB {
		if p.PageToken != "" {
			cursor, err := pagination.DecodeCursor(p.PageToken)
			if err == nil {
				// Snowflake ids live in integer columns; binding them as
				// text breaks the tuple comparison on sqlite. ULID cursors
				// stay text.
				var id any = cursor.ID
				if n, err := strconv.ParseInt(cursor.ID, 10, 64); err == nil {
					id = n
				}
				stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, id)
			}
		}
		if p.PageSize > 0 {
			stmt = stmt.Limit(p.PageSize + 1)
		}
		return stmt
	})
}

// WithQuerySortBy sanitizes a caller-supplied sort column against an
// allow-list and returns an ORDER BY clause. Unknown columns and orders fall
// back to created_at desc.
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) string {
	sortBy = strings.TrimSpace(strings.ToLower(sortBy))
	if !allowed[sortBy] {
		sortBy = "created_at"
	}
	orderBy = strings.TrimSpace(strings.ToLower(orderBy))
	if orderBy != "asc" && orderBy != "desc" {
		orderBy = "desc"
	}
	return sortBy + " " + orderBy
}

// WithSortBy applies a pre-sanitized ORDER BY clause.
func WithSortBy(clause string) QueryOption {
	return optionFunc(func(stmt *gorm.DB) *gorm.DB {
		if strings.TrimSpace(clause) == "" {
			return stmt
		}
		return stmt.Order(clause)
	})
}
