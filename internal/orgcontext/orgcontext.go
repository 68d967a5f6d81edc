// Package orgcontext carries the tenant organization ID through request
// contexts. Every repository query scopes by this ID; a missing org is a
// validation failure, not a fallback to global data.
package orgcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type contextKey struct{}

func WithOrgID(ctx context.Context, orgID snowflake.ID) context.Context {
	return context.WithValue(ctx, contextKey{}, orgID)
}

func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	orgID, ok := ctx.Value(contextKey{}).(snowflake.ID)
	return orgID, ok
}
