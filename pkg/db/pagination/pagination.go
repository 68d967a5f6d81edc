// Package pagination implements cursor-based pagination shared by all list
// endpoints. Cursors encode (created_at, id) of the last row so pages stay
// stable under concurrent inserts.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

type Pagination struct {
	PageToken string `form:"page_token" json:"page_token"`
	PageSize  int    `form:"page_size" json:"page_size"`
}

// Cursor is the decoded page token payload. CreatedAt stays a time.Time so
// the keyset predicate binds a typed timestamp on every dialect; an RFC 3339
// string would compare textually on sqlite and match every row.
type Cursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type PageInfo struct {
	HasMore       bool   `json:"has_more"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

func EncodeCursor(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode page token: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("decode page token: %w", err)
	}
	return c, nil
}

// BuildCursorPageInfo inspects an over-fetched result set (pageSize+1 rows)
// and produces page info. The caller trims the extra row itself; token is
// derived from the last row of the returned page.
func BuildCursorPageInfo[T any](items []*T, pageSize int32, token func(*T) string) *PageInfo {
	if pageSize <= 0 {
		return nil
	}

	info := &PageInfo{}
	if int32(len(items)) > pageSize {
		info.HasMore = true
		info.NextPageToken = token(items[pageSize-1])
	}
	return info
}
