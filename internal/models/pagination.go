package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type OffsetPage[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewOffsetPage[T any](items []T, total int64, page, pageSize int) *OffsetPage[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return &OffsetPage[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// OrderCursor marks a position in the (created_at DESC, id DESC) order list.
type OrderCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

// Before reports whether o sorts after the cursor position, i.e. belongs on
// the next page.
func (c OrderCursor) Before(o *Order) bool {
	if o.CreatedAt.Equal(c.CreatedAt) {
		return o.ID < c.ID
	}
	return o.CreatedAt.Before(c.CreatedAt)
}

func EncodeCursor(cursor OrderCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor; the empty string is the start of the list.
func DecodeCursor(encoded string) (OrderCursor, error) {
	var cursor OrderCursor
	if encoded == "" {
		return OrderCursor{
			CreatedAt: time.Now().Add(time.Hour),
			ID:        int64(1<<63 - 1),
		}, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, fmt.Errorf("decode cursor: %w", err)
	}

	if err := json.Unmarshal(data, &cursor); err != nil {
		return cursor, fmt.Errorf("decode cursor: %w", err)
	}
	return cursor, nil
}

type ProductFilter struct {
	Category   string
	Search     string
	ActiveOnly bool
	Page       int
	PageSize   int
}

// Normalize fills in paging defaults the way the HTTP layer does.
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

type OrderFilter struct {
	Owner  string
	Status OrderStatus
	Cursor string
	Limit  int
}

func (f *OrderFilter) Normalize() {
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}
