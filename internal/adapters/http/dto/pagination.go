package dto

import (
	"encoding/base64"
	"errors"

	"github.com/goccy/go-json"
)

// DefaultLimit is the default number of items per page.
const DefaultLimit = 20

// MaxLimit is the maximum allowed items per page.
const MaxLimit = 100

// ErrInvalidCursor is returned when cursor decoding fails or the cursor no
// longer points into the listing.
var ErrInvalidCursor = errors.New("invalid cursor")

// PageRequest holds the pagination query parameters.
type PageRequest struct {
	// Cursor is an opaque string from a previous response's NextCursor.
	Cursor string `form:"cursor" json:"cursor"`

	// Limit is the maximum number of items to return (1-100, default 20).
	Limit int `form:"limit" json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the limit with defaults applied.
func (p *PageRequest) GetLimit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}

	return min(p.Limit, MaxLimit)
}

// Page is one slice of an ordered listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
	Total      int    `json:"total"`
}

// cursorData is the decoded form of a cursor: the id of the last item
// already returned.
type cursorData struct {
	After string `json:"after"`
}

// EncodeCursor builds the opaque cursor resuming after id.
func EncodeCursor(id string) string {
	data, err := json.Marshal(cursorData{After: id})
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor returns the id a cursor resumes after. An empty cursor
// decodes to an empty id (first page).
func DecodeCursor(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCursor
	}

	var data cursorData
	if err := json.Unmarshal(raw, &data); err != nil || data.After == "" {
		return "", ErrInvalidCursor
	}

	return data.After, nil
}

// Paginate cuts a page out of items, an insertion-ordered listing, starting
// after the item the cursor names.
func Paginate[T any](items []T, req PageRequest, idOf func(T) string) (*Page[T], error) {
	after, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	start := 0

	if after != "" {
		start = -1

		for i, item := range items {
			if idOf(item) == after {
				start = i + 1
				break
			}
		}

		if start < 0 {
			return nil, ErrInvalidCursor
		}
	}

	limit := req.GetLimit()
	end := min(start+limit, len(items))

	page := &Page[T]{
		Items:   append([]T{}, items[start:end]...),
		HasMore: end < len(items),
		Total:   len(items),
	}

	if page.HasMore && end > start {
		page.NextCursor = EncodeCursor(idOf(items[end-1]))
	}

	return page, nil
}
