package acl

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// postResponse is a post as listed by GET /posts.
type postResponse struct {
	ID     json.Number `json:"id"`
	UserID int         `json:"userId"`
	Title  string      `json:"title"`
	Body   string      `json:"body"`
}

// postPayload is sent on create and update.
type postPayload struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

func newPostPayload(q domain.Quote, authorID int) postPayload {
	return postPayload{ID: q.ID, Title: q.Category, Body: q.Text, UserID: authorID}
}

// translatePosts maps a listing to clean server-sourced quotes stamped with
// fetchedAt. A post without an id rejects the whole listing.
func translatePosts(posts []postResponse, fetchedAt time.Time) ([]domain.Quote, error) {
	quotes := make([]domain.Quote, 0, len(posts))

	for i := range posts {
		q, err := translatePost(&posts[i], fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("post %d: %w", i, err)
		}

		quotes = append(quotes, q)
	}

	return quotes, nil
}

// translatePost maps title to category and body to text.
func translatePost(p *postResponse, fetchedAt time.Time) (domain.Quote, error) {
	id := strings.TrimSpace(p.ID.String())
	if id == "" {
		return domain.Quote{}, domain.NewValidationError("id", "missing")
	}

	clean := false

	return domain.NewQuote(domain.QuoteDraft{
		ID:        id,
		Text:      clampText(p.Body, MaxTextRunes, EmptyText),
		Category:  clampText(p.Title, MaxCategoryRunes, DefaultCategory),
		UpdatedAt: &fetchedAt,
		Dirty:     &clean,
		Source:    string(domain.SourceServer),
	}, fetchedAt, nil)
}

// clampText trims s, cuts it to at most limit runes and substitutes fallback
// when nothing is left.
func clampText(s string, limit int, fallback string) string {
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > limit {
		s = strings.TrimSpace(string([]rune(s)[:limit]))
	}

	if s == "" {
		return fallback
	}

	return s
}
