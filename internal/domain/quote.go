// Package domain contains core business entities and rules.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source records the provenance of a quote's last accepted write.
type Source string

const (
	// SourceLocal marks content written on this side (add, import).
	SourceLocal Source = "local"

	// SourceServer marks content last set from a remote value.
	SourceServer Source = "server"
)

// LocalIDPrefix prefixes identifiers generated on this side.
const LocalIDPrefix = "q_"

// Quote is a single quotation record.
// This is a domain entity - it has no knowledge of external systems.
type Quote struct {
	// ID is unique within the record store.
	ID string

	// Text is the quotation itself, never empty after trimming.
	Text string

	// Category labels the quote for filtering, never empty after trimming.
	Category string

	// UpdatedAt is the time of the last accepted write.
	UpdatedAt time.Time

	// Dirty is true while a local modification has not been acknowledged by the remote.
	Dirty bool

	// Source is the provenance of the last accepted write.
	Source Source
}

// QuoteDraft is the raw, possibly incomplete shape a record arrives in at
// an ingestion boundary. Nil and zero fields are defaulted by NewQuote.
type QuoteDraft struct {
	ID        string
	Text      string
	Category  string
	UpdatedAt *time.Time
	Dirty     *bool
	Source    string
}

// NewID returns a fresh local identifier.
func NewID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was generated on this side.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// NewQuote validates a draft and fills defaults: a fresh id when absent,
// updatedAt = now, dirty = false, source = local.
func NewQuote(d QuoteDraft, now time.Time, newID func() string) (Quote, error) {
	text := strings.TrimSpace(d.Text)
	if text == "" {
		return Quote{}, NewValidationError("text", "must not be empty")
	}

	category := strings.TrimSpace(d.Category)
	if category == "" {
		return Quote{}, NewValidationError("category", "must not be empty")
	}

	src := SourceLocal
	switch Source(strings.TrimSpace(d.Source)) {
	case "", SourceLocal:
	case SourceServer:
		src = SourceServer
	default:
		return Quote{}, NewValidationErrorWithValue("source", "must be local or server", d.Source)
	}

	q := Quote{
		ID:        strings.TrimSpace(d.ID),
		Text:      text,
		Category:  category,
		UpdatedAt: now,
		Source:    src,
	}

	if q.ID == "" {
		if newID == nil {
			newID = NewID
		}

		q.ID = newID()
	}

	if d.UpdatedAt != nil && !d.UpdatedAt.IsZero() {
		q.UpdatedAt = *d.UpdatedAt
	}

	if d.Dirty != nil {
		q.Dirty = *d.Dirty
	}

	return q, nil
}

// Key is the normalized de-duplication key: case-insensitive, trimmed text and category.
func (q Quote) Key() string {
	return NormalizedKey(q.Text, q.Category)
}

// NormalizedKey builds the de-duplication key for a raw text/category pair.
func NormalizedKey(text, category string) string {
	return strings.ToLower(strings.TrimSpace(text)) + "|" + strings.ToLower(strings.TrimSpace(category))
}

// SameContent reports whether both records carry identical text and category.
func (q Quote) SameContent(other Quote) bool {
	return q.Text == other.Text && q.Category == other.Category
}

// AcceptRemote overwrites content with the remote version and marks the record clean.
func (q *Quote) AcceptRemote(remote Quote) {
	q.Text = remote.Text
	q.Category = remote.Category
	q.UpdatedAt = remote.UpdatedAt
	q.Dirty = false
	q.Source = SourceServer
}

// MarkSynced marks the current content as agreed with the remote.
func (q *Quote) MarkSynced() {
	q.Dirty = false
	q.Source = SourceServer
}
