package dto

import (
	"time"

	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// QuoteResponse is the wire form of a record.
type QuoteResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updatedAt"`
	Dirty     bool      `json:"dirty"`
	Source    string    `json:"source"`
}

// NewQuoteResponse converts a domain record.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{
		ID:        q.ID,
		Text:      q.Text,
		Category:  q.Category,
		UpdatedAt: q.UpdatedAt,
		Dirty:     q.Dirty,
		Source:    string(q.Source),
	}
}

// NewQuoteResponses converts a slice of records.
func NewQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(quotes))
	for i, q := range quotes {
		out[i] = NewQuoteResponse(q)
	}

	return out
}

// ListQuotesRequest is the query of GET /quotes.
type ListQuotesRequest struct {
	PageRequest

	// Category filters the listing; empty means the stored selection.
	Category string `form:"category" json:"category"`
}

// Validate rejects a cursor that cannot be decoded before the listing runs.
func (r *ListQuotesRequest) Validate() error {
	_, err := DecodeCursor(r.Cursor)
	return err
}

// RandomQuoteRequest is the query of GET /quotes/random.
type RandomQuoteRequest struct {
	Category string `form:"category" json:"category"`
}

// CreateQuoteRequest is the body of POST /quotes.
type CreateQuoteRequest struct {
	Text     string `json:"text"     validate:"required,notempty"`
	Category string `json:"category" validate:"required,notempty"`
}

// ImportResponse reports the outcome of POST /quotes/import.
type ImportResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// CategoriesResponse lists the category index and the stored selection.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// SelectCategoryRequest is the body of PUT /categories/selected.
type SelectCategoryRequest struct {
	Category string `json:"category" validate:"required,notempty"`
}

// AutoSyncRequest is the body of PUT /sync/auto.
type AutoSyncRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// PolicyRequest is the body of PUT /sync/policy.
type PolicyRequest struct {
	Policy string `json:"policy" validate:"required,policy"`
}

// ResolveRequest is the body of the conflict resolution endpoints.
type ResolveRequest struct {
	Choice string `json:"choice" validate:"required,choice"`
}

// ResolveAllResponse reports how many conflicts a bulk call settled.
type ResolveAllResponse struct {
	Resolved int `json:"resolved"`
}

// ConflictResponse is the wire form of a pending conflict.
type ConflictResponse struct {
	ID         string        `json:"id"`
	Local      QuoteResponse `json:"local"`
	Remote     QuoteResponse `json:"remote"`
	DetectedAt time.Time     `json:"detectedAt"`
}

// NewConflictResponses converts pending conflicts.
func NewConflictResponses(conflicts []domain.Conflict) []ConflictResponse {
	out := make([]ConflictResponse, len(conflicts))
	for i, c := range conflicts {
		out[i] = ConflictResponse{
			ID:         c.ID,
			Local:      NewQuoteResponse(c.Local),
			Remote:     NewQuoteResponse(c.Remote),
			DetectedAt: c.DetectedAt,
		}
	}

	return out
}

// CycleReportResponse is the wire form of a sync cycle report.
type CycleReportResponse struct {
	CycleID      string             `json:"cycleId,omitempty"`
	Outcome      string             `json:"outcome"`
	StartedAt    time.Time          `json:"startedAt"`
	FinishedAt   time.Time          `json:"finishedAt"`
	Pushed       int                `json:"pushed"`
	PushFailed   []string           `json:"pushFailed,omitempty"`
	Pulled       int                `json:"pulled"`
	Added        int                `json:"added"`
	Updated      int                `json:"updated"`
	Conflicts    []ConflictResponse `json:"conflicts,omitempty"`
	AutoResolved int                `json:"autoResolved"`
	Error        string             `json:"error,omitempty"`
}

// NewCycleReportResponse converts a cycle report. A nil report maps to nil.
func NewCycleReportResponse(r *app.CycleReport) *CycleReportResponse {
	if r == nil {
		return nil
	}

	resp := &CycleReportResponse{
		CycleID:      r.CycleID,
		Outcome:      string(r.Outcome),
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Pushed:       r.Pushed,
		PushFailed:   r.PushFailed,
		Pulled:       r.Pulled,
		Added:        r.Added,
		Updated:      r.Updated,
		AutoResolved: r.AutoResolved,
		Error:        r.Error,
	}

	if len(r.Conflicts) > 0 {
		resp.Conflicts = NewConflictResponses(r.Conflicts)
	}

	return resp
}

// SyncStatusResponse is the body of GET /sync/status.
type SyncStatusResponse struct {
	State            string               `json:"state"`
	Running          bool                 `json:"running"`
	AutoSync         bool                 `json:"autoSync"`
	Policy           string               `json:"policy"`
	LastOutcome      string               `json:"lastOutcome,omitempty"`
	LastError        string               `json:"lastError,omitempty"`
	LastSync         *time.Time           `json:"lastSync,omitempty"`
	PendingConflicts int                  `json:"pendingConflicts"`
	LastReport       *CycleReportResponse `json:"lastReport,omitempty"`
}

// NewSyncStatusResponse converts an engine status snapshot.
func NewSyncStatusResponse(s app.Status, autoSync bool) SyncStatusResponse {
	return SyncStatusResponse{
		State:            string(s.State),
		Running:          s.Running,
		AutoSync:         autoSync,
		Policy:           string(s.Policy),
		LastOutcome:      string(s.LastOutcome),
		LastError:        s.LastError,
		LastSync:         s.LastSync,
		PendingConflicts: s.PendingConflicts,
		LastReport:       NewCycleReportResponse(s.LastReport),
	}
}
