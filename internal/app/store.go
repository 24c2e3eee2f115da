package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync/internal/platform/metrics"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// Durable keys.
const (
	RecordsKey     = "quotes/records"
	PreferencesKey = "quotes/preferences"
)

// Preferences are the small scalar settings persisted next to the records.
type Preferences struct {
	LastFilter string     `json:"lastFilter"`
	AutoSync   bool       `json:"autoSync"`
	LastSync   *time.Time `json:"lastSync,omitempty"`
}

// ImportResult counts the outcome of a bulk import.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// StoreConfig configures a Store. Only KV is required.
type StoreConfig struct {
	KV     ports.KeyValueStore
	Logger *slog.Logger

	// SeedDefaults inserts the starter quotes when nothing is persisted.
	SeedDefaults bool

	// Now, NewID and Pick are injectable for tests.
	Now   func() time.Time
	NewID func() string
	Pick  func(n int) int
}

// Store is the ordered in-memory record collection, written through to a
// KeyValueStore after every mutation. The in-memory state is authoritative:
// a failed write is reported but never rolls a mutation back.
type Store struct {
	mu sync.RWMutex

	kv     ports.KeyValueStore
	logger *slog.Logger
	seed   bool
	now    func() time.Time
	newID  func() string
	pick   func(n int) int

	quotes     []domain.Quote
	pos        map[string]int
	categories []string
	prefs      Preferences
}

// NewStore creates an empty store. Call Load to restore persisted state.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		kv:     cfg.KV,
		logger: logger.With(slog.String("component", "app.Store")),
		seed:   cfg.SeedDefaults,
		now:    cfg.Now,
		newID:  cfg.NewID,
		pick:   cfg.Pick,
		pos:    map[string]int{},
		prefs:  Preferences{LastFilter: domain.AllCategories, AutoSync: true},
	}

	if s.now == nil {
		s.now = time.Now
	}

	if s.newID == nil {
		s.newID = domain.NewID
	}

	if s.pick == nil {
		s.pick = rand.IntN
	}

	s.refreshLocked()

	return s
}

// recordDTO is the persisted and imported shape of a record. Optional
// fields are pointers so that absence can be told apart from zero values.
type recordDTO struct {
	ID        flexID     `json:"id"`
	Text      string     `json:"text"`
	Category  string     `json:"category"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Dirty     *bool      `json:"dirty,omitempty"`
	Source    string     `json:"source,omitempty"`
}

// flexID accepts a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}

	*f = flexID(n.String())

	return nil
}

func (d recordDTO) draft() domain.QuoteDraft {
	return domain.QuoteDraft{
		ID:        string(d.ID),
		Text:      d.Text,
		Category:  d.Category,
		UpdatedAt: d.UpdatedAt,
		Dirty:     d.Dirty,
		Source:    d.Source,
	}
}

func toDTO(q domain.Quote) recordDTO {
	updated := q.UpdatedAt
	dirty := q.Dirty

	return recordDTO{
		ID:        flexID(q.ID),
		Text:      q.Text,
		Category:  q.Category,
		UpdatedAt: &updated,
		Dirty:     &dirty,
		Source:    string(q.Source),
	}
}

// decodeDrafts decodes every element independently. Elements that are not
// record-shaped are counted in invalid instead of failing the batch.
func decodeDrafts(raw []json.RawMessage) (drafts []domain.QuoteDraft, invalid int) {
	drafts = make([]domain.QuoteDraft, 0, len(raw))

	for _, elem := range raw {
		var dto recordDTO
		if err := json.Unmarshal(elem, &dto); err != nil {
			invalid++
			continue
		}

		drafts = append(drafts, dto.draft())
	}

	return drafts, invalid
}

// Load restores records and preferences. A missing records key keeps the
// current state (seeded when configured and empty). Unreadable or malformed
// data is logged, returned, and the current state is kept.
func (s *Store) Load(ctx context.Context) error {
	logger := s.logger

	s.mu.Lock()
	defer s.mu.Unlock()

	recordsErr := s.loadRecordsLocked(ctx, logger)
	prefsErr := s.loadPreferencesLocked(ctx, logger)

	s.refreshLocked()

	if !slices.Contains(s.categories, s.prefs.LastFilter) {
		s.prefs.LastFilter = domain.AllCategories
	}

	return errors.Join(recordsErr, prefsErr)
}

func (s *Store) loadRecordsLocked(ctx context.Context, logger *slog.Logger) error {
	data, err := s.kv.Get(ctx, RecordsKey)
	if domain.IsNotFound(err) {
		if len(s.quotes) == 0 && s.seed {
			s.quotes = s.seedQuotes()
			s.reindexLocked()

			logger.InfoContext(ctx, "seeded starter quotes", slog.Int("count", len(s.quotes)))

			return s.persistLocked(ctx)
		}

		return nil
	}

	if err != nil {
		metrics.StoreErrors.WithLabelValues("load").Inc()
		logger.WarnContext(ctx, "persisted records unreadable, keeping current state", slog.Any("error", err))

		return err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		perr := domain.NewParseError(RecordsKey, err.Error())
		logger.WarnContext(ctx, "persisted records malformed, keeping current state", slog.Any("error", perr))

		return perr
	}

	drafts, invalid := decodeDrafts(raw)
	now := s.now().UTC()

	loaded := make([]domain.Quote, 0, len(drafts))
	seen := make(map[string]struct{}, len(drafts))

	for _, d := range drafts {
		q, err := domain.NewQuote(d, now, s.newID)
		if err != nil {
			invalid++
			continue
		}

		if _, dup := seen[q.ID]; dup {
			invalid++
			continue
		}

		seen[q.ID] = struct{}{}
		loaded = append(loaded, q)
	}

	s.quotes = loaded
	s.reindexLocked()

	logger.DebugContext(ctx, "records loaded",
		slog.Int("count", len(loaded)),
		slog.Int("discarded", invalid))

	return nil
}

func (s *Store) loadPreferencesLocked(ctx context.Context, logger *slog.Logger) error {
	data, err := s.kv.Get(ctx, PreferencesKey)
	if domain.IsNotFound(err) {
		return nil
	}

	if err != nil {
		metrics.StoreErrors.WithLabelValues("load").Inc()
		logger.WarnContext(ctx, "preferences unreadable, using defaults", slog.Any("error", err))

		return err
	}

	prefs := Preferences{LastFilter: domain.AllCategories, AutoSync: true}
	if err := json.Unmarshal(data, &prefs); err != nil {
		perr := domain.NewParseError(PreferencesKey, err.Error())
		logger.WarnContext(ctx, "preferences malformed, using defaults", slog.Any("error", perr))

		return perr
	}

	if strings.TrimSpace(prefs.LastFilter) == "" {
		prefs.LastFilter = domain.AllCategories
	}

	s.prefs = prefs

	return nil
}

// Save writes the full collection to the durable store.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	dtos := make([]recordDTO, len(s.quotes))
	for i, q := range s.quotes {
		dtos[i] = toDTO(q)
	}

	data, err := json.Marshal(dtos)
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	if err := s.kv.Set(ctx, RecordsKey, data); err != nil {
		metrics.StoreErrors.WithLabelValues("save").Inc()
		s.logger.WarnContext(ctx, "persisting records failed", slog.Any("error", err))

		return err
	}

	return nil
}

func (s *Store) persistPreferencesLocked(ctx context.Context) error {
	data, err := json.Marshal(s.prefs)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	if err := s.kv.Set(ctx, PreferencesKey, data); err != nil {
		metrics.StoreErrors.WithLabelValues("save_preferences").Inc()

		return err
	}

	return nil
}

// Add validates and appends a new local record (dirty, source local).
func (s *Store) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := domain.NewQuote(domain.QuoteDraft{Text: text, Category: category}, s.now().UTC(), s.uniqueIDLocked)
	if err != nil {
		return domain.Quote{}, err
	}

	q.Dirty = true

	s.quotes = append(s.quotes, q)
	s.pos[q.ID] = len(s.quotes) - 1
	s.refreshLocked()

	logging.FromContext(ctx).InfoContext(ctx, "quote added",
		slog.String("quote_id", q.ID),
		slog.String("category", q.Category))

	return q, s.persistLocked(ctx)
}

// ImportMany appends the candidates that are valid and not already present
// by normalized (text, category) key, in the store or earlier in the batch.
// Accepted records are dirty. A non-local id is kept with source server so
// the next push updates the remote item; any other id is replaced.
func (s *Store) ImportMany(ctx context.Context, candidates []domain.QuoteDraft) (ImportResult, error) {
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]struct{}, len(s.quotes)+len(candidates))
	for _, q := range s.quotes {
		keys[q.Key()] = struct{}{}
	}

	var result ImportResult

	for _, c := range candidates {
		q, err := domain.NewQuote(domain.QuoteDraft{Text: c.Text, Category: c.Category}, now, s.uniqueIDLocked)
		if err != nil {
			result.Skipped++
			continue
		}

		key := q.Key()
		if _, dup := keys[key]; dup {
			result.Skipped++
			continue
		}

		keys[key] = struct{}{}

		q.Dirty = true

		id := strings.TrimSpace(c.ID)
		if _, taken := s.pos[id]; id != "" && !domain.IsLocalID(id) && !taken {
			q.ID = id
			q.Source = domain.SourceServer
		}

		s.quotes = append(s.quotes, q)
		s.pos[q.ID] = len(s.quotes) - 1
		result.Added++
	}

	logging.FromContext(ctx).InfoContext(ctx, "import applied",
		slog.Int("added", result.Added),
		slog.Int("skipped", result.Skipped))

	if result.Added == 0 {
		return result, nil
	}

	s.refreshLocked()

	return result, s.persistLocked(ctx)
}

// List returns the records matching category in insertion order.
func (s *Store) List(category string) []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Quote, 0, len(s.quotes))

	for _, q := range s.quotes {
		if domain.MatchesCategory(q, category) {
			out = append(out, q)
		}
	}

	return out
}

// Random picks one record uniformly from the category pool.
func (s *Store) Random(category string) (domain.Quote, error) {
	pool := s.List(category)
	if len(pool) == 0 {
		return domain.Quote{}, domain.NewNotFoundError("quote", "")
	}

	return pool[s.pick(len(pool))], nil
}

// Snapshot returns a copy of every record.
func (s *Store) Snapshot() []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.quotes)
}

// Dirty returns a copy of the records awaiting a push.
func (s *Store) Dirty() []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Quote

	for _, q := range s.quotes {
		if q.Dirty {
			out = append(out, q)
		}
	}

	return out
}

// Categories returns the cached category index.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.categories)
}

// SelectedCategory returns the remembered filter.
func (s *Store) SelectedCategory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.prefs.LastFilter
}

// SelectCategory remembers filter after checking it against the index.
func (s *Store) SelectCategory(ctx context.Context, filter string) error {
	filter = strings.TrimSpace(filter)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.categories, filter) {
		return domain.NewValidationErrorWithValue("category", "unknown category", filter)
	}

	s.prefs.LastFilter = filter

	return s.persistPreferencesLocked(ctx)
}

// Preferences returns a copy of the current preferences.
func (s *Store) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.prefs
}

// SetAutoSync persists the auto-sync flag.
func (s *Store) SetAutoSync(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs.AutoSync = on

	return s.persistPreferencesLocked(ctx)
}

// SetLastSync persists the time of the last successful cycle.
func (s *Store) SetLastSync(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at = at.UTC()
	s.prefs.LastSync = &at

	return s.persistPreferencesLocked(ctx)
}

// RecordSet is the mutable view handed to Apply.
type RecordSet struct {
	quotes []domain.Quote
	pos    map[string]int
}

// Get returns the record with id.
func (r *RecordSet) Get(id string) (domain.Quote, bool) {
	i, ok := r.pos[id]
	if !ok {
		return domain.Quote{}, false
	}

	return r.quotes[i], true
}

// Put replaces the record with the same id in place, or appends it.
func (r *RecordSet) Put(q domain.Quote) {
	if i, ok := r.pos[q.ID]; ok {
		r.quotes[i] = q
		return
	}

	r.quotes = append(r.quotes, q)
	r.pos[q.ID] = len(r.quotes) - 1
}

// Len returns the number of records.
func (r *RecordSet) Len() int {
	return len(r.quotes)
}

// Apply runs fn against a working copy of the records. When fn returns nil
// the copy replaces the collection and is persisted; otherwise nothing changes.
func (s *Store) Apply(ctx context.Context, fn func(r *RecordSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := &RecordSet{
		quotes: slices.Clone(s.quotes),
		pos:    make(map[string]int, len(s.pos)),
	}
	for id, i := range s.pos {
		rs.pos[id] = i
	}

	if err := fn(rs); err != nil {
		return err
	}

	s.quotes = rs.quotes
	s.pos = rs.pos
	s.refreshLocked()

	return s.persistLocked(ctx)
}

func (s *Store) uniqueIDLocked() string {
	for {
		id := s.newID()
		if _, taken := s.pos[id]; !taken {
			return id
		}
	}
}

func (s *Store) reindexLocked() {
	s.pos = make(map[string]int, len(s.quotes))
	for i, q := range s.quotes {
		s.pos[q.ID] = i
	}
}

// refreshLocked rebuilds the category index and store gauges.
func (s *Store) refreshLocked() {
	s.categories = domain.BuildCategoryIndex(s.quotes)

	dirty := 0

	for _, q := range s.quotes {
		if q.Dirty {
			dirty++
		}
	}

	metrics.RecordStoreSize(dirty, len(s.quotes)-dirty)
}

func (s *Store) seedQuotes() []domain.Quote {
	seeds := []struct{ text, category string }{
		{"The best way to get started is to quit talking and begin doing.", "Motivation"},
		{"Success is not final, failure is not fatal: It is the courage to continue that counts.", "Motivation"},
		{"In the middle of every difficulty lies opportunity.", "Inspiration"},
		{"Life is what happens when you're busy making other plans.", "Life"},
		{"Your coffee won't fix the problem, but it might help you survive fixing it.", "Humor"},
	}

	now := s.now().UTC()
	out := make([]domain.Quote, 0, len(seeds))

	for _, seed := range seeds {
		out = append(out, domain.Quote{
			ID:        s.newID(),
			Text:      seed.text,
			Category:  seed.category,
			UpdatedAt: now,
			Source:    domain.SourceLocal,
		})
	}

	return out
}
