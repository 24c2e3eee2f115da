package acl

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// setupQuoteClient creates a QuoteClient backed by a test HTTP server.
func setupQuoteClient(t *testing.T, handler http.HandlerFunc) *QuoteClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := clients.New(testConfig(server.URL))
	require.NoError(t, err)

	return NewQuoteClient(QuoteClientConfig{
		Client:   client,
		AuthorID: 1,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return fixedNow },
	})
}

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   postPayload
}

func recordingHandler(t *testing.T, status int, mu *sync.Mutex, seen *[]capturedRequest) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		req := capturedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req.Body)
		}

		mu.Lock()
		*seen = append(*seen, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id": 101}`))
	}
}

func TestNewQuoteClient_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() {
		NewQuoteClient(QuoteClientConfig{Logger: slog.Default()})
	})
}

func TestNewQuoteClient_Defaults(t *testing.T) {
	client, err := clients.New(testConfig("http://localhost"))
	require.NoError(t, err)

	qc := NewQuoteClient(QuoteClientConfig{Client: client})

	assert.NotNil(t, qc.logger)
	assert.NotNil(t, qc.now)
	assert.Equal(t, "posts", qc.Name())
}

func TestPull_MapsPosts(t *testing.T) {
	qc := setupQuoteClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/posts", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("_limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"userId": 1, "id": 1, "title": "  sunt aut facere  ", "body": "quia et suscipit"},
			{"userId": 1, "id": 2, "title": "", "body": "   "}
		]`))
	})

	quotes, err := qc.Pull(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, domain.Quote{
		ID:        "1",
		Text:      "quia et suscipit",
		Category:  "sunt aut facere",
		UpdatedAt: fixedNow,
		Dirty:     false,
		Source:    domain.SourceServer,
	}, quotes[0])

	assert.Equal(t, "2", quotes[1].ID)
	assert.Equal(t, EmptyText, quotes[1].Text)
	assert.Equal(t, DefaultCategory, quotes[1].Category)
}

func TestPull_TruncatesLongFields(t *testing.T) {
	longTitle := strings.Repeat("é", MaxCategoryRunes+10)
	longBody := strings.Repeat("a", MaxTextRunes+1)

	qc := setupQuoteClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]postResponse{
			{ID: "7", Title: longTitle, Body: longBody},
		})
	})

	quotes, err := qc.Pull(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	assert.Equal(t, MaxCategoryRunes, len([]rune(quotes[0].Category)))
	assert.Equal(t, MaxTextRunes, len([]rune(quotes[0].Text)))
}

func TestPull_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{"id": 1,`))
			},
		},
		{
			name: "post without id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{"id": 1, "title": "a", "body": "b"}, {"title": "c", "body": "d"}]`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc := setupQuoteClient(t, tt.handler)

			quotes, err := qc.Pull(context.Background(), 10)

			require.Error(t, err)
			assert.Nil(t, quotes)
			assert.True(t, domain.IsFetch(err), "expected FetchError, got %v", err)
		})
	}
}

func TestPull_TransportFailure(t *testing.T) {
	client, err := clients.New(testConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	qc := NewQuoteClient(QuoteClientConfig{Client: client})

	_, err = qc.Pull(context.Background(), 10)

	require.Error(t, err)
	assert.True(t, domain.IsFetch(err))
}

func TestPush_RoutesBySource(t *testing.T) {
	tests := []struct {
		name       string
		quote      domain.Quote
		wantMethod string
		wantPath   string
	}{
		{
			name:       "local record is created",
			quote:      domain.Quote{ID: "q_abc", Text: "Stay hungry.", Category: "Motivation", Source: domain.SourceLocal},
			wantMethod: http.MethodPost,
			wantPath:   "/posts",
		},
		{
			name:       "server record is updated",
			quote:      domain.Quote{ID: "3", Text: "ea molestias", Category: "Life", Source: domain.SourceServer},
			wantMethod: http.MethodPut,
			wantPath:   "/posts/3",
		},
		{
			name:       "server record with local id drops the prefix",
			quote:      domain.Quote{ID: "q_42", Text: "x", Category: "y", Source: domain.SourceServer},
			wantMethod: http.MethodPut,
			wantPath:   "/posts/42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu   sync.Mutex
				seen []capturedRequest
			)

			qc := setupQuoteClient(t, recordingHandler(t, http.StatusOK, &mu, &seen))

			require.NoError(t, qc.Push(context.Background(), tt.quote))

			require.Len(t, seen, 1)
			assert.Equal(t, tt.wantMethod, seen[0].Method)
			assert.Equal(t, tt.wantPath, seen[0].Path)
			assert.Equal(t, postPayload{
				ID:     tt.quote.ID,
				Title:  tt.quote.Category,
				Body:   tt.quote.Text,
				UserID: 1,
			}, seen[0].Body)
		})
	}
}

func TestPush_Created(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []capturedRequest
	)

	qc := setupQuoteClient(t, recordingHandler(t, http.StatusCreated, &mu, &seen))

	err := qc.Push(context.Background(), domain.Quote{ID: "q_1", Text: "t", Category: "c"})

	assert.NoError(t, err)
}

func TestPush_Failure(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []capturedRequest
	)

	qc := setupQuoteClient(t, recordingHandler(t, http.StatusServiceUnavailable, &mu, &seen))

	err := qc.Push(context.Background(), domain.Quote{ID: "q_1", Text: "t", Category: "c"})

	require.Error(t, err)
	assert.True(t, domain.IsFetch(err))

	var fetch *domain.FetchError
	require.ErrorAs(t, err, &fetch)
	assert.Equal(t, http.StatusServiceUnavailable, fetch.Status)
	assert.Equal(t, "push", fetch.Operation)
}

func TestQuoteClient_Check(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		qc := setupQuoteClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("_limit"))
			_, _ = w.Write([]byte(`[]`))
		})

		assert.NoError(t, qc.Check(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		qc := setupQuoteClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		err := qc.Check(context.Background())
		require.Error(t, err)
		assert.True(t, domain.IsFetch(err))
	})
}
