package acl

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/jsamuelsen/quote-sync/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
)

const (
	postsPath = "/posts"

	// MaxCategoryRunes bounds a category taken from a remote title.
	MaxCategoryRunes = 50
	// MaxTextRunes bounds a quote text taken from a remote body.
	MaxTextRunes = 280

	// DefaultCategory replaces an empty remote title.
	DefaultCategory = "General"
	// EmptyText replaces an empty remote body.
	EmptyText = "(empty)"
)

// QuoteClientConfig configures the posts adapter.
type QuoteClientConfig struct {
	// Client points at the remote collection host.
	Client *clients.Client

	// AuthorID is sent as userId on every push.
	AuthorID int

	Logger *slog.Logger

	// Now stamps pulled records. Defaults to time.Now.
	Now func() time.Time
}

// QuoteClient implements ports.RemoteQuotes against a posts collection.
type QuoteClient struct {
	client   *clients.Client
	service  string
	authorID int
	logger   *slog.Logger
	now      func() time.Time
}

// NewQuoteClient creates the posts adapter. It panics without a Client.
func NewQuoteClient(cfg QuoteClientConfig) *QuoteClient {
	if cfg.Client == nil {
		panic("QuoteClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &QuoteClient{
		client:   cfg.Client,
		service:  cfg.Client.ServiceName(),
		authorID: cfg.AuthorID,
		logger:   logger.With(slog.String("component", "acl.QuoteClient")),
		now:      now,
	}
}

// Pull lists up to limit posts as clean, server-sourced quotes.
func (c *QuoteClient) Pull(ctx context.Context, limit int) ([]domain.Quote, error) {
	path := postsPath + "?_limit=" + strconv.Itoa(limit)
	c.logger.Log(ctx, logging.LevelTrace, "listing posts", slog.String("path", path))

	var posts []postResponse
	if err := c.exchange(ctx, "pull", http.MethodGet, path, nil, &posts); err != nil {
		return nil, err
	}

	quotes, err := translatePosts(posts, c.now().UTC())
	if err != nil {
		return nil, domain.NewFetchError(c.service, "pull", err.Error())
	}

	c.logger.DebugContext(ctx, "pulled remote records", slog.Int("count", len(quotes)))

	return quotes, nil
}

// Push sends one quote: PUT /posts/{id} for server-sourced records, POST
// /posts otherwise. A local id prefix is stripped from the update path.
func (c *QuoteClient) Push(ctx context.Context, quote domain.Quote) error {
	payload, err := json.Marshal(newPostPayload(quote, c.authorID))
	if err != nil {
		return domain.NewFetchError(c.service, "push", err.Error())
	}

	method, path := http.MethodPost, postsPath
	if quote.Source == domain.SourceServer {
		method = http.MethodPut
		path = postsPath + "/" + url.PathEscape(strings.TrimPrefix(quote.ID, domain.LocalIDPrefix))
	}

	c.logger.Log(ctx, logging.LevelTrace, "pushing record",
		slog.String("quote_id", quote.ID),
		slog.String("method", method),
		slog.String("path", path))

	return c.exchange(ctx, "push", method, path, payload, nil)
}

// Name implements ports.HealthChecker.
func (c *QuoteClient) Name() string {
	return c.service
}

// Check implements ports.HealthChecker with a one-item listing.
func (c *QuoteClient) Check(ctx context.Context) error {
	return c.exchange(ctx, "health", http.MethodGet, postsPath+"?_limit=1", nil, nil)
}

// exchange performs one call. A non-2xx answer or client failure comes back
// as a domain.FetchError; a 2xx body is decoded into out when out is set.
func (c *QuoteClient) exchange(ctx context.Context, operation, method, path string, payload []byte, out any) error {
	resp, err := c.client.Send(ctx, method, path, payload)
	if err != nil {
		return MapHTTPError(nil, err, c.service, operation)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if err := MapHTTPError(resp, nil, c.service, operation); err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewFetchError(c.service, operation, "decoding response: "+err.Error())
	}

	return nil
}
