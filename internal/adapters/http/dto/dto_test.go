package dto

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeParse, http.StatusBadRequest},
		{ErrorCodeBadRequest, http.StatusBadRequest},
		{ErrorCodeUpstream, http.StatusBadGateway},
		{ErrorCodeStorage, http.StatusInternalServerError},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeTimeout, http.StatusGatewayTimeout},
		{ErrorCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromCode(tt.code))
		})
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails map[string]string
	}{
		{
			name:        "validation",
			err:         domain.NewValidationError("text", "must not be empty"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeValidation,
			wantMessage: "validation failed for text: must not be empty",
			wantDetails: map[string]string{"text": "must not be empty"},
		},
		{
			name:        "not found",
			err:         domain.NewNotFoundError("conflict", "7"),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: `conflict with id "7" not found`,
		},
		{
			name:        "parse",
			err:         domain.NewParseError("import", "empty document"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeParse,
			wantMessage: "empty document",
		},
		{
			name:        "fetch",
			err:         domain.NewFetchStatusError("posts", "pull", 503, "service temporarily unavailable"),
			wantStatus:  http.StatusBadGateway,
			wantCode:    ErrorCodeUpstream,
			wantMessage: "service temporarily unavailable",
		},
		{
			name:        "storage hides the cause",
			err:         domain.NewStorageError("set", "quotes/records", errors.New("disk full")),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeStorage,
			wantMessage: "the record store could not be written",
		},
		{
			name:        "unknown",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeInternal,
			wantMessage: "an internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapDomainError(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.wantMessage)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
			assert.NotContains(t, resp.Error.Message, "disk full")
		})
	}
}

func newTestContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))

	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}

	return c, w
}

func TestGetTraceID(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*gin.Context)
		want  string
	}{
		{
			name:  "context override",
			setup: func(c *gin.Context) { c.Set("trace_id", "ctx-1") },
			want:  "ctx-1",
		},
		{
			name:  "echoed request id",
			setup: func(c *gin.Context) { c.Header("X-Request-ID", "req-2") },
			want:  "req-2",
		},
		{
			name:  "incoming header alone is ignored",
			setup: func(c *gin.Context) { c.Request.Header.Set("X-Request-ID", "req 2") },
			want:  "",
		},
		{
			name: "override wins over header",
			setup: func(c *gin.Context) {
				c.Set("trace_id", "ctx-1")
				c.Header("X-Request-ID", "req-2")
			},
			want: "ctx-1",
		},
		{
			name:  "non-string override",
			setup: func(c *gin.Context) { c.Set("trace_id", 42) },
			want:  "",
		},
		{
			name:  "nothing set",
			setup: func(*gin.Context) {},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/", "")
			tt.setup(c)

			assert.Equal(t, tt.want, GetTraceID(c))
		})
	}
}

func TestHandleError(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", "")
	c.Set("trace_id", "trace-9")

	HandleError(c, domain.NewNotFoundError("conflict", "3"))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrorCodeNotFound, resp.Error.Code)
	assert.Equal(t, "trace-9", resp.TraceID)
}

func TestHandleBindError(t *testing.T) {
	t.Run("validator failure carries field details", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/", `{"text":"  ","category":"Life"}`)

		var req CreateQuoteRequest
		err := BindAndValidate(c, &req)
		require.Error(t, err)

		HandleBindError(c, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ErrorCodeValidation, resp.Error.Code)
		assert.Equal(t, map[string]string{"text": "must not be empty"}, resp.Error.Details)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/", `{"text":`)

		var req CreateQuoteRequest
		err := BindAndValidate(c, &req)
		require.ErrorIs(t, err, ErrBinding)

		HandleBindError(c, err)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrorCodeBadRequest, resp.Error.Code)
	})
}

func TestRequestValidation(t *testing.T) {
	enabled := true

	tests := []struct {
		name      string
		req       any
		wantField string
	}{
		{name: "create ok", req: &CreateQuoteRequest{Text: "a", Category: "b"}},
		{name: "create missing category", req: &CreateQuoteRequest{Text: "a"}, wantField: "category"},
		{name: "policy ok", req: &PolicyRequest{Policy: "manual"}},
		{name: "policy unknown", req: &PolicyRequest{Policy: "client_wins"}, wantField: "policy"},
		{name: "choice ok", req: &ResolveRequest{Choice: "local"}},
		{name: "choice alias", req: &ResolveRequest{Choice: "server"}},
		{name: "choice unknown", req: &ResolveRequest{Choice: "both"}, wantField: "choice"},
		{name: "auto sync set", req: &AutoSyncRequest{Enabled: &enabled}},
		{name: "auto sync missing", req: &AutoSyncRequest{}, wantField: "enabled"},
		{name: "select blank", req: &SelectCategoryRequest{Category: " "}, wantField: "category"},
		{name: "limit too large", req: &ListQuotesRequest{PageRequest: PageRequest{Limit: 500}}, wantField: "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAll(tt.req)

			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrValidation)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, ValidationErrors(err), tt.wantField)
		})
	}
}

func TestListQuotesRequest_RejectsBadCursor(t *testing.T) {
	err := ValidateAll(&ListQuotesRequest{PageRequest: PageRequest{Cursor: "%%%"}})

	require.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrInvalidCursor)
	assert.False(t, IsValidationError(err))
}

func TestValidationMessages(t *testing.T) {
	type bounded struct {
		Name  string `json:"name"  validate:"min=2,max=4"`
		Count int    `json:"count" validate:"gte=1"`
	}

	err := Validate(&bounded{Name: "abcdef", Count: 0})
	require.Error(t, err)

	fields := ValidationErrors(err)
	assert.Equal(t, "must be at most 4 characters", fields["name"])
	assert.Equal(t, "must be greater than or equal to 1", fields["count"])

	assert.Empty(t, ValidationErrors(errors.New("plain")))
}

func TestCursorRoundTrip(t *testing.T) {
	id, err := DecodeCursor(EncodeCursor("q_42"))
	require.NoError(t, err)
	assert.Equal(t, "q_42", id)

	id, err = DecodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, id)

	for _, bad := range []string{"not base64!", "bnVsbA==", EncodeCursor("")} {
		_, err = DecodeCursor(bad)
		assert.ErrorIs(t, err, ErrInvalidCursor, bad)
	}
}

func TestPaginate(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	idOf := func(s string) string { return s }

	first, err := Paginate(items, PageRequest{Limit: 2}, idOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, first.Items)
	assert.True(t, first.HasMore)
	assert.Equal(t, 5, first.Total)

	second, err := Paginate(items, PageRequest{Limit: 2, Cursor: first.NextCursor}, idOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, second.Items)

	last, err := Paginate(items, PageRequest{Limit: 2, Cursor: second.NextCursor}, idOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, last.Items)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.NextCursor)

	all, err := Paginate(items, PageRequest{}, idOf)
	require.NoError(t, err)
	assert.Len(t, all.Items, 5)

	_, err = Paginate(items, PageRequest{Cursor: EncodeCursor("zz")}, idOf)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	empty, err := Paginate([]string{}, PageRequest{}, idOf)
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestPageRequest_GetLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, (&PageRequest{}).GetLimit())
	assert.Equal(t, 7, (&PageRequest{Limit: 7}).GetLimit())
	assert.Equal(t, MaxLimit, (&PageRequest{Limit: 1000}).GetLimit())
}

func TestNewCycleReportResponse(t *testing.T) {
	assert.Nil(t, NewCycleReportResponse(nil))

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	resp := NewCycleReportResponse(&app.CycleReport{
		CycleID:    "c1",
		Outcome:    app.OutcomePartialPushFailure,
		PushFailed: []string{"q_1"},
		Conflicts: []domain.Conflict{{
			ID:         "1",
			Local:      domain.Quote{ID: "1", Text: "A", Category: "X", Dirty: true, Source: domain.SourceLocal},
			Remote:     domain.Quote{ID: "1", Text: "B", Category: "X", Source: domain.SourceServer},
			DetectedAt: at,
		}},
		AutoResolved: 1,
	})

	assert.Equal(t, "partial_push_failure", resp.Outcome)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "A", resp.Conflicts[0].Local.Text)
	assert.Equal(t, "server", resp.Conflicts[0].Remote.Source)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pushFailed":["q_1"]`)
	assert.NotContains(t, string(data), `"error"`)
}
