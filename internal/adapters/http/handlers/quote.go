package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
)

// QuoteHandler serves the record collection and its category index.
type QuoteHandler struct {
	store    *app.Store
	transfer *app.Transfer
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(store *app.Store, transfer *app.Transfer) *QuoteHandler {
	return &QuoteHandler{
		store:    store,
		transfer: transfer,
	}
}

// category resolves the filter of a request: the query value when given,
// the remembered selection otherwise.
func (h *QuoteHandler) category(q string) string {
	if q != "" {
		return q
	}

	return h.store.SelectedCategory()
}

// ListQuotes handles GET /api/v1/quotes.
//
// @Summary List quotes
// @Tags quotes
// @Produce json
// @Param category query string false "Category filter, defaults to the selected one"
// @Param limit query int false "Page size (1-100)"
// @Param cursor query string false "Cursor from a previous page"
// @Success 200 {object} dto.Page[dto.QuoteResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.ListQuotesRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	quotes := dto.NewQuoteResponses(h.store.List(h.category(req.Category)))

	page, err := dto.Paginate(quotes, req.PageRequest, func(q dto.QuoteResponse) string { return q.ID })
	if err != nil {
		dto.HandleErrorCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, page)
}

// CreateQuote handles POST /api/v1/quotes.
//
// @Summary Add a quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param body body dto.CreateQuoteRequest true "Quote"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	q, err := h.store.Add(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		if q.ID == "" {
			dto.HandleError(c, err)
			return
		}

		// The record is kept in memory even when the write-through failed.
		logging.FromContext(c.Request.Context()).WarnContext(c.Request.Context(),
			"quote added but not persisted", "quote_id", q.ID, "error", err.Error())
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(q))
}

// RandomQuote handles GET /api/v1/quotes/random.
//
// @Summary Get a random quote
// @Tags quotes
// @Produce json
// @Param category query string false "Category filter, defaults to the selected one"
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/random [get]
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	var req dto.RandomQuoteRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	q, err := h.store.Random(h.category(req.Category))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(q))
}

// ExportQuotes handles GET /api/v1/quotes/export as a file download.
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+h.transfer.ExportFileName()+`"`)
	c.Status(http.StatusOK)

	if err := h.transfer.Export(c.Writer); err != nil {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(),
			"export failed", "error", err.Error())
	}
}

// ImportQuotes handles POST /api/v1/quotes/import. The body is the JSON
// document itself, as produced by ExportQuotes.
//
// @Summary Import quotes
// @Tags quotes
// @Accept json
// @Produce json
// @Success 200 {object} dto.ImportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/import [post]
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	doc, err := io.ReadAll(c.Request.Body)
	if err != nil {
		dto.HandleErrorCode(c, dto.ErrorCodeBadRequest, "reading request body: "+err.Error())
		return
	}

	result, err := h.transfer.Import(c.Request.Context(), doc)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{Added: result.Added, Skipped: result.Skipped})
}

// ListCategories handles GET /api/v1/categories.
func (h *QuoteHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: h.store.Categories(),
		Selected:   h.store.SelectedCategory(),
	})
}

// SelectCategory handles PUT /api/v1/categories/selected.
func (h *QuoteHandler) SelectCategory(c *gin.Context) {
	var req dto.SelectCategoryRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	err := h.store.SelectCategory(c.Request.Context(), req.Category)
	if err != nil && domain.IsValidation(err) {
		dto.HandleError(c, err)
		return
	}

	if err != nil {
		logging.FromContext(c.Request.Context()).WarnContext(c.Request.Context(),
			"category selection not persisted", "error", err.Error())
	}

	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: h.store.Categories(),
		Selected:   h.store.SelectedCategory(),
	})
}

// RegisterQuoteRoutes registers quote and category routes on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.CreateQuote)
	quotes.GET("/random", h.RandomQuote)
	quotes.GET("/export", h.ExportQuotes)
	quotes.POST("/import", h.ImportQuotes)

	categories := rg.Group("/categories")
	categories.GET("", h.ListCategories)
	categories.PUT("/selected", h.SelectCategory)
}
