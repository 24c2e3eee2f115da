package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// SyncHandler exposes the sync engine, the scheduler toggle and conflict
// resolution.
type SyncHandler struct {
	engine    *app.Engine
	scheduler *app.Scheduler
}

// NewSyncHandler creates a sync handler.
func NewSyncHandler(engine *app.Engine, scheduler *app.Scheduler) *SyncHandler {
	return &SyncHandler{engine: engine, scheduler: scheduler}
}

// RunSync handles POST /api/v1/sync. The cycle runs to completion before
// the response is written; a request arriving during a cycle is coalesced
// and answered with 202.
//
// @Summary Run a sync cycle
// @Tags sync
// @Produce json
// @Success 200 {object} dto.CycleReportResponse
// @Success 202 {object} dto.CycleReportResponse
// @Router /api/v1/sync [post]
func (h *SyncHandler) RunSync(c *gin.Context) {
	report := h.engine.Sync(c.Request.Context())

	status := http.StatusOK
	if report.Outcome == app.OutcomeCoalesced {
		status = http.StatusAccepted
	}

	c.JSON(status, dto.NewCycleReportResponse(report))
}

// Status handles GET /api/v1/sync/status.
func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSyncStatusResponse(h.engine.Status(), h.scheduler.Enabled()))
}

// SetAutoSync handles PUT /api/v1/sync/auto.
func (h *SyncHandler) SetAutoSync(c *gin.Context) {
	var req dto.AutoSyncRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	if err := h.scheduler.SetEnabled(c.Request.Context(), *req.Enabled); err != nil {
		dto.HandleError(c, err)
		return
	}

	h.Status(c)
}

// SetPolicy handles PUT /api/v1/sync/policy.
func (h *SyncHandler) SetPolicy(c *gin.Context) {
	var req dto.PolicyRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	policy, err := domain.ParsePolicy(req.Policy)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	h.engine.SetPolicy(policy)
	h.Status(c)
}

// ListConflicts handles GET /api/v1/conflicts.
func (h *SyncHandler) ListConflicts(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewConflictResponses(h.engine.Conflicts()))
}

// ResolveConflict handles POST /api/v1/conflicts/:id/resolve.
//
// @Summary Resolve one conflict
// @Tags conflicts
// @Accept json
// @Param id path string true "Record ID"
// @Param body body dto.ResolveRequest true "Choice"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/conflicts/{id}/resolve [post]
func (h *SyncHandler) ResolveConflict(c *gin.Context) {
	choice, ok := bindChoice(c)
	if !ok {
		return
	}

	if err := h.engine.Resolve(c.Request.Context(), c.Param("id"), choice); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ResolveAll handles POST /api/v1/conflicts/resolve.
func (h *SyncHandler) ResolveAll(c *gin.Context) {
	choice, ok := bindChoice(c)
	if !ok {
		return
	}

	n, err := h.engine.ResolveAll(c.Request.Context(), choice)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ResolveAllResponse{Resolved: n})
}

// DiscardConflicts handles DELETE /api/v1/conflicts.
func (h *SyncHandler) DiscardConflicts(c *gin.Context) {
	h.engine.DiscardConflicts()
	c.Status(http.StatusNoContent)
}

func bindChoice(c *gin.Context) (domain.Choice, bool) {
	var req dto.ResolveRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return "", false
	}

	choice, err := domain.ParseChoice(req.Choice)
	if err != nil {
		dto.HandleError(c, err)
		return "", false
	}

	return choice, true
}

// RegisterSyncRoutes registers sync and conflict routes on the given router group.
func (h *SyncHandler) RegisterSyncRoutes(rg *gin.RouterGroup) {
	cycles := rg.Group("/sync")
	cycles.POST("", h.RunSync)
	cycles.GET("/status", h.Status)
	cycles.PUT("/auto", h.SetAutoSync)
	cycles.PUT("/policy", h.SetPolicy)

	conflicts := rg.Group("/conflicts")
	conflicts.GET("", h.ListConflicts)
	conflicts.DELETE("", h.DiscardConflicts)
	conflicts.POST("/resolve", h.ResolveAll)
	conflicts.POST("/:id/resolve", h.ResolveConflict)
}
