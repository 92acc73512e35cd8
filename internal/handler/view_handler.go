package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/edupay-dashboard/internal/dto"
	"github.com/noah-isme/edupay-dashboard/internal/middleware"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/internal/service"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
	"github.com/noah-isme/edupay-dashboard/pkg/response"
)

const defaultWaitTimeout = 10 * time.Second

type viewRegistry interface {
	Mount(rawQuery string) (*service.ListView, error)
	Get(id string) (*service.ListView, error)
	Unmount(id string) error
}

type rowExporter interface {
	ExportRows(rows []models.TransactionRow, format string) (*dto.ExportResponse, error)
}

// ViewHandler exposes mounted transaction list views over HTTP.
type ViewHandler struct {
	views       viewRegistry
	exports     rowExporter
	validator   *validator.Validate
	waitTimeout time.Duration
}

// NewViewHandler constructs the handler. exports may be nil when exports are disabled.
func NewViewHandler(views viewRegistry, exports rowExporter, validate *validator.Validate, waitTimeout time.Duration) *ViewHandler {
	if validate == nil {
		validate = validator.New()
	}
	if waitTimeout <= 0 {
		waitTimeout = defaultWaitTimeout
	}
	return &ViewHandler{views: views, exports: exports, validator: validate, waitTimeout: waitTimeout}
}

// Mount godoc
// @Summary Mount a transaction list view
// @Description Creates a view from a URL query string and issues its first fetch
// @Tags Views
// @Accept json
// @Produce json
// @Param payload body dto.MountViewRequest false "Initial URL query"
// @Param wait query bool false "Wait for the first fetch to settle"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /views [post]
func (h *ViewHandler) Mount(c *gin.Context) {
	var req dto.MountViewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid view payload"))
			return
		}
	}
	view, err := h.views.Mount(req.Query)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, view)
}

// Get godoc
// @Summary Read a view snapshot
// @Tags Views
// @Produce json
// @Param id path string true "View ID"
// @Param wait query bool false "Wait for the in-flight fetch to settle"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /views/{id} [get]
func (h *ViewHandler) Get(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, view)
}

// Action godoc
// @Summary Apply a view action
// @Description Mutates the view's query state; data changes trigger a refetch
// @Tags Views
// @Accept json
// @Produce json
// @Param id path string true "View ID"
// @Param payload body dto.ViewActionRequest true "Action"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /views/{id}/actions [post]
func (h *ViewHandler) Action(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	var req dto.ViewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unknown action type"))
		return
	}
	if err := view.Apply(req); err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, view)
}

// Retry godoc
// @Summary Retry the current fetch
// @Tags Views
// @Produce json
// @Param id path string true "View ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /views/{id}/retry [post]
func (h *ViewHandler) Retry(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	view.Controller.Retry()
	h.respond(c, http.StatusOK, view)
}

// Unmount godoc
// @Summary Unmount a view
// @Tags Views
// @Param id path string true "View ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /views/{id} [delete]
func (h *ViewHandler) Unmount(c *gin.Context) {
	if err := h.views.Unmount(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// Suggestions godoc
// @Summary School id suggestions
// @Description Distinct school ids matching the view's search text, or all of them when the full panel is open
// @Tags Views
// @Produce json
// @Param id path string true "View ID"
// @Param q query string false "Override the search text"
// @Success 200 {object} response.Envelope
// @Router /views/{id}/suggestions [get]
func (h *ViewHandler) Suggestions(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	store := view.Controller.Store()
	term, overridden := c.GetQuery("q")
	if !overridden {
		term = store.State().Filters.Search
	}
	if store.Panels().AllSuggestionsOpen && !overridden {
		term = ""
	}
	middleware.SetCacheHit(c, view.Suggestions.Cached())
	values := view.Suggestions.Match(c.Request.Context(), term)
	response.JSON(c, http.StatusOK, dto.SuggestionsResponse{Query: term, Suggestions: values, Total: len(values)}, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the displayed rows
// @Tags Views
// @Produce json
// @Param id path string true "View ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /views/{id}/export [get]
func (h *ViewHandler) Export(c *gin.Context) {
	if h.exports == nil {
		writeError(c, appErrors.Clone(appErrors.ErrServiceUnavailable, "exports are disabled"))
		return
	}
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	if !h.wait(c, view) {
		return
	}
	res, err := h.exports.ExportRows(view.Controller.Rows(), c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, middleware.ExtractMeta(c))
}

func (h *ViewHandler) lookup(c *gin.Context) (*service.ListView, bool) {
	view, err := h.views.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return view, true
}

// wait blocks for the in-flight fetch when the caller asked for it. It reports
// false when the client went away.
func (h *ViewHandler) wait(c *gin.Context, view *service.ListView) bool {
	if want, _ := strconv.ParseBool(c.Query("wait")); !want {
		return true
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.waitTimeout)
	defer cancel()
	if err := view.Controller.Wait(ctx); err != nil && c.Request.Context().Err() != nil {
		c.Abort()
		return false
	}
	return true
}

func (h *ViewHandler) respond(c *gin.Context, status int, view *service.ListView) {
	if !h.wait(c, view) {
		return
	}
	snap := view.Controller.Snapshot()
	if snap.ErrorCode == appErrors.ErrUnauthenticated.Code {
		middleware.Unauthenticated(c, appErrors.Clone(appErrors.ErrUnauthenticated, snap.Error))
		return
	}
	pagination := snap.Pagination
	response.JSON(c, status, dto.ViewResponse{ViewID: view.ID, Snapshot: snap}, &pagination, middleware.ExtractMeta(c))
}
