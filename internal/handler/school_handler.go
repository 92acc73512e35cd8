package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edupay-dashboard/internal/dto"
	"github.com/noah-isme/edupay-dashboard/internal/middleware"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
	"github.com/noah-isme/edupay-dashboard/pkg/response"
)

type schoolViewService interface {
	Load(ctx context.Context, search string, page int) (dto.SchoolSnapshot, error)
}

// SchoolHandler serves the per-school transaction search.
type SchoolHandler struct {
	service     schoolViewService
	suggestions suggestionSource
}

// NewSchoolHandler constructs the handler. suggestions may be nil.
func NewSchoolHandler(svc schoolViewService, suggestions suggestionSource) *SchoolHandler {
	return &SchoolHandler{service: svc, suggestions: suggestions}
}

// Transactions godoc
// @Summary Search one school's transactions
// @Tags Schools
// @Produce json
// @Param search query string false "School ID; blank returns no rows"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /schools/transactions [get]
func (h *SchoolHandler) Transactions(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer"))
			return
		}
		page = n
	}
	snap, err := h.service.Load(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		writeError(c, err)
		return
	}
	pagination := snap.Pagination
	response.JSON(c, http.StatusOK, snap, &pagination, middleware.ExtractMeta(c))
}

// Suggestions godoc
// @Summary School id suggestions
// @Description Distinct school ids matching q; a blank q lists all of them
// @Tags Schools
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {object} response.Envelope
// @Router /schools/suggestions [get]
func (h *SchoolHandler) Suggestions(c *gin.Context) {
	term := c.Query("q")
	values := []string{}
	if h.suggestions != nil {
		middleware.SetCacheHit(c, h.suggestions.Cached())
		values = h.suggestions.Match(c.Request.Context(), term)
	}
	response.JSON(c, http.StatusOK, dto.SuggestionsResponse{Query: term, Suggestions: values, Total: len(values)}, nil, middleware.ExtractMeta(c))
}
