package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/edupay-dashboard/internal/dto"
	"github.com/noah-isme/edupay-dashboard/internal/middleware"
	"github.com/noah-isme/edupay-dashboard/internal/service"
	"github.com/noah-isme/edupay-dashboard/pkg/response"
)

type suggestionSource interface {
	Cached() bool
	Match(ctx context.Context, term string) []string
}

// LookupHandler serves the single-order status lookup.
type LookupHandler struct {
	fetcher     service.TransactionDetailFetcher
	suggestions suggestionSource
	logger      *zap.Logger
}

// NewLookupHandler constructs the handler.
func NewLookupHandler(fetcher service.TransactionDetailFetcher, suggestions suggestionSource, logger *zap.Logger) *LookupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LookupHandler{fetcher: fetcher, suggestions: suggestions, logger: logger}
}

// Lookup godoc
// @Summary Look up one transaction
// @Description Fetches a transaction by custom order id. Not-found and gateway failures are reported inside the snapshot.
// @Tags Lookup
// @Produce json
// @Param orderId query string true "Custom order id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /lookup [get]
func (h *LookupHandler) Lookup(c *gin.Context) {
	view := service.NewLookupView(h.fetcher, h.logger)
	if err := view.Mount(c.Request.Context(), c.Request.URL.RawQuery); err != nil {
		writeError(c, err)
		return
	}
	snap := view.Snapshot()
	if snap.Query == "" {
		writeError(c, service.ErrOrderIDRequired)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil, middleware.ExtractMeta(c))
}

// Suggestions godoc
// @Summary Order id suggestions
// @Tags Lookup
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {object} response.Envelope
// @Router /lookup/suggestions [get]
func (h *LookupHandler) Suggestions(c *gin.Context) {
	term := c.Query("q")
	values := []string{}
	if h.suggestions != nil {
		middleware.SetCacheHit(c, h.suggestions.Cached())
		values = h.suggestions.Match(c.Request.Context(), term)
	}
	response.JSON(c, http.StatusOK, dto.SuggestionsResponse{Query: term, Suggestions: values, Total: len(values)}, nil, middleware.ExtractMeta(c))
}
