package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edupay-dashboard/pkg/response"
)

type dummyDataCreator interface {
	CreateDummyData(ctx context.Context) (json.RawMessage, error)
}

// SeedHandler forwards demo-data seeding to the gateway.
type SeedHandler struct {
	gateway dummyDataCreator
}

// NewSeedHandler constructs the handler.
func NewSeedHandler(gateway dummyDataCreator) *SeedHandler {
	return &SeedHandler{gateway: gateway}
}

// DummyData godoc
// @Summary Seed demo transactions
// @Tags Transactions
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /transactions/dummy-data [post]
func (h *SeedHandler) DummyData(c *gin.Context) {
	payload, err := h.gateway.CreateDummyData(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, payload, nil)
}
