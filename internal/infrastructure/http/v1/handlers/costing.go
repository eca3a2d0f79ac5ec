package handlers

import (
	"github.com/gin-gonic/gin"

	"roastledger/internal/domain/costing"
	"roastledger/internal/infrastructure/http/v1/dto"
)

// CostingHandler handles variable cost rate endpoints.
type CostingHandler struct {
	*BaseHandler
	service *costing.Service
}

// NewCostingHandler creates a new costing handler.
func NewCostingHandler(base *BaseHandler, service *costing.Service) *CostingHandler {
	return &CostingHandler{BaseHandler: base, service: service}
}

// SetVariableCost handles PUT /costing/variable-costs.
func (h *CostingHandler) SetVariableCost(c *gin.Context) {
	var req dto.SetVariableCostRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetVariableCost(c.Request.Context(), req.ToEntity()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "variable cost saved")
}

// ListVariableCosts handles GET /costing/variable-costs.
func (h *CostingHandler) ListVariableCosts(c *gin.Context) {
	rates, err := h.service.ListVariableCosts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: rates, Count: len(rates)})
}

// RegisterRoutes registers costing routes.
func (h *CostingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/variable-costs", h.SetVariableCost)
	rg.GET("/variable-costs", h.ListVariableCosts)
}
