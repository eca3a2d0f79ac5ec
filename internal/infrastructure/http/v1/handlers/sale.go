package handlers

import (
	"github.com/gin-gonic/gin"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/domain/documents/sale"
	"roastledger/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles roasted product sale documents.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Create handles POST /document/sales. The response carries the resolved
// recipe and any shortage or missing-recipe warnings; the sale itself is
// recorded even when stock could not be deducted.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Create(c.Request.Context(), req.ToEntity())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Update handles PUT /document/sales/:id. The original consumption is
// restored before the new one is applied.
func (h *SaleHandler) Update(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(doc)

	result, err := h.service.Update(c.Request.Context(), doc)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Delete handles DELETE /document/sales/:id.
func (h *SaleHandler) Delete(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Get handles GET /document/sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, doc)
}

// List handles GET /document/sales.
func (h *SaleHandler) List(c *gin.Context) {
	filter := sale.ListFilter{
		ProductName: c.Query("product"),
		Customer:    c.Query("customer"),
		FromDate:    h.ParseTimeQuery(c, "dateFrom"),
		ToDate:      h.ParseTimeQuery(c, "dateTo"),
		Limit:       h.ParseIntQuery(c, "limit", 50),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	sales, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: sales, Count: len(sales)})
}

// RegisterRoutes registers sale routes.
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
