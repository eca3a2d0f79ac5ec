package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/reports"
	"roastledger/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// StockSummary handles GET /reports/stock-summary.
func (h *ReportsHandler) StockSummary(c *gin.Context) {
	summary, err := h.service.StockSummary(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, summary)
}

// ProductionPlan handles GET /reports/production-plan?product=...&batchKg=...
func (h *ReportsHandler) ProductionPlan(c *gin.Context) {
	productName := c.Query("product")
	if productName == "" {
		h.Error(c, apperror.NewValidation("product query parameter is required"))
		return
	}

	batchFloat, err := strconv.ParseFloat(c.Query("batchKg"), 64)
	if err != nil || batchFloat <= 0 {
		h.Error(c, apperror.NewValidation("batchKg must be a positive number"))
		return
	}

	plan, err := h.service.ProductionPlan(c.Request.Context(), productName, types.NewQuantityFromFloat64(batchFloat))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, plan)
}

// MonthlyMargin handles GET /reports/monthly-margin?from=2026-01&to=2026-06
func (h *ReportsHandler) MonthlyMargin(c *gin.Context) {
	from, err := parseMonth(c.Query("from"))
	if err != nil {
		h.Error(c, apperror.NewValidation("from must be formatted YYYY-MM"))
		return
	}
	to, err := parseMonth(c.Query("to"))
	if err != nil {
		h.Error(c, apperror.NewValidation("to must be formatted YYYY-MM"))
		return
	}

	rows, err := h.service.MonthlyMargin(c.Request.Context(), from, to)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: rows, Count: len(rows)})
}

// Consistency handles GET /reports/consistency.
func (h *ReportsHandler) Consistency(c *gin.Context) {
	report, err := h.service.Consistency(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

func parseMonth(s string) (time.Time, error) {
	return time.Parse("2006-01", s)
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stock-summary", h.StockSummary)
	rg.GET("/production-plan", h.ProductionPlan)
	rg.GET("/monthly-margin", h.MonthlyMargin)
	rg.GET("/consistency", h.Consistency)
}
