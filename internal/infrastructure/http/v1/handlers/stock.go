package handlers

import (
	"github.com/gin-gonic/gin"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/registers/stock"
	"roastledger/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock register endpoints.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// GetBalances handles GET /registers/stock/balances.
func (h *StockHandler) GetBalances(c *gin.Context) {
	balances, err := h.service.Balances(c.Request.Context(), c.Query("excludeZero") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: balances, Count: len(balances)})
}

// GetHistory handles GET /registers/stock/history?origin=...&product=...
func (h *StockHandler) GetHistory(c *gin.Context) {
	b, ok := h.beanFromQuery(c)
	if !ok {
		return
	}

	filter := stock.TransactionFilter{
		FromDate: h.ParseTimeQuery(c, "dateFrom"),
		ToDate:   h.ParseTimeQuery(c, "dateTo"),
		Limit:    h.ParseIntQuery(c, "limit", 100),
		Offset:   h.ParseIntQuery(c, "offset", 0),
	}
	if t := c.Query("type"); t != "" {
		entryType := stock.EntryType(t)
		if !entryType.Valid() {
			h.Error(c, apperror.NewValidation("unknown transaction type"))
			return
		}
		filter.Type = &entryType
	}

	transactions, err := h.service.History(c.Request.Context(), b, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: transactions, Count: len(transactions)})
}

// GetHistoryByRef handles GET /registers/stock/history/by-ref/:id,
// the ledger rows one purchase or sale document produced.
func (h *StockHandler) GetHistoryByRef(c *gin.Context) {
	refID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	transactions, err := h.service.HistoryByRef(c.Request.Context(), refID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: transactions, Count: len(transactions)})
}

// GetAvailability handles GET /registers/stock/availability.
func (h *StockHandler) GetAvailability(c *gin.Context) {
	b, ok := h.beanFromQuery(c)
	if !ok {
		return
	}

	available, err := h.service.Availability(c.Request.Context(), b)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"bean":        b,
		"availableKg": available,
	})
}

func (h *StockHandler) beanFromQuery(c *gin.Context) (bean.Bean, bool) {
	b := bean.New(c.Query("origin"), c.Query("product"))
	if err := b.Validate(); err != nil {
		h.Error(c, apperror.NewValidation("origin and product query parameters are required"))
		return bean.Bean{}, false
	}
	return b, true
}

// RegisterRoutes registers stock register routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/balances", h.GetBalances)
	rg.GET("/history", h.GetHistory)
	rg.GET("/history/by-ref/:id", h.GetHistoryByRef)
	rg.GET("/availability", h.GetAvailability)
}
