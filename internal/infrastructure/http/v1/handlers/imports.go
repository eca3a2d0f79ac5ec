package handlers

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"roastledger/internal/core/apperror"
	"roastledger/internal/ingest"
)

// ImportHandler handles spreadsheet import endpoints.
type ImportHandler struct {
	*BaseHandler
	importer *ingest.Importer
}

// NewImportHandler creates a new import handler.
func NewImportHandler(base *BaseHandler, importer *ingest.Importer) *ImportHandler {
	return &ImportHandler{BaseHandler: base, importer: importer}
}

// ImportSales handles POST /imports/sales with a multipart "file" field.
func (h *ImportHandler) ImportSales(c *gin.Context) {
	file, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	summary, err := h.importer.ImportSales(c.Request.Context(), file)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, summary)
}

// ImportPurchases handles POST /imports/purchases with a multipart
// "file" field.
func (h *ImportHandler) ImportPurchases(c *gin.Context) {
	file, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	summary, err := h.importer.ImportPurchases(c.Request.Context(), file)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, summary)
}

func (h *ImportHandler) openUpload(c *gin.Context) (multipart.File, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("multipart file field is required"))
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return nil, false
	}
	return file, true
}

// RegisterRoutes registers import routes.
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sales", h.ImportSales)
	rg.POST("/purchases", h.ImportPurchases)
}
