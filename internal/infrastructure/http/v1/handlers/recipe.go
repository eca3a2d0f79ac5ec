package handlers

import (
	"github.com/gin-gonic/gin"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/domain/recipes"
	"roastledger/internal/infrastructure/http/v1/dto"
)

// RecipeHandler handles master BOMs, assignments and legacy recipes.
type RecipeHandler struct {
	*BaseHandler
	service *recipes.Service
}

// NewRecipeHandler creates a new recipe handler.
func NewRecipeHandler(base *BaseHandler, service *recipes.Service) *RecipeHandler {
	return &RecipeHandler{BaseHandler: base, service: service}
}

// Resolve handles GET /recipes/resolve?product=...&asOf=...
// Returns the recipe a sale of that product would consume, including
// source "none" when nothing matches.
func (h *RecipeHandler) Resolve(c *gin.Context) {
	productName := c.Query("product")
	if productName == "" {
		h.Error(c, apperror.NewValidation("product query parameter is required"))
		return
	}

	recipe, err := h.service.Resolve(c.Request.Context(), productName, h.ParseTimeQuery(c, "asOf"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, recipe)
}

// CreateBOM handles POST /recipes/boms.
func (h *RecipeHandler) CreateBOM(c *gin.Context) {
	var req dto.CreateBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bom, err := h.service.CreateMasterBOM(c.Request.Context(), req.ToEntity())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, bom)
}

// ListBOMs handles GET /recipes/boms.
func (h *RecipeHandler) ListBOMs(c *gin.Context) {
	boms, err := h.service.ListBOMs(c.Request.Context(), c.Query("includeInactive") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: boms, Count: len(boms)})
}

// SetBOMActive handles POST /recipes/boms/:id/active.
func (h *RecipeHandler) SetBOMActive(c *gin.Context) {
	bomID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.SetActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetBOMActive(c.Request.Context(), bomID, req.Active); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "bom updated")
}

// Assign handles POST /recipes/products/:id/assignments.
func (h *RecipeHandler) Assign(c *gin.Context) {
	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AssignBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var bomID *id.ID
	if req.BOMID != nil {
		parsed, err := id.Parse(*req.BOMID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid bomId format"))
			return
		}
		bomID = &parsed
	}

	assignment, err := h.service.AssignBOM(c.Request.Context(), productID, bomID, req.EffectiveDate, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, assignment)
}

// ListAssignments handles GET /recipes/products/:id/assignments.
func (h *RecipeHandler) ListAssignments(c *gin.Context) {
	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	assignments, err := h.service.ListAssignments(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: assignments, Count: len(assignments)})
}

// AddLegacy handles POST /recipes/legacy.
func (h *RecipeHandler) AddLegacy(c *gin.Context) {
	var req dto.CreateLegacyRecipeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.AddLegacyRecipe(c.Request.Context(), req.ToEntity()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "recipe batch added")
}

// ListLegacy handles GET /recipes/legacy?product=...
func (h *RecipeHandler) ListLegacy(c *gin.Context) {
	productName := c.Query("product")
	if productName == "" {
		h.Error(c, apperror.NewValidation("product query parameter is required"))
		return
	}

	batches, err := h.service.ListLegacyBatches(c.Request.Context(), productName)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: batches, Count: len(batches)})
}

// RegisterRoutes registers recipe routes.
func (h *RecipeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resolve", h.Resolve)
	rg.POST("/boms", h.CreateBOM)
	rg.GET("/boms", h.ListBOMs)
	rg.POST("/boms/:id/active", h.SetBOMActive)
	rg.POST("/products/:id/assignments", h.Assign)
	rg.GET("/products/:id/assignments", h.ListAssignments)
	rg.POST("/legacy", h.AddLegacy)
	rg.GET("/legacy", h.ListLegacy)
}
