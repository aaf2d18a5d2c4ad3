package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type MenuCategoryController struct {
	Catalog *services.CatalogService
}

func NewMenuCategoryController(catalog *services.CatalogService) *MenuCategoryController {
	return &MenuCategoryController{Catalog: catalog}
}

type categoryRequest struct {
	Name      *string `json:"name"`
	SortOrder *int    `json:"sortOrder"`
}

func (mcc *MenuCategoryController) GetAllCategories(c *gin.Context) {
	categories, err := mcc.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of categories", categories)
}

func (mcc *MenuCategoryController) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	var name string
	var sortOrder int
	if req.Name != nil {
		name = *req.Name
	}
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}
	category, err := mcc.Catalog.CreateCategory(c.Request.Context(), name, sortOrder)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

func (mcc *MenuCategoryController) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := mcc.Catalog.UpdateCategory(c.Request.Context(), id, req.Name, req.SortOrder)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

func (mcc *MenuCategoryController) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := mcc.Catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category deleted", gin.H{"id": id})
}
