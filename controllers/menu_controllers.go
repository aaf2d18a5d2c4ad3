package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type MenuController struct {
	Catalog *services.CatalogService
}

func NewMenuController(catalog *services.CatalogService) *MenuController {
	return &MenuController{Catalog: catalog}
}

type menuRequest struct {
	CategoryID  *uint   `json:"categoryId"`
	Name        *string `json:"name"`
	Price       *int64  `json:"price"`
	Available   *bool   `json:"available"`
	Active      *bool   `json:"active"`
	Description *string `json:"description"`
}

// GetAllMenus -> ?categoryId= & available=true & all=true (termasuk nonaktif)
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	categoryID, ok := queryID(c, "categoryId")
	if !ok {
		return
	}
	menus, err := mc.Catalog.ListMenu(c.Request.Context(), services.MenuFilter{
		CategoryID:      categoryID,
		AvailableOnly:   c.Query("available") == "true",
		IncludeInactive: c.Query("all") == "true",
	})
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

func (mc *MenuController) GetMenuByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	menu, err := mc.Catalog.GetMenu(c.Request.Context(), id)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu detail", menu)
}

func (mc *MenuController) CreateMenu(c *gin.Context) {
	var req menuRequest
	if !bindJSON(c, &req) {
		return
	}
	in := services.MenuInput{Available: req.Available}
	if req.CategoryID != nil {
		in.CategoryID = *req.CategoryID
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Price != nil {
		in.Price = *req.Price
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	menu, err := mc.Catalog.CreateMenu(c.Request.Context(), in)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.InfoLogger.WithField("menu_id", menu.ID).Infof("New menu created: %s (%s)", menu.Name, utils.FormatVND(menu.Price))
	utils.RespondJSON(c, http.StatusCreated, "Menu created", menu)
}

func (mc *MenuController) UpdateMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req menuRequest
	if !bindJSON(c, &req) {
		return
	}
	menu, err := mc.Catalog.UpdateMenu(c.Request.Context(), id, services.MenuPatch{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Price:       req.Price,
		Available:   req.Available,
		Active:      req.Active,
		Description: req.Description,
	})
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu updated", menu)
}

func (mc *MenuController) DeleteMenu(c *gin.Context) {
	mc.deleteMenu(c, false)
}

// ForceDeleteMenu menghapus menu beserta semua order yang memuatnya
func (mc *MenuController) ForceDeleteMenu(c *gin.Context) {
	mc.deleteMenu(c, true)
}

func (mc *MenuController) deleteMenu(c *gin.Context, force bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := mc.Catalog.DeleteMenuItem(c.Request.Context(), id, force); err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu deleted", gin.H{"id": id, "force": force})
}
