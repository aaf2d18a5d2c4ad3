package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type TableController struct {
	Tables *services.TableService
	Orders *services.OrderService
}

func NewTableController(tables *services.TableService, orders *services.OrderService) *TableController {
	return &TableController{Tables: tables, Orders: orders}
}

type tableRequest struct {
	Name     *string `json:"name"`
	Capacity *int    `json:"capacity"`
	Status   *string `json:"status"`
	Location *string `json:"location"`
	Version  *uint   `json:"version"`
}

// GetAllTables -> menampilkan seluruh meja, opsional ?status=
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.ListTables(c.Request.Context(), c.Query("status"))
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) GetTable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	table, err := tc.Tables.GetTable(c.Request.Context(), id)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// CreateTable -> menambahkan meja baru
func (tc *TableController) CreateTable(c *gin.Context) {
	var req tableRequest
	if !bindJSON(c, &req) {
		return
	}
	in := services.CreateTableInput{Location: req.Location}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Capacity != nil {
		in.Capacity = *req.Capacity
	}
	if req.Status != nil {
		in.Status = *req.Status
	}
	table, err := tc.Tables.CreateTable(c.Request.Context(), in)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req tableRequest
	if !bindJSON(c, &req) {
		return
	}
	table, err := tc.Tables.UpdateTable(c.Request.Context(), id, services.UpdateTableInput{
		Name:     req.Name,
		Capacity: req.Capacity,
		Status:   req.Status,
		Location: req.Location,
		Version:  req.Version,
	})
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	tc.deleteTable(c, false)
}

// ForceDeleteTable menghapus meja beserta semua order yang terkait
func (tc *TableController) ForceDeleteTable(c *gin.Context) {
	tc.deleteTable(c, true)
}

func (tc *TableController) deleteTable(c *gin.Context, force bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := tc.Tables.DeleteTable(c.Request.Context(), id, force); err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": id, "force": force})
}

func (tc *TableController) RenumberTables(c *gin.Context) {
	tables, err := tc.Tables.RenumberAll(c.Request.Context())
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tables renumbered", tables)
}

// GetCurrentOrder returns the table's open order together with the sum of
// every non-completed order on it.
func (tc *TableController) GetCurrentOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	order, err := tc.Orders.CurrentOrder(ctx, id)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	total, err := tc.Orders.TableTotal(ctx, id)
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Current order", gin.H{
		"order":       order,
		"table_total": total,
		"total_text":  utils.FormatVND(total),
	})
}

func (tc *TableController) GetTableStats(c *gin.Context) {
	stats, err := tc.Tables.Stats(c.Request.Context())
	if err != nil {
		utils.RespondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table stats", stats)
}
