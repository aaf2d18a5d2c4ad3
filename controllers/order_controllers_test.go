package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/policy"
)

func createOrderBody(tableID, menuID uint, qty int) map[string]interface{} {
	return map[string]interface{}{
		"tableId":    tableID,
		"orderItems": []map[string]interface{}{{"menuId": menuID, "quantity": qty}},
	}
}

func TestCreateAndCompleteOrderOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	t1 := e.seedTable(t, "T1")
	pho := e.seedMenu(t, "Pho", 45000)

	w, resp := e.do(t, http.MethodPost, "/pos/orders", createOrderBody(t1.ID, pho.ID, 2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, resp.Status)
	var order models.Order
	decode(t, resp, &order)
	assert.Equal(t, int64(90000), order.Subtotal)
	assert.Equal(t, models.TableOccupied, e.tableStatus(t, t1.ID))

	w, resp = e.do(t, http.MethodPatch, urlf("/pos/orders/%d/status", order.ID), map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, resp, &order)
	assert.Equal(t, models.OrderCompleted, order.Status)
	assert.Equal(t, models.TableAvailable, e.tableStatus(t, t1.ID))

	w, _ = e.do(t, http.MethodPatch, urlf("/pos/orders/%d/status", order.ID), map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateOrderConflictOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	t1 := e.seedTable(t, "T1")
	pho := e.seedMenu(t, "Pho", 45000)

	w, resp := e.do(t, http.MethodPost, "/pos/orders", createOrderBody(t1.ID, pho.ID, 1))
	require.Equal(t, http.StatusCreated, w.Code)
	var first models.Order
	decode(t, resp, &first)

	w, resp = e.do(t, http.MethodPost, "/pos/orders", createOrderBody(t1.ID, pho.ID, 1))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", resp.Code)
	assert.False(t, resp.Status)
	assert.Equal(t, map[string]string{"order_id": fmt.Sprint(first.ID)}, resp.Metadata,
		"the client needs the open order id to append")

	body := createOrderBody(t1.ID, pho.ID, 1)
	body["orderId"] = first.ID
	w, resp = e.do(t, http.MethodPost, "/pos/orders", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var appended models.Order
	decode(t, resp, &appended)
	assert.Equal(t, first.ID, appended.ID)
	assert.Equal(t, int64(90000), appended.Total)
}

func TestCreateOrderValidationOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	t1 := e.seedTable(t, "T1")

	w, resp := e.do(t, http.MethodPost, "/pos/orders", map[string]interface{}{"tableId": t1.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION", resp.Code)

	w, _ = e.do(t, http.MethodPost, "/pos/orders", map[string]interface{}{"orderItems": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = e.do(t, http.MethodPost, "/pos/orders", createOrderBody(999, 1, 1))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestTransferOrderOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	t1 := e.seedTable(t, "T1")
	t2 := e.seedTable(t, "T2")
	pho := e.seedMenu(t, "Pho", 45000)

	_, resp := e.do(t, http.MethodPost, "/pos/orders", createOrderBody(t1.ID, pho.ID, 1))
	var o1 models.Order
	decode(t, resp, &o1)

	w, _ := e.do(t, http.MethodPatch, urlf("/pos/orders/%d", o1.ID), map[string]interface{}{"tableId": t2.ID, "version": o1.Version + 5})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = e.do(t, http.MethodPatch, urlf("/pos/orders/%d", o1.ID), map[string]interface{}{"tableId": t2.ID, "version": o1.Version})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, resp = e.do(t, http.MethodGet, urlf("/pos/orders/%d", o1.ID), nil)
	var reread models.Order
	decode(t, resp, &reread)
	assert.Equal(t, t2.ID, reread.TableID)
	assert.Equal(t, models.TableAvailable, e.tableStatus(t, t1.ID))
	assert.Equal(t, models.TableOccupied, e.tableStatus(t, t2.ID))
}

func TestAddItemsAndCurrentOrder(t *testing.T) {
	e := newTestEnv(t)
	t1 := e.seedTable(t, "T1")
	pho := e.seedMenu(t, "Pho", 45000)
	tea := e.seedMenu(t, "Tea", 10000)

	_, resp := e.do(t, http.MethodPost, "/pos/orders", createOrderBody(t1.ID, pho.ID, 1))
	var order models.Order
	decode(t, resp, &order)

	w, _ := e.do(t, http.MethodPost, urlf("/pos/orders/%d/items", order.ID), map[string]interface{}{
		"orderItems": []map[string]interface{}{{"menuId": tea.ID, "quantity": 2, "notes": "less ice"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = e.do(t, http.MethodGet, urlf("/pos/tables/%d/current-order", t1.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var current struct {
		Order      models.Order `json:"order"`
		TableTotal int64        `json:"table_total"`
	}
	decode(t, resp, &current)
	assert.Equal(t, order.ID, current.Order.ID)
	assert.Len(t, current.Order.OrderItems, 2)
	assert.Equal(t, int64(65000), current.TableTotal)
}

func TestListAndDeleteOrders(t *testing.T) {
	e := newTestEnv(t)
	t1 := e.seedTable(t, "T1")
	t2 := e.seedTable(t, "T2")
	pho := e.seedMenu(t, "Pho", 45000)
	e.do(t, http.MethodPost, "/pos/orders", createOrderBody(t1.ID, pho.ID, 1))
	_, resp := e.do(t, http.MethodPost, "/pos/orders", createOrderBody(t2.ID, pho.ID, 1))
	var second models.Order
	decode(t, resp, &second)

	_, resp = e.do(t, http.MethodGet, urlf("/pos/orders?tableId=%d", t2.ID), nil)
	var orders []models.Order
	decode(t, resp, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, second.ID, orders[0].ID)

	w, _ := e.do(t, http.MethodGet, "/pos/orders?tableId=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(t, http.MethodDelete, urlf("/pos/orders/%d", second.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TableAvailable, e.tableStatus(t, t2.ID))
}

func TestOrderRoutesFollowPolicy(t *testing.T) {
	e := newTestEnv(t)
	t1 := e.seedTable(t, "T1")
	pho := e.seedMenu(t, "Pho", 45000)

	e.role = policy.RoleChef
	w, resp := e.do(t, http.MethodPost, "/pos/orders", createOrderBody(t1.ID, pho.ID, 1))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Code)
	w, _ = e.do(t, http.MethodGet, "/pos/orders", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	e.role = policy.RoleWaiter
	w, resp = e.do(t, http.MethodPost, "/pos/orders", createOrderBody(t1.ID, pho.ID, 1))
	require.Equal(t, http.StatusCreated, w.Code)
	var order models.Order
	decode(t, resp, &order)
	w, _ = e.do(t, http.MethodPatch, urlf("/pos/orders/%d/status", order.ID), map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	e.role = policy.RoleCashier
	w, _ = e.do(t, http.MethodPatch, urlf("/pos/orders/%d/status", order.ID), map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusOK, w.Code)
}
