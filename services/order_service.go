package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// OrderService drives the order lifecycle. A table has at most one open
// (PENDING) order; further rounds are appended to it until it is completed.
type OrderService struct {
	DB       *gorm.DB
	Notifier events.Notifier
	Loyalty  *LoyaltyService
	Pricing  Pricing
	Now      func() time.Time
	// OrderNumbers picks the next order number inside the create transaction.
	OrderNumbers func(tx *gorm.DB, now time.Time) (string, error)
}

// orderNumberAttempts bounds retries when a concurrent create wins the same
// order number.
const orderNumberAttempts = 3

func NewOrderService(db *gorm.DB, notifier events.Notifier, loyalty *LoyaltyService, pricing Pricing) *OrderService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &OrderService{DB: db, Notifier: notifier, Loyalty: loyalty, Pricing: pricing, Now: time.Now,
		OrderNumbers: nextOrderNumber}
}

type LineInput struct {
	MenuID   uint
	Quantity int
	Notes    string
}

type CreateOrderInput struct {
	TableID    uint
	Lines      []LineInput
	CustomerID *uint
	Notes      string
	Discount   int64
	// OpenOrderID names the table's open order the caller is serving.
	// When set, the lines are appended to it.
	OpenOrderID *uint
}

type OrderFilter struct {
	TableID *uint
	Status  string
}

func (s *OrderService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// priceLines resolves lines against the menu at commit time.
func priceLines(tx *gorm.DB, lines []LineInput) ([]models.OrderItem, error) {
	if len(lines) == 0 {
		return nil, apperror.Validation("order needs at least one line")
	}
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperror.Validation("quantity for menu item %d must be positive", l.MenuID)
		}
		ids = append(ids, l.MenuID)
	}
	var menus []models.Menu
	if err := tx.Where("id IN ?", ids).Find(&menus).Error; err != nil {
		return nil, apperror.Internal("load menu items", err)
	}
	byID := make(map[uint]models.Menu, len(menus))
	for _, m := range menus {
		byID[m.ID] = m
	}

	var items []models.OrderItem
	for _, l := range lines {
		m, ok := byID[l.MenuID]
		if !ok {
			return nil, apperror.Validation("menu item %d does not exist", l.MenuID)
		}
		if !m.Sellable() {
			return nil, apperror.Validation("menu item %s is not available", m.Name)
		}
		items, _ = mergeItem(items, models.OrderItem{
			MenuID:   m.ID,
			Quantity: l.Quantity,
			Price:    m.Price,
			Subtotal: m.Price * int64(l.Quantity),
			Notes:    strings.TrimSpace(l.Notes),
		})
	}
	return items, nil
}

// mergeItem folds it into items when a line with the same menu item, notes
// and unit price exists. It returns the index that received the quantity.
func mergeItem(items []models.OrderItem, it models.OrderItem) ([]models.OrderItem, int) {
	for i := range items {
		if items[i].MenuID == it.MenuID && items[i].Notes == it.Notes && items[i].Price == it.Price {
			items[i].Quantity += it.Quantity
			items[i].Subtotal = items[i].Price * int64(items[i].Quantity)
			return items, i
		}
	}
	return append(items, it), len(items)
}

// openOrderTx returns the most recently created PENDING order of a table.
func openOrderTx(tx *gorm.DB, tableID uint) (*models.Order, error) {
	var orders []models.Order
	if err := tx.Where("table_id = ? AND status = ?", tableID, models.OrderPending).
		Order("created_at desc, id desc").Limit(1).Find(&orders).Error; err != nil {
		return nil, apperror.Internal("load open order", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// appendLinesTx adds priced lines to an open order and recomputes its totals.
func (s *OrderService) appendLinesTx(tx *gorm.DB, order *models.Order, lines []LineInput) error {
	if !order.IsOpen() {
		return apperror.Conflict("order %s is already %s", order.OrderNumber, order.Status)
	}
	added, err := priceLines(tx, lines)
	if err != nil {
		return err
	}
	if err := tx.Where("order_id = ?", order.ID).Order("id asc").Find(&order.OrderItems).Error; err != nil {
		return apperror.Internal("load order items", err)
	}

	dirty := map[int]bool{}
	for _, it := range added {
		var idx int
		order.OrderItems, idx = mergeItem(order.OrderItems, it)
		dirty[idx] = true
	}
	for idx := range order.OrderItems {
		if !dirty[idx] {
			continue
		}
		it := &order.OrderItems[idx]
		if it.ID == 0 {
			it.OrderID = order.ID
			if err := tx.Create(it).Error; err != nil {
				return apperror.Internal("create order item", err)
			}
			continue
		}
		if err := tx.Model(it).Updates(map[string]interface{}{
			"quantity": it.Quantity,
			"subtotal": it.Subtotal,
		}).Error; err != nil {
			return apperror.Internal("update order item", err)
		}
	}

	if err := s.Pricing.apply(order); err != nil {
		return err
	}
	if err := updateVersioned(tx, &models.Order{}, "order", order.ID, order.Version, map[string]interface{}{
		"customer_id": order.CustomerID,
		"discount":    order.Discount,
		"subtotal":    order.Subtotal,
		"tax":         order.Tax,
		"total":       order.Total,
	}); err != nil {
		return err
	}
	order.Version++
	return nil
}

// attachTabDetails applies the customer and discount sent with a new round
// to the open order. A tab keeps the customer it was first attached to; a
// non-zero discount replaces the previous one.
func attachTabDetails(tx *gorm.DB, order *models.Order, customerID *uint, discount int64) error {
	if customerID != nil {
		if err := tx.First(&models.Customer{}, *customerID).Error; err != nil {
			return lookupErr(err, "customer", *customerID)
		}
		if order.CustomerID != nil && *order.CustomerID != *customerID {
			return apperror.Conflict("order %s already belongs to customer %d", order.OrderNumber, *order.CustomerID).
				WithMetadata("customer_id", fmt.Sprint(*order.CustomerID))
		}
		id := *customerID
		order.CustomerID = &id
	}
	if discount != 0 {
		order.Discount = discount
	}
	return nil
}

// CreateOrder opens a tab on an available table, or appends to the table's
// open order when the caller names it.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.CreateOrder")
	defer func() { endSpan(span, err) }()

	if len(in.Lines) == 0 {
		return nil, apperror.Validation("order needs at least one line")
	}
	var seated *models.Table
	appended := false
	for attempt := 1; ; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var table models.Table
			if err := tx.First(&table, in.TableID).Error; err != nil {
				return lookupErr(err, "table", in.TableID)
			}
			open, err := openOrderTx(tx, table.ID)
			if err != nil {
				return err
			}
			if open != nil {
				if in.OpenOrderID == nil || *in.OpenOrderID != open.ID {
					return apperror.Conflict("table %s already has open order %s", table.Name, open.OrderNumber).
						WithMetadata("order_id", fmt.Sprint(open.ID))
				}
				if err := attachTabDetails(tx, open, in.CustomerID, in.Discount); err != nil {
					return err
				}
				if err := s.appendLinesTx(tx, open, in.Lines); err != nil {
					return err
				}
				order, appended = open, true
				return nil
			}
			if in.OpenOrderID != nil {
				return apperror.Conflict("order %d is not open on table %s", *in.OpenOrderID, table.Name)
			}
			if table.Status != models.TableAvailable {
				return apperror.Conflict("table %s is %s", table.Name, table.Status)
			}
			if in.CustomerID != nil {
				if err := tx.First(&models.Customer{}, *in.CustomerID).Error; err != nil {
					return lookupErr(err, "customer", *in.CustomerID)
				}
			}

			items, err := priceLines(tx, in.Lines)
			if err != nil {
				return err
			}
			now := s.now()
			number, err := s.OrderNumbers(tx, now)
			if err != nil {
				return err
			}
			order = &models.Order{
				OrderNumber: number,
				TableID:     table.ID,
				CustomerID:  in.CustomerID,
				Status:      models.OrderPending,
				Discount:    in.Discount,
				Notes:       strings.TrimSpace(in.Notes),
				Version:     1,
				OrderItems:  items,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.Pricing.apply(order); err != nil {
				return err
			}
			if err := insertOrder(tx, order); err != nil {
				return err
			}
			if err := setTableStatus(tx, &table, models.TableOccupied); err != nil {
				return err
			}
			seated = &table
			return nil
		})
		if !errors.Is(err, errOrderNumberTaken) {
			break
		}
		if attempt == orderNumberAttempts {
			err = apperror.New(apperror.CodeConcurrencyConflict,
				"order number was taken by a concurrent order, retry")
			break
		}
		utils.InfoLogger.WithField("attempt", attempt).Warn("Order number collision, retrying")
	}
	if err != nil {
		return nil, err
	}

	order, err = s.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"table_id": order.TableID,
		"appended": appended,
		"total":    utils.FormatVND(order.Total),
	}).Info("Order submitted")
	if appended {
		s.Notifier.Notify(ctx, events.New(events.OrderUpdated, order))
		return order, nil
	}
	s.Notifier.Notify(ctx, events.New(events.OrderCreated, order))
	if seated != nil {
		s.Notifier.Notify(ctx, events.New(events.TableUpdated, seated))
	}
	return order, nil
}

// AmendOrder appends lines to the table's open order.
func (s *OrderService) AmendOrder(ctx context.Context, tableID uint, lines []LineInput) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.AmendOrder")
	defer func() { endSpan(span, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Table{}, tableID).Error; err != nil {
			return lookupErr(err, "table", tableID)
		}
		open, err := openOrderTx(tx, tableID)
		if err != nil {
			return err
		}
		if open == nil {
			return apperror.NotFound("table %d has no open order", tableID)
		}
		order = open
		return s.appendLinesTx(tx, open, lines)
	})
	if err != nil {
		return nil, err
	}
	return s.afterAppend(ctx, order.ID)
}

// AddItems appends lines to an order by id. A non-nil version must match.
func (s *OrderService) AddItems(ctx context.Context, orderID uint, lines []LineInput, version *uint) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.AddItems")
	defer func() { endSpan(span, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, orderID).Error; err != nil {
			return lookupErr(err, "order", orderID)
		}
		if version != nil && *version != o.Version {
			return apperror.ConcurrencyConflict("order", orderID)
		}
		return s.appendLinesTx(tx, &o, lines)
	})
	if err != nil {
		return nil, err
	}
	return s.afterAppend(ctx, orderID)
}

func (s *OrderService) afterAppend(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{"order_id": order.ID, "table_id": order.TableID}).
		Info("Order amended")
	s.Notifier.Notify(ctx, events.New(events.OrderUpdated, order))
	return order, nil
}

// CompleteOrder closes an open order, frees its table and awards loyalty
// points in one transaction. Completing a completed order is a no-op.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID uint) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.CompleteOrder")
	defer func() { endSpan(span, err) }()

	var released *models.Table
	var customer *models.Customer
	already := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, orderID).Error; err != nil {
			return lookupErr(err, "order", orderID)
		}
		if !o.IsOpen() {
			already = true
			return nil
		}
		paidAt := s.now()
		if err := updateVersioned(tx, &models.Order{}, "order", o.ID, o.Version, map[string]interface{}{
			"status":  models.OrderCompleted,
			"paid_at": paidAt,
		}); err != nil {
			return err
		}
		o.Status, o.PaidAt = models.OrderCompleted, &paidAt
		o.Version++

		t, err := releaseTableIfIdle(tx, o.TableID, 0)
		if err != nil {
			return err
		}
		released = t
		if s.Loyalty != nil {
			c, err := s.Loyalty.awardOrderTx(tx, &o)
			if err != nil {
				return err
			}
			customer = c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err = s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if already {
		return order, nil
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"table_id": order.TableID,
		"total":    utils.FormatVND(order.Total),
	}).Info("Order completed")
	s.Notifier.Notify(ctx, events.New(events.OrderCompleted, order))
	if released != nil {
		s.Notifier.Notify(ctx, events.New(events.TableUpdated, released))
	}
	if customer != nil {
		s.Notifier.Notify(ctx, events.New(events.LoyaltyUpdated, customer))
	}
	return order, nil
}

// TransferTable moves an open order to an available table. The old table is
// released and the new one occupied atomically.
func (s *OrderService) TransferTable(ctx context.Context, orderID, newTableID uint, version *uint) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.TransferTable")
	defer func() { endSpan(span, err) }()

	var oldTableID uint
	var released, target *models.Table
	moved := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, orderID).Error; err != nil {
			return lookupErr(err, "order", orderID)
		}
		if version != nil && *version != o.Version {
			return apperror.ConcurrencyConflict("order", orderID)
		}
		if !o.IsOpen() {
			return apperror.Conflict("order %s is %s and cannot be transferred", o.OrderNumber, o.Status)
		}
		if o.TableID == newTableID {
			return nil
		}
		var t models.Table
		if err := tx.First(&t, newTableID).Error; err != nil {
			return lookupErr(err, "table", newTableID)
		}
		if t.Status != models.TableAvailable {
			return apperror.Conflict("table %s is %s", t.Name, t.Status)
		}
		n, err := openOrderCount(tx, t.ID, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.Conflict("table %s already has an open order", t.Name)
		}

		oldTableID = o.TableID
		if err := updateVersioned(tx, &models.Order{}, "order", o.ID, o.Version, map[string]interface{}{
			"table_id": t.ID,
		}); err != nil {
			return err
		}
		if released, err = releaseTableIfIdle(tx, oldTableID, 0); err != nil {
			return err
		}
		if err := setTableStatus(tx, &t, models.TableOccupied); err != nil {
			return err
		}
		target, moved = &t, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err = s.GetOrder(ctx, orderID)
	if err != nil || !moved {
		return order, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID,
		"from":     oldTableID,
		"to":       newTableID,
	}).Info("Order transferred")
	s.Notifier.Notify(ctx, events.New(events.OrderTransferred, map[string]interface{}{
		"order":         order,
		"from_table_id": oldTableID,
		"to_table_id":   newTableID,
	}))
	if released != nil {
		s.Notifier.Notify(ctx, events.New(events.TableUpdated, released))
	}
	s.Notifier.Notify(ctx, events.New(events.TableUpdated, target))
	return order, nil
}

// SetStatus applies a status change requested by a client. COMPLETED is the
// only transition; PENDING is accepted for orders that are still open.
func (s *OrderService) SetStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case models.OrderCompleted:
		return s.CompleteOrder(ctx, orderID)
	case models.OrderPending:
		order, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !order.IsOpen() {
			return nil, apperror.Conflict("order %s is completed", order.OrderNumber)
		}
		return order, nil
	default:
		return nil, apperror.Validation("unknown order status %q", status)
	}
}

// DeleteOrder removes an order and its lines, releasing the table when it
// has no other open order.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uint) (err error) {
	ctx, span := startSpan(ctx, "OrderService.DeleteOrder")
	defer func() { endSpan(span, err) }()

	var released *models.Table
	var order models.Order
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return lookupErr(err, "order", orderID)
		}
		if err := deleteOrdersTx(tx, []uint{order.ID}); err != nil {
			return err
		}
		if !order.IsOpen() {
			return nil
		}
		t, err := releaseTableIfIdle(tx, order.TableID, 0)
		released = t
		return err
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"order_id": orderID, "table_id": order.TableID}).
		Info("Order deleted")
	s.Notifier.Notify(ctx, events.New(events.OrderDeleted, map[string]interface{}{
		"id":       orderID,
		"table_id": order.TableID,
	}))
	if released != nil {
		s.Notifier.Notify(ctx, events.New(events.TableUpdated, released))
	}
	return nil
}

func withOrderAssociations(db *gorm.DB) *gorm.DB {
	return db.Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id asc")
	}).Preload("OrderItems.Menu").Preload("Table").Preload("Customer")
}

// ListOrders returns orders newest first.
func (s *OrderService) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := withOrderAssociations(s.DB.WithContext(ctx)).Order("created_at desc, id desc")
	if f.TableID != nil {
		q = q.Where("table_id = ?", *f.TableID)
	}
	if f.Status != "" {
		status := strings.ToUpper(f.Status)
		if status != models.OrderPending && status != models.OrderCompleted {
			return nil, apperror.Validation("unknown order status %q", f.Status)
		}
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, apperror.Internal("list orders", err)
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := withOrderAssociations(s.DB.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, lookupErr(err, "order", id)
	}
	return &order, nil
}

// CurrentOrder is the table's most recently created open order.
func (s *OrderService) CurrentOrder(ctx context.Context, tableID uint) (*models.Order, error) {
	db := s.DB.WithContext(ctx)
	if err := db.First(&models.Table{}, tableID).Error; err != nil {
		return nil, lookupErr(err, "table", tableID)
	}
	open, err := openOrderTx(db, tableID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, apperror.NotFound("table %d has no open order", tableID)
	}
	return s.GetOrder(ctx, open.ID)
}

// TableTotal sums the totals of every non-completed order on a table.
func (s *OrderService) TableTotal(ctx context.Context, tableID uint) (int64, error) {
	var total int64
	err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("table_id = ? AND status <> ?", tableID, models.OrderCompleted).
		Select("COALESCE(SUM(total), 0)").Row().Scan(&total)
	if err != nil {
		return 0, apperror.Internal("sum table total", err)
	}
	return total, nil
}
