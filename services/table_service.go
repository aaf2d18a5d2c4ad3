package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// TableService is the table registry: identity, capacity and occupancy.
type TableService struct {
	DB         *gorm.DB
	Notifier   events.Notifier
	NamePrefix string
}

func NewTableService(db *gorm.DB, notifier events.Notifier, namePrefix string) *TableService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	if namePrefix == "" {
		namePrefix = "Table"
	}
	return &TableService{DB: db, Notifier: notifier, NamePrefix: namePrefix}
}

type CreateTableInput struct {
	Name     string
	Capacity int
	Status   string
	Location *string
}

// UpdateTableInput carries a partial update; nil fields are left alone.
type UpdateTableInput struct {
	Name     *string
	Capacity *int
	Status   *string
	Location *string
	Version  *uint
}

type TableStats struct {
	Available int64 `json:"available"`
	Occupied  int64 `json:"occupied"`
	Reserved  int64 `json:"reserved"`
	Total     int64 `json:"total"`
}

func (s *TableService) ListTables(ctx context.Context, status string) (tables []models.Table, err error) {
	ctx, span := startSpan(ctx, "TableService.ListTables")
	defer func() { endSpan(span, err) }()

	q := s.DB.WithContext(ctx).Order("sort_order asc, id asc")
	if status != "" {
		if !models.ValidTableStatus(status) {
			return nil, apperror.Validation("unknown table status %q", status)
		}
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&tables).Error; err != nil {
		return nil, apperror.Internal("list tables", err)
	}
	return tables, nil
}

func (s *TableService) GetTable(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := s.DB.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, lookupErr(err, "table", id)
	}
	return &table, nil
}

// CreateTable -> menambahkan meja baru, status default "available"
func (s *TableService) CreateTable(ctx context.Context, in CreateTableInput) (table *models.Table, err error) {
	ctx, span := startSpan(ctx, "TableService.CreateTable")
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validation("table name is required")
	}
	if in.Capacity < 1 {
		return nil, apperror.Validation("capacity must be at least 1")
	}
	status := in.Status
	if status == "" {
		status = models.TableAvailable
	}
	if !models.ValidTableStatus(status) {
		return nil, apperror.Validation("unknown table status %q", status)
	}

	table = &models.Table{
		Name:     name,
		Capacity: in.Capacity,
		Status:   status,
		Location: in.Location,
		Version:  1,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSort int
		if err := tx.Model(&models.Table{}).Select("COALESCE(MAX(sort_order), 0)").Row().Scan(&maxSort); err != nil {
			return apperror.Internal("read sort order", err)
		}
		table.SortOrder = maxSort + 1
		if err := tx.Create(table).Error; err != nil {
			return apperror.Internal("create table", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"table_id": table.ID, "status": table.Status}).
		Infof("New table created: %s", table.Name)
	s.Notifier.Notify(ctx, events.New(events.TableCreated, table))
	return table, nil
}

// UpdateTable applies a partial update. A status change away from occupied
// is refused while the table still has an open order.
func (s *TableService) UpdateTable(ctx context.Context, id uint, in UpdateTableInput) (table *models.Table, err error) {
	ctx, span := startSpan(ctx, "TableService.UpdateTable")
	defer func() { endSpan(span, err) }()

	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.Validation("table name is required")
		}
		fields["name"] = name
	}
	if in.Capacity != nil {
		if *in.Capacity < 1 {
			return nil, apperror.Validation("capacity must be at least 1")
		}
		fields["capacity"] = *in.Capacity
	}
	if in.Location != nil {
		fields["location"] = *in.Location
	}
	if in.Status != nil {
		if !models.ValidTableStatus(*in.Status) {
			return nil, apperror.Validation("unknown table status %q", *in.Status)
		}
		fields["status"] = *in.Status
	}

	table = &models.Table{}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(table, id).Error; err != nil {
			return lookupErr(err, "table", id)
		}
		if in.Version != nil && *in.Version != table.Version {
			return apperror.ConcurrencyConflict("table", id)
		}
		if in.Status != nil && *in.Status != models.TableOccupied {
			n, err := openOrderCount(tx, id, 0)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperror.Conflict("table %s has an open order and must stay occupied", table.Name)
			}
		}
		if len(fields) == 0 {
			return nil
		}
		if err := updateVersioned(tx, &models.Table{}, "table", id, table.Version, fields); err != nil {
			return err
		}
		return tx.First(table, id).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithField("table_id", id).Infof("Table updated (status=%s)", table.Status)
	s.Notifier.Notify(ctx, events.New(events.TableUpdated, table))
	return table, nil
}

// SetStatus -> side effect only; keeps occupancy in sync outside an order
// transaction (e.g. seating a reservation).
func (s *TableService) SetStatus(ctx context.Context, id uint, status string) error {
	_, err := s.UpdateTable(ctx, id, UpdateTableInput{Status: &status})
	return err
}

// DeleteTable removes a table. Without force it is refused while any order
// references the table; with force every referencing order is deleted first.
// Both paths run in a single transaction.
func (s *TableService) DeleteTable(ctx context.Context, id uint, force bool) (err error) {
	ctx, span := startSpan(ctx, "TableService.DeleteTable")
	defer func() { endSpan(span, err) }()

	var removedOrders int64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, id).Error; err != nil {
			return lookupErr(err, "table", id)
		}

		var orderIDs []uint
		if err := tx.Model(&models.Order{}).Where("table_id = ?", id).Pluck("id", &orderIDs).Error; err != nil {
			return apperror.Internal("list table orders", err)
		}
		if len(orderIDs) > 0 && !force {
			return apperror.Conflict("table has active orders").WithMetadata("table_id", fmt.Sprint(id))
		}
		if len(orderIDs) > 0 {
			if err := deleteOrdersTx(tx, orderIDs); err != nil {
				return err
			}
			removedOrders = int64(len(orderIDs))
		}
		if err := tx.Delete(&models.Table{}, id).Error; err != nil {
			return apperror.Internal("delete table", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"table_id": id, "force": force, "orders_removed": removedOrders}).
		Info("Table deleted")
	s.Notifier.Notify(ctx, events.New(events.TableDeleted, map[string]interface{}{
		"table_id":       id,
		"orders_removed": removedOrders,
	}))
	return nil
}

// RenumberAll reassigns sort order 1..n and display names "<prefix> n" in
// the current sort order, atomically.
func (s *TableService) RenumberAll(ctx context.Context) (tables []models.Table, err error) {
	ctx, span := startSpan(ctx, "TableService.RenumberAll")
	defer func() { endSpan(span, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("sort_order asc, id asc").Find(&tables).Error; err != nil {
			return apperror.Internal("list tables", err)
		}
		for i := range tables {
			t := &tables[i]
			name := fmt.Sprintf("%s %d", s.NamePrefix, i+1)
			if err := updateVersioned(tx, &models.Table{}, "table", t.ID, t.Version, map[string]interface{}{
				"name":       name,
				"sort_order": i + 1,
			}); err != nil {
				return err
			}
			t.Name, t.SortOrder = name, i+1
			t.Version++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Infof("Renumbered %d tables", len(tables))
	s.Notifier.Notify(ctx, events.New(events.TablesRenumbered, tables))
	return tables, nil
}

// Stats menghitung jumlah meja per status
func (s *TableService) Stats(ctx context.Context) (TableStats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Table{}).
		Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return TableStats{}, apperror.Internal("table stats", err)
	}
	var stats TableStats
	for _, r := range rows {
		switch r.Status {
		case models.TableAvailable:
			stats.Available = r.Count
		case models.TableOccupied:
			stats.Occupied = r.Count
		case models.TableReserved:
			stats.Reserved = r.Count
		}
		stats.Total += r.Count
	}
	return stats, nil
}

// deleteOrdersTx removes orders and their items.
func deleteOrdersTx(tx *gorm.DB, orderIDs []uint) error {
	if len(orderIDs) == 0 {
		return nil
	}
	if err := tx.Where("order_id IN ?", orderIDs).Delete(&models.OrderItem{}).Error; err != nil {
		return apperror.Internal("delete order items", err)
	}
	if err := tx.Model(&models.PointTransaction{}).Where("order_id IN ?", orderIDs).
		Update("order_id", nil).Error; err != nil {
		return apperror.Internal("detach ledger entries", err)
	}
	if err := tx.Where("id IN ?", orderIDs).Delete(&models.Order{}).Error; err != nil {
		return apperror.Internal("delete orders", err)
	}
	return nil
}
