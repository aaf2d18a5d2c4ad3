package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/telemetry"
)

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// lookupErr maps gorm's not-found error to a domain NotFound.
func lookupErr(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s %d not found", entity, id).WithMetadata("id", fmt.Sprint(id))
	}
	return apperror.Internal("load "+entity, err)
}

// updateVersioned applies fields to the row only if its version still
// matches, bumping the version. A stale version yields ConcurrencyConflict.
func updateVersioned(tx *gorm.DB, model interface{}, entity string, id, version uint, fields map[string]interface{}) error {
	fields["version"] = version + 1
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(fields)
	if res.Error != nil {
		return apperror.Internal("update "+entity, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ConcurrencyConflict(entity, id)
	}
	return nil
}

// setTableStatus writes a status change against the loaded table's version.
func setTableStatus(tx *gorm.DB, table *models.Table, status string) error {
	if table.Status == status {
		return nil
	}
	if err := updateVersioned(tx, &models.Table{}, "table", table.ID, table.Version, map[string]interface{}{
		"status": status,
	}); err != nil {
		return err
	}
	table.Status = status
	table.Version++
	return nil
}

// openOrderCount counts PENDING orders on a table, ignoring excludeID.
func openOrderCount(tx *gorm.DB, tableID, excludeID uint) (int64, error) {
	var n int64
	q := tx.Model(&models.Order{}).Where("table_id = ? AND status = ?", tableID, models.OrderPending)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, apperror.Internal("count open orders", err)
	}
	return n, nil
}

// releaseTableIfIdle flips an occupied table back to available once it has
// no open order left. It returns the table when its status changed.
func releaseTableIfIdle(tx *gorm.DB, tableID, excludeOrderID uint) (*models.Table, error) {
	n, err := openOrderCount(tx, tableID, excludeOrderID)
	if err != nil || n > 0 {
		return nil, err
	}
	var table models.Table
	if err := tx.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal("load table", err)
	}
	if table.Status != models.TableOccupied {
		return nil, nil
	}
	if err := setTableStatus(tx, &table, models.TableAvailable); err != nil {
		return nil, err
	}
	return &table, nil
}
