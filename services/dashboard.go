package services

import (
	"context"
	"time"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/models"
)

// DailySummary is the dashboard view of one UTC business day.
type DailySummary struct {
	Day             string     `json:"day"`
	OrdersCreated   int64      `json:"orders_created"`
	OrdersCompleted int64      `json:"orders_completed"`
	OpenOrders      int64      `json:"open_orders"`
	Revenue         int64      `json:"revenue"`
	Tables          TableStats `json:"tables"`
}

// Summary counts orders created and completed on day and the revenue of the
// completed ones. Open orders and table stats are current.
func (s *OrderService) Summary(ctx context.Context, tables *TableService, day time.Time) (DailySummary, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	db := s.DB.WithContext(ctx)
	sum := DailySummary{Day: start.Format("2006-01-02")}

	if err := db.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&sum.OrdersCreated).Error; err != nil {
		return sum, apperror.Internal("count orders", err)
	}
	if err := db.Model(&models.Order{}).
		Where("status = ?", models.OrderPending).
		Count(&sum.OpenOrders).Error; err != nil {
		return sum, apperror.Internal("count open orders", err)
	}
	row := db.Model(&models.Order{}).
		Where("status = ? AND paid_at >= ? AND paid_at < ?", models.OrderCompleted, start, end).
		Select("COUNT(*), COALESCE(SUM(total), 0)").Row()
	if err := row.Scan(&sum.OrdersCompleted, &sum.Revenue); err != nil {
		return sum, apperror.Internal("sum revenue", err)
	}

	stats, err := tables.Stats(ctx)
	if err != nil {
		return sum, err
	}
	sum.Tables = stats
	return sum, nil
}
