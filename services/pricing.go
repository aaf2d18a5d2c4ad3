package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/apperror"
	"github.com/yeremiapane/restaurant-pos/models"
)

// Pricing derives tax and total from an order's subtotal and discount.
type Pricing struct {
	TaxRate decimal.Decimal
}

func NewPricing(taxRate float64) Pricing {
	return Pricing{TaxRate: decimal.NewFromFloat(taxRate)}
}

// Totals returns tax and grand total. Tax is charged on the discounted amount
// and rounded half up to a whole currency unit.
func (p Pricing) Totals(subtotal, discount int64) (tax, total int64, err error) {
	if discount < 0 || discount > subtotal {
		return 0, 0, apperror.Validation("discount must be between 0 and the subtotal %d", subtotal)
	}
	taxable := decimal.NewFromInt(subtotal - discount)
	tax = taxable.Mul(p.TaxRate).Round(0).IntPart()
	return tax, subtotal - discount + tax, nil
}

// apply recomputes the order's money fields from its items.
func (p Pricing) apply(order *models.Order) error {
	var subtotal int64
	for _, it := range order.OrderItems {
		subtotal += it.Subtotal
	}
	tax, total, err := p.Totals(subtotal, order.Discount)
	if err != nil {
		return err
	}
	order.Subtotal, order.Tax, order.Total = subtotal, tax, total
	return nil
}

var errOrderNumberTaken = errors.New("order number taken")

// insertOrder creates the order with its items. A unique violation can only
// come from the order number, which a concurrent create claimed first.
func insertOrder(tx *gorm.DB, order *models.Order) error {
	err := tx.Create(order).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", errOrderNumberTaken, order.OrderNumber)
	default:
		return apperror.Internal("create order", err)
	}
}

// nextOrderNumber returns ORD-YYYYMMDD-NNN, NNN counting the day's orders.
func nextOrderNumber(tx *gorm.DB, now time.Time) (string, error) {
	day := now.UTC().Truncate(24 * time.Hour)
	var n int64
	if err := tx.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", day, day.Add(24*time.Hour)).
		Count(&n).Error; err != nil {
		return "", apperror.Internal("count orders", err)
	}
	for seq := n + 1; ; seq++ {
		number := fmt.Sprintf("ORD-%s-%03d", day.Format("20060102"), seq)
		var taken int64
		if err := tx.Model(&models.Order{}).Where("order_number = ?", number).Count(&taken).Error; err != nil {
			return "", apperror.Internal("check order number", err)
		}
		if taken == 0 {
			return number, nil
		}
	}
}
