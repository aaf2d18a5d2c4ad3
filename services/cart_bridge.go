package services

import (
	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/models"
)

// LoadOrder seeds a cart with the lines of a persisted open order, at the
// prices saved on those lines.
func LoadOrder(c *cart.Cart, order *models.Order) {
	items := make([]cart.Committed, 0, len(order.OrderItems))
	for _, it := range order.OrderItems {
		var name string
		if it.Menu != nil {
			name = it.Menu.Name
		}
		items = append(items, cart.Committed{
			MenuID:   it.MenuID,
			Name:     name,
			Quantity: it.Quantity,
			Subtotal: it.Subtotal,
			Notes:    it.Notes,
		})
	}
	c.Load(order.ID, items)
}

// OrderLines converts what the cart adds on top of its loaded order (all of
// it for a fresh cart) into order line input.
func OrderLines(c *cart.Cart) []LineInput {
	staged := c.Pending()
	lines := make([]LineInput, len(staged))
	for i, l := range staged {
		lines[i] = LineInput{MenuID: l.MenuID, Quantity: l.Quantity, Notes: l.Notes}
	}
	return lines
}
