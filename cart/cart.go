// Package cart accumulates candidate order lines before they are committed
// as an order. A Cart holds no prices: totals are always read from the
// catalog it was built over, so price edits show up immediately.
package cart

// Item is the catalog view of a sellable menu item.
type Item struct {
	ID        uint
	Name      string
	Price     int64
	Available bool
}

// Catalog resolves menu items by id.
type Catalog interface {
	Lookup(menuID uint) (Item, bool)
}

// Line is one staged menu item and its quantity.
type Line struct {
	MenuID   uint   `json:"menu_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// Committed is a menu item already persisted on the open order the cart was
// loaded from. Subtotal carries the unit prices saved on the order lines.
type Committed struct {
	MenuID   uint
	Name     string
	Quantity int
	Subtotal int64
	Notes    string
}

// PricedLine is a Line resolved against the catalog. Committed quantities
// keep the price saved on the order; only the rest uses the live price.
type PricedLine struct {
	Line
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Subtotal  int64  `json:"subtotal"`
	Available bool   `json:"available"`
	Committed int    `json:"committed,omitempty"`
}

type Cart struct {
	catalog   Catalog
	lines     []Line
	committed map[uint]Committed
	// LoadedOrderID is set when the cart was seeded from an open order.
	LoadedOrderID uint
}

func New(catalog Catalog) *Cart {
	return &Cart{catalog: catalog}
}

func (c *Cart) indexOf(menuID uint) int {
	for i, l := range c.lines {
		if l.MenuID == menuID {
			return i
		}
	}
	return -1
}

// CommittedQuantity is the quantity of menuID already on the loaded order.
func (c *Cart) CommittedQuantity(menuID uint) int {
	return c.committed[menuID].Quantity
}

func (c *Cart) sellable(menuID uint) bool {
	item, ok := c.catalog.Lookup(menuID)
	return ok && item.Available
}

// AddLine increments the line for menuID, or appends it with quantity 1.
// It returns false and leaves the cart untouched when the item is unknown or
// unavailable.
func (c *Cart) AddLine(menuID uint) bool {
	if !c.sellable(menuID) {
		return false
	}
	if i := c.indexOf(menuID); i >= 0 {
		c.lines[i].Quantity++
		return true
	}
	c.lines = append(c.lines, Line{MenuID: menuID, Quantity: 1})
	return true
}

// SetQuantity sets the quantity of a line; qty <= 0 removes it. Raising a
// quantity is subject to the same availability rule as AddLine, and a line
// never drops below what the loaded order already committed.
func (c *Cart) SetQuantity(menuID uint, qty int) bool {
	if committed := c.CommittedQuantity(menuID); committed > 0 && qty < committed {
		return false
	}
	i := c.indexOf(menuID)
	if qty <= 0 {
		if i >= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return true
	}
	current := 0
	if i >= 0 {
		current = c.lines[i].Quantity
	}
	if qty > current && !c.sellable(menuID) {
		return false
	}
	if i >= 0 {
		c.lines[i].Quantity = qty
		return true
	}
	c.lines = append(c.lines, Line{MenuID: menuID, Quantity: qty})
	return true
}

// SetNotes attaches kitchen notes to an existing line. On a loaded cart they
// apply to the quantity added on top of the order.
func (c *Cart) SetNotes(menuID uint, notes string) bool {
	i := c.indexOf(menuID)
	if i < 0 {
		return false
	}
	c.lines[i].Notes = notes
	return true
}

// Clear drops every staged change. A loaded cart goes back to the order's
// committed lines, which cannot be removed.
func (c *Cart) Clear() {
	kept := c.lines[:0]
	for _, l := range c.lines {
		if cm, ok := c.committed[l.MenuID]; ok {
			kept = append(kept, Line{MenuID: l.MenuID, Quantity: cm.Quantity, Notes: cm.Notes})
		}
	}
	c.lines = kept
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Pending returns what the cart adds on top of the loaded order: each line's
// quantity minus its committed quantity. Lines with nothing new are skipped.
func (c *Cart) Pending() []Line {
	out := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		extra := l.Quantity - c.CommittedQuantity(l.MenuID)
		if extra > 0 {
			out = append(out, Line{MenuID: l.MenuID, Quantity: extra, Notes: l.Notes})
		}
	}
	return out
}

func (c *Cart) price(l Line) PricedLine {
	cm := c.committed[l.MenuID]
	pl := PricedLine{Line: l, Name: cm.Name, Committed: cm.Quantity, Subtotal: cm.Subtotal}
	if item, ok := c.catalog.Lookup(l.MenuID); ok {
		pl.Name = item.Name
		pl.Price = item.Price
		pl.Available = item.Available
		pl.Subtotal += item.Price * int64(l.Quantity-cm.Quantity)
	} else if cm.Quantity > 0 {
		pl.Price = cm.Subtotal / int64(cm.Quantity)
	}
	return pl
}

// Priced resolves every line. Uncommitted quantities of items that have
// disappeared from the catalog are priced at zero.
func (c *Cart) Priced() []PricedLine {
	out := make([]PricedLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, c.price(l))
	}
	return out
}

// Total is recomputed on every call: saved prices for committed quantities,
// live catalog prices for the rest.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += c.price(l).Subtotal
	}
	return total
}

// Load replaces the cart contents with the lines of an already persisted open
// order, bypassing the availability check: historical lines stay valid.
// Items appearing on several order lines are folded into one cart line.
func (c *Cart) Load(orderID uint, items []Committed) {
	c.lines = nil
	c.committed = make(map[uint]Committed, len(items))
	for _, it := range items {
		cm, seen := c.committed[it.MenuID]
		if !seen {
			cm = Committed{MenuID: it.MenuID, Name: it.Name, Notes: it.Notes}
			c.lines = append(c.lines, Line{MenuID: it.MenuID, Notes: it.Notes})
		}
		cm.Quantity += it.Quantity
		cm.Subtotal += it.Subtotal
		c.committed[it.MenuID] = cm
		c.lines[c.indexOf(it.MenuID)].Quantity = cm.Quantity
	}
	c.LoadedOrderID = orderID
}
