// Package policy is the single source of truth for what each staff role may
// do. Handlers consult it through middlewares.RequireCapability and clients
// read the resolved capability list from GET /pos/capabilities.
package policy

import "sort"

type Capability string

const (
	TablesRead     Capability = "tables:read"
	TablesWrite    Capability = "tables:write"
	TablesDelete   Capability = "tables:delete"
	MenuRead       Capability = "menu:read"
	MenuWrite      Capability = "menu:write"
	OrdersRead     Capability = "orders:read"
	OrdersWrite    Capability = "orders:write"
	OrdersComplete Capability = "orders:complete"
	OrdersTransfer Capability = "orders:transfer"
	OrdersDelete   Capability = "orders:delete"
	CustomersRead  Capability = "customers:read"
	CustomersWrite Capability = "customers:write"
	LoyaltyAdjust  Capability = "loyalty:adjust"
	UsersWrite     Capability = "users:write"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleWaiter  = "waiter"
	RoleChef    = "chef"
)

var all = []Capability{
	TablesRead, TablesWrite, TablesDelete,
	MenuRead, MenuWrite,
	OrdersRead, OrdersWrite, OrdersComplete, OrdersTransfer, OrdersDelete,
	CustomersRead, CustomersWrite, LoyaltyAdjust,
	UsersWrite,
}

// Engine resolves role -> capability grants.
type Engine struct {
	grants map[string]map[Capability]bool
}

func grantSet(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Default returns the built-in role table.
func Default() *Engine {
	return &Engine{grants: map[string]map[Capability]bool{
		RoleAdmin:   grantSet(all...),
		RoleManager: grantSet(all...),
		RoleCashier: grantSet(
			TablesRead, TablesWrite, MenuRead,
			OrdersRead, OrdersWrite, OrdersComplete, OrdersTransfer,
			CustomersRead, CustomersWrite, LoyaltyAdjust,
		),
		RoleWaiter: grantSet(
			TablesRead, MenuRead,
			OrdersRead, OrdersWrite, OrdersTransfer,
			CustomersRead,
		),
		RoleChef: grantSet(MenuRead, OrdersRead),
	}}
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func (e *Engine) Can(role string, c Capability) bool {
	return e.grants[role][c]
}

// Capabilities lists the role's grants in a stable order.
func (e *Engine) Capabilities(role string) []Capability {
	out := make([]Capability, 0, len(e.grants[role]))
	for c := range e.grants[role] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// KnownRole reports whether role appears in the table.
func (e *Engine) KnownRole(role string) bool {
	_, ok := e.grants[role]
	return ok
}
