// Package events carries POS state changes to interested terminals and
// back-office consumers.
package events

import (
	"context"
	"time"
)

// Event names.
const (
	TableCreated     = "table_create"
	TableUpdated     = "table_update"
	TableDeleted     = "table_delete"
	TablesRenumbered = "tables_renumbered"
	OrderCreated     = "order_created"
	OrderUpdated     = "order_updated"
	OrderCompleted   = "order_completed"
	OrderTransferred = "order_transferred"
	OrderDeleted     = "order_deleted"
	MenuUpdated      = "menu_update"
	LoyaltyUpdated   = "loyalty_update"
)

type Event struct {
	Name       string      `json:"event"`
	Data       interface{} `json:"data"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func New(name string, data interface{}) Event {
	return Event{Name: name, Data: data, OccurredAt: time.Now().UTC()}
}

// Notifier receives events after the state change they describe has been
// committed. Delivery is best effort and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}

// Recorder keeps events in memory; tests assert on it.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Notify(_ context.Context, e Event) {
	r.Events = append(r.Events, e)
}

// Names lists recorded event names in order.
func (r *Recorder) Names() []string {
	names := make([]string, len(r.Events))
	for i, e := range r.Events {
		names[i] = e.Name
	}
	return names
}
