package kitchen

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order mirrors the wire format of the upstream order service. The ID is an
// opaque server-assigned identifier; UpdatedAt is the server's revision
// timestamp, used to reject stale feed events.
type Order struct {
	ID          string    `json:"_id"`
	OrderNumber string    `json:"orderId"`
	Table       string    `json:"selectedTable"`
	Items       []Item    `json:"items"`
	Status      string    `json:"orderStatus"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Item is one line of a kitchen order.
type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

// Clone returns a deep copy so callers can mutate items without aliasing
// store state.
func (o Order) Clone() Order {
	c := o
	c.Items = make([]Item, len(o.Items))
	copy(c.Items, o.Items)
	return c
}

// NormalizeItems drops lines whose quantity reached zero (or went negative).
// A zero-quantity line is never stored.
func NormalizeItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out
}

// OrderEvent is one message from the upstream order feed. Actions other than
// create/statusUpdate are ignored by the controller.
type OrderEvent struct {
	Action  string `json:"action"`
	Order   Order  `json:"order"`
	TableID string `json:"tableId"`
}
