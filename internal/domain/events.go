package domain

import "time"

// KitchenOrderItem is one line of a round sent to the kitchen. Name and
// UnitPrice are resolved by the order service at submit time.
type KitchenOrderItem struct {
	ItemID   int    `json:"item_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

// KitchenOrderMessage travels over orders_topic from the order service to the
// kitchen worker.
type KitchenOrderMessage struct {
	SourceID    string             `json:"source_id"`
	SourceLabel string             `json:"source_label"`
	Round       int                `json:"round"`
	Items       []KitchenOrderItem `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
}

const (
	EventKitchenReceived = "kitchen.received"
	EventKitchenReady    = "kitchen.ready"
	EventCartSubmitted   = "cart.submitted"
	EventOrderBilled     = "order.billed"
)

// StatusEvent is published on notifications_fanout whenever an order changes
// hands. Consumers include the order service (ready signal) and the websocket
// notifier. Round identifies the kitchen round for kitchen events so a
// redelivered ready signal is recognised.
type StatusEvent struct {
	EventType   string    `json:"event_type"`
	SourceID    string    `json:"source_id"`
	SourceLabel string    `json:"source_label"`
	OrderID     int64     `json:"order_id,omitempty"`
	Round       int       `json:"round,omitempty"`
	BillID      string    `json:"bill_id,omitempty"`
	ChangedBy   string    `json:"changed_by"`
	Timestamp   time.Time `json:"timestamp"`
}
