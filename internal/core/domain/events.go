package domain

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventMovementRecorded = "StockMovementRecorded"
)

const (
	TopicOrderCreated  = "pos.order.created"
	TopicStockMovement = "pos.stock.movement"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID string  `json:"order_id"`
	Number  string  `json:"number"`
	Total   float64 `json:"total"`
	Lines   int     `json:"lines"`
}

type MovementRecordedPayload struct {
	MovementID string       `json:"movement_id"`
	ProductID  string       `json:"product_id"`
	Type       MovementType `json:"type"`
	Qty        int          `json:"qty"`
	StockAfter int          `json:"stock_after"`
	Reason     string       `json:"reason,omitempty"`
}
