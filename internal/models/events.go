package models

import "time"

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderCancelled     = "ORDER_CANCELLED"
	EventTypeStockDeducted      = "ORDER_STOCK_DEDUCTED"
	EventTypeCartCleared        = "CART_CLEARED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	TotalPrice string          `json:"total_price"`
	Items      []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published on every observed status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
}

// OrderCancelledEvent published when the lifecycle coordinator cancels an order
type OrderCancelledEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// StockDeductedEvent published after stock was deducted for every line item
type StockDeductedEvent struct {
	BaseEvent
	OrderID string          `json:"order_id"`
	Items   []OrderItemData `json:"items"`
}

// CartClearedEvent published when a user's cart is emptied during fulfilment
type CartClearedEvent struct {
	BaseEvent
	CartID string `json:"cart_id"`
	UserID string `json:"user_id"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}
