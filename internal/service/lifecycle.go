package service

import (
	"context"
	"errors"
	"time"

	"github.com/shoileazeez/shopsmart-AI/internal/models"
	"github.com/shoileazeez/shopsmart-AI/internal/store"
	"github.com/shoileazeez/shopsmart-AI/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transition is an explicit status-change record. Previous is the status
// read in the same transaction that persisted Current, never in-memory
// state stashed on the order.
type Transition struct {
	OrderID  string
	UserID   string
	Previous string
	Current  string
	Created  bool
}

// Collaborator ports of the coordinator. *store.Store, *StockLedger and
// *broker.EventPublisher satisfy them in production wiring.

type lifecycleOrderStore interface {
	UpdateOrderStatus(ctx context.Context, orderID, status string) (string, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error)
	AppendStatusHistory(ctx context.Context, orderID, status string) (*models.StatusHistory, error)
}

type lifecycleCartStore interface {
	GetCartByUserID(ctx context.Context, userID string) (*models.Cart, error)
	ClearCartItems(ctx context.Context, cartID string) error
}

type stockDeducter interface {
	DeductForOrder(ctx context.Context, items []models.OrderItem) DeductOutcome
}

type lifecyclePublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishStockDeducted(ctx context.Context, event *models.StockDeductedEvent) error
	PublishCartCleared(ctx context.Context, event *models.CartClearedEvent) error
}

type lifecycleAction int

const (
	actionProceed lifecycleAction = iota
	actionCancelOrder
	actionLogOnly
)

// deductPolicy maps each deduction outcome to the coordinator's reaction.
// Storage errors leave the order in place for an operator retry rather than
// cancelling on what may be a transient fault.
var deductPolicy = map[DeductOutcome]lifecycleAction{
	DeductOK:                actionProceed,
	DeductInsufficientStock: actionCancelOrder,
	DeductProductNotFound:   actionCancelOrder,
	DeductStorageError:      actionLogOnly,
}

// LifecycleCoordinator reacts to committed order status changes. Dispatch is
// invoked strictly after the triggering write has committed, so readers never
// observe history or stock effects for a rolled-back mutation. Nothing in
// here propagates an error back to the caller of the triggering operation.
type LifecycleCoordinator struct {
	orders    lifecycleOrderStore
	carts     lifecycleCartStore
	ledger    stockDeducter
	publisher lifecyclePublisher
	logger    *zap.Logger
}

// NewLifecycleCoordinator creates a new lifecycle coordinator
func NewLifecycleCoordinator(
	orders lifecycleOrderStore,
	carts lifecycleCartStore,
	ledger stockDeducter,
	publisher lifecyclePublisher,
) *LifecycleCoordinator {
	return &LifecycleCoordinator{
		orders:    orders,
		carts:     carts,
		ledger:    ledger,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Dispatch runs the post-commit lifecycle actions for one transition:
// history append, stock deduction on entering processing (cancelling the
// order when deduction is rejected), and cart clearing on processing or
// shipped. A repeated identical status is a no-op unless it is a creation,
// so retried duplicate transitions never deduct stock twice.
func (c *LifecycleCoordinator) Dispatch(ctx context.Context, tr Transition) {
	ctx, span := util.StartSpan(ctx, "LifecycleCoordinator.Dispatch")
	defer span.End()

	if !tr.Created && tr.Previous == tr.Current {
		return
	}

	if _, err := c.orders.AppendStatusHistory(ctx, tr.OrderID, tr.Current); err != nil {
		util.LifecycleFailuresTotal.WithLabelValues("history").Inc()
		c.logger.Error("Failed to append status history",
			zap.String("order_id", tr.OrderID),
			zap.String("status", tr.Current),
			zap.Error(err))
	} else {
		util.StatusHistoryEntriesTotal.Inc()
	}

	util.OrderTransitionsTotal.WithLabelValues(tr.Current).Inc()
	if tr.Created {
		c.publishOrderCreated(ctx, tr)
	} else {
		c.publishStatusChanged(ctx, tr)
	}

	if tr.Current == models.OrderStatusProcessing {
		if !c.deductStock(ctx, tr) {
			return
		}
	}

	if tr.Current == models.OrderStatusProcessing || tr.Current == models.OrderStatusShipped {
		c.clearCart(ctx, tr)
	}
}

// deductStock runs the all-or-nothing deduction for the order's items and
// applies the outcome policy. Returns false when processing of this event
// must stop (cancellation or a deferred storage fault).
func (c *LifecycleCoordinator) deductStock(ctx context.Context, tr Transition) bool {
	items, err := c.orders.GetOrderItemsByOrderID(ctx, tr.OrderID)
	if err != nil {
		util.LifecycleFailuresTotal.WithLabelValues("stock").Inc()
		c.logger.Error("Failed to load order items for deduction",
			zap.String("order_id", tr.OrderID), zap.Error(err))
		return false
	}

	outcome := c.ledger.DeductForOrder(ctx, items)
	switch deductPolicy[outcome] {
	case actionProceed:
		c.publishStockDeducted(ctx, tr, items)
		return true

	case actionCancelOrder:
		c.logger.Warn("Cancelling order after rejected stock deduction",
			zap.String("order_id", tr.OrderID),
			zap.String("reason", outcome.Reason()))
		c.forceCancel(ctx, tr, outcome.Reason())
		return false

	default:
		util.LifecycleFailuresTotal.WithLabelValues("stock").Inc()
		c.logger.Error("Stock deduction deferred on storage failure",
			zap.String("order_id", tr.OrderID))
		return false
	}
}

// forceCancel moves the order to cancelled and dispatches the resulting
// transition. The cancelled branch never re-enters deduction, so this
// recursion terminates after one step.
func (c *LifecycleCoordinator) forceCancel(ctx context.Context, tr Transition, reason string) {
	previous, err := c.orders.UpdateOrderStatus(ctx, tr.OrderID, models.OrderStatusCancelled)
	if err != nil {
		util.LifecycleFailuresTotal.WithLabelValues("cancel").Inc()
		c.logger.Error("Failed to cancel order",
			zap.String("order_id", tr.OrderID), zap.Error(err))
		return
	}

	util.OrdersAutoCancelledTotal.WithLabelValues(reason).Inc()

	if c.publisher != nil {
		event := &models.OrderCancelledEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderCancelled),
			OrderID:   tr.OrderID,
			Reason:    reason,
		}
		if err := c.publisher.PublishOrderCancelled(ctx, event); err != nil {
			c.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
		}
	}

	c.Dispatch(ctx, Transition{
		OrderID:  tr.OrderID,
		UserID:   tr.UserID,
		Previous: previous,
		Current:  models.OrderStatusCancelled,
	})
}

// clearCart empties the purchasing user's cart, keeping the cart row
func (c *LifecycleCoordinator) clearCart(ctx context.Context, tr Transition) {
	cart, err := c.carts.GetCartByUserID(ctx, tr.UserID)
	if errors.Is(err, store.ErrCartNotFound) {
		return
	}
	if err != nil {
		util.LifecycleFailuresTotal.WithLabelValues("cart").Inc()
		c.logger.Error("Failed to look up cart for clearing",
			zap.String("user_id", tr.UserID), zap.Error(err))
		return
	}

	if err := c.carts.ClearCartItems(ctx, cart.ID); err != nil {
		util.LifecycleFailuresTotal.WithLabelValues("cart").Inc()
		c.logger.Error("Failed to clear cart",
			zap.String("cart_id", cart.ID), zap.Error(err))
		return
	}

	util.CartsClearedTotal.Inc()

	if c.publisher != nil {
		event := &models.CartClearedEvent{
			BaseEvent: newBaseEvent(models.EventTypeCartCleared),
			CartID:    cart.ID,
			UserID:    tr.UserID,
		}
		if err := c.publisher.PublishCartCleared(ctx, event); err != nil {
			c.logger.Error("Failed to publish CartCleared event", zap.Error(err))
		}
	}
}

func (c *LifecycleCoordinator) publishOrderCreated(ctx context.Context, tr Transition) {
	if c.publisher == nil {
		return
	}
	items, err := c.orders.GetOrderItemsByOrderID(ctx, tr.OrderID)
	if err != nil {
		c.logger.Error("Failed to load items for OrderCreated event",
			zap.String("order_id", tr.OrderID), zap.Error(err))
		return
	}
	event := &models.OrderCreatedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderCreated),
		OrderID:    tr.OrderID,
		UserID:     tr.UserID,
		TotalPrice: models.OrderTotal(items).StringFixed(2),
		Items:      toItemData(items),
	}
	if err := c.publisher.PublishOrderCreated(ctx, event); err != nil {
		c.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}
}

func (c *LifecycleCoordinator) publishStatusChanged(ctx context.Context, tr Transition) {
	if c.publisher == nil {
		return
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:        tr.OrderID,
		UserID:         tr.UserID,
		PreviousStatus: tr.Previous,
		Status:         tr.Current,
	}
	if err := c.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		c.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}
}

func (c *LifecycleCoordinator) publishStockDeducted(ctx context.Context, tr Transition, items []models.OrderItem) {
	if c.publisher == nil {
		return
	}
	event := &models.StockDeductedEvent{
		BaseEvent: newBaseEvent(models.EventTypeStockDeducted),
		OrderID:   tr.OrderID,
		Items:     toItemData(items),
	}
	if err := c.publisher.PublishStockDeducted(ctx, event); err != nil {
		c.logger.Error("Failed to publish StockDeducted event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func toItemData(items []models.OrderItem) []models.OrderItemData {
	data := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		data = append(data, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}
	return data
}
