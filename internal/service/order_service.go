package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shoileazeez/shopsmart-AI/internal/models"
	"github.com/shoileazeez/shopsmart-AI/internal/store"
	"github.com/shoileazeez/shopsmart-AI/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidTransition reports a status change that violates the lifecycle
// graph. It is returned to the caller instead of being silently applied.
var ErrInvalidTransition = errors.New("invalid status transition")

// OrderService handles order business logic
type OrderService struct {
	store     *store.Store
	lifecycle *LifecycleCoordinator
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, lifecycle *LifecycleCoordinator) *OrderService {
	return &OrderService{
		store:     store,
		lifecycle: lifecycle,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1"`
	// TotalPrice is accepted for wire compatibility and ignored: the
	// canonical total is always computed from the items.
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderItemRequest represents an item in an order. UnitPrice is optional;
// when zero the current catalog price is snapshotted.
type OrderItemRequest struct {
	ProductID string          `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrder persists a new pending order with unit-price snapshots and a
// canonical total, then dispatches the creation transition once the write
// has committed.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req *CreateOrderRequest) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, nil, err
	}

	order := &models.Order{
		UserID:     userID,
		TotalPrice: models.OrderTotal(items),
		Status:     models.OrderStatusPending,
	}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.TotalPrice.StringFixed(2)))

	// The insert transaction has committed; creation counts as a
	// transition from no previous status to pending.
	s.lifecycle.Dispatch(ctx, Transition{
		OrderID: order.ID,
		UserID:  order.UserID,
		Current: models.OrderStatusPending,
		Created: true,
	})

	return order, items, nil
}

// resolveItems validates requested items and snapshots unit prices,
// falling back to the catalog price when the caller omitted one.
func (s *OrderService) resolveItems(ctx context.Context, reqs []OrderItemRequest) ([]models.OrderItem, error) {
	productIDs := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if r.Quantity < 1 {
			return nil, fmt.Errorf("invalid quantity %d for product %s", r.Quantity, r.ProductID)
		}
		if r.UnitPrice.Sign() <= 0 {
			productIDs = append(productIDs, r.ProductID)
		}
	}

	prices := make(map[string]decimal.Decimal)
	if len(productIDs) > 0 {
		products, err := s.store.GetProductsByIDs(ctx, productIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load products: %w", err)
		}
		for _, p := range products {
			prices[p.ID] = p.Price
		}
	}

	items := make([]models.OrderItem, 0, len(reqs))
	for _, r := range reqs {
		unitPrice := r.UnitPrice
		if unitPrice.Sign() <= 0 {
			catalogPrice, ok := prices[r.ProductID]
			if !ok {
				return nil, fmt.Errorf("%w: %s", store.ErrProductNotFound, r.ProductID)
			}
			unitPrice = catalogPrice
		}
		items = append(items, models.OrderItem{
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			UnitPrice: unitPrice,
		})
	}
	return items, nil
}

// UpdateStatus validates the requested transition against the lifecycle
// graph, persists it, and dispatches the lifecycle actions after commit.
// The previous status returned by the store is the one captured inside the
// update transaction, so a concurrent duplicate write collapses to a no-op
// at the coordinator.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, newStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !models.ValidStatus(newStatus) {
		util.InvalidTransitionsTotal.Inc()
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(order.Status, newStatus) {
		util.InvalidTransitionsTotal.Inc()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, newStatus)
	}

	previous, err := s.store.UpdateOrderStatus(ctx, orderID, newStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("previous", previous),
		zap.String("status", newStatus))

	s.lifecycle.Dispatch(ctx, Transition{
		OrderID:  orderID,
		UserID:   order.UserID,
		Previous: previous,
		Current:  newStatus,
	})

	return s.store.GetOrderByID(ctx, orderID)
}

// AddOrderItem appends a line item to an existing order; the order total is
// recalculated in the same transaction as the insert.
func (s *OrderService) AddOrderItem(ctx context.Context, orderID, productID string, quantity int, unitPrice decimal.Decimal) (*models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AddOrderItem")
	defer span.End()

	if quantity < 1 {
		return nil, fmt.Errorf("invalid quantity %d for product %s", quantity, productID)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if unitPrice.Sign() <= 0 {
		product, err := s.store.GetProductByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		unitPrice = product.Price
	}

	item := &models.OrderItem{
		OrderID:   order.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}

	if err := s.store.AddOrderItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add order item: %w", err)
	}
	return item, nil
}

// GetOrder retrieves an order and its items
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// ListOrdersForUser retrieves a user's orders, newest first
func (s *OrderService) ListOrdersForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}

// HistoryForUser retrieves the status timeline across all of a user's
// orders, oldest entry first
func (s *OrderService) HistoryForUser(ctx context.Context, userID string) ([]models.StatusHistory, error) {
	return s.store.GetHistoryForUser(ctx, userID)
}
