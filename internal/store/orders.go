package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shoileazeez/shopsmart-AI/internal/models"

	"github.com/google/uuid"
)

// CreateOrder persists an order and its line items in one transaction.
// Order and item IDs are assigned here if unset. The order's total is
// stored as given; callers compute the canonical total beforehand.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO orders (id, user_id, total_price, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.TotalPrice, order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].OrderID = order.ID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			items[i].ID, items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// UpdateOrderStatus persists a new status and returns the previous one.
// The previous status is read under a row lock in the same transaction as
// the update, so the returned transition pair is exact even under
// concurrent status writes.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var previous string
	err = tx.GetContext(ctx, &previous,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return previous, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// AddOrderItem appends a line item and recalculates the order total, both
// inside one transaction so readers never see an item without its total.
func (s *Store) AddOrderItem(ctx context.Context, item *models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}

	var items []models.OrderItem
	err = tx.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", item.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET total_price = $1, updated_at = NOW() WHERE id = $2",
		models.OrderTotal(items), item.OrderID)
	if err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}

	return tx.Commit()
}

// AppendStatusHistory inserts one history entry for an order. Entries are
// never updated or deleted.
func (s *Store) AppendStatusHistory(ctx context.Context, orderID, status string) (*models.StatusHistory, error) {
	entry := models.StatusHistory{
		ID:      uuid.NewString(),
		OrderID: orderID,
		Status:  status,
	}

	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO order_status_history (id, order_id, status)
		VALUES ($1, $2, $3)
		RETURNING changed_at`,
		entry.ID, entry.OrderID, entry.Status,
	).Scan(&entry.ChangedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append status history: %w", err)
	}
	return &entry, nil
}

// GetHistoryForOrder retrieves history entries for one order, oldest first
func (s *Store) GetHistoryForOrder(ctx context.Context, orderID string) ([]models.StatusHistory, error) {
	var entries []models.StatusHistory
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM order_status_history WHERE order_id = $1 ORDER BY changed_at", orderID)
	return entries, err
}

// GetHistoryForUser retrieves history entries across all of a user's orders,
// ordered by changed_at ascending. The ordering is what lets clients rebuild
// a status timeline.
func (s *Store) GetHistoryForUser(ctx context.Context, userID string) ([]models.StatusHistory, error) {
	var entries []models.StatusHistory
	err := s.db.SelectContext(ctx, &entries, `
		SELECT h.id, h.order_id, h.status, h.changed_at
		FROM order_status_history h
		JOIN orders o ON o.id = h.order_id
		WHERE o.user_id = $1
		ORDER BY h.changed_at`, userID)
	return entries, err
}
