package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shoileazeez/shopsmart-AI/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// GetCartByUserID retrieves the cart owned by a user
func (s *Store) GetCartByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart, "SELECT * FROM carts WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", ErrCartNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreateCart returns the user's cart, creating it on first access.
// carts.user_id carries a unique constraint; when two concurrent creations
// race, the loser hits a unique violation and re-fetches the winning row,
// so both callers converge on the same cart.
func (s *Store) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	cart = &models.Cart{ID: uuid.NewString(), UserID: userID}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO carts (id, user_id) VALUES ($1, $2)", cart.ID, cart.UserID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return s.GetCartByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

// GetCartItems retrieves all items in a cart
func (s *Store) GetCartItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM cart_items WHERE cart_id = $1", cartID)
	return items, err
}

// UpsertCartItem adds quantity to an existing item or inserts a new one.
// cart_items carries a unique (cart_id, product_id) constraint which the
// upsert accumulates against.
func (s *Store) UpsertCartItem(ctx context.Context, cartID, productID string, quantity int) (*models.CartItem, error) {
	item := models.CartItem{CartID: cartID, ProductID: productID}

	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity`,
		uuid.NewString(), cartID, productID, quantity,
	).Scan(&item.ID, &item.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return &item, nil
}

// RemoveCartItem deletes an item from a cart, no-op if absent
func (s *Store) RemoveCartItem(ctx context.Context, cartID, productID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID)
	return err
}

// ClearCartItems deletes all item rows for a cart. The cart row itself is
// kept so the same user keeps an addressable (empty) cart afterwards.
func (s *Store) ClearCartItems(ctx context.Context, cartID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id = $1", cartID)
	return err
}
