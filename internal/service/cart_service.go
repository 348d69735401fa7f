package service

import (
	"context"
	"fmt"

	"github.com/shoileazeez/shopsmart-AI/internal/models"
	"github.com/shoileazeez/shopsmart-AI/internal/store"
	"github.com/shoileazeez/shopsmart-AI/internal/util"

	"go.uber.org/zap"
)

// CartService handles cart business logic
type CartService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store *store.Store) *CartService {
	return &CartService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// GetOrCreateCart returns the user's cart and its items, creating the cart
// lazily on first access
func (s *CartService) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, []models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetOrCreateCart")
	defer span.End()

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, nil, err
	}
	return cart, items, nil
}

// AddItem adds quantity of a product to the user's cart. A repeat add for
// the same product accumulates onto the existing item.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		return nil, fmt.Errorf("invalid quantity %d for product %s", quantity, productID)
	}

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.store.UpsertCartItem(ctx, cart.ID, productID, quantity)
	if err != nil {
		return nil, err
	}

	util.CartItemsAddedTotal.Inc()
	s.logger.Debug("Cart item added",
		zap.String("cart_id", cart.ID),
		zap.String("product_id", productID),
		zap.Int("quantity", item.Quantity))
	return item, nil
}

// RemoveItem removes a product from the user's cart, no-op when absent
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.store.RemoveCartItem(ctx, cart.ID, productID)
}
