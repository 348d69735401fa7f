package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shoileazeez/shopsmart-AI/internal/models"
	"github.com/shoileazeez/shopsmart-AI/internal/redisclient"
	"github.com/shoileazeez/shopsmart-AI/internal/store"
	"github.com/shoileazeez/shopsmart-AI/internal/util"

	"go.uber.org/zap"
)

// DeductOutcome is the typed result of an order stock deduction
type DeductOutcome int

const (
	DeductOK DeductOutcome = iota
	DeductInsufficientStock
	DeductProductNotFound
	DeductStorageError
)

// Reason returns a short label for logs and metrics
func (o DeductOutcome) Reason() string {
	switch o {
	case DeductOK:
		return "ok"
	case DeductInsufficientStock:
		return "insufficient_stock"
	case DeductProductNotFound:
		return "product_not_found"
	default:
		return "storage_error"
	}
}

// StockLedger is the authoritative per-product stock counter. Deductions run
// against Postgres; the redis cache is refreshed best-effort afterwards and
// never consulted for correctness.
type StockLedger struct {
	store  *store.Store
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewStockLedger creates a new stock ledger
func NewStockLedger(store *store.Store, cache *redisclient.Client) *StockLedger {
	return &StockLedger{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// DeductForOrder deducts stock for every line item, all-or-nothing, and
// classifies the result. It never returns an error: the caller acts on the
// outcome via its policy table.
func (l *StockLedger) DeductForOrder(ctx context.Context, items []models.OrderItem) DeductOutcome {
	ctx, span := util.StartSpan(ctx, "StockLedger.DeductForOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockDeductLatency.Observe(time.Since(start).Seconds())
	}()

	err := l.store.DeductStockForOrder(ctx, items)
	switch {
	case err == nil:
		util.StockDeductionsTotal.Inc()
		l.refreshCache(ctx, items)
		return DeductOK
	case errors.Is(err, store.ErrInsufficientStock):
		util.StockDeductionsFailed.WithLabelValues("insufficient_stock").Inc()
		l.logger.Warn("Stock deduction rejected", zap.Error(err))
		return DeductInsufficientStock
	case errors.Is(err, store.ErrProductNotFound):
		util.StockDeductionsFailed.WithLabelValues("product_not_found").Inc()
		l.logger.Warn("Stock deduction rejected", zap.Error(err))
		return DeductProductNotFound
	default:
		util.StockDeductionsFailed.WithLabelValues("storage_error").Inc()
		l.logger.Error("Stock deduction failed", zap.Error(err))
		return DeductStorageError
	}
}

// refreshCache re-reads deducted products from Postgres and writes the cache.
// Failures are logged and dropped; the cache is not authoritative.
func (l *StockLedger) refreshCache(ctx context.Context, items []models.OrderItem) {
	if l.cache == nil {
		return
	}
	for _, item := range items {
		stock, err := l.store.GetStock(ctx, item.ProductID)
		if err != nil {
			l.logger.Warn("Failed to read stock for cache refresh",
				zap.String("product_id", item.ProductID), zap.Error(err))
			continue
		}
		if err := l.cache.SetStock(ctx, item.ProductID, stock); err != nil {
			l.logger.Warn("Failed to refresh stock cache",
				zap.String("product_id", item.ProductID), zap.Error(err))
		}
	}
}

// SyncProducts refreshes the cache for the given product ids from Postgres
func (l *StockLedger) SyncProducts(ctx context.Context, productIDs []string) error {
	if l.cache == nil {
		return nil
	}
	for _, id := range productIDs {
		stock, err := l.store.GetStock(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to read stock for %s: %w", id, err)
		}
		if err := l.cache.SetStock(ctx, id, stock); err != nil {
			return fmt.Errorf("failed to cache stock for %s: %w", id, err)
		}
	}
	return nil
}

// SyncStockToRedis seeds the cache with every product's stock at startup
func (l *StockLedger) SyncStockToRedis(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	l.logger.Info("Starting stock sync to Redis")

	products, err := l.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	for _, product := range products {
		if err := l.cache.SetStock(ctx, product.ID, product.Stock); err != nil {
			l.logger.Error("Failed to cache stock",
				zap.String("product_id", product.ID), zap.Error(err))
		}
	}

	l.logger.Info("Stock sync completed", zap.Int("count", len(products)))
	return nil
}
