package worker

import (
	"context"

	"github.com/shoileazeez/shopsmart-AI/internal/broker"
	"github.com/shoileazeez/shopsmart-AI/internal/models"
	"github.com/shoileazeez/shopsmart-AI/internal/service"
	"github.com/shoileazeez/shopsmart-AI/internal/store"
	"github.com/shoileazeez/shopsmart-AI/internal/util"

	"go.uber.org/zap"
)

// StockSyncWorker consumes order lifecycle events and keeps the redis stock
// cache in line with Postgres. The cache is advisory, so the worker only has
// to be eventually right; the processed_events table keeps redeliveries
// idempotent.
type StockSyncWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewStockSyncWorker creates a new stock sync worker
func NewStockSyncWorker(consumer *broker.Consumer, st *store.Store, ledger *service.StockLedger) *StockSyncWorker {
	logger := util.GetLogger()
	eventHandler := broker.NewEventHandler()

	eventHandler.OnStockDeducted(func(ctx context.Context, event *models.StockDeductedEvent) error {
		processed, err := st.IsEventProcessed(ctx, event.EventID)
		if err != nil {
			return err
		}
		if processed {
			logger.Debug("Event already processed", zap.String("event_id", event.EventID))
			return nil
		}

		productIDs := make([]string, 0, len(event.Items))
		for _, item := range event.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		if err := ledger.SyncProducts(ctx, productIDs); err != nil {
			return err
		}

		return st.MarkEventProcessed(ctx, event.EventID, event.EventType)
	})

	eventHandler.OnOrderCancelled(func(ctx context.Context, event *models.OrderCancelledEvent) error {
		processed, err := st.IsEventProcessed(ctx, event.EventID)
		if err != nil {
			return err
		}
		if processed {
			return nil
		}

		// A cancellation may follow a rejected deduction; resync the
		// order's products so cached counts reflect whatever the store
		// settled on.
		items, err := st.GetOrderItemsByOrderID(ctx, event.OrderID)
		if err != nil {
			return err
		}
		productIDs := make([]string, 0, len(items))
		for _, item := range items {
			productIDs = append(productIDs, item.ProductID)
		}
		if err := ledger.SyncProducts(ctx, productIDs); err != nil {
			return err
		}

		return st.MarkEventProcessed(ctx, event.EventID, event.EventType)
	})

	return &StockSyncWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       logger,
	}
}

// Start starts the worker
func (w *StockSyncWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock sync worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockSyncWorker) Stop() error {
	w.logger.Info("Stopping stock sync worker")
	return w.consumer.Close()
}
