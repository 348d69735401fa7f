package service

import (
	"context"
	"testing"
	"time"

	"github.com/shoileazeez/shopsmart-AI/internal/models"
	"github.com/shoileazeez/shopsmart-AI/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTime() time.Time {
	return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
}

func newMockService(t *testing.T) (*OrderService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.NewStoreWithDB(sqlx.NewDb(db, "sqlmock"))
	ledger := NewStockLedger(st, nil)
	lifecycle := NewLifecycleCoordinator(st, st, ledger, nil)
	return NewOrderService(st, lifecycle), mock
}

func orderRows(orderID, userID, total, status string) *sqlmock.Rows {
	cols := []string{"id", "user_id", "total_price", "status", "created_at", "updated_at"}
	return sqlmock.NewRows(cols).AddRow(orderID, userID, total, status, sampleTime(), sampleTime())
}

func TestCreateOrderComputesCanonicalTotal(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "user-1", decimal.RequireFromString("35.00"), models.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(sampleTime(), sampleTime()))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p1", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p2", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// creation transition, dispatched after the insert committed
	mock.ExpectQuery("INSERT INTO order_status_history").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"changed_at"}).AddRow(sampleTime()))

	req := &CreateOrderRequest{
		// caller-supplied total is ignored in favor of the computed one
		TotalPrice: decimal.RequireFromString("999.99"),
		Items: []OrderItemRequest{
			{ProductID: "p1", Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
	}

	order, items, err := svc.CreateOrder(ctx, "user-1", req)

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "35.00", order.TotalPrice.StringFixed(2))
	assert.Len(t, items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderSnapshotsCatalogPrice(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	productCols := []string{"id", "name", "description", "price", "stock", "created_at"}
	mock.ExpectQuery(`SELECT \* FROM products WHERE id IN`).WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("p1", "Widget", "", "12.50", 10, sampleTime()))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "user-1", decimal.RequireFromString("25.00"), models.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(sampleTime(), sampleTime()))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p1", 2, decimal.RequireFromString("12.50")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("INSERT INTO order_status_history").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"changed_at"}).AddRow(sampleTime()))

	req := &CreateOrderRequest{
		Items: []OrderItemRequest{{ProductID: "p1", Quantity: 2}},
	}

	order, items, err := svc.CreateOrder(ctx, "user-1", req)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "12.50", items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "25.00", order.TotalPrice.StringFixed(2))
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	productCols := []string{"id", "name", "description", "price", "stock", "created_at"}
	mock.ExpectQuery(`SELECT \* FROM products WHERE id IN`).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(productCols))

	req := &CreateOrderRequest{
		Items: []OrderItemRequest{{ProductID: "ghost", Quantity: 1}},
	}

	_, _, err := svc.CreateOrder(ctx, "user-1", req)

	assert.ErrorIs(t, err, store.ErrProductNotFound)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.UpdateStatus(context.Background(), "order-1", "refunded")

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`SELECT \* FROM orders WHERE id`).WithArgs("order-1").
		WillReturnRows(orderRows("order-1", "user-1", "35.00", models.OrderStatusDelivered))

	_, err := svc.UpdateStatus(context.Background(), "order-1", models.OrderStatusProcessing)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Transition to processing with enough stock: stock is deducted once, the
// order stays processing, and the user's cart is emptied.
func TestUpdateStatusProcessingDeductsAndClearsCart(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM orders WHERE id`).WithArgs("order-1").
		WillReturnRows(orderRows("order-1", "user-1", "40.00", models.OrderStatusPending))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OrderStatusPending))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderStatusProcessing, "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("INSERT INTO order_status_history").
		WithArgs(sqlmock.AnyArg(), "order-1", models.OrderStatusProcessing).
		WillReturnRows(sqlmock.NewRows([]string{"changed_at"}).AddRow(sampleTime()))

	itemCols := []string{"id", "order_id", "product_id", "quantity", "unit_price"}
	mock.ExpectQuery(`SELECT \* FROM order_items`).WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("i1", "order-1", "p1", 4, "10.00"))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock FROM products").WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(10))
	mock.ExpectExec("UPDATE products SET stock = stock -").WithArgs(4, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT \* FROM carts`).WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow("cart-1", "user-1"))
	mock.ExpectExec("DELETE FROM cart_items").WithArgs("cart-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	mock.ExpectQuery(`SELECT \* FROM orders WHERE id`).WithArgs("order-1").
		WillReturnRows(orderRows("order-1", "user-1", "40.00", models.OrderStatusProcessing))

	order, err := svc.UpdateStatus(ctx, "order-1", models.OrderStatusProcessing)

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Transition to processing with short stock: the deduction rolls back, no
// product row is updated, and the order self-cancels with both history
// entries recorded. The caller still gets a successful response.
func TestUpdateStatusProcessingShortStockCancels(t *testing.T) {
	svc, mock := newMockService(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM orders WHERE id`).WithArgs("order-1").
		WillReturnRows(orderRows("order-1", "user-1", "50.00", models.OrderStatusPending))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OrderStatusPending))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderStatusProcessing, "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("INSERT INTO order_status_history").
		WithArgs(sqlmock.AnyArg(), "order-1", models.OrderStatusProcessing).
		WillReturnRows(sqlmock.NewRows([]string{"changed_at"}).AddRow(sampleTime()))

	itemCols := []string{"id", "order_id", "product_id", "quantity", "unit_price"}
	mock.ExpectQuery(`SELECT \* FROM order_items`).WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("i1", "order-1", "p1", 5, "10.00"))

	// stock of 2 cannot cover a quantity of 5: transaction rolls back
	// with no UPDATE on products
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock FROM products").WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(2))
	mock.ExpectRollback()

	// forced cancellation
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OrderStatusProcessing))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderStatusCancelled, "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("INSERT INTO order_status_history").
		WithArgs(sqlmock.AnyArg(), "order-1", models.OrderStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"changed_at"}).AddRow(sampleTime()))

	mock.ExpectQuery(`SELECT \* FROM orders WHERE id`).WithArgs("order-1").
		WillReturnRows(orderRows("order-1", "user-1", "50.00", models.OrderStatusCancelled))

	order, err := svc.UpdateStatus(ctx, "order-1", models.OrderStatusProcessing)

	require.NoError(t, err, "auto-cancellation must not surface to the caller")
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddOrderItemRejectsBadQuantity(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.AddOrderItem(context.Background(), "order-1", "p1", 0, decimal.Zero)

	assert.Error(t, err)
}
