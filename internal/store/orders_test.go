package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shoileazeez/shopsmart-AI/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderInsertsOrderAndItems(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "user-1", sqlmock.AnyArg(), models.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(sampleTime(), sampleTime()))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p1", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p2", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	items := []models.OrderItem{
		{ProductID: "p1", Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}
	order := &models.Order{
		UserID:     "user-1",
		TotalPrice: models.OrderTotal(items),
		Status:     models.OrderStatusPending,
	}

	err := s.CreateOrder(ctx, order, items)

	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	for _, item := range items {
		assert.Equal(t, order.ID, item.OrderID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusReturnsPrevious(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OrderStatusPending))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderStatusProcessing, "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	previous, err := s.UpdateOrderStatus(ctx, "order-1", models.OrderStatusProcessing)

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, previous)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusMissingOrder(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.UpdateOrderStatus(ctx, "ghost", models.OrderStatusProcessing)

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAddOrderItemRecalculatesTotal(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), "order-1", "p2", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM order_items`).WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "unit_price"}).
			AddRow("i1", "order-1", "p1", 3, "10.00").
			AddRow("i2", "order-1", "p2", 1, "5.00"))
	mock.ExpectExec("UPDATE orders SET total_price").
		WithArgs(decimal.RequireFromString("35.00"), "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	item := &models.OrderItem{
		OrderID:   "order-1",
		ProductID: "p2",
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("5.00"),
	}

	err := s.AddOrderItem(ctx, item)

	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendStatusHistory(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO order_status_history").
		WithArgs(sqlmock.AnyArg(), "order-1", models.OrderStatusProcessing).
		WillReturnRows(sqlmock.NewRows([]string{"changed_at"}).AddRow(sampleTime()))

	entry, err := s.AppendStatusHistory(ctx, "order-1", models.OrderStatusProcessing)

	require.NoError(t, err)
	assert.Equal(t, "order-1", entry.OrderID)
	assert.Equal(t, models.OrderStatusProcessing, entry.Status)
	assert.Equal(t, sampleTime(), entry.ChangedAt)
}

func TestGetHistoryForUserOrdersAscending(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	early := sampleTime()
	late := early.Add(time.Minute)
	mock.ExpectQuery("FROM order_status_history h").WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "status", "changed_at"}).
			AddRow("h1", "order-1", models.OrderStatusPending, early).
			AddRow("h2", "order-1", models.OrderStatusProcessing, late))

	entries, err := s.GetHistoryForUser(ctx, "user-1")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.OrderStatusPending, entries[0].Status)
	assert.Equal(t, models.OrderStatusProcessing, entries[1].Status)
	assert.False(t, entries[1].ChangedAt.Before(entries[0].ChangedAt))
}
