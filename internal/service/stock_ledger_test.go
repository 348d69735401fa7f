package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shoileazeez/shopsmart-AI/internal/models"
	"github.com/shoileazeez/shopsmart-AI/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLedger(t *testing.T) (*StockLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.NewStoreWithDB(sqlx.NewDb(db, "sqlmock"))
	return NewStockLedger(st, nil), mock
}

func TestDeductForOrderOK(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock FROM products").WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(10))
	mock.ExpectExec("UPDATE products SET stock = stock -").WithArgs(4, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome := ledger.DeductForOrder(context.Background(), []models.OrderItem{
		{ProductID: "p1", Quantity: 4},
	})

	assert.Equal(t, DeductOK, outcome)
	assert.Equal(t, "ok", outcome.Reason())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductForOrderInsufficientStock(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock FROM products").WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(2))
	mock.ExpectRollback()

	outcome := ledger.DeductForOrder(context.Background(), []models.OrderItem{
		{ProductID: "p1", Quantity: 5},
	})

	assert.Equal(t, DeductInsufficientStock, outcome)
	assert.Equal(t, "insufficient_stock", outcome.Reason())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductForOrderProductNotFound(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock FROM products").WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	outcome := ledger.DeductForOrder(context.Background(), []models.OrderItem{
		{ProductID: "ghost", Quantity: 1},
	})

	assert.Equal(t, DeductProductNotFound, outcome)
}

func TestDeductForOrderStorageError(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT stock FROM products").WithArgs("p1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	outcome := ledger.DeductForOrder(context.Background(), []models.OrderItem{
		{ProductID: "p1", Quantity: 1},
	})

	assert.Equal(t, DeductStorageError, outcome)
	assert.Equal(t, "storage_error", outcome.Reason())
}
