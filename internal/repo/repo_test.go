package repo

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/order-service/internal/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var productRowColumns = []string{"id", "type", "name", "price", "stock", "brand", "description", "power", "material", "image",
	"screen_size", "scope", "capacity", "created_at", "updated_at"}

func TestProductRepo_FindById(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, type, name, price, stock, .* FROM products WHERE id = \\$1").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(1, "Television", "OLED 55", "300.00", 2, "LG", "", 120, "", "/tv.png", "55\"", nil, nil, now, now))

	p, err := NewProductRepo().FindById(context.Background(), db, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "OLED 55", p.Name)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, domain.TelevisionSpec{ScreenSize: "55\""}, p.Spec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_FindById_NotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("FROM products WHERE id = \\$1").WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	p, err := NewProductRepo().FindById(context.Background(), db, 9)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProductRepo_DecrementStock_IsConditional(t *testing.T) {
	db, mock := newMock(t)
	stmt := regexp.QuoteMeta("UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2")

	mock.ExpectExec(stmt).WithArgs(int64(1), 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt).WithArgs(int64(1), 5).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewProductRepo()
	ok, err := repo.DecrementStock(context.Background(), db, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(context.Background(), db, 1, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Debit(t *testing.T) {
	db, mock := newMock(t)
	stmt := "UPDATE users SET balance = balance - \\$2, updated_at = now\\(\\)\\s+WHERE id = \\$1 AND balance >= \\$2"

	mock.ExpectQuery(stmt).WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("200.00"))
	mock.ExpectQuery(stmt).WithArgs("u1", sqlmock.AnyArg()).WillReturnError(sql.ErrNoRows)

	repo := NewUserRepo()
	balance, ok, err := repo.Debit(context.Background(), db, "u1", decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "200.00", balance.StringFixed(2))

	_, ok, err = repo.Debit(context.Background(), db, "u1", decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_SetBalance_UnknownUser(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("UPDATE users SET balance = \\$2").WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewUserRepo().SetBalance(context.Background(), db, "ghost", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCartRepo_Create_IsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING")).
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = \\$1$").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "created_at", "updated_at"}).AddRow(5, "u1", now, now))
	mock.ExpectQuery("FROM cart_items WHERE cart_id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_id", "quantity", "created_at", "updated_at"}).
			AddRow(1, 5, 10, 2, now, now))

	cart, err := NewCartRepo().Create(context.Background(), db, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), cart.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_FindByUserId_ForUpdate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("FROM carts WHERE user_id = \\$1 FOR UPDATE").WithArgs("u1").WillReturnError(sql.ErrNoRows)

	cart, err := NewCartRepo().FindByUserId(context.Background(), db, "u1", true)
	require.NoError(t, err)
	assert.Nil(t, cart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_CreateOrder(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	ref := "WALLET_PAY_20250618090000"

	order := &domain.Order{
		UserID: "u1", OrderNumber: "ORD-1", OrderDate: now, UpdatedAt: now,
		TotalAmount: decimal.NewFromInt(300), Status: domain.OrderPaid,
		PaymentID: &ref, PayerID: &ref, ShippingAddress: "1 Main St",
		Items: []domain.OrderItem{{ProductID: 1, ProductName: "TV", UnitPrice: decimal.NewFromInt(300), Quantity: 1, TotalPrice: decimal.NewFromInt(300)}},
	}

	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(int64(42), int64(1), "TV", "", sqlmock.AnyArg(), 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	require.NoError(t, NewOrderRepo().CreateOrder(context.Background(), db, order))
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, int64(42), order.Items[0].OrderID)
	assert.Equal(t, int64(7), order.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_FindByUserId_LoadsItems(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("FROM orders WHERE user_id = \\$1").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "order_number", "order_date", "total_amount", "status",
			"payment_id", "payer_id", "shipping_address", "notes", "updated_at"}).
			AddRow(2, "u1", "ORD-2", now, "50.00", "Paid", nil, nil, "addr", nil, now).
			AddRow(1, "u1", "ORD-1", now, "20.00", "Cancelled", nil, nil, "addr", "leave at door", now))
	mock.ExpectQuery("FROM order_items WHERE order_id = ANY").
		WithArgs("{2,1}").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "product_image_url", "unit_price", "quantity", "total_price"}).
			AddRow(1, 1, 3, "Washer", "", "20.00", 1, "20.00").
			AddRow(2, 2, 4, "AC", "", "25.00", 2, "50.00"))

	orders, err := NewOrderRepo().FindByUserId(context.Background(), db, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "AC", orders[0].Items[0].ProductName)
	assert.Equal(t, "Washer", orders[1].Items[0].ProductName)
	require.NotNil(t, orders[1].Notes)
	assert.Equal(t, "leave at door", *orders[1].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepo_MarkPublished(t *testing.T) {
	db, mock := newMock(t)

	require.NoError(t, NewOutboxRepo().MarkPublished(context.Background(), db, nil, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
