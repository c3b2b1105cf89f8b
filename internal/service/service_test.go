package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/shopfront/order-service/internal/domain"
)

var (
	cartColumns     = []string{"id", "user_id", "created_at", "updated_at"}
	cartItemColumns = []string{"id", "cart_id", "product_id", "quantity", "created_at", "updated_at"}
	productColumns  = []string{"id", "type", "name", "price", "stock", "brand", "description", "power", "material", "image",
		"screen_size", "scope", "capacity", "created_at", "updated_at"}
	userColumns      = []string{"id", "email", "role", "balance"}
	orderColumns     = []string{"id", "user_id", "order_number", "order_date", "total_amount", "status", "payment_id", "payer_id", "shipping_address", "notes", "updated_at"}
	orderItemColumns = []string{"id", "order_id", "product_id", "product_name", "product_image_url", "unit_price", "quantity", "total_price"}
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
}

func productRow(id int64, name, price string, stock int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(productColumns).
		AddRow(id, "Television", name, price, stock, "LG", "", 100, "", "/img/"+name+".png", "55\"", nil, nil, now, now)
}

func userRow(id, balance string) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).AddRow(id, id+"@example.com", "User", balance)
}

// decimalArg matches a decimal.Decimal argument by value.
type decimalArg string

func (a decimalArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	got, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return got.Equal(decimal.RequireFromString(string(a)))
}

type fakeCache struct {
	mu      sync.Mutex
	items   map[int64]*domain.Product
	deleted []int64
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[int64]*domain.Product)}
}

func (c *fakeCache) Get(_ context.Context, id int64) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.items[id], nil
}

func (c *fakeCache) Set(_ context.Context, p *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.items[p.ID] = p
	return nil
}

func (c *fakeCache) Delete(_ context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
	}
	c.deleted = append(c.deleted, ids...)
	return c.err
}
