package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/order-service/internal/domain"
	"github.com/shopfront/order-service/internal/repo"
)

func newProductService(t *testing.T) (ProductService, sqlmock.Sqlmock, *fakeCache) {
	db, mock := newTestDB(t)
	cache := newFakeCache()
	return NewProductService(db, repo.NewProductRepo(), cache, testLogger(t)), mock, cache
}

func TestProduct_Get_ReadsThroughCache(t *testing.T) {
	svc, mock, cache := newProductService(t)
	ctx := context.Background()

	mock.ExpectQuery("FROM products WHERE id = \\$1").WithArgs(int64(1)).WillReturnRows(productRow(1, "OLED", "300.00", 2))

	p, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "OLED", p.Name)
	assert.Contains(t, cache.items, int64(1))

	// Served from the cache; no further query is expected.
	p, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "OLED", p.Name)
}

func TestProduct_Get_CacheDownFallsBackToDatabase(t *testing.T) {
	svc, mock, cache := newProductService(t)
	cache.err = errors.New("redis: connection refused")

	mock.ExpectQuery("FROM products WHERE id = \\$1").WillReturnRows(productRow(1, "OLED", "300.00", 2))

	p, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
}

func TestProduct_Get_NotFound(t *testing.T) {
	svc, mock, _ := newProductService(t)
	mock.ExpectQuery("FROM products WHERE id = \\$1").WillReturnError(sql.ErrNoRows)

	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProduct_Create(t *testing.T) {
	svc, mock, _ := newProductService(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO products").
		WithArgs(domain.KindWashingMachine, "Front loader", decimalArg("499.90"), 3, "Bosch", "", 2000, "steel", "",
			"", "", "9kg").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))

	p, err := svc.Create(context.Background(), CreateProductInput{
		Type:     "washingmachine",
		Name:     "Front loader",
		Price:    decimal.RequireFromString("499.899"),
		Stock:    3,
		Brand:    "Bosch",
		Power:    2000,
		Material: "steel",
		Capacity: "9kg",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), p.ID)
	assert.Equal(t, domain.WashingMachineSpec{Capacity: "9kg"}, p.Spec)
}

func TestProduct_Create_Validation(t *testing.T) {
	svc, _, _ := newProductService(t)
	ctx := context.Background()

	cases := map[string]CreateProductInput{
		"unknown type":      {Type: "Toaster", Name: "x"},
		"missing name":      {Type: "Television", ScreenSize: "55\""},
		"negative stock":    {Type: "Television", Name: "x", Stock: -1, ScreenSize: "55\""},
		"missing attribute": {Type: "AirConditioner", Name: "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidProduct)
		})
	}
}

func TestProduct_StockCounters(t *testing.T) {
	svc, mock, cache := newProductService(t)
	ctx := context.Background()

	_, err := svc.DecrementStock(ctx, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	mock.ExpectExec("UPDATE products SET stock = stock - \\$2").WithArgs(int64(1), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err := svc.DecrementStock(ctx, 1, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, cache.deleted)

	mock.ExpectExec("UPDATE products SET stock = stock \\+ \\$2").WithArgs(int64(1), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err = svc.IncrementStock(ctx, 1, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{1}, cache.deleted)
}
