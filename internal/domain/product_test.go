package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSpec(t *testing.T) {
	spec, err := ResolveSpec(KindTelevision, SpecAttributes{ScreenSize: "55\""})
	require.NoError(t, err)
	assert.Equal(t, TelevisionSpec{ScreenSize: "55\""}, spec)

	_, err = ResolveSpec(KindWashingMachine, SpecAttributes{ScreenSize: "55\""})
	assert.True(t, errors.Is(err, ErrInvalidProduct))

	_, err = ResolveSpec("Toaster", SpecAttributes{})
	assert.True(t, errors.Is(err, ErrInvalidProduct))
}

func TestParseProductKind(t *testing.T) {
	k, err := ParseProductKind("airconditioner")
	require.NoError(t, err)
	assert.Equal(t, KindAirConditioner, k)

	_, err = ParseProductKind("radio")
	assert.Error(t, err)
}

func TestProduct_JSONRoundTrip(t *testing.T) {
	p := Product{
		ID:    4,
		Name:  "Split AC",
		Price: decimal.RequireFromString("450.00"),
		Stock: 9,
		Spec:  AirConditionerSpec{Scope: "30m2"},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"AirConditioner"`)
	assert.Contains(t, string(data), `"scope":"30m2"`)

	var back Product
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, KindAirConditioner, back.Kind())
	assert.Equal(t, AirConditionerSpec{Scope: "30m2"}, back.Spec)
	assert.True(t, back.Price.Equal(p.Price))
	assert.Equal(t, 9, back.Stock)
}

func TestAttributes(t *testing.T) {
	assert.Equal(t, SpecAttributes{Capacity: "8kg"}, Attributes(WashingMachineSpec{Capacity: "8kg"}))
	assert.Equal(t, SpecAttributes{}, Attributes(nil))
}

func TestCart_Totals(t *testing.T) {
	c := &Cart{Items: []CartItem{
		{ID: 1, ProductID: 10, Quantity: 2, Product: &Product{Price: decimal.RequireFromString("100.50")}},
		{ID: 2, ProductID: 11, Quantity: 1},
	}}
	assert.Equal(t, 3, c.TotalItems())
	assert.Equal(t, "201.00", c.TotalPrice().StringFixed(2))
	assert.NotNil(t, c.Item(2))
	assert.Nil(t, c.Item(9))
	assert.NotNil(t, c.ItemForProduct(10))

	var nilCart *Cart
	assert.True(t, nilCart.Empty())
}
