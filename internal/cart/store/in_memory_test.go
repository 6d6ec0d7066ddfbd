package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	carterrors "github.com/mkarev/storefront/internal/cart/errors"
	catalogstore "github.com/mkarev/storefront/internal/catalog/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartFixture struct {
	products catalogstore.ProductStore
	carts    CartStore
}

func newCartFixture() *cartFixture {
	products := catalogstore.NewInMemoryStore()
	return &cartFixture{
		products: products,
		carts:    NewInMemoryStore(products),
	}
}

func (f *cartFixture) seedProduct(t *testing.T, title string, price int64) uuid.UUID {
	t.Helper()
	p, err := f.products.Create(context.Background(), catalogstore.NewProduct{
		Title:   title,
		Price:   price,
		Stock:   100,
		OwnerID: uuid.New(),
	})
	require.NoError(t, err)
	return p.ID
}

func Test_InMemoryCartStore_CreateAndGet(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()

	cartID, err := f.carts.Create(ctx)
	require.NoError(t, err)

	cart, err := f.carts.Get(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, cartID, cart.ID)
	assert.Empty(t, cart.Items)
	assert.NotZero(t, cart.CreatedAt)

	_, err = f.carts.Get(ctx, uuid.New())
	require.ErrorIs(t, err, carterrors.ErrCartNotFound)
}

func Test_InMemoryCartStore_UpsertLineItem(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "Keyboard", 8900)
	cartID, err := f.carts.Create(ctx)
	require.NoError(t, err)

	// insert
	qty, err := f.carts.UpsertLineItem(ctx, cartID, productID, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), qty)

	// merge, never duplicate
	qty, err = f.carts.UpsertLineItem(ctx, cartID, productID, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(3), qty)

	cart, err := f.carts.Get(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int32(3), cart.Items[0].Quantity)

	// decrement
	qty, err = f.carts.UpsertLineItem(ctx, cartID, productID, -2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), qty)

	// dropping to zero removes the line item
	qty, err = f.carts.UpsertLineItem(ctx, cartID, productID, -1)
	require.NoError(t, err)
	assert.Equal(t, int32(0), qty)

	cart, err = f.carts.Get(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// non-positive delta on an absent item
	_, err = f.carts.UpsertLineItem(ctx, cartID, productID, -1)
	require.ErrorIs(t, err, carterrors.ErrItemNotFound)

	// unknown cart is reported distinctly
	_, err = f.carts.UpsertLineItem(ctx, uuid.New(), productID, 1)
	require.ErrorIs(t, err, carterrors.ErrCartNotFound)
}

func Test_InMemoryCartStore_Get_ResolvesProductSnapshots(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	first := f.seedProduct(t, "First", 100)
	second := f.seedProduct(t, "Second", 200)
	cartID, err := f.carts.Create(ctx)
	require.NoError(t, err)

	_, err = f.carts.UpsertLineItem(ctx, cartID, first, 2)
	require.NoError(t, err)
	_, err = f.carts.UpsertLineItem(ctx, cartID, second, 1)
	require.NoError(t, err)

	cart, err := f.carts.Get(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "First", cart.Items[0].Title)
	assert.Equal(t, int64(100), cart.Items[0].UnitPrice)
	assert.Equal(t, int32(2), cart.Items[0].Quantity)
	assert.Equal(t, "Second", cart.Items[1].Title)

	// a vanished product is dropped from the read model
	require.NoError(t, f.products.DeleteByID(ctx, first))
	cart, err = f.carts.Get(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, second, cart.Items[0].ProductID)
}

func Test_InMemoryCartStore_RemoveLineItem(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	productID := f.seedProduct(t, "Mouse", 2500)
	cartID, err := f.carts.Create(ctx)
	require.NoError(t, err)

	_, err = f.carts.UpsertLineItem(ctx, cartID, productID, 3)
	require.NoError(t, err)

	qty, err := f.carts.RemoveLineItem(ctx, cartID, productID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), qty)

	_, err = f.carts.RemoveLineItem(ctx, cartID, productID)
	require.ErrorIs(t, err, carterrors.ErrItemNotFound)

	_, err = f.carts.RemoveLineItem(ctx, uuid.New(), productID)
	require.ErrorIs(t, err, carterrors.ErrCartNotFound)
}

func Test_InMemoryCartStore_SetLineItemsAndClear(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	first := f.seedProduct(t, "First", 100)
	second := f.seedProduct(t, "Second", 200)
	cartID, err := f.carts.Create(ctx)
	require.NoError(t, err)

	err = f.carts.SetLineItems(ctx, cartID, []LineItem{
		{ProductID: first, Quantity: 2},
		{ProductID: second, Quantity: 0}, // discarded
	})
	require.NoError(t, err)

	cart, err := f.carts.Get(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, first, cart.Items[0].ProductID)

	require.NoError(t, f.carts.Clear(ctx, cartID))
	cart, err = f.carts.Get(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	require.ErrorIs(t, f.carts.Clear(ctx, uuid.New()), carterrors.ErrCartNotFound)
	require.ErrorIs(t, f.carts.SetLineItems(ctx, uuid.New(), nil), carterrors.ErrCartNotFound)
}
