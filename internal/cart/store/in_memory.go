package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	carterrors "github.com/mkarev/storefront/internal/cart/errors"
	catalogstore "github.com/mkarev/storefront/internal/catalog/store"
)

type cartRecord struct {
	items     []LineItem // insertion order preserved
	createdAt time.Time
}

// inMemory implements CartStore using an in-memory map. The read model is
// built with an explicit join against the product directory, mirroring the
// SQL implementation.
type inMemory struct {
	mu       sync.RWMutex
	carts    map[uuid.UUID]*cartRecord
	products catalogstore.ProductStore
}

// NewInMemoryStore creates a new instance of CartStore. The product store is
// used to resolve product snapshots for the read model.
func NewInMemoryStore(products catalogstore.ProductStore) CartStore {
	return &inMemory{
		carts:    make(map[uuid.UUID]*cartRecord),
		products: products,
	}
}

// Create allocates an empty cart and returns its identifier.
func (s *inMemory) Create(_ context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.carts[id] = &cartRecord{items: make([]LineItem, 0), createdAt: time.Now()}
	return id, nil
}

// Get resolves the cart's line items with their product snapshots.
func (s *inMemory) Get(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	s.mu.RLock()
	rec, ok := s.carts[cartID]
	if !ok {
		s.mu.RUnlock()
		return nil, carterrors.ErrCartNotFound
	}
	items := make([]LineItem, len(rec.items))
	copy(items, rec.items)
	createdAt := rec.createdAt
	s.mu.RUnlock()

	cart := &Cart{ID: cartID, Items: make([]ResolvedItem, 0, len(items)), CreatedAt: createdAt}
	for _, item := range items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			// The product vanished from the directory; the reference is
			// dropped from the read model, like the SQL join does.
			continue
		}
		cart.Items = append(cart.Items, ResolvedItem{
			ProductID: item.ProductID,
			Title:     product.Title,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
		})
	}
	return cart, nil
}

// SetLineItems replaces the entire line-item list atomically.
func (s *inMemory) SetLineItems(_ context.Context, cartID uuid.UUID, items []LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.carts[cartID]
	if !ok {
		return carterrors.ErrCartNotFound
	}
	next := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			next = append(next, item)
		}
	}
	rec.items = next
	return nil
}

// UpsertLineItem adds delta to the product's line-item quantity.
func (s *inMemory) UpsertLineItem(_ context.Context, cartID, productID uuid.UUID, delta int32) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.carts[cartID]
	if !ok {
		return 0, carterrors.ErrCartNotFound
	}

	for i := range rec.items {
		if rec.items[i].ProductID != productID {
			continue
		}
		rec.items[i].Quantity += delta
		quantity := rec.items[i].Quantity
		if quantity <= 0 {
			rec.items = append(rec.items[:i], rec.items[i+1:]...)
			return 0, nil
		}
		return quantity, nil
	}

	if delta <= 0 {
		return 0, carterrors.ErrItemNotFound
	}
	rec.items = append(rec.items, LineItem{ProductID: productID, Quantity: delta})
	return delta, nil
}

// RemoveLineItem deletes the product's line item and returns the removed quantity.
func (s *inMemory) RemoveLineItem(_ context.Context, cartID, productID uuid.UUID) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.carts[cartID]
	if !ok {
		return 0, carterrors.ErrCartNotFound
	}
	for i := range rec.items {
		if rec.items[i].ProductID == productID {
			quantity := rec.items[i].Quantity
			rec.items = append(rec.items[:i], rec.items[i+1:]...)
			return quantity, nil
		}
	}
	return 0, carterrors.ErrItemNotFound
}

// Clear sets the line-item list to empty.
func (s *inMemory) Clear(_ context.Context, cartID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.carts[cartID]
	if !ok {
		return carterrors.ErrCartNotFound
	}
	rec.items = make([]LineItem, 0)
	return nil
}
