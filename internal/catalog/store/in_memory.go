package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	cerrors "github.com/mkarev/storefront/internal/catalog/errors"
)

// inMemory implements ProductStore using an in-memory map.
// All cross-goroutine coordination goes through a single mutex, so stock
// adjustments and reservations are atomic the same way the SQL updates are.
type inMemory struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
}

// NewInMemoryStore creates a new instance of ProductStore.
func NewInMemoryStore() ProductStore {
	return &inMemory{
		products: make(map[uuid.UUID]Product),
	}
}

// FindByID retrieves a product by its ID.
func (s *inMemory) FindByID(_ context.Context, id uuid.UUID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, cerrors.ErrProductNotFound
	}
	return &p, nil
}

// FindByIDs retrieves products by IDs; missing IDs are skipped.
func (s *inMemory) FindByIDs(_ context.Context, ids []uuid.UUID) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			list = append(list, p)
		}
	}
	return list, nil
}

// FindAll retrieves products ordered by creation time with pagination.
func (s *inMemory) FindAll(_ context.Context, offset, limit int32) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID.String() < list[j].ID.String()
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	if int(offset) >= len(list) {
		return []Product{}, nil
	}
	end := int(offset) + int(limit)
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}

// Create creates a new product and returns it.
func (s *inMemory) Create(_ context.Context, np NewProduct) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := Product{
		ID:          uuid.New(),
		Title:       np.Title,
		Description: np.Description,
		Price:       np.Price,
		Code:        np.Code,
		Stock:       np.Stock,
		OwnerID:     np.OwnerID,
		Version:     1,
		CreatedAt:   time.Now(),
	}
	s.products[product.ID] = product

	return &product, nil
}

// DeleteByID deletes a product by its ID.
func (s *inMemory) DeleteByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return cerrors.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

// GetStock reports the current available quantity for a product.
func (s *inMemory) GetStock(_ context.Context, id uuid.UUID) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return 0, cerrors.ErrProductNotFound
	}
	return p.Stock, nil
}

// AdjustStock applies stock += delta under the store lock.
func (s *inMemory) AdjustStock(_ context.Context, id uuid.UUID, delta int32) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, cerrors.ErrProductNotFound
	}
	p.Stock += delta
	p.Version++
	s.products[id] = p
	return &p, nil
}

// ReserveStock decrements stock by qty only while stock >= qty.
func (s *inMemory) ReserveStock(_ context.Context, id uuid.UUID, qty int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return cerrors.ErrProductNotFound
	}
	if p.Stock < qty {
		return cerrors.ErrInsufficientStock
	}
	p.Stock -= qty
	p.Version++
	s.products[id] = p
	return nil
}

// FindBelowRequested reports products whose current stock is below the
// requested quantity; missing products are reported as failed.
func (s *inMemory) FindBelowRequested(_ context.Context, requests []StockRequest) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	failed := make([]uuid.UUID, 0)
	for _, req := range requests {
		p, ok := s.products[req.ProductID]
		if !ok || p.Stock < req.Quantity {
			failed = append(failed, req.ProductID)
		}
	}
	return failed, nil
}
