// Package store provides the product directory and the stock ledger.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product represents a product entity in the store.
type Product struct {
	ID          uuid.UUID
	Title       string
	Description string
	Price       int64 // Price in cents
	Code        string // SKU
	Stock       int32
	OwnerID     uuid.UUID
	Version     int32
	CreatedAt   time.Time
}

// NewProduct holds the fields required to create a product.
type NewProduct struct {
	Title       string
	Description string
	Price       int64
	Code        string
	Stock       int32
	OwnerID     uuid.UUID
}

// StockRequest pairs a product with a requested quantity for the advisory
// sufficiency check.
type StockRequest struct {
	ProductID uuid.UUID
	Quantity  int32
}

// ProductStore is an interface for product storage and stock ledger operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs retrieves products by IDs.
	// Returns an empty slice if none of the products exist.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindAll returns all available products with pagination support.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context, offset, limit int32) ([]Product, error)

	// Create adds a new product to the system.
	// Returns error if the product cannot be created.
	Create(ctx context.Context, p NewProduct) (*Product, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// GetStock reports the current available quantity for a product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	GetStock(ctx context.Context, id uuid.UUID) (int32, error)

	// AdjustStock applies stock += delta as a single atomic update.
	// It performs arithmetic, not policy: the result may go negative if the
	// caller did not check availability first.
	// Returns ErrProductNotFound if the product vanished before the update.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*Product, error)

	// ReserveStock decrements stock by qty in a single conditional update
	// that only applies while stock >= qty. Two concurrent reservations for
	// the last unit resolve to exactly one winner.
	// Returns ErrInsufficientStock when the condition fails and
	// ErrProductNotFound if no product exists with the given ID.
	ReserveStock(ctx context.Context, id uuid.UUID, qty int32) error

	// FindBelowRequested reports the IDs of products whose current stock is
	// below the requested quantity. The check races with live adjustments and
	// is advisory only; products that no longer exist are reported as failed.
	FindBelowRequested(ctx context.Context, requests []StockRequest) ([]uuid.UUID, error)
}
