// Package store provides an interface for cart storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LineItem is one (product reference, quantity) pair inside a cart, the form
// the cart persists. Product details live in the product directory only.
type LineItem struct {
	ProductID uuid.UUID
	Quantity  int32
}

// ResolvedItem is a line item joined with its product snapshot, the
// denormalized read model returned by Get.
type ResolvedItem struct {
	ProductID uuid.UUID
	Title     string
	UnitPrice int64 // price in cents
	Quantity  int32
}

// Cart is the read model for a cart: an ordered sequence of resolved line items.
type Cart struct {
	ID        uuid.UUID
	Items     []ResolvedItem
	CreatedAt time.Time
}

// CartStore is an interface for cart storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
// Invariants upheld by every implementation: at most one line item per
// product (quantities merge, never duplicate) and no stored line item with
// quantity <= 0.
type CartStore interface {
	// Create allocates an empty cart and returns its identifier.
	Create(ctx context.Context) (uuid.UUID, error)

	// Get resolves the cart's line items with their product snapshots.
	// Line items whose product no longer exists are omitted from the read model.
	// Returns ErrCartNotFound if the cart id does not exist.
	Get(ctx context.Context, cartID uuid.UUID) (*Cart, error)

	// SetLineItems replaces the entire line-item list atomically.
	// Items with quantity <= 0 are discarded.
	// Returns ErrCartNotFound if the cart id does not exist.
	SetLineItems(ctx context.Context, cartID uuid.UUID, items []LineItem) error

	// UpsertLineItem adds delta to the quantity of the product's line item,
	// inserting it when absent (positive delta only) and removing it when the
	// result drops to zero or below. It returns the resulting quantity.
	// Returns ErrCartNotFound if the cart id does not exist and
	// ErrItemNotFound when a non-positive delta targets an absent item.
	UpsertLineItem(ctx context.Context, cartID, productID uuid.UUID, delta int32) (int32, error)

	// RemoveLineItem deletes the product's line item regardless of quantity
	// and returns the removed quantity.
	// Returns ErrCartNotFound and ErrItemNotFound distinctly.
	RemoveLineItem(ctx context.Context, cartID, productID uuid.UUID) (int32, error)

	// Clear sets the line-item list to empty.
	// Returns ErrCartNotFound if the cart id does not exist.
	Clear(ctx context.Context, cartID uuid.UUID) error
}
