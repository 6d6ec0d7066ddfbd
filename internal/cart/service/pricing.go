package service

import (
	"fmt"

	carterrors "github.com/mkarev/storefront/internal/cart/errors"
	"github.com/mkarev/storefront/internal/cart/store"
)

// ComputeTotal computes the purchase total, in cents, as the sum of
// quantity * unit price over the given line items. It is a pure function.
// Returns ErrInvalidInput when a quantity or price is negative.
// Prices are integer cents, so totals cannot accumulate floating-point drift.
func ComputeTotal(items []store.ResolvedItem) (int64, error) {
	var total int64
	for _, item := range items {
		if item.Quantity < 0 {
			return 0, fmt.Errorf("%w: quantity %d for product %s", carterrors.ErrInvalidInput, item.Quantity, item.ProductID)
		}
		if item.UnitPrice < 0 {
			return 0, fmt.Errorf("%w: unit price %d for product %s", carterrors.ErrInvalidInput, item.UnitPrice, item.ProductID)
		}
		total += int64(item.Quantity) * item.UnitPrice
	}
	return total, nil
}
