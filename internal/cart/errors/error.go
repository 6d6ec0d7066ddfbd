// Package errors provides custom error types for cart operations.
package errors

import "errors"

// ErrCartNotFound is returned when the cart ID does not resolve to a cart.
var ErrCartNotFound = errors.New("cart not found")

// ErrItemNotFound is returned when the cart exists but holds no line item
// for the product. Callers must be able to distinguish it from ErrCartNotFound.
var ErrItemNotFound = errors.New("product not present in cart")

// ErrNoStockAvailable is a normal negative-path result, not a failure: the
// product is currently unavailable and the cart was left unchanged.
var ErrNoStockAvailable = errors.New("no stock available")

// ErrInvalidInput is returned for non-positive quantities or prices.
var ErrInvalidInput = errors.New("invalid quantity or price")

// ErrInventoryDrift is returned when a compensating stock credit or debit
// could not be applied: the ledger and the cart may disagree and an operator
// has to reconcile them.
var ErrInventoryDrift = errors.New("inventory drift: compensating stock adjustment failed")
