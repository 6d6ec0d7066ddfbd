// Package errors provides custom error types for product and stock operations.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrInsufficientStock = errors.New("insufficient stock")
