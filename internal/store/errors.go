package store

import "errors"

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned by DecrementQuantity when the item holds
	// less than the requested amount.
	ErrInsufficientStock = errors.New("insufficient stock")
)
