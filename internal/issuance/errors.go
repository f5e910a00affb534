package issuance

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the Coordinator. Use errors.Is to classify a
// failure and errors.As with *ValidationError or *InsufficientStockError to
// get the details.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrCommitFailed means storage failed and nothing was written. The
	// request can be retried as-is.
	ErrCommitFailed = errors.New("commit failed")
)

// ValidationError describes a request field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// InsufficientStockError reports how much of an item was available when a
// request asked for more.
type InsufficientStockError struct {
	ItemID    int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func itemNotFound(id int64) error {
	return fmt.Errorf("%w: %d", ErrItemNotFound, id)
}

func commitFailed(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCommitFailed, step, err)
}

// reason is a short label for metrics and logs.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrCommitFailed):
		return "commit_failed"
	}
	return "unknown"
}
