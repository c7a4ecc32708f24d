// Package errors provides the typed error taxonomy for product operations.
package errors

import (
	"fmt"

	"github.com/google/uuid"
)

// Stock operation tags carried by StockOperationError.
const (
	OpReduce   = "REDUCE"
	OpIncrease = "INCREASE"
)

// ValidationError reports malformed input, rejected before any persistence
// attempt. Field names the offending attribute and may be empty for
// cross-field failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports that no product exists with the given ID.
type NotFoundError struct {
	ProductID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product with ID %s not found", e.ProductID)
}

// NewNotFoundError creates a NotFoundError for the given product ID.
func NewNotFoundError(id uuid.UUID) *NotFoundError {
	return &NotFoundError{ProductID: id}
}

// InsufficientStockError reports a stock reduction that exceeds the
// available quantity. Available holds the pre-operation stock.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int32
	Requested int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// NewInsufficientStockError creates an InsufficientStockError.
func NewInsufficientStockError(id uuid.UUID, available, requested int32) *InsufficientStockError {
	return &InsufficientStockError{ProductID: id, Available: available, Requested: requested}
}

// StockOperationError reports a failed stock delta operation. Cause carries
// the underlying failure and is reachable through errors.As / errors.Is.
type StockOperationError struct {
	ProductID uuid.UUID
	Operation string
	Cause     error
}

func (e *StockOperationError) Error() string {
	return fmt.Sprintf("stock operation %s failed for product %s: %v", e.Operation, e.ProductID, e.Cause)
}

func (e *StockOperationError) Unwrap() error {
	return e.Cause
}

// ReductionFailed wraps a failure of a stock reduction.
func ReductionFailed(id uuid.UUID, cause error) *StockOperationError {
	return &StockOperationError{ProductID: id, Operation: OpReduce, Cause: cause}
}

// IncreaseFailed wraps a failure of a stock increase.
func IncreaseFailed(id uuid.UUID, cause error) *StockOperationError {
	return &StockOperationError{ProductID: id, Operation: OpIncrease, Cause: cause}
}

// Common validation failures.

func EmptyName() *ValidationError {
	return NewValidationError("name", "product name must not be empty")
}

func NameTooLong() *ValidationError {
	return NewValidationError("name", "product name must not exceed 255 characters")
}

func DescriptionTooLong() *ValidationError {
	return NewValidationError("description", "description must not exceed 1000 characters")
}

func InvalidPrice(price string) *ValidationError {
	return NewValidationError("price", fmt.Sprintf("invalid price %s: price must be greater than zero", price))
}

func NegativeStock(stock int32) *ValidationError {
	return NewValidationError("stock", fmt.Sprintf("stock must not be negative: %d", stock))
}

func InvalidQuantity() *ValidationError {
	return NewValidationError("quantity", "quantity must be greater than zero")
}

func InvalidPriceRange() *ValidationError {
	return NewValidationError("", "minimum price must not be greater than maximum price")
}
