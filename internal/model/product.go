// Package model holds the product entity and its field-level invariants.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	perrors "github.com/project-final/product-service/internal/errors"
)

// Product is a persisted catalog entry. Invariants are enforced at the
// point of mutation: Price is always greater than zero and Stock is never
// negative. Every successful mutation refreshes UpdatedAt.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New constructs an unpersisted product. The ID is assigned by the store on
// creation; CreatedAt and UpdatedAt start equal.
func New(name, description string, price decimal.Decimal, stock int32) *Product {
	now := time.Now().UTC()
	return &Product{
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}

// SetName overwrites the name and stamps UpdatedAt. Length rules are owned
// by the service layer.
func (p *Product) SetName(name string) {
	p.Name = name
	p.touch()
}

// SetDescription overwrites the description and stamps UpdatedAt.
func (p *Product) SetDescription(description string) {
	p.Description = description
	p.touch()
}

// SetPrice stores a new price. Fails when the price is not strictly
// positive; the entity is left untouched on failure.
func (p *Product) SetPrice(price decimal.Decimal) error {
	if price.Sign() <= 0 {
		return perrors.InvalidPrice(price.String())
	}
	p.Price = price
	p.touch()
	return nil
}

// SetStock stores a new stock quantity. Fails when the quantity is negative.
func (p *Product) SetStock(stock int32) error {
	if stock < 0 {
		return perrors.NegativeStock(stock)
	}
	p.Stock = stock
	p.touch()
	return nil
}

// ReduceStock decrements the stock by quantity. Fails with a validation
// error for a non-positive quantity and with InsufficientStockError when
// quantity exceeds the available stock; stock is unchanged on failure.
func (p *Product) ReduceStock(quantity int32) error {
	if quantity <= 0 {
		return perrors.InvalidQuantity()
	}
	if quantity > p.Stock {
		return perrors.NewInsufficientStockError(p.ID, p.Stock, quantity)
	}
	p.Stock -= quantity
	p.touch()
	return nil
}

// IncreaseStock increments the stock by quantity. There is no upper bound.
func (p *Product) IncreaseStock(quantity int32) error {
	if quantity <= 0 {
		return perrors.InvalidQuantity()
	}
	p.Stock += quantity
	p.touch()
	return nil
}

// HasEnoughStock reports whether the current stock covers quantity.
// Pure predicate, no side effects.
func (p *Product) HasEnoughStock(quantity int32) bool {
	return quantity > 0 && p.Stock >= quantity
}
