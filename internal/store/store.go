// Package store provides the storage port for products.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/project-final/product-service/internal/model"
)

// ProductStore is the storage port for products. It abstracts the
// underlying data store, allowing for different implementations (e.g.
// in-memory, database). Query semantics are part of the contract:
// SearchByName matches a case-sensitive substring, FindByPriceRange is
// inclusive on both bounds and FindLowStock is a strict less-than.
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns *errors.NotFoundError if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// FindAll returns every stored product, in store order.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]model.Product, error)

	// Create persists a new product and returns it with the assigned ID.
	Create(ctx context.Context, product *model.Product) (*model.Product, error)

	// Update overwrites an existing product's attributes.
	// Returns *errors.NotFoundError if no product exists with the given ID.
	Update(ctx context.Context, product *model.Product) (*model.Product, error)

	// DeleteByID removes a product by its ID.
	// Returns *errors.NotFoundError if no product exists with the given ID;
	// no delete is issued in that case.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// SearchByName returns products whose name contains the given
	// substring (case-sensitive).
	SearchByName(ctx context.Context, name string) ([]model.Product, error)

	// FindAvailable returns products with stock greater than zero.
	FindAvailable(ctx context.Context) ([]model.Product, error)

	// FindByPriceRange returns products with minPrice <= price <= maxPrice.
	FindByPriceRange(ctx context.Context, minPrice, maxPrice decimal.Decimal) ([]model.Product, error)

	// FindLowStock returns products with stock strictly below threshold.
	FindLowStock(ctx context.Context, threshold int32) ([]model.Product, error)

	// CountAll returns the total number of products.
	CountAll(ctx context.Context) (int64, error)

	// CountAvailable returns the number of products with stock greater than zero.
	CountAvailable(ctx context.Context) (int64, error)

	// HasEnoughStock reports whether the product's stock covers quantity,
	// using a single existence+comparison query. An unknown ID yields
	// (false, nil), not an error.
	HasEnoughStock(ctx context.Context, id uuid.UUID, quantity int32) (bool, error)

	// MutateStock runs fn against the product's current state inside a
	// transactional read-modify-write, so concurrent stock deltas on the
	// same product serialize. The mutated stock is persisted only when fn
	// returns nil; fn's error aborts the transaction and is returned as-is.
	// Returns *errors.NotFoundError if no product exists with the given ID.
	MutateStock(ctx context.Context, id uuid.UUID, fn func(p *model.Product) error) (*model.Product, error)
}
