// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	perrors "github.com/project-final/product-service/internal/errors"
	"github.com/project-final/product-service/internal/model"
	"github.com/project-final/product-service/internal/store"
)

// defaultLowStockThreshold is used when no (or a negative) threshold is given.
const defaultLowStockThreshold = 10

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// Create validates a draft and persists a new product.
	// Returns *errors.ValidationError for malformed drafts.
	Create(ctx context.Context, draft *ProductDraftDto) (*ProductDto, error)

	// FindAll returns every stored product.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns *errors.NotFoundError if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// Update re-validates the draft and overwrites the existing product's
	// attributes, preserving its ID and creation time.
	// Returns *errors.NotFoundError if no product exists with the given ID.
	Update(ctx context.Context, id uuid.UUID, draft *ProductDraftDto) (*ProductDto, error)

	// DeleteByID removes a product. The returned DTO describes the product
	// as it was at deletion time.
	// Returns *errors.NotFoundError if no product exists with the given ID;
	// the store's delete is never issued in that case.
	DeleteByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// SearchByName returns products whose name contains the given
	// substring. Returns *errors.ValidationError for a blank query.
	SearchByName(ctx context.Context, name string) ([]ProductDto, error)

	// FindAvailable returns products with stock greater than zero.
	FindAvailable(ctx context.Context) ([]ProductDto, error)

	// FindByPriceRange returns products priced within the inclusive range.
	// Returns *errors.ValidationError when a bound is missing, negative or
	// the range is inverted.
	FindByPriceRange(ctx context.Context, minPrice, maxPrice *decimal.Decimal) ([]ProductDto, error)

	// FindLowStock returns products with stock strictly below threshold.
	// A nil or negative threshold defaults to 10.
	FindLowStock(ctx context.Context, threshold *int32) ([]ProductDto, error)

	// ReduceStock atomically decrements a product's stock.
	// Entity-level validation and insufficient-stock failures propagate
	// typed; anything else surfaces as *errors.StockOperationError.
	ReduceStock(ctx context.Context, id uuid.UUID, quantity int32) (bool, error)

	// IncreaseStock atomically increments a product's stock; symmetric to
	// ReduceStock, with no upper bound.
	IncreaseStock(ctx context.Context, id uuid.UUID, quantity int32) (bool, error)

	// HasEnoughStock reports whether the product's stock covers quantity.
	// An unknown ID yields false, not an error.
	HasEnoughStock(ctx context.Context, id uuid.UUID, quantity int32) (bool, error)

	// CountAll returns the total number of products.
	CountAll(ctx context.Context) (int64, error)

	// CountAvailable returns the number of products with stock.
	CountAvailable(ctx context.Context) (int64, error)
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
}

// NewService creates a new instance of ProductService with the provided repository.
func NewService(repo store.ProductStore) *Service {
	return &Service{
		repository: repo,
	}
}

// ProductDraftDto carries the client-supplied attributes for create and
// update. Pointer fields distinguish "absent" from zero values; the service
// layer owns the authoritative validation.
type ProductDraftDto struct {
	Name        string           `json:"name"        validate:"required,max=255"`
	Description string           `json:"description" validate:"max=1000"`
	Price       *decimal.Decimal `json:"price"       validate:"required"`
	Stock       *int32           `json:"stock"       validate:"required,min=0"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int32           `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Create validates the draft, persists it and returns the stored product
// with its assigned ID and timestamps.
func (s *Service) Create(ctx context.Context, draft *ProductDraftDto) (*ProductDto, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	product := model.New(draft.Name, draft.Description, *draft.Price, *draft.Stock)
	created, err := s.repository.Create(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toDto(created), nil
}

// FindAll retrieves every stored product.
func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return toDtos(products), nil
}

// FindByID retrieves a product by its ID.
// Returns *errors.NotFoundError if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	return toDto(product), nil
}

// Update overwrites an existing product's attributes with a re-validated
// draft, preserving ID and creation time.
func (s *Service) Update(ctx context.Context, id uuid.UUID, draft *ProductDraftDto) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	product.SetName(draft.Name)
	product.SetDescription(draft.Description)
	if err := product.SetPrice(*draft.Price); err != nil {
		return nil, err
	}
	if err := product.SetStock(*draft.Stock); err != nil {
		return nil, err
	}

	updated, err := s.repository.Update(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	return toDto(updated), nil
}

// DeleteByID removes a product and returns its state at deletion time.
// The existence check runs first, so an unknown ID never reaches the
// store's delete.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	if err := s.repository.DeleteByID(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	return toDto(product), nil
}

// SearchByName returns products whose name contains the given substring.
func (s *Service) SearchByName(ctx context.Context, name string) ([]ProductDto, error) {
	if strings.TrimSpace(name) == "" {
		return nil, perrors.NewValidationError("name", "search name must not be empty")
	}
	products, err := s.repository.SearchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search products by name: %w", err)
	}
	return toDtos(products), nil
}

// FindAvailable returns products with stock greater than zero.
func (s *Service) FindAvailable(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.FindAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch available products: %w", err)
	}
	return toDtos(products), nil
}

// FindByPriceRange returns products priced within [minPrice, maxPrice].
func (s *Service) FindByPriceRange(ctx context.Context, minPrice, maxPrice *decimal.Decimal) ([]ProductDto, error) {
	if minPrice == nil || maxPrice == nil {
		return nil, perrors.NewValidationError("", "minimum and maximum prices are required")
	}
	if minPrice.Sign() < 0 || maxPrice.Sign() < 0 {
		return nil, perrors.NewValidationError("", "prices must not be negative")
	}
	if minPrice.GreaterThan(*maxPrice) {
		return nil, perrors.InvalidPriceRange()
	}
	products, err := s.repository.FindByPriceRange(ctx, *minPrice, *maxPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products by price range: %w", err)
	}
	return toDtos(products), nil
}

// FindLowStock returns products with stock strictly below threshold.
func (s *Service) FindLowStock(ctx context.Context, threshold *int32) ([]ProductDto, error) {
	t := int32(defaultLowStockThreshold)
	if threshold != nil && *threshold >= 0 {
		t = *threshold
	}
	products, err := s.repository.FindLowStock(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch low stock products: %w", err)
	}
	return toDtos(products), nil
}

// ReduceStock atomically decrements a product's stock by quantity.
func (s *Service) ReduceStock(ctx context.Context, id uuid.UUID, quantity int32) (bool, error) {
	if err := validateStockArgs(id, quantity); err != nil {
		return false, err
	}
	_, err := s.repository.MutateStock(ctx, id, func(p *model.Product) error {
		return p.ReduceStock(quantity)
	})
	if err != nil {
		return false, classifyStockError(id, perrors.OpReduce, err)
	}
	return true, nil
}

// IncreaseStock atomically increments a product's stock by quantity.
func (s *Service) IncreaseStock(ctx context.Context, id uuid.UUID, quantity int32) (bool, error) {
	if err := validateStockArgs(id, quantity); err != nil {
		return false, err
	}
	_, err := s.repository.MutateStock(ctx, id, func(p *model.Product) error {
		return p.IncreaseStock(quantity)
	})
	if err != nil {
		return false, classifyStockError(id, perrors.OpIncrease, err)
	}
	return true, nil
}

// HasEnoughStock reports whether the product's stock covers quantity.
func (s *Service) HasEnoughStock(ctx context.Context, id uuid.UUID, quantity int32) (bool, error) {
	if err := validateStockArgs(id, quantity); err != nil {
		return false, err
	}
	enough, err := s.repository.HasEnoughStock(ctx, id, quantity)
	if err != nil {
		return false, fmt.Errorf("failed to check stock for product %s: %w", id, err)
	}
	return enough, nil
}

// CountAll returns the total number of products.
func (s *Service) CountAll(ctx context.Context) (int64, error) {
	count, err := s.repository.CountAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// CountAvailable returns the number of products with stock.
func (s *Service) CountAvailable(ctx context.Context) (int64, error) {
	count, err := s.repository.CountAvailable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count available products: %w", err)
	}
	return count, nil
}

// validateStockArgs guards the stock delta and check operations.
func validateStockArgs(id uuid.UUID, quantity int32) error {
	if id == uuid.Nil {
		return perrors.NewValidationError("productId", "product ID must not be empty")
	}
	if quantity <= 0 {
		return perrors.InvalidQuantity()
	}
	return nil
}

// classifyStockError keeps entity-level failures typed and wraps everything
// else (including not-found) as a StockOperationError carrying the cause.
func classifyStockError(id uuid.UUID, operation string, err error) error {
	var vErr *perrors.ValidationError
	var stockErr *perrors.InsufficientStockError
	if errors.As(err, &vErr) || errors.As(err, &stockErr) {
		return err
	}
	return &perrors.StockOperationError{ProductID: id, Operation: operation, Cause: err}
}

// validateDraft enforces the product field rules before any persistence attempt.
func validateDraft(draft *ProductDraftDto) error {
	if draft == nil {
		return perrors.NewValidationError("", "product data must not be nil")
	}
	if strings.TrimSpace(draft.Name) == "" {
		return perrors.EmptyName()
	}
	if draft.Price == nil {
		return perrors.NewValidationError("price", "price is required")
	}
	if draft.Price.Sign() <= 0 {
		return perrors.InvalidPrice(draft.Price.String())
	}
	if draft.Stock == nil {
		return perrors.NewValidationError("stock", "stock is required")
	}
	if *draft.Stock < 0 {
		return perrors.NegativeStock(*draft.Stock)
	}
	if len(draft.Name) > 255 {
		return perrors.NameTooLong()
	}
	if len(draft.Description) > 1000 {
		return perrors.DescriptionTooLong()
	}
	return nil
}

// toDto converts a model.Product to a ProductDto.
func toDto(product *model.Product) *ProductDto {
	return &ProductDto{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

// toDtos converts a slice of products.
func toDtos(products []model.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i, item := range products {
		dtos[i] = *toDto(&item)
	}
	return dtos
}
