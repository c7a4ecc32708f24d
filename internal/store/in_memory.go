package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	perrors "github.com/project-final/product-service/internal/errors"
	"github.com/project-final/product-service/internal/model"
)

// inMemory implements ProductStore using a mutex-guarded map. It honors the
// same query semantics as PgStore and is used by tests.
type inMemory struct {
	mu       sync.RWMutex
	products map[uuid.UUID]model.Product
}

// NewInMemoryStore creates an empty in-memory ProductStore.
func NewInMemoryStore() ProductStore {
	return &inMemory{
		products: make(map[uuid.UUID]model.Product),
	}
}

func (s *inMemory) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, perrors.NewNotFoundError(id)
	}
	return &p, nil
}

func (s *inMemory) FindAll(_ context.Context) ([]model.Product, error) {
	return s.filter(func(model.Product) bool { return true }), nil
}

func (s *inMemory) Create(_ context.Context, product *model.Product) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *product
	p.ID = uuid.New()
	s.products[p.ID] = p
	return &p, nil
}

func (s *inMemory) Update(_ context.Context, product *model.Product) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, perrors.NewNotFoundError(product.ID)
	}
	p := *product
	s.products[p.ID] = p
	return &p, nil
}

func (s *inMemory) DeleteByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return perrors.NewNotFoundError(id)
	}
	delete(s.products, id)
	return nil
}

func (s *inMemory) SearchByName(_ context.Context, name string) ([]model.Product, error) {
	return s.filter(func(p model.Product) bool {
		return strings.Contains(p.Name, name)
	}), nil
}

func (s *inMemory) FindAvailable(_ context.Context) ([]model.Product, error) {
	return s.filter(func(p model.Product) bool { return p.Stock > 0 }), nil
}

func (s *inMemory) FindByPriceRange(_ context.Context, minPrice, maxPrice decimal.Decimal) ([]model.Product, error) {
	return s.filter(func(p model.Product) bool {
		return p.Price.GreaterThanOrEqual(minPrice) && p.Price.LessThanOrEqual(maxPrice)
	}), nil
}

func (s *inMemory) FindLowStock(_ context.Context, threshold int32) ([]model.Product, error) {
	return s.filter(func(p model.Product) bool { return p.Stock < threshold }), nil
}

func (s *inMemory) CountAll(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.products)), nil
}

func (s *inMemory) CountAvailable(ctx context.Context) (int64, error) {
	available, _ := s.FindAvailable(ctx)
	return int64(len(available)), nil
}

func (s *inMemory) HasEnoughStock(_ context.Context, id uuid.UUID, quantity int32) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	return p.Stock >= quantity, nil
}

func (s *inMemory) MutateStock(_ context.Context, id uuid.UUID, fn func(p *model.Product) error) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, perrors.NewNotFoundError(id)
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	s.products[id] = p
	return &p, nil
}

// filter returns copies of the stored products matching pred, ordered by
// creation time to mirror the SQL store.
func (s *inMemory) filter(pred func(model.Product) bool) []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if pred(p) {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}
