package store

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/project-final/product-service/internal/errors"
	"github.com/project-final/product-service/internal/model"
)

func seedProduct(t *testing.T, s ProductStore, name, price string, stock int32) *model.Product {
	t.Helper()
	created, err := s.Create(context.Background(), model.New(name, "", decimal.RequireFromString(price), stock))
	require.NoError(t, err)
	return created
}

func Test_InMemory_CreateAssignsID(t *testing.T) {
	// given
	s := NewInMemoryStore()
	// when
	created := seedProduct(t, s, "Widget", "9.99", 10)
	// then
	assert.NotEqual(t, uuid.Nil, created.ID)

	fetched, err := s.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
}

func Test_InMemory_FindByID_NotFound(t *testing.T) {
	// given
	s := NewInMemoryStore()
	// when
	_, err := s.FindByID(context.Background(), uuid.New())
	// then
	var notFound *perrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func Test_InMemory_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	created := seedProduct(t, s, "Widget", "9.99", 10)

	// update
	created.Name = "Gadget"
	updated, err := s.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Gadget", updated.Name)

	// update of an unknown product
	ghost := model.New("Ghost", "", decimal.RequireFromString("1.00"), 1)
	ghost.ID = uuid.New()
	_, err = s.Update(ctx, ghost)
	var notFound *perrors.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// delete
	require.NoError(t, s.DeleteByID(ctx, created.ID))
	require.ErrorAs(t, s.DeleteByID(ctx, created.ID), &notFound)
}

func Test_InMemory_QuerySemantics(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	seedProduct(t, s, "Blue Widget", "1.00", 0)
	seedProduct(t, s, "Red Widget", "10.00", 5)
	seedProduct(t, s, "Gadget", "100.00", 50)

	t.Run("SearchByName is case-sensitive substring", func(t *testing.T) {
		found, err := s.SearchByName(ctx, "Widget")
		require.NoError(t, err)
		assert.Len(t, found, 2)

		found, err = s.SearchByName(ctx, "widget")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("FindAvailable skips zero stock", func(t *testing.T) {
		available, err := s.FindAvailable(ctx)
		require.NoError(t, err)
		assert.Len(t, available, 2)
	})

	t.Run("FindByPriceRange bounds are inclusive", func(t *testing.T) {
		found, err := s.FindByPriceRange(ctx,
			decimal.RequireFromString("1.00"), decimal.RequireFromString("10.00"))
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("FindLowStock threshold is exclusive", func(t *testing.T) {
		low, err := s.FindLowStock(ctx, 5)
		require.NoError(t, err)
		require.Len(t, low, 1)
		assert.Equal(t, "Blue Widget", low[0].Name)
	})

	t.Run("Counts", func(t *testing.T) {
		total, err := s.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)

		available, err := s.CountAvailable(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), available)
	})

	t.Run("HasEnoughStock on unknown ID", func(t *testing.T) {
		enough, err := s.HasEnoughStock(ctx, uuid.New(), 1)
		require.NoError(t, err)
		assert.False(t, enough)
	})
}

func Test_InMemory_MutateStock(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	created := seedProduct(t, s, "Widget", "9.99", 10)

	// a failed mutation leaves the stored product untouched
	_, err := s.MutateStock(ctx, created.ID, func(p *model.Product) error {
		return p.ReduceStock(100)
	})
	var stockErr *perrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	fetched, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), fetched.Stock)

	// a successful mutation is visible afterwards
	mutated, err := s.MutateStock(ctx, created.ID, func(p *model.Product) error {
		return p.ReduceStock(3)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(7), mutated.Stock)
}

func Test_InMemory_ConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	created := seedProduct(t, s, "Widget", "9.99", 100)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MutateStock(ctx, created.ID, func(p *model.Product) error {
				return p.ReduceStock(1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	fetched, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), fetched.Stock)
}
