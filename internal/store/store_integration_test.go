package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	perrors "github.com/project-final/product-service/internal/errors"
	"github.com/project-final/product-service/internal/model"
)

const skipIntegrationTests = "PRODUCT_SKIP_INTEGRATION_TESTS"

// ProductStoreSuite is a test suite for the PostgreSQL ProductStore implementation.
type ProductStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       ProductStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts a PostgreSQL container, connects a pool and applies the migrations.
func (s *ProductStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "products_db"
	dbUser := "user"
	dbPassword := "password"

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../migrations")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for integration tests")

	s.store = NewPgStore(s.dbPool)
	s.logger.Info("Initialization complete for ProductStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *ProductStoreSuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info("DB pool closed.")
	}
	if s.pgContainer != nil {
		s.logger.Info("Terminating PostgreSQL container...")
		err := s.pgContainer.Terminate(s.ctx)
		if err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		} else {
			s.logger.Info("PostgreSQL container terminated.")
		}
	}
}

// SetupTest prepares the database for each test by truncating the products table.
func (s *ProductStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE products")
	require.NoError(s.T(), err, "Failed to truncate products table")
}

// TestProductStoreIntegration runs the ProductStore integration tests.
func TestProductStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(ProductStoreSuite))
}

// createTestProduct persists a product and fails the test on error.
func (s *ProductStoreSuite) createTestProduct(name, description, price string, stock int32) *model.Product {
	s.T().Helper()
	created, err := s.store.Create(s.ctx, model.New(name, description, decimal.RequireFromString(price), stock))
	require.NoError(s.T(), err, "createTestProduct helper failed to create product")
	return created
}

func (s *ProductStoreSuite) TestCreate() {
	s.SetupTest()
	// given
	product := model.New("Widget", "a widget", decimal.RequireFromString("9.99"), 10)

	// when
	created, err := s.store.Create(s.ctx, product)

	// then
	require.NoError(s.T(), err, "Create should not return an error")
	require.NotEqual(s.T(), uuid.Nil, created.ID, "Created product ID should be assigned")
	require.Equal(s.T(), "Widget", created.Name)
	require.Equal(s.T(), "a widget", created.Description)
	require.True(s.T(), created.Price.Equal(decimal.RequireFromString("9.99")), "Price should round-trip")
	require.Equal(s.T(), int32(10), created.Stock)
	require.NotZero(s.T(), created.CreatedAt, "CreatedAt should be set")
}

func (s *ProductStoreSuite) TestCreate_EmptyDescriptionRoundTrips() {
	s.SetupTest()
	// given
	created := s.createTestProduct("Widget", "", "9.99", 10)

	// when
	fetched, err := s.store.FindByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), "", fetched.Description, "NULL description should read back as empty string")
}

func (s *ProductStoreSuite) TestFindByID() {
	s.SetupTest()
	// given
	created := s.createTestProduct("Widget", "a widget", "9.99", 10)

	// when
	fetched, err := s.store.FindByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err, "FindByID should not return an error")
	require.Equal(s.T(), created.ID, fetched.ID)
	require.Equal(s.T(), created.Name, fetched.Name)
	require.True(s.T(), fetched.Price.Equal(created.Price))
	require.Equal(s.T(), created.Stock, fetched.Stock)
	require.WithinDuration(s.T(), created.CreatedAt, fetched.CreatedAt, time.Second)
}

func (s *ProductStoreSuite) TestFindByID_NotFound() {
	s.SetupTest()
	// given (no products created)

	// when
	_, err := s.store.FindByID(s.ctx, uuid.New())

	// then
	var notFound *perrors.NotFoundError
	require.ErrorAs(s.T(), err, &notFound, "Expected NotFoundError for non-existent product")
}

func (s *ProductStoreSuite) TestUpdate() {
	s.SetupTest()
	// given
	created := s.createTestProduct("Widget", "a widget", "9.99", 10)
	created.Name = "Gadget"
	created.Description = ""
	require.NoError(s.T(), created.SetPrice(decimal.RequireFromString("19.99")))
	require.NoError(s.T(), created.SetStock(3))

	// when
	updated, err := s.store.Update(s.ctx, created)

	// then
	require.NoError(s.T(), err, "Update should not return an error")
	require.Equal(s.T(), created.ID, updated.ID)
	require.Equal(s.T(), "Gadget", updated.Name)
	require.Equal(s.T(), "", updated.Description)
	require.True(s.T(), updated.Price.Equal(decimal.RequireFromString("19.99")))
	require.Equal(s.T(), int32(3), updated.Stock)
}

func (s *ProductStoreSuite) TestUpdate_NotFound() {
	s.SetupTest()
	// given
	ghost := model.New("Ghost", "", decimal.RequireFromString("1.00"), 1)
	ghost.ID = uuid.New()

	// when
	_, err := s.store.Update(s.ctx, ghost)

	// then
	var notFound *perrors.NotFoundError
	require.ErrorAs(s.T(), err, &notFound)
	require.Equal(s.T(), ghost.ID, notFound.ProductID)
}

func (s *ProductStoreSuite) TestDeleteByID() {
	s.SetupTest()
	// given
	created := s.createTestProduct("Widget", "a widget", "9.99", 10)

	// when
	err := s.store.DeleteByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err, "DeleteByID should not return an error")
	_, err = s.store.FindByID(s.ctx, created.ID)
	var notFound *perrors.NotFoundError
	require.ErrorAs(s.T(), err, &notFound, "Deleted product should no longer be found")
}

func (s *ProductStoreSuite) TestDeleteByID_NotFound() {
	s.SetupTest()

	// when
	err := s.store.DeleteByID(s.ctx, uuid.New())

	// then
	var notFound *perrors.NotFoundError
	require.ErrorAs(s.T(), err, &notFound)
}

func (s *ProductStoreSuite) TestSearchByName() {
	s.SetupTest()
	// given
	s.createTestProduct("Blue Widget", "", "9.99", 10)
	s.createTestProduct("Red Widget", "", "12.50", 0)
	s.createTestProduct("Gadget", "", "5.00", 3)
	s.createTestProduct("100% Juice", "", "2.00", 8)

	testCases := []struct {
		name          string
		query         string
		expectedNames []string
	}{
		{name: "Substring match", query: "Widget", expectedNames: []string{"Blue Widget", "Red Widget"}},
		{name: "Case sensitive", query: "widget", expectedNames: []string{}},
		{name: "Wildcards are literal", query: "100%", expectedNames: []string{"100% Juice"}},
		{name: "No match", query: "Sprocket", expectedNames: []string{}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			// when
			found, err := s.store.SearchByName(s.ctx, tc.query)

			// then
			require.NoError(s.T(), err)
			names := make([]string, 0, len(found))
			for _, p := range found {
				names = append(names, p.Name)
			}
			assert.ElementsMatch(s.T(), tc.expectedNames, names)
		})
	}
}

func (s *ProductStoreSuite) TestQueryFilters() {
	s.SetupTest()
	// given
	s.createTestProduct("Cheap", "", "1.00", 0)
	s.createTestProduct("Mid", "", "10.00", 5)
	s.createTestProduct("Expensive", "", "100.00", 50)

	s.Run("FindAvailable skips zero stock", func() {
		available, err := s.store.FindAvailable(s.ctx)
		require.NoError(s.T(), err)
		require.Len(s.T(), available, 2)
		for _, p := range available {
			assert.Positive(s.T(), p.Stock)
		}
	})

	s.Run("FindByPriceRange bounds are inclusive", func() {
		found, err := s.store.FindByPriceRange(s.ctx,
			decimal.RequireFromString("1.00"), decimal.RequireFromString("10.00"))
		require.NoError(s.T(), err)
		require.Len(s.T(), found, 2)
	})

	s.Run("FindLowStock threshold is exclusive", func() {
		low, err := s.store.FindLowStock(s.ctx, 5)
		require.NoError(s.T(), err)
		require.Len(s.T(), low, 1)
		assert.Equal(s.T(), "Cheap", low[0].Name)
	})

	s.Run("Counts", func() {
		total, err := s.store.CountAll(s.ctx)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), int64(3), total)

		available, err := s.store.CountAvailable(s.ctx)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), int64(2), available)
	})
}

func (s *ProductStoreSuite) TestHasEnoughStock() {
	s.SetupTest()
	// given
	created := s.createTestProduct("Widget", "", "9.99", 10)

	testCases := []struct {
		name     string
		id       uuid.UUID
		quantity int32
		expected bool
	}{
		{name: "Enough stock", id: created.ID, quantity: 10, expected: true},
		{name: "Not enough stock", id: created.ID, quantity: 11, expected: false},
		{name: "Unknown product", id: uuid.New(), quantity: 1, expected: false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			// when
			enough, err := s.store.HasEnoughStock(s.ctx, tc.id, tc.quantity)

			// then
			require.NoError(s.T(), err)
			assert.Equal(s.T(), tc.expected, enough)
		})
	}
}

func (s *ProductStoreSuite) TestMutateStock() {
	s.SetupTest()
	// given
	created := s.createTestProduct("Widget", "", "9.99", 10)

	// when
	mutated, err := s.store.MutateStock(s.ctx, created.ID, func(pr *model.Product) error {
		return pr.ReduceStock(3)
	})

	// then
	require.NoError(s.T(), err, "MutateStock should not return an error")
	require.Equal(s.T(), int32(7), mutated.Stock)

	fetched, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int32(7), fetched.Stock, "Mutated stock should be committed")
	require.True(s.T(), fetched.UpdatedAt.After(created.UpdatedAt) || fetched.UpdatedAt.Equal(created.UpdatedAt))
}

func (s *ProductStoreSuite) TestMutateStock_CallbackErrorRollsBack() {
	s.SetupTest()
	// given
	created := s.createTestProduct("Widget", "", "9.99", 7)

	// when
	_, err := s.store.MutateStock(s.ctx, created.ID, func(pr *model.Product) error {
		return pr.ReduceStock(100)
	})

	// then
	var stockErr *perrors.InsufficientStockError
	require.ErrorAs(s.T(), err, &stockErr, "Callback error should propagate")
	assert.Equal(s.T(), int32(7), stockErr.Available)

	fetched, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int32(7), fetched.Stock, "Stock must be unchanged after rollback")
}

func (s *ProductStoreSuite) TestMutateStock_NotFound() {
	s.SetupTest()

	// when
	_, err := s.store.MutateStock(s.ctx, uuid.New(), func(pr *model.Product) error {
		return pr.ReduceStock(1)
	})

	// then
	var notFound *perrors.NotFoundError
	require.ErrorAs(s.T(), err, &notFound)
}

func (s *ProductStoreSuite) TestMutateStock_ConcurrentReductionsSerialize() {
	s.SetupTest()
	// given
	created := s.createTestProduct("Widget", "", "9.99", 10)

	// when: two concurrent reductions of 4 against stock 10
	errCh := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := s.store.MutateStock(s.ctx, created.ID, func(pr *model.Product) error {
				return pr.ReduceStock(4)
			})
			errCh <- err
		}()
	}
	require.NoError(s.T(), <-errCh)
	require.NoError(s.T(), <-errCh)

	// then: both reductions are applied, none is lost
	fetched, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int32(2), fetched.Stock)
}
