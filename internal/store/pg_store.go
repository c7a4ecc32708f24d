package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	perrors "github.com/project-final/product-service/internal/errors"
	"github.com/project-final/product-service/internal/model"
)

// productColumns is the select list shared by every product query. The
// price is read as text so it round-trips through decimal.Decimal without
// loss, and a NULL description maps to the empty string.
const productColumns = `id, name, COALESCE(description, ''), price::text, stock, created_at, updated_at`

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new ProductStore backed by a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// FindByID retrieves a product by its unique identifier.
// Returns *errors.NotFoundError if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	row := p.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.NewNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// FindAll retrieves every stored product ordered by creation time.
func (p *PgStore) FindAll(ctx context.Context) ([]model.Product, error) {
	return p.queryMany(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at`)
}

// Create persists a new product and returns it with the store-assigned ID.
func (p *PgStore) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO products (name, description, price, stock, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), $3::numeric, $4, $5, $6)
		 RETURNING `+productColumns,
		product.Name, product.Description, product.Price.String(), product.Stock,
		product.CreatedAt, product.UpdatedAt)
	created, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return created, nil
}

// Update overwrites an existing product's attributes.
// Returns *errors.NotFoundError if no product exists with the given ID.
func (p *PgStore) Update(ctx context.Context, product *model.Product) (*model.Product, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE products
		 SET name = $2, description = NULLIF($3, ''), price = $4::numeric, stock = $5, updated_at = $6
		 WHERE id = $1
		 RETURNING `+productColumns,
		product.ID, product.Name, product.Description, product.Price.String(), product.Stock,
		product.UpdatedAt)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.NewNotFoundError(product.ID)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return updated, nil
}

// DeleteByID removes a product by its unique identifier.
// Returns *errors.NotFoundError if no product exists with the given ID.
func (p *PgStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return perrors.NewNotFoundError(id)
	}
	return nil
}

// SearchByName returns products whose name contains the given substring.
// The match is case-sensitive; LIKE wildcards in the query are escaped.
func (p *PgStore) SearchByName(ctx context.Context, name string) ([]model.Product, error) {
	pattern := "%" + likeEscaper.Replace(name) + "%"
	return p.queryMany(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE name LIKE $1 ESCAPE '\' ORDER BY created_at`, pattern)
}

// likeEscaper neutralizes LIKE wildcards in user-supplied search terms.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FindAvailable returns products with stock greater than zero.
func (p *PgStore) FindAvailable(ctx context.Context) ([]model.Product, error) {
	return p.queryMany(ctx, `SELECT `+productColumns+` FROM products WHERE stock > 0 ORDER BY created_at`)
}

// FindByPriceRange returns products priced within [minPrice, maxPrice].
func (p *PgStore) FindByPriceRange(ctx context.Context, minPrice, maxPrice decimal.Decimal) ([]model.Product, error) {
	return p.queryMany(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE price BETWEEN $1::numeric AND $2::numeric ORDER BY created_at`,
		minPrice.String(), maxPrice.String())
}

// FindLowStock returns products with stock strictly below threshold.
func (p *PgStore) FindLowStock(ctx context.Context, threshold int32) ([]model.Product, error) {
	return p.queryMany(ctx,
		`SELECT `+productColumns+` FROM products WHERE stock < $1 ORDER BY created_at`, threshold)
}

// CountAll returns the total number of products.
func (p *PgStore) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// CountAvailable returns the number of products with stock greater than zero.
func (p *PgStore) CountAvailable(ctx context.Context) (int64, error) {
	var count int64
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE stock > 0`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count available products: %w", err)
	}
	return count, nil
}

// HasEnoughStock reports whether the product's stock covers quantity with a
// single query. An unknown ID yields (false, nil).
func (p *PgStore) HasEnoughStock(ctx context.Context, id uuid.UUID, quantity int32) (bool, error) {
	var enough bool
	err := p.db.QueryRow(ctx,
		`SELECT stock >= $2 FROM products WHERE id = $1`, id, quantity).Scan(&enough)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check stock: %w", err)
	}
	return enough, nil
}

// MutateStock locks the product row, applies fn to the current state and
// persists the new stock in the same transaction. Two concurrent calls
// against the same ID serialize on the row lock, so both see the committed
// stock of the other.
func (p *PgStore) MutateStock(ctx context.Context, id uuid.UUID, fn func(pr *model.Product) error) (*model.Product, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.NewNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to lock product row: %w", err)
	}

	if err := fn(product); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE products SET stock = $2, updated_at = $3 WHERE id = $1`,
		id, product.Stock, product.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to persist stock mutation: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock mutation: %w", err)
	}
	return product, nil
}

// queryMany runs a multi-row product query and scans the result set.
func (p *PgStore) queryMany(ctx context.Context, sql string, args ...any) ([]model.Product, error) {
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product rows: %w", err)
	}
	return products, nil
}

// scanProduct reads one product from a row using the productColumns order.
func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		product  model.Product
		priceStr string
	)
	err := row.Scan(&product.ID, &product.Name, &product.Description, &priceStr,
		&product.Stock, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid price in store: %w", err)
	}
	product.Price = price
	return &product, nil
}
