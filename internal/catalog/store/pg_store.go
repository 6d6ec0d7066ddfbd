package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	cerrors "github.com/mkarev/storefront/internal/catalog/errors"
)

const productColumns = "id, title, description, price, code, stock_quantity, owner_id, version, created_at"

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Code, &p.Stock, &p.OwnerID, &p.Version, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := p.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cerrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// FindByIDs retrieves products by IDs.
// It returns a slice of products, which may be empty if no products exist.
func (p *PgStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := p.db.Query(ctx, "SELECT "+productColumns+" FROM products WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by IDs: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// FindAll retrieves all available products with pagination support.
// It returns a slice of products, which may be empty if no products exist.
func (p *PgStore) FindAll(ctx context.Context, offset, limit int32) ([]Product, error) {
	rows, err := p.db.Query(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY created_at, id LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	products := make([]Product, 0)
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

// Create adds a new product to the system.
// Returns an error if the product cannot be created.
func (p *PgStore) Create(ctx context.Context, np NewProduct) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO products (title, description, price, code, stock_quantity, owner_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+productColumns,
		np.Title, np.Description, np.Price, np.Code, np.Stock, np.OwnerID)
	product, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// DeleteByID removes a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cerrors.ErrProductNotFound
	}
	return nil
}

// GetStock reports the current available quantity for a product.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) GetStock(ctx context.Context, id uuid.UUID) (int32, error) {
	var stock int32
	err := p.db.QueryRow(ctx, "SELECT stock_quantity FROM products WHERE id = $1", id).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, cerrors.ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to get stock: %w", err)
	}
	return stock, nil
}

// AdjustStock applies stock += delta as a single atomic update, avoiding
// read-then-write lost updates under concurrent adjustments.
// Returns ErrProductNotFound if the product vanished before the update.
func (p *PgStore) AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $2, version = version + 1
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, delta)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cerrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to adjust product stock: %w", err)
	}
	return product, nil
}

// ReserveStock decrements stock by qty only while stock >= qty, as a single
// conditional update. Returns ErrInsufficientStock when the condition fails
// and ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) ReserveStock(ctx context.Context, id uuid.UUID, qty int32) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $2, version = version + 1
		 WHERE id = $1 AND stock_quantity >= $2`,
		id, qty)
	if err != nil {
		return fmt.Errorf("failed to reserve product stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing product from an insufficient balance.
		var exists bool
		if err := p.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check product existence: %w", err)
		}
		if !exists {
			return cerrors.ErrProductNotFound
		}
		return cerrors.ErrInsufficientStock
	}
	return nil
}

// FindBelowRequested reports the IDs of products whose current stock is below
// the requested quantity. Products that no longer exist are reported as failed.
func (p *PgStore) FindBelowRequested(ctx context.Context, requests []StockRequest) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(requests))
	for i, req := range requests {
		ids[i] = req.ProductID
	}
	products, err := p.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products for stock check: %w", err)
	}
	stocks := make(map[uuid.UUID]int32, len(products))
	for _, product := range products {
		stocks[product.ID] = product.Stock
	}

	failed := make([]uuid.UUID, 0)
	for _, req := range requests {
		stock, ok := stocks[req.ProductID]
		if !ok || stock < req.Quantity {
			failed = append(failed, req.ProductID)
		}
	}
	return failed, nil
}
