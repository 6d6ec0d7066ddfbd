package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	carterrors "github.com/mkarev/storefront/internal/cart/errors"
)

// PgStore implements CartStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of CartStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// Create allocates an empty cart and returns its identifier.
func (p *PgStore) Create(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := p.db.QueryRow(ctx, "INSERT INTO carts DEFAULT VALUES RETURNING id").Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return id, nil
}

// Get resolves the cart's line items joined with their product snapshots.
// Returns ErrCartNotFound if the cart id does not exist.
func (p *PgStore) Get(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	cart := &Cart{ID: cartID}

	err := p.db.QueryRow(ctx, "SELECT created_at FROM carts WHERE id = $1", cartID).Scan(&cart.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, carterrors.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart by ID: %w", err)
	}

	rows, err := p.db.Query(ctx,
		`SELECT ci.product_id, pr.title, pr.price, ci.quantity
		 FROM cart_items ci
		 JOIN products pr ON pr.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.added_at, ci.product_id`,
		cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = make([]ResolvedItem, 0)
	for rows.Next() {
		var item ResolvedItem
		if err := rows.Scan(&item.ProductID, &item.Title, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item row: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cart item rows: %w", err)
	}
	return cart, nil
}

// SetLineItems replaces the entire line-item list atomically.
// Returns ErrCartNotFound if the cart id does not exist.
func (p *PgStore) SetLineItems(ctx context.Context, cartID uuid.UUID, items []LineItem) error {
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		if err := cartExists(ctx, tx, cartID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
			return fmt.Errorf("failed to delete cart items: %w", err)
		}
		for _, item := range items {
			if item.Quantity <= 0 {
				continue
			}
			_, err := tx.Exec(ctx,
				"INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)",
				cartID, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("failed to insert cart item: %w", err)
			}
		}
		return nil
	})
}

// UpsertLineItem adds delta to the product's line-item quantity, merging into
// an existing row when present and removing the row when the result drops to
// zero or below. It returns the resulting quantity.
func (p *PgStore) UpsertLineItem(ctx context.Context, cartID, productID uuid.UUID, delta int32) (int32, error) {
	var quantity int32
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		if err := cartExists(ctx, tx, cartID); err != nil {
			return err
		}

		if delta > 0 {
			err := tx.QueryRow(ctx,
				`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
				 ON CONFLICT (cart_id, product_id)
				 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
				 RETURNING quantity`,
				cartID, productID, delta).Scan(&quantity)
			if err != nil {
				return fmt.Errorf("failed to upsert cart item: %w", err)
			}
			return nil
		}

		err := tx.QueryRow(ctx,
			`UPDATE cart_items SET quantity = quantity + $3
			 WHERE cart_id = $1 AND product_id = $2
			 RETURNING quantity`,
			cartID, productID, delta).Scan(&quantity)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return carterrors.ErrItemNotFound
			}
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		if quantity <= 0 {
			// Never retain a zero-quantity line item.
			if _, err := tx.Exec(ctx,
				"DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID); err != nil {
				return fmt.Errorf("failed to delete depleted cart item: %w", err)
			}
			quantity = 0
		}
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}
	return quantity, nil
}

// RemoveLineItem deletes the product's line item and returns the removed quantity.
// Returns ErrCartNotFound and ErrItemNotFound distinctly.
func (p *PgStore) RemoveLineItem(ctx context.Context, cartID, productID uuid.UUID) (int32, error) {
	var quantity int32
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		if err := cartExists(ctx, tx, cartID); err != nil {
			return err
		}
		err := tx.QueryRow(ctx,
			"DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2 RETURNING quantity",
			cartID, productID).Scan(&quantity)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return carterrors.ErrItemNotFound
			}
			return fmt.Errorf("failed to remove cart item: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}
	return quantity, nil
}

// Clear sets the line-item list to empty.
// Returns ErrCartNotFound if the cart id does not exist.
func (p *PgStore) Clear(ctx context.Context, cartID uuid.UUID) error {
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		if err := cartExists(ctx, tx, cartID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
}

func cartExists(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM carts WHERE id = $1)", cartID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check cart existence: %w", err)
	}
	if !exists {
		return carterrors.ErrCartNotFound
	}
	return nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("failed to rollback transaction: %w", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
