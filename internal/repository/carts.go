package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

const cartItemColumns = `ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.added_at`

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	var it domain.CartItem
	if err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.AddedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// ensureCart creates the user's cart on first access.
func (r *Repository) ensureCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}

	var c domain.Cart
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	return &c, nil
}

func (r *Repository) GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	c, err := r.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items ci WHERE ci.cart_id = $1 ORDER BY ci.id`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		c.Items = append(c.Items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return c, nil
}

func (r *Repository) GetCartItem(ctx context.Context, userID, itemID int64) (*domain.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items ci
	          JOIN carts c ON c.id = ci.cart_id
	          WHERE c.user_id = $1 AND ci.id = $2`

	it, err := scanCartItem(r.db.QueryRowContext(ctx, query, userID, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart item: %w", err)
	}
	return it, nil
}

func (r *Repository) GetCartItems(ctx context.Context, userID int64, itemIDs []int64) ([]domain.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items ci
	          JOIN carts c ON c.id = ci.cart_id
	          WHERE c.user_id = $1 AND ci.id = ANY($2)
	          ORDER BY ci.id`

	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *Repository) FindCartItemByProduct(ctx context.Context, userID, productID int64) (*domain.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items ci
	          JOIN carts c ON c.id = ci.cart_id
	          WHERE c.user_id = $1 AND ci.product_id = $2`

	it, err := scanCartItem(r.db.QueryRowContext(ctx, query, userID, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart item by product: %w", err)
	}
	return it, nil
}

func (r *Repository) UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error) {
	c, err := r.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO cart_items AS ci (cart_id, product_id, quantity)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
	          RETURNING ` + cartItemColumns

	it, err := scanCartItem(r.db.QueryRowContext(ctx, query, c.ID, productID, quantity))
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	r.touchCart(ctx, c.ID)
	return it, nil
}

func (r *Repository) UpdateCartItemQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	query := `UPDATE cart_items ci SET quantity = $3
	          FROM carts c
	          WHERE c.id = ci.cart_id AND c.user_id = $1 AND ci.id = $2
	          RETURNING ci.cart_id`

	var cartID int64
	err := r.db.QueryRowContext(ctx, query, userID, itemID, quantity).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrCartItemNotFound
	}
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}

	r.touchCart(ctx, cartID)
	return nil
}

func (r *Repository) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	query := `DELETE FROM cart_items ci
	          USING carts c
	          WHERE c.id = ci.cart_id AND c.user_id = $1 AND ci.id = $2
	          RETURNING ci.cart_id`

	var cartID int64
	err := r.db.QueryRowContext(ctx, query, userID, itemID).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrCartItemNotFound
	}
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	r.touchCart(ctx, cartID)
	return nil
}

// touchCart bumps updated_at; failures only affect the timestamp.
func (r *Repository) touchCart(ctx context.Context, cartID int64) {
	_, _ = r.db.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
}
