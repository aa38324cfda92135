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

const productColumns = `id, sku_code, product_name, description, category, subcategory,
	unit_price, quantity_on_hand, status, created_at`

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Subcategory,
		&p.UnitPrice,
		&p.QuantityOnHand,
		&p.Status,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (r *Repository) GetProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]*domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func (r *Repository) GetActiveProductsBySKU(ctx context.Context, skus []string) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
	          WHERE sku_code = ANY($1::text[]) AND status = 'Active'
	          ORDER BY array_position($1::text[], sku_code::text)`

	return r.queryProducts(ctx, query, pq.Array(skus))
}

func (r *Repository) ListActiveProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE status = 'Active' ORDER BY product_name`

	return r.queryProducts(ctx, query)
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *Repository) SaveProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == 0 {
		query := `INSERT INTO products (sku_code, product_name, description, category, subcategory,
	                  unit_price, quantity_on_hand, status)
	              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	              RETURNING id, created_at`

		err := r.db.QueryRowContext(ctx, query,
			p.SKU,
			p.Name,
			p.Description,
			p.Category,
			p.Subcategory,
			p.UnitPrice,
			p.QuantityOnHand,
			p.Status,
		).Scan(&p.ID, &p.CreatedAt)
		if isPgCode(err, pqUniqueViolation) {
			return store.ErrDuplicateSKU
		}
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return nil
	}

	query := `UPDATE products SET sku_code = $2, product_name = $3, description = $4, category = $5,
	              subcategory = $6, unit_price = $7, quantity_on_hand = $8, status = $9
	          WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.SKU,
		p.Name,
		p.Description,
		p.Category,
		p.Subcategory,
		p.UnitPrice,
		p.QuantityOnHand,
		p.Status,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrProductNotFound
	}
	return nil
}
