package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

const orderColumns = `id, customer_id, total_amount, status,
	card_last4, card_brand, expiry_month, expiry_year, cardholder_name, billing_address,
	shipping_address_line1, shipping_address_line2, shipping_city, shipping_state,
	shipping_postal_code, shipping_country, shipping_contact_number,
	created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.TotalAmount,
		&o.Status,
		&o.Payment.CardLast4,
		&o.Payment.CardBrand,
		&o.Payment.ExpiryMonth,
		&o.Payment.ExpiryYear,
		&o.Payment.CardholderName,
		&o.Payment.BillingAddress,
		&o.Shipping.AddressLine1,
		&o.Shipping.AddressLine2,
		&o.Shipping.City,
		&o.Shipping.State,
		&o.Shipping.PostalCode,
		&o.Shipping.Country,
		&o.Shipping.ContactNumber,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	return r.ListOrders(ctx, store.OrderFilter{CustomerID: customerID})
}

func (r *Repository) ListOrders(ctx context.Context, f store.OrderFilter) ([]*domain.Order, error) {
	where, args := orderFilterClause(f)
	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func orderFilterClause(f store.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.CustomerID != 0 {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.MinTotal.Valid {
		add("total_amount >= $%d", f.MinTotal.Decimal)
	}
	if f.MaxTotal.Valid {
		add("total_amount <= $%d", f.MaxTotal.Decimal)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// attachItems loads the items of all orders with a single query.
func (r *Repository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	query := `SELECT id, order_id, product_id, product_name, quantity, price_at_purchase
	          FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return fmt.Errorf("scan order item row: %w", err)
		}
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, orderID int64, from, to domain.OrderStatus) error {
	query := `UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, orderID, from, to)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return store.ErrOrderNotFound
	}
	return store.ErrStatusConflict
}

// insertOrder runs inside the checkout transaction.
func insertOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `INSERT INTO orders (customer_id, total_amount, status,
	              card_last4, card_brand, expiry_month, expiry_year, cardholder_name, billing_address,
	              shipping_address_line1, shipping_address_line2, shipping_city, shipping_state,
	              shipping_postal_code, shipping_country, shipping_contact_number)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	          RETURNING id, created_at, updated_at`

	err := tx.QueryRowContext(ctx, query,
		order.CustomerID,
		order.TotalAmount,
		order.Status,
		order.Payment.CardLast4,
		order.Payment.CardBrand,
		order.Payment.ExpiryMonth,
		order.Payment.ExpiryYear,
		order.Payment.CardholderName,
		order.Payment.BillingAddress,
		order.Shipping.AddressLine1,
		order.Shipping.AddressLine2,
		order.Shipping.City,
		order.Shipping.State,
		order.Shipping.PostalCode,
		order.Shipping.Country,
		order.Shipping.ContactNumber,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, product_name, quantity, price_at_purchase)
	              VALUES ($1, $2, $3, $4, $5)
	              RETURNING id`

	for i := range order.Items {
		it := &order.Items[i]
		it.OrderID = order.ID
		if err := tx.QueryRowContext(ctx, itemQuery,
			it.OrderID,
			it.ProductID,
			it.ProductName,
			it.Quantity,
			it.PriceAtPurchase,
		).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}
