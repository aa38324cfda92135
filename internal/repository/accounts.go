package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

const paymentColumns = `id, customer_id, card_last4, card_brand, expiry_month, expiry_year,
	cardholder_name, billing_address, created_at`

const shippingColumns = `id, customer_id, address_line1, address_line2, city, state, postal_code,
	country, contact_number, created_at`

func scanPayment(row rowScanner) (*domain.PaymentInformation, error) {
	var p domain.PaymentInformation
	err := row.Scan(
		&p.ID,
		&p.CustomerID,
		&p.CardLast4,
		&p.CardBrand,
		&p.ExpiryMonth,
		&p.ExpiryYear,
		&p.CardholderName,
		&p.BillingAddress,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanShipping(row rowScanner) (*domain.ShippingInformation, error) {
	var s domain.ShippingInformation
	err := row.Scan(
		&s.ID,
		&s.CustomerID,
		&s.AddressLine1,
		&s.AddressLine2,
		&s.City,
		&s.State,
		&s.PostalCode,
		&s.Country,
		&s.ContactNumber,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) CreatePayment(ctx context.Context, p *domain.PaymentInformation) error {
	query := `INSERT INTO payment_information (customer_id, card_last4, card_brand, expiry_month,
	              expiry_year, cardholder_name, billing_address)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.CustomerID,
		p.CardLast4,
		p.CardBrand,
		p.ExpiryMonth,
		p.ExpiryYear,
		p.CardholderName,
		p.BillingAddress,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *Repository) UpdatePayment(ctx context.Context, p *domain.PaymentInformation) error {
	query := `UPDATE payment_information SET card_last4 = $3, card_brand = $4, expiry_month = $5,
	              expiry_year = $6, cardholder_name = $7, billing_address = $8
	          WHERE id = $1 AND customer_id = $2`

	res, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.CustomerID,
		p.CardLast4,
		p.CardBrand,
		p.ExpiryMonth,
		p.ExpiryYear,
		p.CardholderName,
		p.BillingAddress,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrPaymentNotFound
	}
	return nil
}

func (r *Repository) DeletePayment(ctx context.Context, customerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM payment_information WHERE id = $1 AND customer_id = $2`, id, customerID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrPaymentNotFound
	}
	return nil
}

func (r *Repository) GetPayment(ctx context.Context, customerID, id int64) (*domain.PaymentInformation, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_information WHERE id = $1 AND customer_id = $2`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return p, nil
}

func (r *Repository) ListPayments(ctx context.Context, customerID int64) ([]*domain.PaymentInformation, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_information WHERE customer_id = $1 ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var result []*domain.PaymentInformation
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func (r *Repository) CreateShipping(ctx context.Context, s *domain.ShippingInformation) error {
	query := `INSERT INTO shipping_information (customer_id, address_line1, address_line2, city, state,
	              postal_code, country, contact_number)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		s.CustomerID,
		s.AddressLine1,
		s.AddressLine2,
		s.City,
		s.State,
		s.PostalCode,
		s.Country,
		s.ContactNumber,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert shipping: %w", err)
	}
	return nil
}

func (r *Repository) UpdateShipping(ctx context.Context, s *domain.ShippingInformation) error {
	query := `UPDATE shipping_information SET address_line1 = $3, address_line2 = $4, city = $5,
	              state = $6, postal_code = $7, country = $8, contact_number = $9
	          WHERE id = $1 AND customer_id = $2`

	res, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.CustomerID,
		s.AddressLine1,
		s.AddressLine2,
		s.City,
		s.State,
		s.PostalCode,
		s.Country,
		s.ContactNumber,
	)
	if err != nil {
		return fmt.Errorf("update shipping: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrShippingNotFound
	}
	return nil
}

func (r *Repository) DeleteShipping(ctx context.Context, customerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM shipping_information WHERE id = $1 AND customer_id = $2`, id, customerID)
	if err != nil {
		return fmt.Errorf("delete shipping: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrShippingNotFound
	}
	return nil
}

func (r *Repository) GetShipping(ctx context.Context, customerID, id int64) (*domain.ShippingInformation, error) {
	query := `SELECT ` + shippingColumns + ` FROM shipping_information WHERE id = $1 AND customer_id = $2`

	s, err := scanShipping(r.db.QueryRowContext(ctx, query, id, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrShippingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query shipping: %w", err)
	}
	return s, nil
}

func (r *Repository) ListShippings(ctx context.Context, customerID int64) ([]*domain.ShippingInformation, error) {
	query := `SELECT ` + shippingColumns + ` FROM shipping_information WHERE customer_id = $1 ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("query shippings: %w", err)
	}
	defer rows.Close()

	var result []*domain.ShippingInformation
	for rows.Next() {
		s, err := scanShipping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipping row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}
