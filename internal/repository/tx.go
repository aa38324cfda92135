package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/lib/pq"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

// WithinTx runs fn in a READ COMMITTED transaction with a bounded lock wait.
// Row locks taken with LockAndRead are released by the single Commit or Rollback.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	finished := false
	defer func() {
		if !finished {
			_ = sqlTx.Rollback()
		}
	}()

	// SET LOCAL does not accept bind parameters.
	lockTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
	if _, err := sqlTx.ExecContext(ctx, lockTimeout); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	tx := &pgTx{tx: sqlTx, locked: make(map[int64]struct{})}
	if err := fn(ctx, tx); err != nil {
		finished = true
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	finished = true
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct {
	tx     *sql.Tx
	locked map[int64]struct{}
}

func (t *pgTx) LockAndRead(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	// ORDER BY id makes every checkout acquire row locks in the same order.
	query := `SELECT ` + productColumns + ` FROM products
	          WHERE id = ANY($1)
	          ORDER BY id
	          FOR UPDATE`

	rows, err := t.tx.QueryContext(ctx, query, pq.Array(sorted))
	if err != nil {
		if isPgCode(err, pqLockNotAvailable) {
			return nil, fmt.Errorf("%w: %v", store.ErrLockTimeout, err)
		}
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]*domain.Product, len(sorted))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan locked product row: %w", err)
		}
		result[p.ID] = p
		t.locked[p.ID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		if isPgCode(err, pqLockNotAvailable) {
			return nil, fmt.Errorf("%w: %v", store.ErrLockTimeout, err)
		}
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, id := range sorted {
		if _, ok := result[id]; !ok {
			return nil, fmt.Errorf("product %d: %w", id, store.ErrProductNotFound)
		}
	}
	return result, nil
}

func (t *pgTx) Decrement(ctx context.Context, id int64, amount int) error {
	if amount < 0 {
		return fmt.Errorf("decrement amount must not be negative, got %d", amount)
	}
	if _, ok := t.locked[id]; !ok {
		return fmt.Errorf("product %d: %w", id, store.ErrNotLocked)
	}

	_, err := t.tx.ExecContext(ctx,
		`UPDATE products SET quantity_on_hand = GREATEST(quantity_on_hand - $2, 0) WHERE id = $1`,
		id, amount)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return nil
}

func (t *pgTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	return insertOrder(ctx, t.tx, order)
}

func (t *pgTx) DeleteCartItems(ctx context.Context, userID int64, itemIDs []int64) error {
	query := `DELETE FROM cart_items ci
	          USING carts c
	          WHERE c.id = ci.cart_id AND c.user_id = $1 AND ci.id = ANY($2)`

	if _, err := t.tx.ExecContext(ctx, query, userID, pq.Array(itemIDs)); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

func (t *pgTx) AddOutboxEvent(ctx context.Context, event *domain.OutboxEvent) error {
	return insertOutboxEvent(ctx, t.tx, event)
}
