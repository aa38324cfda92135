package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events
	          WHERE processed_at IS NULL
	          ORDER BY created_at
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event row: %w", err)
		}
		e.Payload = payload
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("outbox event %s not found", id)
	}
	return nil
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, event *domain.OutboxEvent) error {
	query := `INSERT INTO outbox_events (id, aggregate_id, event_type, payload)
	          VALUES ($1, $2, $3, $4)
	          RETURNING created_at`

	err := tx.QueryRowContext(ctx, query,
		event.ID,
		event.AggregateID,
		event.EventType,
		[]byte(event.Payload),
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
