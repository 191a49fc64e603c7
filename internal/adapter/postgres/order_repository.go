package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pizza-status/internal/domain"
	"pizza-status/internal/interfaces"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

// latestEventQuery resolves the current status of one order: the event with
// the greatest (created_at, seq). seq is assigned by the store in insertion
// order and makes the resolution deterministic under timestamp collisions.
const latestEventQuery = `
	SELECT id, order_id, seq, status, status_notes, created_at
	FROM order_status
	WHERE order_id = $1
	ORDER BY created_at DESC, seq DESC
	LIMIT 1
`

func (r *orderRepository) LatestStatus(ctx context.Context, orderID uuid.UUID) (domain.StatusEvent, error) {
	event, err := scanEventRow(r.db.QueryRow(ctx, latestEventQuery, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StatusEvent{}, domain.ErrNoStatusFound
		}
		return domain.StatusEvent{}, fmt.Errorf("failed to fetch latest order status: %w", err)
	}
	return event, nil
}

func (r *orderRepository) LatestStatuses(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]domain.StatusEvent, error) {
	query := `
		SELECT DISTINCT ON (order_id) id, order_id, seq, status, status_notes, created_at
		FROM order_status
		WHERE order_id = ANY($1)
		ORDER BY order_id, created_at DESC, seq DESC
	`

	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest order statuses: %w", err)
	}
	defer rows.Close()

	latest := make(map[uuid.UUID]domain.StatusEvent, len(orderIDs))
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status event: %w", err)
		}
		latest[event.OrderID] = event
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status events: %w", err)
	}

	return latest, nil
}

// AppendStatus inserts the next status event only if the order's current
// status still equals expectCurrent, evaluated atomically inside the
// insert. Two callers racing on the same order cannot both append.
func (r *orderRepository) AppendStatus(ctx context.Context, orderID uuid.UUID, status, expectCurrent domain.Status) (domain.StatusEvent, error) {
	query := `
		INSERT INTO order_status (id, order_id, status)
		SELECT $1, $2, $3::order_status_enum
		WHERE (
			SELECT s.status FROM order_status s
			WHERE s.order_id = $2
			ORDER BY s.created_at DESC, s.seq DESC
			LIMIT 1
		) = $4::order_status_enum
		RETURNING seq, created_at
	`

	event := domain.StatusEvent{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  status,
	}
	err := r.db.QueryRow(ctx, query, event.ID, orderID, string(status), string(expectCurrent)).
		Scan(&event.Seq, &event.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StatusEvent{}, domain.ErrStatusChanged
		}
		return domain.StatusEvent{}, fmt.Errorf("failed to insert status event: %w", err)
	}

	return event, nil
}

func (r *orderRepository) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]domain.StatusEvent, error) {
	query := `
		SELECT id, order_id, seq, status, status_notes, created_at
		FROM order_status
		WHERE order_id = $1
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var events []domain.StatusEvent
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status history: %w", err)
	}

	return events, nil
}

// Eligibility is evaluated against each order's current (latest) status,
// never against the existence of a non-complete event: an order whose
// history ends in 'Order Complete' is complete no matter what precedes it.
const eligibleOrdersQuery = `
	SELECT o.id
	FROM orders o
	JOIN LATERAL (
		SELECT s.status FROM order_status s
		WHERE s.order_id = o.id
		ORDER BY s.created_at DESC, s.seq DESC
		LIMIT 1
	) latest ON true
	WHERE latest.status <> 'Order Complete'
`

func (r *orderRepository) EligibleOrders(ctx context.Context, userID *uuid.UUID) ([]uuid.UUID, error) {
	query := eligibleOrdersQuery
	var args []any
	if userID != nil {
		query += ` AND o.user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY o.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	return ids, nil
}

func (r *orderRepository) MostRecentEligibleOrder(ctx context.Context, userID *uuid.UUID) (uuid.UUID, error) {
	query := eligibleOrdersQuery
	var args []any
	if userID != nil {
		query += ` AND o.user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY o.created_at DESC LIMIT 1`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, domain.ErrNoEligibleOrders
		}
		return uuid.Nil, fmt.Errorf("failed to fetch most recent order: %w", err)
	}

	return id, nil
}

func scanEventRow(row Row) (domain.StatusEvent, error) {
	var (
		event  domain.StatusEvent
		status string
	)
	err := row.Scan(&event.ID, &event.OrderID, &event.Seq, &status, &event.StatusNotes, &event.CreatedAt)
	if err != nil {
		return domain.StatusEvent{}, err
	}
	event.Status = domain.Status(status)
	return event, nil
}
