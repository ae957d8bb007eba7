package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopflow/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, order_no, user_id, total_amount, payment_amount, order_status, payment_status,
	payment_method, delivery_name, delivery_phone, delivery_address, remark,
	created_at, updated_at, paid_at, shipped_at, delivered_at, cancelled_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Create inserts the order and its lines in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	if len(order.Lines) == 0 {
		return model.ErrEmptyOrder
	}

	orderQuery := `
		INSERT INTO orders (
			id, order_no, user_id, total_amount, payment_amount, order_status, payment_status,
			payment_method, delivery_name, delivery_phone, delivery_address, remark,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	lineQuery := `
		INSERT INTO order_lines (
			id, order_id, line_no, product_id, product_name, product_image, spec_name,
			unit_name, unit_price, quantity, line_total
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	return inTx(ctx, r.pool, r.logger, func(ctx context.Context, db DBTX) error {
		_, err := db.Exec(ctx, orderQuery,
			order.ID, order.OrderNo, order.UserID,
			numeric(order.TotalAmount), numeric(order.PaymentAmount),
			string(order.OrderStatus), string(order.PaymentStatus), order.PaymentMethod,
			order.Delivery.Name, order.Delivery.Phone, order.Delivery.Address, order.Remark,
			order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Msg("failed to create order")
			return fmt.Errorf("failed to create order: %w", err)
		}

		batch := &pgx.Batch{}
		for _, line := range order.Lines {
			batch.Queue(lineQuery,
				line.ID, order.ID, line.LineNo, line.ProductID, line.ProductName,
				line.ProductImage, line.SpecName, line.UnitName,
				numeric(line.UnitPrice), line.Quantity, numeric(line.LineTotal),
			)
		}

		results := db.SendBatch(ctx, batch)
		defer results.Close()

		for i := range order.Lines {
			if _, err := results.Exec(); err != nil {
				r.logger.Error().
					Err(err).
					Str("order_id", order.ID.String()).
					Int64("product_id", order.Lines[i].ProductID).
					Msg("failed to create order line")
				return fmt.Errorf("failed to create order line: %w", err)
			}
		}

		r.logger.Debug().
			Str("order_id", order.ID.String()).
			Str("order_no", order.OrderNo).
			Int("lines", len(order.Lines)).
			Msg("order created successfully")

		return nil
	})
}

// GetByID retrieves an order by its ID along with its lines.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	db := conn(ctx, r.pool)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	lines, err := r.linesOf(ctx, db, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[id]

	return order, nil
}

// Transition applies t with a single conditional UPDATE so concurrent transitions
// of the same order cannot both succeed.
func (r *orderRepository) Transition(ctx context.Context, id uuid.UUID, t model.Transition) (*model.Order, error) {
	db := conn(ctx, r.pool)
	now := time.Now().UTC()

	var toPayment *string
	if t.ToPayment != "" {
		p := string(t.ToPayment)
		toPayment = &p
	}

	var fromPayment []model.PaymentStatus
	if len(t.FromPayment) > 0 {
		fromPayment = t.FromPayment
	}

	query := `
		UPDATE orders
		SET order_status   = $2,
		    payment_status = COALESCE($3, payment_status),
		    payment_method = CASE WHEN $4 = 'paid_at' THEN $7 ELSE payment_method END,
		    paid_at        = CASE WHEN $4 = 'paid_at' THEN $5 ELSE paid_at END,
		    shipped_at     = CASE WHEN $4 = 'shipped_at' THEN $5 ELSE shipped_at END,
		    delivered_at   = CASE WHEN $4 = 'delivered_at' THEN $5 ELSE delivered_at END,
		    cancelled_at   = CASE WHEN $4 = 'cancelled_at' THEN $5 ELSE cancelled_at END,
		    updated_at     = $5
		WHERE id = $1
		  AND order_status = ANY($6)
		  AND ($8::text[] IS NULL OR payment_status = ANY($8))
		RETURNING ` + orderColumns

	order, err := scanOrder(db.QueryRow(ctx, query,
		id, string(t.ToOrder), toPayment, string(t.Stamp), now,
		statusStrings(t.FromOrder), model.PaymentMethodBalance, paymentStrings(fromPayment),
	))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to transition order")
			return nil, fmt.Errorf("failed to transition order: %w", err)
		}

		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return nil, model.ErrOrderNotFound
		}

		r.logger.Debug().
			Str("order_id", id.String()).
			Str("to_status", string(t.ToOrder)).
			Msg("order transition rejected")
		return nil, model.ErrStateConflict
	}

	lines, err := r.linesOf(ctx, db, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[id]

	r.logger.Debug().
		Str("order_id", id.String()).
		Str("order_status", string(order.OrderStatus)).
		Str("payment_status", string(order.PaymentStatus)).
		Msg("order transitioned")

	return order, nil
}

// List returns one page of orders with their lines, newest first.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	filter.Normalise()
	db := conn(ctx, r.pool)

	where := `WHERE ($1 = 0 OR user_id = $1) AND ($2 = '' OR order_status = $2)`

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where, filter.UserID, string(filter.Status)).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders ` + where + `
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`

	rows, err := db.Query(ctx, query, filter.UserID, string(filter.Status), filter.PageSize, filter.Offset())
	if err != nil {
		r.logger.Error().Err(err).
			Int("page", filter.Page).
			Int("page_size", filter.PageSize).
			Msg("failed to query orders")
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}
	rows.Close()

	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	lines, err := r.linesOf(ctx, db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}

	return orders, total, nil
}

// linesOf loads the lines of every given order keyed by order ID.
func (r *orderRepository) linesOf(ctx context.Context, db DBTX, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderLine, error) {
	lines := make(map[uuid.UUID][]model.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return lines, nil
	}

	query := `
		SELECT id, order_id, line_no, product_id, product_name, product_image, spec_name,
		       unit_name, unit_price, quantity, line_total
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_no
	`

	rows, err := db.Query(ctx, query, orderIDs)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int("orders", len(orderIDs)).
			Msg("failed to query order lines")
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line             model.OrderLine
			unitPrice, total pgtype.Numeric
		)
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.LineNo, &line.ProductID, &line.ProductName,
			&line.ProductImage, &line.SpecName, &line.UnitName,
			&unitPrice, &line.Quantity, &total,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order line row")
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		line.UnitPrice = toDecimal(unitPrice)
		line.LineTotal = toDecimal(total)
		lines[line.OrderID] = append(lines[line.OrderID], line)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order line rows")
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return lines, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o                      model.Order
		total, payment         pgtype.Numeric
		orderStatus, payStatus string
	)
	err := row.Scan(
		&o.ID, &o.OrderNo, &o.UserID, &total, &payment, &orderStatus, &payStatus,
		&o.PaymentMethod, &o.Delivery.Name, &o.Delivery.Phone, &o.Delivery.Address, &o.Remark,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	o.TotalAmount = toDecimal(total)
	o.PaymentAmount = toDecimal(payment)
	o.OrderStatus = model.OrderStatus(orderStatus)
	o.PaymentStatus = model.PaymentStatus(payStatus)
	return &o, nil
}

func statusStrings(statuses []model.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func paymentStrings(statuses []model.PaymentStatus) []string {
	if statuses == nil {
		return nil
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
