package order

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

const (
	idempotencyIndex = "orders_user_idempotency_idx"
	orderNumberIndex = "orders_order_number_key"
)

const orderColumns = `id::text, order_number, user_id::text, total_amount, shipping_cost, tax_amount,
shipping_address, billing_address, payment_method, payment_status, order_status, shipping_method,
tracking_number, estimated_delivery, notes, COALESCE(idempotency_key, ''), created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Place(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var idemKey *string
	if o.IdempotencyKey != "" {
		idemKey = &o.IdempotencyKey
	}
	err = tx.QueryRow(ctx, `
INSERT INTO orders (order_number, user_id, total_amount, shipping_cost, tax_amount, shipping_address,
    billing_address, payment_method, payment_status, order_status, shipping_method, estimated_delivery,
    notes, idempotency_key)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id::text, created_at, updated_at
`,
		o.OrderNumber,
		o.UserID,
		o.TotalAmount,
		o.ShippingCost,
		o.TaxAmount,
		o.ShippingAddress,
		o.BillingAddress,
		string(o.PaymentMethod),
		string(o.PaymentStatus),
		string(o.OrderStatus),
		o.ShippingMethod,
		o.EstimatedDelivery,
		o.Notes,
		idemKey,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, idempotencyIndex):
			return domain.ErrAlreadyExists
		case db.IsUniqueViolation(err, orderNumberIndex):
			return ErrOrderNumberTaken
		}
		r.logger.Printf("order repo: insert order user_id=%s error=%v", o.UserID, err)
		return err
	}

	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, position, product_id, name, price, quantity, image)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, o.ID, i, it.ProductID, it.Name, it.Price, it.Quantity, it.Image); err != nil {
			r.logger.Printf("order repo: insert item order_id=%s product_id=%s error=%v", o.ID, it.ProductID, err)
			return err
		}
	}

	// Lock product rows in id order so concurrent placements cannot deadlock.
	for _, it := range byProduct(o.Items) {
		ok, err := productrepo.TryReserve(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			r.logger.Printf("order repo: reserve product_id=%s error=%v", it.ProductID, err)
			return err
		}
		if ok {
			continue
		}
		name, available, err := productrepo.Stock(ctx, tx, it.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("Product not found: %s", it.ProductID)
		}
		if err != nil {
			return err
		}
		r.logger.Printf("order repo: reserve product_id=%s short available=%d requested=%d", it.ProductID, available, it.Quantity)
		return &domain.InsufficientStockError{
			ProductID:   it.ProductID,
			ProductName: name,
			Available:   available,
			Requested:   it.Quantity,
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Printf("order repo: placed id=%s number=%s items=%d", o.ID, o.OrderNumber, len(o.Items))
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepo) GetForUser(ctx context.Context, userID, id string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *postgresRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
}

// getOne expects the first argument to be a uuid; anything else cannot match.
func (r *postgresRepo) getOne(ctx context.Context, q string, first string, rest ...any) (*domain.Order, error) {
	if _, err := uuid.Parse(first); err != nil {
		return nil, domain.ErrNotFound
	}
	o, err := scanOrder(r.pool.QueryRow(ctx, q, append([]any{first}, rest...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get error=%v", err)
		return nil, err
	}
	orders := []domain.Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepo) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	var status *string
	if f.Status != "" {
		s := string(f.Status)
		status = &s
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
SELECT count(*) FROM orders
WHERE user_id = $1 AND ($2::text IS NULL OR order_status = $2)
`, f.UserID, status).Scan(&total); err != nil {
		r.logger.Printf("order repo: count user_id=%s error=%v", f.UserID, err)
		return nil, 0, err
	}

	limit := f.Limit
	if limit < 1 {
		limit = 10
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+orderColumns+` FROM orders
WHERE user_id = $1 AND ($2::text IS NULL OR order_status = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`, f.UserID, status, limit, (page-1)*limit)
	if err != nil {
		r.logger.Printf("order repo: list user_id=%s error=%v", f.UserID, err)
		return nil, 0, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	r.logger.Printf("order repo: list user_id=%s count=%d total=%d", f.UserID, len(orders), total)
	return orders, total, nil
}

func (r *postgresRepo) Cancel(ctx context.Context, id, userID string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var owner, status string
	if err := tx.QueryRow(ctx, `SELECT user_id::text, order_status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&owner, &status); err != nil {
		return nil, db.Translate(err)
	}
	if userID != "" && owner != userID {
		return nil, domain.ErrNotFound
	}
	if !domain.OrderStatus(status).Cancellable() {
		return nil, domain.InvalidState("Order cannot be cancelled at this stage")
	}

	rows, err := tx.Query(ctx, `SELECT product_id::text, quantity FROM order_items WHERE order_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, err
	}
	type line struct {
		productID string
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.qty); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, l := range lines {
		if err := productrepo.Release(ctx, tx, l.productID, l.qty); err != nil {
			r.logger.Printf("order repo: release order_id=%s product_id=%s error=%v", id, l.productID, err)
			return nil, err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET order_status = $1, updated_at = now() WHERE id = $2`,
		string(domain.OrderStatusCancelled), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: cancelled id=%s from=%s lines=%d", id, status, len(lines))
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, u domain.StatusUpdate) (*domain.Order, error) {
	if _, err := uuid.Parse(u.OrderID); err != nil {
		return nil, domain.ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET order_status = $1,
    tracking_number = CASE WHEN $2 <> '' THEN $2 ELSE tracking_number END,
    estimated_delivery = COALESCE($3, estimated_delivery),
    updated_at = now()
WHERE id = $4 AND order_status = $5
`, string(u.To), u.TrackingNumber, u.EstimatedDelivery, u.OrderID, string(u.From))
	if err != nil {
		r.logger.Printf("order repo: update status id=%s error=%v", u.OrderID, err)
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, u.OrderID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrConflict
	}
	r.logger.Printf("order repo: status id=%s %s->%s", u.OrderID, u.From, u.To)
	return r.GetByID(ctx, u.OrderID)
}

// attachItems loads the lines of every order in one query, resolving the live
// product display fields where the product still exists.
func (r *postgresRepo) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := r.pool.Query(ctx, `
SELECT oi.order_id::text, oi.product_id::text, oi.name, oi.price, oi.quantity, oi.image,
       p.id::text, p.name, p.sku, p.featured_image
FROM order_items oi
LEFT JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = ANY($1::uuid[])
ORDER BY oi.order_id, oi.position
`, ids)
	if err != nil {
		r.logger.Printf("order repo: items error=%v", err)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it domain.OrderItem
		var pid, pname, psku, pimg *string
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.Image,
			&pid, &pname, &psku, &pimg); err != nil {
			return err
		}
		if pid != nil {
			it.Product = &domain.ProductSummary{ID: *pid, Name: deref(pname), SKU: deref(psku), Image: deref(pimg)}
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var paymentMethod, paymentStatus, state string
	var eta *time.Time
	if err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.TotalAmount,
		&o.ShippingCost,
		&o.TaxAmount,
		&o.ShippingAddress,
		&o.BillingAddress,
		&paymentMethod,
		&paymentStatus,
		&state,
		&o.ShippingMethod,
		&o.TrackingNumber,
		&eta,
		&o.Notes,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(paymentMethod)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.OrderStatus = domain.OrderStatus(state)
	o.EstimatedDelivery = eta
	return &o, nil
}

func byProduct(items []domain.OrderItem) []domain.OrderItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b domain.OrderItem) int {
		return strings.Compare(a.ProductID, b.ProductID)
	})
	return sorted
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
