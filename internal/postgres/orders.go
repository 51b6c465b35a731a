package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Orders struct{ DB *pgxpool.Pool }

const orderColumns = `id, COALESCE(external_id, ''), user_id, status, payment_method, payment_status,
	payment_intent_id, subtotal::text, discount::text, shipping::text, tax::text, total::text,
	shipping_address, coupon_code, tracking_number, estimated_at, delivered_at, notes, refund,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*orders.Order, error) {
	var (
		o                  orders.Order
		sub, dis, shp, tax string
		total              string
		addr, refund       []byte
	)
	if err := row.Scan(&o.ID, &o.ExternalID, &o.UserID, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.PaymentIntentID, &sub, &dis, &shp, &tax, &total,
		&addr, &o.CouponCode, &o.TrackingNumber, &o.EstimatedAt, &o.DeliveredAt, &o.Notes, &refund,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.Totals.Subtotal, err = parseDecimal(sub); err != nil {
		return nil, err
	}
	if o.Totals.Discount, err = parseDecimal(dis); err != nil {
		return nil, err
	}
	if o.Totals.Shipping, err = parseDecimal(shp); err != nil {
		return nil, err
	}
	if o.Totals.Tax, err = parseDecimal(tax); err != nil {
		return nil, err
	}
	if o.Totals.GrandTotal, err = parseDecimal(total); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if len(refund) > 0 {
		o.Refund = &orders.Refund{}
		if err := json.Unmarshal(refund, o.Refund); err != nil {
			return nil, fmt.Errorf("decode refund: %w", err)
		}
	}
	return &o, nil
}

// Insert writes the order and its lines in one transaction.
func (s *Orders) Insert(ctx context.Context, o *orders.Order) error {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	var refund []byte
	if o.Refund != nil {
		if refund, err = json.Marshal(o.Refund); err != nil {
			return err
		}
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t := o.Totals
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, external_id, user_id, status, payment_method, payment_status,
			payment_intent_id, subtotal, discount, shipping, tax, total,
			shipping_address, coupon_code, tracking_number, estimated_at, delivered_at, notes, refund,
			created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10::numeric, $11::numeric, $12::numeric,
			$13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		o.ID, o.ExternalID, o.UserID, string(o.Status), string(o.PaymentMethod), string(o.PaymentStatus),
		o.PaymentIntentID, t.Subtotal.String(), t.Discount.String(), t.Shipping.String(), t.Tax.String(), t.GrandTotal.String(),
		addr, o.CouponCode, o.TrackingNumber, o.EstimatedAt, o.DeliveredAt, o.Notes, refund,
		o.CreatedAt, o.UpdatedAt)
	if isUniqueViolation(err) {
		return orders.ErrDuplicateOrder
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, line_no, product_id, qty, unit_price)
			VALUES ($1, $2, $3, $4, $5::numeric)`, o.ID, i, it.ProductID, it.Quantity, it.UnitPrice.String())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Orders) one(ctx context.Context, where string, args ...any) (*orders.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, args...))
	if noRows(err) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := s.loadItems(ctx, []*orders.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Orders) Get(ctx context.Context, id string) (*orders.Order, error) {
	return s.one(ctx, `id = $1`, id)
}

func (s *Orders) GetByExternalID(ctx context.Context, userID, externalID string) (*orders.Order, error) {
	return s.one(ctx, `user_id = $1 AND external_id = $2`, userID, externalID)
}

func (s *Orders) list(ctx context.Context, where string, args ...any) ([]orders.Order, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders o WHERE `+where+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var ptrs []*orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ptrs = append(ptrs, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]orders.Order, 0, len(ptrs))
	for _, o := range ptrs {
		out = append(out, *o)
	}
	return out, nil
}

func (s *Orders) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return s.list(ctx, `user_id = $1`, userID)
}

func (s *Orders) ListByVendor(ctx context.Context, vendorID string) ([]orders.Order, error) {
	return s.list(ctx, `EXISTS (
		SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = o.id AND p.vendor_id = $1)`, vendorID)
}

func (s *Orders) loadItems(ctx context.Context, list []*orders.Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, 0, len(list))
	byID := make(map[string]*orders.Order, len(list))
	for _, o := range list {
		ids = append(ids, o.ID)
		byID[o.ID] = o
		o.Items = []orders.LineItem{}
	}
	rows, err := s.DB.Query(ctx, `SELECT order_id, product_id, qty, unit_price::text
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID, price string
			it             orders.LineItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return err
		}
		if it.UnitPrice, err = parseDecimal(price); err != nil {
			return err
		}
		byID[orderID].Items = append(byID[orderID].Items, it)
	}
	return rows.Err()
}

func (s *Orders) UpdateStatus(ctx context.Context, id string, from []orders.Status, to orders.Status, ch orders.StatusChange) (*orders.Order, error) {
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}
	ct, err := s.DB.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = $4,
			tracking_number = COALESCE($5, tracking_number),
			estimated_at = COALESCE($6, estimated_at),
			delivered_at = COALESCE($7, delivered_at)
		WHERE id = $1 AND status = ANY($2)`,
		id, allowed, string(to), ch.At, ch.TrackingNumber, ch.EstimatedAt, ch.DeliveredAt)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		err := s.DB.QueryRow(ctx, `SELECT true FROM orders WHERE id = $1`, id).Scan(&exists)
		if noRows(err) {
			return nil, orders.ErrOrderNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, orders.ErrInvalidTransition
	}
	return s.Get(ctx, id)
}
