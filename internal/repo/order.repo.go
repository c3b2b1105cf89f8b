package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopfront/order-service/internal/domain"
)

type OrderRepo interface {
	FindById(ctx context.Context, db DBTX, id int64, forUpdate bool) (*domain.Order, error)
	FindByUserId(ctx context.Context, db DBTX, userID string) ([]domain.Order, error)
	FindAll(ctx context.Context, db DBTX) ([]domain.Order, error)
	CreateOrder(ctx context.Context, db DBTX, order *domain.Order) error
	UpdateOrderStatus(ctx context.Context, db DBTX, order *domain.Order) error
}

type orderRepo struct{}

func NewOrderRepo() OrderRepo {
	return &orderRepo{}
}

const orderColumns = `id, user_id, order_number, order_date, total_amount, status, payment_id, payer_id, shipping_address, notes, updated_at`

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o                         domain.Order
		paymentID, payerID, notes sql.NullString
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.OrderDate, &o.TotalAmount, &o.Status,
		&paymentID, &payerID, &o.ShippingAddress, &notes, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.PaymentID = stringPtr(paymentID)
	o.PayerID = stringPtr(payerID)
	o.Notes = stringPtr(notes)
	return &o, nil
}

func (r *orderRepo) FindById(ctx context.Context, db DBTX, id int64, forUpdate bool) (*domain.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	order, err := scanOrder(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}

	items, err := r.findItems(ctx, db, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (r *orderRepo) FindByUserId(ctx context.Context, db DBTX, userID string) ([]domain.Order, error) {
	return r.list(ctx, db, "SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY order_date DESC, id DESC", userID)
}

func (r *orderRepo) FindAll(ctx context.Context, db DBTX) ([]domain.Order, error) {
	return r.list(ctx, db, "SELECT "+orderColumns+" FROM orders ORDER BY order_date DESC, id DESC")
}

func (r *orderRepo) list(ctx context.Context, db DBTX, query string, args ...any) ([]domain.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.findItems(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *orderRepo) findItems(ctx context.Context, db DBTX, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, product_image_url, unit_price, quantity, total_price
		 FROM order_items WHERE order_id = ANY($1::bigint[]) ORDER BY id`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64][]domain.OrderItem, len(orderIDs))
	for _, id := range orderIDs {
		items[id] = make([]domain.OrderItem, 0)
	}
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductImageURL,
			&it.UnitPrice, &it.Quantity, &it.TotalPrice); err != nil {
			return nil, err
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

// CreateOrder inserts the order and its items and fills in the generated ids.
func (r *orderRepo) CreateOrder(ctx context.Context, db DBTX, order *domain.Order) error {
	err := db.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, order_number, order_date, total_amount, status, payment_id, payer_id, shipping_address, notes, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		order.UserID, order.OrderNumber, order.OrderDate, order.TotalAmount, order.Status,
		nullString(order.PaymentID), nullString(order.PayerID), order.ShippingAddress, nullString(order.Notes), order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return err
	}

	for i := range order.Items {
		it := &order.Items[i]
		it.OrderID = order.ID
		if err := db.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, product_image_url, unit_price, quantity, total_price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			it.OrderID, it.ProductID, it.ProductName, it.ProductImageURL, it.UnitPrice, it.Quantity, it.TotalPrice,
		).Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, db DBTX, order *domain.Order) error {
	_, err := db.ExecContext(ctx, "UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3", order.Status, order.UpdatedAt, order.ID)
	return err
}
