package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopfront/order-service/internal/domain"
)

type CartRepo interface {
	// FindByUserId returns nil when the user has no cart yet. With forUpdate
	// the cart row stays locked until the caller's transaction ends.
	FindByUserId(ctx context.Context, db DBTX, userID string, forUpdate bool) (*domain.Cart, error)
	// Create is idempotent: an existing cart is returned unchanged.
	Create(ctx context.Context, db DBTX, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, db DBTX, cartID, productID int64, quantity int) error
	UpdateItemQuantity(ctx context.Context, db DBTX, itemID int64, quantity int) (bool, error)
	RemoveItem(ctx context.Context, db DBTX, itemID int64) (bool, error)
	Clear(ctx context.Context, db DBTX, cartID int64) error
}

type cartRepo struct{}

func NewCartRepo() CartRepo {
	return &cartRepo{}
}

func (r *cartRepo) FindByUserId(ctx context.Context, db DBTX, userID string, forUpdate bool) (*domain.Cart, error) {
	query := "SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var cart domain.Cart
	err := db.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT id, cart_id, product_id, quantity, created_at, updated_at FROM cart_items WHERE cart_id = $1 ORDER BY id",
		cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Items = make([]domain.CartItem, 0)
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepo) Create(ctx context.Context, db DBTX, userID string) (*domain.Cart, error) {
	if _, err := db.ExecContext(ctx,
		"INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", userID); err != nil {
		return nil, err
	}
	return r.FindByUserId(ctx, db, userID, false)
}

func (r *cartRepo) AddItem(ctx context.Context, db DBTX, cartID, productID int64, quantity int) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`,
		cartID, productID, quantity)
	return err
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, db DBTX, itemID int64, quantity int) (bool, error) {
	return affectedOne(db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $2, updated_at = now() WHERE id = $1", itemID, quantity))
}

func (r *cartRepo) RemoveItem(ctx context.Context, db DBTX, itemID int64) (bool, error) {
	return affectedOne(db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1", itemID))
}

func (r *cartRepo) Clear(ctx context.Context, db DBTX, cartID int64) error {
	_, err := db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID)
	return err
}
