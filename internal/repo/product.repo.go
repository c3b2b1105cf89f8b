package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopfront/order-service/internal/domain"
)

type ProductRepo interface {
	FindById(ctx context.Context, db DBTX, id int64) (*domain.Product, error)
	List(ctx context.Context, db DBTX, kind domain.ProductKind) ([]domain.Product, error)
	Create(ctx context.Context, db DBTX, p *domain.Product) error
	// DecrementStock is a conditional update; ok is false when the product is
	// unknown or holds fewer than quantity units.
	DecrementStock(ctx context.Context, db DBTX, id int64, quantity int) (ok bool, err error)
	IncrementStock(ctx context.Context, db DBTX, id int64, quantity int) (ok bool, err error)
}

type productRepo struct{}

func NewProductRepo() ProductRepo {
	return &productRepo{}
}

const productColumns = `id, type, name, price, stock, brand, description, power, material, image, screen_size, scope, capacity, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*domain.Product, error) {
	var (
		p                       domain.Product
		kind                    string
		screen, scope, capacity sql.NullString
	)
	if err := row.Scan(&p.ID, &kind, &p.Name, &p.Price, &p.Stock, &p.Brand, &p.Description, &p.Power, &p.Material, &p.Image,
		&screen, &scope, &capacity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	spec, err := domain.ResolveSpec(domain.ProductKind(kind), domain.SpecAttributes{
		ScreenSize: screen.String,
		Scope:      scope.String,
		Capacity:   capacity.String,
	})
	if err != nil {
		return nil, err
	}
	p.Spec = spec
	return &p, nil
}

func (r *productRepo) FindById(ctx context.Context, db DBTX, id int64) (*domain.Product, error) {
	p, err := scanProduct(db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepo) List(ctx context.Context, db DBTX, kind domain.ProductKind) ([]domain.Product, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	} else {
		rows, err = db.QueryContext(ctx, "SELECT "+productColumns+" FROM products WHERE type = $1 ORDER BY id", kind)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *productRepo) Create(ctx context.Context, db DBTX, p *domain.Product) error {
	attrs := domain.Attributes(p.Spec)
	return db.QueryRowContext(ctx,
		`INSERT INTO products (type, name, price, stock, brand, description, power, material, image, screen_size, scope, capacity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''))
		 RETURNING id, created_at, updated_at`,
		p.Kind(), p.Name, p.Price, p.Stock, p.Brand, p.Description, p.Power, p.Material, p.Image,
		attrs.ScreenSize, attrs.Scope, attrs.Capacity,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *productRepo) DecrementStock(ctx context.Context, db DBTX, id int64, quantity int) (bool, error) {
	return affectedOne(db.ExecContext(ctx,
		"UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2", id, quantity))
}

func (r *productRepo) IncrementStock(ctx context.Context, db DBTX, id int64, quantity int) (bool, error) {
	return affectedOne(db.ExecContext(ctx,
		"UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1", id, quantity))
}

func affectedOne(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
