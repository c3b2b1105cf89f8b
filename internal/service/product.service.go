package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/domain"
	"github.com/shopfront/order-service/internal/repo"
)

// ProductCache is a read-through cache of single products. Get returns
// nil, nil on a miss.
type ProductCache interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Set(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, ids ...int64) error
}

type CreateProductInput struct {
	Type        string
	Name        string
	Price       decimal.Decimal
	Stock       int
	Brand       string
	Description string
	Power       int
	Material    string
	Image       string
	ScreenSize  string
	Scope       string
	Capacity    string
}

// ProductService covers the catalog and the stock counters of the inventory.
type ProductService interface {
	List(ctx context.Context, kind domain.ProductKind) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, in CreateProductInput) (*domain.Product, error)
	// DecrementStock and IncrementStock are the standalone, auto-committed
	// stock operations for collaborators outside an order. Placement and
	// cancellation call the repository inside their own transaction instead.
	DecrementStock(ctx context.Context, id int64, quantity int) (bool, error)
	IncrementStock(ctx context.Context, id int64, quantity int) (bool, error)
}

type productService struct {
	db       *sql.DB
	products repo.ProductRepo
	cache    ProductCache
	logger   *zap.Logger
}

func NewProductService(db *sql.DB, products repo.ProductRepo, cache ProductCache, logger *zap.Logger) ProductService {
	return &productService{
		db:       db,
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

func (s *productService) List(ctx context.Context, kind domain.ProductKind) ([]domain.Product, error) {
	return s.products.List(ctx, s.db, kind)
}

// Get serves from the cache when possible. Cache failures only cost a
// database read.
func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	if p, err := s.cache.Get(ctx, id); err != nil {
		s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	} else if p != nil {
		return p, nil
	}

	p, err := s.products.FindById(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: product %d", domain.ErrProductNotFound, id)
	}

	if err := s.cache.Set(ctx, p); err != nil {
		s.logger.Warn("Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
	}
	return p, nil
}

func (s *productService) Create(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	kind, err := domain.ParseProductKind(in.Type)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidProduct)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", domain.ErrInvalidProduct)
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", domain.ErrInvalidProduct)
	}
	spec, err := domain.ResolveSpec(kind, domain.SpecAttributes{
		ScreenSize: in.ScreenSize,
		Scope:      in.Scope,
		Capacity:   in.Capacity,
	})
	if err != nil {
		return nil, err
	}

	p := &domain.Product{
		Name:        in.Name,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		Brand:       in.Brand,
		Description: in.Description,
		Power:       in.Power,
		Material:    in.Material,
		Image:       in.Image,
		Spec:        spec,
	}
	if err := s.products.Create(ctx, s.db, p); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", zap.Int64("product_id", p.ID), zap.String("type", string(kind)))
	return p, nil
}

func (s *productService) DecrementStock(ctx context.Context, id int64, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	ok, err := s.products.DecrementStock(ctx, s.db, id, quantity)
	if err != nil || !ok {
		return false, err
	}
	invalidateProducts(ctx, s.cache, s.logger, id)
	return true, nil
}

func (s *productService) IncrementStock(ctx context.Context, id int64, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	ok, err := s.products.IncrementStock(ctx, s.db, id, quantity)
	if err != nil || !ok {
		return false, err
	}
	invalidateProducts(ctx, s.cache, s.logger, id)
	return true, nil
}

// invalidateProducts drops cached copies after a committed stock change. A
// failure leaves stale stock in the cache until the TTL expires.
func invalidateProducts(ctx context.Context, cache ProductCache, logger *zap.Logger, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	if err := cache.Delete(ctx, ids...); err != nil {
		logger.Warn("Product cache invalidation failed", zap.Int64s("product_ids", ids), zap.Error(err))
	}
}
