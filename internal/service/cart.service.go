package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/domain"
	"github.com/shopfront/order-service/internal/repo"
)

type CartService interface {
	// GetForUser returns the user's cart, creating an empty one on first use.
	// Items carry their current product.
	GetForUser(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID string, itemID int64, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, itemID int64) error
	Clear(ctx context.Context, userID string) error
}

type cartService struct {
	db       *sql.DB
	carts    repo.CartRepo
	products repo.ProductRepo
	logger   *zap.Logger
}

func NewCartService(db *sql.DB, carts repo.CartRepo, products repo.ProductRepo, logger *zap.Logger) CartService {
	return &cartService{
		db:       db,
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

func (s *cartService) GetForUser(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.FindByUserId(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		if cart, err = s.carts.Create(ctx, s.db, userID); err != nil {
			return nil, err
		}
	}

	for i := range cart.Items {
		p, err := s.products.FindById(ctx, s.db, cart.Items[i].ProductID)
		if err != nil {
			return nil, err
		}
		cart.Items[i].Product = p
	}
	return cart, nil
}

// AddItem merges quantity into an existing line for the same product. The
// merged quantity must fit the product's current stock.
func (s *cartService) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.carts.Create(ctx, tx, userID); err != nil {
		return nil, err
	}
	cart, err := s.carts.FindByUserId(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}

	wanted := quantity
	if existing := cart.ItemForProduct(productID); existing != nil {
		wanted += existing.Quantity
	}
	if err := s.checkStock(ctx, tx, productID, wanted); err != nil {
		return nil, err
	}

	if err := s.carts.AddItem(ctx, tx, cart.ID, productID, quantity); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Debug("Cart item added",
		zap.String("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return s.GetForUser(ctx, userID)
}

func (s *cartService) UpdateItem(ctx context.Context, userID string, itemID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	item, err := s.ownedItem(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.checkStock(ctx, tx, item.ProductID, quantity); err != nil {
		return nil, err
	}
	if _, err := s.carts.UpdateItemQuantity(ctx, tx, itemID, quantity); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetForUser(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID string, itemID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.ownedItem(ctx, tx, userID, itemID); err != nil {
		return err
	}
	if _, err := s.carts.RemoveItem(ctx, tx, itemID); err != nil {
		return err
	}
	return tx.Commit()
}

// Clear is idempotent; a user without a cart has nothing to clear.
func (s *cartService) Clear(ctx context.Context, userID string) error {
	cart, err := s.carts.FindByUserId(ctx, s.db, userID, false)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	return s.carts.Clear(ctx, s.db, cart.ID)
}

// ownedItem locks the user's cart and returns itemID from it.
func (s *cartService) ownedItem(ctx context.Context, tx *sql.Tx, userID string, itemID int64) (*domain.CartItem, error) {
	cart, err := s.carts.FindByUserId(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrCartItemNotFound
	}
	item := cart.Item(itemID)
	if item == nil {
		return nil, domain.ErrCartItemNotFound
	}
	return item, nil
}

func (s *cartService) checkStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	p, err := s.products.FindById(ctx, tx, productID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: product %d", domain.ErrProductNotFound, productID)
	}
	if p.Stock < quantity {
		return fmt.Errorf("%w for product %s. Available: %d, requested: %d",
			domain.ErrInsufficientStock, p.Name, p.Stock, quantity)
	}
	return nil
}
