package service

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/domain"
	"github.com/shopfront/order-service/internal/repo"
)

type CreateOrderInput struct {
	ShippingAddress string
	Notes           *string
}

type OrderService interface {
	// PlaceOrder turns the user's cart into a Paid order in one transaction:
	// stock is reserved, the wallet is debited and the cart is emptied, or
	// nothing changes at all.
	PlaceOrder(ctx context.Context, userID string, in CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error)
	GetOrderAdmin(ctx context.Context, orderID int64) (*domain.Order, error)
	ListOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAllOrders(ctx context.Context) ([]domain.Order, error)
	CancelOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	db     *sql.DB
	repos  repo.Repositories
	cache  ProductCache
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderService(db *sql.DB, repos repo.Repositories, cache ProductCache, logger *zap.Logger) OrderService {
	return &orderService{
		db:     db,
		repos:  repos,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, userID string, in CreateOrderInput) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))
	defer func() {
		ordersPlacedTotal.WithLabelValues(placementResult(err)).Inc()
		if err != nil {
			span.RecordError(err)
		}
	}()

	if userID == "" {
		return nil, domain.ErrEmptyCart
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return nil, domain.ErrMissingAddress
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The row lock serializes concurrent checkouts of the same cart; the
	// loser sees it already emptied.
	cart, err := s.repos.Carts.FindByUserId(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}
	if cart.Empty() {
		return nil, domain.ErrEmptyCart
	}

	items := make([]domain.OrderItem, 0, len(cart.Items))
	productIDs := make([]int64, 0, len(cart.Items))
	for _, ci := range cart.Items {
		p, err := s.repos.Products.FindById(ctx, tx, ci.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: product %d", domain.ErrProductNotFound, ci.ProductID)
		}
		if p.Stock < ci.Quantity {
			return nil, fmt.Errorf("%w for product %s", domain.ErrInsufficientStock, p.Name)
		}
		items = append(items, domain.NewOrderItem(p, ci.Quantity))
		productIDs = append(productIDs, p.ID)
	}
	total := domain.SumItems(items)

	user, err := s.repos.Users.FindById(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	balance := decimal.Zero
	if user != nil {
		balance = user.Balance
	}
	if balance.LessThan(total) {
		return nil, fmt.Errorf("%w. Current: %s, Required: %s",
			domain.ErrInsufficientBalance, balance.StringFixed(2), total.StringFixed(2))
	}

	now := s.now().UTC()
	paymentRef := "WALLET_PAY_" + now.Format("20060102150405")
	payer := userID
	order = &domain.Order{
		UserID:          userID,
		OrderNumber:     newOrderNumber(now),
		OrderDate:       now,
		TotalAmount:     total,
		Status:          domain.OrderPaid,
		PaymentID:       &paymentRef,
		PayerID:         &payer,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		Notes:           in.Notes,
		UpdatedAt:       now,
		Items:           items,
	}

	// Guarded updates: a concurrent checkout may have taken the stock or the
	// funds since the reads above. Rows are locked in product id order so two
	// carts holding the same products cannot deadlock.
	byProduct := slices.Clone(items)
	slices.SortFunc(byProduct, func(a, b domain.OrderItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	for _, it := range byProduct {
		ok, err := s.repos.Products.DecrementStock(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w for product %s", domain.ErrInsufficientStock, it.ProductName)
		}
	}

	balanceAfter, ok, err := s.repos.Users.Debit(ctx, tx, userID, total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w. Required: %s", domain.ErrInsufficientBalance, total.StringFixed(2))
	}

	if err := s.repos.Orders.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := s.repos.Users.AddTransaction(ctx, tx, &domain.WalletTransaction{
		UserID:       userID,
		Kind:         domain.WalletDebit,
		Amount:       total,
		BalanceAfter: balanceAfter,
		Reason:       "Payment for order " + order.OrderNumber,
		OrderID:      &order.ID,
	}); err != nil {
		return nil, err
	}
	if err := s.repos.Carts.Clear(ctx, tx, cart.ID); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, tx, domain.EventOrderCreated, order, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	invalidateProducts(ctx, s.cache, s.logger, productIDs...)
	span.SetAttributes(attribute.Int64("order.id", order.ID), attribute.String("order.number", order.OrderNumber))
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID),
		zap.String("total", total.StringFixed(2)),
		zap.Int("items", len(items)),
	)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error) {
	order, err := s.repos.Orders.FindById(ctx, s.db, orderID, false)
	if err != nil {
		return nil, err
	}
	// Someone else's order is indistinguishable from a missing one.
	if order == nil || order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) GetOrderAdmin(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.repos.Orders.FindById(ctx, s.db, orderID, false)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repos.Orders.FindByUserId(ctx, s.db, userID)
}

func (s *orderService) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repos.Orders.FindAll(ctx, s.db)
}

// CancelOrder returns the reserved stock of a Pending order. The wallet is
// not refunded.
func (s *orderService) CancelOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.String("user.id", userID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := s.repos.Orders.FindById(ctx, tx, orderID, true)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	if !order.Status.CanCancel() {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidState, order.OrderNumber, order.Status)
	}

	restored := make([]int64, 0, len(order.Items))
	for _, it := range order.Items {
		ok, err := s.repos.Products.IncrementStock(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Warn("Skipping stock restore for deleted product",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", it.ProductID),
			)
			continue
		}
		restored = append(restored, it.ProductID)
	}

	now := s.now().UTC()
	order.Status = domain.OrderCancelled
	order.UpdatedAt = now
	if err := s.repos.Orders.UpdateOrderStatus(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, tx, domain.EventOrderCancelled, order, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	invalidateProducts(ctx, s.cache, s.logger, restored...)
	ordersCancelledTotal.Inc()
	s.logger.Info("Order cancelled", zap.Int64("order_id", order.ID), zap.String("user_id", userID))
	return order, nil
}

// UpdateStatus moves an order one step along Pending, Paid, Shipped,
// Delivered. Cancellation goes through CancelOrder.
func (s *orderService) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() || status == domain.OrderCancelled {
		return nil, fmt.Errorf("%w: cannot set status %q", domain.ErrInvalidState, status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := s.repos.Orders.FindById(ctx, tx, orderID, true)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s cannot move to %s", domain.ErrInvalidState, order.Status, status)
	}

	now := s.now().UTC()
	previous := order.Status
	order.Status = status
	order.UpdatedAt = now
	if err := s.repos.Orders.UpdateOrderStatus(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, tx, domain.EventOrderStatusChanged, order, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)
	return order, nil
}

func (s *orderService) enqueue(ctx context.Context, tx *sql.Tx, t domain.EventType, order *domain.Order, at time.Time) error {
	ev, err := domain.NewOrderEvent(t, order, at)
	if err != nil {
		return err
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	ev.TraceContext = carrier
	return s.repos.Outbox.Insert(ctx, tx, ev)
}

// newOrderNumber formats ORD-YYYYMMDD-XXXXXXXX; uniqueness is enforced by
// the orders.order_number index.
func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "ORD-" + at.Format("20060102") + "-" + suffix
}
