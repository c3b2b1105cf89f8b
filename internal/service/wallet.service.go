package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/domain"
	"github.com/shopfront/order-service/internal/repo"
)

// WalletService is the wallet ledger. Insufficient funds and unknown users
// are reported as false, never as errors.
type WalletService interface {
	EnsureUser(ctx context.Context, user domain.User) error
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	// HasSufficientBalance is a read-only check for collaborators. Placement
	// reads the balance inside its transaction and relies on Debit's guard.
	HasSufficientBalance(ctx context.Context, userID string, amount decimal.Decimal) (bool, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal, reason string) (bool, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal, reason string) (bool, error)
	SetBalance(ctx context.Context, userID string, amount decimal.Decimal, reason string) (bool, error)
	Transactions(ctx context.Context, userID string, limit int) ([]domain.WalletTransaction, error)
}

type walletService struct {
	db     *sql.DB
	users  repo.UserRepo
	logger *zap.Logger
}

func NewWalletService(db *sql.DB, users repo.UserRepo, logger *zap.Logger) WalletService {
	return &walletService{
		db:     db,
		users:  users,
		logger: logger,
	}
}

func (s *walletService) EnsureUser(ctx context.Context, user domain.User) error {
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	return s.users.Ensure(ctx, s.db, user)
}

func (s *walletService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	user, err := s.users.FindById(ctx, s.db, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if user == nil {
		return decimal.Zero, nil
	}
	return user.Balance, nil
}

func (s *walletService) HasSufficientBalance(ctx context.Context, userID string, amount decimal.Decimal) (bool, error) {
	user, err := s.users.FindById(ctx, s.db, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return user.Balance.GreaterThanOrEqual(amount), nil
}

func (s *walletService) Debit(ctx context.Context, userID string, amount decimal.Decimal, reason string) (bool, error) {
	if !amount.IsPositive() {
		return false, fmt.Errorf("%w: debit amount must be positive", domain.ErrInvalidAmount)
	}
	return s.apply(ctx, userID, domain.WalletDebit, amount, reason, func(tx *sql.Tx) (decimal.Decimal, bool, error) {
		return s.users.Debit(ctx, tx, userID, amount)
	})
}

func (s *walletService) Credit(ctx context.Context, userID string, amount decimal.Decimal, reason string) (bool, error) {
	if !amount.IsPositive() {
		return false, fmt.Errorf("%w: credit amount must be positive", domain.ErrInvalidAmount)
	}
	return s.apply(ctx, userID, domain.WalletCredit, amount, reason, func(tx *sql.Tx) (decimal.Decimal, bool, error) {
		return s.users.Credit(ctx, tx, userID, amount)
	})
}

func (s *walletService) SetBalance(ctx context.Context, userID string, amount decimal.Decimal, reason string) (bool, error) {
	if amount.IsNegative() {
		return false, fmt.Errorf("%w: balance cannot be negative", domain.ErrInvalidAmount)
	}
	return s.apply(ctx, userID, domain.WalletSet, amount, reason, func(tx *sql.Tx) (decimal.Decimal, bool, error) {
		ok, err := s.users.SetBalance(ctx, tx, userID, amount)
		return amount, ok, err
	})
}

func (s *walletService) Transactions(ctx context.Context, userID string, limit int) ([]domain.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.users.ListTransactions(ctx, s.db, userID, limit)
}

// apply runs one balance change and its ledger line in a single transaction.
func (s *walletService) apply(
	ctx context.Context,
	userID string,
	kind domain.WalletTxKind,
	amount decimal.Decimal,
	reason string,
	change func(tx *sql.Tx) (decimal.Decimal, bool, error),
) (bool, error) {
	ctx, span := tracer.Start(ctx, "WalletService."+string(kind))
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("wallet.amount", amount.String()))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	balance, ok, err := change(tx)
	if err != nil {
		span.RecordError(err)
		walletOperationsTotal.WithLabelValues(string(kind), "error").Inc()
		return false, err
	}
	if !ok {
		walletOperationsTotal.WithLabelValues(string(kind), "rejected").Inc()
		return false, nil
	}

	if err := s.users.AddTransaction(ctx, tx, &domain.WalletTransaction{
		UserID:       userID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		Reason:       reason,
	}); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	walletOperationsTotal.WithLabelValues(string(kind), "success").Inc()
	s.logger.Info("Wallet balance changed",
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("balance", balance.StringFixed(2)),
		zap.String("reason", reason),
	)
	return true, nil
}
