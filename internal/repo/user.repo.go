package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopfront/order-service/internal/domain"
	"github.com/shopspring/decimal"
)

// UserRepo owns the users table, which carries the wallet balance.
type UserRepo interface {
	Ensure(ctx context.Context, db DBTX, user domain.User) error
	FindById(ctx context.Context, db DBTX, id string) (*domain.User, error)
	// Debit subtracts amount only if the balance covers it. ok is false when
	// the user is unknown or the balance is too low.
	Debit(ctx context.Context, db DBTX, id string, amount decimal.Decimal) (balance decimal.Decimal, ok bool, err error)
	Credit(ctx context.Context, db DBTX, id string, amount decimal.Decimal) (balance decimal.Decimal, ok bool, err error)
	SetBalance(ctx context.Context, db DBTX, id string, amount decimal.Decimal) (ok bool, err error)
	AddTransaction(ctx context.Context, db DBTX, t *domain.WalletTransaction) error
	ListTransactions(ctx context.Context, db DBTX, userID string, limit int) ([]domain.WalletTransaction, error)
}

type userRepo struct{}

func NewUserRepo() UserRepo {
	return &userRepo{}
}

func (r *userRepo) Ensure(ctx context.Context, db DBTX, user domain.User) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, role) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, role = EXCLUDED.role, updated_at = now()
		 WHERE users.email <> EXCLUDED.email OR users.role <> EXCLUDED.role`,
		user.ID, user.Email, user.Role,
	)
	return err
}

func (r *userRepo) FindById(ctx context.Context, db DBTX, id string) (*domain.User, error) {
	var u domain.User
	err := db.QueryRowContext(ctx, "SELECT id, email, role, balance FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.Email, &u.Role, &u.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Debit(ctx context.Context, db DBTX, id string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	return r.updateBalance(ctx, db,
		`UPDATE users SET balance = balance - $2, updated_at = now()
		 WHERE id = $1 AND balance >= $2
		 RETURNING balance`, id, amount)
}

func (r *userRepo) Credit(ctx context.Context, db DBTX, id string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	return r.updateBalance(ctx, db,
		`UPDATE users SET balance = balance + $2, updated_at = now()
		 WHERE id = $1
		 RETURNING balance`, id, amount)
}

func (r *userRepo) updateBalance(ctx context.Context, db DBTX, query, id string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	var balance decimal.Decimal
	err := db.QueryRowContext(ctx, query, id, amount).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return balance, true, nil
}

func (r *userRepo) SetBalance(ctx context.Context, db DBTX, id string, amount decimal.Decimal) (bool, error) {
	res, err := db.ExecContext(ctx, "UPDATE users SET balance = $2, updated_at = now() WHERE id = $1", id, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *userRepo) AddTransaction(ctx context.Context, db DBTX, t *domain.WalletTransaction) error {
	return db.QueryRowContext(ctx,
		`INSERT INTO wallet_transactions (user_id, kind, amount, balance_after, reason, order_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		t.UserID, t.Kind, t.Amount, t.BalanceAfter, t.Reason, t.OrderID,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *userRepo) ListTransactions(ctx context.Context, db DBTX, userID string, limit int) ([]domain.WalletTransaction, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, kind, amount, balance_after, reason, order_id, created_at
		 FROM wallet_transactions WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.WalletTransaction, 0)
	for rows.Next() {
		var t domain.WalletTransaction
		var orderID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.BalanceAfter, &t.Reason, &orderID, &t.CreatedAt); err != nil {
			return nil, err
		}
		if orderID.Valid {
			id := orderID.Int64
			t.OrderID = &id
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
