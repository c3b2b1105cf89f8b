package repo

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository method
// can run standalone or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

// Repositories bundles the stateless repositories a service composes inside
// one transaction.
type Repositories struct {
	Users    UserRepo
	Products ProductRepo
	Carts    CartRepo
	Orders   OrderRepo
	Outbox   OutboxRepo
}

func NewRepositories() Repositories {
	return Repositories{
		Users:    NewUserRepo(),
		Products: NewProductRepo(),
		Carts:    NewCartRepo(),
		Orders:   NewOrderRepo(),
		Outbox:   NewOutboxRepo(),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
