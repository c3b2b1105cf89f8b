package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletTxKind string

const (
	WalletDebit  WalletTxKind = "debit"
	WalletCredit WalletTxKind = "credit"
	WalletSet    WalletTxKind = "set"
)

// WalletTransaction is one ledger line written for every balance change.
type WalletTransaction struct {
	ID           int64           `json:"id"`
	UserID       string          `json:"userId"`
	Kind         WalletTxKind    `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Reason       string          `json:"reason,omitempty"`
	OrderID      *int64          `json:"orderId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

type User struct {
	ID      string          `json:"id"`
	Email   string          `json:"email"`
	Role    Role            `json:"role"`
	Balance decimal.Decimal `json:"balance"`
}
