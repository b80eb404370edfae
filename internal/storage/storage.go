// Package storage persists the reference backend's records: transactions,
// budgets, users and login sessions. Two implementations exist, an
// in-memory one for development and tests and a SQLite one.
package storage

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique username or email is taken.
	ErrConflict = errors.New("username or email already in use")
)

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// TransactionStore holds transactions in insertion order.
type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id core.ID, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id core.ID) error
}

// BudgetStore holds budgets in insertion order.
type BudgetStore interface {
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
}

// UserStore holds accounts and their login sessions.
type UserStore interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	SessionUser(ctx context.Context, token string, now time.Time) (User, error)
	DeleteSession(ctx context.Context, token string) error
}

// Repository is everything the backend persists.
type Repository interface {
	TransactionStore
	BudgetStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
