package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores records in a SQLite file migrated on open.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger := log.Default(log.ComponentStorage)
	logger.Info("SQLite repository ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Category:    t.Category,
		Amount:      t.Amount.String(),
		Description: t.Description,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	r.logger.DebugContext(ctx, "Transaction saved", log.FieldResourceID, row.ID)
	return row.toCore()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id core.ID, t core.Transaction) (core.Transaction, error) {
	n, ok := rowID(id)
	if !ok {
		return core.Transaction{}, ErrNotFound
	}
	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          n,
		Category:    t.Category,
		Amount:      t.Amount.String(),
		Description: t.Description,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	return row.toCore()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id core.ID) error {
	n, ok := rowID(id)
	if !ok {
		return ErrNotFound
	}
	affected, err := r.queries.DeleteTransaction(ctx, n)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row, err := r.queries.CreateBudget(ctx, CreateBudgetParams{
		Category:  b.Category,
		Amount:    b.Amount.String(),
		StartDate: b.StartDate.String(),
		EndDate:   b.EndDate.String(),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return row.toCore()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u User) (User, error) {
	count, err := r.queries.CountUsersByNameOrEmail(ctx, u.Username, u.Email)
	if err != nil {
		return User{}, fmt.Errorf("check user: %w", err)
	}
	if count > 0 {
		return User{}, ErrConflict
	}
	created, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (User, error) {
	u, err := r.queries.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	if err := r.queries.CreateSession(ctx, token, userID, expiresAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SessionUser(ctx context.Context, token string, now time.Time) (User, error) {
	u, err := r.queries.GetSessionUser(ctx, token, now)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get session: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if err := r.queries.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (row transactionRow) toCore() (core.Transaction, error) {
	amount, err := core.ParseMoney(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d amount %q: %w", row.ID, row.Amount, err)
	}
	return core.Transaction{
		TransactionID: core.ID(strconv.FormatInt(row.ID, 10)),
		Category:      row.Category,
		Amount:        amount,
		Description:   row.Description,
	}, nil
}

func (row budgetRow) toCore() (core.Budget, error) {
	amount, err := core.ParseMoney(row.Amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d amount %q: %w", row.ID, row.Amount, err)
	}
	start, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d start date: %w", row.ID, err)
	}
	end, err := core.ParseDate(row.EndDate)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %d end date: %w", row.ID, err)
	}
	return core.Budget{
		BudgetID:  core.ID(strconv.FormatInt(row.ID, 10)),
		Category:  row.Category,
		Amount:    amount,
		StartDate: start,
		EndDate:   end,
	}, nil
}

func rowID(id core.ID) (int64, bool) {
	n, err := strconv.ParseInt(id.String(), 10, 64)
	return n, err == nil
}

var (
	_ Repository = (*SQLiteRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
