package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL statements used by SQLiteRepository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type transactionRow struct {
	ID          int64
	Category    string
	Amount      string
	Description string
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, category, amount, description FROM transactions ORDER BY id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []transactionRow
	for rows.Next() {
		var i transactionRow
		if err := rows.Scan(&i.ID, &i.Category, &i.Amount, &i.Description); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CreateTransactionParams struct {
	Category    string
	Amount      string
	Description string
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (category, amount, description)
VALUES (?, ?, ?)
RETURNING id, category, amount, description
`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (transactionRow, error) {
	row := q.db.QueryRowContext(ctx, createTransaction, arg.Category, arg.Amount, arg.Description)
	var i transactionRow
	err := row.Scan(&i.ID, &i.Category, &i.Amount, &i.Description)
	return i, err
}

type UpdateTransactionParams struct {
	ID          int64
	Category    string
	Amount      string
	Description string
}

const updateTransaction = `-- name: UpdateTransaction :one
UPDATE transactions
SET category = ?, amount = ?, description = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, category, amount, description
`

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (transactionRow, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction, arg.Category, arg.Amount, arg.Description, arg.ID)
	var i transactionRow
	err := row.Scan(&i.ID, &i.Category, &i.Amount, &i.Description)
	return i, err
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type budgetRow struct {
	ID        int64
	Category  string
	Amount    string
	StartDate string
	EndDate   string
}

const listBudgets = `-- name: ListBudgets :many
SELECT id, category, amount, start_date, end_date FROM budgets ORDER BY id
`

func (q *Queries) ListBudgets(ctx context.Context) ([]budgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []budgetRow
	for rows.Next() {
		var i budgetRow
		if err := rows.Scan(&i.ID, &i.Category, &i.Amount, &i.StartDate, &i.EndDate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CreateBudgetParams struct {
	Category  string
	Amount    string
	StartDate string
	EndDate   string
}

const createBudget = `-- name: CreateBudget :one
INSERT INTO budgets (category, amount, start_date, end_date)
VALUES (?, ?, ?, ?)
RETURNING id, category, amount, start_date, end_date
`

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (budgetRow, error) {
	row := q.db.QueryRowContext(ctx, createBudget, arg.Category, arg.Amount, arg.StartDate, arg.EndDate)
	var i budgetRow
	err := row.Scan(&i.ID, &i.Category, &i.Amount, &i.StartDate, &i.EndDate)
	return i, err
}

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, email, password_hash)
VALUES (?, ?, ?)
RETURNING id, username, email, password_hash
`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Username, arg.Email, arg.PasswordHash)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.PasswordHash)
	return i, err
}

const countUsersByNameOrEmail = `-- name: CountUsersByNameOrEmail :one
SELECT COUNT(*) FROM users WHERE username = ? OR email = ?
`

func (q *Queries) CountUsersByNameOrEmail(ctx context.Context, username, email string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUsersByNameOrEmail, username, email)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT id, username, email, password_hash FROM users WHERE username = ?
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.PasswordHash)
	return i, err
}

const createSession = `-- name: CreateSession :exec
INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)
`

func (q *Queries) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, createSession, token, userID, expiresAt.Unix())
	return err
}

const getSessionUser = `-- name: GetSessionUser :one
SELECT u.id, u.username, u.email, u.password_hash
FROM sessions s JOIN users u ON u.id = s.user_id
WHERE s.token = ? AND s.expires_at > ?
`

func (q *Queries) GetSessionUser(ctx context.Context, token string, now time.Time) (User, error) {
	row := q.db.QueryRowContext(ctx, getSessionUser, token, now.Unix())
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.PasswordHash)
	return i, err
}

const deleteSession = `-- name: DeleteSession :exec
DELETE FROM sessions WHERE token = ?
`

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, token)
	return err
}
