package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	sqlite, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": sqlite,
	}
}

func TestRepositoryTransactions(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			list, err := repo.ListTransactions(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)

			first, err := repo.CreateTransaction(ctx, core.Transaction{
				Category:    "Food",
				Amount:      core.MustMoney("12.50"),
				Description: "lunch",
			})
			require.NoError(t, err)
			assert.NotEmpty(t, first.TransactionID)

			second, err := repo.CreateTransaction(ctx, core.Transaction{
				Category: "Rent",
				Amount:   core.MustMoney("900"),
			})
			require.NoError(t, err)
			assert.NotEqual(t, first.TransactionID, second.TransactionID)

			updated, err := repo.UpdateTransaction(ctx, first.TransactionID, core.Transaction{
				Category:    "Groceries",
				Amount:      core.MustMoney("-3"),
				Description: "refund",
			})
			require.NoError(t, err)
			assert.Equal(t, first.TransactionID, updated.TransactionID)
			assert.Equal(t, "Groceries", updated.Category)

			list, err = repo.ListTransactions(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "Groceries", list[0].Category)
			assert.True(t, list[0].Amount.Equal(core.MustMoney("-3").Decimal))
			assert.Equal(t, "Rent", list[1].Category)

			require.NoError(t, repo.DeleteTransaction(ctx, second.TransactionID))
			list, err = repo.ListTransactions(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestRepositoryTransactionNotFound(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tx := core.Transaction{Category: "Food", Amount: core.MustMoney("1")}

			_, err := repo.UpdateTransaction(ctx, "999", tx)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = repo.UpdateTransaction(ctx, "not-a-number", tx)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, repo.DeleteTransaction(ctx, "999"), ErrNotFound)
		})
	}
}

func TestRepositoryBudgets(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := repo.CreateBudget(ctx, core.Budget{
				Category:  "Food",
				Amount:    core.MustMoney("300"),
				StartDate: core.NewDate(2024, 1, 1),
				EndDate:   core.NewDate(2024, 1, 31),
			})
			require.NoError(t, err)
			assert.NotEmpty(t, created.BudgetID)

			list, err := repo.ListBudgets(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "Food", list[0].Category)
			assert.Equal(t, "2024-01-01", list[0].StartDate.String())
			assert.Equal(t, "2024-01-31", list[0].EndDate.String())
		})
	}
}

func TestRepositoryUsersAndSessions(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			alice, err := repo.CreateUser(ctx, User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"})
			require.NoError(t, err)
			assert.NotZero(t, alice.ID)

			_, err = repo.CreateUser(ctx, User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
			assert.ErrorIs(t, err, ErrConflict)
			_, err = repo.CreateUser(ctx, User{Username: "bob", Email: "alice@example.com", PasswordHash: "x"})
			assert.ErrorIs(t, err, ErrConflict)

			found, err := repo.UserByUsername(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, alice.ID, found.ID)
			assert.Equal(t, "hash", found.PasswordHash)

			_, err = repo.UserByUsername(ctx, "nobody")
			assert.ErrorIs(t, err, ErrNotFound)

			now := time.Now()
			require.NoError(t, repo.CreateSession(ctx, "tok", alice.ID, now.Add(time.Hour)))

			u, err := repo.SessionUser(ctx, "tok", now)
			require.NoError(t, err)
			assert.Equal(t, "alice", u.Username)

			_, err = repo.SessionUser(ctx, "tok", now.Add(2*time.Hour))
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, repo.CreateSession(ctx, "tok2", alice.ID, now.Add(time.Hour)))
			require.NoError(t, repo.DeleteSession(ctx, "tok2"))
			_, err = repo.SessionUser(ctx, "tok2", now)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, repo.Ping(ctx))
		})
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")

	v1, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v1)

	v2, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}
