package storage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/core"
)

type memSession struct {
	userID    int64
	expiresAt time.Time
}

// MemoryRepository keeps everything in process memory.
type MemoryRepository struct {
	mu           sync.RWMutex
	transactions []core.Transaction
	budgets      []core.Budget
	users        []User
	sessions     map[string]memSession
	nextID       int64
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]memSession),
		now:      time.Now,
	}
}

func (r *MemoryRepository) id() core.ID {
	r.nextID++
	return core.ID(strconv.FormatInt(r.nextID, 10))
}

func (r *MemoryRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Transaction, len(r.transactions))
	copy(out, r.transactions)
	return out, nil
}

func (r *MemoryRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.TransactionID = r.id()
	r.transactions = append(r.transactions, t)
	return t, nil
}

func (r *MemoryRepository) UpdateTransaction(ctx context.Context, id core.ID, t core.Transaction) (core.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.transactions {
		if r.transactions[i].TransactionID == id {
			t.TransactionID = id
			r.transactions[i] = t
			return t, nil
		}
	}
	return core.Transaction{}, ErrNotFound
}

func (r *MemoryRepository) DeleteTransaction(ctx context.Context, id core.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.transactions {
		if r.transactions[i].TransactionID == id {
			r.transactions = append(r.transactions[:i], r.transactions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Budget, len(r.budgets))
	copy(out, r.budgets)
	return out, nil
}

func (r *MemoryRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.BudgetID = r.id()
	r.budgets = append(r.budgets, b)
	return b, nil
}

func (r *MemoryRepository) CreateUser(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return User{}, ErrConflict
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = r.now()
	r.users = append(r.users, u)
	return u, nil
}

func (r *MemoryRepository) UserByUsername(ctx context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[token] = memSession{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *MemoryRepository) SessionUser(ctx context.Context, token string, now time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return User{}, ErrNotFound
	}
	if !now.Before(s.expiresAt) {
		delete(r.sessions, token)
		return User{}, ErrNotFound
	}
	for _, u := range r.users {
		if u.ID == s.userID {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepository) DeleteSession(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryRepository) Close() error { return nil }
