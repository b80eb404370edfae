package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.ResourceEvent
	err    error
	closed bool
}

func (p *fakePublisher) Publish(_ context.Context, ev *amqp.ResourceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		keys = append(keys, ev.RoutingKey())
	}
	return keys
}

func newTestService(pub *fakePublisher, opts ...Option) *LedgerService {
	opts = append([]Option{
		WithEvents(pub),
		WithLogger(log.Discard()),
		WithBcryptCost(bcrypt.MinCost),
	}, opts...)
	return NewLedgerService(storage.NewMemoryRepository(), opts...)
}

func TestLedgerServiceTransactionLifecycle(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, core.Transaction{
		Category: "Food", Amount: core.MustMoney("12.5"), Description: "lunch",
	})
	require.NoError(t, err)

	_, err = svc.UpdateTransaction(ctx, created.TransactionID, core.Transaction{
		Category: "Food", Amount: core.MustMoney("13"), Description: "lunch",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, created.TransactionID))

	list, err := svc.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, []string{"transaction.created", "transaction.updated", "transaction.deleted"}, pub.keys())
	assert.Equal(t, created.TransactionID.String(), pub.events[0].RecordID)
}

func TestLedgerServiceRejectsInvalidRecords(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, core.Transaction{Category: "Food"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, core.ErrEmptyAmount)

	_, err = svc.CreateBudget(ctx, core.Budget{
		Category:  "Food",
		Amount:    core.MustMoney("50"),
		StartDate: core.NewDate(2024, 2, 1),
		EndDate:   core.NewDate(2024, 1, 1),
	})
	assert.ErrorIs(t, err, core.ErrDateOrder)

	_, err = svc.UpdateTransaction(ctx, "42", core.Transaction{Category: "Food", Amount: core.MustMoney("1")})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Empty(t, pub.keys())
}

func TestLedgerServicePublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	var observed []bool
	svc := newTestService(pub, WithEventObserver(func(key string, ok bool) {
		assert.Equal(t, "budget.created", key)
		observed = append(observed, ok)
	}))

	b, err := svc.CreateBudget(context.Background(), core.Budget{
		Category:  "Food",
		Amount:    core.MustMoney("50"),
		StartDate: core.NewDate(2024, 1, 1),
		EndDate:   core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.BudgetID)
	assert.Equal(t, []bool{false}, observed)

	budgets, err := svc.ListBudgets(context.Background())
	require.NoError(t, err)
	assert.Len(t, budgets, 1)
}

func TestLedgerServiceWithoutEvents(t *testing.T) {
	svc := NewLedgerService(storage.NewMemoryRepository(), WithLogger(log.Discard()))
	_, err := svc.CreateTransaction(context.Background(), core.Transaction{
		Category: "Food", Amount: core.MustMoney("1"),
	})
	assert.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestLedgerServiceAccounts(t *testing.T) {
	svc := newTestService(&fakePublisher{}, WithSessionTTL(time.Hour))
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "", "secret")
	assert.ErrorIs(t, err, ErrMissingFields)

	u, err := svc.Register(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", u.PasswordHash)

	_, err = svc.Register(ctx, "alice", "a2@example.com", "secret")
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrMissingFields)

	token, expires, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	who, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", who.Username)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLedgerServiceSessionExpiry(t *testing.T) {
	svc := newTestService(&fakePublisher{}, WithSessionTTL(time.Minute))
	ctx := context.Background()
	_, err := svc.Register(ctx, "bob", "bob@example.com", "pw")
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, "bob", "pw")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLedgerServiceClose(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}
