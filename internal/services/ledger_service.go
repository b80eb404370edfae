// Package services holds the reference backend's business logic: record
// validation, change events and account handling on top of storage.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	resourceTransaction = "transaction"
	resourceBudget      = "budget"

	// DefaultSessionTTL is how long a login token stays valid.
	DefaultSessionTTL = 24 * time.Hour
)

var (
	ErrMissingFields      = errors.New("Missing required fields")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUnauthorized       = errors.New("login required")
)

// ValidationError reports a record the service refused to store.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.ResourceEvent) error
	Close() error
}

// LedgerService orchestrates record operations across storage and AMQP.
// Storage is the source of truth: a failed publish is logged and the
// request still succeeds.
type LedgerService struct {
	repo       storage.Repository
	events     EventPublisher
	observe    func(routingKey string, success bool)
	logger     *log.Logger
	sessionTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

type Option func(*LedgerService)

// WithEvents enables change events.
func WithEvents(p EventPublisher) Option {
	return func(s *LedgerService) { s.events = p }
}

// WithEventObserver is told about every publish attempt.
func WithEventObserver(fn func(routingKey string, success bool)) Option {
	return func(s *LedgerService) { s.observe = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

func WithSessionTTL(d time.Duration) Option {
	return func(s *LedgerService) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *LedgerService) { s.bcryptCost = cost }
}

func NewLedgerService(repo storage.Repository, opts ...Option) *LedgerService {
	s := &LedgerService{
		repo:       repo,
		logger:     log.Default(log.ComponentBackend),
		sessionTTL: DefaultSessionTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx)
}

// CreateTransaction validates and stores t, then announces it.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, &ValidationError{Err: err}
	}
	created, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, resourceTransaction, amqp.ActionCreated, created.TransactionID, created)
	return created, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, id core.ID, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, &ValidationError{Err: err}
	}
	updated, err := s.repo.UpdateTransaction(ctx, id, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, resourceTransaction, amqp.ActionUpdated, id, updated)
	return updated, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id core.ID) error {
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, resourceTransaction, amqp.ActionDeleted, id, nil)
	return nil
}

func (s *LedgerService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx)
}

func (s *LedgerService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, &ValidationError{Err: err}
	}
	created, err := s.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.publish(ctx, resourceBudget, amqp.ActionCreated, created.BudgetID, created)
	return created, nil
}

// Register creates an account. A taken username or email yields
// storage.ErrConflict.
func (s *LedgerService) Register(ctx context.Context, username, email, password string) (storage.User, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return storage.User{}, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.CreateUser(ctx, storage.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return storage.User{}, err
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldOperation, log.OpRegister, "user_id", u.ID)
	return u, nil
}

// Login checks credentials and opens a session, returning its token.
func (s *LedgerService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if username == "" || password == "" {
		return "", time.Time{}, ErrMissingFields
	}

	u, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	token := uuid.NewString()
	expires := s.now().Add(s.sessionTTL)
	if err := s.repo.CreateSession(ctx, token, u.ID, expires); err != nil {
		return "", time.Time{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldOperation, log.OpLogin, "user_id", u.ID)
	return token, expires, nil
}

// Authenticate resolves a session token to its user.
func (s *LedgerService) Authenticate(ctx context.Context, token string) (storage.User, error) {
	if token == "" {
		return storage.User{}, ErrUnauthorized
	}
	u, err := s.repo.SessionUser(ctx, token, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, ErrUnauthorized
	}
	return u, err
}

func (s *LedgerService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, token)
}

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *LedgerService) publish(ctx context.Context, resource, action string, id core.ID, record any) {
	if s.events == nil {
		return
	}
	ev, err := amqp.NewResourceEvent(resource, action, id.String(), record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to build event", log.FieldResource, resource, log.FieldError, err)
		return
	}

	err = s.events.Publish(ctx, ev)
	if s.observe != nil {
		s.observe(ev.RoutingKey(), err == nil)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			log.FieldOperation, log.OpPublish,
			"routing_key", ev.RoutingKey(),
			log.FieldResourceID, id.String(),
			log.FieldError, err)
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
