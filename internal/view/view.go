// Package view holds the per-session state of a resource page: the list as
// last confirmed by the backend, the form draft, and the notification
// channel. One generic View serves both transactions and budgets.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

var (
	// ErrUnsupported is returned for operations the resource does not offer.
	ErrUnsupported = errors.New("operation not supported")
	// ErrStale is returned when a response arrives after the view was
	// unmounted or remounted; the response is discarded.
	ErrStale = errors.New("view changed while request was in flight")
)

// Store is the backend collection a view reads and writes.
type Store[R any] interface {
	List(ctx context.Context) ([]R, error)
	Create(ctx context.Context, draft R) (R, error)
	Update(ctx context.Context, id core.ID, fields R) (R, error)
	Delete(ctx context.Context, id core.ID) error
}

// Observer is told the outcome of every view operation.
type Observer func(resource, operation, outcome string)

// Option configures a View.
type Option func(*options)

type options struct {
	logger   *log.Logger
	observer Observer
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// View is the state of one resource page. The mutex is never held across a
// backend call; results are applied in arrival order.
type View[R any] struct {
	schema   Schema[R]
	store    Store[R]
	notifier *Notifier
	logger   *log.Logger
	observer Observer

	mu      sync.Mutex
	items   []R
	draft   Draft
	gen     uint64
	mounted bool
	loaded  bool
}

// New creates an unmounted view.
func New[R any](schema Schema[R], store Store[R], notifier *Notifier, opts ...Option) *View[R] {
	o := options{logger: log.Default(log.ComponentView)}
	for _, opt := range opts {
		opt(&o)
	}
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &View[R]{
		schema:   schema,
		store:    store,
		notifier: notifier,
		logger:   o.logger.WithComponent(log.ComponentView).With(log.FieldResource, schema.Kind),
		observer: o.observer,
		items:    []R{},
		draft:    schema.EmptyDraft(),
	}
}

// NewTransactions creates the transactions view.
func NewTransactions(store Store[core.Transaction], notifier *Notifier, opts ...Option) *View[core.Transaction] {
	return New(TransactionSchema(), store, notifier, opts...)
}

// NewBudgets creates the budgets view.
func NewBudgets(store Store[core.Budget], notifier *Notifier, opts ...Option) *View[core.Budget] {
	return New(BudgetSchema(), store, notifier, opts...)
}

func (v *View[R]) Schema() Schema[R] { return v.schema }

func (v *View[R]) Notifier() *Notifier { return v.notifier }

// Mount starts a fresh lifetime: empty list, empty draft, new generation.
func (v *View[R]) Mount() {
	v.mu.Lock()
	v.gen++
	v.items = []R{}
	v.draft = v.schema.EmptyDraft()
	v.mounted = true
	v.loaded = false
	v.mu.Unlock()

	v.logger.Debug("View mounted", log.FieldOperation, log.OpMount)
}

// Unmount discards all state. In-flight responses become stale.
func (v *View[R]) Unmount() {
	v.mu.Lock()
	wasMounted := v.mounted
	v.gen++
	v.items = []R{}
	v.draft = v.schema.EmptyDraft()
	v.mounted = false
	v.loaded = false
	v.mu.Unlock()

	if wasMounted {
		v.logger.Debug("View unmounted", log.FieldOperation, log.OpUnmount)
	}
}

// Mounted reports whether the view is currently mounted.
func (v *View[R]) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

// Loaded reports whether a load has succeeded since the last mount.
func (v *View[R]) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Items returns a copy of the list in display order.
func (v *View[R]) Items() []R {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]R, len(v.items))
	copy(out, v.items)
	return out
}

// Draft returns a copy of the current draft.
func (v *View[R]) Draft() Draft {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft.Clone()
}

// Load replaces the list with the backend collection. On failure the prior
// list is kept and the error is only logged.
func (v *View[R]) Load(ctx context.Context) error {
	gen := v.generation()

	items, err := v.store.List(ctx)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.stale(ctx, log.OpLoad)
		return ErrStale
	}
	if err != nil {
		v.mu.Unlock()
		v.logger.WarnContext(ctx, "Failed to load "+v.schema.Kind,
			log.FieldOperation, log.OpLoad,
			log.FieldErrorType, api.Kind(err),
			log.FieldError, err)
		v.observe(log.OpLoad, err)
		return fmt.Errorf("load %s: %w", v.schema.Kind, err)
	}
	v.items = items
	v.loaded = true
	v.mu.Unlock()

	v.logger.DebugContext(ctx, "Loaded "+v.schema.Kind,
		log.FieldOperation, log.OpLoad,
		log.FieldCount, len(items))
	v.observe(log.OpLoad, nil)
	return nil
}

// SetField updates one draft field and leaves the others untouched.
func (v *View[R]) SetField(name, value string) error {
	if !v.schema.HasField(name) {
		return fmt.Errorf("%s has no field %q", v.schema.Name, name)
	}
	v.mu.Lock()
	v.draft[name] = value
	v.mu.Unlock()
	return nil
}

// SetDraft updates every known field present in values, e.g. a submitted
// form. Unknown keys are ignored.
func (v *View[R]) SetDraft(values map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, f := range v.schema.Fields {
		if val, ok := values[f.Name]; ok {
			v.draft[f.Name] = val
		}
	}
}

// Submit creates a record from the draft. An empty or zero amount is
// rejected without contacting the backend. On success the returned record
// is appended and the draft is cleared.
func (v *View[R]) Submit(ctx context.Context) (R, error) {
	var zero R
	gen, draft := v.snapshot()

	payload, err := v.build(ctx, log.OpCreate, draft)
	if err != nil {
		return zero, err
	}

	created, err := v.store.Create(ctx, payload)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.stale(ctx, log.OpCreate)
		return zero, ErrStale
	}
	if err != nil {
		v.mu.Unlock()
		v.fail(ctx, log.OpCreate, v.schema.Messages.CreateFailed, err)
		return zero, err
	}
	v.items = append(v.items, created)
	v.draft = v.schema.EmptyDraft()
	v.mu.Unlock()

	v.succeed(ctx, log.OpCreate, v.schema.Messages.Created, v.schema.IDOf(created))
	return created, nil
}

// Update sends the whole current draft for id and replaces the matching
// entry with the server's version.
func (v *View[R]) Update(ctx context.Context, id core.ID) (R, error) {
	var zero R
	if !v.schema.CanUpdate {
		return zero, ErrUnsupported
	}
	gen, draft := v.snapshot()

	payload, err := v.build(ctx, log.OpUpdate, draft)
	if err != nil {
		return zero, err
	}

	updated, err := v.store.Update(ctx, id, payload)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.stale(ctx, log.OpUpdate)
		return zero, ErrStale
	}
	if err != nil {
		v.mu.Unlock()
		v.fail(ctx, log.OpUpdate, v.schema.Messages.UpdateFailed, err)
		return zero, err
	}
	for i := range v.items {
		if v.schema.IDOf(v.items[i]) == id {
			v.items[i] = updated
		}
	}
	v.mu.Unlock()

	v.succeed(ctx, log.OpUpdate, v.schema.Messages.Updated, id)
	return updated, nil
}

// Delete removes id on the backend, then drops the matching entry.
func (v *View[R]) Delete(ctx context.Context, id core.ID) error {
	if !v.schema.CanDelete {
		return ErrUnsupported
	}
	gen := v.generation()

	err := v.store.Delete(ctx, id)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.stale(ctx, log.OpDelete)
		return ErrStale
	}
	if err != nil {
		v.mu.Unlock()
		v.fail(ctx, log.OpDelete, v.schema.Messages.DeleteFailed, err)
		return err
	}
	kept := v.items[:0]
	for _, item := range v.items {
		if v.schema.IDOf(item) != id {
			kept = append(kept, item)
		}
	}
	v.items = kept
	v.mu.Unlock()

	v.succeed(ctx, log.OpDelete, v.schema.Messages.Deleted, id)
	return nil
}

func (v *View[R]) generation() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen
}

func (v *View[R]) snapshot() (uint64, Draft) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen, v.draft.Clone()
}

// build applies the amount gate and converts the draft. Failures are
// published and never reach the backend.
func (v *View[R]) build(ctx context.Context, op string, draft Draft) (R, error) {
	var zero R
	if _, err := core.ParseMoney(draft[v.schema.AmountField]); err != nil {
		verr := &api.ValidationError{Field: v.schema.AmountField, Message: err.Error()}
		v.logger.WarnContext(ctx, v.schema.Messages.EmptyAmount,
			log.FieldOperation, op,
			log.FieldAmount, draft[v.schema.AmountField])
		v.notifier.Failure(v.schema.Kind, op, v.schema.Messages.EmptyAmount)
		v.observe(op, verr)
		return zero, verr
	}

	payload, err := v.schema.Build(draft)
	if err != nil {
		verr := &api.ValidationError{Message: err.Error()}
		v.logger.WarnContext(ctx, "Invalid "+v.schema.Name+" draft",
			log.FieldOperation, op,
			log.FieldError, err)
		v.notifier.Failure(v.schema.Kind, op, v.schema.Messages.Invalid+": "+err.Error())
		v.observe(op, verr)
		return zero, verr
	}
	return payload, nil
}

func (v *View[R]) succeed(ctx context.Context, op, message string, id core.ID) {
	v.logger.InfoContext(ctx, message,
		log.FieldOperation, op,
		log.FieldResourceID, id.String())
	v.notifier.Success(v.schema.Kind, op, message)
	v.observe(op, nil)
}

func (v *View[R]) fail(ctx context.Context, op, message string, err error) {
	v.logger.ErrorContext(ctx, message,
		log.FieldOperation, op,
		log.FieldErrorType, api.Kind(err),
		log.FieldError, err)
	v.notifier.Failure(v.schema.Kind, op, message)
	v.observe(op, err)
}

func (v *View[R]) stale(ctx context.Context, op string) {
	v.logger.DebugContext(ctx, "Discarding response for previous view generation",
		log.FieldOperation, op)
	if v.observer != nil {
		v.observer(v.schema.Kind, op, "stale")
	}
}

func (v *View[R]) observe(op string, err error) {
	if v.observer != nil {
		v.observer(v.schema.Kind, op, api.Kind(err))
	}
}
