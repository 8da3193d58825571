package bridge

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"todopanel/internal/storage"
)

// Router handles UI requests against the scope's store. Each request runs to
// completion, store I/O included, before the next one starts, and every
// mutation ends with a full todosLoaded reload.
type Router struct {
	mu     sync.Mutex
	stores storage.Selector
	now    func() time.Time
	newID  func() string
	log    *log.Logger
}

type Option func(*Router)

// WithClock replaces time.Now for createdAt/completedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithIDs replaces the ULID generator used for new items.
func WithIDs(newID func() string) Option {
	return func(r *Router) { r.newID = newID }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Router) { r.log = l }
}

func NewRouter(stores storage.Selector, opts ...Option) *Router {
	r := &Router{
		stores: stores,
		now:    time.Now,
		log:    log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newID == nil {
		r.newID = ulidGenerator(r.now)
	}
	return r
}

func ulidGenerator(now func() time.Time) func() string {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(now()), entropy).String()
	}
}

func (r *Router) millis() int64 {
	return r.now().UnixMilli()
}

// Serve reads requests from ch until it closes or ctx ends. A failed request
// is logged and left unanswered; the loop keeps going.
func (r *Router) Serve(ctx context.Context, ch Channel) error {
	for {
		req, err := ch.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := r.Handle(req, ch); err != nil {
			r.log.Error("request failed", "type", req.Type, "scope", storage.ParseScope(req.Scope), "err", err)
		}
	}
}

// Handle processes one request and posts its responses to out.
func (r *Router) Handle(req Request, out Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	scope := storage.ParseScope(req.Scope)
	switch req.Type {
	case GetTodos:
		return r.reload(scope, out)
	case AddTodo:
		_, err := r.add(req.Text, scope, out)
		return err
	case UpdateTodo:
		if req.Todo == nil {
			return nil
		}
		return r.update(*req.Todo, scope, out)
	case DeleteTodo:
		if req.TodoID == "" {
			return nil
		}
		return r.delete(req.TodoID, scope, out)
	case ClearCompleted:
		if err := r.stores.For(scope).ClearCompleted(); err != nil {
			return fmt.Errorf("clear completed: %w", err)
		}
		return r.reload(scope, out)
	case ImportTodos:
		if req.Todos == nil {
			return nil
		}
		return r.importAll(req.Todos, scope, out)
	default:
		r.log.Warn("unknown request type", "type", req.Type)
		return nil
	}
}

// QuickAdd is the host-side entry point for adding an item from outside the
// panel. It behaves exactly like an addTodo request.
func (r *Router) QuickAdd(text string, scope storage.Scope, out Sink) (storage.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(text, scope, out)
}

func (r *Router) reload(scope storage.Scope, out Sink) error {
	todos := r.stores.For(scope).All()
	if todos == nil {
		todos = []storage.Item{}
	}
	return out.Post(Response{Type: TodosLoaded, Todos: todos})
}

func (r *Router) add(text string, scope storage.Scope, out Sink) (storage.Item, error) {
	item := storage.Item{
		ID:        r.newID(),
		Text:      text,
		CreatedAt: r.millis(),
	}
	if err := r.stores.For(scope).Add(item); err != nil {
		return storage.Item{}, fmt.Errorf("add todo: %w", err)
	}
	if err := out.Post(Response{Type: TodoAdded, Todo: &item}); err != nil {
		return item, err
	}
	return item, r.reload(scope, out)
}

// update sends text and completed through, stamps completedAt when an item
// becomes completed without one and clears it when the item is reopened.
func (r *Router) update(todo storage.Item, scope storage.Scope, out Sink) error {
	patch := storage.Patch{
		Text:      &todo.Text,
		Completed: &todo.Completed,
	}
	switch {
	case todo.Completed && todo.CompletedAt == nil:
		ts := r.millis()
		patch.CompletedAt = &ts
	case !todo.Completed:
		patch.ClearCompletedAt = true
	}

	updated, found, err := r.stores.For(scope).Update(todo.ID, patch)
	if err != nil {
		return fmt.Errorf("update todo %s: %w", todo.ID, err)
	}
	if found {
		if err := out.Post(Response{Type: TodoUpdated, Todo: &updated}); err != nil {
			return err
		}
	}
	return r.reload(scope, out)
}

func (r *Router) delete(id string, scope storage.Scope, out Sink) error {
	removed, err := r.stores.For(scope).Delete(id)
	if err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	if removed {
		if err := out.Post(Response{Type: TodoDeleted}); err != nil {
			return err
		}
	}
	return r.reload(scope, out)
}

// importAll appends items as given: ids are kept and duplicates are not
// filtered.
func (r *Router) importAll(todos []storage.Item, scope storage.Scope, out Sink) error {
	store := r.stores.For(scope)
	for _, todo := range todos {
		if err := store.Add(todo); err != nil {
			return fmt.Errorf("import todo %s: %w", todo.ID, err)
		}
	}
	if err := out.Post(Response{Type: TodosImported}); err != nil {
		return err
	}
	return r.reload(scope, out)
}
