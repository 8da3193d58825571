package bridge

import (
	"context"
	"errors"

	"todopanel/internal/storage"
)

type RequestType string

const (
	GetTodos       RequestType = "getTodos"
	AddTodo        RequestType = "addTodo"
	UpdateTodo     RequestType = "updateTodo"
	DeleteTodo     RequestType = "deleteTodo"
	ClearCompleted RequestType = "clearCompleted"
	ImportTodos    RequestType = "importTodos"
)

type ResponseType string

const (
	TodosLoaded   ResponseType = "todosLoaded"
	TodoAdded     ResponseType = "todoAdded"
	TodoUpdated   ResponseType = "todoUpdated"
	TodoDeleted   ResponseType = "todoDeleted"
	TodosImported ResponseType = "todosImported"
)

// Request is a UI -> router message. Scope travels as "todoType".
type Request struct {
	Type   RequestType    `json:"type"`
	Scope  string         `json:"todoType,omitempty"`
	Todo   *storage.Item  `json:"todo,omitempty"`
	Todos  []storage.Item `json:"todos,omitempty"`
	TodoID string         `json:"todoId,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// Response is a router -> UI message. todosLoaded always carries a non-nil
// Todos slice so an empty list still encodes as [].
type Response struct {
	Type  ResponseType   `json:"type"`
	Todos []storage.Item `json:"todos"`
	Todo  *storage.Item  `json:"todo,omitempty"`
}

// ErrClosed is returned by channels once either end has hung up.
var ErrClosed = errors.New("bridge: channel closed")

// Sink receives responses emitted by the router.
type Sink interface {
	Post(resp Response) error
}

// Channel is the router's end of a UI connection.
type Channel interface {
	Sink
	Receive(ctx context.Context) (Request, error)
}

// Discard drops every response. Used for host commands with no panel attached.
var Discard Sink = discard{}

type discard struct{}

func (discard) Post(Response) error { return nil }

// Recorder keeps every posted response in order.
type Recorder struct {
	Responses []Response
}

func (r *Recorder) Post(resp Response) error {
	r.Responses = append(r.Responses, resp)
	return nil
}

// Types lists the recorded response types in order.
func (r *Recorder) Types() []ResponseType {
	out := make([]ResponseType, 0, len(r.Responses))
	for _, resp := range r.Responses {
		out = append(out, resp.Type)
	}
	return out
}

// LastLoaded returns the todos of the most recent todosLoaded response.
func (r *Recorder) LastLoaded() ([]storage.Item, bool) {
	for i := len(r.Responses) - 1; i >= 0; i-- {
		if r.Responses[i].Type == TodosLoaded {
			return r.Responses[i].Todos, true
		}
	}
	return nil, false
}
