package ui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"todopanel/internal/bridge"
	"todopanel/internal/config"
	"todopanel/internal/storage"
)

type fakeClient struct {
	sent      []bridge.Request
	responses chan bridge.Response
	done      chan struct{}
	err       error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		responses: make(chan bridge.Response, 8),
		done:      make(chan struct{}),
	}
}

func (c *fakeClient) Send(req bridge.Request) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, req)
	return nil
}

func (c *fakeClient) Responses() <-chan bridge.Response { return c.responses }
func (c *fakeClient) Done() <-chan struct{}             { return c.done }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadOrCreate(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func newModel(t *testing.T, todos ...storage.Item) (Model, *fakeClient) {
	t.Helper()
	c := newFakeClient()
	m := New(c, testConfig(t), Options{})
	m.now = func() time.Time { return time.UnixMilli(10_000_000) }
	if todos != nil {
		m = loaded(t, m, todos...)
	}
	return m, c
}

func loaded(t *testing.T, m Model, todos ...storage.Item) Model {
	t.Helper()
	next, _ := m.Update(responseMsg{Type: bridge.TodosLoaded, Todos: todos})
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// exec runs a send command returned by a key press.
func exec(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	return cmd()
}

func item(id, text string, completed bool) storage.Item {
	it := storage.Item{ID: id, Text: text, Completed: completed, CreatedAt: 1_000}
	if completed {
		at := int64(2_000)
		it.CompletedAt = &at
	}
	return it
}

func TestModel_LoadReplacesCache(t *testing.T) {
	m, _ := newModel(t)
	if !m.loading {
		t.Fatalf("expected loading before first todosLoaded")
	}
	m = loaded(t, m, item("1", "milk", false), item("2", "eggs", false))
	if m.loading || len(m.todos) != 2 {
		t.Fatalf("unexpected state: loading=%v todos=%v", m.loading, m.todos)
	}
	m.cursor = 1
	m = loaded(t, m, item("1", "milk", false))
	if len(m.todos) != 1 || m.cursor != 0 {
		t.Fatalf("expected cache replaced and cursor clamped, got %v cursor=%d", m.todos, m.cursor)
	}
}

func TestModel_OtherResponsesLeaveCache(t *testing.T) {
	m, _ := newModel(t, item("1", "milk", false))
	added := item("2", "eggs", false)
	m, _ = press(t, m, responseMsg{Type: bridge.TodoAdded, Todo: &added})
	if len(m.todos) != 1 {
		t.Fatalf("todoAdded must not touch the cache, got %v", m.todos)
	}
}

func TestModel_ToggleSendsUpdate(t *testing.T) {
	m, c := newModel(t, item("1", "milk", false))
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	exec(t, cmd)

	if len(c.sent) != 1 {
		t.Fatalf("expected one request, got %v", c.sent)
	}
	req := c.sent[0]
	if req.Type != bridge.UpdateTodo || req.Todo == nil || !req.Todo.Completed || req.Todo.ID != "1" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Scope != string(storage.ScopeGlobal) {
		t.Fatalf("expected global scope, got %q", req.Scope)
	}
}

func TestModel_AddSubmits(t *testing.T) {
	m, c := newModel(t)
	m, _ = press(t, m, runes("a"))
	if m.mode != modeAdd {
		t.Fatalf("expected add mode")
	}
	m.input.SetValue("  buy milk  ")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	exec(t, cmd)

	if m.mode != modeList {
		t.Fatalf("expected list mode after submit")
	}
	if len(c.sent) != 1 || c.sent[0].Type != bridge.AddTodo || c.sent[0].Text != "buy milk" {
		t.Fatalf("unexpected requests: %+v", c.sent)
	}
}

func TestModel_EmptySubmitRejected(t *testing.T) {
	m, c := newModel(t)
	m, _ = press(t, m, runes("a"))
	m.input.SetValue("   ")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || len(c.sent) != 0 {
		t.Fatalf("empty text must not be sent")
	}
	if m.status != "Todo cannot be empty" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModel_MultiLineSplit(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want []string
	}{
		{name: "split", key: "s", want: []string{"one", "two"}},
		{name: "keep", key: "k", want: []string{"one\n\ntwo"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, c := newModel(t)
			m, _ = press(t, m, runes("a"))
			m.input.SetValue("one\n\ntwo")
			m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
			if cmd != nil || m.split == nil {
				t.Fatalf("expected split prompt before sending")
			}
			m, cmd = press(t, m, runes(tc.key))
			exec(t, cmd)

			if m.split != nil {
				t.Fatalf("prompt should be closed")
			}
			if len(c.sent) != len(tc.want) {
				t.Fatalf("expected %d requests, got %+v", len(tc.want), c.sent)
			}
			for i, text := range tc.want {
				if c.sent[i].Type != bridge.AddTodo || c.sent[i].Text != text {
					t.Fatalf("request %d: %+v", i, c.sent[i])
				}
			}
		})
	}
}

func TestModel_SplitCancel(t *testing.T) {
	m, c := newModel(t)
	m = m.askSplit("a\nb", []string{"a", "b"})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil || m.split != nil || len(c.sent) != 0 {
		t.Fatalf("cancel must not send anything")
	}
}

func TestModel_DeleteNeedsConfirmation(t *testing.T) {
	m, c := newModel(t, item("1", "milk", false))
	m, _ = press(t, m, runes("d"))
	if !m.confirmDel {
		t.Fatalf("expected confirmation prompt")
	}
	m, cmd := press(t, m, runes("n"))
	if cmd != nil || m.confirmDel || len(c.sent) != 0 {
		t.Fatalf("declined delete must not send")
	}

	m, _ = press(t, m, runes("d"))
	_, cmd = press(t, m, runes("y"))
	exec(t, cmd)
	if len(c.sent) != 1 || c.sent[0].Type != bridge.DeleteTodo || c.sent[0].TodoID != "1" {
		t.Fatalf("unexpected requests: %+v", c.sent)
	}
}

func TestModel_ScopeSwitchReloads(t *testing.T) {
	m, c := newModel(t, item("1", "milk", false))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	exec(t, cmd)

	if m.scope != storage.ScopeProject || !m.loading {
		t.Fatalf("expected project scope loading, got %s loading=%v", m.scope, m.loading)
	}
	if len(c.sent) != 1 || c.sent[0].Type != bridge.GetTodos || c.sent[0].Scope != "project" {
		t.Fatalf("unexpected requests: %+v", c.sent)
	}
}

func TestModel_HistoryAndClear(t *testing.T) {
	m, c := newModel(t, item("1", "milk", false), item("2", "eggs", true))

	if _, cmd := press(t, m, runes("C")); cmd != nil {
		t.Fatalf("clear history is only offered in the history view")
	}

	m, _ = press(t, m, runes("h"))
	vis := m.visible()
	if len(vis) != 1 || vis[0].ID != "2" {
		t.Fatalf("history should show completed items only, got %v", vis)
	}
	_, cmd := press(t, m, runes("C"))
	exec(t, cmd)
	if len(c.sent) != 1 || c.sent[0].Type != bridge.ClearCompleted {
		t.Fatalf("unexpected requests: %+v", c.sent)
	}
}

func TestModel_EditOnlyIncomplete(t *testing.T) {
	m, c := newModel(t, item("1", "milk", false), item("2", "eggs", true))

	h, _ := press(t, m, runes("h"))
	h, _ = press(t, h, runes("e"))
	if h.mode != modeList {
		t.Fatalf("completed items must not enter edit mode")
	}

	m, _ = press(t, m, runes("e"))
	if m.mode != modeEdit || m.input.Value() != "milk" {
		t.Fatalf("expected edit mode prefilled, got mode=%v value=%q", m.mode, m.input.Value())
	}
	m.input.SetValue("oat milk")
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	exec(t, cmd)
	if len(c.sent) != 1 || c.sent[0].Todo == nil || c.sent[0].Todo.Text != "oat milk" {
		t.Fatalf("unexpected requests: %+v", c.sent)
	}
}

func TestModel_EditUnchangedSendsNothing(t *testing.T) {
	m, c := newModel(t, item("1", "milk", false))
	m, _ = press(t, m, runes("e"))
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || len(c.sent) != 0 {
		t.Fatalf("unchanged edit must not send, got %+v", c.sent)
	}
}

func TestModel_SearchFilters(t *testing.T) {
	m, _ := newModel(t, item("1", "Buy Milk", false), item("2", "eggs", false))
	m, _ = press(t, m, runes("/"))
	m, _ = press(t, m, runes("m"))
	m, _ = press(t, m, runes("i"))
	if m.query != "mi" {
		t.Fatalf("expected query to follow input, got %q", m.query)
	}
	if vis := m.visible(); len(vis) != 1 || vis[0].ID != "1" {
		t.Fatalf("unexpected filter result %v", vis)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.query != "" || len(m.visible()) != 2 {
		t.Fatalf("esc should clear the search")
	}
}

func TestModel_DetailCompletes(t *testing.T) {
	m, c := newModel(t, item("1", "milk", false))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.detail == nil {
		t.Fatalf("expected detail view")
	}
	if !strings.Contains(m.View(), "Type: Global") {
		t.Fatalf("detail should show the item type:\n%s", m.View())
	}
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	exec(t, cmd)
	if m.detail != nil {
		t.Fatalf("detail should close after completing")
	}
	if len(c.sent) != 1 || c.sent[0].Todo == nil || !c.sent[0].Todo.Completed {
		t.Fatalf("unexpected requests: %+v", c.sent)
	}
}

func TestModel_PasteMultiLinePrompts(t *testing.T) {
	m, _ := newModel(t)
	m.readClipboard = func() (string, error) { return "first\nsecond\n", nil }
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlV})
	if m.split == nil || len(m.split.lines) != 2 {
		t.Fatalf("expected split prompt, got %+v", m.split)
	}

	m, _ = newModel(t)
	m.readClipboard = func() (string, error) { return "", errors.New("no clipboard") }
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlV})
	if !strings.Contains(m.status, "no clipboard") {
		t.Fatalf("expected paste error in status, got %q", m.status)
	}
}

func TestModel_SendFailureShowsStatus(t *testing.T) {
	m, c := newModel(t, item("1", "milk", false))
	c.err = bridge.ErrClosed
	_, cmd := press(t, m, runes("h"))
	if cmd != nil {
		t.Fatalf("history toggle is local")
	}
	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	msg := exec(t, cmd)
	m, _ = press(t, m, msg)
	if !strings.Contains(m.status, "send failed") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModel_ClosedQuits(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := press(t, m, closedMsg{})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestView_EmptyAndLoading(t *testing.T) {
	m, _ := newModel(t)
	if !strings.Contains(m.View(), "Loading...") {
		t.Fatalf("expected loading message")
	}
	m = loaded(t, m)
	if !strings.Contains(m.View(), "No todos yet") {
		t.Fatalf("expected empty message:\n%s", m.View())
	}
}

func TestItemLine(t *testing.T) {
	now := time.UnixMilli(1_000 + int64(2*time.Hour/time.Millisecond))
	line := ItemLine(item("1", "milk", false), now)
	if !strings.Contains(line, "milk") || !strings.Contains(line, "2 hours ago") {
		t.Fatalf("unexpected line %q", line)
	}
	if line := ItemLine(storage.Item{Text: "x", CreatedAt: now.UnixMilli()}, now); !strings.Contains(line, "just now") {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestVisibleItems(t *testing.T) {
	a := item("a", "alpha", true)
	b := item("b", "beta", true)
	later := int64(5_000)
	b.CompletedAt = &later
	items := []storage.Item{a, item("c", "Gamma", false), b}

	if got := VisibleItems(items, "", false); len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("active view: %v", got)
	}
	if got := VisibleItems(items, "", true); len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("history should be newest completion first: %v", got)
	}
	if got := VisibleItems(items, "GAM", false); len(got) != 1 {
		t.Fatalf("search should ignore case: %v", got)
	}
}

func TestNonBlankLines(t *testing.T) {
	got := NonBlankLines("  a \n\n \t\nb\n")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected lines %q", got)
	}
}
