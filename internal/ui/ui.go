package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"todopanel/internal/bridge"
	"todopanel/internal/config"
	"todopanel/internal/storage"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeSearch
)

// Client is the panel's end of the UI channel.
type Client interface {
	Send(req bridge.Request) error
	Responses() <-chan bridge.Response
	Done() <-chan struct{}
}

type responseMsg bridge.Response

type closedMsg struct{}

type statusMsg string

// splitState holds a multi-line submission waiting for the user to choose
// between one item per line and a single multi-line item.
type splitState struct {
	text  string
	lines []string
}

type Model struct {
	client Client
	keys   config.Keymap

	scope   storage.Scope
	todos   []storage.Item
	loading bool
	history bool
	query   string

	cursor     int
	mode       mode
	input      textinput.Model
	editID     string
	split      *splitState
	confirmDel bool
	pendingDel *storage.Item
	detail     *storage.Item
	status     string

	now           func() time.Time
	readClipboard func() (string, error)
}

type Options struct {
	Scope  storage.Scope
	Notice string
}

func New(client Client, cfg config.Config, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Add a new todo..."
	ti.CharLimit = 1024
	ti.Width = 40

	status := opts.Notice
	if status == "" {
		status = fmt.Sprintf("Press '%s' to add, space to toggle, '%s' for history.", cfg.Keys.Add, cfg.Keys.History)
	}
	scope := opts.Scope
	if scope == "" {
		scope = storage.ParseScope(cfg.DefaultScope)
	}

	return Model{
		client:        client,
		keys:          cfg.Keys,
		scope:         scope,
		loading:       true,
		input:         ti,
		mode:          modeList,
		status:        status,
		now:           time.Now,
		readClipboard: clipboard.ReadAll,
	}
}

// Run opens the panel on client and blocks until the user quits.
func Run(client Client, cfg config.Config, opts Options) error {
	program := tea.NewProgram(New(client, cfg, opts), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(listen(m.client), m.send(bridge.Request{Type: bridge.GetTodos}))
}

func listen(c Client) tea.Cmd {
	return func() tea.Msg {
		select {
		case resp := <-c.Responses():
			return responseMsg(resp)
		case <-c.Done():
			return closedMsg{}
		}
	}
}

// send stamps each request with the current scope and sends them in order.
func (m Model) send(reqs ...bridge.Request) tea.Cmd {
	client := m.client
	scope := string(m.scope)
	return func() tea.Msg {
		for _, req := range reqs {
			if req.Scope == "" {
				req.Scope = scope
			}
			if err := client.Send(req); err != nil {
				return statusMsg(fmt.Sprintf("send failed: %v", err))
			}
		}
		return nil
	}
}

func (m Model) visible() []storage.Item {
	return VisibleItems(m.todos, m.query, m.history)
}

func (m Model) selected() (storage.Item, bool) {
	items := m.visible()
	if len(items) == 0 {
		return storage.Item{}, false
	}
	return items[clampCursor(m.cursor, len(items))], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case responseMsg:
		return m.applyResponse(bridge.Response(msg))
	case closedMsg:
		return m, tea.Quit
	case statusMsg:
		m.status = errorStyle.Render(string(msg))
	case tea.KeyMsg:
		key := msg.String()
		switch {
		case m.split != nil:
			return m.updateSplitChoice(key)
		case m.confirmDel:
			return m.updateDeleteConfirm(key)
		case m.detail != nil:
			return m.updateDetail(key)
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

// applyResponse reconciles a router message into view state. Only
// todosLoaded touches the cached list, and it replaces it wholesale.
func (m Model) applyResponse(resp bridge.Response) (tea.Model, tea.Cmd) {
	switch resp.Type {
	case bridge.TodosLoaded:
		m.todos = resp.Todos
		m.loading = false
		m.cursor = clampCursor(m.cursor, len(m.visible()))
	case bridge.TodoAdded:
		m.status = "Added todo"
	case bridge.TodoUpdated:
		m.status = "Updated todo"
	case bridge.TodoDeleted:
		m.status = "Deleted todo"
	case bridge.TodosImported:
		m.status = "Imported todos"
	}
	return m, listen(m.client)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.mode {
	case modeAdd:
		return m.updateAddMode(key, msg)
	case modeEdit:
		return m.updateEditMode(key, msg)
	case modeSearch:
		return m.updateSearchMode(key, msg)
	}
	return m.updateListMode(key)
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	items := m.visible()
	switch key {
	case "ctrl+c", m.keys.Quit:
		return m, tea.Quit
	case m.keys.Down, "down":
		if len(items) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(items))
	case m.keys.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(items))
		}
	case m.keys.Add:
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Placeholder = "Add a new todo..."
		m.input.Focus()
		m.status = "Add mode: type a todo and press Enter"
	case m.keys.Toggle:
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.toggle(it)
	case m.keys.Delete:
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &it
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", it.Text)
	case m.keys.Detail:
		it, ok := m.selected()
		if !ok {
			m.status = "No todos"
			return m, nil
		}
		m.detail = &it
	case m.keys.Edit:
		it, ok := m.selected()
		if !ok {
			m.status = "No todos to edit"
			return m, nil
		}
		if it.Completed {
			m.status = "Completed todos cannot be edited"
			return m, nil
		}
		m.mode = modeEdit
		m.editID = it.ID
		m.input.SetValue(it.Text)
		m.input.Placeholder = "Todo text"
		m.input.CursorEnd()
		m.input.Focus()
		m.status = "Edit: Enter to save, Esc to cancel"
	case m.keys.Search:
		m.mode = modeSearch
		m.input.SetValue(m.query)
		m.input.Placeholder = "Search todos..."
		m.input.CursorEnd()
		m.input.Focus()
	case m.keys.History:
		m.history = !m.history
		m.cursor = 0
		if m.history {
			m.status = "Showing completed todos"
		} else {
			m.status = "Showing active todos"
		}
	case m.keys.Scope:
		return m.switchScope()
	case m.keys.ClearHistory:
		if !m.history || len(items) == 0 {
			return m, nil
		}
		m.status = "Clearing history"
		return m, m.send(bridge.Request{Type: bridge.ClearCompleted})
	case m.keys.Paste:
		return m.paste()
	}
	return m, nil
}

func (m Model) switchScope() (tea.Model, tea.Cmd) {
	if m.scope == storage.ScopeProject {
		m.scope = storage.ScopeGlobal
	} else {
		m.scope = storage.ScopeProject
	}
	m.loading = true
	m.cursor = 0
	m.status = m.scope.Label() + " todos"
	return m, m.send(bridge.Request{Type: bridge.GetTodos})
}

func (m Model) toggle(it storage.Item) tea.Cmd {
	it.Completed = !it.Completed
	return m.send(bridge.Request{Type: bridge.UpdateTodo, Todo: &it})
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.keys.Cancel:
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.keys.Confirm:
		return m.submit(m.input.Value())
	case m.keys.Paste:
		return m.paste()
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

// submit adds a single todo, or asks how to handle text spanning several
// non-blank lines before sending anything.
func (m Model) submit(raw string) (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(raw)
	if text == "" {
		m.status = "Todo cannot be empty"
		return m, nil
	}
	if lines := NonBlankLines(text); len(lines) > 1 {
		return m.askSplit(text, lines), nil
	}
	m.leaveInput()
	return m, m.send(bridge.Request{Type: bridge.AddTodo, Text: text})
}

func (m Model) paste() (tea.Model, tea.Cmd) {
	text, err := m.readClipboard()
	if err != nil {
		m.status = fmt.Sprintf("paste failed: %v", err)
		return m, nil
	}
	if lines := NonBlankLines(text); len(lines) > 1 {
		return m.askSplit(text, lines), nil
	}
	m.mode = modeAdd
	m.input.SetValue(m.input.Value() + strings.TrimSpace(text))
	m.input.CursorEnd()
	m.input.Focus()
	return m, nil
}

func (m Model) askSplit(text string, lines []string) Model {
	m.split = &splitState{text: text, lines: lines}
	m.status = fmt.Sprintf("%d lines detected: 's' split into %d todos, 'k' keep as one, esc cancel", len(lines), len(lines))
	return m
}

func (m Model) updateSplitChoice(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "s", "y":
		reqs := make([]bridge.Request, 0, len(m.split.lines))
		for _, line := range m.split.lines {
			reqs = append(reqs, bridge.Request{Type: bridge.AddTodo, Text: line})
		}
		m.split = nil
		m.leaveInput()
		return m, m.send(reqs...)
	case "k", "n":
		text := m.split.text
		m.split = nil
		m.leaveInput()
		return m, m.send(bridge.Request{Type: bridge.AddTodo, Text: text})
	case m.keys.Cancel:
		m.split = nil
		m.status = "Cancelled"
	}
	return m, nil
}

func (m *Model) leaveInput() {
	m.input.SetValue("")
	m.input.Blur()
	m.mode = modeList
	m.editID = ""
}

func (m Model) updateEditMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.keys.Cancel:
		m.leaveInput()
		m.status = "Edit cancelled"
		return m, nil
	case m.keys.Confirm:
		text := strings.TrimSpace(m.input.Value())
		id := m.editID
		m.leaveInput()
		for _, it := range m.todos {
			if it.ID != id {
				continue
			}
			if text == "" || text == it.Text {
				return m, nil
			}
			it.Text = text
			return m, m.send(bridge.Request{Type: bridge.UpdateTodo, Todo: &it})
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.keys.Cancel:
		m.query = ""
		m.leaveInput()
		m.cursor = 0
		return m, nil
	case m.keys.Confirm:
		m.leaveInput()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.query = m.input.Value()
		m.cursor = 0
		return m, cmd
	}
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		id := m.pendingDel.ID
		m.confirmDel = false
		m.pendingDel = nil
		return m, m.send(bridge.Request{Type: bridge.DeleteTodo, TodoID: id})
	default:
		return m, nil
	}
}

func (m Model) updateDetail(key string) (tea.Model, tea.Cmd) {
	it := *m.detail
	switch key {
	case m.keys.Cancel, m.keys.Detail, m.keys.Quit:
		m.detail = nil
	case m.keys.Toggle:
		if it.Completed {
			return m, nil
		}
		m.detail = nil
		return m, m.toggle(it)
	case m.keys.Delete:
		m.detail = nil
		return m, m.send(bridge.Request{Type: bridge.DeleteTodo, TodoID: it.ID})
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if m.query != "" || m.mode == modeSearch {
		b.WriteString(mutedStyle.Render("search: "))
		if m.mode == modeSearch {
			b.WriteString(m.input.View())
		} else {
			b.WriteString(m.query)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(mutedStyle.Render("Loading..."))
		b.WriteString("\n")
	case len(m.visible()) == 0:
		if m.history {
			b.WriteString(mutedStyle.Render("No completed todos"))
		} else {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("No todos yet. Press '%s' to add one.", m.keys.Add)))
		}
		b.WriteString("\n")
	default:
		b.WriteString(m.renderTaskList())
	}

	b.WriteString("\n")
	switch {
	case m.split != nil:
		b.WriteString(m.renderSplit())
	case m.detail != nil:
		b.WriteString(m.renderDetail(*m.detail))
	case m.mode == modeAdd || m.mode == modeEdit:
		b.WriteString(m.input.View())
	}

	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(renderHelp(m.keys, m.history)))

	return b.String()
}

func (m Model) renderHeader() string {
	tabs := []string{}
	for _, s := range []storage.Scope{storage.ScopeGlobal, storage.ScopeProject} {
		if s == m.scope {
			tabs = append(tabs, activeTab.Render(s.Label()))
		} else {
			tabs = append(tabs, tabStyle.Render(s.Label()))
		}
	}
	view := accentStyle.Render("Active")
	if m.history {
		view = accentStyle.Render("History")
	}
	return titleStyle.Render("Todos") + "  " + strings.Join(tabs, "") + "  " + view
}

func (m Model) renderTaskList() string {
	var b strings.Builder
	now := m.now()
	for i, it := range m.visible() {
		cursor := "  "
		if i == m.cursor && m.mode == modeList {
			cursor = selectedStyle.Render("> ")
		}
		b.WriteString(cursor)
		b.WriteString(ItemLine(it, now))
		b.WriteString("\n")
	}
	return b.String()
}

// ItemLine renders one todo as a checkbox, its text and a relative time.
func ItemLine(it storage.Item, now time.Time) string {
	box := mutedStyle.Render(boxUnchecked)
	text := it.Text
	if it.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	stamp := it.CreatedAt
	if it.CompletedAt != nil {
		stamp = *it.CompletedAt
	}
	return fmt.Sprintf("%s %s  %s", box, text, mutedStyle.Render(relativeTime(stamp, now)))
}

func relativeTime(ms int64, now time.Time) string {
	t := time.UnixMilli(ms)
	if now.Sub(t) < time.Minute && now.Sub(t) >= 0 {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func formatFullDate(ms int64) string {
	return time.UnixMilli(ms).Format("Jan 2, 2006 15:04")
}

func (m Model) renderDetail(it storage.Item) string {
	lines := []string{titleStyle.Render("Todo details"), "", it.Text, ""}
	lines = append(lines, mutedStyle.Render("Created: "+formatFullDate(it.CreatedAt)))
	if it.Completed && it.CompletedAt != nil {
		lines = append(lines, mutedStyle.Render("Completed: "+formatFullDate(*it.CompletedAt)))
	}
	kind := storage.ScopeGlobal.Label()
	if it.ProjectPath != "" {
		kind = storage.ScopeProject.Label()
	}
	lines = append(lines, mutedStyle.Render("Type: "+kind))
	lines = append(lines, "")
	if it.Completed {
		lines = append(lines, helpStyle.Render(fmt.Sprintf("%s delete • %s close", m.keys.Delete, m.keys.Cancel)))
	} else {
		lines = append(lines, helpStyle.Render(fmt.Sprintf("space mark complete • %s delete • %s close", m.keys.Delete, m.keys.Cancel)))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderSplit() string {
	lines := []string{
		titleStyle.Render("Multiple lines detected"),
		fmt.Sprintf("You're trying to add %d lines.", len(m.split.lines)),
		"",
	}
	for _, l := range m.split.lines {
		lines = append(lines, "• "+l)
	}
	lines = append(lines, "", helpStyle.Render(fmt.Sprintf("s split into %d todos • k keep as one • %s cancel", len(m.split.lines), m.keys.Cancel)))
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderHelp(k config.Keymap, history bool) string {
	help := fmt.Sprintf("%s/%s move • %s add • %s detail • space toggle • %s delete • %s edit • %s search • %s history • %s scope • %s quit",
		k.Up, k.Down, k.Add, k.Detail, k.Delete, k.Edit, k.Search, k.History, k.Scope, k.Quit)
	if history {
		help += fmt.Sprintf(" • %s clear history", k.ClearHistory)
	}
	return help
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
