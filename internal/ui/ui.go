package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"taskboard/internal/config"
	"taskboard/internal/logging"
	"taskboard/internal/stats"
	"taskboard/internal/store"
	"taskboard/internal/task"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeSearch
	modeCategory
)

// stateMsg carries a store snapshot delivered through the subscription.
type stateMsg struct{ state store.State }

// opDoneMsg reports the outcome of a store call started from the UI.
type opDoneMsg struct {
	op  string
	err error
}

type Model struct {
	ctx    context.Context
	store  *store.Store
	cfg    config.Config
	log    *logrus.Logger
	now    func() time.Time
	copyFn func(string) error

	state  store.State
	memo   *stats.Memo
	filter stats.Filter
	groups stats.Groups
	rows   []task.Task

	cursor     int
	mode       mode
	input      textinput.Model
	spinner    spinner.Model
	status     string
	width      int
	// loading is set while a load or refresh request is in flight and keeps
	// the spinner ticking until its result arrives.
	loading    bool
	submitting bool
	confirmDel bool
	pendingDel *task.Task
	form       *formState
}

func New(ctx context.Context, st *store.Store, cfg config.Config, log *logrus.Logger) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	if log == nil {
		log = logging.Discard()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:     ctx,
		store:   st,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		copyFn:  clipboard.WriteAll,
		state:   st.Snapshot(),
		memo:    &stats.Memo{},
		input:   ti,
		spinner: sp,
		mode:    modeList,
		status:  "Loading tasks...",
		loading: true,
	}
	m.filter.HideCompleted = strings.EqualFold(cfg.DefaultFilter, "pending")
	m.refreshRows()
	return m
}

// Run starts the TUI. Store changes reach the program through a
// subscription; the store is closed when the program exits so late
// responses are dropped.
func Run(ctx context.Context, st *store.Store, cfg config.Config, log *logrus.Logger) error {
	program := tea.NewProgram(New(ctx, st, cfg, log), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := st.Subscribe(func(s store.State) {
		program.Send(stateMsg{state: s})
	})
	defer func() {
		unsubscribe()
		st.Close()
	}()
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run("load", func(ctx context.Context) error {
		return m.store.Initialize(ctx)
	}))
}

func (m Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		if msg.state.Version >= m.state.Version {
			m.state = msg.state
			m.refreshRows()
		}
		return m, nil
	case opDoneMsg:
		return m.handleOpDone(msg)
	case spinner.TickMsg:
		if !m.loading && !m.state.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-10, 10)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.submitting {
			return m, nil
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		switch m.mode {
		case modeForm:
			return m.updateFormMode(msg.String(), msg)
		case modeSearch:
			return m.updateSearchMode(msg.String(), msg)
		case modeCategory:
			return m.updateCategoryMode(msg.String(), msg)
		}
		return m.updateListMode(msg.String())
	}
	return m, nil
}

func (m Model) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.op == "load" || msg.op == "refresh" {
		m.loading = false
	}
	if snap := m.store.Snapshot(); snap.Version >= m.state.Version {
		m.state = snap
		m.refreshRows()
	}
	if msg.err != nil {
		m.status = failureText(msg.op, msg.err)
		return m, nil
	}

	switch msg.op {
	case "load":
		m.status = fmt.Sprintf("Loaded %d tasks. Press '%s' to add, '%s' to search.", len(m.state.Tasks), m.cfg.Keys.Add, m.cfg.Keys.Search)
	case "refresh":
		m.status = "Refreshed"
	case "add":
		m.status = "Added task"
		m.closeForm()
	case "update":
		m.status = "Updated task"
		m.closeForm()
	case "toggle":
		m.status = "Toggled task"
	case "delete":
		m.status = "Deleted task"
	case "category":
		m.status = "Added category"
	}
	return m, nil
}

func failureText(op string, err error) string {
	var what string
	switch op {
	case "load", "refresh":
		what = "Failed to load tasks and categories"
	case "add", "update":
		what = "Failed to save task. Please try again"
	case "toggle":
		what = "Failed to toggle task completion"
	case "delete":
		what = "Failed to delete task"
	case "category":
		what = "Failed to add category"
	default:
		what = "Request failed"
	}
	return fmt.Sprintf("%s: %v", what, err)
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		if len(m.rows) > 0 {
			m.cursor = clampCursor(m.cursor+1, len(m.rows))
		}
	case k.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(m.rows))
		}
	case k.Add:
		m.form = newAddForm(m.store.CategoryNames())
		return m.openForm("Add task: enter to advance, esc to cancel")
	case k.Edit:
		t, ok := m.selected()
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		m.form = newEditForm(t)
		return m.openForm("Edit task: enter to advance, esc to cancel")
	case k.Toggle:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.status = "Updating..."
		return m, m.run("toggle", func(ctx context.Context) error {
			_, err := m.store.ToggleCompletion(ctx, t.ID, t.Completed)
			return err
		})
	case k.Delete:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case k.Detail:
		t, ok := m.selected()
		if !ok {
			m.status = "No tasks"
			return m, nil
		}
		m.status = m.detailLine(t)
	case k.Search:
		m.mode = modeSearch
		m.input.SetValue(m.filter.Term)
		m.input.Placeholder = "Search by title or description"
		m.status = "Search: type to filter, enter to keep, esc to clear"
		return m, m.input.Focus()
	case k.Category:
		m.filter.Category = nextCategory(m.filter.Category, m.store.CategoryNames())
		m.refreshRows()
		m.status = "Category: " + categoryLabel(m.filter.Category)
	case k.HideDone:
		m.filter.HideCompleted = !m.filter.HideCompleted
		m.refreshRows()
		if m.filter.HideCompleted {
			m.status = "Hiding completed tasks"
		} else {
			m.status = "Showing completed tasks"
		}
	case k.ClearFilters:
		m.filter = stats.Filter{}
		m.refreshRows()
		m.status = "Filters cleared"
	case k.AddCategory:
		m.mode = modeCategory
		m.input.SetValue("")
		m.input.Placeholder = "Category name"
		m.status = "New category: enter to save, esc to cancel"
		return m, m.input.Focus()
	case k.Refresh:
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.status = "Refreshing..."
		return m, tea.Batch(m.spinner.Tick, m.run("refresh", func(ctx context.Context) error {
			return m.store.Refresh(ctx)
		}))
	case k.Copy:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.copyFn(t.Title); err != nil {
			m.log.WithError(err).Warn("clipboard copy failed")
			m.status = fmt.Sprintf("copy failed: %v", err)
		} else {
			m.status = "Copied title to clipboard"
		}
	}
	return m, nil
}

func (m Model) openForm(status string) (tea.Model, tea.Cmd) {
	m.mode = modeForm
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.status = status
	return m, m.input.Focus()
}

func (m *Model) closeForm() {
	m.form = nil
	m.mode = modeList
	m.input.SetValue("")
	m.input.Blur()
}

func (m Model) updateFormMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.mode = modeList
		return m, nil
	}
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.closeForm()
		m.status = "Cancelled"
		return m, nil
	case "tab", "down":
		m.moveField(1)
		return m, nil
	case "shift+tab", "up":
		m.moveField(-1)
		return m, nil
	case "left", "right":
		step := 1
		if key == "left" {
			step = -1
		}
		switch m.form.index {
		case 2:
			m.form.cycleCategory(m.store.CategoryNames(), step)
			m.input.SetValue(m.form.category)
			return m, nil
		case 3:
			m.form.cyclePriority(step)
			m.input.SetValue(m.form.priority)
			return m, nil
		}
	case m.cfg.Keys.Confirm, "enter":
		m.form.setCurrentValue(m.input.Value())
		if m.form.index >= len(formFields())-1 {
			return m.submitForm()
		}
		m.moveField(1)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) moveField(step int) {
	m.form.setCurrentValue(m.input.Value())
	m.form.index = wrapIndex(m.form.index+step, len(formFields()))
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.status = fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, esc to cancel.",
		m.form.currentLabel(), m.form.index+1, len(formFields()))
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	categories := m.store.CategoryNames()
	if m.form.editing != nil {
		id := m.form.editing.ID
		p, err := m.form.patch(categories)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.submitting = true
		m.status = "Updating..."
		return m, m.run("update", func(ctx context.Context) error {
			_, err := m.store.UpdateTask(ctx, id, p)
			return err
		})
	}

	d, err := m.form.draft(categories)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.submitting = true
	m.status = "Adding..."
	return m, m.run("add", func(ctx context.Context) error {
		_, err := m.store.AddTask(ctx, d)
		return err
	})
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.filter.Term = ""
		m.mode = modeList
		m.input.Blur()
		m.refreshRows()
		m.status = "Search cleared"
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.mode = modeList
		m.input.Blur()
		m.status = fmt.Sprintf("%d matching tasks", len(m.rows))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filter.Term = m.input.Value()
	m.refreshRows()
	return m, cmd
}

func (m Model) updateCategoryMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.mode = modeList
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			m.status = "Category name cannot be empty"
			return m, nil
		}
		m.mode = modeList
		m.input.Blur()
		m.submitting = true
		m.status = "Adding category..."
		return m, m.run("category", func(ctx context.Context) error {
			_, err := m.store.AddCategory(ctx, name)
			return err
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", "esc":
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		m.confirmDel = false
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			return m, nil
		}
		id := m.pendingDel.ID
		m.pendingDel = nil
		m.status = "Deleting..."
		return m, m.run("delete", func(ctx context.Context) error {
			return m.store.DeleteTask(ctx, id)
		})
	default:
		return m, nil
	}
}

// refreshRows recomputes the visible, grouped rows from state and filter.
func (m *Model) refreshRows() {
	m.groups = stats.Group(m.filter.Apply(m.state.Tasks), m.now())
	m.rows = m.groups.Flatten()
	m.cursor = clampCursor(m.cursor, len(m.rows))
}

func (m Model) selected() (task.Task, bool) {
	if len(m.rows) == 0 {
		return task.Task{}, false
	}
	return m.rows[clampCursor(m.cursor, len(m.rows))], true
}

// nextCategory cycles All -> first category -> ... -> last -> All.
func nextCategory(current string, categories []string) string {
	if current == "" || current == stats.AllCategories {
		if len(categories) == 0 {
			return ""
		}
		return categories[0]
	}
	for i, c := range categories {
		if c == current && i+1 < len(categories) {
			return categories[i+1]
		}
	}
	return ""
}

func categoryLabel(c string) string {
	if c == "" {
		return "All Categories"
	}
	return c
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
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
