package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"taskboard/internal/config"
	"taskboard/internal/task"
)

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	subtle    = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	errColor  = lipgloss.Color("#FF5F87")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	statStyle     = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(subtle)
	selectedStyle = lipgloss.NewStyle().Foreground(highlight).Bold(true)
	doneStyle     = lipgloss.NewStyle().Foreground(subtle).Strikethrough(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(subtle)
	errorStyle    = lipgloss.NewStyle().Foreground(errColor)
	formStyle     = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(highlight)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Task Manager"))
	b.WriteString("\n\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n")
	b.WriteString(m.renderFilterLine())
	b.WriteString("\n\n")

	switch {
	case m.state.Loading && len(m.state.Tasks) == 0:
		b.WriteString(m.spinner.View() + " Loading tasks...")
	case len(m.rows) == 0 && len(m.state.Tasks) == 0:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("No tasks yet. Press '%s' to add one.", m.cfg.Keys.Add)))
	case len(m.rows) == 0:
		b.WriteString(mutedStyle.Render("No tasks match the current filters."))
	default:
		b.WriteString(m.renderGroups())
	}
	b.WriteString("\n")

	switch m.mode {
	case modeForm:
		b.WriteString(m.renderForm())
		b.WriteString("\n")
	case modeSearch, modeCategory:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if m.state.Err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.state.Err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.loading && len(m.state.Tasks) > 0 {
		b.WriteString(m.spinner.View() + " ")
	}
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(renderHelp(m.cfg.Keys)))

	return b.String()
}

func (m Model) renderStats() string {
	s := m.memo.Stats(m.state.Version, m.state.Tasks)
	cells := []string{
		statStyle.Render(fmt.Sprintf("Total\n%d", s.Total)),
		statStyle.Render(fmt.Sprintf("Completed\n%d", s.Completed)),
		statStyle.Render(fmt.Sprintf("Incomplete\n%d", s.Incomplete)),
		statStyle.Render(fmt.Sprintf("Progress\n%d%%", s.PercentComplete)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m Model) renderFilterLine() string {
	parts := []string{"Category: " + categoryLabel(m.filter.Category)}
	if m.filter.Term != "" {
		parts = append(parts, fmt.Sprintf("Search: %q", m.filter.Term))
	}
	if m.filter.HideCompleted {
		parts = append(parts, "Hiding completed")
	}
	return mutedStyle.Render(strings.Join(parts, "  |  "))
}

func (m Model) renderGroups() string {
	var b strings.Builder
	offset := 0
	sections := []struct {
		title string
		tasks []task.Task
	}{
		{"High Priority Tasks", m.groups.HighPriority},
		{"Tasks", m.groups.Normal},
		{"Completed Tasks", m.groups.Completed},
	}
	for _, sec := range sections {
		if len(sec.tasks) == 0 {
			continue
		}
		b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", sec.title, len(sec.tasks))))
		b.WriteString("\n")
		for i, t := range sec.tasks {
			b.WriteString(m.renderRow(t, offset+i == m.cursor))
			b.WriteString("\n")
		}
		offset += len(sec.tasks)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(t task.Task, selected bool) string {
	cursor := " "
	if selected && m.mode == modeList {
		cursor = ">"
	}
	checkbox := "[ ]"
	if t.Completed {
		checkbox = "[x]"
	}

	title := t.Title
	switch {
	case t.Completed:
		title = doneStyle.Render(title)
	case selected:
		title = selectedStyle.Render(title)
	}

	meta := []string{}
	if t.Category != "" {
		meta = append(meta, t.Category)
	}
	if t.Priority != "" {
		meta = append(meta, string(t.Priority))
	}
	line := fmt.Sprintf("%s %s %s", cursor, checkbox, title)
	if len(meta) > 0 {
		line += " " + mutedStyle.Render("("+strings.Join(meta, ", ")+")")
	}
	return line
}

func (m Model) renderForm() string {
	var b strings.Builder
	heading := "New task"
	if m.form.editing != nil {
		heading = "Edit task"
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n")
	for i, label := range formFields() {
		marker := "  "
		value := m.form.values()[i]
		if i == m.form.index {
			marker = "> "
			value = m.input.View()
		}
		b.WriteString(fmt.Sprintf("%s%-28s %s\n", marker, label+":", value))
	}
	b.WriteString(mutedStyle.Render("tab/shift+tab move • left/right cycle category and priority • enter next/save • esc cancel"))
	return formStyle.Render(b.String())
}

// detailLine summarizes a task for the status bar.
func (m Model) detailLine(t task.Task) string {
	created := "unknown"
	if ts, ok := t.Created(); ok {
		created = humanize.RelTime(ts, m.now(), "ago", "from now")
	}
	desc := t.Description
	if desc == "" {
		desc = "no description"
	}
	priority := task.ResolvePriority(t, m.now())
	state := "pending"
	if t.Completed {
		state = "completed"
	}
	return fmt.Sprintf("%s | %s | %s | %s | created %s | %s",
		t.Title, categoryLabel(t.Category), priority.Label(), state, created, desc)
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s edit • %s toggle • %s delete • %s detail • %s search • %s category • %s hide done • %s clear • %s new category • %s refresh • %s copy • %s quit",
		k.Up, k.Down, k.Add, k.Edit, k.Toggle, k.Delete, k.Detail, k.Search, k.Category, k.HideDone, k.ClearFilters, k.AddCategory, k.Refresh, k.Copy, k.Quit)
}
