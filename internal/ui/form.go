package ui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"taskboard/internal/task"
)

// formState backs the add/edit task editor. editing is nil when adding.
type formState struct {
	editing     *task.Task
	title       string
	description string
	category    string
	priority    string
	index       int
}

func formFields() []string {
	return []string{"title", "description (optional)", "category", "priority (high/medium/low)"}
}

func newAddForm(categories []string) *formState {
	f := &formState{priority: string(task.PriorityMedium)}
	if len(categories) > 0 {
		f.category = categories[0]
	}
	return f
}

func newEditForm(t task.Task) *formState {
	tc := t
	priority := string(t.Priority)
	if priority == "" {
		priority = string(task.PriorityMedium)
	}
	return &formState{
		editing:     &tc,
		title:       t.Title,
		description: t.Description,
		category:    t.Category,
		priority:    priority,
	}
}

func (f formState) currentLabel() string {
	return formFields()[f.index]
}

func (f formState) currentValue() string {
	switch f.index {
	case 0:
		return f.title
	case 1:
		return f.description
	case 2:
		return f.category
	case 3:
		return f.priority
	default:
		return ""
	}
}

func (f *formState) setCurrentValue(v string) {
	switch f.index {
	case 0:
		f.title = v
	case 1:
		f.description = v
	case 2:
		f.category = v
	case 3:
		f.priority = v
	}
}

func (f formState) values() []string {
	return []string{f.title, f.description, f.category, f.priority}
}

// cycleCategory moves the category field to the next or previous known
// category.
func (f *formState) cycleCategory(categories []string, step int) {
	if len(categories) == 0 {
		return
	}
	i := slices.Index(categories, f.category)
	if i < 0 {
		i = 0
		if step < 0 {
			i = len(categories) - 1
		}
	} else {
		i = wrapIndex(i+step, len(categories))
	}
	f.category = categories[i]
}

func (f *formState) cyclePriority(step int) {
	ps := task.Priorities()
	i := slices.Index(ps, task.Priority(strings.ToLower(strings.TrimSpace(f.priority))))
	if i < 0 {
		i = 1
	} else {
		i = wrapIndex(i+step, len(ps))
	}
	f.priority = string(ps[i])
}

// draft checks the form and builds the create request. Checks here mirror
// task.Draft.Validate so the user sees the message before any request.
func (f formState) draft(categories []string) (task.Draft, error) {
	title := strings.TrimSpace(f.title)
	if title == "" {
		return task.Draft{}, errors.New("title is required")
	}
	priority, err := task.ParsePriority(f.priority)
	if err != nil {
		return task.Draft{}, err
	}
	category := strings.TrimSpace(f.category)
	if category != "" && len(categories) > 0 && !slices.Contains(categories, category) {
		return task.Draft{}, fmt.Errorf("unknown category %q", category)
	}
	return task.Draft{
		Title:       title,
		Description: strings.TrimSpace(f.description),
		Category:    category,
		Priority:    priority,
	}, nil
}

// patch builds the update request for an edit. All form fields are sent.
func (f formState) patch(categories []string) (task.Patch, error) {
	d, err := f.draft(categories)
	if err != nil {
		return task.Patch{}, err
	}
	p := task.Patch{
		Title:       task.String(d.Title),
		Description: task.String(d.Description),
		Category:    task.String(d.Category),
	}
	if d.Priority != "" {
		p.Priority = task.PriorityOf(d.Priority)
	}
	return p, nil
}
