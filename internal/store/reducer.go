package store

import (
	"slices"

	"taskboard/internal/task"
)

// State is the store's view of the world. Values handed to subscribers share
// backing arrays with the store and must be treated as read-only.
type State struct {
	Tasks      []task.Task
	Categories []task.Category
	Loading    bool
	Err        error
	// Version increases on every applied action.
	Version uint64
}

// ErrorKind names the recorded error's kind, or "" when there is none.
func (s State) ErrorKind() string {
	return task.KindOf(s.Err)
}

type action interface{}

type (
	loadStarted  struct{}
	loadFinished struct{}
	setTasks     struct{ tasks []task.Task }
	setCats      struct{ cats []task.Category }
	addTask      struct{ task task.Task }
	updateTask   struct {
		id      task.ID
		patch   task.Patch
		updated task.Task
	}
	toggleTask struct {
		id        task.ID
		completed bool
	}
	deleteTask  struct{ id task.ID }
	addCategory struct{ cat task.Category }
	setError    struct{ err error }
)

// reduce never modifies s in place: slices that change are copied so earlier
// snapshots stay valid.
func reduce(s State, a action) State {
	switch a := a.(type) {
	case loadStarted:
		s.Loading = true
		s.Err = nil
	case loadFinished:
		s.Loading = false
	case setTasks:
		s.Tasks = dedupe(a.tasks)
	case setCats:
		s.Categories = slices.Clone(a.cats)
	case addTask:
		tasks := slices.Clone(s.Tasks)
		if i := indexOf(tasks, a.task.ID); i >= 0 {
			tasks[i] = a.task
		} else {
			tasks = append(tasks, a.task)
		}
		s.Tasks = tasks
		s.Err = nil
	case updateTask:
		i := indexOf(s.Tasks, a.id)
		if i < 0 {
			break
		}
		tasks := slices.Clone(s.Tasks)
		tasks[i] = merge(tasks[i], a.patch, a.updated)
		s.Tasks = tasks
		s.Err = nil
	case toggleTask:
		i := indexOf(s.Tasks, a.id)
		if i < 0 {
			break
		}
		tasks := slices.Clone(s.Tasks)
		tasks[i].Completed = a.completed
		s.Tasks = tasks
		s.Err = nil
	case deleteTask:
		s.Tasks = slices.DeleteFunc(slices.Clone(s.Tasks), func(t task.Task) bool {
			return t.ID.Equal(a.id)
		})
		s.Err = nil
	case addCategory:
		s.Categories = append(slices.Clone(s.Categories), a.cat)
		s.Err = nil
	case setError:
		s.Err = a.err
		s.Loading = false
	}
	return s
}

// merge applies the confirmed patch to the local task, then takes whatever
// the backend echoed back on top. Fields the response leaves out keep their
// local value, so a sparse PATCH response never clears them. Identity and
// completion come from the local copy and the patch.
func merge(old task.Task, p task.Patch, updated task.Task) task.Task {
	out := p.Apply(old)
	if updated.Title != "" {
		out.Title = updated.Title
	}
	if updated.Description != "" {
		out.Description = updated.Description
	}
	if updated.Category != "" {
		out.Category = updated.Category
	}
	if updated.Priority != "" {
		out.Priority = updated.Priority
	}
	if out.CreatedAt == "" {
		out.CreatedAt = updated.CreatedAt
	}
	return out
}

func indexOf(tasks []task.Task, id task.ID) int {
	return slices.IndexFunc(tasks, func(t task.Task) bool { return t.ID.Equal(id) })
}

// dedupe keeps the last occurrence of each id, in first-seen order.
func dedupe(tasks []task.Task) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if i := indexOf(out, t.ID); i >= 0 {
			out[i] = t
			continue
		}
		out = append(out, t)
	}
	return out
}
