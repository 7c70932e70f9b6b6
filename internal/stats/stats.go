// Package stats derives counts, filtered views and display groups from a
// task slice. Nothing here mutates its input.
package stats

import (
	"math"
	"strings"
	"sync"
	"time"

	"taskboard/internal/task"
)

// AllCategories is the category filter value that matches every task.
const AllCategories = "All"

type Stats struct {
	Total           int `json:"total"`
	Completed       int `json:"completed"`
	Incomplete      int `json:"incomplete"`
	PercentComplete int `json:"percentComplete"`
}

func Compute(tasks []task.Task) Stats {
	var s Stats
	s.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	s.Incomplete = s.Total - s.Completed
	if s.Total > 0 {
		s.PercentComplete = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}

// Search matches term case-insensitively against title and description. An
// empty term returns tasks unchanged.
func Search(tasks []task.Task, term string) []task.Task {
	if term == "" {
		return tasks
	}
	needle := strings.ToLower(term)
	var out []task.Task
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
		}
	}
	return out
}

func ByCategory(tasks []task.Task, name string) []task.Task {
	var out []task.Task
	for _, t := range tasks {
		if t.Category == name {
			out = append(out, t)
		}
	}
	return out
}

// Filter is the list view's working-set selection.
type Filter struct {
	Term string
	// Category is matched exactly; "" and AllCategories match everything.
	Category      string
	HideCompleted bool
}

func (f Filter) Active() bool {
	return f.Term != "" || (f.Category != "" && f.Category != AllCategories) || f.HideCompleted
}

func (f Filter) Apply(tasks []task.Task) []task.Task {
	out := Search(tasks, f.Term)
	if f.Category != "" && f.Category != AllCategories {
		out = ByCategory(out, f.Category)
	}
	if f.HideCompleted {
		var pending []task.Task
		for _, t := range out {
			if !t.Completed {
				pending = append(pending, t)
			}
		}
		out = pending
	}
	return out
}

// Groups partitions a working set for display. Every task lands in exactly
// one group.
type Groups struct {
	HighPriority []task.Task
	Normal       []task.Task
	Completed    []task.Task
}

func (g Groups) Len() int {
	return len(g.HighPriority) + len(g.Normal) + len(g.Completed)
}

// Flatten returns the groups in display order.
func (g Groups) Flatten() []task.Task {
	out := make([]task.Task, 0, g.Len())
	out = append(out, g.HighPriority...)
	out = append(out, g.Normal...)
	return append(out, g.Completed...)
}

func Group(tasks []task.Task, now time.Time) Groups {
	var g Groups
	for _, t := range tasks {
		switch {
		case t.Completed:
			g.Completed = append(g.Completed, t)
		case task.ResolvePriority(t, now) == task.PriorityHigh:
			g.HighPriority = append(g.HighPriority, t)
		default:
			g.Normal = append(g.Normal, t)
		}
	}
	return g
}

// Memo caches Compute results per store version.
type Memo struct {
	mu      sync.Mutex
	version uint64
	valid   bool
	stats   Stats
}

func (m *Memo) Stats(version uint64, tasks []task.Task) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid && m.version == version {
		return m.stats
	}
	m.stats = Compute(tasks)
	m.version = version
	m.valid = true
	return m.stats
}
