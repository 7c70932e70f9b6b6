package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"taskboard/internal/stats"
	"taskboard/internal/task"
)

// now is swapped in tests.
var now = time.Now

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeGroups(w io.Writer, g stats.Groups, at time.Time) {
	if g.Len() == 0 {
		fmt.Fprintln(w, "No tasks found. Create one with: taskboard add \"Title\"")
		return
	}
	sections := []struct {
		title string
		tasks []task.Task
	}{
		{"High Priority Tasks", g.HighPriority},
		{"Tasks", g.Normal},
		{"Completed Tasks", g.Completed},
	}
	first := true
	for _, sec := range sections {
		if len(sec.tasks) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false
		fmt.Fprintf(w, "%s (%d):\n", sec.title, len(sec.tasks))
		for _, t := range sec.tasks {
			fmt.Fprintln(w, formatTask(t, at))
		}
	}
}

func formatTask(t task.Task, at time.Time) string {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	created := "unknown"
	if ts, ok := t.Created(); ok {
		created = humanize.RelTime(ts, at, "ago", "from now")
	}
	category := t.Category
	if category == "" {
		category = "-"
	}
	return fmt.Sprintf("  %s %-10s %-30s %-10s %-6s created %s",
		box, t.ID, t.Title, category, task.ResolvePriority(t, at), created)
}

func writeStats(w io.Writer, s stats.Stats) {
	fmt.Fprintf(w, "Total:      %d\n", s.Total)
	fmt.Fprintf(w, "Completed:  %d\n", s.Completed)
	fmt.Fprintf(w, "Incomplete: %d\n", s.Incomplete)
	fmt.Fprintf(w, "Progress:   %d%%\n", s.PercentComplete)
}
