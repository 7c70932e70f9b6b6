// Package task holds the data model shared by the client, the store and the
// development backend.
package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID identifies a task or category. Backends may send it as a JSON number or
// a JSON string; both decode to the same canonical string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return strings.TrimSpace(string(id))
}

// Equal compares ids on their normalized string form.
func (id ID) Equal(other ID) bool {
	return id.String() == other.String()
}

func (id ID) Empty() bool {
	return id.String() == ""
}

type Task struct {
	ID          ID       `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Priority    Priority `json:"priority,omitempty"`
	Completed   bool     `json:"completed"`
	CreatedAt   string   `json:"createdAt"`
}

// Created parses CreatedAt. The second result is false when it is missing or
// not a recognizable ISO 8601 timestamp.
func (t Task) Created() (time.Time, bool) {
	return parseTimestamp(t.CreatedAt)
}

func parseTimestamp(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, v); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Timestamp formats t the way tasks store createdAt.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

type Category struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON also accepts a bare string, which some backends return for
// category lists.
func (c *Category) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*c = Category{ID: ID(name), Name: name}
		return nil
	}
	type plain Category
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Category(p)
	return nil
}

// Draft is a task as submitted by the user, before the client or backend
// fills in id, createdAt and completed.
type Draft struct {
	ID          ID
	Title       string
	Description string
	Category    string
	Priority    Priority
	CreatedAt   string
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return Validationf("create task", "title is required")
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return Validationf("create task", "unknown priority %q", d.Priority)
	}
	return nil
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Priority == nil && p.Completed == nil
}

func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Validationf("update task", "title cannot be empty")
	}
	if p.Priority != nil && *p.Priority != "" && !p.Priority.Valid() {
		return Validationf("update task", "unknown priority %q", *p.Priority)
	}
	return nil
}

// Apply returns t with the patch fields written over it.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

func String(v string) *string { return &v }

func Bool(v bool) *bool { return &v }

func PriorityOf(v Priority) *Priority { return &v }
