package task

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the valid priorities from most to least urgent.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High Priority"
	case PriorityLow:
		return "Low Priority"
	default:
		return "Medium Priority"
	}
}

func ParsePriority(v string) (Priority, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "":
		return "", nil
	case "h", "high":
		return PriorityHigh, nil
	case "m", "med", "medium":
		return PriorityMedium, nil
	case "l", "low":
		return PriorityLow, nil
	}
	return "", fmt.Errorf("unknown priority %q (want high, medium or low)", v)
}

// ResolvePriority returns the task's explicit priority, or one derived from
// the age of createdAt when none is set.
func ResolvePriority(t Task, now time.Time) Priority {
	if t.Priority.Valid() {
		return t.Priority
	}
	return PriorityFromAge(t.CreatedAt, now)
}

// PriorityFromAge: under one day is high, under three days is medium,
// anything older is low. Missing or unparseable timestamps are medium.
func PriorityFromAge(createdAt string, now time.Time) Priority {
	created, ok := parseTimestamp(createdAt)
	if !ok {
		return PriorityMedium
	}
	age := now.Sub(created)
	if age < 0 {
		age = -age
	}
	days := int(age / (24 * time.Hour))
	switch {
	case days < 1:
		return PriorityHigh
	case days < 3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
