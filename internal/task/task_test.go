package task

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestIDUnmarshalAcceptsNumbersAndStrings(t *testing.T) {
	testCases := []struct {
		input string
		want  ID
	}{
		{`{"id": 17}`, "17"},
		{`{"id": "17"}`, "17"},
		{`{"id": " abc "}`, "abc"},
		{`{"id": null}`, ""},
		{`{"id": 1712345678901}`, "1712345678901"},
	}

	for _, tc := range testCases {
		var got struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal([]byte(tc.input), &got); err != nil {
			t.Fatalf("input %s: unexpected error %v", tc.input, err)
		}
		if got.ID != tc.want {
			t.Errorf("input %s: expected %q, got %q", tc.input, tc.want, got.ID)
		}
	}
}

func TestIDUnmarshalRejectsOtherTypes(t *testing.T) {
	var got struct {
		ID ID `json:"id"`
	}
	if err := json.Unmarshal([]byte(`{"id": true}`), &got); err == nil {
		t.Fatal("expected error for boolean id")
	}
}

func TestIDEqualNormalizes(t *testing.T) {
	if !ID(" 42").Equal("42") {
		t.Error("expected padded id to equal trimmed id")
	}
	if ID("42").Equal("43") {
		t.Error("distinct ids compared equal")
	}
}

func TestTaskJSONShape(t *testing.T) {
	in := Task{ID: "1", Title: "Buy milk", Category: "Personal", CreatedAt: "2024-05-01T10:00:00.000Z"}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["description"]; ok {
		t.Error("empty description should be omitted")
	}
	if _, ok := raw["priority"]; ok {
		t.Error("empty priority should be omitted")
	}
	if raw["completed"] != false {
		t.Errorf("completed should always be present, got %v", raw["completed"])
	}
	if raw["createdAt"] != "2024-05-01T10:00:00.000Z" {
		t.Errorf("unexpected createdAt %v", raw["createdAt"])
	}
}

func TestCategoryUnmarshalBareString(t *testing.T) {
	var cats []Category
	if err := json.Unmarshal([]byte(`["Work", {"id": 2, "name": "Personal"}]`), &cats); err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0].Name != "Work" || cats[1].Name != "Personal" || cats[1].ID != "2" {
		t.Errorf("unexpected categories %+v", cats)
	}
}

func TestDraftValidate(t *testing.T) {
	if err := (Draft{Title: "   "}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for blank title, got %v", err)
	}
	if err := (Draft{Title: "x", Priority: "urgent"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for bad priority, got %v", err)
	}
	if err := (Draft{Title: "x"}).Validate(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestPatchApplyOnlyTouchesSetFields(t *testing.T) {
	base := Task{ID: "1", Title: "a", Description: "d", Category: "Work", Priority: PriorityLow, CreatedAt: "x"}
	got := Patch{Completed: Bool(true), Title: String(" b ")}.Apply(base)
	if !got.Completed || got.Title != "b" {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.Description != "d" || got.Category != "Work" || got.Priority != PriorityLow || got.CreatedAt != "x" {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestPatchJSONOmitsNilFields(t *testing.T) {
	data, err := json.Marshal(Patch{Completed: Bool(false)})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"completed":false}` {
		t.Errorf("unexpected patch body %s", data)
	}
}

func TestPatchValidate(t *testing.T) {
	if err := (Patch{Title: String("")}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := (Patch{Completed: Bool(true)}).Validate(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestPriorityFromAge(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		createdAt string
		want      Priority
	}{
		{"", PriorityMedium},
		{"not a date", PriorityMedium},
		{Timestamp(now.Add(-2 * time.Hour)), PriorityHigh},
		{Timestamp(now.Add(-30 * time.Hour)), PriorityMedium},
		{Timestamp(now.Add(-71 * time.Hour)), PriorityMedium},
		{Timestamp(now.Add(-73 * time.Hour)), PriorityLow},
		{"2024-01-01", PriorityLow},
		{Timestamp(now.Add(5 * time.Hour)), PriorityHigh},
	}

	for _, tc := range testCases {
		if got := PriorityFromAge(tc.createdAt, now); got != tc.want {
			t.Errorf("createdAt %q: expected %q, got %q", tc.createdAt, tc.want, got)
		}
	}
}

func TestResolvePriorityPrefersExplicit(t *testing.T) {
	now := time.Now()
	fresh := Timestamp(now)
	if got := ResolvePriority(Task{Priority: PriorityLow, CreatedAt: fresh}, now); got != PriorityLow {
		t.Errorf("expected explicit low, got %q", got)
	}
	if got := ResolvePriority(Task{CreatedAt: fresh}, now); got != PriorityHigh {
		t.Errorf("expected derived high, got %q", got)
	}
}

func TestParsePriority(t *testing.T) {
	for in, want := range map[string]Priority{"HIGH": PriorityHigh, "m": PriorityMedium, " low ": PriorityLow, "": ""} {
		got, err := ParsePriority(in)
		if err != nil || got != want {
			t.Errorf("input %q: expected %q, got %q (%v)", in, want, got, err)
		}
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transport("list tasks", 0, cause)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, cause) {
		t.Errorf("transport error should match kind and cause: %v", err)
	}
	if KindOf(err) != "transport" {
		t.Errorf("unexpected kind %q", KindOf(err))
	}
	nf := NotFound("delete task", "9")
	if !errors.Is(nf, ErrNotFound) || errors.Is(nf, ErrTransport) {
		t.Errorf("not found error kind mismatch: %v", nf)
	}
	if KindOf(Validationf("x", "bad")) != "validation" || KindOf(nil) != "" {
		t.Error("unexpected kind mapping")
	}
}
