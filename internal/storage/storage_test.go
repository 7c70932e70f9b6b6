package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"taskboard/internal/task"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "tasks.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestTaskRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	in := []task.Task{
		{ID: "b", Title: "second id, first row", Category: "Work", Priority: task.PriorityHigh, CreatedAt: "2024-05-01T10:00:00.000Z"},
		{ID: "a", Title: "first id, second row", Description: "d", Completed: true},
	}
	for _, tk := range in {
		if err := s.InsertTask(ctx, tk); err != nil {
			t.Fatalf("InsertTask: %v", err)
		}
	}

	got, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != in[0] || got[1] != in[1] {
		t.Errorf("expected insertion order round trip, got %+v", got)
	}

	one, err := s.GetTask(ctx, "a")
	if err != nil || one != in[1] {
		t.Errorf("GetTask: %+v %v", one, err)
	}
	if _, err := s.GetTask(ctx, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertDuplicateIDFails(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.InsertTask(ctx, task.Task{ID: "1", Title: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertTask(ctx, task.Task{ID: "1", Title: "b"}); err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestPatchTask(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.InsertTask(ctx, task.Task{ID: "1", Title: "a", Category: "Work", CreatedAt: "x"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.PatchTask(ctx, "1", task.Patch{Completed: task.Bool(true), Description: task.String("notes")})
	if err != nil {
		t.Fatalf("PatchTask: %v", err)
	}
	want := task.Task{ID: "1", Title: "a", Description: "notes", Category: "Work", Completed: true, CreatedAt: "x"}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	stored, _ := s.GetTask(ctx, "1")
	if stored != want {
		t.Errorf("patch not persisted: %+v", stored)
	}

	if _, err := s.PatchTask(ctx, "2", task.Patch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.InsertTask(ctx, task.Task{ID: "1", Title: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTask(ctx, "1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := s.DeleteTask(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestCategories(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for _, c := range []task.Category{{ID: "2", Name: "Work"}, {ID: "1", Name: "Personal"}} {
		if err := s.InsertCategory(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0].Name != "Work" || cats[1].ID != "1" {
		t.Errorf("unexpected categories %+v", cats)
	}
	ok, err := s.Exists(ctx, "categories", "2")
	if err != nil || !ok {
		t.Errorf("Exists: %v %v", ok, err)
	}
	if _, err := s.Exists(ctx, "users", "2"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InsertTask(context.Background(), task.Task{ID: "1", Title: "a"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	tasks, err := s.ListTasks(context.Background())
	if err != nil || len(tasks) != 1 {
		t.Errorf("expected persisted task, got %+v %v", tasks, err)
	}
}

func TestOpenUpgradesTaskTableWithoutPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`
CREATE TABLE tasks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	completed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT ''
);
INSERT INTO tasks (id, title) VALUES ('1', 'legacy');`)
	db.Close()
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "legacy" || tasks[0].Priority != "" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if _, err := s.PatchTask(ctx, "1", task.Patch{Priority: task.PriorityOf(task.PriorityLow)}); err != nil {
		t.Fatalf("PatchTask: %v", err)
	}
	got, err := s.GetTask(ctx, "1")
	if err != nil || got.Priority != task.PriorityLow {
		t.Errorf("priority not stored: %+v %v", got, err)
	}
}

func TestFreshSchemaHasPriorityColumn(t *testing.T) {
	s := openTemp(t)
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('tasks') WHERE name = 'priority';`).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected one priority column, got %d", n)
	}
}
