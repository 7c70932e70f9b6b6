package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"taskboard/internal/task"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
}

func TestListTasksDecodesNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `[{"id": 1, "title": "a", "category": "Work", "completed": true, "createdAt": "2024-01-01T00:00:00Z"}, {"id": "2", "title": "b", "category": "Work"}]`)
	}))
	defer srv.Close()

	tasks, err := New(srv.URL + "/").ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "1" || !tasks[0].Completed {
		t.Errorf("unexpected first task %+v", tasks[0])
	}
	if tasks[1].Completed {
		t.Error("missing completed should decode as false")
	}
}

func TestListTasksEmptyBodyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `null`)
	}))
	defer srv.Close()

	tasks, err := New(srv.URL).ListTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", tasks)
	}
}

func TestCreateTaskFillsClientFields(t *testing.T) {
	var got task.Task
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	c := New(srv.URL, WithIDGenerator(func() string { return "generated" }), WithClock(fixedClock))
	created, err := c.CreateTask(context.Background(), task.Draft{Title: " Buy milk ", Category: "Personal", Priority: task.PriorityHigh})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if got.ID != "generated" || got.CreatedAt != "2024-05-01T10:00:00.000Z" || got.Completed {
		t.Errorf("client fields not filled: %+v", got)
	}
	if got.Title != "Buy milk" {
		t.Errorf("title not trimmed: %q", got.Title)
	}
	if created.ID != "generated" || created.Priority != task.PriorityHigh {
		t.Errorf("unexpected created task %+v", created)
	}
}

func TestCreateTaskKeepsProvidedIDAndTimestamp(t *testing.T) {
	var got task.Task
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	_, err := New(srv.URL).CreateTask(context.Background(), task.Draft{ID: "mine", Title: "x", CreatedAt: "2020-01-01T00:00:00Z"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "mine" || got.CreatedAt != "2020-01-01T00:00:00Z" {
		t.Errorf("provided fields overwritten: %+v", got)
	}
}

func TestCreateTaskValidatesBeforeNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	_, err := New(srv.URL).CreateTask(context.Background(), task.Draft{Title: "  "})
	if !errors.Is(err, task.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("validation failure should not reach the network")
	}
}

func TestUpdateTaskSendsOnlyPatchFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/tasks/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"completed":true}` {
			t.Errorf("unexpected patch body %s", body)
		}
		io.WriteString(w, `{"id": 7, "title": "t", "completed": true}`)
	}))
	defer srv.Close()

	updated, err := New(srv.URL).UpdateTask(context.Background(), "7", task.Patch{Completed: task.Bool(true)})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.ID != "7" || !updated.Completed {
		t.Errorf("unexpected updated task %+v", updated)
	}
}

func TestUpdateAndDeleteMapNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	c := New(srv.URL)

	_, err := c.UpdateTask(context.Background(), "missing", task.Patch{Completed: task.Bool(true)})
	if !errors.Is(err, task.ErrNotFound) {
		t.Errorf("update: expected not found, got %v", err)
	}
	_, err = c.DeleteTask(context.Background(), "missing")
	if !errors.Is(err, task.ErrNotFound) {
		t.Errorf("delete: expected not found, got %v", err)
	}
	_, err = c.ListTasks(context.Background())
	if !errors.Is(err, task.ErrTransport) {
		t.Errorf("list: a 404 on a collection is a transport failure, got %v", err)
	}
}

func TestDeleteTaskReturnsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/tasks/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	id, err := New(srv.URL).DeleteTask(context.Background(), " 42")
	if err != nil {
		t.Fatal(err)
	}
	if id != "42" {
		t.Errorf("expected normalized id 42, got %q", id)
	}
}

func TestServerErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListCategories(context.Background())
	var terr *task.Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *task.Error, got %T %v", err, err)
	}
	if terr.Status != http.StatusInternalServerError || !errors.Is(err, task.ErrTransport) {
		t.Errorf("unexpected error %+v", terr)
	}
}

func TestUnreachableServerIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).ListTasks(context.Background())
	if !errors.Is(err, task.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestMalformedJSONIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{not json`)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).ListTasks(context.Background()); !errors.Is(err, task.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestCreateCategoryAssignsID(t *testing.T) {
	var got task.Category
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	c := New(srv.URL, WithIDGenerator(func() string { return "cat-1" }))
	cat, err := c.CreateCategory(context.Background(), task.Category{Name: " Errands "})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "cat-1" || got.Name != "Errands" || cat.Name != "Errands" {
		t.Errorf("unexpected category sent=%+v returned=%+v", got, cat)
	}

	if _, err := c.CreateCategory(context.Background(), task.Category{}); !errors.Is(err, task.ErrValidation) {
		t.Errorf("expected validation error for empty name, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, WithBreaker(2, time.Minute))
	for i := 0; i < 4; i++ {
		if _, err := c.ListTasks(context.Background()); !errors.Is(err, task.ErrTransport) {
			t.Fatalf("call %d: expected transport error, got %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected breaker to stop calls after 2 failures, server saw %d", n)
	}
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, WithBreaker(1, time.Minute))
	for i := 0; i < 3; i++ {
		if _, err := c.DeleteTask(context.Background(), "x"); !errors.Is(err, task.ErrNotFound) {
			t.Fatalf("call %d: expected not found, got %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("not-found responses should not trip the breaker, server saw %d calls", n)
	}
}
