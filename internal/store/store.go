// Package store holds the client's in-memory tasks and categories. Every
// mutation goes to the backend first; local state changes only once the
// backend has confirmed it.
package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"taskboard/internal/logging"
	"taskboard/internal/task"
)

// Backend is the remote task service. *api.Client satisfies it.
type Backend interface {
	ListTasks(ctx context.Context) ([]task.Task, error)
	CreateTask(ctx context.Context, d task.Draft) (task.Task, error)
	UpdateTask(ctx context.Context, id task.ID, p task.Patch) (task.Task, error)
	DeleteTask(ctx context.Context, id task.ID) (task.ID, error)
	ListCategories(ctx context.Context) ([]task.Category, error)
	CreateCategory(ctx context.Context, c task.Category) (task.Category, error)
}

type Store struct {
	backend Backend
	log     *logrus.Logger

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
	closed  bool
}

func New(backend Backend, log *logrus.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{
		backend: backend,
		log:     log,
		state:   State{Tasks: []task.Task{}, Categories: []task.Category{}, Loading: true},
		subs:    map[int]func(State){},
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Tasks = slices.Clone(st.Tasks)
	st.Categories = slices.Clone(st.Categories)
	return st
}

// Subscribe registers fn to be called after every applied action. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close drops all subscribers. Requests still in flight complete, but their
// results are no longer applied.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = map[int]func(State){}
}

func (s *Store) CategoryNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.state.Categories))
	for _, c := range s.state.Categories {
		names = append(names, c.Name)
	}
	return names
}

// Initialize loads tasks and then categories. If the category fetch fails the
// tasks already loaded are kept and the error is recorded.
func (s *Store) Initialize(ctx context.Context) error {
	s.dispatch(loadStarted{})

	tasks, err := s.backend.ListTasks(ctx)
	if err != nil {
		s.fail("load tasks", err)
		return err
	}
	s.dispatch(setTasks{tasks: tasks})

	cats, err := s.backend.ListCategories(ctx)
	if err != nil {
		s.log.WithField("tasks", len(tasks)).Warn("categories failed to load; keeping partial data")
		s.fail("load categories", err)
		return err
	}
	s.dispatch(setCats{cats: cats})
	s.dispatch(loadFinished{})
	s.log.WithFields(logrus.Fields{"tasks": len(tasks), "categories": len(cats)}).Info("store initialized")
	return nil
}

// Refresh reloads both collections wholesale.
func (s *Store) Refresh(ctx context.Context) error {
	return s.Initialize(ctx)
}

// AddTask fills the category (first known category) and priority (medium)
// defaults, creates the task remotely and appends the confirmed copy.
func (s *Store) AddTask(ctx context.Context, d task.Draft) (task.Task, error) {
	if strings.TrimSpace(d.Category) == "" {
		if names := s.CategoryNames(); len(names) > 0 {
			d.Category = names[0]
		}
	}
	if d.Priority == "" {
		d.Priority = task.PriorityMedium
	}
	if err := s.checkCategory("add task", d.Category); err != nil {
		s.fail("add task", err)
		return task.Task{}, err
	}

	created, err := s.backend.CreateTask(ctx, d)
	if err != nil {
		s.fail("add task", err)
		return task.Task{}, err
	}
	s.dispatch(addTask{task: created})
	return created, nil
}

// UpdateTask sends the patch and merges the confirmed result. A category in
// the patch must name a loaded category.
func (s *Store) UpdateTask(ctx context.Context, id task.ID, p task.Patch) (task.Task, error) {
	if p.Category != nil {
		if err := s.checkCategory("update task", *p.Category); err != nil {
			s.fail("update task", err)
			return task.Task{}, err
		}
	}
	updated, err := s.backend.UpdateTask(ctx, id, p)
	if err != nil {
		s.fail("update task", err)
		return task.Task{}, err
	}
	s.dispatch(updateTask{id: id, patch: p, updated: updated})
	return updated, nil
}

// ToggleCompletion flips completed relative to the caller's view of it.
func (s *Store) ToggleCompletion(ctx context.Context, id task.ID, current bool) (task.Task, error) {
	updated, err := s.backend.UpdateTask(ctx, id, task.Patch{Completed: task.Bool(!current)})
	if err != nil {
		s.fail("toggle task", err)
		return task.Task{}, err
	}
	s.dispatch(toggleTask{id: id, completed: !current})
	return updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, id task.ID) error {
	removed, err := s.backend.DeleteTask(ctx, id)
	if err != nil {
		s.fail("delete task", err)
		return err
	}
	if removed.Empty() {
		removed = id
	}
	s.dispatch(deleteTask{id: removed})
	return nil
}

func (s *Store) AddCategory(ctx context.Context, name string) (task.Category, error) {
	created, err := s.backend.CreateCategory(ctx, task.Category{Name: name})
	if err != nil {
		s.fail("add category", err)
		return task.Category{}, err
	}
	s.dispatch(addCategory{cat: created})
	return created, nil
}

// checkCategory rejects a non-empty category name that no loaded category
// carries.
func (s *Store) checkCategory(op, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || slices.Contains(s.CategoryNames(), name) {
		return nil
	}
	return task.Validationf(op, "unknown category %q", name)
}

func (s *Store) fail(op string, err error) {
	s.log.WithField("op", op).WithError(err).Error("store operation failed")
	s.dispatch(setError{err: err})
}

func (s *Store) dispatch(a action) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = reduce(s.state, a)
	s.state.Version++
	st := s.state
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
