package storage

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"taskboard/internal/task"
)

var ErrNotFound = errors.New("record not found")

// Store persists tasks and categories for the development backend.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT '',
	completed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS categories (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureTaskColumns()
}

// ensureTaskColumns upgrades task tables created before the priority column
// was part of the schema. New databases already have every column.
func (s *Store) ensureTaskColumns() error {
	required := map[string]string{
		"priority": "ALTER TABLE tasks ADD COLUMN priority TEXT NOT NULL DEFAULT '';",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

const taskColumns = `id, title, description, category, priority, completed, created_at`

func scanTask(row interface{ Scan(...any) error }) (task.Task, error) {
	var t task.Task
	var id, priority string
	var completed int
	if err := row.Scan(&id, &t.Title, &t.Description, &t.Category, &priority, &completed, &t.CreatedAt); err != nil {
		return task.Task{}, err
	}
	t.ID = task.ID(id)
	t.Priority = task.Priority(priority)
	t.Completed = completed == 1
	return t, nil
}

// ListTasks returns tasks in insertion order.
func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY seq;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id task.ID) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id.String())
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrNotFound
	}
	return t, err
}

func (s *Store) InsertTask(ctx context.Context, t task.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, category, priority, completed, created_at) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		t.ID.String(), t.Title, t.Description, t.Category, string(t.Priority), boolToInt(t.Completed), t.CreatedAt)
	return err
}

// PatchTask applies p to the stored task and returns the result.
func (s *Store) PatchTask(ctx context.Context, id task.ID, p task.Patch) (task.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return task.Task{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id.String())
	current, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrNotFound
	}
	if err != nil {
		return task.Task{}, err
	}

	next := p.Apply(current)
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, category = ?, priority = ?, completed = ? WHERE id = ?;`,
		next.Title, next.Description, next.Category, string(next.Priority), boolToInt(next.Completed), id.String())
	if err != nil {
		return task.Task{}, err
	}
	return next, tx.Commit()
}

func (s *Store) DeleteTask(ctx context.Context, id task.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]task.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY seq;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := []task.Category{}
	for rows.Next() {
		var id string
		var c task.Category
		if err := rows.Scan(&id, &c.Name); err != nil {
			return nil, err
		}
		c.ID = task.ID(id)
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *Store) InsertCategory(ctx context.Context, c task.Category) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO categories (id, name) VALUES (?, ?);`, c.ID.String(), c.Name)
	return err
}

// Exists reports whether a task or category with the given id is stored.
func (s *Store) Exists(ctx context.Context, table string, id task.ID) (bool, error) {
	if table != "tasks" && table != "categories" {
		return false, errors.New("unknown table " + table)
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+table+` WHERE id = ?;`, id.String()).Scan(&n)
	return n > 0, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
