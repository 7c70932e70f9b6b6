// Package api talks to the task REST service. Every failure is returned as a
// *task.Error so callers can branch on task.ErrTransport, task.ErrNotFound
// and task.ErrValidation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"taskboard/internal/logging"
	"taskboard/internal/task"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
	breaker *gobreaker.CircuitBreaker
	newID   func() string
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithIDGenerator replaces the UUID generator used for client-assigned ids.
func WithIDGenerator(gen func() string) Option {
	return func(c *Client) { c.newID = gen }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithBreaker trips after the given number of consecutive transport
// failures and rejects calls for cooldown before probing again. Zero
// failures leaves the breaker off.
func WithBreaker(failures int, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures <= 0 {
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "task-service",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(failures)
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !errors.Is(err, task.ErrTransport)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
					Warn("circuit breaker state changed")
			},
		})
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{},
		log:     logging.Discard(),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListTasks(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.do(ctx, request{op: "list tasks", method: http.MethodGet, path: "/tasks", out: &tasks}); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// CreateTask fills in id, createdAt and completed before sending the draft
// and returns the task as the backend stored it.
func (c *Client) CreateTask(ctx context.Context, d task.Draft) (task.Task, error) {
	if err := d.Validate(); err != nil {
		return task.Task{}, err
	}
	t := task.Task{
		ID:          d.ID,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Category:    d.Category,
		Priority:    d.Priority,
		Completed:   false,
		CreatedAt:   d.CreatedAt,
	}
	if t.ID.Empty() {
		t.ID = task.ID(c.newID())
	}
	if strings.TrimSpace(t.CreatedAt) == "" {
		t.CreatedAt = task.Timestamp(c.now())
	}

	var created task.Task
	if err := c.do(ctx, request{op: "create task", method: http.MethodPost, path: "/tasks", body: t, out: &created}); err != nil {
		return task.Task{}, err
	}
	if created.ID.Empty() {
		created.ID = t.ID
	}
	return created, nil
}

func (c *Client) UpdateTask(ctx context.Context, id task.ID, p task.Patch) (task.Task, error) {
	if err := p.Validate(); err != nil {
		return task.Task{}, err
	}
	var updated task.Task
	err := c.do(ctx, request{
		op:     "update task",
		method: http.MethodPatch,
		path:   "/tasks/" + url.PathEscape(id.String()),
		id:     id,
		body:   p,
		out:    &updated,
	})
	if err != nil {
		return task.Task{}, err
	}
	if updated.ID.Empty() {
		updated.ID = id
	}
	return updated, nil
}

// DeleteTask returns the id it removed; the response body is ignored.
func (c *Client) DeleteTask(ctx context.Context, id task.ID) (task.ID, error) {
	err := c.do(ctx, request{
		op:     "delete task",
		method: http.MethodDelete,
		path:   "/tasks/" + url.PathEscape(id.String()),
		id:     id,
	})
	if err != nil {
		return "", err
	}
	return task.ID(id.String()), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]task.Category, error) {
	var cats []task.Category
	if err := c.do(ctx, request{op: "list categories", method: http.MethodGet, path: "/categories", out: &cats}); err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []task.Category{}
	}
	return cats, nil
}

func (c *Client) CreateCategory(ctx context.Context, cat task.Category) (task.Category, error) {
	cat.Name = strings.TrimSpace(cat.Name)
	if cat.Name == "" {
		return task.Category{}, task.Validationf("create category", "name is required")
	}
	if cat.ID.Empty() {
		cat.ID = task.ID(c.newID())
	}
	var created task.Category
	if err := c.do(ctx, request{op: "create category", method: http.MethodPost, path: "/categories", body: cat, out: &created}); err != nil {
		return task.Category{}, err
	}
	if created.ID.Empty() {
		created.ID = cat.ID
	}
	if created.Name == "" {
		created.Name = cat.Name
	}
	return created, nil
}

type request struct {
	op     string
	method string
	path   string
	// id is set for single-task endpoints, where a 404 means the task is gone
	// rather than the service being misconfigured.
	id   task.ID
	body any
	out  any
}

func (c *Client) do(ctx context.Context, r request) error {
	entry := c.log.WithFields(logrus.Fields{"op": r.op, "method": r.method, "path": r.path})
	start := time.Now()

	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(func() (interface{}, error) {
			return nil, c.roundTrip(ctx, r)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = task.Transport(r.op, 0, err)
		}
	} else {
		err = c.roundTrip(ctx, r)
	}

	entry = entry.WithField("elapsed", time.Since(start).Round(time.Millisecond))
	if err != nil {
		entry.WithError(err).Warn("API request failed")
		return err
	}
	entry.Debug("API request done")
	return nil
}

func (c *Client) roundTrip(ctx context.Context, r request) error {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return task.Transport(r.op, 0, fmt.Errorf("encode body: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return task.Transport(r.op, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return task.Transport(r.op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && !r.id.Empty() {
		io.Copy(io.Discard, resp.Body)
		return task.NotFound(r.op, r.id)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return task.Transportf(r.op, resp.StatusCode, "%s", strings.TrimSpace(string(msg)))
	}

	if r.out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		return task.Transport(r.op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
