package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TodoStatus is the lifecycle of a todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoCancelled  TodoStatus = "cancelled"
)

// ErrTodoNotFound is returned for unknown todo ids.
var ErrTodoNotFound = errors.New("todo not found")

// ParseTodoStatus validates a status string.
func ParseTodoStatus(s string) (TodoStatus, error) {
	switch st := TodoStatus(s); st {
	case TodoPending, TodoInProgress, TodoCompleted, TodoCancelled:
		return st, nil
	}
	return "", fmt.Errorf("invalid todo status %q (valid: pending, in_progress, completed, cancelled)", s)
}

// TodoItem is one entry of the workspace todo list.
type TodoItem struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Status    TodoStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TodoStore persists the todo list the agent keeps for itself.
type TodoStore interface {
	Add(ctx context.Context, content string) (*TodoItem, error)
	List(ctx context.Context, status TodoStatus) ([]TodoItem, error)
	Update(ctx context.Context, id string, status TodoStatus) (*TodoItem, error)
	Delete(ctx context.Context, id string) (*TodoItem, error)
}

// FileTodoStore keeps todos in a single JSON file.
type FileTodoStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileTodoStore builds a store backed by path. The file is created on the
// first write.
func NewFileTodoStore(path string) (*FileTodoStore, error) {
	if path == "" {
		return nil, errors.New("todo store path required")
	}
	return &FileTodoStore{path: path}, nil
}

// Add appends a pending item.
func (s *FileTodoStore) Add(ctx context.Context, content string) (*TodoItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if content == "" {
		return nil, errors.New("todo content required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.read()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	item := TodoItem{
		ID:        uuid.NewString()[:8],
		Content:   content,
		Status:    TodoPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	items = append(items, item)
	if err := s.write(items); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns items in creation order, filtered by status when set.
func (s *FileTodoStore) List(ctx context.Context, status TodoStatus) ([]TodoItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, err := s.read()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	if status == "" {
		return items, nil
	}
	filtered := items[:0]
	for _, item := range items {
		if item.Status == status {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// Update changes an item's status.
func (s *FileTodoStore) Update(ctx context.Context, id string, status TodoStatus) (*TodoItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			items[i].Status = status
			items[i].UpdatedAt = time.Now().UTC()
			if err := s.write(items); err != nil {
				return nil, err
			}
			item := items[i]
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTodoNotFound, id)
}

// Delete removes an item and returns it.
func (s *FileTodoStore) Delete(ctx context.Context, id string) (*TodoItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			item := items[i]
			items = append(items[:i], items[i+1:]...)
			if err := s.write(items); err != nil {
				return nil, err
			}
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTodoNotFound, id)
}

func (s *FileTodoStore) read() ([]TodoItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var items []TodoItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return items, nil
}

func (s *FileTodoStore) write(items []TodoItem) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if items == nil {
		items = []TodoItem{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
