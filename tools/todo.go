package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexcodex/reagent/framework"
	"github.com/lexcodex/reagent/persistence"
)

var todoIcons = map[persistence.TodoStatus]string{
	persistence.TodoPending:    "⏳",
	persistence.TodoInProgress: "🔄",
	persistence.TodoCompleted:  "✅",
	persistence.TodoCancelled:  "❌",
}

// AddTodoTool appends to the workspace todo list.
type AddTodoTool struct {
	Store persistence.TodoStore
}

func (t *AddTodoTool) Name() string        { return "add_todo" }
func (t *AddTodoTool) Description() string { return "Adds an item to the todo list." }
func (t *AddTodoTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{{Name: "content", Type: "string", Description: "what needs doing", Required: true}}
}
func (t *AddTodoTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	content, err := framework.RequireString(params, "content")
	if err != nil {
		return "", err
	}
	item, err := t.Store.Add(ctx, strings.TrimSpace(content))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Todo added (ID: %s)", item.ID), nil
}

// ListTodosTool renders the todo list.
type ListTodosTool struct {
	Store persistence.TodoStore
}

func (t *ListTodosTool) Name() string        { return "list_todos" }
func (t *ListTodosTool) Description() string { return "Lists todo items, optionally filtered by status." }
func (t *ListTodosTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{{Name: "status", Type: "string", Description: "pending, in_progress, completed or cancelled"}}
}
func (t *ListTodosTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	var status persistence.TodoStatus
	if raw := framework.OptionalString(params, "status", ""); raw != "" {
		st, err := persistence.ParseTodoStatus(raw)
		if err != nil {
			return "", err
		}
		status = st
	}
	items, err := t.Store.List(ctx, status)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "No matching todo items.", nil
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s [%s] %s (%s)", todoIcons[item.Status], item.ID, item.Content, item.Status))
	}
	return strings.Join(lines, "\n"), nil
}

// UpdateTodoTool changes a todo's status.
type UpdateTodoTool struct {
	Store persistence.TodoStore
}

func (t *UpdateTodoTool) Name() string        { return "update_todo" }
func (t *UpdateTodoTool) Description() string { return "Sets the status of a todo item." }
func (t *UpdateTodoTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "todo_id", Type: "string", Description: "item id", Required: true},
		{Name: "status", Type: "string", Description: "pending, in_progress, completed or cancelled", Required: true},
	}
}
func (t *UpdateTodoTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	id, err := framework.RequireString(params, "todo_id")
	if err != nil {
		return "", err
	}
	raw, err := framework.RequireString(params, "status")
	if err != nil {
		return "", err
	}
	status, err := persistence.ParseTodoStatus(raw)
	if err != nil {
		return "", err
	}
	if _, err := t.Store.Update(ctx, id, status); err != nil {
		if errors.Is(err, persistence.ErrTodoNotFound) {
			return fmt.Sprintf("Todo %s does not exist.", id), nil
		}
		return "", err
	}
	return fmt.Sprintf("Todo %s is now %s", id, status), nil
}

// DeleteTodoTool removes a todo.
type DeleteTodoTool struct {
	Store persistence.TodoStore
}

func (t *DeleteTodoTool) Name() string        { return "delete_todo" }
func (t *DeleteTodoTool) Description() string { return "Deletes a todo item." }
func (t *DeleteTodoTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{{Name: "todo_id", Type: "string", Description: "item id", Required: true}}
}
func (t *DeleteTodoTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	id, err := framework.RequireString(params, "todo_id")
	if err != nil {
		return "", err
	}
	item, err := t.Store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrTodoNotFound) {
			return fmt.Sprintf("Todo %s does not exist.", id), nil
		}
		return "", err
	}
	return fmt.Sprintf("Todo %s (%s) deleted", id, item.Content), nil
}

// GetTodoStatsTool counts todo items per status.
type GetTodoStatsTool struct {
	Store persistence.TodoStore
}

func (t *GetTodoStatsTool) Name() string        { return "get_todo_stats" }
func (t *GetTodoStatsTool) Description() string { return "Counts todo items per status." }
func (t *GetTodoStatsTool) Parameters() []framework.ToolParameter {
	return nil
}
func (t *GetTodoStatsTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	items, err := t.Store.List(ctx, "")
	if err != nil {
		return "", err
	}
	counts := map[persistence.TodoStatus]int{}
	for _, item := range items {
		counts[item.Status]++
	}
	return fmt.Sprintf("total: %d, pending: %d, in_progress: %d, completed: %d, cancelled: %d",
		len(items), counts[persistence.TodoPending], counts[persistence.TodoInProgress],
		counts[persistence.TodoCompleted], counts[persistence.TodoCancelled]), nil
}
