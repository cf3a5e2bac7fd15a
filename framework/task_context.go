package framework

import "context"

type taskContextKey struct{}

// TaskContext travels with the loop's context so model wrappers and tools can
// tag their output with the task they serve.
type TaskContext struct {
	ID          string
	Instruction string
}

// WithTaskContext attaches task metadata to ctx.
func WithTaskContext(ctx context.Context, task TaskContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, taskContextKey{}, task)
}

// TaskContextFrom extracts task metadata, if present.
func TaskContextFrom(ctx context.Context) (TaskContext, bool) {
	if ctx == nil {
		return TaskContext{}, false
	}
	task, ok := ctx.Value(taskContextKey{}).(TaskContext)
	return task, ok
}
