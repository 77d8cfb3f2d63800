package dispatcher

import "fmt"

// TaskPanicError records a panic recovered inside one document task.
type TaskPanicError struct {
	Path  string
	Value any
	Stack []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task panic: %s: %v", e.Path, e.Value)
}
