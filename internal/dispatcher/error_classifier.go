package dispatcher

import (
	"errors"

	"github.com/local/pagesampler/internal/domain"
)

// errorKind extends domain.Kind with the dispatcher's own failures.
func errorKind(err error) string {
	var panicErr *TaskPanicError
	if errors.As(err, &panicErr) {
		return "panic"
	}
	return domain.Kind(err)
}

// classify maps a finished document onto its terminal state. Any written
// image makes the document count as processed.
func classify(images, pageErrors int) domain.TaskState {
	switch {
	case images > 0 && pageErrors == 0:
		return domain.StateCompleted
	case images > 0:
		return domain.StatePartial
	default:
		return domain.StateFailed
	}
}

// documentResult is the metric label for a terminal state.
func documentResult(s domain.TaskState) string {
	switch s {
	case domain.StateCompleted:
		return "completed"
	case domain.StatePartial:
		return "partial"
	default:
		return "failed"
	}
}
