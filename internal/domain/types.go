package domain

import "time"

// TaskState is the lifecycle state of one document task.
type TaskState string

const (
	StatePending     TaskState = "pending"
	StateOpened      TaskState = "opened"
	StateSampled     TaskState = "sampled"
	StateRasterizing TaskState = "rasterizing"
	StateCompleted   TaskState = "completed"
	StatePartial     TaskState = "partially_completed"
	StateFailed      TaskState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s TaskState) Terminal() bool {
	return s == StateCompleted || s == StatePartial || s == StateFailed
}

// TaskResult is what a worker hands back to the aggregation loop for one document.
type TaskResult struct {
	Path       string
	Name       string
	State      TaskState
	Pages      int
	Selected   []int
	Images     int
	PageErrors int
	Err        error
	Duration   time.Duration
}

// Stats are the batch-wide counters. Only the dispatcher's aggregation loop writes them.
type Stats struct {
	Discovered int `json:"discovered"`
	Processed  int `json:"processed"`
	Partial    int `json:"partial"`
	Failed     int `json:"failed"`
	Images     int `json:"images"`
}

// Done is the number of documents that reached a terminal state.
func (s Stats) Done() int { return s.Processed + s.Failed }
