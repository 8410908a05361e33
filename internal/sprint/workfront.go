package sprint

import "fmt"

// WorkFront partitions both tasks and executors. A task may only be assigned
// to an executor registered for its front.
type WorkFront string

const (
	WorkFrontBackend  WorkFront = "backend"
	WorkFrontFrontend WorkFront = "frontend"
	WorkFrontQA       WorkFront = "qa"
	WorkFrontDevOps   WorkFront = "devops"
)

// WorkFronts lists all fronts in a fixed order.
var WorkFronts = []WorkFront{WorkFrontBackend, WorkFrontFrontend, WorkFrontQA, WorkFrontDevOps}

func ParseWorkFront(s string) (WorkFront, error) {
	switch WorkFront(s) {
	case WorkFrontBackend, WorkFrontFrontend, WorkFrontQA, WorkFrontDevOps:
		return WorkFront(s), nil
	}
	return "", fmt.Errorf("unknown work front: %q", s)
}

// Status is the lifecycle state of a task. Closed and cancelled are set by the
// upstream board and never altered by the scheduler.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusBlocked   Status = "blocked"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is one the scheduler must not touch.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}
