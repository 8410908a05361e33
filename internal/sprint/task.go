package sprint

import (
	"strings"
	"time"
)

// TestPlanMarker identifies QA test plan tasks by title. Such tasks are
// scheduled last within a story and may legitimately have no estimate.
const TestPlanMarker = "[QA] Test Plan"

// Task is the unit of schedulable work. Tasks are owned by their parent
// UserStory and mutated exclusively by the scheduling engine during a run.
type Task struct {
	ID             string
	Title          string
	Description    string
	WorkFront      WorkFront
	EstimatedHours float64
	Assignee       ExecutorID // empty means unassigned
	Dependencies   []string   // task IDs, references only
	StartDate      *time.Time
	EndDate        *time.Time
	// BoardEndDate is the coarsened end (12:00 or 17:00) pushed to the board.
	// It never feeds back into scheduling math.
	BoardEndDate *time.Time
	Status       Status
	UserStoryID  string
}

// IsTestPlan reports whether this is a QA test plan task.
func (t *Task) IsTestPlan() bool {
	return t.WorkFront == WorkFrontQA && strings.Contains(t.Title, TestPlanMarker)
}

// IsDevOps reports whether this task belongs to the operations front.
func (t *Task) IsDevOps() bool {
	return t.WorkFront == WorkFrontDevOps
}
