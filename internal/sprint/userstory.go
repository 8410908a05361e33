package sprint

import "time"

// UserStory groups tasks. Assignee, date span and story points are derived
// from the scheduled children after each scheduling pass.
type UserStory struct {
	ID          string
	Title       string
	Description string
	Tasks       []*Task
	Assignee    ExecutorID
	StartDate   *time.Time
	EndDate     *time.Time
	StoryPoints float64
}

// TasksByWorkFront returns the story's tasks on the given front.
func (us *UserStory) TasksByWorkFront(front WorkFront) []*Task {
	var tasks []*Task
	for _, t := range us.Tasks {
		if t.WorkFront == front {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// ScheduledTasks returns the story's tasks that have been scheduled.
func (us *UserStory) ScheduledTasks() []*Task {
	var tasks []*Task
	for _, t := range us.Tasks {
		if t.Status == StatusScheduled {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// StoryPointsFromHours converts summed estimated hours into story points
// using the fixed Fibonacci-like step table.
func StoryPointsFromHours(hours float64) float64 {
	switch {
	case hours <= 1:
		return 0.5
	case hours <= 2:
		return 1
	case hours <= 3:
		return 2
	case hours <= 5:
		return 3
	case hours <= 9:
		return 5
	case hours <= 14:
		return 8
	case hours <= 23:
		return 13
	case hours <= 37:
		return 21
	case hours <= 60:
		return 34
	default:
		return 55
	}
}
