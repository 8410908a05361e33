package schedule

import (
	"time"

	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

// dependenciesScheduled reports whether every dependency of the task is
// already scheduled. A dangling dependency ID is logged as an error and
// treated as unsatisfied for this pass; later passes will retry it like any
// other unsatisfied dependency.
func (s *Scheduler) dependenciesScheduled(task *sprint.Task) bool {
	if len(task.Dependencies) == 0 {
		return true
	}
	for _, depID := range task.Dependencies {
		dep, ok := s.sprint.TaskByID(depID)
		if !ok {
			s.logger.Error("dependency not found", "task", task.ID, "dependency", depID)
			return false
		}
		if dep.Status != sprint.StatusScheduled {
			return false
		}
	}
	return true
}

// dependencyEarliest returns the latest end instant among the task's
// resolvable dependencies, or nil when none of them has an end yet.
func (s *Scheduler) dependencyEarliest(task *sprint.Task) *time.Time {
	var latest *time.Time
	for _, depID := range task.Dependencies {
		dep, ok := s.sprint.TaskByID(depID)
		if !ok || dep.EndDate == nil {
			continue
		}
		end := Normalize(*dep.EndDate)
		if latest == nil || end.After(*latest) {
			latest = &end
		}
	}
	return latest
}
