package schedule

import (
	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

// selectExecutor picks someone from the task's work-front pool. Continuity
// comes first: if the story already has a task on the same front with a live
// assignee, that person is tried before anyone else. Otherwise candidates
// are shuffled with the run's seeded source and the first one that has both
// the hours and a feasible placement wins. Assignment attempts mutate
// task.Assignee transiently; on failure it is cleared again.
func (s *Scheduler) selectExecutor(task *sprint.Task) sprint.ExecutorID {
	pool := s.pools[task.WorkFront]
	if len(pool) == 0 {
		s.logger.Warn("no executors registered for work front", "front", task.WorkFront, "task", task.ID)
		return ""
	}

	if us, ok := s.sprint.UserStoryByID(task.UserStoryID); ok {
		if id := s.continuityCandidate(task, us); id != "" {
			if s.ledger.Remaining(id) >= task.EstimatedHours {
				task.Assignee = id
				if s.trialPlace(task) {
					s.logger.Info("executor kept for story continuity", "task", task.ID, "executor", id)
					return id
				}
				task.Assignee = ""
			}
		}
	}

	candidates := make([]sprint.Executor, len(pool))
	copy(candidates, pool)
	s.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	for _, cand := range candidates {
		id := cand.ID()
		if s.ledger.Remaining(id) < task.EstimatedHours {
			continue
		}
		task.Assignee = id
		if s.trialPlace(task) {
			return id
		}
		task.Assignee = ""
	}
	return ""
}

// continuityCandidate returns the assignee of the story's first live,
// already-assigned task on the same front, or "" when there is none.
func (s *Scheduler) continuityCandidate(task *sprint.Task, us *sprint.UserStory) sprint.ExecutorID {
	for _, t := range us.Tasks {
		if t.ID == task.ID || t.WorkFront != task.WorkFront || t.Status.Terminal() || t.Assignee == "" {
			continue
		}
		return t.Assignee
	}
	return ""
}
