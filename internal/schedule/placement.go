package schedule

import (
	"errors"
	"time"

	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

// ErrExceedsSprintEnd is returned by place when consuming the task's estimate
// would push work past the sprint's end date. The boundary is hard: the item
// is left unscheduled, never partially placed.
var ErrExceedsSprintEnd = errors.New("task exceeds sprint end date")

// earliestStart is the later of the executor-availability bound and the
// dependency bound. Returns nil when the task has no assignee.
func (s *Scheduler) earliestStart(task *sprint.Task) *time.Time {
	if task.Assignee == "" {
		s.logger.Error("task has no executor when computing start date", "task", task.ID)
		return nil
	}
	execDate := s.executorEarliest(task)
	depDate := s.dependencyEarliest(task)
	if execDate != nil && depDate != nil {
		if depDate.After(*execDate) {
			return depDate
		}
		return execDate
	}
	if execDate != nil {
		return execDate
	}
	return depDate
}

// executorEarliest derives the earliest start from the assignee's latest
// scheduled task. An end exactly on a block boundary rolls to the next
// block's opening (12:00 -> 14:00 same day, 17:00 -> 09:00 next day); an end
// inside a block resumes at the exact instant. Without prior tasks, the
// first working day of the sprint at 09:00.
func (s *Scheduler) executorEarliest(task *sprint.Task) *time.Time {
	var latest *sprint.Task
	for _, t := range s.sprint.TasksByAssignee(task.Assignee) {
		if t.Status != sprint.StatusScheduled || t.EndDate == nil || t.ID == task.ID {
			continue
		}
		if latest == nil || t.EndDate.After(*latest.EndDate) {
			latest = t
		}
	}
	if latest != nil {
		end := Normalize(*latest.EndDate)
		sec := secondsOfDay(end)
		switch {
		case sec == morningEndHour*3600:
			return timePtr(at(end, afternoonStartHour))
		case sec == afternoonEndHour*3600:
			return timePtr(at(end.AddDate(0, 0, 1), morningStartHour))
		case sec < afternoonEndHour*3600:
			return &end
		default:
			return timePtr(at(end.AddDate(0, 0, 1), morningStartHour))
		}
	}

	cur := Normalize(s.sprint.StartDate)
	for !s.cal.IsWorkingMoment(cur, task.Assignee) {
		cur = cur.AddDate(0, 0, 1)
	}
	return timePtr(at(cur, morningStartHour))
}

// place walks forward from start consuming the task's estimated hours
// against the half-day blocks available to the assignee, skipping weekends
// and day offs. Within a block the available hours are whatever remains to
// the block's close. Returns the exact end instant, clipped to the block
// close if the arithmetic would overshoot.
func (s *Scheduler) place(task *sprint.Task, start time.Time) (time.Time, error) {
	cur := Normalize(start)
	remaining := task.EstimatedHours

	for remaining > 0 {
		if dateAfter(cur, s.sprint.EndDate) {
			s.logger.Error("task exceeds sprint end date", "task", task.ID, "sprint_end", s.sprint.EndDate)
			return time.Time{}, ErrExceedsSprintEnd
		}

		sec := secondsOfDay(cur)
		var periodEndHour int
		switch {
		case sec < morningStartHour*3600:
			cur = at(cur, morningStartHour)
			if !s.cal.IsWorkingMoment(cur, task.Assignee) {
				cur = at(cur, afternoonStartHour)
				if !s.cal.IsWorkingMoment(cur, task.Assignee) {
					cur = at(cur.AddDate(0, 0, 1), morningStartHour)
					continue
				}
			}
			periodEndHour = blockEndHour(cur)
		case sec < morningEndHour*3600:
			if !s.cal.IsWorkingMoment(cur, task.Assignee) {
				cur = at(cur, afternoonStartHour)
				if !s.cal.IsWorkingMoment(cur, task.Assignee) {
					cur = at(cur.AddDate(0, 0, 1), morningStartHour)
					continue
				}
			}
			periodEndHour = blockEndHour(cur)
		case sec < afternoonStartHour*3600:
			// 12:00-14:00 gap: jump to the afternoon block
			cur = at(cur, afternoonStartHour)
			if !s.cal.IsWorkingMoment(cur, task.Assignee) {
				cur = at(cur.AddDate(0, 0, 1), morningStartHour)
				continue
			}
			periodEndHour = afternoonEndHour
		case sec < afternoonEndHour*3600:
			if !s.cal.IsWorkingMoment(cur, task.Assignee) {
				cur = at(cur.AddDate(0, 0, 1), morningStartHour)
				continue
			}
			periodEndHour = afternoonEndHour
		default:
			cur = at(cur.AddDate(0, 0, 1), morningStartHour)
			continue
		}

		periodEnd := at(cur, periodEndHour)
		hoursLeft := periodEnd.Sub(cur).Hours()

		if remaining <= hoursLeft {
			end := cur.Add(time.Duration(remaining * float64(time.Hour)))
			if end.After(periodEnd) {
				end = periodEnd
			}
			if dateAfter(end, s.sprint.EndDate) {
				s.logger.Error("task exceeds sprint end date", "task", task.ID, "sprint_end", s.sprint.EndDate)
				return time.Time{}, ErrExceedsSprintEnd
			}
			return end, nil
		}

		remaining -= hoursLeft
		if periodEndHour == morningEndHour {
			cur = at(cur, afternoonStartHour)
		} else {
			cur = at(cur.AddDate(0, 0, 1), morningStartHour)
		}
	}

	// Zero-hour estimates end where they start.
	return cur, nil
}

// trialPlace checks that a start and end exist for the task without
// committing anything.
func (s *Scheduler) trialPlace(task *sprint.Task) bool {
	start := s.earliestStart(task)
	if start == nil {
		return false
	}
	_, err := s.place(task, *start)
	return err == nil
}

// blockEndHour picks the close of the block cur sits in.
func blockEndHour(cur time.Time) int {
	if secondsOfDay(cur) >= afternoonStartHour*3600 {
		return afternoonEndHour
	}
	return morningEndHour
}

func timePtr(t time.Time) *time.Time {
	return &t
}
