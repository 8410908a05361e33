package sprint

import "time"

// Sprint is the scheduling window plus everything being scheduled into it.
// StartDate and EndDate form a closed interval: no task may end after the
// sprint's end date.
type Sprint struct {
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	Team        string
	UserStories []*UserStory
	Metrics     *Metrics

	taskIndex  map[string]*Task
	storyIndex map[string]*UserStory
}

// New creates an empty Sprint for the given window.
func New(name string, start, end time.Time, team string) *Sprint {
	return &Sprint{
		Name:       name,
		StartDate:  start,
		EndDate:    end,
		Team:       team,
		Metrics:    NewMetrics(),
		taskIndex:  make(map[string]*Task),
		storyIndex: make(map[string]*UserStory),
	}
}

// AddUserStory appends a story and indexes it and its tasks by ID.
func (s *Sprint) AddUserStory(us *UserStory) {
	s.UserStories = append(s.UserStories, us)
	s.storyIndex[us.ID] = us
	for _, t := range us.Tasks {
		t.UserStoryID = us.ID
		s.taskIndex[t.ID] = t
	}
}

// TaskByID resolves a task ID anywhere in the sprint.
func (s *Sprint) TaskByID(id string) (*Task, bool) {
	t, ok := s.taskIndex[id]
	return t, ok
}

// UserStoryByID resolves a story ID.
func (s *Sprint) UserStoryByID(id string) (*UserStory, bool) {
	us, ok := s.storyIndex[id]
	return us, ok
}

// AllTasks returns every task in story order.
func (s *Sprint) AllTasks() []*Task {
	var tasks []*Task
	for _, us := range s.UserStories {
		tasks = append(tasks, us.Tasks...)
	}
	return tasks
}

// TasksByAssignee returns every task assigned to the given executor.
// Matching is case-insensitive because ExecutorID is canonical.
func (s *Sprint) TasksByAssignee(id ExecutorID) []*Task {
	var tasks []*Task
	for _, us := range s.UserStories {
		for _, t := range us.Tasks {
			if t.Assignee != "" && t.Assignee == id {
				tasks = append(tasks, t)
			}
		}
	}
	return tasks
}
