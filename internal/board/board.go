// Package board loads the sprint backlog the scheduler works on. The
// production tracker integration is out of scope; a YAML snapshot of the
// board stands in for it behind the Source interface.
package board

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

// Source produces the sprint to be scheduled.
type Source interface {
	Load(ctx context.Context) (*sprint.Sprint, error)
}

// SprintMeta is the sprint window the snapshot's items are loaded into.
type SprintMeta struct {
	Name      string
	Team      string
	StartDate time.Time
	EndDate   time.Time
}

// Snapshot reads a board export from a YAML file.
type Snapshot struct {
	path string
	meta SprintMeta
}

func NewSnapshot(path string, meta SprintMeta) *Snapshot {
	return &Snapshot{path: path, meta: meta}
}

type snapshotFile struct {
	UserStories []struct {
		ID          string `yaml:"id"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Tasks       []struct {
			ID             string   `yaml:"id"`
			Title          string   `yaml:"title"`
			Description    string   `yaml:"description"`
			WorkFront      string   `yaml:"work_front"`
			EstimatedHours float64  `yaml:"estimated_hours"`
			Assignee       string   `yaml:"assignee"`
			Status         string   `yaml:"status"`
			Dependencies   []string `yaml:"dependencies"`
		} `yaml:"tasks"`
	} `yaml:"user_stories"`
}

// Load parses the snapshot into sprint entities. Task status defaults to
// pending; closed and cancelled pass through untouched so the scheduler can
// skip them.
func (s *Snapshot) Load(ctx context.Context) (*sprint.Sprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board snapshot %s: %w", s.path, err)
	}
	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse board snapshot %s: %w", s.path, err)
	}
	if len(file.UserStories) == 0 {
		return nil, fmt.Errorf("board snapshot %s has no user stories", s.path)
	}

	sp := sprint.New(s.meta.Name, s.meta.StartDate, s.meta.EndDate, s.meta.Team)
	for _, rawUS := range file.UserStories {
		if rawUS.ID == "" {
			return nil, fmt.Errorf("user story without id in %s", s.path)
		}
		us := &sprint.UserStory{
			ID:          rawUS.ID,
			Title:       rawUS.Title,
			Description: rawUS.Description,
		}
		for _, rawTask := range rawUS.Tasks {
			if rawTask.ID == "" {
				return nil, fmt.Errorf("task without id in user story %s", rawUS.ID)
			}
			front, err := sprint.ParseWorkFront(rawTask.WorkFront)
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", rawTask.ID, err)
			}
			status := sprint.StatusPending
			if rawTask.Status != "" {
				status, err = parseStatus(rawTask.Status)
				if err != nil {
					return nil, fmt.Errorf("task %s: %w", rawTask.ID, err)
				}
			}
			task := &sprint.Task{
				ID:             rawTask.ID,
				Title:          rawTask.Title,
				Description:    rawTask.Description,
				WorkFront:      front,
				EstimatedHours: rawTask.EstimatedHours,
				Dependencies:   rawTask.Dependencies,
				Status:         status,
			}
			if rawTask.Assignee != "" {
				task.Assignee = sprint.NewExecutorID(rawTask.Assignee)
			}
			us.Tasks = append(us.Tasks, task)
		}
		sp.AddUserStory(us)
	}
	return sp, nil
}

func parseStatus(s string) (sprint.Status, error) {
	switch sprint.Status(s) {
	case sprint.StatusPending, sprint.StatusScheduled, sprint.StatusBlocked,
		sprint.StatusClosed, sprint.StatusCancelled:
		return sprint.Status(s), nil
	}
	return "", fmt.Errorf("unknown task status: %q", s)
}

// ApplyDependencies overlays the dependency config onto loaded tasks. IDs
// that do not resolve to a task are ignored, matching the tracker behavior
// of stale config entries.
func ApplyDependencies(sp *sprint.Sprint, deps map[string][]string) {
	for taskID, depIDs := range deps {
		if t, ok := sp.TaskByID(taskID); ok {
			t.Dependencies = depIDs
		}
	}
}
