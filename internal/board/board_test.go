package board

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewerton255/sprint-task-scheduler/internal/schedule"
	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

const snapshotYAML = `
user_stories:
  - id: US1
    title: Checkout
    tasks:
      - id: T1
        title: Create checkout endpoint
        work_front: backend
        estimated_hours: 4
      - id: T2
        title: Checkout page
        work_front: frontend
        estimated_hours: 6
        assignee: Bob@Example.com
        dependencies: [T1]
      - id: T3
        title: Old flow cleanup
        work_front: backend
        estimated_hours: 2
        status: closed
`

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testMeta() SprintMeta {
	start := time.Date(2025, time.March, 3, 0, 0, 0, 0, schedule.Location)
	return SprintMeta{
		Name:      "2025-S1",
		Team:      "platform",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 11),
	}
}

func TestSnapshot_Load(t *testing.T) {
	src := NewSnapshot(writeSnapshot(t, snapshotYAML), testMeta())

	sp, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2025-S1", sp.Name)
	assert.Equal(t, "platform", sp.Team)
	require.Len(t, sp.UserStories, 1)
	require.Len(t, sp.UserStories[0].Tasks, 3)

	t1, ok := sp.TaskByID("T1")
	require.True(t, ok)
	assert.Equal(t, sprint.WorkFrontBackend, t1.WorkFront)
	assert.Equal(t, sprint.StatusPending, t1.Status)
	assert.Equal(t, "US1", t1.UserStoryID)

	t2, ok := sp.TaskByID("T2")
	require.True(t, ok)
	// Assignees are canonicalized on load.
	assert.Equal(t, sprint.NewExecutorID("bob@example.com"), t2.Assignee)
	assert.Equal(t, []string{"T1"}, t2.Dependencies)

	t3, ok := sp.TaskByID("T3")
	require.True(t, ok)
	assert.Equal(t, sprint.StatusClosed, t3.Status)
}

func TestSnapshot_LoadRejectsUnknownFront(t *testing.T) {
	bad := `
user_stories:
  - id: US1
    tasks:
      - id: T1
        work_front: design
`
	src := NewSnapshot(writeSnapshot(t, bad), testMeta())

	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown work front")
}

func TestSnapshot_LoadRejectsEmptyBoard(t *testing.T) {
	src := NewSnapshot(writeSnapshot(t, "user_stories: []\n"), testMeta())

	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no user stories")
}

func TestSnapshot_LoadMissingFile(t *testing.T) {
	src := NewSnapshot(filepath.Join(t.TempDir(), "nope.yaml"), testMeta())

	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestApplyDependencies(t *testing.T) {
	src := NewSnapshot(writeSnapshot(t, snapshotYAML), testMeta())
	sp, err := src.Load(context.Background())
	require.NoError(t, err)

	ApplyDependencies(sp, map[string][]string{
		"T1":   {"T3"},
		"GONE": {"T1"}, // unknown task IDs are ignored
	})

	t1, _ := sp.TaskByID("T1")
	assert.Equal(t, []string{"T3"}, t1.Dependencies)
}
