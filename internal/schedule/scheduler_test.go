package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

func allPools() map[sprint.WorkFront][]sprint.Executor {
	return map[sprint.WorkFront][]sprint.Executor{
		sprint.WorkFrontBackend:  {alice},
		sprint.WorkFrontFrontend: {bob},
		sprint.WorkFrontQA:       {carol},
		sprint.WorkFrontDevOps:   {dave},
	}
}

func TestScheduler_SchedulesRegularTask(t *testing.T) {
	sp := weekSprint()
	task := &sprint.Task{
		ID:             "T1",
		Title:          "Implement login endpoint",
		WorkFront:      sprint.WorkFrontBackend,
		EstimatedHours: 4,
		Status:         sprint.StatusPending,
	}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Title: "Login", Tasks: []*sprint.Task{task}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	require.Equal(t, sprint.StatusScheduled, task.Status)
	assert.Equal(t, alice.ID(), task.Assignee)
	require.NotNil(t, task.StartDate)
	require.NotNil(t, task.EndDate)
	require.NotNil(t, task.BoardEndDate)
	assert.True(t, task.StartDate.Equal(d(3, 9, 0)), "start %v", task.StartDate)
	assert.True(t, task.EndDate.Equal(d(3, 15, 0)), "end %v", task.EndDate)
	assert.True(t, task.BoardEndDate.Equal(d(3, 17, 0)), "board end %v", task.BoardEndDate)

	// 5 working days * 8h - no day offs = 40h total, 4h used.
	assert.Equal(t, 40.0, sp.Metrics.TotalCapacity[alice.ID()])
	assert.Equal(t, 4.0, sp.Metrics.UsedCapacity[alice.ID()])
	assert.Equal(t, 36.0, sp.Metrics.AvailableCapacity[alice.ID()])
}

func TestScheduler_CapacityAccountsDayOffs(t *testing.T) {
	sp := weekSprint()
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{}})
	dayOffs := map[sprint.ExecutorID][]sprint.DayOff{
		alice.ID(): {
			{Date: d(4, 0, 0), Period: sprint.DayOffFull},
			{Date: d(5, 0, 0), Period: sprint.DayOffMorning},
		},
	}

	newTestScheduler(t, sp, allPools(), dayOffs).Run()

	// 40h minus fixed 6h full + 3h half day off costs.
	assert.Equal(t, 31.0, sp.Metrics.TotalCapacity[alice.ID()])
}

func TestScheduler_DependencyOrdering(t *testing.T) {
	sp := weekSprint()
	taskA := &sprint.Task{ID: "A", Title: "Schema migration", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 3, Status: sprint.StatusPending}
	taskB := &sprint.Task{ID: "B", Title: "Repository layer", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 2, Status: sprint.StatusPending, Dependencies: []string{"A"}}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{taskB, taskA}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	require.Equal(t, sprint.StatusScheduled, taskA.Status)
	require.Equal(t, sprint.StatusScheduled, taskB.Status)
	// A fills the Monday morning block; B starts after the lunch gap.
	assert.True(t, taskA.EndDate.Equal(d(3, 12, 0)), "A end %v", taskA.EndDate)
	assert.True(t, taskB.StartDate.Equal(d(3, 14, 0)), "B start %v", taskB.StartDate)
	assert.True(t, taskB.EndDate.Equal(d(3, 16, 0)), "B end %v", taskB.EndDate)
}

func TestScheduler_CrossStoryDependencyRetry(t *testing.T) {
	sp := weekSprint()
	taskX := &sprint.Task{ID: "X", Title: "Consume profile API", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 2, Status: sprint.StatusPending, Dependencies: []string{"Y"}}
	taskY := &sprint.Task{ID: "Y", Title: "Expose profile API", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 3, Status: sprint.StatusPending}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{taskX}})
	sp.AddUserStory(&sprint.UserStory{ID: "US2", Tasks: []*sprint.Task{taskY}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	// X cannot be placed during US1's pass; the sprint-wide retry picks it up
	// once Y lands.
	require.Equal(t, sprint.StatusScheduled, taskX.Status)
	require.Equal(t, sprint.StatusScheduled, taskY.Status)
	assert.False(t, taskX.StartDate.Before(*taskY.EndDate))

	var reasons []string
	for _, u := range sp.Metrics.Unscheduled {
		if u.TaskID == "X" {
			reasons = append(reasons, u.Reason)
		}
	}
	assert.Contains(t, reasons, ReasonAwaitingDependencies)
}

func TestScheduler_QAAfterNamedFront(t *testing.T) {
	sp := weekSprint()
	backend := &sprint.Task{ID: "B1", Title: "Create checkout endpoint", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 3, Status: sprint.StatusPending}
	qa := &sprint.Task{ID: "Q1", Title: "Validate backend checkout flow", WorkFront: sprint.WorkFrontQA, EstimatedHours: 2, Status: sprint.StatusPending}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{backend, qa}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	require.Equal(t, sprint.StatusScheduled, qa.Status)
	assert.Equal(t, carol.ID(), qa.Assignee)
	// QA starts where the backend work ends; placement then walks into the
	// afternoon block.
	assert.True(t, qa.StartDate.Equal(d(3, 12, 0)), "start %v", qa.StartDate)
	assert.True(t, qa.EndDate.Equal(d(3, 16, 0)), "end %v", qa.EndDate)
}

func TestScheduler_DevOpsAfterBackend(t *testing.T) {
	sp := weekSprint()
	backend := &sprint.Task{ID: "B1", Title: "Order service", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 3, Status: sprint.StatusPending}
	devops := &sprint.Task{ID: "D1", Title: "Deploy order service", WorkFront: sprint.WorkFrontDevOps, EstimatedHours: 1, Status: sprint.StatusPending}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{backend, devops}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	require.Equal(t, sprint.StatusScheduled, devops.Status)
	assert.True(t, devops.StartDate.Equal(d(3, 12, 0)), "start %v", devops.StartDate)
	assert.True(t, devops.EndDate.Equal(d(3, 15, 0)), "end %v", devops.EndDate)
}

func TestScheduler_DevOpsFrontendFallback(t *testing.T) {
	sp := weekSprint()
	backend := &sprint.Task{ID: "B1", Title: "Order service", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 3, Status: sprint.StatusPending}
	frontend := &sprint.Task{ID: "F1", Title: "Order page", WorkFront: sprint.WorkFrontFrontend, EstimatedHours: 6, Status: sprint.StatusPending}
	devops := &sprint.Task{ID: "D1", Title: "Deploy order page", WorkFront: sprint.WorkFrontDevOps, EstimatedHours: 1, Status: sprint.StatusPending}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{backend, frontend, devops}})
	pools := allPools()
	pools[sprint.WorkFrontBackend] = nil // the backend task cannot be placed

	newTestScheduler(t, sp, pools, nil).Run()

	require.Equal(t, sprint.StatusScheduled, frontend.Status)
	require.Equal(t, sprint.StatusScheduled, devops.Status)
	// With no scheduled backend end, deployment follows the frontend work even
	// though an (unscheduled) backend task exists in the story.
	assert.True(t, devops.StartDate.Equal(*frontend.EndDate),
		"devops start %v, frontend end %v", devops.StartDate, frontend.EndDate)
}

func TestScheduler_TestPlanZeroEstimate(t *testing.T) {
	sp := weekSprint()
	plan := &sprint.Task{ID: "P1", Title: "[QA] Test Plan - checkout", WorkFront: sprint.WorkFrontQA, EstimatedHours: 0, Status: sprint.StatusPending}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{plan}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	require.Equal(t, sprint.StatusScheduled, plan.Status)
	assert.Nil(t, plan.StartDate)
	assert.Nil(t, plan.EndDate)
	assert.Nil(t, plan.BoardEndDate)
	assert.Equal(t, 0.0, sp.Metrics.UsedCapacity[carol.ID()])
}

func TestScheduler_TestPlanAfterOtherQA(t *testing.T) {
	sp := weekSprint()
	qa := &sprint.Task{ID: "Q1", Title: "Regression suite", WorkFront: sprint.WorkFrontQA, EstimatedHours: 3, Status: sprint.StatusPending}
	plan := &sprint.Task{ID: "P1", Title: "[QA] Test Plan - regression", WorkFront: sprint.WorkFrontQA, EstimatedHours: 1, Status: sprint.StatusPending}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{plan, qa}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	require.Equal(t, sprint.StatusScheduled, qa.Status)
	require.Equal(t, sprint.StatusScheduled, plan.Status)
	assert.True(t, plan.StartDate.Equal(*qa.EndDate), "plan start %v, qa end %v", plan.StartDate, qa.EndDate)
}

func TestScheduler_InsufficientCapacity(t *testing.T) {
	sp := weekSprint()
	task := &sprint.Task{ID: "T1", Title: "Rewrite everything", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 100, Assignee: alice.ID(), Status: sprint.StatusPending}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{task}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	assert.NotEqual(t, sprint.StatusScheduled, task.Status)
	require.Len(t, sp.Metrics.Unscheduled, 1)
	assert.Equal(t, ReasonInsufficientCapacity, sp.Metrics.Unscheduled[0].Reason)
}

func TestScheduler_NoExecutorForFront(t *testing.T) {
	sp := weekSprint()
	task := &sprint.Task{ID: "T1", Title: "Render dashboard", WorkFront: sprint.WorkFrontFrontend, EstimatedHours: 2, Status: sprint.StatusPending}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{task}})
	pools := allPools()
	pools[sprint.WorkFrontFrontend] = nil

	newTestScheduler(t, sp, pools, nil).Run()

	assert.Equal(t, sprint.StatusPending, task.Status)
	require.NotEmpty(t, sp.Metrics.Unscheduled)
	assert.Equal(t, ReasonNoExecutor, sp.Metrics.Unscheduled[0].Reason)
}

func TestScheduler_ExceedsSprintEndReason(t *testing.T) {
	sp := weekSprint()
	// 40h fits the capacity ledger but not the 30 working hours of the week.
	task := &sprint.Task{ID: "T1", Title: "Giant refactor", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 40, Assignee: alice.ID(), Status: sprint.StatusPending}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{task}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	assert.NotEqual(t, sprint.StatusScheduled, task.Status)
	require.NotEmpty(t, sp.Metrics.Unscheduled)
	assert.Equal(t, ReasonExceedsSprintEnd, sp.Metrics.Unscheduled[0].Reason)
}

func TestScheduler_TerminalTasksUntouched(t *testing.T) {
	sp := weekSprint()
	closed := &sprint.Task{ID: "T1", Title: "Already done", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 4, Status: sprint.StatusClosed}
	cancelled := &sprint.Task{ID: "T2", Title: "Dropped", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 4, Status: sprint.StatusCancelled}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{closed, cancelled}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	assert.Equal(t, sprint.StatusClosed, closed.Status)
	assert.Equal(t, sprint.StatusCancelled, cancelled.Status)
	assert.Nil(t, closed.StartDate)
	assert.Nil(t, cancelled.StartDate)
	assert.Equal(t, 0.0, sp.Metrics.UsedCapacity[alice.ID()])
}

func TestScheduler_StoryAggregation(t *testing.T) {
	sp := weekSprint()
	b1 := &sprint.Task{ID: "B1", Title: "API", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 3, Status: sprint.StatusPending}
	b2 := &sprint.Task{ID: "B2", Title: "Worker", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 3, Status: sprint.StatusPending}
	qa := &sprint.Task{ID: "Q1", Title: "Verification", WorkFront: sprint.WorkFrontQA, EstimatedHours: 2, Status: sprint.StatusPending}
	us := &sprint.UserStory{ID: "US1", Title: "Orders", Tasks: []*sprint.Task{b1, b2, qa}}
	sp.AddUserStory(us)

	newTestScheduler(t, sp, allPools(), nil).Run()

	// Alice holds two of the three scheduled tasks.
	assert.Equal(t, alice.ID(), us.Assignee)
	// 8 estimated hours lands in the 5-point bucket.
	assert.Equal(t, 5.0, us.StoryPoints)
	require.NotNil(t, us.StartDate)
	require.NotNil(t, us.EndDate)
	assert.True(t, us.StartDate.Equal(d(3, 9, 0)), "start %v", us.StartDate)
}

func TestScheduler_StoryAggregationTieBreak(t *testing.T) {
	sp := weekSprint()
	qa := &sprint.Task{ID: "Q1", Title: "Verification", WorkFront: sprint.WorkFrontQA, EstimatedHours: 2, Status: sprint.StatusPending}
	backend := &sprint.Task{ID: "B1", Title: "API", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 2, Status: sprint.StatusPending}
	us := &sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{qa, backend}}
	sp.AddUserStory(us)

	newTestScheduler(t, sp, allPools(), nil).Run()

	// One task each; the backend executor wins the tie.
	assert.Equal(t, alice.ID(), us.Assignee)
}

func TestScheduler_MissingDependencyStaysBlocked(t *testing.T) {
	sp := weekSprint()
	task := &sprint.Task{ID: "T1", Title: "Integrate", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 2, Status: sprint.StatusPending, Dependencies: []string{"NOPE"}}
	sp.AddUserStory(&sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{task}})

	newTestScheduler(t, sp, allPools(), nil).Run()

	assert.Equal(t, sprint.StatusBlocked, task.Status)
	var reasons []string
	for _, u := range sp.Metrics.Unscheduled {
		reasons = append(reasons, u.Reason)
	}
	assert.Contains(t, reasons, ReasonAwaitingDependencies)
}

func TestScheduler_ReaggregationConverges(t *testing.T) {
	sp := weekSprint()
	b1 := &sprint.Task{ID: "B1", Title: "API", WorkFront: sprint.WorkFrontBackend, EstimatedHours: 3, Status: sprint.StatusPending}
	us := &sprint.UserStory{ID: "US1", Tasks: []*sprint.Task{b1}}
	sp.AddUserStory(us)

	s := newTestScheduler(t, sp, allPools(), nil)
	s.Run()

	assignee := us.Assignee
	points := us.StoryPoints
	start, end := us.StartDate, us.EndDate

	s.updateUserStory(us)

	assert.Equal(t, assignee, us.Assignee)
	assert.Equal(t, points, us.StoryPoints)
	assert.True(t, us.StartDate.Equal(*start))
	assert.True(t, us.EndDate.Equal(*end))
}
