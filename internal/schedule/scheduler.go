package schedule

import (
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

// Reasons recorded on the unscheduled-task audit trail. These are stable
// strings: reporting groups by them.
const (
	ReasonNoExecutor           = "no available executor"
	ReasonAwaitingDependencies = "awaiting dependency scheduling"
	ReasonInsufficientCapacity = "insufficient capacity"
	ReasonNoStartDate          = "no start date available"
	ReasonNoEndDate            = "no end date available"
	ReasonExceedsSprintEnd     = "exceeds sprint end"
)

// Scheduler places a sprint's tasks into half-day blocks. A Scheduler is
// built for exactly one run and is not safe for concurrent use: scheduling
// is order-dependent by design, so everything happens on one goroutine.
type Scheduler struct {
	sprint  *sprint.Sprint
	pools   map[sprint.WorkFront][]sprint.Executor
	cal     *Calendar
	ledger  *Ledger
	metrics *sprint.Metrics
	logger  *slog.Logger
	rng     *rand.Rand
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithRand injects the source used to shuffle executor pools. Tests pass a
// fixed seed to make tie-breaking deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// New builds a Scheduler and seeds the capacity ledger: for every distinct
// executor across the pools, working days in the sprint window times daily
// capacity, minus day off hours.
func New(sp *sprint.Sprint, pools map[sprint.WorkFront][]sprint.Executor, dayOffs map[sprint.ExecutorID][]sprint.DayOff, opts ...Option) *Scheduler {
	s := &Scheduler{
		sprint:  sp,
		pools:   pools,
		cal:     NewCalendar(dayOffs),
		metrics: sp.Metrics,
		logger:  slog.Default(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = NewLedger(s.metrics, s.logger)

	seen := make(map[sprint.ExecutorID]bool)
	for _, front := range sprint.WorkFronts {
		for _, e := range s.pools[front] {
			id := e.ID()
			if seen[id] {
				continue
			}
			seen[id] = true
			total := float64(s.cal.WorkingDays(sp.StartDate, sp.EndDate))*e.DailyCapacity - s.cal.DayOffHours(id)
			s.ledger.Init(id, total)
		}
	}
	return s
}

// Run schedules every user story in order, then makes one sprint-wide retry
// over tasks still blocked on dependencies and test plan tasks that could
// not be placed inside their own story's pass.
func (s *Scheduler) Run() {
	s.logger.Info("sprint scheduling started", "sprint", s.sprint.Name, "stories", len(s.sprint.UserStories))

	for _, us := range s.sprint.UserStories {
		s.scheduleUserStory(us)
	}

	var blocked, testPlans []*sprint.Task
	for _, us := range s.sprint.UserStories {
		for _, t := range us.Tasks {
			switch {
			case t.Status == sprint.StatusBlocked:
				blocked = append(blocked, t)
			case t.IsTestPlan() && t.Status != sprint.StatusScheduled:
				testPlans = append(testPlans, t)
			}
		}
	}

	for _, t := range blocked {
		if s.scheduleTask(t) {
			if us, ok := s.sprint.UserStoryByID(t.UserStoryID); ok {
				s.updateUserStory(us)
			}
		} else {
			s.logger.Warn("task still blocked after sprint-wide retry", "task", t.ID)
		}
	}

	for _, t := range testPlans {
		us, ok := s.sprint.UserStoryByID(t.UserStoryID)
		if !ok {
			continue
		}
		if s.scheduleTestPlanTask(t, us) {
			s.updateUserStory(us)
		} else {
			s.logger.Warn("test plan task remains unscheduled", "task", t.ID)
		}
	}

	s.logger.Info("sprint scheduling finished", "sprint", s.sprint.Name, "unscheduled_records", len(s.metrics.Unscheduled))
}

// scheduleUserStory runs the story's passes in fixed order: regular tasks to
// a fixed point, one last retry of the blocked list, then QA, DevOps and
// test plan tasks. Finally the story's own fields are re-derived.
func (s *Scheduler) scheduleUserStory(us *sprint.UserStory) {
	s.logger.Info("scheduling user story", "story", us.ID, "tasks", len(us.Tasks))

	var regular []*sprint.Task
	for _, t := range us.Tasks {
		if t.WorkFront != sprint.WorkFrontQA && !t.IsDevOps() && !t.IsTestPlan() {
			regular = append(regular, t)
		}
	}
	sort.SliceStable(regular, func(i, j int) bool {
		return len(regular[i].Dependencies) < len(regular[j].Dependencies)
	})

	var blocked []*sprint.Task
	for len(regular) > 0 {
		progress := false
		var still []*sprint.Task
		for _, t := range regular {
			if s.scheduleTask(t) {
				progress = true
				// A success may unblock dependents; retry them immediately.
				var stillBlocked []*sprint.Task
				for _, bt := range blocked {
					if s.scheduleTask(bt) {
						progress = true
					} else {
						stillBlocked = append(stillBlocked, bt)
					}
				}
				blocked = stillBlocked
				continue
			}
			if len(t.Dependencies) > 0 {
				blocked = append(blocked, t)
			} else {
				still = append(still, t)
			}
		}
		if !progress {
			break
		}
		regular = still
	}

	if len(blocked) > 0 {
		var still []*sprint.Task
		for _, bt := range blocked {
			if !s.scheduleTask(bt) {
				still = append(still, bt)
			}
		}
		blocked = still
	}

	for _, t := range us.Tasks {
		if t.WorkFront == sprint.WorkFrontQA && !t.IsTestPlan() {
			s.scheduleQATask(t, us)
		}
	}
	for _, t := range us.Tasks {
		if t.IsDevOps() {
			s.scheduleDevOpsTask(t, us)
		}
	}
	for _, t := range us.Tasks {
		if t.IsTestPlan() {
			s.scheduleTestPlanTask(t, us)
		}
	}

	s.updateUserStory(us)

	if len(blocked) > 0 {
		ids := make([]string, len(blocked))
		for i, t := range blocked {
			ids[i] = t.ID
		}
		s.logger.Warn("tasks remain blocked in story", "story", us.ID, "tasks", ids)
	}
}

// scheduleTask attempts to place one regular task. Every failure is recorded
// on the unscheduled audit trail with its reason; an unsatisfied dependency
// also flips the task to blocked so later passes pick it up.
func (s *Scheduler) scheduleTask(task *sprint.Task) bool {
	if task.Status.Terminal() {
		s.logger.Debug("task skipped, terminal status", "task", task.ID, "status", task.Status)
		return true
	}

	if task.Assignee == "" {
		task.Assignee = s.selectExecutor(task)
	}
	if task.Assignee == "" {
		s.logger.Error("no executor available for task", "task", task.ID, "front", task.WorkFront)
		s.metrics.AddUnscheduled(task.ID, task.Title, ReasonNoExecutor, task.UserStoryID)
		return false
	}

	if !s.dependenciesScheduled(task) {
		task.Status = sprint.StatusBlocked
		s.logger.Info("task blocked on dependencies", "task", task.ID)
		s.metrics.AddUnscheduled(task.ID, task.Title, ReasonAwaitingDependencies, task.UserStoryID)
		return false
	}

	if s.ledger.Remaining(task.Assignee) < task.EstimatedHours {
		s.logger.Warn("insufficient capacity for task", "task", task.ID, "executor", task.Assignee,
			"needed", task.EstimatedHours, "remaining", s.ledger.Remaining(task.Assignee))
		s.metrics.AddUnscheduled(task.ID, task.Title, ReasonInsufficientCapacity, task.UserStoryID)
		return false
	}

	start := s.earliestStart(task)
	if start == nil {
		s.metrics.AddUnscheduled(task.ID, task.Title, ReasonNoStartDate, task.UserStoryID)
		return false
	}

	end, err := s.place(task, *start)
	if err != nil {
		reason := ReasonNoEndDate
		if errors.Is(err, ErrExceedsSprintEnd) {
			reason = ReasonExceedsSprintEnd
		}
		s.metrics.AddUnscheduled(task.ID, task.Title, reason, task.UserStoryID)
		return false
	}

	s.commit(task, *start, end)
	return true
}

// scheduleQATask places a QA verification task after the work it verifies.
// Titles naming a front bias the start to that front's latest end combined
// with the executor's own latest end; otherwise the usual earliest start.
func (s *Scheduler) scheduleQATask(task *sprint.Task, us *sprint.UserStory) bool {
	if task.Status.Terminal() || task.Status == sprint.StatusScheduled {
		return true
	}

	if task.Assignee == "" {
		task.Assignee = s.selectExecutor(task)
	}
	if task.Assignee == "" {
		s.logger.Error("no executor available for qa task", "task", task.ID)
		s.metrics.AddUnscheduled(task.ID, task.Title, ReasonNoExecutor, us.ID)
		return false
	}

	if s.ledger.Remaining(task.Assignee) < task.EstimatedHours {
		s.logger.Warn("insufficient capacity for qa task", "task", task.ID, "executor", task.Assignee)
		s.metrics.AddUnscheduled(task.ID, task.Title, ReasonInsufficientCapacity, us.ID)
		return false
	}

	scheduled := us.ScheduledTasks()
	title := strings.ToLower(task.Title)
	var start *time.Time
	switch {
	case strings.Contains(title, "backend"):
		start = s.qaBiasedStart(task, scheduled, sprint.WorkFrontBackend)
	case strings.Contains(title, "frontend"):
		start = s.qaBiasedStart(task, scheduled, sprint.WorkFrontFrontend)
	}
	if start == nil {
		start = s.earliestStart(task)
		if start == nil {
			s.metrics.AddUnscheduled(task.ID, task.Title, ReasonNoStartDate, us.ID)
			return false
		}
	}

	end, err := s.place(task, *start)
	if err != nil {
		reason := ReasonNoEndDate
		if errors.Is(err, ErrExceedsSprintEnd) {
			reason = ReasonExceedsSprintEnd
		}
		s.metrics.AddUnscheduled(task.ID, task.Title, reason, us.ID)
		return false
	}

	s.commit(task, *start, end)
	return true
}

// qaBiasedStart is the latest end among the story's scheduled tasks on the
// named front and the executor's own scheduled tasks, or nil when neither
// contributes a date.
func (s *Scheduler) qaBiasedStart(task *sprint.Task, scheduled []*sprint.Task, front sprint.WorkFront) *time.Time {
	var latest *time.Time
	consider := func(t *sprint.Task) {
		if t.EndDate == nil {
			return
		}
		end := Normalize(*t.EndDate)
		if latest == nil || end.After(*latest) {
			latest = &end
		}
	}
	for _, t := range scheduled {
		if t.WorkFront == front {
			consider(t)
		}
	}
	for _, t := range s.sprint.TasksByAssignee(task.Assignee) {
		if t.Status == sprint.StatusScheduled {
			consider(t)
		}
	}
	return latest
}

// scheduleDevOpsTask places a deployment task after the backend work it
// deploys, falling back to the latest frontend end when no backend end has
// landed. No capacity gate here: deployment happens regardless.
func (s *Scheduler) scheduleDevOpsTask(task *sprint.Task, us *sprint.UserStory) bool {
	if task.Status.Terminal() || task.Status == sprint.StatusScheduled {
		return true
	}

	if task.Assignee == "" {
		task.Assignee = s.selectExecutor(task)
	}
	if task.Assignee == "" {
		s.logger.Error("no executor available for devops task", "task", task.ID)
		s.metrics.AddUnscheduled(task.ID, task.Title, ReasonNoExecutor, us.ID)
		return false
	}

	scheduled := us.ScheduledTasks()
	start := latestEndOnFront(scheduled, sprint.WorkFrontBackend)
	if start == nil {
		start = latestEndOnFront(scheduled, sprint.WorkFrontFrontend)
	}
	if start == nil {
		start = s.earliestStart(task)
		if start == nil {
			s.metrics.AddUnscheduled(task.ID, task.Title, ReasonNoStartDate, us.ID)
			return false
		}
	}

	end, err := s.place(task, *start)
	if err != nil {
		reason := ReasonNoEndDate
		if errors.Is(err, ErrExceedsSprintEnd) {
			reason = ReasonExceedsSprintEnd
		}
		s.metrics.AddUnscheduled(task.ID, task.Title, reason, us.ID)
		return false
	}

	s.commit(task, *start, end)
	return true
}

// scheduleTestPlanTask places the story's test plan after every other QA
// task, falling back to the development ends and then the usual earliest
// start. A zero-estimate plan is marked scheduled with no dates at all.
func (s *Scheduler) scheduleTestPlanTask(task *sprint.Task, us *sprint.UserStory) bool {
	if task.Status.Terminal() || task.Status == sprint.StatusScheduled {
		return true
	}

	if task.Assignee == "" {
		task.Assignee = s.selectExecutor(task)
	}
	if task.Assignee == "" {
		s.logger.Error("no executor available for test plan task", "task", task.ID)
		s.metrics.AddUnscheduled(task.ID, task.Title, ReasonNoExecutor, us.ID)
		return false
	}

	if task.EstimatedHours == 0 {
		task.Status = sprint.StatusScheduled
		s.logger.Info("test plan task scheduled without dates, zero estimate", "task", task.ID)
		return true
	}

	scheduled := us.ScheduledTasks()
	var start *time.Time
	for _, t := range scheduled {
		if t.WorkFront != sprint.WorkFrontQA || t.ID == task.ID || t.EndDate == nil {
			continue
		}
		end := Normalize(*t.EndDate)
		if start == nil || end.After(*start) {
			start = &end
		}
	}
	if start == nil {
		backend := latestEndOnFront(scheduled, sprint.WorkFrontBackend)
		frontend := latestEndOnFront(scheduled, sprint.WorkFrontFrontend)
		start = laterOf(backend, frontend)
	}
	if start == nil {
		start = s.earliestStart(task)
		if start == nil {
			s.metrics.AddUnscheduled(task.ID, task.Title, ReasonNoStartDate, us.ID)
			return false
		}
	}

	end, err := s.place(task, *start)
	if err != nil {
		reason := ReasonNoEndDate
		if errors.Is(err, ErrExceedsSprintEnd) {
			reason = ReasonExceedsSprintEnd
		}
		s.metrics.AddUnscheduled(task.ID, task.Title, reason, us.ID)
		return false
	}

	s.commit(task, *start, end)
	return true
}

// commit writes the placement onto the task and consumes the hours. The
// board end is the coarsened instant; the exact end keeps driving the math.
func (s *Scheduler) commit(task *sprint.Task, start, end time.Time) {
	board := CoarsenEnd(end)
	task.StartDate = &start
	task.EndDate = &end
	task.BoardEndDate = &board
	task.Status = sprint.StatusScheduled
	s.ledger.Consume(task.Assignee, task.EstimatedHours)
	s.logger.Info("task scheduled",
		"task", task.ID, "executor", task.Assignee,
		"start", start, "end", end, "board_end", board)
}

// updateUserStory re-derives the story's assignee, date span and story
// points from its scheduled tasks. The derivation is a pure function of the
// children, so repeating it after later passes converges.
func (s *Scheduler) updateUserStory(us *sprint.UserStory) {
	scheduled := us.ScheduledTasks()

	counts := make(map[sprint.ExecutorID]int)
	fronts := make(map[sprint.ExecutorID]sprint.WorkFront)
	var order []sprint.ExecutorID
	for _, t := range scheduled {
		if t.Assignee == "" {
			continue
		}
		if _, ok := counts[t.Assignee]; !ok {
			order = append(order, t.Assignee)
			fronts[t.Assignee] = t.WorkFront
		}
		counts[t.Assignee]++
	}
	if len(order) > 0 {
		maxCount := 0
		for _, id := range order {
			if counts[id] > maxCount {
				maxCount = counts[id]
			}
		}
		var top []sprint.ExecutorID
		for _, id := range order {
			if counts[id] == maxCount {
				top = append(top, id)
			}
		}
		chosen := top[0]
		if len(top) > 1 {
			// Ties go to delivery fronts first.
			for _, front := range []sprint.WorkFront{sprint.WorkFrontBackend, sprint.WorkFrontFrontend} {
				found := false
				for _, id := range top {
					if fronts[id] == front {
						chosen = id
						found = true
						break
					}
				}
				if found {
					break
				}
			}
		}
		us.Assignee = chosen
	}

	var minStart, maxEnd *time.Time
	for _, t := range scheduled {
		if t.StartDate != nil && (minStart == nil || t.StartDate.Before(*minStart)) {
			minStart = t.StartDate
		}
		if t.BoardEndDate != nil && (maxEnd == nil || t.BoardEndDate.After(*maxEnd)) {
			maxEnd = t.BoardEndDate
		}
	}
	if minStart != nil && maxEnd != nil {
		us.StartDate = minStart
		us.EndDate = maxEnd
	}

	var total float64
	for _, t := range scheduled {
		total += t.EstimatedHours
	}
	us.StoryPoints = sprint.StoryPointsFromHours(total)

	s.logger.Info("user story updated",
		"story", us.ID, "assignee", us.Assignee, "story_points", us.StoryPoints)
}

// latestEndOnFront is the latest end among the given tasks on one front.
func latestEndOnFront(tasks []*sprint.Task, front sprint.WorkFront) *time.Time {
	var latest *time.Time
	for _, t := range tasks {
		if t.WorkFront != front || t.EndDate == nil {
			continue
		}
		end := Normalize(*t.EndDate)
		if latest == nil || end.After(*latest) {
			latest = &end
		}
	}
	return latest
}

func laterOf(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.After(*a) {
		return b
	}
	return a
}
