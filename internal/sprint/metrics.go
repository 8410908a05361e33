package sprint

// UnscheduledTask records one failed placement attempt: which task, why, and
// under which story. The list is the audit trail consumed by reporting.
type UnscheduledTask struct {
	TaskID      string `yaml:"task_id"`
	Title       string `yaml:"title"`
	Reason      string `yaml:"reason"`
	UserStoryID string `yaml:"user_story_id"`
}

// Metrics aggregates per-executor capacity ledgers and the unscheduled-task
// audit trail for one sprint run.
type Metrics struct {
	TotalCapacity     map[ExecutorID]float64 `yaml:"total_capacity"`
	UsedCapacity      map[ExecutorID]float64 `yaml:"used_capacity"`
	AvailableCapacity map[ExecutorID]float64 `yaml:"available_capacity"`
	Unscheduled       []UnscheduledTask      `yaml:"not_scheduled_tasks"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		TotalCapacity:     make(map[ExecutorID]float64),
		UsedCapacity:      make(map[ExecutorID]float64),
		AvailableCapacity: make(map[ExecutorID]float64),
	}
}

// UpdateCapacity records an executor's total and used hours; available is
// always derived as the difference.
func (m *Metrics) UpdateCapacity(id ExecutorID, total, used float64) {
	m.TotalCapacity[id] = total
	m.UsedCapacity[id] = used
	m.AvailableCapacity[id] = total - used
}

// AddUnscheduled appends a failed-placement record. Records accumulate: a
// task that fails, is retried and then succeeds keeps its earlier records.
func (m *Metrics) AddUnscheduled(taskID, title, reason, userStoryID string) {
	m.Unscheduled = append(m.Unscheduled, UnscheduledTask{
		TaskID:      taskID,
		Title:       title,
		Reason:      reason,
		UserStoryID: userStoryID,
	})
}
