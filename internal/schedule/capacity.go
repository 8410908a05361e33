package schedule

import (
	"log/slog"

	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

// Ledger tracks each executor's remaining schedulable hours for one run.
// Keys are canonical ExecutorIDs, so lookups are case-insensitive by
// construction. The ledger is not clamped: callers are expected to check
// Remaining before Consume.
type Ledger struct {
	remaining map[sprint.ExecutorID]float64
	metrics   *sprint.Metrics
	logger    *slog.Logger
}

func NewLedger(metrics *sprint.Metrics, logger *slog.Logger) *Ledger {
	return &Ledger{
		remaining: make(map[sprint.ExecutorID]float64),
		metrics:   metrics,
		logger:    logger,
	}
}

// Init seeds an executor's total capacity and mirrors it into Metrics.
func (l *Ledger) Init(id sprint.ExecutorID, total float64) {
	l.remaining[id] = total
	l.metrics.UpdateCapacity(id, total, 0)
	l.logger.Info("executor capacity initialized", "executor", id, "hours", total)
}

// Remaining returns the live ledger value; unknown executors have zero.
func (l *Ledger) Remaining(id sprint.ExecutorID) float64 {
	return l.remaining[id]
}

// Consume decrements the ledger and updates the used/available metrics.
func (l *Ledger) Consume(id sprint.ExecutorID, hours float64) {
	if _, ok := l.remaining[id]; !ok {
		return
	}
	l.remaining[id] -= hours
	total := l.metrics.TotalCapacity[id]
	used := l.metrics.UsedCapacity[id] + hours
	l.metrics.UpdateCapacity(id, total, used)
	l.logger.Info("executor capacity updated", "executor", id, "remaining", l.remaining[id])
}
