package sprint

import (
	"fmt"
	"strings"
	"time"
)

// ExecutorID is the canonical identity of an executor: the email address
// folded to lowercase. All comparisons, map keys and lookups use this type so
// case differences in the input never split one person into two.
type ExecutorID string

// NewExecutorID canonicalizes an email into an ExecutorID.
func NewExecutorID(email string) ExecutorID {
	return ExecutorID(strings.ToLower(strings.TrimSpace(email)))
}

func (id ExecutorID) String() string {
	return string(id)
}

// Executor is a member of a work front's pool.
type Executor struct {
	Email         string
	DailyCapacity float64
}

func (e Executor) ID() ExecutorID {
	return NewExecutorID(e.Email)
}

// DayOffPeriod tags which part of a day a DayOff blocks.
type DayOffPeriod string

const (
	DayOffFull      DayOffPeriod = "full"
	DayOffMorning   DayOffPeriod = "morning"
	DayOffAfternoon DayOffPeriod = "afternoon"
)

func ParseDayOffPeriod(s string) (DayOffPeriod, error) {
	switch DayOffPeriod(s) {
	case DayOffFull, DayOffMorning, DayOffAfternoon:
		return DayOffPeriod(s), nil
	}
	return "", fmt.Errorf("unknown day off period: %q", s)
}

// DayOff is a single absence entry for an executor. Read-only scheduler input.
type DayOff struct {
	Date   time.Time
	Period DayOffPeriod
}
