package schedule

import (
	"time"

	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

// Location is the fixed UTC-3 offset every scheduling instant is expressed
// in. There is no daylight-saving handling; instants carrying a different
// offset are converted on the way in.
var Location = time.FixedZone("-03", -3*60*60)

// The workday has two fixed blocks: 09:00-12:00 and 14:00-17:00. The
// 12:00-14:00 gap is non-working.
const (
	morningStartHour   = 9
	morningEndHour     = 12
	afternoonStartHour = 14
	afternoonEndHour   = 17

	// Day off costs are fixed regardless of the executor's configured daily
	// capacity. See the capacity ledger tests.
	fullDayOffHours = 6
	halfDayOffHours = 3
)

// Normalize converts t into the fixed scheduling offset.
func Normalize(t time.Time) time.Time {
	return t.In(Location)
}

// at returns the instant on t's date at hour:00 in the scheduling offset.
func at(t time.Time, hour int) time.Time {
	t = Normalize(t)
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, Location)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := Normalize(a).Date()
	by, bm, bd := Normalize(b).Date()
	return ay == by && am == bm && ad == bd
}

// dateAfter reports whether a's calendar date is strictly after b's.
func dateAfter(a, b time.Time) bool {
	a = at(a, 0)
	b = at(b, 0)
	return a.After(b)
}

// secondsOfDay is the clock time of t as seconds since midnight.
func secondsOfDay(t time.Time) int {
	t = Normalize(t)
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func inMorningBlock(t time.Time) bool {
	s := secondsOfDay(t)
	return s >= morningStartHour*3600 && s <= morningEndHour*3600
}

func inAfternoonBlock(t time.Time) bool {
	s := secondsOfDay(t)
	return s >= afternoonStartHour*3600 && s <= afternoonEndHour*3600
}

func isWeekend(t time.Time) bool {
	wd := Normalize(t).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Calendar answers working-time questions for executors, combining the fixed
// week shape (Mon-Fri, two blocks) with per-executor day offs.
type Calendar struct {
	dayOffs map[sprint.ExecutorID][]sprint.DayOff
}

func NewCalendar(dayOffs map[sprint.ExecutorID][]sprint.DayOff) *Calendar {
	if dayOffs == nil {
		dayOffs = make(map[sprint.ExecutorID][]sprint.DayOff)
	}
	return &Calendar{dayOffs: dayOffs}
}

// IsWorkingMoment reports whether the executor can work at instant t.
// Weekends block unconditionally. A full day off blocks the whole date; a
// morning/afternoon day off blocks only instants inside the matching block.
func (c *Calendar) IsWorkingMoment(t time.Time, who sprint.ExecutorID) bool {
	t = Normalize(t)
	if isWeekend(t) {
		return false
	}
	for _, d := range c.dayOffs[who] {
		if !sameDate(d.Date, t) {
			continue
		}
		switch d.Period {
		case sprint.DayOffFull:
			return false
		case sprint.DayOffMorning:
			if inMorningBlock(t) {
				return false
			}
		case sprint.DayOffAfternoon:
			if inAfternoonBlock(t) {
				return false
			}
		}
	}
	return true
}

// WorkingDays counts weekdays in the closed interval [start, end].
func (c *Calendar) WorkingDays(start, end time.Time) int {
	days := 0
	for d := at(start, 0); !dateAfter(d, end); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			days++
		}
	}
	return days
}

// DayOffHours sums the executor's absence hours at the fixed 6h/3h costs.
func (c *Calendar) DayOffHours(who sprint.ExecutorID) float64 {
	var hours float64
	for _, d := range c.dayOffs[who] {
		if d.Period == sprint.DayOffFull {
			hours += fullDayOffHours
		} else {
			hours += halfDayOffHours
		}
	}
	return hours
}

// CoarsenEnd maps a real end instant onto the board-visible granularity:
// every end becomes either 12:00 or 17:00 on the same date. Cosmetic only;
// scheduling math never consumes the coarsened value.
func CoarsenEnd(t time.Time) time.Time {
	t = Normalize(t)
	s := secondsOfDay(t)
	switch {
	case s >= 10*3600 && s <= morningEndHour*3600:
		return at(t, morningEndHour)
	case s >= afternoonStartHour*3600 && s <= afternoonEndHour*3600:
		return at(t, afternoonEndHour)
	case s > morningEndHour*3600 && s < afternoonStartHour*3600:
		return at(t, morningEndHour)
	case s < 10*3600:
		return at(t, morningEndHour)
	default:
		return at(t, afternoonEndHour)
	}
}
