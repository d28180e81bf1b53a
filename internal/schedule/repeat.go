package schedule

import (
	"fmt"
	"time"
)

// RepeatType is the repetition policy of a meeting.
type RepeatType string

const (
	RepeatNone            RepeatType = "none"
	RepeatDaily           RepeatType = "daily"
	RepeatWeekly          RepeatType = "weekly"
	RepeatEveryWorkingDay RepeatType = "every_working_day"
	RepeatYearly          RepeatType = "yearly"
	RepeatMonthly         RepeatType = "monthly"
)

// RepeatTypes lists every accepted value in the order they are reported to clients.
var RepeatTypes = []RepeatType{
	RepeatNone,
	RepeatDaily,
	RepeatWeekly,
	RepeatEveryWorkingDay,
	RepeatYearly,
	RepeatMonthly,
}

const (
	day  = 60 * 60 * 24
	week = day * 7
)

func (r RepeatType) Valid() bool {
	for _, v := range RepeatTypes {
		if r == v {
			return true
		}
	}
	return false
}

func (r RepeatType) Repeats() bool {
	return r != RepeatNone
}

// NextStart returns the start of the occurrence that follows one starting at ts.
// Timestamps are unix seconds in UTC. Monthly and yearly steps let time.AddDate
// normalize dates that do not exist (Jan 31 + 1 month is Mar 2 or 3).
// It panics for RepeatNone; callers must check Repeats first.
func NextStart(ts int64, r RepeatType) int64 {
	switch r {
	case RepeatDaily:
		return ts + day
	case RepeatWeekly:
		return ts + week
	case RepeatMonthly:
		return time.Unix(ts, 0).UTC().AddDate(0, 1, 0).Unix()
	case RepeatYearly:
		return time.Unix(ts, 0).UTC().AddDate(1, 0, 0).Unix()
	case RepeatEveryWorkingDay:
		t := time.Unix(ts, 0).UTC().AddDate(0, 0, 1)
		for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
			t = t.AddDate(0, 0, 1)
		}
		return t.Unix()
	case RepeatNone:
		panic("schedule: NextStart called for a meeting that does not repeat")
	default:
		panic(fmt.Sprintf("schedule: unknown repeat type %q", string(r)))
	}
}
