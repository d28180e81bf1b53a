package app

import (
	"fmt"
	"net/http"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/gin-gonic/gin"
	"github.com/teambition/rrule-go"

	"meetings-service/internal/schedule"
	"meetings-service/internal/store"
)

const icsProductID = "-//meetings-service//EN"

var workingDays = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}

// recurrenceRule renders the repeat type as an RRULE value, or "" for one-off
// meetings.
func recurrenceRule(r schedule.RepeatType) string {
	var opt rrule.ROption
	switch r {
	case schedule.RepeatDaily:
		opt.Freq = rrule.DAILY
	case schedule.RepeatWeekly:
		opt.Freq = rrule.WEEKLY
	case schedule.RepeatEveryWorkingDay:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = workingDays
	case schedule.RepeatMonthly:
		opt.Freq = rrule.MONTHLY
	case schedule.RepeatYearly:
		opt.Freq = rrule.YEARLY
	default:
		return ""
	}
	return opt.RRuleString()
}

// BuildCalendar exports meetings as VEVENTs. Private meetings the viewer does
// not take part in are reduced to busy blocks.
func BuildCalendar(meetings []store.Meeting, viewer *store.User, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)

	for _, m := range meetings {
		event := cal.AddEvent(fmt.Sprintf("meeting-%d@meetings-service", m.ID))
		event.SetDtStampTime(now.UTC())
		event.SetStartAt(m.StartTime())
		event.SetEndAt(m.EndTime())
		if rule := recurrenceRule(m.Repetition()); rule != "" {
			event.SetProperty(ics.ComponentPropertyRrule, rule)
		}

		if m.IsPrivate && (viewer == nil || !m.HasParticipant(viewer.ID)) {
			event.SetSummary("Busy")
			event.SetProperty(ics.ComponentPropertyClass, "PRIVATE")
			continue
		}
		if m.IsPrivate {
			event.SetProperty(ics.ComponentPropertyClass, "PRIVATE")
		}
		event.SetSummary("Meeting by " + m.CreatorName)
		if m.Description != nil {
			event.SetDescription(*m.Description)
		}
	}
	return cal
}

// GET /users/:username/meetings.ics?start=DT&end=DT
func (a *App) UserMeetingsICSHandler(c *gin.Context) {
	username, start, end, err := bindRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	occurrences, err := a.UserOccurrences(c.Request.Context(), username, start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	cal := BuildCalendar(userMeetings(occurrences), requester(c), time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, username))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(cal.Serialize()))
}
