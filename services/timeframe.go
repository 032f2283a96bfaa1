package services

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for task start and end dates.
const DateLayout = "2006-01-02"

// TimeframeUnit is the unit a task's timeframe is expressed in.
type TimeframeUnit string

const (
	UnitDays   TimeframeUnit = "days"
	UnitWeeks  TimeframeUnit = "weeks"
	UnitMonths TimeframeUnit = "months"
)

// Days returns the number of days one unit represents. Weeks are 7 days and
// months are a fixed 30 days; unknown units count as days.
func (u TimeframeUnit) Days() int {
	switch u {
	case UnitWeeks:
		return 7
	case UnitMonths:
		return 30
	default:
		return 1
	}
}

// TimeframeDays converts a timeframe into a day count.
func TimeframeDays(timeframe int, unit TimeframeUnit) int {
	return timeframe * unit.Days()
}

// ParseDate accepts either a plain ISO date or a full RFC 3339 timestamp and
// returns the calendar date it names.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: must be YYYY-MM-DD", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// CalculateEndDate returns start + timeframe as an ISO date. An empty start
// yields an empty end date. Negative timeframes are treated as zero so the end
// date never precedes the start date.
func CalculateEndDate(start string, timeframe int, unit TimeframeUnit) (string, error) {
	if strings.TrimSpace(start) == "" {
		return "", nil
	}
	startDate, err := ParseDate(start)
	if err != nil {
		return "", err
	}
	days := TimeframeDays(timeframe, unit)
	if days < 0 {
		days = 0
	}
	return startDate.AddDate(0, 0, days).Format(DateLayout), nil
}

// FormatTimeframe renders a day count the way the task list displays it:
// under a week as days, under 30 days as weeks plus remaining days, and
// otherwise as 30-day months plus remaining days.
func FormatTimeframe(days int) string {
	switch {
	case days < 7:
		return pluralize(days, "day")
	case days < 30:
		s := pluralize(days/7, "week")
		if rem := days % 7; rem > 0 {
			s += " " + pluralize(rem, "day")
		}
		return s
	default:
		s := pluralize(days/30, "month")
		if rem := days % 30; rem > 0 {
			s += " " + pluralize(rem, "day")
		}
		return s
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
