package services

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// MeetingEvent is the calendar view of a scheduled consultation.
type MeetingEvent struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	Duration    time.Duration
	URL         string
	Organizer   string
	Attendee    string
}

// BuildMeetingICS renders a single-event iCalendar file for a meeting.
func BuildMeetingICS(ev MeetingEvent, now time.Time) (string, error) {
	if ev.Start.IsZero() {
		return "", fmt.Errorf("meeting start time required for calendar export")
	}
	if ev.Duration <= 0 {
		ev.Duration = 30 * time.Minute
	}

	title := strings.TrimSpace(ev.Title)
	if title == "" {
		title = "Consultation"
	}

	uid := fmt.Sprintf("meeting-%s@quotebuilder", strings.TrimSpace(ev.ID))
	if strings.TrimSpace(ev.ID) == "" {
		uid = fmt.Sprintf("meeting-export-%d@quotebuilder", now.UnixNano())
	}

	cal := ics.NewCalendar()
	cal.SetProductId("-//Quotebuilder//Meeting Export//EN")
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodRequest)

	event := cal.AddEvent(uid)
	event.SetDtStampTime(now)
	event.SetSummary(title)
	event.SetStartAt(ev.Start)
	event.SetEndAt(ev.Start.Add(ev.Duration))
	if desc := strings.TrimSpace(ev.Description); desc != "" {
		event.SetDescription(normalizeNewlines(desc))
	}
	if ev.URL != "" {
		event.SetURL(ev.URL)
		event.SetLocation(ev.URL)
	}
	if ev.Organizer != "" {
		event.SetOrganizer(ev.Organizer)
	}
	if ev.Attendee != "" {
		event.AddAttendee(ev.Attendee, ics.ParticipationRoleReqParticipant, ics.WithRSVP(true))
	}

	var b strings.Builder
	if err := cal.SerializeTo(&b, ics.WithNewLineWindows); err != nil {
		return "", fmt.Errorf("serialize meeting calendar: %w", err)
	}
	return b.String(), nil
}

func normalizeNewlines(s string) string {
	return strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(s)
}
