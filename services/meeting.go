package services

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// MeetingStatus is the lifecycle state of a consultation meeting.
type MeetingStatus string

const (
	MeetingScheduled  MeetingStatus = "scheduled"
	MeetingInProgress MeetingStatus = "in-progress"
	MeetingCompleted  MeetingStatus = "completed"
	MeetingCancelled  MeetingStatus = "cancelled"
)

// AllMeetingStatuses is the set of stored meeting status values.
var AllMeetingStatuses = []string{
	string(MeetingScheduled),
	string(MeetingInProgress),
	string(MeetingCompleted),
	string(MeetingCancelled),
}

// DefaultMeetingMinutes is used when a schedule request leaves the duration out.
const DefaultMeetingMinutes = 30

var (
	ErrMeetingLinkExpired = errors.New("meeting link has expired")
	ErrMeetingClosed      = errors.New("meeting is no longer open")
)

// MeetingRequest is the input for scheduling a meeting.
type MeetingRequest struct {
	ContractorID    string `json:"contractorId"`
	CustomerID      string `json:"customerId"`
	QuoteID         string `json:"quoteId"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ScheduledAt     string `json:"scheduledAt"`
	DurationMinutes int    `json:"durationMinutes"`
	AttendeeEmail   string `json:"attendeeEmail"`
	AttendeeName    string `json:"attendeeName"`
}

func (r MeetingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ContractorID, validation.Required),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.ScheduledAt, validation.Required, validation.Date(time.RFC3339)),
		validation.Field(&r.DurationMinutes, validation.Min(0), validation.Max(8*60)),
		validation.Field(&r.AttendeeEmail, is.EmailFormat),
	)
}

// Start returns the parsed meeting start time.
func (r MeetingRequest) Start() (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(r.ScheduledAt))
}

// Duration returns the meeting length, falling back to the default.
func (r MeetingRequest) Duration() time.Duration {
	if r.DurationMinutes <= 0 {
		return DefaultMeetingMinutes * time.Minute
	}
	return time.Duration(r.DurationMinutes) * time.Minute
}

// ValidMeetingStatus reports whether s is a known meeting status.
func ValidMeetingStatus(s string) bool {
	for _, v := range AllMeetingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CheckJoin decides whether a participant may still join a meeting. A zero
// expiry never expires.
func CheckJoin(status MeetingStatus, expiresAt, now time.Time) error {
	if status == MeetingCompleted || status == MeetingCancelled {
		return ErrMeetingClosed
	}
	if !expiresAt.IsZero() && now.After(expiresAt) {
		return ErrMeetingLinkExpired
	}
	return nil
}
