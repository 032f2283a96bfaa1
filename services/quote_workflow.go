package services

import "fmt"

// QuoteStatus is the lifecycle state of a quote.
type QuoteStatus string

const (
	StatusDraft           QuoteStatus = "draft"
	StatusInProgress      QuoteStatus = "in-progress"
	StatusApprovalPending QuoteStatus = "approval-pending"
	StatusActive          QuoteStatus = "active"
	StatusRejected        QuoteStatus = "rejected"
)

// AllQuoteStatuses is the set of stored status values.
var AllQuoteStatuses = []string{
	string(StatusDraft),
	string(StatusInProgress),
	string(StatusApprovalPending),
	string(StatusActive),
	string(StatusRejected),
}

// ReviewDecision is the external reviewer's verdict on a submitted quote.
type ReviewDecision string

const (
	DecisionApproved ReviewDecision = "approved"
	DecisionRejected ReviewDecision = "rejected"
)

// Editable reports whether tasks on a quote in this status may change. A
// quote awaiting approval, or one already approved, is read-only; a rejected
// quote re-enters editing.
func (s QuoteStatus) Editable() bool {
	return s != StatusApprovalPending && s != StatusActive
}

// StatusDisplay is the label and color used for a status badge.
type StatusDisplay struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// DisplayStatus maps a stored status to its badge. Unknown values show the
// raw string in gray.
func DisplayStatus(s QuoteStatus) StatusDisplay {
	switch s {
	case StatusActive:
		return StatusDisplay{Label: "approved", Color: "green"}
	case StatusRejected:
		return StatusDisplay{Label: "rejected", Color: "red"}
	case StatusInProgress:
		return StatusDisplay{Label: "in progress", Color: "blue"}
	case StatusApprovalPending:
		return StatusDisplay{Label: "pending approval", Color: "amber"}
	default:
		return StatusDisplay{Label: string(s), Color: "gray"}
	}
}

// CheckSubmission validates that a quote in status s with the given tasks can
// be submitted for approval.
func CheckSubmission(s QuoteStatus, tasks []Task) error {
	if !s.Editable() {
		return ErrQuoteReadOnly
	}
	if len(tasks) == 0 {
		return ErrNoTasks
	}
	if missing := MissingPayments(tasks); len(missing) > 0 {
		return &MissingPaymentsError{TaskIDs: missing}
	}
	return nil
}

// ResolveReview returns the status a pending quote moves to after review.
func ResolveReview(s QuoteStatus, d ReviewDecision) (QuoteStatus, error) {
	if s != StatusApprovalPending {
		return s, fmt.Errorf("%w: %s quote cannot be reviewed", ErrInvalidTransition, s)
	}
	switch d {
	case DecisionApproved:
		return StatusActive, nil
	case DecisionRejected:
		return StatusRejected, nil
	default:
		return s, fmt.Errorf("%w: unknown decision %q", ErrInvalidTransition, d)
	}
}

// StartEditing moves a draft into in-progress once it has tasks. Other
// statuses are returned unchanged.
func StartEditing(s QuoteStatus) QuoteStatus {
	if s == StatusDraft || s == "" {
		return StatusInProgress
	}
	return s
}
