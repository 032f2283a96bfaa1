// Package services holds the quote builder's pure business logic: task
// timeframes, cost aggregation, payment scheduling, materials handling, the
// quote approval workflow, transcription buffering and document exports.
package services

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// AdditionalStatus is the review outcome of a change-order task.
type AdditionalStatus string

const (
	AdditionalApproved AdditionalStatus = "approved"
	AdditionalRejected AdditionalStatus = "rejected"
	AdditionalPending  AdditionalStatus = "pending"
)

// Material is one line of a task's materials list.
type Material struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Unit     string  `json:"unit"`
	Price    float64 `json:"price"`
}

func (m Material) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.Quantity, validation.Min(0)),
		validation.Field(&m.Price, validation.Min(0.0)),
	)
}

// Labor holds a task's labor charge. When Hours is exactly 1 the Rate field
// carries the flat labor total instead of an hourly rate.
type Labor struct {
	Hours float64 `json:"hours"`
	Rate  float64 `json:"rate"`
}

// IsFlat reports whether the labor is entered as a flat total amount.
func (l Labor) IsFlat() bool {
	return l.Hours == 1
}

func (l Labor) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Hours, validation.Min(0.0)),
		validation.Field(&l.Rate, validation.Min(0.0)),
	)
}

// Task is one unit of project work within a quote.
type Task struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Timeframe          int              `json:"timeframe"`
	TimeframeUnit      TimeframeUnit    `json:"timeframeUnit"`
	StartDate          string           `json:"startDate"`
	EndDate            string           `json:"endDate"`
	Materials          []Material       `json:"materials"`
	Labor              *Labor           `json:"labor,omitempty"`
	IsMilestonePayment bool             `json:"isMilestonePayment,omitempty"`
	PaymentAmount      *float64         `json:"paymentAmount,omitempty"`
	Notes              []string         `json:"notes"`
	NewNote            string           `json:"newNote,omitempty"`
	IsAdditional       bool             `json:"isAdditional,omitempty"`
	AdditionalStatus   AdditionalStatus `json:"additionalStatus,omitempty"`
}

func (t Task) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&t.Timeframe, validation.Required, validation.Min(1)),
		validation.Field(&t.TimeframeUnit, validation.In(UnitDays, UnitWeeks, UnitMonths)),
		validation.Field(&t.StartDate, validation.Date(DateLayout)),
		validation.Field(&t.Materials),
		validation.Field(&t.Labor),
		validation.Field(&t.AdditionalStatus, validation.In(AdditionalApproved, AdditionalRejected, AdditionalPending)),
	)
}

// Recompute derives EndDate from StartDate and the timeframe. It must run
// whenever either input changes.
func (t *Task) Recompute() error {
	if t.TimeframeUnit == "" {
		t.TimeframeUnit = UnitDays
	}
	end, err := CalculateEndDate(t.StartDate, t.Timeframe, t.TimeframeUnit)
	if err != nil {
		return err
	}
	t.EndDate = end
	return nil
}

// Days returns the task duration in days.
func (t Task) Days() int {
	return TimeframeDays(t.Timeframe, t.TimeframeUnit)
}

// AppendNote moves a non-empty note onto the persisted notes list and clears
// the draft field.
func (t *Task) AppendNote(note string) bool {
	note = strings.TrimSpace(note)
	if note == "" {
		return false
	}
	t.Notes = append(t.Notes, note)
	t.NewNote = ""
	return true
}

// ClearPayment strips the milestone payment fields.
func (t *Task) ClearPayment() {
	t.IsMilestonePayment = false
	t.PaymentAmount = nil
}

// TaskList is an ordered collection of tasks belonging to one quote. The
// mutating helpers return a new slice and leave the receiver untouched.
type TaskList []Task

// Find returns the task with the given id.
func (l TaskList) Find(id string) (Task, bool) {
	for _, t := range l {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Add appends a task.
func (l TaskList) Add(t Task) TaskList {
	out := make(TaskList, 0, len(l)+1)
	out = append(out, l...)
	return append(out, t)
}

// Replace swaps the task sharing t.ID for t. The second result is false when
// no such task exists.
func (l TaskList) Replace(t Task) (TaskList, bool) {
	out := make(TaskList, len(l))
	copy(out, l)
	for i := range out {
		if out[i].ID == t.ID {
			out[i] = t
			return out, true
		}
	}
	return out, false
}

// Delete removes the task with the given id.
func (l TaskList) Delete(id string) TaskList {
	out := make(TaskList, 0, len(l))
	for _, t := range l {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// Update applies fn to a copy of the task with the given id and swaps it in.
// The second result is false when no such task exists.
func (l TaskList) Update(id string, fn func(*Task)) (TaskList, bool) {
	t, ok := l.Find(id)
	if !ok {
		out := make(TaskList, len(l))
		copy(out, l)
		return out, false
	}
	fn(&t)
	t.ID = id
	return l.Replace(t)
}
