package services

import (
	"math"
	"strconv"
	"strings"
)

// ScheduledPayment ties a milestone payment amount to a task.
type ScheduledPayment struct {
	TaskID string  `json:"taskId"`
	Amount float64 `json:"amount"`
}

// PaymentSchedule is the working list edited in the payment schedule dialog.
// Nothing touches the tasks until Save is called.
type PaymentSchedule struct {
	payments []ScheduledPayment
}

// ScheduleFromTasks seeds a working list from the tasks already marked as
// milestone payments.
func ScheduleFromTasks(tasks []Task) *PaymentSchedule {
	s := &PaymentSchedule{}
	for _, t := range tasks {
		if t.IsMilestonePayment && t.PaymentAmount != nil && *t.PaymentAmount > 0 {
			s.payments = append(s.payments, ScheduledPayment{TaskID: t.ID, Amount: *t.PaymentAmount})
		}
	}
	return s
}

// ParseAmount parses a user-entered amount. Only finite, strictly positive
// numbers are accepted.
func ParseAmount(amountStr string) (float64, error) {
	amountStr = strings.TrimSpace(amountStr)
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// AddPayment appends a payment for taskID. On error the working list is left
// unchanged.
func (s *PaymentSchedule) AddPayment(taskID, amountStr string) error {
	if strings.TrimSpace(taskID) == "" {
		return ErrNoTaskSelected
	}
	amount, err := ParseAmount(amountStr)
	if err != nil {
		return err
	}
	if s.Has(taskID) {
		return ErrDuplicatePayment
	}
	s.payments = append(s.payments, ScheduledPayment{TaskID: taskID, Amount: amount})
	return nil
}

// RemovePayment drops the entry for taskID if present.
func (s *PaymentSchedule) RemovePayment(taskID string) {
	out := s.payments[:0:0]
	for _, p := range s.payments {
		if p.TaskID != taskID {
			out = append(out, p)
		}
	}
	s.payments = out
}

func (s *PaymentSchedule) Has(taskID string) bool {
	for _, p := range s.payments {
		if p.TaskID == taskID {
			return true
		}
	}
	return false
}

// Payments returns a copy of the working list.
func (s *PaymentSchedule) Payments() []ScheduledPayment {
	out := make([]ScheduledPayment, len(s.payments))
	copy(out, s.payments)
	return out
}

// Total sums the scheduled amounts.
func (s *PaymentSchedule) Total() float64 {
	var total float64
	for _, p := range s.payments {
		total += p.Amount
	}
	return total
}

// Save applies the working list to tasks with replace semantics: tasks in the
// schedule become milestone payments with the scheduled amount and every other
// task has its payment fields stripped. The input slice is not modified.
func (s *PaymentSchedule) Save(tasks []Task) []Task {
	amounts := make(map[string]float64, len(s.payments))
	for _, p := range s.payments {
		amounts[p.TaskID] = p.Amount
	}

	out := make([]Task, len(tasks))
	for i, t := range tasks {
		if amount, ok := amounts[t.ID]; ok {
			a := amount
			t.IsMilestonePayment = true
			t.PaymentAmount = &a
		} else {
			t.ClearPayment()
		}
		out[i] = t
	}
	return out
}

// MissingPayments returns the ids of tasks with no payment or a zero one.
func MissingPayments(tasks []Task) []string {
	var missing []string
	for _, t := range tasks {
		if t.PaymentAmount == nil || *t.PaymentAmount <= 0 {
			missing = append(missing, t.ID)
		}
	}
	return missing
}

// CanSubmit reports whether the task list satisfies the submission
// precondition: at least one task and a positive payment on every task.
func CanSubmit(tasks []Task) bool {
	return len(tasks) > 0 && len(MissingPayments(tasks)) == 0
}
