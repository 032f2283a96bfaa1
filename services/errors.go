package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoTaskSelected    = errors.New("please select a task")
	ErrInvalidAmount     = errors.New("please enter a valid payment amount")
	ErrDuplicatePayment  = errors.New("this task already has a scheduled payment")
	ErrNoTasks           = errors.New("add at least one task before submitting")
	ErrMissingPayments   = errors.New("every task needs a payment amount before submitting")
	ErrQuoteReadOnly     = errors.New("quote is awaiting approval or already approved and cannot be edited")
	ErrInvalidTransition = errors.New("invalid quote status transition")
)

// MissingPaymentsError lists the tasks blocking submission. It matches
// ErrMissingPayments with errors.Is.
type MissingPaymentsError struct {
	TaskIDs []string
}

func (e *MissingPaymentsError) Error() string {
	return fmt.Sprintf("%s (%d missing: %s)", ErrMissingPayments.Error(), len(e.TaskIDs), strings.Join(e.TaskIDs, ", "))
}

func (e *MissingPaymentsError) Is(target error) bool {
	return target == ErrMissingPayments
}
