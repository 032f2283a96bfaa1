package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"

	"quotebuilder/services"
)

type paymentScheduleRequest struct {
	Payments []struct {
		TaskID string `json:"taskId"`
		Amount any    `json:"amount"`
	} `json:"payments"`
}

// HandlePaymentSchedule handles PUT /quote/v2/{id}/payment-schedule
// Replaces the quote's milestone payments. Tasks not in the schedule lose
// their payment; the whole request is rejected if any entry is invalid.
func HandlePaymentSchedule(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")

		quote, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return respondNotFound(e, "Quote not found")
		}
		if !requireEditable(e, quote) {
			return nil
		}

		var req paymentScheduleRequest
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}

		tasks, err := loadTasks(app, quote.Id)
		if err != nil {
			return respondServerError(e, "quote_payments: HandlePaymentSchedule: failed to load tasks", err)
		}
		known := services.TaskList(tasks)

		schedule := &services.PaymentSchedule{}
		for _, p := range req.Payments {
			if p.TaskID != "" {
				if _, ok := known.Find(p.TaskID); !ok {
					return respondInvalid(e, http.StatusBadRequest, "Payment refers to an unknown task",
						map[string]string{p.TaskID: "unknown task"})
				}
			}
			if err := schedule.AddPayment(p.TaskID, cast.ToString(p.Amount)); err != nil {
				return respondInvalid(e, http.StatusBadRequest, paymentErrorMessage(err), map[string]string{p.TaskID: err.Error()})
			}
		}

		updated := schedule.Save(tasks)

		err = app.RunInTransaction(func(txApp core.App) error {
			for _, t := range updated {
				record, err := findQuoteTask(txApp, quote.Id, t.ID)
				if err != nil {
					return err
				}
				if _, err := saveTask(txApp, record, t); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return respondServerError(e, "quote_payments: HandlePaymentSchedule: save failed", err)
		}

		view, err := buildQuoteView(app, quote)
		if err != nil {
			return respondServerError(e, "quote_payments: HandlePaymentSchedule: buildQuoteView failed", err)
		}
		return respondOK(e, view, "Payment schedule saved")
	}
}

func paymentErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNoTaskSelected):
		return "Please select a task"
	case errors.Is(err, services.ErrInvalidAmount):
		return "Please enter a valid amount"
	case errors.Is(err, services.ErrDuplicatePayment):
		return "A payment for this task already exists"
	default:
		return "Invalid payment"
	}
}
