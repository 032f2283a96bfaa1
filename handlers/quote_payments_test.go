package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"quotebuilder/services"
	"quotebuilder/testhelpers"
)

func TestHandlePaymentSchedule(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "Payments", services.StatusInProgress)
	a := testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{Title: "A", Timeframe: 1})
	b := testhelpers.CreateTestTask(t, app, quote.Id, 2, services.Task{Title: "B", Timeframe: 1, PaymentAmount: floatPtr(75)})

	body := `{"payments":[{"taskId":"` + a.Id + `","amount":" 1250.50 "}]}`
	req := newJSONRequest(http.MethodPut, "/quote/v2/"+quote.Id+"/payment-schedule", body)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	if err := HandlePaymentSchedule(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}

	_, raw := decodeResponse(t, rec)
	var view QuoteView
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Combined.TotalPaymentAmount != 1250.5 {
		t.Errorf("payment total = %v, want 1250.5", view.Combined.TotalPaymentAmount)
	}

	storedA, _ := app.FindRecordById("quote_tasks", a.Id)
	if !storedA.GetBool("is_milestone_payment") || storedA.GetFloat("payment_amount") != 1250.5 {
		t.Errorf("task A payment = %v flag = %v", storedA.GetFloat("payment_amount"), storedA.GetBool("is_milestone_payment"))
	}
	storedB, _ := app.FindRecordById("quote_tasks", b.Id)
	if storedB.GetBool("is_milestone_payment") || storedB.GetFloat("payment_amount") != 0 {
		t.Error("task left out of the schedule should lose its payment")
	}
}

func TestHandlePaymentSchedule_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		status     services.QuoteStatus
		payments   func(taskID string) string
		wantStatus int
	}{
		{
			name:       "numeric amount accepted",
			status:     services.StatusDraft,
			payments:   func(id string) string { return `[{"taskId":"` + id + `","amount":300}]` },
			wantStatus: http.StatusOK,
		},
		{
			name:       "zero amount",
			status:     services.StatusDraft,
			payments:   func(id string) string { return `[{"taskId":"` + id + `","amount":"0"}]` },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no task selected",
			status:     services.StatusDraft,
			payments:   func(string) string { return `[{"taskId":"","amount":"10"}]` },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown task",
			status:     services.StatusDraft,
			payments:   func(string) string { return `[{"taskId":"ghost","amount":"10"}]` },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "duplicate task",
			status: services.StatusDraft,
			payments: func(id string) string {
				return `[{"taskId":"` + id + `","amount":"10"},{"taskId":"` + id + `","amount":"20"}]`
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "read-only quote",
			status:     services.StatusApprovalPending,
			payments:   func(id string) string { return `[{"taskId":"` + id + `","amount":"10"}]` },
			wantStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			quote := testhelpers.CreateTestQuote(t, app, "Payments", tt.status)
			task := testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{Title: "A", Timeframe: 1})

			req := newJSONRequest(http.MethodPut, "/quote/v2/"+quote.Id+"/payment-schedule", `{"payments":`+tt.payments(task.Id)+`}`)
			req.SetPathValue("id", quote.Id)
			rec := httptest.NewRecorder()
			if err := HandlePaymentSchedule(app)(newTestRequestEvent(app, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				stored, _ := app.FindRecordById("quote_tasks", task.Id)
				if stored.GetFloat("payment_amount") != 0 {
					t.Error("rejected schedule must not change stored payments")
				}
			}
		})
	}
}
