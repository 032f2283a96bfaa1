package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quotebuilder/services"
	"quotebuilder/testhelpers"
)

type quoteSaveData struct {
	Quote QuoteView         `json:"quote"`
	IDMap map[string]string `json:"idMap"`
}

func floatPtr(f float64) *float64 { return &f }

func TestHandleQuoteCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"valid", `{"title":"Kitchen refresh","referenceNumber":"Q-1","category":"kitchen"}`, http.StatusOK, ""},
		{"missing title", `{"title":"   "}`, http.StatusBadRequest, "title"},
		{"unknown customer", `{"title":"Bath","customerId":"missing"}`, http.StatusBadRequest, "customerId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			req := newJSONRequest(http.MethodPost, "/quote/v2", tt.body)
			rec := httptest.NewRecorder()
			if err := HandleQuoteCreate(app)(newTestRequestEvent(app, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp, data := decodeResponse(t, rec)
			if tt.wantField != "" {
				if _, ok := resp.Errors[tt.wantField]; !ok {
					t.Errorf("expected error on %q, got %v", tt.wantField, resp.Errors)
				}
				return
			}
			var view QuoteView
			if err := json.Unmarshal(data, &view); err != nil {
				t.Fatalf("decode view: %v", err)
			}
			if view.Status != services.StatusDraft || !view.Editable {
				t.Errorf("new quote status = %q editable=%v", view.Status, view.Editable)
			}
			if view.ReferenceNumber != "Q-1" {
				t.Errorf("reference = %q", view.ReferenceNumber)
			}
		})
	}
}

func TestHandleQuoteTasks(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "Summary Quote", services.StatusInProgress)
	testhelpers.CreateTestTask(t, app, quote.Id, 2, services.Task{
		Title: "Second", Timeframe: 1, TimeframeUnit: services.UnitWeeks,
		Labor: &services.Labor{Hours: 1, Rate: 300},
	})
	first := testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{
		Title: "First", Timeframe: 3,
		Materials:     []services.Material{{ID: "m1", Name: "Tile", Quantity: 10, Price: 4}},
		PaymentAmount: floatPtr(100),
	})

	req := httptest.NewRequest(http.MethodGet, "/quote/v2/tasks/"+quote.Id, nil)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	if err := HandleQuoteTasks(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}

	_, data := decodeResponse(t, rec)
	var view QuoteView
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Tasks) != 2 || view.Tasks[0].ID != first.Id {
		t.Fatalf("tasks not in sort order: %+v", view.Tasks)
	}
	if view.Summary.TotalCost != 340 {
		t.Errorf("total cost = %v, want 340", view.Summary.TotalCost)
	}
	if view.Summary.TotalDays != 10 {
		t.Errorf("total days = %d, want 10", view.Summary.TotalDays)
	}
	if view.Combined.TotalWithPayments != 440 {
		t.Errorf("total with payments = %v, want 440", view.Combined.TotalWithPayments)
	}
	if len(view.MissingPayments) != 1 || view.CanSubmit {
		t.Errorf("missing = %v canSubmit = %v", view.MissingPayments, view.CanSubmit)
	}
}

func TestHandleQuoteTasks_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/quote/v2/tasks/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	if err := HandleQuoteTasks(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleQuoteTasksSave(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "Save Quote", services.StatusDraft)
	keep := testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{Title: "Keep", Timeframe: 1})
	drop := testhelpers.CreateTestTask(t, app, quote.Id, 2, services.Task{Title: "Drop", Timeframe: 1})

	body := `{"tasks":[
		{"id":"tmp-1","title":"New first","timeframe":2,"timeframeUnit":"days","startDate":"2026-03-02"},
		{"id":"` + keep.Id + `","title":"Keep renamed","timeframe":1,"timeframeUnit":"weeks"}
	]}`
	req := newJSONRequest(http.MethodPut, "/quote/v2/"+quote.Id+"/tasks", body)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	if err := HandleQuoteTasksSave(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}

	_, raw := decodeResponse(t, rec)
	var data quoteSaveData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Quote.Status != services.StatusInProgress {
		t.Errorf("status = %q, want in-progress", data.Quote.Status)
	}
	newID, ok := data.IDMap["tmp-1"]
	if !ok || newID == "" {
		t.Fatalf("idMap missing tmp-1: %v", data.IDMap)
	}
	if len(data.Quote.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(data.Quote.Tasks))
	}
	if data.Quote.Tasks[0].ID != newID || data.Quote.Tasks[0].EndDate != "2026-03-04" {
		t.Errorf("first task = %+v", data.Quote.Tasks[0])
	}
	if data.Quote.Tasks[1].ID != keep.Id || data.Quote.Tasks[1].Title != "Keep renamed" {
		t.Errorf("second task = %+v", data.Quote.Tasks[1])
	}
	if _, err := app.FindRecordById("quote_tasks", drop.Id); err == nil {
		t.Error("task left out of the save should be deleted")
	}
}

func TestHandleQuoteTasksSave_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		status     services.QuoteStatus
		body       string
		wantStatus int
	}{
		{"awaiting approval is read-only", services.StatusApprovalPending, `[]`, http.StatusConflict},
		{"active is read-only", services.StatusActive, `[]`, http.StatusConflict},
		{"malformed body", services.StatusDraft, `{"tasks":`, http.StatusBadRequest},
		{"invalid task", services.StatusDraft, `[{"id":"t","title":"","timeframe":0}]`, http.StatusBadRequest},
		{"rejected is editable", services.StatusRejected, `[]`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			quote := testhelpers.CreateTestQuote(t, app, "Q", tt.status)
			req := newJSONRequest(http.MethodPut, "/quote/v2/"+quote.Id+"/tasks", tt.body)
			req.SetPathValue("id", quote.Id)
			rec := httptest.NewRecorder()
			if err := HandleQuoteTasksSave(app)(newTestRequestEvent(app, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandleQuoteTasksSave_DuplicateIDs(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "Dup", services.StatusDraft)
	stored := testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{Title: "Stored", Timeframe: 1})

	body := `[
		{"id":"` + stored.Id + `","title":"First","timeframe":1},
		{"id":"` + stored.Id + `","title":"Second","timeframe":1},
		{"id":"tmp-1","title":"Third","timeframe":1},
		{"id":"tmp-1","title":"Fourth","timeframe":1}
	]`
	req := newJSONRequest(http.MethodPut, "/quote/v2/"+quote.Id+"/tasks", body)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	if err := HandleQuoteTasksSave(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}

	resp, _ := decodeResponse(t, rec)
	for _, field := range []string{"tasks.1.id", "tasks.3.id"} {
		if _, ok := resp.Errors[field]; !ok {
			t.Errorf("missing field error %q in %v", field, resp.Errors)
		}
	}
	for _, field := range []string{"tasks.0.id", "tasks.2.id"} {
		if _, ok := resp.Errors[field]; ok {
			t.Errorf("first occurrence %q should not be flagged", field)
		}
	}

	tasks, err := loadTasks(app, quote.Id)
	if err != nil {
		t.Fatalf("loadTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Stored" {
		t.Errorf("stored tasks changed: %+v", tasks)
	}
}

func TestHandleQuoteSubmit(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "Submit Quote", services.StatusInProgress)

	body := `[
		{"id":"tmp-a","title":"Framing","timeframe":3,"paymentAmount":500,"isMilestonePayment":true},
		{"id":"tmp-b","title":"Drywall","timeframe":2,"paymentAmount":250,"isMilestonePayment":true}
	]`
	req := newJSONRequest(http.MethodPost, "/quote/v2/add/"+quote.Id+"/tasks?combinedCosts=true", body)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	if err := HandleQuoteSubmit(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}

	resp, raw := decodeResponse(t, rec)
	var data quoteSaveData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Quote.Status != services.StatusApprovalPending || data.Quote.Editable {
		t.Errorf("status = %q editable = %v", data.Quote.Status, data.Quote.Editable)
	}
	if !data.Quote.CombinedCosts {
		t.Error("combined costs flag not stored")
	}
	if len(data.IDMap) != 2 {
		t.Errorf("idMap = %v", data.IDMap)
	}
	if !strings.Contains(rec.Header().Get("X-Events"), EventOpenChat) {
		t.Errorf("X-Events = %q, want open-chat", rec.Header().Get("X-Events"))
	}
	if len(resp.Events) != 1 || resp.Events[0] != EventOpenChat {
		t.Errorf("events = %v", resp.Events)
	}

	stored, err := app.FindRecordById("quotes", quote.Id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.GetDateTime("submitted_at").IsZero() {
		t.Error("submitted_at not set")
	}
}

func TestHandleQuoteSubmit_MissingPayments(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "Unpaid", services.StatusInProgress)
	existing := testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{Title: "Keep", Timeframe: 1})

	body := `[
		{"id":"tmp-a","title":"Paid","timeframe":1,"paymentAmount":100},
		{"id":"tmp-b","title":"Unpaid","timeframe":1}
	]`
	req := newJSONRequest(http.MethodPost, "/quote/v2/add/"+quote.Id+"/tasks", body)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	if err := HandleQuoteSubmit(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	_, raw := decodeResponse(t, rec)
	var data struct {
		MissingPayments []string `json:"missingPayments"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.MissingPayments) != 1 || data.MissingPayments[0] != "tmp-b" {
		t.Errorf("missing = %v, want [tmp-b]", data.MissingPayments)
	}

	if _, err := app.FindRecordById("quote_tasks", existing.Id); err != nil {
		t.Error("rejected submission must leave stored tasks untouched")
	}
	stored, _ := app.FindRecordById("quotes", quote.Id)
	if services.QuoteStatus(stored.GetString("status")) != services.StatusInProgress {
		t.Errorf("status changed to %q", stored.GetString("status"))
	}
}

func TestHandleQuoteSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		status     services.QuoteStatus
		body       string
		wantStatus int
	}{
		{"no tasks", services.StatusDraft, `[]`, http.StatusUnprocessableEntity},
		{"already submitted", services.StatusApprovalPending, `[{"id":"a","title":"A","timeframe":1,"paymentAmount":5}]`, http.StatusConflict},
		{"invalid task", services.StatusDraft, `[{"id":"a","title":"","timeframe":1,"paymentAmount":5}]`, http.StatusBadRequest},
		{"not json", services.StatusDraft, `tasks`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			quote := testhelpers.CreateTestQuote(t, app, "Q", tt.status)
			req := newJSONRequest(http.MethodPost, "/quote/v2/add/"+quote.Id+"/tasks", tt.body)
			req.SetPathValue("id", quote.Id)
			rec := httptest.NewRecorder()
			if err := HandleQuoteSubmit(app)(newTestRequestEvent(app, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandleQuoteReview(t *testing.T) {
	tests := []struct {
		name       string
		status     services.QuoteStatus
		body       string
		wantStatus int
		wantQuote  services.QuoteStatus
	}{
		{"approve", services.StatusApprovalPending, `{"decision":"approved"}`, http.StatusOK, services.StatusActive},
		{"reject with message", services.StatusApprovalPending, `{"decision":"rejected","message":"Too pricey"}`, http.StatusOK, services.StatusRejected},
		{"unknown decision", services.StatusApprovalPending, `{"decision":"maybe"}`, http.StatusBadRequest, services.StatusApprovalPending},
		{"not awaiting review", services.StatusDraft, `{"decision":"approved"}`, http.StatusConflict, services.StatusDraft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			quote := testhelpers.CreateTestQuote(t, app, "Review", tt.status)
			req := newJSONRequest(http.MethodPut, "/quote/v2/"+quote.Id+"/review", tt.body)
			req.SetPathValue("id", quote.Id)
			rec := httptest.NewRecorder()
			if err := HandleQuoteReview(app)(newTestRequestEvent(app, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			stored, err := app.FindRecordById("quotes", quote.Id)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if got := services.QuoteStatus(stored.GetString("status")); got != tt.wantQuote {
				t.Errorf("quote status = %q, want %q", got, tt.wantQuote)
			}
		})
	}
}

func TestHandleQuoteCombinedCosts(t *testing.T) {
	tests := []struct {
		name       string
		status     services.QuoteStatus
		wantStatus int
		wantStored bool
	}{
		{"draft", services.StatusDraft, http.StatusOK, true},
		{"rejected", services.StatusRejected, http.StatusOK, true},
		{"awaiting approval is read-only", services.StatusApprovalPending, http.StatusConflict, false},
		{"active is read-only", services.StatusActive, http.StatusConflict, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			quote := testhelpers.CreateTestQuote(t, app, "Combined", tt.status)

			req := newJSONRequest(http.MethodPut, "/quote/v2/"+quote.Id+"/combined-costs", `{"combinedCosts":true}`)
			req.SetPathValue("id", quote.Id)
			rec := httptest.NewRecorder()
			if err := HandleQuoteCombinedCosts(app)(newTestRequestEvent(app, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			stored, _ := app.FindRecordById("quotes", quote.Id)
			if got := stored.GetBool("combined_costs"); got != tt.wantStored {
				t.Errorf("combined_costs = %v, want %v", got, tt.wantStored)
			}
			if got := quoteStatus(stored); got != tt.status {
				t.Errorf("status changed to %q", got)
			}
		})
	}
}

func TestHandleStandardTasks(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantKey string
	}{
		{"categories", "", "categories"},
		{"project types", "?category=kitchen", "projectTypes"},
		{"tasks", "?category=kitchen&type=remodel", "tasks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/quote/v2/standard-tasks"+tt.query, nil)
			rec := httptest.NewRecorder()
			if err := HandleStandardTasks()(newTestRequestEvent(nil, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			_, raw := decodeResponse(t, rec)
			var data map[string]json.RawMessage
			if err := json.Unmarshal(raw, &data); err != nil {
				t.Fatalf("decode: %v", err)
			}
			list, ok := data[tt.wantKey]
			if !ok {
				t.Fatalf("missing %q in %s", tt.wantKey, raw)
			}
			var items []json.RawMessage
			if err := json.Unmarshal(list, &items); err != nil || len(items) == 0 {
				t.Errorf("%s should be a non-empty list, got %s", tt.wantKey, list)
			}
		})
	}
}

func TestHandleQuoteApplyTemplate(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "Template", services.StatusDraft)
	testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{Title: "Site visit", Timeframe: 1})

	body := `{"category":"kitchen","projectType":"remodel","startDate":"2026-01-05"}`
	req := newJSONRequest(http.MethodPost, "/quote/v2/"+quote.Id+"/tasks/from-template", body)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	if err := HandleQuoteApplyTemplate(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}

	_, raw := decodeResponse(t, rec)
	var data quoteSaveData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := len(services.GetStandardTasks("kitchen", "remodel")) + 1
	if len(data.Quote.Tasks) != want {
		t.Fatalf("tasks = %d, want %d", len(data.Quote.Tasks), want)
	}
	if data.Quote.Tasks[0].Title != "Site visit" {
		t.Errorf("existing task should stay first, got %q", data.Quote.Tasks[0].Title)
	}
	first, second := data.Quote.Tasks[1], data.Quote.Tasks[2]
	if first.StartDate != "2026-01-05" {
		t.Errorf("first template start = %q", first.StartDate)
	}
	if second.StartDate != first.EndDate {
		t.Errorf("second start %q should equal first end %q", second.StartDate, first.EndDate)
	}
	if data.Quote.Status != services.StatusInProgress {
		t.Errorf("status = %q", data.Quote.Status)
	}
}

func TestHandleQuoteApplyTemplate_UnknownType(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "Template", services.StatusDraft)

	req := newJSONRequest(http.MethodPost, "/quote/v2/"+quote.Id+"/tasks/from-template", `{"category":"kitchen","projectType":"spaceship"}`)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	if err := HandleQuoteApplyTemplate(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
