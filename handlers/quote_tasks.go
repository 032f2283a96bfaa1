package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"quotebuilder/services"
)

// QuoteView is the payload describing a quote and its task set.
type QuoteView struct {
	ID              string                   `json:"id"`
	Title           string                   `json:"title"`
	ReferenceNumber string                   `json:"referenceNumber"`
	Customer        string                   `json:"customer"`
	Category        string                   `json:"category"`
	ProjectType     string                   `json:"projectType"`
	Status          services.QuoteStatus     `json:"status"`
	StatusLabel     string                   `json:"statusLabel"`
	StatusColor     string                   `json:"statusColor"`
	Editable        bool                     `json:"editable"`
	CombinedCosts   bool                     `json:"combinedCosts"`
	ReviewerMessage string                   `json:"reviewerMessage,omitempty"`
	Tasks           []services.Task          `json:"tasks"`
	Summary         services.ProjectSummary  `json:"summary"`
	Combined        services.CombinedSummary `json:"combinedSummary"`
	MissingPayments []string                 `json:"missingPayments"`
	CanSubmit       bool                     `json:"canSubmit"`
}

// buildQuoteView loads the quote's tasks and derives every total.
func buildQuoteView(app core.App, quote *core.Record) (QuoteView, error) {
	tasks, err := loadTasks(app, quote.Id)
	if err != nil {
		return QuoteView{}, err
	}
	status := quoteStatus(quote)
	display := services.DisplayStatus(status)

	return QuoteView{
		ID:              quote.Id,
		Title:           quote.GetString("title"),
		ReferenceNumber: quote.GetString("reference_number"),
		Customer:        quote.GetString("customer"),
		Category:        quote.GetString("category"),
		ProjectType:     quote.GetString("project_type"),
		Status:          status,
		StatusLabel:     display.Label,
		StatusColor:     display.Color,
		Editable:        status.Editable(),
		CombinedCosts:   quote.GetBool("combined_costs"),
		ReviewerMessage: quote.GetString("reviewer_message"),
		Tasks:           tasks,
		Summary:         services.CalculateProjectSummary(tasks),
		Combined:        services.CalculateCombinedSummary(tasks),
		MissingPayments: services.MissingPayments(tasks),
		CanSubmit:       status.Editable() && services.CanSubmit(tasks),
	}, nil
}

// LoadQuoteView loads a quote by id and derives its view.
func LoadQuoteView(app core.App, quoteID string) (QuoteView, error) {
	quote, err := app.FindRecordById("quotes", quoteID)
	if err != nil {
		return QuoteView{}, fmt.Errorf("quote %s: %w", quoteID, err)
	}
	return buildQuoteView(app, quote)
}

// parseTaskPayload accepts either a bare JSON array of tasks or an object
// with a "tasks" array.
func parseTaskPayload(r io.Reader) ([]services.Task, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty request body")
	}

	var tasks []services.Task
	if body[0] == '[' {
		if err := json.Unmarshal(body, &tasks); err != nil {
			return nil, err
		}
		return tasks, nil
	}

	var wrapped struct {
		Tasks []services.Task `json:"tasks"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Tasks == nil {
		return []services.Task{}, nil
	}
	return wrapped.Tasks, nil
}

// validateTasks returns per-field errors keyed as tasks.<index>.<field>.
func validateTasks(tasks []services.Task) map[string]string {
	out := make(map[string]string)
	seen := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if id := strings.TrimSpace(t.ID); id != "" {
			if first, ok := seen[id]; ok {
				out[fmt.Sprintf("tasks.%d.id", i)] = fmt.Sprintf("duplicates the id of task %d", first+1)
			} else {
				seen[id] = i
			}
		}
		err := t.Validate()
		if err == nil {
			continue
		}
		fe := fieldErrors(err)
		if fe == nil {
			out[fmt.Sprintf("tasks.%d", i)] = err.Error()
			continue
		}
		for field, msg := range fe {
			out[fmt.Sprintf("tasks.%d.%s", i, field)] = msg
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

const readOnlyMessage = "This quote is awaiting approval or already approved and can no longer be edited."

// requireEditable writes a 409 response and returns false when the quote's
// tasks may not change.
func requireEditable(e *core.RequestEvent, quote *core.Record) bool {
	if quoteStatus(quote).Editable() {
		return true
	}
	_ = respondInvalid(e, http.StatusConflict, readOnlyMessage, nil)
	return false
}

type createQuoteRequest struct {
	Title           string `json:"title"`
	ReferenceNumber string `json:"referenceNumber"`
	CustomerID      string `json:"customerId"`
	Category        string `json:"category"`
	ProjectType     string `json:"projectType"`
}

func (r createQuoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.ReferenceNumber, validation.Length(0, 60)),
	)
}

// HandleQuoteCreate handles POST /quote/v2
// Creates an empty draft quote.
func HandleQuoteCreate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req createQuoteRequest
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}
		req.Title = strings.TrimSpace(req.Title)
		if err := req.Validate(); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Please fix the errors below", fieldErrors(err))
		}
		if req.CustomerID != "" {
			if _, err := app.FindRecordById("customers", req.CustomerID); err != nil {
				return respondInvalid(e, http.StatusBadRequest, "Customer not found", map[string]string{"customerId": "unknown customer"})
			}
		}

		col, err := app.FindCollectionByNameOrId("quotes")
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteCreate: could not find quotes collection", err)
		}

		record := core.NewRecord(col)
		record.Set("title", req.Title)
		record.Set("reference_number", strings.TrimSpace(req.ReferenceNumber))
		record.Set("contractor", contractorFrom(e))
		record.Set("customer", req.CustomerID)
		record.Set("category", req.Category)
		record.Set("project_type", req.ProjectType)
		record.Set("status", string(services.StatusDraft))
		if err := app.Save(record); err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteCreate: could not save quote", err)
		}

		view, err := buildQuoteView(app, record)
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteCreate: buildQuoteView failed", err)
		}
		return respondOK(e, view, "Quote created")
	}
}

// HandleQuoteTasks handles GET /quote/v2/tasks/{id}
// Returns the quote's tasks together with its summaries and status.
func HandleQuoteTasks(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")

		quote, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return respondNotFound(e, "Quote not found")
		}

		view, err := buildQuoteView(app, quote)
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteTasks: failed to load tasks", err)
		}
		return respondOK(e, view, "")
	}
}

// HandleQuoteTasksSave handles PUT /quote/v2/{id}/tasks
// Saves the working task set without submitting it. A draft quote moves to
// in-progress on its first save.
func HandleQuoteTasksSave(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")

		quote, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return respondNotFound(e, "Quote not found")
		}
		if !requireEditable(e, quote) {
			return nil
		}

		tasks, err := parseTaskPayload(e.Request.Body)
		if err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid task data", nil)
		}
		if errs := validateTasks(tasks); errs != nil {
			return respondInvalid(e, http.StatusBadRequest, "Please fix the errors below", errs)
		}

		var idMap map[string]string
		err = app.RunInTransaction(func(txApp core.App) error {
			var err error
			idMap, err = replaceTasks(txApp, quote.Id, tasks)
			if err != nil {
				return err
			}
			quote.Set("status", string(services.StartEditing(quoteStatus(quote))))
			return txApp.Save(quote)
		})
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteTasksSave: save failed", err)
		}

		view, err := buildQuoteView(app, quote)
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteTasksSave: buildQuoteView failed", err)
		}
		return respondOK(e, map[string]any{"quote": view, "idMap": idMap}, "Tasks saved")
	}
}

// HandleQuoteSubmit handles POST /quote/v2/add/{id}/tasks?combinedCosts=<bool>
// Replaces the quote's task set and submits it for approval. Every task must
// carry a milestone payment.
func HandleQuoteSubmit(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")

		quote, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return respondNotFound(e, "Quote not found")
		}

		tasks, err := parseTaskPayload(e.Request.Body)
		if err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid task data", nil)
		}

		err = services.CheckSubmission(quoteStatus(quote), tasks)
		var missing *services.MissingPaymentsError
		switch {
		case err == nil:
		case errors.Is(err, services.ErrQuoteReadOnly):
			return respondInvalid(e, http.StatusConflict, readOnlyMessage, nil)
		case errors.As(err, &missing):
			SetToast(e, "warning", "Please add a payment amount to every task before submitting.")
			return e.JSON(http.StatusUnprocessableEntity, ApiResponse{
				Success: false,
				Error:   "Please add a payment amount to every task before submitting.",
				Data:    map[string]any{"missingPayments": missing.TaskIDs},
			})
		case errors.Is(err, services.ErrNoTasks):
			return respondInvalid(e, http.StatusUnprocessableEntity, "Add at least one task before submitting.", nil)
		default:
			return respondServerError(e, "quote_tasks: HandleQuoteSubmit: unexpected submission error", err)
		}

		if errs := validateTasks(tasks); errs != nil {
			return respondInvalid(e, http.StatusBadRequest, "Please fix the errors below", errs)
		}

		combined := cast.ToBool(e.Request.URL.Query().Get("combinedCosts"))

		var idMap map[string]string
		err = app.RunInTransaction(func(txApp core.App) error {
			var err error
			idMap, err = replaceTasks(txApp, quote.Id, tasks)
			if err != nil {
				return err
			}
			quote.Set("combined_costs", combined)
			quote.Set("status", string(services.StatusApprovalPending))
			quote.Set("reviewer_message", "")
			quote.Set("submitted_at", time.Now().UTC())
			return txApp.Save(quote)
		})
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteSubmit: submit failed", err)
		}

		log.Info().Str("quote", quote.Id).Int("tasks", len(tasks)).Bool("combined", combined).
			Msg("quote_tasks: HandleQuoteSubmit: quote submitted for approval")

		view, err := buildQuoteView(app, quote)
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteSubmit: buildQuoteView failed", err)
		}

		EmitEvent(e, EventOpenChat)
		return respondOK(e, map[string]any{"quote": view, "idMap": idMap},
			"Your quote has been sent to the customer for approval.")
	}
}

type reviewRequest struct {
	Decision services.ReviewDecision `json:"decision"`
	Message  string                  `json:"message"`
}

// HandleQuoteReview handles PUT /quote/v2/{id}/review
// Records the external reviewer's decision on a submitted quote.
func HandleQuoteReview(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")

		quote, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return respondNotFound(e, "Quote not found")
		}

		var req reviewRequest
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}

		if req.Decision != services.DecisionApproved && req.Decision != services.DecisionRejected {
			return respondInvalid(e, http.StatusBadRequest, "Decision must be approved or rejected",
				map[string]string{"decision": "must be approved or rejected"})
		}

		next, err := services.ResolveReview(quoteStatus(quote), req.Decision)
		if err != nil {
			return respondInvalid(e, http.StatusConflict, "This quote is not awaiting a decision.", nil)
		}

		quote.Set("status", string(next))
		quote.Set("reviewer_message", strings.TrimSpace(req.Message))
		if err := app.Save(quote); err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteReview: could not save quote", err)
		}

		view, err := buildQuoteView(app, quote)
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteReview: buildQuoteView failed", err)
		}
		return respondOK(e, view, "Quote "+services.DisplayStatus(next).Label)
	}
}

// HandleQuoteCombinedCosts handles PUT /quote/v2/{id}/combined-costs
// Persists the combined-costs display preference.
func HandleQuoteCombinedCosts(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")

		quote, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return respondNotFound(e, "Quote not found")
		}
		if !requireEditable(e, quote) {
			return nil
		}

		var req struct {
			CombinedCosts bool `json:"combinedCosts"`
		}
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}

		quote.Set("combined_costs", req.CombinedCosts)
		if err := app.Save(quote); err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteCombinedCosts: could not save quote", err)
		}
		return respondOK(e, map[string]bool{"combinedCosts": req.CombinedCosts}, "")
	}
}

// HandleStandardTasks handles GET /quote/v2/standard-tasks?category=&type=
// Without a category it lists the catalog's categories; with a category but
// no type it lists that category's project types.
func HandleStandardTasks() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		category := strings.TrimSpace(e.Request.URL.Query().Get("category"))
		projectType := strings.TrimSpace(e.Request.URL.Query().Get("type"))

		switch {
		case category == "":
			return respondOK(e, map[string]any{"categories": services.StandardCategories()}, "")
		case projectType == "":
			return respondOK(e, map[string]any{"projectTypes": services.StandardProjectTypes(category)}, "")
		default:
			return respondOK(e, map[string]any{"tasks": services.GetStandardTasks(category, projectType)}, "")
		}
	}
}

type applyTemplateRequest struct {
	Category    string `json:"category"`
	ProjectType string `json:"projectType"`
	StartDate   string `json:"startDate"`
}

func (r applyTemplateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Category, validation.Required),
		validation.Field(&r.ProjectType, validation.Required),
		validation.Field(&r.StartDate, validation.Date(services.DateLayout)),
	)
}

// HandleQuoteApplyTemplate handles POST /quote/v2/{id}/tasks/from-template
// Appends the standard tasks for a category and project type to the quote.
// Each task starts when the previous one ends.
func HandleQuoteApplyTemplate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")

		quote, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return respondNotFound(e, "Quote not found")
		}
		if !requireEditable(e, quote) {
			return nil
		}

		var req applyTemplateRequest
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}
		if err := req.Validate(); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Please fix the errors below", fieldErrors(err))
		}

		templates := services.GetStandardTasks(req.Category, req.ProjectType)
		if len(templates) == 0 {
			return respondInvalid(e, http.StatusBadRequest, "No standard tasks for this project type", nil)
		}

		start := time.Now().UTC()
		if req.StartDate != "" {
			start, _ = services.ParseDate(req.StartDate)
		}

		existing, err := loadTasks(app, quote.Id)
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteApplyTemplate: failed to load tasks", err)
		}

		list := services.TaskList(existing)
		for _, tpl := range templates {
			task := services.NewTaskFromTemplate(tpl, start)
			list = list.Add(task)
			if end, err := services.ParseDate(task.EndDate); err == nil {
				start = end
			}
		}

		var idMap map[string]string
		err = app.RunInTransaction(func(txApp core.App) error {
			var err error
			idMap, err = replaceTasks(txApp, quote.Id, list)
			if err != nil {
				return err
			}
			quote.Set("category", req.Category)
			quote.Set("project_type", req.ProjectType)
			quote.Set("status", string(services.StartEditing(quoteStatus(quote))))
			return txApp.Save(quote)
		})
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteApplyTemplate: save failed", err)
		}

		view, err := buildQuoteView(app, quote)
		if err != nil {
			return respondServerError(e, "quote_tasks: HandleQuoteApplyTemplate: buildQuoteView failed", err)
		}
		return respondOK(e, map[string]any{"quote": view, "idMap": idMap},
			fmt.Sprintf("Added %d standard tasks", len(templates)))
	}
}
