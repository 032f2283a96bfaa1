package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"quotebuilder/ai"
)

type addNoteRequest struct {
	Note      string `json:"note"`
	Summarize bool   `json:"summarize"`
}

// HandleTaskAddNote handles POST /quote/v2/{id}/tasks/{taskId}/notes
// Appends a note to the task. With summarize set and a summarizer
// configured, the note is condensed first.
func HandleTaskAddNote(app *pocketbase.PocketBase, summarizer Summarizer) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		taskID := e.Request.PathValue("taskId")

		quote, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return respondNotFound(e, "Quote not found")
		}
		if !requireEditable(e, quote) {
			return nil
		}

		record, err := findQuoteTask(app, quote.Id, taskID)
		if err != nil {
			return respondNotFound(e, "Task not found")
		}

		var req addNoteRequest
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}

		note := req.Note
		if req.Summarize && summarizer != nil {
			summary, err := summarizer.Summarize(e.Request.Context(), note)
			if errors.Is(err, ai.ErrNotConfigured) {
				return ErrorToast(e, http.StatusServiceUnavailable, aiUnavailable)
			}
			if err != nil {
				return respondUpstreamError(e, "task_notes: HandleTaskAddNote: summarize failed", err,
					"We couldn't summarize this note. Please try again.")
			}
			if summary != "" {
				note = summary
			}
		}

		task := taskFromRecord(record)
		if !task.AppendNote(note) {
			return respondInvalid(e, http.StatusBadRequest, "Note cannot be empty", map[string]string{"note": "cannot be blank"})
		}

		saved, err := saveTask(app, record, task)
		if err != nil {
			return respondServerError(e, "task_notes: HandleTaskAddNote: save failed", err)
		}
		return respondOK(e, taskPayload(saved, quote.GetBool("combined_costs")), "Note added")
	}
}
