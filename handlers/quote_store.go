package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"quotebuilder/services"
)

// quoteStatus returns the stored status, treating an empty value as draft.
func quoteStatus(quote *core.Record) services.QuoteStatus {
	if s := quote.GetString("status"); s != "" {
		return services.QuoteStatus(s)
	}
	return services.StatusDraft
}

// jsonField returns the raw JSON stored in a record field.
func jsonField(r *core.Record, name string) []byte {
	switch v := r.Get(name).(type) {
	case nil:
		return nil
	case types.JSONRaw:
		return []byte(v)
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return data
	}
}

// taskFromRecord maps a quote_tasks record onto a Task. Malformed stored
// numbers decode as zero.
func taskFromRecord(r *core.Record) services.Task {
	t := services.Task{
		ID:                 r.Id,
		Title:              r.GetString("title"),
		Description:        r.GetString("description"),
		Timeframe:          r.GetInt("timeframe"),
		TimeframeUnit:      services.TimeframeUnit(r.GetString("timeframe_unit")),
		StartDate:          r.GetString("start_date"),
		EndDate:            r.GetString("end_date"),
		Materials:          services.DecodeMaterials(jsonField(r, "materials")),
		Labor:              services.DecodeLabor(jsonField(r, "labor")),
		IsMilestonePayment: r.GetBool("is_milestone_payment"),
		Notes:              services.DecodeNotes(jsonField(r, "notes")),
		IsAdditional:       r.GetBool("is_additional"),
		AdditionalStatus:   services.AdditionalStatus(r.GetString("additional_status")),
	}
	if t.TimeframeUnit == "" {
		t.TimeframeUnit = services.UnitDays
	}
	if amount := r.GetFloat("payment_amount"); amount > 0 {
		t.PaymentAmount = &amount
	}
	return t
}

// applyTask copies t onto record. Derived fields are recomputed first.
func applyTask(record *core.Record, quoteID string, sortOrder int, t services.Task) error {
	t.Materials = services.NormalizeMaterials(t.Materials)
	if err := t.Recompute(); err != nil {
		return err
	}
	if t.Notes == nil {
		t.Notes = []string{}
	}

	record.Set("quote", quoteID)
	record.Set("sort_order", sortOrder)
	record.Set("title", strings.TrimSpace(t.Title))
	record.Set("description", t.Description)
	record.Set("timeframe", t.Timeframe)
	record.Set("timeframe_unit", string(t.TimeframeUnit))
	record.Set("start_date", t.StartDate)
	record.Set("end_date", t.EndDate)
	record.Set("materials", t.Materials)
	if t.Labor != nil {
		record.Set("labor", t.Labor)
	} else {
		record.Set("labor", nil)
	}
	if t.PaymentAmount != nil && *t.PaymentAmount > 0 {
		record.Set("is_milestone_payment", true)
		record.Set("payment_amount", *t.PaymentAmount)
	} else {
		record.Set("is_milestone_payment", false)
		record.Set("payment_amount", 0)
	}
	record.Set("notes", t.Notes)
	record.Set("is_additional", t.IsAdditional)
	record.Set("additional_status", string(t.AdditionalStatus))
	return nil
}

// loadTasks returns a quote's tasks in display order.
func loadTasks(app core.App, quoteID string) ([]services.Task, error) {
	records, err := app.FindRecordsByFilter(
		"quote_tasks",
		"quote = {:quoteId}",
		"sort_order",
		0,
		0,
		map[string]any{"quoteId": quoteID},
	)
	if err != nil {
		return nil, fmt.Errorf("load tasks for quote %s: %w", quoteID, err)
	}
	tasks := make([]services.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, taskFromRecord(r))
	}
	return tasks, nil
}

// findQuoteTask loads one task and checks that it belongs to quoteID.
func findQuoteTask(app core.App, quoteID, taskID string) (*core.Record, error) {
	record, err := app.FindRecordById("quote_tasks", taskID)
	if err != nil {
		return nil, err
	}
	if record.GetString("quote") != quoteID {
		return nil, fmt.Errorf("task %s does not belong to quote %s", taskID, quoteID)
	}
	return record, nil
}

// saveTask persists a single edited task in place.
func saveTask(app core.App, record *core.Record, t services.Task) (services.Task, error) {
	if err := applyTask(record, record.GetString("quote"), record.GetInt("sort_order"), t); err != nil {
		return services.Task{}, err
	}
	if err := app.Save(record); err != nil {
		return services.Task{}, err
	}
	return taskFromRecord(record), nil
}

// replaceTasks makes the stored task set for quoteID equal to tasks, in
// order. Tasks whose id is unknown to the store are created; stored tasks
// missing from the list are deleted. The returned map links every incoming
// temporary id to the id the store assigned. Must run inside a transaction.
func replaceTasks(txApp core.App, quoteID string, tasks []services.Task) (map[string]string, error) {
	existing, err := txApp.FindRecordsByFilter(
		"quote_tasks",
		"quote = {:quoteId}",
		"",
		0,
		0,
		map[string]any{"quoteId": quoteID},
	)
	if err != nil {
		return nil, fmt.Errorf("replace tasks: query existing: %w", err)
	}
	byID := make(map[string]*core.Record, len(existing))
	for _, r := range existing {
		byID[r.Id] = r
	}

	col, err := txApp.FindCollectionByNameOrId("quote_tasks")
	if err != nil {
		return nil, fmt.Errorf("replace tasks: %w", err)
	}

	idMap := make(map[string]string)
	kept := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		record, ok := byID[t.ID]
		if !ok || kept[t.ID] {
			record = core.NewRecord(col)
		}
		if err := applyTask(record, quoteID, i+1, t); err != nil {
			return nil, fmt.Errorf("replace tasks: task %q: %w", t.Title, err)
		}
		if err := txApp.Save(record); err != nil {
			return nil, fmt.Errorf("replace tasks: save %q: %w", t.Title, err)
		}
		kept[record.Id] = true
		if t.ID != "" && t.ID != record.Id {
			idMap[t.ID] = record.Id
		}
	}

	for id, r := range byID {
		if kept[id] {
			continue
		}
		if err := txApp.Delete(r); err != nil {
			return nil, fmt.Errorf("replace tasks: delete %s: %w", id, err)
		}
	}
	return idMap, nil
}
