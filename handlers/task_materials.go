package handlers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"quotebuilder/services"
)

type addMaterialRequest struct {
	ItemID string                `json:"itemId"`
	Item   *services.CatalogItem `json:"item"`
}

// catalogItemFromRecord maps an inventory_items record onto a CatalogItem.
func catalogItemFromRecord(r *core.Record) services.CatalogItem {
	return services.CatalogItem{
		ID:          r.Id,
		Name:        r.GetString("name"),
		Description: r.GetString("description"),
		Category:    r.GetString("category"),
		Subcategory: r.GetString("subcategory"),
		Price:       r.GetFloat("price"),
		Unit:        r.GetString("unit"),
		Vendor:      r.GetString("vendor"),
	}
}

// HandleTaskAddMaterial handles POST /quote/v2/{id}/tasks/{taskId}/materials
// Adds a catalog item to the task, incrementing the quantity when the task
// already carries it. The item is given by id or, for drag and drop, as the
// serialized catalog item.
func HandleTaskAddMaterial(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
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

		var req addMaterialRequest
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}

		var item services.CatalogItem
		switch {
		case strings.TrimSpace(req.ItemID) != "":
			itemRecord, err := app.FindRecordById("inventory_items", req.ItemID)
			if err != nil {
				return respondNotFound(e, "Material not found")
			}
			item = catalogItemFromRecord(itemRecord)
		case req.Item != nil && strings.TrimSpace(req.Item.ID) != "" && strings.TrimSpace(req.Item.Name) != "":
			item = *req.Item
		default:
			return respondInvalid(e, http.StatusBadRequest, "Please choose a material", map[string]string{"itemId": "required"})
		}

		task := services.AddMaterial(taskFromRecord(record), item)
		saved, err := saveTask(app, record, task)
		if err != nil {
			return respondServerError(e, "task_materials: HandleTaskAddMaterial: save failed", err)
		}

		return respondOK(e, taskPayload(saved, quote.GetBool("combined_costs")), "Added "+item.Name)
	}
}

// HandleTaskMaterialQuantity handles PATCH /quote/v2/{id}/tasks/{taskId}/materials/{materialId}
// Changes a material line's quantity by delta. A line dropping below 1 is
// removed from the task.
func HandleTaskMaterialQuantity(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		taskID := e.Request.PathValue("taskId")
		materialID := e.Request.PathValue("materialId")

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

		var req struct {
			Delta int `json:"delta"`
		}
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}
		if req.Delta == 0 {
			return respondInvalid(e, http.StatusBadRequest, "Quantity change must not be zero", map[string]string{"delta": "must not be zero"})
		}

		task, ok := services.UpdateQuantity(taskFromRecord(record), materialID, req.Delta)
		if !ok {
			return respondNotFound(e, "Material not found on this task")
		}

		saved, err := saveTask(app, record, task)
		if err != nil {
			return respondServerError(e, "task_materials: HandleTaskMaterialQuantity: save failed", err)
		}
		return respondOK(e, taskPayload(saved, quote.GetBool("combined_costs")), "")
	}
}

// taskPayload pairs a task with its cost breakdown.
func taskPayload(t services.Task, combined bool) map[string]any {
	return map[string]any{
		"task":      t,
		"breakdown": services.TaskCostBreakdown(t, combined),
	}
}
