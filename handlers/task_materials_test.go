package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase"

	"quotebuilder/services"
	"quotebuilder/testhelpers"
)

type taskPayloadData struct {
	Task      services.Task          `json:"task"`
	Breakdown services.CostBreakdown `json:"breakdown"`
}

func addMaterial(t *testing.T, app *pocketbase.PocketBase, quoteID, taskID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := newJSONRequest(http.MethodPost, "/quote/v2/"+quoteID+"/tasks/"+taskID+"/materials", body)
	req.SetPathValue("id", quoteID)
	req.SetPathValue("taskId", taskID)
	rec := httptest.NewRecorder()
	if err := HandleTaskAddMaterial(app)(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestHandleTaskAddMaterial_MergesRepeatedItem(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	item := testhelpers.CreateTestInventoryItem(t, app, "Subway tile", "Kitchen", "Backsplash", 3.25)
	quote := testhelpers.CreateTestQuote(t, app, "Materials", services.StatusDraft)
	task := testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{Title: "Backsplash", Timeframe: 2})

	for i := 0; i < 2; i++ {
		rec := addMaterial(t, app, quote.Id, task.Id, `{"itemId":"`+item.Id+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("add %d: status = %d; body %s", i, rec.Code, rec.Body.String())
		}
	}

	stored, _ := app.FindRecordById("quote_tasks", task.Id)
	got := taskFromRecord(stored)
	if len(got.Materials) != 1 {
		t.Fatalf("materials = %d, want 1 merged line", len(got.Materials))
	}
	if got.Materials[0].Quantity != 2 || got.Materials[0].Price != 3.25 {
		t.Errorf("line = %+v", got.Materials[0])
	}

	inventory, _ := app.FindRecordById("inventory_items", item.Id)
	if inventory.GetFloat("price") != 3.25 {
		t.Error("catalog item must not change")
	}
}

func TestHandleTaskAddMaterial_DroppedItem(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "Materials", services.StatusDraft)
	quote.Set("combined_costs", true)
	if err := app.Save(quote); err != nil {
		t.Fatalf("save quote: %v", err)
	}
	task := testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{Title: "Paint", Timeframe: 1})

	rec := addMaterial(t, app, quote.Id, task.Id, `{"item":{"id":"paint-1","name":"Paint","unit":"gal","price":40}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	_, raw := decodeResponse(t, rec)
	var data taskPayloadData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Breakdown.Total != 40 {
		t.Errorf("total = %v, want 40", data.Breakdown.Total)
	}
	if data.Breakdown.Materials != nil {
		t.Error("combined quotes should not split the breakdown")
	}
}

func TestHandleTaskAddMaterial_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		status     services.QuoteStatus
		body       string
		wrongTask  bool
		wantStatus int
	}{
		{"no item", services.StatusDraft, `{}`, false, http.StatusBadRequest},
		{"unknown item id", services.StatusDraft, `{"itemId":"missing"}`, false, http.StatusNotFound},
		{"task from another quote", services.StatusDraft, `{"item":{"id":"x","name":"X"}}`, true, http.StatusNotFound},
		{"read-only quote", services.StatusActive, `{"item":{"id":"x","name":"X"}}`, false, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			quote := testhelpers.CreateTestQuote(t, app, "Materials", tt.status)
			owner := quote
			if tt.wrongTask {
				owner = testhelpers.CreateTestQuote(t, app, "Other", services.StatusDraft)
			}
			task := testhelpers.CreateTestTask(t, app, owner.Id, 1, services.Task{Title: "T", Timeframe: 1})

			rec := addMaterial(t, app, quote.Id, task.Id, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandleTaskMaterialQuantity(t *testing.T) {
	tests := []struct {
		name       string
		delta      string
		material   string
		wantStatus int
		wantQty    int
		wantLines  int
	}{
		{"increment", `{"delta":1}`, "m1", http.StatusOK, 3, 1},
		{"decrement", `{"delta":-1}`, "m1", http.StatusOK, 1, 1},
		{"below one removes line", `{"delta":-2}`, "m1", http.StatusOK, 0, 0},
		{"zero delta", `{"delta":0}`, "m1", http.StatusBadRequest, 2, 1},
		{"unknown material", `{"delta":1}`, "m9", http.StatusNotFound, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			quote := testhelpers.CreateTestQuote(t, app, "Qty", services.StatusInProgress)
			task := testhelpers.CreateTestTask(t, app, quote.Id, 1, services.Task{
				Title: "Tile", Timeframe: 1,
				Materials: []services.Material{{ID: "m1", Name: "Tile", Quantity: 2, Price: 5}},
			})

			path := "/quote/v2/" + quote.Id + "/tasks/" + task.Id + "/materials/" + tt.material
			req := newJSONRequest(http.MethodPatch, path, tt.delta)
			req.SetPathValue("id", quote.Id)
			req.SetPathValue("taskId", task.Id)
			req.SetPathValue("materialId", tt.material)
			rec := httptest.NewRecorder()
			if err := HandleTaskMaterialQuantity(app)(newTestRequestEvent(app, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			stored, _ := app.FindRecordById("quote_tasks", task.Id)
			got := taskFromRecord(stored)
			if len(got.Materials) != tt.wantLines {
				t.Fatalf("lines = %d, want %d", len(got.Materials), tt.wantLines)
			}
			if tt.wantLines > 0 && got.Materials[0].Quantity != tt.wantQty {
				t.Errorf("quantity = %d, want %d", got.Materials[0].Quantity, tt.wantQty)
			}
		})
	}
}
