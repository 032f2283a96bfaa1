// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"quotebuilder/collections"
	"quotebuilder/services"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

func mustCollection(t *testing.T, app *pocketbase.PocketBase, name string) *core.Collection {
	t.Helper()
	col, err := app.FindCollectionByNameOrId(name)
	if err != nil {
		t.Fatalf("failed to find %s collection: %v", name, err)
	}
	return col
}

// CreateTestCustomer creates a lead owned by contractorID and returns it.
func CreateTestCustomer(t *testing.T, app *pocketbase.PocketBase, contractorID, name string) *core.Record {
	t.Helper()

	record := core.NewRecord(mustCollection(t, app, "customers"))
	record.Set("contractor", contractorID)
	record.Set("name", name)
	record.Set("email", strings.ToLower(strings.ReplaceAll(name, " ", "."))+"@example.com")
	record.Set("status", services.CustomerStatusLead)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test customer: %v", err)
	}

	return record
}

// CreateTestQuote creates a quote with the given title and status.
func CreateTestQuote(t *testing.T, app *pocketbase.PocketBase, title string, status services.QuoteStatus) *core.Record {
	t.Helper()

	record := core.NewRecord(mustCollection(t, app, "quotes"))
	record.Set("title", title)
	record.Set("contractor", "contractor-1")
	record.Set("category", "kitchen")
	record.Set("project_type", "remodel")
	record.Set("status", string(status))

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test quote: %v", err)
	}

	return record
}

// CreateTestTask stores task under quoteID at the given sort position. The
// task's ID is ignored; the returned record carries the server id.
func CreateTestTask(t *testing.T, app *pocketbase.PocketBase, quoteID string, sortOrder int, task services.Task) *core.Record {
	t.Helper()

	if task.TimeframeUnit == "" {
		task.TimeframeUnit = services.UnitDays
	}
	if task.Materials == nil {
		task.Materials = []services.Material{}
	}
	if task.Notes == nil {
		task.Notes = []string{}
	}

	record := core.NewRecord(mustCollection(t, app, "quote_tasks"))
	record.Set("quote", quoteID)
	record.Set("sort_order", sortOrder)
	record.Set("title", task.Title)
	record.Set("description", task.Description)
	record.Set("timeframe", task.Timeframe)
	record.Set("timeframe_unit", string(task.TimeframeUnit))
	record.Set("start_date", task.StartDate)
	record.Set("end_date", task.EndDate)
	record.Set("materials", task.Materials)
	if task.Labor != nil {
		record.Set("labor", task.Labor)
	}
	record.Set("is_milestone_payment", task.IsMilestonePayment)
	if task.PaymentAmount != nil {
		record.Set("payment_amount", *task.PaymentAmount)
	}
	record.Set("notes", task.Notes)
	record.Set("is_additional", task.IsAdditional)
	record.Set("additional_status", string(task.AdditionalStatus))

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test task: %v", err)
	}

	return record
}

// CreateTestMeeting creates a scheduled meeting for contractorID.
func CreateTestMeeting(t *testing.T, app *pocketbase.PocketBase, contractorID, title string, at time.Time) *core.Record {
	t.Helper()

	record := core.NewRecord(mustCollection(t, app, "meetings"))
	record.Set("contractor", contractorID)
	record.Set("title", title)
	record.Set("scheduled_at", at)
	record.Set("duration_minutes", 30)
	record.Set("status", string(services.MeetingScheduled))
	record.Set("attendee_email", "customer@example.com")
	record.Set("link_expires_at", at.Add(24*time.Hour))

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test meeting: %v", err)
	}

	return record
}

// CreateTestInventoryItem creates a catalog item.
func CreateTestInventoryItem(t *testing.T, app *pocketbase.PocketBase, name, category, subcategory string, price float64) *core.Record {
	t.Helper()

	record := core.NewRecord(mustCollection(t, app, "inventory_items"))
	record.Set("name", name)
	record.Set("category", category)
	record.Set("subcategory", subcategory)
	record.Set("price", price)
	record.Set("unit", "each")

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test inventory item: %v", err)
	}

	return record
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
