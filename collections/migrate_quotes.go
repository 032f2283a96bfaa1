package collections

import (
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/rs/zerolog/log"

	"quotebuilder/services"
)

// MigrateQuotes normalises stored quote data on startup: quotes without a
// status become drafts, and milestone payment fields on tasks are made
// consistent (a positive amount marks the task as a milestone, a flag without
// an amount is cleared). Safe to call on every startup.
func MigrateQuotes(app *pocketbase.PocketBase) error {
	quotesCol, err := app.FindCollectionByNameOrId("quotes")
	if err != nil {
		return fmt.Errorf("migrate: could not find quotes collection: %w", err)
	}
	tasksCol, err := app.FindCollectionByNameOrId("quote_tasks")
	if err != nil {
		return fmt.Errorf("migrate: could not find quote_tasks collection: %w", err)
	}

	blank, err := app.FindRecordsByFilter(quotesCol, "status = ''", "", 0, 0, nil)
	if err != nil {
		return fmt.Errorf("migrate: could not query quotes without status: %w", err)
	}
	for _, q := range blank {
		q.Set("status", string(services.StatusDraft))
		if err := app.Save(q); err != nil {
			log.Warn().Err(err).Str("quote", q.Id).Msg("migrate: MigrateQuotes: failed to default status")
			continue
		}
	}

	inconsistent, err := app.FindRecordsByFilter(
		tasksCol,
		"(is_milestone_payment = true && payment_amount <= 0) || (is_milestone_payment = false && payment_amount > 0)",
		"", 0, 0, nil,
	)
	if err != nil {
		return fmt.Errorf("migrate: could not query task payments: %w", err)
	}
	for _, task := range inconsistent {
		if task.GetFloat("payment_amount") > 0 {
			task.Set("is_milestone_payment", true)
		} else {
			task.Set("is_milestone_payment", false)
			task.Set("payment_amount", 0)
		}
		if err := app.Save(task); err != nil {
			log.Warn().Err(err).Str("task", task.Id).Msg("migrate: MigrateQuotes: failed to fix payment fields")
		}
	}

	if len(blank) > 0 || len(inconsistent) > 0 {
		log.Info().
			Int("quotes", len(blank)).
			Int("tasks", len(inconsistent)).
			Msg("migrate: MigrateQuotes: normalised quote data")
	}
	return nil
}
