package collections

import (
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"

	"quotebuilder/services"
)

// Setup programmatically creates/ensures the customers, quotes, quote_tasks,
// materials catalog and meeting collections exist.
func Setup(app *pocketbase.PocketBase) {
	customers := ensureCollection(app, "customers", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "contractor", Required: true})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "email", Required: false})
		c.Fields.Add(&core.TextField{Name: "phone", Required: false})
		c.Fields.Add(&core.TextField{Name: "address", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    []string{services.CustomerStatusLead, services.CustomerStatusCustomer},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "notes", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	quotes := ensureCollection(app, "quotes", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
		c.Fields.Add(&core.TextField{Name: "reference_number", Required: false})
		c.Fields.Add(&core.TextField{Name: "contractor", Required: false})
		c.Fields.Add(&core.RelationField{
			Name:          "customer",
			Required:      false,
			CollectionId:  customers.Id,
			CascadeDelete: false,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "category", Required: false})
		c.Fields.Add(&core.TextField{Name: "project_type", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  false,
			Values:    services.AllQuoteStatuses,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.BoolField{Name: "combined_costs"})
		c.Fields.Add(&core.TextField{Name: "reviewer_message", Required: false})
		c.Fields.Add(&core.DateField{Name: "submitted_at", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "quote_tasks", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "quote",
			Required:      true,
			CollectionId:  quotes.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "sort_order"})
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false, Max: 20000})
		c.Fields.Add(&core.NumberField{Name: "timeframe", OnlyInt: true})
		c.Fields.Add(&core.SelectField{
			Name:      "timeframe_unit",
			Required:  false,
			Values:    []string{string(services.UnitDays), string(services.UnitWeeks), string(services.UnitMonths)},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "start_date", Required: false})
		c.Fields.Add(&core.TextField{Name: "end_date", Required: false})
		c.Fields.Add(&core.JSONField{Name: "materials"})
		c.Fields.Add(&core.JSONField{Name: "labor"})
		c.Fields.Add(&core.BoolField{Name: "is_milestone_payment"})
		c.Fields.Add(&core.NumberField{Name: "payment_amount"})
		c.Fields.Add(&core.JSONField{Name: "notes"})
		c.Fields.Add(&core.BoolField{Name: "is_additional"})
		c.Fields.Add(&core.SelectField{
			Name:     "additional_status",
			Required: false,
			Values: []string{
				string(services.AdditionalApproved),
				string(services.AdditionalRejected),
				string(services.AdditionalPending),
			},
			MaxSelect: 1,
		})
	})

	categories := ensureCollection(app, "categories", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.NumberField{Name: "sort_order"})
	})

	ensureCollection(app, "sub_categories", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "category",
			Required:      true,
			CollectionId:  categories.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.NumberField{Name: "sort_order"})
	})

	ensureCollection(app, "inventory_items", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.TextField{Name: "category", Required: true})
		c.Fields.Add(&core.TextField{Name: "subcategory", Required: false})
		c.Fields.Add(&core.NumberField{Name: "price", Min: floatPtr(0)})
		c.Fields.Add(&core.TextField{Name: "unit", Required: false})
		c.Fields.Add(&core.TextField{Name: "vendor", Required: false})
	})

	meetings := ensureCollection(app, "meetings", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "contractor", Required: true})
		c.Fields.Add(&core.RelationField{
			Name:          "customer",
			Required:      false,
			CollectionId:  customers.Id,
			CascadeDelete: false,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:          "quote",
			Required:      false,
			CollectionId:  quotes.Id,
			CascadeDelete: false,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "title", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.DateField{Name: "scheduled_at", Required: true})
		c.Fields.Add(&core.NumberField{Name: "duration_minutes", OnlyInt: true})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    services.AllMeetingStatuses,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "attendee_email", Required: false})
		c.Fields.Add(&core.TextField{Name: "attendee_name", Required: false})
		c.Fields.Add(&core.TextField{Name: "room_id", Required: false})
		c.Fields.Add(&core.DateField{Name: "link_expires_at", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "meeting_attendance", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "meeting",
			Required:      true,
			CollectionId:  meetings.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "participant", Required: true})
		c.Fields.Add(&core.SelectField{
			Name:      "action",
			Required:  true,
			Values:    []string{"join", "leave"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
	})

	ensureCollection(app, "meeting_transcripts", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "meeting",
			Required:      true,
			CollectionId:  meetings.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.JSONField{Name: "lines", MaxSize: 5 << 20})
		c.Fields.Add(&core.TextField{Name: "summary", Required: false, Max: 20000})
		c.Fields.Add(&core.TextField{Name: "matched_category", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
}

func floatPtr(v float64) *float64 {
	return &v
}

// ensureCollection returns the existing collection with the given name or
// creates it with the fields added by addFields.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Debug().Str("collection", name).Msg("setup: ensureCollection: already exists, skipping creation")
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatal().Err(err).Str("collection", name).Msg("setup: ensureCollection: failed to create collection")
	}

	log.Info().Str("collection", name).Str("id", collection.Id).Msg("setup: ensureCollection: created collection")
	return collection
}
