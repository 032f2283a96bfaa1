package collections

import (
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"
)

// ── Definition structs ───────────────────────────────────────────────────

type itemDef struct {
	name        string
	description string
	price       float64
	unit        string
	vendor      string
}

type subCategoryDef struct {
	name  string
	items []itemDef
}

type categoryDef struct {
	name string
	subs []subCategoryDef
}

// catalogSeed is the starter materials catalog a fresh install is given.
var catalogSeed = []categoryDef{
	{
		name: "Kitchen",
		subs: []subCategoryDef{
			{name: "Cabinets", items: []itemDef{
				{"Shaker base cabinet 30in", "Solid maple, soft-close", 289.00, "each", "Cabinet Depot"},
				{"Wall cabinet 36in", "Solid maple, two doors", 219.50, "each", "Cabinet Depot"},
				{"Cabinet pull, brushed nickel", "", 4.25, "each", "Hardware Hub"},
			}},
			{name: "Countertops", items: []itemDef{
				{"Quartz slab", "Polished, 3cm", 68.00, "sq ft", "Stone Works"},
				{"Butcher block", "Oak, 1.5in", 42.00, "sq ft", "Lumber Yard"},
			}},
		},
	},
	{
		name: "Bathroom",
		subs: []subCategoryDef{
			{name: "Fixtures", items: []itemDef{
				{"Dual-flush toilet", "Elongated bowl", 245.00, "each", "Plumb Supply"},
				{"Pedestal sink", "Vitreous china", 139.00, "each", "Plumb Supply"},
				{"Thermostatic shower valve", "", 189.00, "each", "Plumb Supply"},
			}},
			{name: "Tile", items: []itemDef{
				{"Porcelain floor tile 12x24", "Matte grey", 4.80, "sq ft", "Tile Outlet"},
				{"Subway wall tile 3x6", "Gloss white", 2.10, "sq ft", "Tile Outlet"},
			}},
		},
	},
	{
		name: "Roofing",
		subs: []subCategoryDef{
			{name: "Shingles", items: []itemDef{
				{"Architectural shingles", "30-year, bundle covers 33 sq ft", 38.00, "bundle", "Roof Supply Co"},
				{"Ridge cap shingles", "", 55.00, "bundle", "Roof Supply Co"},
			}},
			{name: "Underlayment", items: []itemDef{
				{"Synthetic underlayment", "10 square roll", 129.00, "roll", "Roof Supply Co"},
				{"Ice and water shield", "2 square roll", 92.00, "roll", "Roof Supply Co"},
			}},
		},
	},
	{
		name: "Flooring",
		subs: []subCategoryDef{
			{name: "Hardwood", items: []itemDef{
				{"White oak plank 5in", "Prefinished", 7.45, "sq ft", "Floor Mart"},
			}},
			{name: "Supplies", items: []itemDef{
				{"Underlayment foam", "100 sq ft roll", 29.00, "roll", "Floor Mart"},
				{"Transition strip", "", 18.50, "each", "Floor Mart"},
			}},
		},
	},
	{
		name: "Electrical",
		subs: []subCategoryDef{
			{name: "Wiring", items: []itemDef{
				{"12/2 NM-B cable", "250 ft", 119.00, "roll", "Sparks Electric"},
				{"GFCI outlet", "20A, tamper resistant", 21.00, "each", "Sparks Electric"},
			}},
			{name: "Lighting", items: []itemDef{
				{"LED recessed light 6in", "Canless, 3000K", 16.00, "each", "Sparks Electric"},
			}},
		},
	},
}

// Seed populates the materials catalog (categories, sub_categories and
// inventory_items). It does nothing when categories already exist.
func Seed(app *pocketbase.PocketBase) error {
	categoriesCol, err := app.FindCollectionByNameOrId("categories")
	if err != nil {
		return fmt.Errorf("seed: could not find categories collection: %w", err)
	}
	existing, err := app.FindAllRecords(categoriesCol)
	if err != nil {
		return fmt.Errorf("seed: could not query categories: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	log.Info().Msg("seed: categories collection is empty, inserting catalog")

	subCategoriesCol, err := app.FindCollectionByNameOrId("sub_categories")
	if err != nil {
		return fmt.Errorf("seed: could not find sub_categories collection: %w", err)
	}
	itemsCol, err := app.FindCollectionByNameOrId("inventory_items")
	if err != nil {
		return fmt.Errorf("seed: could not find inventory_items collection: %w", err)
	}

	var itemCount int
	err = app.RunInTransaction(func(txApp core.App) error {
		for ci, cat := range catalogSeed {
			catRecord := core.NewRecord(categoriesCol)
			catRecord.Set("name", cat.name)
			catRecord.Set("sort_order", ci+1)
			if err := txApp.Save(catRecord); err != nil {
				return fmt.Errorf("seed: save category %q: %w", cat.name, err)
			}

			for si, sub := range cat.subs {
				subRecord := core.NewRecord(subCategoriesCol)
				subRecord.Set("category", catRecord.Id)
				subRecord.Set("name", sub.name)
				subRecord.Set("sort_order", si+1)
				if err := txApp.Save(subRecord); err != nil {
					return fmt.Errorf("seed: save sub-category %q: %w", sub.name, err)
				}

				for _, item := range sub.items {
					r := core.NewRecord(itemsCol)
					r.Set("name", item.name)
					r.Set("description", item.description)
					r.Set("category", cat.name)
					r.Set("subcategory", sub.name)
					r.Set("price", item.price)
					r.Set("unit", item.unit)
					r.Set("vendor", item.vendor)
					if err := txApp.Save(r); err != nil {
						return fmt.Errorf("seed: save item %q: %w", item.name, err)
					}
					itemCount++
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int("categories", len(catalogSeed)).Int("items", itemCount).Msg("seed: catalog inserted")
	return nil
}
