package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/sync/errgroup"

	"quotebuilder/services"
)

// CategoryItem is one entry of the materials category picker.
type CategoryItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SubCategoryItem is one entry of the sub-category picker.
type SubCategoryItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
}

// MaterialsPanel is everything the materials panel needs in one response.
type MaterialsPanel struct {
	Categories    []CategoryItem         `json:"categories"`
	SubCategories []SubCategoryItem      `json:"subCategories"`
	Items         []services.CatalogItem `json:"items"`
}

func listCategories(app core.App) ([]CategoryItem, error) {
	records, err := app.FindRecordsByFilter("categories", "id != ''", "sort_order,name", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]CategoryItem, 0, len(records))
	for _, r := range records {
		out = append(out, CategoryItem{ID: r.Id, Name: r.GetString("name")})
	}
	return out, nil
}

// resolveCategory accepts a category id or name and returns its record.
func resolveCategory(app core.App, category string) (*core.Record, error) {
	if r, err := app.FindRecordById("categories", category); err == nil {
		return r, nil
	}
	return app.FindFirstRecordByFilter("categories", "name = {:name}", map[string]any{"name": category})
}

func listSubCategories(app core.App, category string) ([]SubCategoryItem, error) {
	out := []SubCategoryItem{}
	if category == "" {
		return out, nil
	}
	cat, err := resolveCategory(app, category)
	if err != nil {
		return out, nil
	}
	records, err := app.FindRecordsByFilter(
		"sub_categories",
		"category = {:categoryId}",
		"sort_order,name",
		0,
		0,
		map[string]any{"categoryId": cat.Id},
	)
	if err != nil {
		return nil, fmt.Errorf("list sub-categories: %w", err)
	}
	for _, r := range records {
		out = append(out, SubCategoryItem{ID: r.Id, Name: r.GetString("name"), CategoryID: cat.Id})
	}
	return out, nil
}

// listInventory returns catalog items filtered by category name, sub-category
// name and a free-text search.
func listInventory(app core.App, category, subcategory, search string) ([]services.CatalogItem, error) {
	filter := "id != ''"
	params := map[string]any{}
	if category != "" {
		if cat, err := resolveCategory(app, category); err == nil {
			category = cat.GetString("name")
		}
		filter = "category = {:category}"
		params["category"] = category
	}

	records, err := app.FindRecordsByFilter("inventory_items", filter, "name", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	items := make([]services.CatalogItem, 0, len(records))
	for _, r := range records {
		items = append(items, catalogItemFromRecord(r))
	}
	return services.FilterCatalog(items, category, subcategory, search), nil
}

// HandleCategories handles GET /category
func HandleCategories(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		categories, err := listCategories(app)
		if err != nil {
			return respondServerError(e, "materials: HandleCategories: query failed", err)
		}
		return respondOK(e, categories, "")
	}
}

// HandleSubCategories handles GET /sub-category?category=
func HandleSubCategories(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		category := strings.TrimSpace(e.Request.URL.Query().Get("category"))
		subs, err := listSubCategories(app, category)
		if err != nil {
			return respondServerError(e, "materials: HandleSubCategories: query failed", err)
		}
		return respondOK(e, subs, "")
	}
}

// HandleInventoryItems handles GET /inventory/items?category=&subcategory=&search=
func HandleInventoryItems(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		q := e.Request.URL.Query()
		items, err := listInventory(app,
			strings.TrimSpace(q.Get("category")),
			strings.TrimSpace(q.Get("subcategory")),
			q.Get("search"),
		)
		if err != nil {
			return respondServerError(e, "materials: HandleInventoryItems: query failed", err)
		}
		return respondOK(e, items, "")
	}
}

// HandleMaterialsPanel handles GET /materials/panel?category=&subcategory=&search=
// Fetches categories, sub-categories and items concurrently.
func HandleMaterialsPanel(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		q := e.Request.URL.Query()
		category := strings.TrimSpace(q.Get("category"))
		subcategory := strings.TrimSpace(q.Get("subcategory"))
		search := q.Get("search")

		panel, err := loadMaterialsPanel(e.Request.Context(), app, category, subcategory, search)
		if err != nil {
			return respondServerError(e, "materials: HandleMaterialsPanel: load failed", err)
		}
		return respondOK(e, panel, "")
	}
}

func loadMaterialsPanel(ctx context.Context, app core.App, category, subcategory, search string) (MaterialsPanel, error) {
	var panel MaterialsPanel
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		categories, err := listCategories(app)
		panel.Categories = categories
		return err
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		subs, err := listSubCategories(app, category)
		panel.SubCategories = subs
		return err
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		items, err := listInventory(app, category, subcategory, search)
		panel.Items = items
		return err
	})

	if err := g.Wait(); err != nil {
		return MaterialsPanel{}, err
	}
	return panel, nil
}
