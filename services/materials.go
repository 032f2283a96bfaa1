package services

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// CatalogItem is a read-only inventory item offered by the materials panel.
type CatalogItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Price       float64 `json:"price"`
	Unit        string  `json:"unit"`
	Vendor      string  `json:"vendor"`
}

// AddMaterial merges a catalog item into the task's materials. A line already
// carrying the item's id has its quantity incremented; otherwise a new line is
// appended with quantity 1. The catalog item itself is never modified.
func AddMaterial(t Task, item CatalogItem) Task {
	materials := make([]Material, len(t.Materials), len(t.Materials)+1)
	copy(materials, t.Materials)

	for i := range materials {
		if materials[i].ID == item.ID {
			materials[i].Quantity++
			t.Materials = materials
			return t
		}
	}

	t.Materials = append(materials, Material{
		ID:       item.ID,
		Name:     item.Name,
		Quantity: 1,
		Unit:     item.Unit,
		Price:    item.Price,
	})
	return t
}

// UpdateQuantity applies delta to the material line. A line whose quantity
// drops below 1 is removed. The second result is false when the task has no
// such line.
func UpdateQuantity(t Task, materialID string, delta int) (Task, bool) {
	out := make([]Material, 0, len(t.Materials))
	found := false
	for _, m := range t.Materials {
		if m.ID == materialID {
			found = true
			m.Quantity += delta
			if m.Quantity < 1 {
				continue
			}
		}
		out = append(out, m)
	}
	if !found {
		return t, false
	}
	t.Materials = out
	return t, true
}

// NormalizeMaterials drops empty lines and gives every line an id.
func NormalizeMaterials(materials []Material) []Material {
	out := make([]Material, 0, len(materials))
	for _, m := range materials {
		if m.Quantity <= 0 {
			continue
		}
		if strings.TrimSpace(m.ID) == "" {
			m.ID = uuid.NewString()
		}
		out = append(out, m)
	}
	return out
}

// DecodeMaterials reads a stored materials list. Numbers stored as strings are
// coerced and anything unparseable becomes zero.
func DecodeMaterials(raw []byte) []Material {
	if len(raw) == 0 {
		return []Material{}
	}
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return []Material{}
	}
	out := make([]Material, 0, len(rows))
	for _, row := range rows {
		m := Material{
			ID:       cast.ToString(row["id"]),
			Name:     cast.ToString(row["name"]),
			Quantity: cast.ToInt(row["quantity"]),
			Unit:     cast.ToString(row["unit"]),
			Price:    cast.ToFloat64(row["price"]),
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		out = append(out, m)
	}
	return out
}

// FilterCatalog returns the items matching category, subcategory and a case
// insensitive search over name, description and vendor. Empty filters match
// everything.
func FilterCatalog(items []CatalogItem, category, subcategory, search string) []CatalogItem {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]CatalogItem, 0, len(items))
	for _, it := range items {
		if category != "" && it.Category != category {
			continue
		}
		if subcategory != "" && it.Subcategory != subcategory {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Name), search) &&
			!strings.Contains(strings.ToLower(it.Description), search) &&
			!strings.Contains(strings.ToLower(it.Vendor), search) {
			continue
		}
		out = append(out, it)
	}
	return out
}
