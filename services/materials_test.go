package services

import (
	"testing"
)

var tile = CatalogItem{ID: "item-1", Name: "Porcelain tile", Category: "flooring", Subcategory: "tile", Price: 4.25, Unit: "sqft", Vendor: "Acme"}

func TestAddMaterial_SameItemTwice(t *testing.T) {
	task := Task{ID: "t1"}
	task = AddMaterial(task, tile)
	task = AddMaterial(task, tile)

	if len(task.Materials) != 1 {
		t.Fatalf("len(Materials) = %d, want 1", len(task.Materials))
	}
	if task.Materials[0].Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", task.Materials[0].Quantity)
	}
	if task.Materials[0].Price != 4.25 || task.Materials[0].Unit != "sqft" {
		t.Errorf("line did not copy catalog fields: %+v", task.Materials[0])
	}
}

func TestAddMaterial_DoesNotShareBacking(t *testing.T) {
	original := Task{Materials: []Material{{ID: "item-1", Quantity: 1}}}
	updated := AddMaterial(original, tile)
	if original.Materials[0].Quantity != 1 {
		t.Errorf("original task mutated: %+v", original.Materials[0])
	}
	if updated.Materials[0].Quantity != 2 {
		t.Errorf("updated Quantity = %d, want 2", updated.Materials[0].Quantity)
	}
}

func TestUpdateQuantity(t *testing.T) {
	tests := []struct {
		name      string
		qty       int
		delta     int
		wantLines int
		wantQty   int
	}{
		{"increment", 1, 1, 1, 2},
		{"decrement", 3, -1, 1, 2},
		{"decrement to zero removes", 1, -1, 0, 0},
		{"large negative removes", 2, -10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := Task{Materials: []Material{{ID: "m1", Quantity: tt.qty}}}
			got, ok := UpdateQuantity(task, "m1", tt.delta)
			if !ok {
				t.Fatal("expected line to be found")
			}
			if len(got.Materials) != tt.wantLines {
				t.Fatalf("len(Materials) = %d, want %d", len(got.Materials), tt.wantLines)
			}
			if tt.wantLines == 1 && got.Materials[0].Quantity != tt.wantQty {
				t.Errorf("Quantity = %d, want %d", got.Materials[0].Quantity, tt.wantQty)
			}
		})
	}

	t.Run("unknown line", func(t *testing.T) {
		task := Task{Materials: []Material{{ID: "m1", Quantity: 1}}}
		if _, ok := UpdateQuantity(task, "nope", 1); ok {
			t.Error("expected not found")
		}
	})
}

func TestDecodeMaterials(t *testing.T) {
	raw := []byte(`[
		{"id":"a","name":"Grout","quantity":"3","unit":"bag","price":"12.5"},
		{"name":"Screws","quantity":2,"price":null},
		{"id":"c","name":"Bad","quantity":"lots","price":"n/a"}
	]`)
	got := DecodeMaterials(raw)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Quantity != 3 || got[0].Price != 12.5 {
		t.Errorf("string numbers not coerced: %+v", got[0])
	}
	if got[1].ID == "" {
		t.Error("missing id should be generated")
	}
	if got[2].Quantity != 0 || got[2].Price != 0 {
		t.Errorf("unparseable numbers should become zero: %+v", got[2])
	}

	if got := DecodeMaterials(nil); got == nil || len(got) != 0 {
		t.Errorf("DecodeMaterials(nil) = %v, want empty slice", got)
	}
	if got := DecodeMaterials([]byte("not json")); len(got) != 0 {
		t.Errorf("DecodeMaterials(garbage) = %v, want empty", got)
	}
}

func TestNormalizeMaterials(t *testing.T) {
	got := NormalizeMaterials([]Material{
		{Name: "keep", Quantity: 2},
		{ID: "x", Name: "drop", Quantity: 0},
		{ID: "y", Name: "keep id", Quantity: 1},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID == "" {
		t.Error("expected generated id")
	}
	if got[1].ID != "y" {
		t.Errorf("existing id changed to %q", got[1].ID)
	}
}

func TestFilterCatalog(t *testing.T) {
	items := []CatalogItem{
		tile,
		{ID: "item-2", Name: "Oak plank", Category: "flooring", Subcategory: "wood", Vendor: "Timberline"},
		{ID: "item-3", Name: "Copper pipe", Category: "plumbing", Subcategory: "pipe", Description: "half inch"},
	}

	tests := []struct {
		name        string
		category    string
		subcategory string
		search      string
		want        []string
	}{
		{"no filters", "", "", "", []string{"item-1", "item-2", "item-3"}},
		{"category", "flooring", "", "", []string{"item-1", "item-2"}},
		{"subcategory", "flooring", "wood", "", []string{"item-2"}},
		{"search name", "", "", "PIPE", []string{"item-3"}},
		{"search description", "", "", "half", []string{"item-3"}},
		{"search vendor", "", "", "acme", []string{"item-1"}},
		{"no match", "electrical", "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterCatalog(items, tt.category, tt.subcategory, tt.search)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("item %d = %q, want %q", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}
