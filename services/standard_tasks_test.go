package services

import (
	"testing"
	"time"
)

func TestGetStandardTasks(t *testing.T) {
	tests := []struct {
		name        string
		category    string
		projectType string
		wantFirst   string
		wantLen     int
	}{
		{"kitchen remodel", "kitchen", "remodel", "Demolition", 5},
		{"bathroom tub-to-shower", "bathroom", "tub-to-shower", "Tub removal", 3},
		{"unknown category", "pool", "remodel", "", 0},
		{"unknown type", "kitchen", "gut-job", "", 0},
		{"empty keys", "", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetStandardTasks(tt.category, tt.projectType)
			if got == nil {
				t.Fatal("GetStandardTasks should never return nil")
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0].Title != tt.wantFirst {
				t.Errorf("first title = %q, want %q", got[0].Title, tt.wantFirst)
			}
		})
	}
}

func TestGetStandardTasks_ReturnsCopy(t *testing.T) {
	first := GetStandardTasks("kitchen", "remodel")
	first[0].Title = "changed"
	again := GetStandardTasks("kitchen", "remodel")
	if again[0].Title != "Demolition" {
		t.Errorf("catalog was mutated through a returned slice: %q", again[0].Title)
	}
}

func TestStandardCatalog_Valid(t *testing.T) {
	for _, category := range StandardCategories() {
		for _, projectType := range StandardProjectTypes(category) {
			for _, tpl := range GetStandardTasks(category, projectType) {
				if tpl.Timeframe <= 0 {
					t.Errorf("%s/%s %q has timeframe %d", category, projectType, tpl.Title, tpl.Timeframe)
				}
				switch tpl.TimeframeUnit {
				case UnitDays, UnitWeeks, UnitMonths:
				default:
					t.Errorf("%s/%s %q has unit %q", category, projectType, tpl.Title, tpl.TimeframeUnit)
				}
			}
		}
	}
}

func TestStandardCategories_Sorted(t *testing.T) {
	cats := StandardCategories()
	for i := 1; i < len(cats); i++ {
		if cats[i-1] > cats[i] {
			t.Fatalf("categories not sorted: %v", cats)
		}
	}
	if len(StandardProjectTypes("nope")) != 0 {
		t.Error("unknown category should have no project types")
	}
}

func TestLoadStandardTasks_Errors(t *testing.T) {
	if _, err := loadStandardTasks([]byte("a: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := loadStandardTasks([]byte("a:\n  b:\n    - title: X\n      timeframe: 0\n")); err == nil {
		t.Error("expected validation error for zero timeframe")
	}
	table, err := loadStandardTasks([]byte("a:\n  b:\n    - title: X\n      timeframe: 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if table["a"]["b"][0].TimeframeUnit != UnitDays {
		t.Errorf("missing unit should default to days, got %q", table["a"]["b"][0].TimeframeUnit)
	}
}

func TestNewTaskFromTemplate(t *testing.T) {
	tpl := TaskTemplate{Title: "Framing", Timeframe: 2, TimeframeUnit: UnitWeeks}
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	task := NewTaskFromTemplate(tpl, start)
	if task.ID == "" {
		t.Error("expected a temporary id")
	}
	if task.StartDate != "2024-06-03" || task.EndDate != "2024-06-17" {
		t.Errorf("dates = %s..%s, want 2024-06-03..2024-06-17", task.StartDate, task.EndDate)
	}

	undated := NewTaskFromTemplate(tpl, time.Time{})
	if undated.StartDate != "" || undated.EndDate != "" {
		t.Errorf("undated task got dates %q..%q", undated.StartDate, undated.EndDate)
	}
}
