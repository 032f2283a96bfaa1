package services

import (
	_ "embed"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// TaskTemplate is a pre-filled task offered when building a quote.
type TaskTemplate struct {
	Title         string        `yaml:"title" json:"title"`
	Description   string        `yaml:"description" json:"description"`
	Timeframe     int           `yaml:"timeframe" json:"timeframe"`
	TimeframeUnit TimeframeUnit `yaml:"timeframeUnit" json:"timeframeUnit"`
}

//go:embed standard_tasks.yaml
var standardTasksYAML []byte

// standardTasks is loaded once at init and never written afterwards.
var standardTasks = mustLoadStandardTasks(standardTasksYAML)

func loadStandardTasks(data []byte) (map[string]map[string][]TaskTemplate, error) {
	table := map[string]map[string][]TaskTemplate{}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse standard tasks: %w", err)
	}
	for category, types := range table {
		for projectType, templates := range types {
			for i, tpl := range templates {
				if tpl.Title == "" || tpl.Timeframe <= 0 {
					return nil, fmt.Errorf("standard task %s/%s[%d]: title and positive timeframe required", category, projectType, i)
				}
				if tpl.TimeframeUnit == "" {
					templates[i].TimeframeUnit = UnitDays
				}
			}
		}
	}
	return table, nil
}

func mustLoadStandardTasks(data []byte) map[string]map[string][]TaskTemplate {
	table, err := loadStandardTasks(data)
	if err != nil {
		panic(err)
	}
	return table
}

// GetStandardTasks returns the templates for an exact (category, project type)
// key, or an empty list when the key is unknown.
func GetStandardTasks(category, projectType string) []TaskTemplate {
	templates := standardTasks[category][projectType]
	out := make([]TaskTemplate, len(templates))
	copy(out, templates)
	return out
}

// StandardCategories lists the catalog's categories in sorted order.
func StandardCategories() []string {
	out := make([]string, 0, len(standardTasks))
	for c := range standardTasks {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// StandardProjectTypes lists the project types under category in sorted order.
func StandardProjectTypes(category string) []string {
	types := standardTasks[category]
	out := make([]string, 0, len(types))
	for t := range types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NewTaskFromTemplate builds a task pre-filled from tpl starting on start. The
// id is a temporary client key; the store assigns the permanent one.
func NewTaskFromTemplate(tpl TaskTemplate, start time.Time) Task {
	t := Task{
		ID:            uuid.NewString(),
		Title:         tpl.Title,
		Description:   tpl.Description,
		Timeframe:     tpl.Timeframe,
		TimeframeUnit: tpl.TimeframeUnit,
		Materials:     []Material{},
		Notes:         []string{},
	}
	if !start.IsZero() {
		t.StartDate = start.Format(DateLayout)
	}
	_ = t.Recompute()
	return t
}
